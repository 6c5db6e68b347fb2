package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

// KindSubNkPkQuery identifies rows relative to an owner row.
const KindSubNkPkQuery = "sub-nk-pk-query"

// SubNkPkQueryIdentity identifies rows that are only unique within an owner,
// like states within a country. The query is run once per owner row with the
// owner's primary key bound to its ? placeholders and returns sub-nk, pk...
// The natural key is ownerNK|subNK.
type SubNkPkQueryIdentity struct {
	base
	owners []string
	query  string
}

// NewSubNkPkQueryIdentity creates the identity of table owned by owners.
func NewSubNkPkQueryIdentity(table string, owners []string, query string) *SubNkPkQueryIdentity {
	return &SubNkPkQueryIdentity{base: newBase(table), owners: append([]string(nil), owners...), query: query}
}

func (s *SubNkPkQueryIdentity) Kind() string { return KindSubNkPkQuery }

// Owners returns the owner table names.
func (s *SubNkPkQueryIdentity) Owners() []string { return append([]string(nil), s.owners...) }

// Query returns the sub-query.
func (s *SubNkPkQueryIdentity) Query() string { return s.query }

func (s *SubNkPkQueryIdentity) Description() string {
	return fmt.Sprintf("Identity definition by sub NK-PK query on owner %s: %s", strings.Join(s.owners, ", "), s.query)
}

func (s *SubNkPkQueryIdentity) Dependencies(ctx context.Context, db *model.Database) ([]string, error) {
	return s.Owners(), nil
}

func (s *SubNkPkQueryIdentity) CreateNkPkIterator(ctx context.Context, conn model.Connection, dbID string, mapper KeyMapper, db *model.Database) (NkPkIterator, error) {
	if mapper == nil {
		return nil, fmt.Errorf("identity of %s needs a key mapper to resolve its owners: %w", s.tableName, model.ErrInvalidArgument)
	}
	if len(s.owners) == 0 {
		return nil, fmt.Errorf("identity of %s has no owner: %w", s.tableName, model.ErrInvalidArgument)
	}
	d := dialectOf(db)
	query := bindPlaceholders(s.query, d)

	var tuples [][]any
	for _, ownerName := range s.owners {
		owner, err := db.Table(ownerName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve owner of %s: %w", s.tableName, err)
		}
		ownerPKs, err := owner.QueryPKValues(ctx, conn, d)
		if err != nil {
			return nil, err
		}
		for _, ownerPK := range ownerPKs {
			ownerNK, ok := mapper.NaturalKey(dbID, owner.Name(), ownerPK)
			if !ok {
				s.handleMissingOwner(ctx, s.tableName, nil, owner.Name(), ownerPK, dbID)
				continue
			}
			args, err := model.SplitKey(ownerPK, countPlaceholders(s.query))
			if err != nil {
				return nil, fmt.Errorf("sub query of %s does not match the key of %s: %w", s.tableName, owner.Name(), err)
			}
			sub, err := s.subTuples(ctx, conn, query, ownerNK, args)
			if err != nil {
				return nil, err
			}
			tuples = append(tuples, sub...)
		}
	}
	return &sliceIterator{tuples: tuples}, nil
}

func (s *SubNkPkQueryIdentity) subTuples(ctx context.Context, conn model.Connection, query, ownerNK string, args []any) ([][]any, error) {
	cursor, err := s.runQuery(ctx, conn, query, args...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var tuples [][]any
	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read keys of %s: %w", s.tableName, err)
		}
		if len(values) == 0 {
			continue
		}
		tuple := append([]any{ownerNK + NKSeparator + keyString(values[0])}, values[1:]...)
		tuples = append(tuples, tuple)
	}
	return tuples, cursor.Err()
}

// bindPlaceholders rewrites ? markers outside string literals to the
// dialect's bind parameter syntax.
func bindPlaceholders(query string, d dialect.Dialect) string {
	var b strings.Builder
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func countPlaceholders(query string) int {
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
		}
	}
	return n
}
