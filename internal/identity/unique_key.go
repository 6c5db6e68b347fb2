package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/model"
)

// KindUniqueKey identifies rows by a combination of columns and foreign key paths.
const KindUniqueKey = "unique-key"

// UniqueKeyIdentity builds natural keys from components. A component is a
// column of the table or a foreign key path starting at it, like
// "CITY(state_id) -> STATE(country) -> COUNTRY(code)". Values that point into
// a table with an identity of its own are replaced by that table's natural
// key, so the key survives primary key renumbering.
type UniqueKeyIdentity struct {
	base
	components []string
}

// NewUniqueKeyIdentity creates the identity of table.
func NewUniqueKeyIdentity(table string, components ...string) *UniqueKeyIdentity {
	return &UniqueKeyIdentity{base: newBase(table), components: append([]string(nil), components...)}
}

func (u *UniqueKeyIdentity) Kind() string { return KindUniqueKey }

// Components returns the natural key components.
func (u *UniqueKeyIdentity) Components() []string { return append([]string(nil), u.components...) }

func (u *UniqueKeyIdentity) Description() string {
	return "Identity definition by unique key: " + strings.Join(u.components, ", ")
}

func (u *UniqueKeyIdentity) Dependencies(ctx context.Context, db *model.Database) ([]string, error) {
	plan, err := u.plan(ctx, db)
	if err != nil {
		return nil, err
	}
	var deps []string
	for _, part := range plan.parts {
		if part.owner != nil {
			deps = append(deps, part.owner.Name())
		}
	}
	return deps, nil
}

// keyPart is one natural key component resolved to selected columns.
type keyPart struct {
	exprs []string
	// owner is set when the selected values are the primary key of a table
	// whose natural key replaces them.
	owner *model.Table
}

type keyPlan struct {
	table *model.Table
	parts []keyPart
	query string
	pkLen int
}

func (u *UniqueKeyIdentity) plan(ctx context.Context, db *model.Database) (*keyPlan, error) {
	if len(u.components) == 0 {
		return nil, fmt.Errorf("unique key identity of %s has no components: %w", u.tableName, model.ErrInvalidArgument)
	}
	table, err := db.Table(u.tableName)
	if err != nil {
		return nil, err
	}
	d := dialectOf(db)
	const root = "t0"
	from := table.QuotedName(d) + " " + root
	plan := &keyPlan{table: table}
	joins := 0

	for _, component := range u.components {
		if !strings.Contains(component, "->") {
			column, err := table.Column(ctx, strings.TrimSpace(component))
			if err != nil {
				return nil, err
			}
			part := keyPart{exprs: []string{root + "." + d.QuoteIdentifier(column.Name)}}
			if fk, err := table.ForeignKeyByColumns(ctx, column.Name); err == nil && u.hasIdentity(fk.Referee()) {
				part.owner = fk.Referee()
			}
			plan.parts = append(plan.parts, part)
			continue
		}

		path, err := model.ParseForeignKeyPathStrict(ctx, component, db)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve key component of %s: %w", u.tableName, err)
		}
		if path.Len() == 0 || !path.Edges()[0].Table().Equal(table) {
			return nil, fmt.Errorf("key component %q does not start at %s: %w", component, u.tableName, model.ErrInvalidArgument)
		}
		alias := root
		for _, edge := range path.Edges() {
			joins++
			next := fmt.Sprintf("t%d", joins)
			conds := make([]string, len(edge.ColumnNames()))
			refColumns := edge.RefereeColumnNames()
			for i, c := range edge.ColumnNames() {
				conds[i] = alias + "." + d.QuoteIdentifier(c) + " = " + next + "." + d.QuoteIdentifier(refColumns[i])
			}
			from += " LEFT JOIN " + edge.Referee().QuotedName(d) + " " + next + " ON " + strings.Join(conds, " AND ")
			alias = next
		}
		var part keyPart
		for _, c := range path.EndColumnNames() {
			part.exprs = append(part.exprs, alias+"."+d.QuoteIdentifier(c))
		}
		if end := path.Edges()[path.Len()-1].Referee(); u.hasIdentity(end) {
			part.owner = end
		}
		plan.parts = append(plan.parts, part)
	}

	pkColumns, err := table.PKColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(pkColumns) == 0 {
		return nil, fmt.Errorf("%s: %w", u.tableName, model.ErrNoPrimaryKey)
	}
	var selected []string
	for _, part := range plan.parts {
		selected = append(selected, part.exprs...)
	}
	for _, c := range pkColumns {
		selected = append(selected, root+"."+d.QuoteIdentifier(c))
	}
	plan.pkLen = len(pkColumns)
	plan.query = "SELECT " + strings.Join(selected, ", ") + " FROM " + from
	return plan, nil
}

func (u *UniqueKeyIdentity) hasIdentity(table *model.Table) bool {
	if u.provider == nil || table == nil {
		return false
	}
	m, ok := u.provider.Identity(table.Name())
	return ok && m.Kind() != KindNone
}

// SelectStatement returns the query used to read natural keys from db.
func (u *UniqueKeyIdentity) SelectStatement(ctx context.Context, db *model.Database) (string, error) {
	plan, err := u.plan(ctx, db)
	if err != nil {
		return "", err
	}
	return plan.query, nil
}

func (u *UniqueKeyIdentity) CreateNkPkIterator(ctx context.Context, conn model.Connection, dbID string, mapper KeyMapper, db *model.Database) (NkPkIterator, error) {
	plan, err := u.plan(ctx, db)
	if err != nil {
		return nil, err
	}
	cursor, err := u.runQuery(ctx, conn, plan.query)
	if err != nil {
		return nil, err
	}
	return &uniqueKeyIterator{identity: u, plan: plan, cursor: cursor, ctx: ctx, dbID: dbID, mapper: mapper}, nil
}

// uniqueKeyIterator turns joined rows into tuples, dropping rows whose owners
// cannot be resolved.
type uniqueKeyIterator struct {
	identity *UniqueKeyIdentity
	plan     *keyPlan
	cursor   model.Cursor
	ctx      context.Context
	dbID     string
	mapper   KeyMapper
	tuple    []any
	err      error
}

func (it *uniqueKeyIterator) Next() bool {
	for it.err == nil && it.cursor.Next() {
		values, err := it.cursor.Values()
		if err != nil {
			it.err = err
			return false
		}
		if tuple, ok := it.convert(values); ok {
			it.tuple = tuple
			return true
		}
	}
	return false
}

func (it *uniqueKeyIterator) convert(values []any) ([]any, bool) {
	pkValues := values[len(values)-it.plan.pkLen:]
	var pk any = pkValues[0]
	if len(pkValues) > 1 {
		pk = append([]any(nil), pkValues...)
	}

	parts := make([]string, len(it.plan.parts))
	pos := 0
	for i, part := range it.plan.parts {
		partValues := values[pos : pos+len(part.exprs)]
		pos += len(part.exprs)
		var key any = partValues[0]
		if len(partValues) > 1 {
			key = append([]any(nil), partValues...)
		}
		if part.owner == nil || allNil(partValues) || it.mapper == nil {
			parts[i] = keyString(key)
			continue
		}
		nk, ok := it.mapper.NaturalKey(it.dbID, part.owner.Name(), key)
		if !ok {
			it.identity.handleMissingOwner(it.ctx, it.identity.tableName, pk, part.owner.Name(), key, it.dbID)
			return nil, false
		}
		parts[i] = nk
	}
	return append([]any{strings.Join(parts, NKSeparator)}, pkValues...), true
}

func (it *uniqueKeyIterator) Tuple() []any { return it.tuple }

func (it *uniqueKeyIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cursor.Err()
}

func (it *uniqueKeyIterator) Close() error { return it.cursor.Close() }

func allNil(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}
