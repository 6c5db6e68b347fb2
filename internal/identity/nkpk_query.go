package identity

import (
	"context"

	"github.com/tordrt/dbtranscode/internal/model"
)

// KindNkPkQuery identifies rows by a query returning nk, pk...
const KindNkPkQuery = "nk-pk-query"

// NkPkQueryIdentity identifies rows by a user-supplied query whose first
// column is the natural key and whose remaining columns are the primary key.
type NkPkQueryIdentity struct {
	base
	query string
}

// NewNkPkQueryIdentity creates the identity of table.
func NewNkPkQueryIdentity(table, query string) *NkPkQueryIdentity {
	return &NkPkQueryIdentity{base: newBase(table), query: query}
}

func (n *NkPkQueryIdentity) Kind() string { return KindNkPkQuery }

// Query returns the natural key query.
func (n *NkPkQueryIdentity) Query() string { return n.query }

func (n *NkPkQueryIdentity) Description() string {
	return "Identity definition by NK-PK query: " + n.query
}

func (n *NkPkQueryIdentity) CreateNkPkIterator(ctx context.Context, conn model.Connection, dbID string, mapper KeyMapper, db *model.Database) (NkPkIterator, error) {
	cursor, err := n.runQuery(ctx, conn, n.query)
	if err != nil {
		return nil, err
	}
	return &tupleIterator{cursor: cursor}, nil
}

func (n *NkPkQueryIdentity) Dependencies(ctx context.Context, db *model.Database) ([]string, error) {
	return nil, nil
}
