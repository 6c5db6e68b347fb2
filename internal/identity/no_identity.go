package identity

import (
	"context"

	"github.com/tordrt/dbtranscode/internal/model"
)

// KindNone marks tables whose rows are never matched.
const KindNone = "none"

// NoIdentity is the identity of tables whose rows have no natural key. It
// yields no tuples, so every row is treated as new.
type NoIdentity struct {
	base
}

// NewNoIdentity creates the identity of table.
func NewNoIdentity(table string) *NoIdentity {
	return &NoIdentity{base: newBase(table)}
}

func (n *NoIdentity) Kind() string { return KindNone }

func (n *NoIdentity) Description() string { return "No identity" }

func (n *NoIdentity) CreateNkPkIterator(ctx context.Context, conn model.Connection, dbID string, mapper KeyMapper, db *model.Database) (NkPkIterator, error) {
	return &sliceIterator{}, nil
}

func (n *NoIdentity) Dependencies(ctx context.Context, db *model.Database) ([]string, error) {
	return nil, nil
}
