// Package identity resolves rows of two databases that hold the same logical
// data under different primary keys. Each table gets an identity Model that
// yields (natural key, primary key) tuples; a key mapper indexes them and the
// transcoder uses the index to rewrite rows for the target database.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/names"
)

// NKSeparator joins the parts of composite natural keys.
const NKSeparator = "|"

// NkPkIterator yields tuples of the form [nk, pk1, pk2, ...]. It is consumed
// once; a second pass needs a new iterator.
type NkPkIterator interface {
	Next() bool
	Tuple() []any
	Err() error
	Close() error
}

// Model defines how the rows of one table are identified across databases.
type Model interface {
	// Name is the table name.
	Name() string
	Kind() string
	Description() string
	CreateNkPkIterator(ctx context.Context, conn model.Connection, dbID string, mapper KeyMapper, db *model.Database) (NkPkIterator, error)
	ExtractNK(tuple []any) string
	ExtractPK(tuple []any) (any, error)
	// Dependencies names the tables whose keys must be mapped before this one.
	Dependencies(ctx context.Context, db *model.Database) ([]string, error)
	IrrelevantColumns() []string
	AddIrrelevantColumn(column string)
	ErrorHandler() *ErrorHandler
	SetErrorHandler(h *ErrorHandler)
}

// Equal reports whether two models identify the same table the same way.
func Equal(a, b Model) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && names.Equal(a.Name(), b.Name())
}

// reporter is implemented by models embedding base.
type reporter interface {
	handleNKNotFound(ctx context.Context, naturalKey, tableName, sourceDBID, targetDBID string)
	handleNonEquivalence(ctx context.Context, message string)
	handleMissingOwner(ctx context.Context, ownedTable string, ownedPK any, ownerTable string, ownerID any, sourceDBID string)
}

// base carries what all models share.
type base struct {
	tableName  string
	irrelevant *names.Set
	handler    *ErrorHandler
	provider   *Provider
}

func newBase(tableName string) base {
	return base{tableName: tableName, irrelevant: names.NewSet(), handler: DefaultErrorHandler()}
}

func (b *base) Name() string { return b.tableName }

func (b *base) IrrelevantColumns() []string { return b.irrelevant.Items() }

func (b *base) AddIrrelevantColumn(column string) { b.irrelevant.Add(column) }

func (b *base) ErrorHandler() *ErrorHandler { return b.handler }

func (b *base) SetErrorHandler(h *ErrorHandler) { b.handler = h }

func (b *base) setProvider(p *Provider) { b.provider = p }

// ExtractNK stringifies the first tuple element.
func (b *base) ExtractNK(tuple []any) string {
	if len(tuple) == 0 {
		return ""
	}
	return keyString(tuple[0])
}

// ExtractPK returns the second element for single-column keys and the trailing
// elements otherwise. Tuples without key elements fail with
// model.ErrUnsupportedOperation.
func (b *base) ExtractPK(tuple []any) (any, error) {
	switch {
	case len(tuple) == 2:
		return tuple[1], nil
	case len(tuple) > 2:
		return append([]any(nil), tuple[1:]...), nil
	default:
		return nil, fmt.Errorf("table %s does not have a primary key: %w", b.tableName, model.ErrUnsupportedOperation)
	}
}

func (b *base) runQuery(ctx context.Context, conn model.Connection, query string, args ...any) (model.Cursor, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query for %s: %w", b.tableName, model.ErrInvalidArgument)
	}
	cursor, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys of %s: %w", b.tableName, err)
	}
	return cursor, nil
}

func (b *base) handleNKNotFound(ctx context.Context, naturalKey, tableName, sourceDBID, targetDBID string) {
	b.handler.HandleError(ctx, fmt.Sprintf("Missing entry: %s.%s[%s] does not appear in %s",
		sourceDBID, tableName, naturalKey, targetDBID))
}

func (b *base) handleNonEquivalence(ctx context.Context, message string) {
	b.handler.HandleError(ctx, message)
}

func (b *base) handleMissingOwner(ctx context.Context, ownedTable string, ownedPK any, ownerTable string, ownerID any, sourceDBID string) {
	b.handler.HandleError(ctx, fmt.Sprintf("Owner of %s.%s[%s] was dropped. Missing: %s.%s[%s]. "+
		"Possibly it was rejected or it was missing in the NK query",
		sourceDBID, ownedTable, keyString(ownedPK), sourceDBID, ownerTable, keyString(ownerID)))
}

// keyString renders key values so that equal keys read from different drivers
// (int vs int64, []byte vs string) compare equal.
func keyString(v any) string {
	switch k := v.(type) {
	case nil:
		return "null"
	case string:
		return k
	case []byte:
		return string(k)
	case []any:
		parts := make([]string, len(k))
		for i, p := range k {
			parts[i] = keyString(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(k)
	}
}

// tupleIterator adapts a Cursor to NkPkIterator.
type tupleIterator struct {
	cursor model.Cursor
	tuple  []any
	err    error
}

func (it *tupleIterator) Next() bool {
	if it.err != nil || !it.cursor.Next() {
		return false
	}
	values, err := it.cursor.Values()
	if err != nil {
		it.err = err
		return false
	}
	it.tuple = values
	return true
}

func (it *tupleIterator) Tuple() []any { return it.tuple }

func (it *tupleIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cursor.Err()
}

func (it *tupleIterator) Close() error { return it.cursor.Close() }

// sliceIterator yields precomputed tuples.
type sliceIterator struct {
	tuples [][]any
	pos    int
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.tuples) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Tuple() []any { return it.tuples[it.pos-1] }

func (it *sliceIterator) Err() error { return nil }

func (it *sliceIterator) Close() error { return nil }

func dialectOf(db *model.Database) dialect.Dialect {
	return dialect.ForProduct(db.ProductName, db.ProductVersion)
}
