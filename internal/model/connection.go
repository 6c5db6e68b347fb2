package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
)

// Connection executes SQL and yields rows. Transactions are managed by the caller.
type Connection interface {
	Query(ctx context.Context, query string, args ...any) (Cursor, error)
}

// Cursor is a forward-only result set. Values returns one value per column of
// the current row.
type Cursor interface {
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// SQLRenderer renders the vendor-specific fragments needed for point queries.
type SQLRenderer interface {
	QuoteIdentifier(name string) string
	RenderWhereClause(columns []string, values []any) string
}

// Row is a table row held as a case-insensitive column → value map.
type Row struct {
	table *Table
	cells *names.OrderedMap[any]
}

// NewRow creates an empty row of table.
func NewRow(table *Table) *Row {
	return &Row{table: table, cells: names.NewOrderedMap[any]()}
}

// Table returns the table the row belongs to.
func (r *Row) Table() *Table { return r.table }

// Value returns the cell of column name.
func (r *Row) Value(name string) (any, bool) {
	return r.cells.Get(name)
}

// SetValue sets the cell of column name.
func (r *Row) SetValue(name string, value any) {
	r.cells.Put(name, value)
}

// ColumnNames returns the names of the cells in the order they were set.
func (r *Row) ColumnNames() []string { return r.cells.Names() }

// Values returns the cell values in ColumnNames order.
func (r *Row) Values() []any { return r.cells.Values() }

// PKValue returns the primary key of the row: the cell itself for a
// single-column key, otherwise one value per key column.
func (r *Row) PKValue(ctx context.Context) (any, error) {
	pkColumns, err := r.pkColumns(ctx)
	if err != nil {
		return nil, err
	}
	if len(pkColumns) == 1 {
		v, _ := r.cells.Get(pkColumns[0])
		return v, nil
	}
	values := make([]any, len(pkColumns))
	for i, c := range pkColumns {
		values[i], _ = r.cells.Get(c)
	}
	return values, nil
}

// SetPKValue overwrites the primary key cells. A composite key expects a []any
// with one value per key column.
func (r *Row) SetPKValue(ctx context.Context, pk any) error {
	pkColumns, err := r.pkColumns(ctx)
	if err != nil {
		return err
	}
	values, err := SplitKey(pk, len(pkColumns))
	if err != nil {
		return fmt.Errorf("failed to set primary key of %s: %w", r.table.Name(), err)
	}
	for i, c := range pkColumns {
		r.cells.Put(c, values[i])
	}
	return nil
}

func (r *Row) pkColumns(ctx context.Context) ([]string, error) {
	pkColumns, err := r.table.PKColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(pkColumns) == 0 {
		return nil, fmt.Errorf("%s: %w", r.table.Name(), ErrNoPrimaryKey)
	}
	return pkColumns, nil
}

func (r *Row) String() string {
	parts := make([]string, 0, r.cells.Len())
	for i, name := range r.cells.Names() {
		parts = append(parts, fmt.Sprintf("%s=%v", name, r.cells.Values()[i]))
	}
	return fmt.Sprintf("%s[%s]", r.table.Name(), strings.Join(parts, ", "))
}

// SplitKey turns a key value into n components. A scalar is accepted for n == 1.
func SplitKey(key any, n int) ([]any, error) {
	if values, ok := key.([]any); ok {
		if len(values) != n {
			return nil, fmt.Errorf("key has %d components, expected %d: %w", len(values), n, ErrInvalidArgument)
		}
		return values, nil
	}
	if n != 1 {
		return nil, fmt.Errorf("scalar key for %d key columns: %w", n, ErrInvalidArgument)
	}
	return []any{key}, nil
}

// RowIterator yields Rows from a Cursor.
type RowIterator struct {
	table  *Table
	cursor Cursor
	row    *Row
	err    error
}

// NewRowIterator wraps cursor.
func NewRowIterator(table *Table, cursor Cursor) *RowIterator {
	return &RowIterator{table: table, cursor: cursor}
}

// Next advances to the next row.
func (it *RowIterator) Next() bool {
	if it.err != nil || !it.cursor.Next() {
		return false
	}
	values, err := it.cursor.Values()
	if err != nil {
		it.err = err
		return false
	}
	row := NewRow(it.table)
	for i, c := range it.cursor.Columns() {
		row.SetValue(c, values[i])
	}
	it.row = row
	return true
}

// Row returns the current row.
func (it *RowIterator) Row() *Row { return it.row }

// Err returns the first error met while iterating.
func (it *RowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cursor.Err()
}

// Close releases the cursor.
func (it *RowIterator) Close() error { return it.cursor.Close() }

// row queries ------------------------------------------------------------------------------------

// QuotedName renders the schema-qualified table name.
func (t *Table) QuotedName(r SQLRenderer) string {
	if t.schema == nil || t.schema.name == "" {
		return r.QuoteIdentifier(t.name)
	}
	return r.QuoteIdentifier(t.schema.name) + "." + r.QuoteIdentifier(t.name)
}

// AllRows iterates over every row of the table.
func (t *Table) AllRows(ctx context.Context, conn Connection, r SQLRenderer) (*RowIterator, error) {
	return t.QueryRows(ctx, conn, r, "")
}

// QueryRows iterates over the rows matching where. An empty where selects all rows.
func (t *Table) QueryRows(ctx context.Context, conn Connection, r SQLRenderer, where string, args ...any) (*RowIterator, error) {
	query := "SELECT * FROM " + t.QuotedName(r)
	if where != "" {
		query += " WHERE " + where
	}
	cursor, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows of %s: %w", t.name, err)
	}
	return NewRowIterator(t, cursor), nil
}

// RowCount counts the rows of the table.
func (t *Table) RowCount(ctx context.Context, conn Connection, r SQLRenderer) (int64, error) {
	cursor, err := conn.Query(ctx, "SELECT COUNT(*) FROM "+t.QuotedName(r))
	if err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", t.name, err)
	}
	defer cursor.Close()

	if !cursor.Next() {
		if err := cursor.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	values, err := cursor.Values()
	if err != nil {
		return 0, err
	}
	return toInt64(values[0])
}

// QueryByPK fetches the row with primary key pk. It fails with ErrNoPrimaryKey
// for tables without a primary key and ErrNotFound if no row matches.
func (t *Table) QueryByPK(ctx context.Context, conn Connection, r SQLRenderer, pk any) (*Row, error) {
	pkColumns, err := t.PKColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(pkColumns) == 0 {
		return nil, fmt.Errorf("%s: %w", t.name, ErrNoPrimaryKey)
	}
	values, err := SplitKey(pk, len(pkColumns))
	if err != nil {
		return nil, err
	}
	it, err := t.QueryRows(ctx, conn, r, r.RenderWhereClause(pkColumns, values))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("row %v of %s: %w", pk, t.name, ErrNotFound)
	}
	return it.Row(), nil
}

// QueryPKValues returns the primary keys of all rows, scalars for single-column keys.
func (t *Table) QueryPKValues(ctx context.Context, conn Connection, r SQLRenderer) ([]any, error) {
	pkColumns, err := t.PKColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(pkColumns) == 0 {
		return nil, fmt.Errorf("%s: %w", t.name, ErrNoPrimaryKey)
	}
	quoted := make([]string, len(pkColumns))
	for i, c := range pkColumns {
		quoted[i] = r.QuoteIdentifier(c)
	}
	cursor, err := conn.Query(ctx, "SELECT "+strings.Join(quoted, ", ")+" FROM "+t.QuotedName(r))
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys of %s: %w", t.name, err)
	}
	defer cursor.Close()

	var result []any
	for cursor.Next() {
		values, err := cursor.Values()
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			result = append(result, values[0])
		} else {
			result = append(result, values)
		}
	}
	return result, cursor.Err()
}

// Query runs an arbitrary statement on conn.
func (t *Table) Query(ctx context.Context, conn Connection, query string, args ...any) (Cursor, error) {
	cursor, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	return cursor, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		var i int64
		if _, err := fmt.Sscan(n, &i); err != nil {
			return 0, fmt.Errorf("failed to parse count %q: %w", n, err)
		}
		return i, nil
	case []byte:
		return toInt64(string(n))
	default:
		return 0, fmt.Errorf("unexpected count type %T: %w", v, ErrInvalidArgument)
	}
}
