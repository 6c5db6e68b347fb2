package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/dbtranscode/internal/model"
)

// querySQL runs query on a database/sql pool and wraps the result as a cursor.
func querySQL(ctx context.Context, db *sql.DB, query string, args ...any) (model.Cursor, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	return &sqlCursor{rows: rows, columns: columns}, nil
}

// sqlCursor adapts *sql.Rows. Drivers that report text as []byte (MySQL)
// yield strings instead, so keys compare equal across drivers.
type sqlCursor struct {
	rows    *sql.Rows
	columns []string
}

func (c *sqlCursor) Columns() []string { return c.columns }

func (c *sqlCursor) Next() bool { return c.rows.Next() }

func (c *sqlCursor) Values() ([]any, error) {
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

func (c *sqlCursor) Err() error { return c.rows.Err() }

func (c *sqlCursor) Close() error { return c.rows.Close() }

// pgxCursor adapts pgx.Rows.
type pgxCursor struct {
	rows    pgx.Rows
	columns []string
}

func newPgxCursor(rows pgx.Rows) *pgxCursor {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return &pgxCursor{rows: rows, columns: columns}
}

func (c *pgxCursor) Columns() []string { return c.columns }

func (c *pgxCursor) Next() bool { return c.rows.Next() }

func (c *pgxCursor) Values() ([]any, error) {
	values, err := c.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return values, nil
}

func (c *pgxCursor) Err() error { return c.rows.Err() }

func (c *pgxCursor) Close() error {
	c.rows.Close()
	return nil
}
