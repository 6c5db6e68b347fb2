package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/dbtranscode/internal/model"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	db   *sql.DB
	path string
}

// NewSQLiteClient creates a new SQLite client
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{db: db, path: path}, nil
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}

// Path returns the database file.
func (c *SQLiteClient) Path() string {
	return c.path
}

// Query implements model.Connection.
func (c *SQLiteClient) Query(ctx context.Context, query string, args ...any) (model.Cursor, error) {
	return querySQL(ctx, c.db, query, args...)
}

// Product returns "SQLite" and the library version.
func (c *SQLiteClient) Product(ctx context.Context) (string, string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return "", "", fmt.Errorf("failed to read sqlite version: %w", err)
	}
	return "SQLite", version, nil
}
