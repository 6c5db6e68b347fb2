package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tordrt/dbtranscode/internal/model"
)

// DuckDBClient manages the connection to DuckDB
type DuckDBClient struct {
	db *sql.DB
}

// NewDuckDBClient opens the DuckDB database at path. An empty path opens an
// in-memory database.
func NewDuckDBClient(ctx context.Context, path string) (*DuckDBClient, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DuckDBClient{db: db}, nil
}

// Close closes the database connection
func (c *DuckDBClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *DuckDBClient) GetDB() *sql.DB {
	return c.db
}

// Query implements model.Connection.
func (c *DuckDBClient) Query(ctx context.Context, query string, args ...any) (model.Cursor, error) {
	return querySQL(ctx, c.db, query, args...)
}

// Product returns "DuckDB" and the library version without its "v" prefix.
func (c *DuckDBClient) Product(ctx context.Context) (string, string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", "", fmt.Errorf("failed to read duckdb version: %w", err)
	}
	return "DuckDB", strings.TrimPrefix(version, "v"), nil
}
