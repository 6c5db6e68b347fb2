package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/dbtranscode/internal/model"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// Query implements model.Connection.
func (c *PostgresClient) Query(ctx context.Context, query string, args ...any) (model.Cursor, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return newPgxCursor(rows), nil
}

// Product returns the product name and server version.
func (c *PostgresClient) Product(ctx context.Context) (string, string, error) {
	var version string
	if err := c.conn.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", "", fmt.Errorf("failed to read server version: %w", err)
	}
	return "PostgreSQL", version, nil
}
