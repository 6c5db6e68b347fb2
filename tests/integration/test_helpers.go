//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/dbtranscode"
	"github.com/tordrt/dbtranscode/internal/identity"
	"github.com/tordrt/dbtranscode/internal/schema"
)

// usersIdentity identifies users by username and orders by nothing: orders
// are transcoded, never looked up.
const usersIdentity = `
identities:
  - table: users
    type: unique-key
    nk: [username]
  - table: orders
    type: none
`

// openEndpoint opens url without a metadata cache.
func openEndpoint(t *testing.T, id, url string, opts *dbtranscode.Options) *dbtranscode.Endpoint {
	t.Helper()
	if opts == nil {
		opts = &dbtranscode.Options{}
	}
	opts.NoCache = true
	e, err := dbtranscode.Open(context.Background(), id, url, opts)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", id, err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// snapshotOf imports the whole graph of e.
func snapshotOf(t *testing.T, e *dbtranscode.Endpoint) *schema.Snapshot {
	t.Helper()
	s, err := e.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Failed to import metadata: %v", err)
	}
	return s
}

// verifyShopSchema checks the users/products/orders/order_items test schema.
func verifyShopSchema(t *testing.T, s *schema.Snapshot) {
	t.Helper()

	verifyTablesExist(t, s, []string{"users", "products", "orders", "order_items"})

	table := findTable(s, "users")
	if table == nil {
		t.Fatal("Users table not found")
	}
	verifyPrimaryKey(t, table, []string{"id"})
	verifyColumns(t, table, []string{"id", "username", "email", "status", "created_at"})
	verifyUniqueConstraint(t, s, "users", "username")
	verifyForeignKey(t, s, "orders", "user_id", "users")
}

// verifySelfMapping maps a database onto itself or a copy and transcodes every
// order: each user must map to its own key and orders must come out unchanged.
func verifySelfMapping(t *testing.T, sourceURL, targetURL string, opts *dbtranscode.Options) {
	t.Helper()
	ctx := context.Background()

	source := openEndpoint(t, "source", sourceURL, opts)
	target := openEndpoint(t, "target", targetURL, opts)

	cfg, err := identity.ParseConfig([]byte(usersIdentity))
	if err != nil {
		t.Fatalf("Failed to parse identities: %v", err)
	}
	provider, err := cfg.Provider(nil)
	if err != nil {
		t.Fatalf("Failed to build identities: %v", err)
	}
	mapper, err := dbtranscode.BuildKeyMapper(ctx, source, target, provider)
	if err != nil {
		t.Fatalf("Failed to build key map: %v", err)
	}
	if n := provider.ErrorHandler().Count(); n != 0 {
		t.Errorf("Expected no key mapping errors, got %v", provider.ErrorHandler().Messages())
	}

	orders, err := source.Table("orders")
	if err != nil {
		t.Fatalf("Orders table not found: %v", err)
	}
	pks, err := orders.QueryPKValues(ctx, source.Conn, source.Dialect)
	if err != nil {
		t.Fatalf("Failed to query orders: %v", err)
	}
	for _, pk := range pks {
		original, err := orders.QueryByPK(ctx, source.Conn, source.Dialect, pk)
		if err != nil {
			t.Fatalf("Failed to read order %v: %v", pk, err)
		}
		row, err := dbtranscode.TranscodeRow(ctx, source, mapper, provider, "orders", pk, pk)
		if err != nil {
			t.Fatalf("Failed to transcode order %v: %v", pk, err)
		}
		if row.String() != original.String() {
			t.Errorf("Expected %s, got %s", original, row)
		}
	}
}

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Snapshot, expectedTables []string) {
	t.Helper()

	tables := s.Tables()
	if len(tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(tables))
	}

	tableMap := make(map[string]bool)
	for _, table := range tables {
		tableMap[table.Name] = true
	}

	for _, tableName := range expectedTables {
		if !tableMap[tableName] {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, col := range table.Columns {
		columnMap[col.Name] = true
	}

	for _, colName := range expectedColumns {
		if !columnMap[colName] {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	if table.PrimaryKey == nil {
		t.Errorf("Expected primary key %v, got none", expectedPK)
		return
	}
	got := table.PrimaryKey.Columns
	if len(got) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, got)
		return
	}

	for i, pk := range expectedPK {
		if got[i] != pk {
			t.Errorf("Expected primary key %v, got %v", expectedPK, got)
			return
		}
	}
}

// verifyUniqueConstraint checks that a column has a single-column unique constraint
func verifyUniqueConstraint(t *testing.T, s *schema.Snapshot, tableName, columnName string) {
	t.Helper()

	table := findTable(s, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
		return
	}

	for _, uk := range table.Uniques {
		if len(uk.Columns) == 1 && uk.Columns[0] == columnName {
			return
		}
	}

	t.Errorf("Expected %s column to have unique constraint", columnName)
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, s *schema.Snapshot, tableName, sourceColumn, targetTable string) {
	t.Helper()

	table := findTable(s, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
		return
	}

	for _, fk := range table.ForeignKeys {
		if fk.TargetTable == targetTable && len(fk.Columns) == 1 && fk.Columns[0] == sourceColumn {
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, s *schema.Snapshot, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := findTable(s, tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
		return
	}

	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			if len(idx.Columns) != len(expectedColumns) {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
			for i, col := range expectedColumns {
				if idx.Columns[i] != col {
					t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
					return
				}
			}
			return
		}
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// findTable is a helper function to find a table by name in the schema
func findTable(s *schema.Snapshot, tableName string) *schema.Table {
	tables := s.Tables()
	for i := range tables {
		if tables[i].Name == tableName {
			return &tables[i]
		}
	}
	return nil
}

// verifyReferrers checks the tables referencing tableName in the lazy graph.
func verifyReferrers(t *testing.T, e *dbtranscode.Endpoint, tableName string, expected ...string) {
	t.Helper()

	table, err := e.Table(tableName)
	if err != nil {
		t.Fatalf("Table %s not found: %v", tableName, err)
	}
	referrers, err := table.Referrers(context.Background())
	if err != nil {
		t.Fatalf("Failed to import referrers of %s: %v", tableName, err)
	}
	got := make(map[string]bool)
	for _, r := range referrers {
		got[r.Name()] = true
	}
	for _, name := range expected {
		if !got[name] {
			t.Errorf("Expected %s to be referenced by %s", tableName, name)
		}
	}
}
