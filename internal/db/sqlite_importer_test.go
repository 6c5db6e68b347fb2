package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

const geoDDL = `
CREATE TABLE COUNTRY (
	code VARCHAR(2) PRIMARY KEY,
	name VARCHAR(40) NOT NULL UNIQUE,
	area DECIMAL(10,2)
);
CREATE TABLE STATE (
	id INTEGER PRIMARY KEY,
	country VARCHAR(2) NOT NULL REFERENCES COUNTRY(code),
	code VARCHAR(2) NOT NULL,
	UNIQUE (country, code)
);
CREATE TABLE CITY (
	id INTEGER NOT NULL,
	state_id INTEGER,
	name TEXT NOT NULL DEFAULT 'unknown',
	PRIMARY KEY (name, id),
	FOREIGN KEY (state_id) REFERENCES STATE
);
CREATE INDEX city_name_idx ON CITY(name);
CREATE VIEW big_states AS SELECT * FROM STATE;
INSERT INTO COUNTRY (code, name) VALUES ('DE', 'Germany');
INSERT INTO STATE (id, country, code) VALUES (1, 'DE', 'BY');
`

// openGeoDatabase creates a SQLite file with the geo schema.
func openGeoDatabase(t *testing.T) (*SQLiteClient, *model.Database) {
	t.Helper()
	ctx := context.Background()

	client, err := NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "geo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.GetDB().ExecContext(ctx, geoDDL)
	require.NoError(t, err)

	db, err := NewSQLiteImporter(client, "test").ImportDatabase(ctx)
	require.NoError(t, err)
	return client, db
}

func mustTable(t *testing.T, db *model.Database, name string) *model.Table {
	t.Helper()
	table, err := db.Table(name)
	require.NoError(t, err)
	return table
}

func TestSQLiteImportDatabase(t *testing.T) {
	_, db := openGeoDatabase(t)

	assert.Equal(t, "geo", db.Name)
	assert.Equal(t, "test", db.Environment)
	assert.Equal(t, "SQLite", db.ProductName)
	assert.NotEmpty(t, db.ProductVersion)

	var tables []string
	for _, table := range db.Tables() {
		tables = append(tables, table.Name())
		assert.Equal(t, model.Unloaded, table.ColumnsState(), table.Name())
	}
	assert.Equal(t, []string{"CITY", "COUNTRY", "STATE", "big_states"}, tables)
	assert.Equal(t, model.TableTypeView, mustTable(t, db, "big_states").Type())
	assert.Equal(t, "main.COUNTRY", mustTable(t, db, "country").QualifiedName())
}

func TestSQLiteImportColumns(t *testing.T) {
	ctx := context.Background()
	_, db := openGeoDatabase(t)

	tests := []struct {
		table    string
		column   string
		typ      string
		size     *int
		fraction *int
		nullable bool
	}{
		{table: "COUNTRY", column: "code", typ: "varchar", size: intPtr(2)},
		{table: "COUNTRY", column: "name", typ: "varchar", size: intPtr(40)},
		{table: "COUNTRY", column: "area", typ: "decimal", size: intPtr(10), fraction: intPtr(2), nullable: true},
		{table: "CITY", column: "state_id", typ: "integer", nullable: true},
	}

	for _, tt := range tests {
		t.Run(tt.table+"."+tt.column, func(t *testing.T) {
			c, err := mustTable(t, db, tt.table).Column(ctx, tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, c.Type)
			assert.Equal(t, tt.size, c.Size)
			assert.Equal(t, tt.fraction, c.FractionDigits)
			assert.Equal(t, tt.nullable, c.Nullable)
		})
	}

	name, err := mustTable(t, db, "CITY").Column(ctx, "name")
	require.NoError(t, err)
	require.NotNil(t, name.Default)
	assert.Equal(t, "'unknown'", *name.Default)
}

func TestSQLiteImportKeys(t *testing.T) {
	ctx := context.Background()
	_, db := openGeoDatabase(t)

	pk, err := mustTable(t, db, "CITY").PKColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, pk)

	country := mustTable(t, db, "COUNTRY")
	uk, err := country.UniqueConstraintByColumns(ctx, "name")
	require.NoError(t, err)
	assert.False(t, uk.DeterministicName)

	state := mustTable(t, db, "STATE")
	_, err = state.UniqueConstraintByColumns(ctx, "country", "code")
	require.NoError(t, err)

	idx, err := mustTable(t, db, "CITY").Index(ctx, "city_name_idx")
	require.NoError(t, err)
	assert.False(t, idx.IsUnique())
	assert.True(t, idx.DeterministicName)
}

func TestSQLiteImportForeignKeys(t *testing.T) {
	ctx := context.Background()
	_, db := openGeoDatabase(t)

	fk, err := mustTable(t, db, "STATE").ForeignKeyByColumns(ctx, "country")
	require.NoError(t, err)
	assert.Equal(t, "COUNTRY", fk.Referee().Name())
	assert.Equal(t, []string{"code"}, fk.RefereeColumnNames())

	// no target columns: the primary key of STATE
	fk, err = mustTable(t, db, "CITY").ForeignKeyByColumns(ctx, "state_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, fk.RefereeColumnNames())

	referrers, err := mustTable(t, db, "COUNTRY").Referrers(ctx)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Equal(t, "STATE", referrers[0].Name())

	path, err := model.ParseForeignKeyPathStrict(ctx, "CITY(state_id) -> STATE(country) -> COUNTRY(code)", db)
	require.NoError(t, err)
	assert.Equal(t, "CITY, STATE, COUNTRY", path.TablePath())
}

func TestSQLiteConnection(t *testing.T) {
	ctx := context.Background()
	client, db := openGeoDatabase(t)

	row, err := mustTable(t, db, "STATE").QueryByPK(ctx, client, dialect.NewSQLite(), int64(1))
	require.NoError(t, err)
	assert.Equal(t, "STATE[id=1, country=DE, code=BY]", row.String())

	count, err := mustTable(t, db, "COUNTRY").RowCount(ctx, client, dialect.NewSQLite())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = mustTable(t, db, "STATE").QueryByPK(ctx, client, dialect.NewSQLite(), int64(2))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSplitTypeSize(t *testing.T) {
	tests := []struct {
		in       string
		typ      string
		size     *int
		fraction *int
	}{
		{in: "integer", typ: "integer"},
		{in: "varchar(40)", typ: "varchar", size: intPtr(40)},
		{in: "decimal(10, 2)", typ: "decimal", size: intPtr(10), fraction: intPtr(2)},
		{in: "enum('a','b')", typ: "enum('a','b')"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ, size, fraction := splitTypeSize(tt.in)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.fraction, fraction)
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", []byte("b")}))
	assert.Equal(t, []string{"a", "b"}, stringList("a,b"))
	assert.Nil(t, stringList(nil))
	assert.Nil(t, stringList(""))
}

func intPtr(i int) *int { return &i }
