package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

// DuckDBImporter reads metadata of one schema from the duckdb_* table functions.
type DuckDBImporter struct {
	importerBase
	client     *DuckDBClient
	schemaName string
}

// NewDuckDBImporter creates a new DuckDB importer for schemaName
func NewDuckDBImporter(client *DuckDBClient, schemaName, environment string) *DuckDBImporter {
	return &DuckDBImporter{
		importerBase: importerBase{environment: environment, dialect: dialect.NewDuckDB()},
		client:       client,
		schemaName:   schemaName,
	}
}

// ImportDatabase creates the table shells of the schema.
func (e *DuckDBImporter) ImportDatabase(ctx context.Context) (*model.Database, error) {
	product, version, err := e.client.Product(ctx)
	if err != nil {
		return nil, err
	}
	var name string
	if err := e.client.GetDB().QueryRowContext(ctx, "SELECT current_database()").Scan(&name); err != nil {
		return nil, fmt.Errorf("failed to read database name: %w", err)
	}
	db := e.newDatabase(name, product, version, e)
	s := db.CreateCatalog(name).CreateSchema(e.schemaName)

	query := `
		SELECT table_name, 'TABLE' FROM duckdb_tables() WHERE schema_name = ? AND database_name = current_database()
		UNION ALL
		SELECT view_name, 'VIEW' FROM duckdb_views() WHERE schema_name = ? AND database_name = current_database() AND NOT internal
		ORDER BY 1
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, e.schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, tableType string
		if err := rows.Scan(&tableName, &tableType); err != nil {
			return nil, err
		}
		s.CreateTable(tableName, model.TableType(tableType))
	}

	return db, rows.Err()
}

// ImportColumns reads duckdb_columns().
func (e *DuckDBImporter) ImportColumns(ctx context.Context, table *model.Table, receive model.ColumnReceiver) error {
	query := `
		SELECT column_name, data_type, is_nullable, column_default,
			COALESCE(character_maximum_length, numeric_precision), numeric_scale, COALESCE(comment, '')
		FROM duckdb_columns()
		WHERE schema_name = ? AND table_name = ? AND database_name = current_database()
		ORDER BY column_index
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col model.ColumnInfo
		var dataType string
		var defaultVal sql.NullString
		var size, scale sql.NullInt64

		if err := rows.Scan(&col.Name, &dataType, &col.Nullable, &defaultVal, &size, &scale, &col.Comment); err != nil {
			return err
		}

		baseType, _, _ := splitTypeSize(dataType)
		col.Type = strings.ToLower(baseType)
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if size.Valid && col.Type != "integer" && col.Type != "bigint" && col.Type != "smallint" {
			n := int(size.Int64)
			col.Size = &n
		}
		if scale.Valid && col.Type == "decimal" {
			n := int(scale.Int64)
			col.FractionDigits = &n
		}
		if err := receive(col); err != nil {
			return err
		}
	}

	return rows.Err()
}

// duckdbConstraint is one row of duckdb_constraints().
type duckdbConstraint struct {
	name       string
	columns    []string
	refTable   string
	refColumns []string
	expression string
}

func (e *DuckDBImporter) constraints(ctx context.Context, tableName, constraintType string) ([]duckdbConstraint, error) {
	query := `
		SELECT constraint_name, constraint_column_names, COALESCE(referenced_table, ''),
			referenced_column_names, COALESCE(expression, '')
		FROM duckdb_constraints()
		WHERE schema_name = ? AND database_name = current_database()
			AND constraint_type = ? AND (? = '' OR table_name = ?)
		ORDER BY constraint_index
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, constraintType, tableName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []duckdbConstraint
	for rows.Next() {
		var c duckdbConstraint
		var columns, refColumns any
		if err := rows.Scan(&c.name, &columns, &c.refTable, &refColumns, &c.expression); err != nil {
			return nil, err
		}
		c.columns = stringList(columns)
		c.refColumns = stringList(refColumns)
		result = append(result, c)
	}
	return result, rows.Err()
}

// ImportPrimaryKey reads the PRIMARY KEY constraint.
func (e *DuckDBImporter) ImportPrimaryKey(ctx context.Context, table *model.Table, receive model.PKReceiver) error {
	pks, err := e.constraints(ctx, table.Name(), "PRIMARY KEY")
	if err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	return receive(model.PKInfo{Name: pks[0].name, DeterministicName: e.deterministic(pks[0].name), Columns: pks[0].columns})
}

// ImportIndexes reports UNIQUE constraints as unique indexes. duckdb_indexes()
// does not list index columns.
func (e *DuckDBImporter) ImportIndexes(ctx context.Context, table *model.Table, receive model.IndexReceiver) error {
	uniques, err := e.constraints(ctx, table.Name(), "UNIQUE")
	if err != nil {
		return err
	}
	for _, u := range uniques {
		idx := model.IndexInfo{Name: u.name, DeterministicName: e.deterministic(u.name), Unique: true, Columns: u.columns}
		if err := receive(idx); err != nil {
			return err
		}
	}
	return nil
}

// ImportForeignKeys reads FOREIGN KEY constraints.
func (e *DuckDBImporter) ImportForeignKeys(ctx context.Context, table *model.Table, receive model.FKReceiver) error {
	fks, err := e.constraints(ctx, table.Name(), "FOREIGN KEY")
	if err != nil {
		return err
	}
	for _, fk := range fks {
		info := model.ForeignKeyInfo{
			Name:              fk.name,
			DeterministicName: e.deterministic(fk.name),
			Columns:           fk.columns,
			RefTable:          fk.refTable,
			RefColumns:        fk.refColumns,
		}
		if err := receive(info); err != nil {
			return err
		}
	}
	return nil
}

// ImportChecks reads CHECK constraints of the schema.
func (e *DuckDBImporter) ImportChecks(ctx context.Context, db *model.Database, receive model.CheckReceiver) error {
	query := `
		SELECT table_name, constraint_name, COALESCE(expression, '')
		FROM duckdb_constraints()
		WHERE schema_name = ? AND database_name = current_database() AND constraint_type = 'CHECK'
		ORDER BY table_name, constraint_index
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		check := model.CheckInfo{Schema: e.schemaName}
		if err := rows.Scan(&check.Table, &check.Name, &check.Condition); err != nil {
			return err
		}
		if err := receive(check); err != nil {
			return err
		}
	}
	return rows.Err()
}
