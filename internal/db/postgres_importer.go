package db

import (
	"context"
	"fmt"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

// PostgresImporter reads metadata of one schema from the PostgreSQL catalogs.
type PostgresImporter struct {
	importerBase
	client *PostgresClient
	schema string
}

// NewPostgresImporter creates a new PostgreSQL importer for schemaName
func NewPostgresImporter(client *PostgresClient, schemaName, environment string) *PostgresImporter {
	return &PostgresImporter{
		importerBase: importerBase{environment: environment, dialect: dialect.NewPostgres()},
		client:       client,
		schema:       schemaName,
	}
}

// ImportDatabase creates the table shells of the schema.
func (e *PostgresImporter) ImportDatabase(ctx context.Context) (*model.Database, error) {
	product, version, err := e.client.Product(ctx)
	if err != nil {
		return nil, err
	}
	var name string
	if err := e.client.GetConnection().QueryRow(ctx, "SELECT current_database()").Scan(&name); err != nil {
		return nil, fmt.Errorf("failed to read database name: %w", err)
	}
	db := e.newDatabase(name, product, version, e)
	s := db.CreateCatalog(name).CreateSchema(e.schema)

	query := `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, tableType string
		if err := rows.Scan(&tableName, &tableType); err != nil {
			return nil, err
		}
		t := model.TableTypeTable
		if tableType == "VIEW" {
			t = model.TableTypeView
		}
		s.CreateTable(tableName, t)
	}

	return db, rows.Err()
}

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		return varcharType
	case "character":
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

// ImportColumns reads information_schema.columns.
func (e *PostgresImporter) ImportColumns(ctx context.Context, table *model.Table, receive model.ColumnReceiver) error {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			COALESCE(c.character_maximum_length, c.numeric_precision),
			c.numeric_scale,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var columns []model.ColumnInfo
	for rows.Next() {
		var col model.ColumnInfo
		var dataType, udtName, nullable string
		var size, scale *int32

		if err := rows.Scan(&col.Name, &dataType, &udtName, &nullable, &col.Default, &size, &scale, &col.Comment); err != nil {
			return err
		}

		col.Type = normalizePostgresType(dataType, udtName)
		col.Nullable = nullable == "YES"
		if size != nil {
			n := int(*size)
			col.Size = &n
		}
		if scale != nil && dataType == "numeric" {
			n := int(*scale)
			col.FractionDigits = &n
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range columns {
		if err := receive(col); err != nil {
			return err
		}
	}
	return nil
}

// ImportPrimaryKey reads the primary key constraint in key column order.
func (e *PostgresImporter) ImportPrimaryKey(ctx context.Context, table *model.Table, receive model.PKReceiver) error {
	query := `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk model.PKInfo
	for rows.Next() {
		var colName string
		if err := rows.Scan(&pk.Name, &colName); err != nil {
			return err
		}
		pk.Columns = append(pk.Columns, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pk.Columns) == 0 {
		return nil
	}

	pk.DeterministicName = e.deterministic(pk.Name)
	return receive(pk)
}

// ImportIndexes reads pg_index, skipping the primary key index.
func (e *PostgresImporter) ImportIndexes(ctx context.Context, table *model.Table, receive model.IndexReceiver) error {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var indexes []model.IndexInfo
	for rows.Next() {
		var idx model.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Columns); err != nil {
			return err
		}
		idx.DeterministicName = e.deterministic(idx.Name)
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, idx := range indexes {
		if err := receive(idx); err != nil {
			return err
		}
	}
	return nil
}

const postgresForeignKeys = `
	SELECT
		c.conname,
		n.nspname,
		t.relname,
		nr.nspname,
		r.relname,
		ARRAY(SELECT a.attname FROM unnest(c.conkey) WITH ORDINALITY k(num, pos)
			JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = k.num ORDER BY k.pos),
		ARRAY(SELECT a.attname FROM unnest(c.confkey) WITH ORDINALITY k(num, pos)
			JOIN pg_attribute a ON a.attrelid = c.confrelid AND a.attnum = k.num ORDER BY k.pos)
	FROM pg_constraint c
	JOIN pg_class t ON t.oid = c.conrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_class r ON r.oid = c.confrelid
	JOIN pg_namespace nr ON nr.oid = r.relnamespace
	WHERE c.contype = 'f'
`

// ImportForeignKeys reads pg_constraint, keeping multi-column keys together.
func (e *PostgresImporter) ImportForeignKeys(ctx context.Context, table *model.Table, receive model.FKReceiver) error {
	query := postgresForeignKeys + ` AND n.nspname = $1 AND t.relname = $2 ORDER BY c.conname`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var fks []model.ForeignKeyInfo
	for rows.Next() {
		var fk model.ForeignKeyInfo
		var ownerSchema, ownerTable string
		if err := rows.Scan(&fk.Name, &ownerSchema, &ownerTable, &fk.RefSchema, &fk.RefTable, &fk.Columns, &fk.RefColumns); err != nil {
			return err
		}
		fk.DeterministicName = e.deterministic(fk.Name)
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fk := range fks {
		if err := receive(fk); err != nil {
			return err
		}
	}
	return nil
}

// ImportReferrers names the tables holding foreign keys into table.
func (e *PostgresImporter) ImportReferrers(ctx context.Context, table *model.Table, receive model.ReferrerReceiver) error {
	query := postgresForeignKeys + ` AND nr.nspname = $1 AND r.relname = $2 ORDER BY t.relname`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	type referrer struct{ schema, table string }
	var referrers []referrer
	for rows.Next() {
		var name, ownerSchema, ownerTable, refSchema, refTable string
		var columns, refColumns []string
		if err := rows.Scan(&name, &ownerSchema, &ownerTable, &refSchema, &refTable, &columns, &refColumns); err != nil {
			return err
		}
		referrers = append(referrers, referrer{ownerSchema, ownerTable})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range referrers {
		if err := receive(r.schema, r.table); err != nil {
			return err
		}
	}
	return nil
}

// ImportChecks reads the check constraints of the schema.
func (e *PostgresImporter) ImportChecks(ctx context.Context, db *model.Database, receive model.CheckReceiver) error {
	query := `
		SELECT t.relname, c.conname, pg_get_constraintdef(c.oid)
		FROM pg_constraint c
		JOIN pg_class t ON t.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE c.contype = 'c' AND n.nspname = $1
		ORDER BY t.relname, c.conname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	var checks []model.CheckInfo
	for rows.Next() {
		check := model.CheckInfo{Schema: e.schema}
		if err := rows.Scan(&check.Table, &check.Name, &check.Condition); err != nil {
			return err
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, check := range checks {
		if err := receive(check); err != nil {
			return err
		}
	}
	return nil
}
