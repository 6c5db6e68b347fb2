package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

// MySQLImporter reads metadata of one database from MySQL's information_schema.
type MySQLImporter struct {
	importerBase
	client     *MySQLClient
	schemaName string
}

// NewMySQLImporter creates a new MySQL importer for schemaName
func NewMySQLImporter(client *MySQLClient, schemaName, environment string) *MySQLImporter {
	return &MySQLImporter{
		importerBase: importerBase{environment: environment, dialect: dialect.NewMySQL()},
		client:       client,
		schemaName:   schemaName,
	}
}

// ImportDatabase creates the table shells of the database.
func (e *MySQLImporter) ImportDatabase(ctx context.Context) (*model.Database, error) {
	product, version, err := e.client.Product(ctx)
	if err != nil {
		return nil, err
	}
	e.dialect = dialect.ForProduct(product, version)
	db := e.newDatabase(e.schemaName, product, version, e)
	s := db.CreateCatalog("").CreateSchema(e.schemaName)

	query := `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
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

// ImportColumns reads information_schema.columns. Enum and set columns keep
// their full type, which lists the allowed values.
func (e *MySQLImporter) ImportColumns(ctx context.Context, table *model.Table, receive model.ColumnReceiver) error {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.data_type,
			c.is_nullable,
			c.column_default,
			COALESCE(c.character_maximum_length, c.numeric_precision),
			c.numeric_scale,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col model.ColumnInfo
		var columnType, dataType, nullable string
		var defaultVal sql.NullString
		var size, scale sql.NullInt64

		if err := rows.Scan(&col.Name, &columnType, &dataType, &nullable, &defaultVal, &size, &scale, &col.Comment); err != nil {
			return err
		}

		col.Type = dataType
		if dataType == "enum" || dataType == "set" {
			col.Type = columnType
		}
		col.Nullable = nullable == "YES"
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		if size.Valid {
			n := int(size.Int64)
			col.Size = &n
		}
		if scale.Valid && dataType == "decimal" {
			n := int(scale.Int64)
			col.FractionDigits = &n
		}
		if err := receive(col); err != nil {
			return err
		}
	}

	return rows.Err()
}

// ImportPrimaryKey reads the PRIMARY constraint in key column order.
func (e *MySQLImporter) ImportPrimaryKey(ctx context.Context, table *model.Table, receive model.PKReceiver) error {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return err
		}
		pk = append(pk, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pk) == 0 {
		return nil
	}

	return receive(model.PKInfo{Name: "PRIMARY", Columns: pk})
}

// ImportIndexes reads information_schema.statistics, skipping the primary key.
func (e *MySQLImporter) ImportIndexes(ctx context.Context, table *model.Table, receive model.IndexReceiver) error {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var idx model.IndexInfo
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return err
		}

		idx.Unique = isUnique == 1
		idx.Columns = strings.Split(columnNames, ",")
		idx.DeterministicName = e.deterministic(idx.Name)
		if err := receive(idx); err != nil {
			return err
		}
	}

	return rows.Err()
}

// ImportForeignKeys reads key_column_usage, grouping the columns of each constraint.
func (e *MySQLImporter) ImportForeignKeys(ctx context.Context, table *model.Table, receive model.FKReceiver) error {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_schema,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	var fks []*model.ForeignKeyInfo
	for rows.Next() {
		var name, column, refSchema, refTable, refColumn string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn); err != nil {
			return err
		}
		if len(fks) == 0 || fks[len(fks)-1].Name != name {
			fks = append(fks, &model.ForeignKeyInfo{
				Name:              name,
				DeterministicName: e.deterministic(name),
				RefSchema:         refSchema,
				RefTable:          refTable,
			})
		}
		fk := fks[len(fks)-1]
		fk.Columns = append(fk.Columns, column)
		fk.RefColumns = append(fk.RefColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fk := range fks {
		if err := receive(*fk); err != nil {
			return err
		}
	}
	return nil
}

// ImportReferrers names the tables holding foreign keys into table.
func (e *MySQLImporter) ImportReferrers(ctx context.Context, table *model.Table, receive model.ReferrerReceiver) error {
	query := `
		SELECT DISTINCT kcu.table_schema, kcu.table_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.referenced_table_schema = ?
			AND kcu.referenced_table_name = ?
		ORDER BY kcu.table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name())
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return err
		}
		if err := receive(schemaName, tableName); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ImportChecks reads information_schema.check_constraints.
func (e *MySQLImporter) ImportChecks(ctx context.Context, db *model.Database, receive model.CheckReceiver) error {
	query := `
		SELECT tc.table_name, cc.constraint_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON tc.constraint_schema = cc.constraint_schema
			AND tc.constraint_name = cc.constraint_name
		WHERE cc.constraint_schema = ? AND tc.constraint_type = 'CHECK'
		ORDER BY tc.table_name, cc.constraint_name
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
