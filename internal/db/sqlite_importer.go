package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

// SQLiteImporter reads metadata from SQLite pragmas.
type SQLiteImporter struct {
	importerBase
	client *SQLiteClient
}

// NewSQLiteImporter creates a new SQLite importer
func NewSQLiteImporter(client *SQLiteClient, environment string) *SQLiteImporter {
	return &SQLiteImporter{
		importerBase: importerBase{environment: environment, dialect: dialect.NewSQLite()},
		client:       client,
	}
}

func (e *SQLiteImporter) pragma(name, table string) string {
	return fmt.Sprintf("PRAGMA %s(%s)", name, e.dialect.QuoteIdentifier(table))
}

// ImportDatabase creates the table shells of the main schema.
func (e *SQLiteImporter) ImportDatabase(ctx context.Context) (*model.Database, error) {
	product, version, err := e.client.Product(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(e.client.Path()), filepath.Ext(e.client.Path()))
	db := e.newDatabase(name, product, version, e)
	s := db.CreateCatalog("").CreateSchema("main")

	query := `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
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
		if tableType == "view" {
			t = model.TableTypeView
		}
		s.CreateTable(tableName, t)
	}

	return db, rows.Err()
}

// ImportColumns reads PRAGMA table_info.
func (e *SQLiteImporter) ImportColumns(ctx context.Context, table *model.Table, receive model.ColumnReceiver) error {
	rows, err := e.client.GetDB().QueryContext(ctx, e.pragma("table_info", table.Name()))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}

		baseType, size, fraction := splitTypeSize(colType)
		col := model.ColumnInfo{
			Name:           name,
			Type:           strings.ToLower(baseType),
			Size:           size,
			FractionDigits: fraction,
			Nullable:       notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		if err := receive(col); err != nil {
			return err
		}
	}

	return rows.Err()
}

// ImportPrimaryKey reads the key columns from PRAGMA table_info in key order.
func (e *SQLiteImporter) ImportPrimaryKey(ctx context.Context, table *model.Table, receive model.PKReceiver) error {
	rows, err := e.client.GetDB().QueryContext(ctx, e.pragma("table_info", table.Name()))
	if err != nil {
		return err
	}
	defer rows.Close()

	type keyColumn struct {
		name  string
		order int
	}
	var pk []keyColumn

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pkOrder int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pkOrder); err != nil {
			return err
		}

		if pkOrder > 0 {
			pk = append(pk, keyColumn{name: name, order: pkOrder})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(pk) == 0 {
		return nil
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].order < pk[j].order })
	columns := make([]string, len(pk))
	for i, c := range pk {
		columns[i] = c.name
	}
	// SQLite does not keep primary key names
	return receive(model.PKInfo{Name: "pk_" + table.Name(), Columns: columns})
}

// ImportIndexes reads PRAGMA index_list, skipping the primary key index.
func (e *SQLiteImporter) ImportIndexes(ctx context.Context, table *model.Table, receive model.IndexReceiver) error {
	rows, err := e.client.GetDB().QueryContext(ctx, e.pragma("index_list", table.Name()))
	if err != nil {
		return err
	}

	var indexes []model.IndexInfo
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return err
		}
		if origin == "pk" {
			continue
		}
		indexes = append(indexes, model.IndexInfo{
			Name:              name,
			DeterministicName: e.deterministic(name),
			Unique:            unique == 1,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// index_list is closed before index_info runs, so one connection suffices
	for _, idx := range indexes {
		columns, err := e.indexColumns(ctx, idx.Name)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			continue
		}
		idx.Columns = columns
		if err := receive(idx); err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLiteImporter) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, e.pragma("index_info", index))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

// ImportForeignKeys reads PRAGMA foreign_key_list. A foreign key without
// target columns references the primary key.
func (e *SQLiteImporter) ImportForeignKeys(ctx context.Context, table *model.Table, receive model.FKReceiver) error {
	rows, err := e.client.GetDB().QueryContext(ctx, e.pragma("foreign_key_list", table.Name()))
	if err != nil {
		return err
	}
	defer rows.Close()

	var fks []*model.ForeignKeyInfo
	byID := map[int]*model.ForeignKeyInfo{}
	toPK := map[int]bool{}

	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return err
		}

		fk, ok := byID[id]
		if !ok {
			fk = &model.ForeignKeyInfo{Name: fmt.Sprintf("fk_%s_%d", table.Name(), id), RefTable: targetTable}
			byID[id] = fk
			fks = append(fks, fk)
		}
		fk.Columns = append(fk.Columns, fromCol)
		if toCol.Valid {
			fk.RefColumns = append(fk.RefColumns, toCol.String)
		} else {
			toPK[id] = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, fk := range byID {
		if toPK[id] {
			fk.RefColumns = nil
		}
	}
	// foreign_key_list reports the newest constraint first
	for i := len(fks) - 1; i >= 0; i-- {
		if err := receive(*fks[i]); err != nil {
			return err
		}
	}
	return nil
}

// ImportChecks does nothing: SQLite keeps check constraints only in the table DDL.
func (e *SQLiteImporter) ImportChecks(ctx context.Context, db *model.Database, receive model.CheckReceiver) error {
	return nil
}
