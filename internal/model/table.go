package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
)

// TableType distinguishes base tables from views.
type TableType string

const (
	TableTypeTable TableType = "TABLE"
	TableTypeView  TableType = "VIEW"
)

// Table is a lazily populated table. Columns, the primary key, indexes with
// unique constraints, and foreign keys are separate component groups, each
// imported on first access through the database's Importer. Check constraints
// are imported for the whole database at once.
//
// A Table is not safe for concurrent use.
type Table struct {
	Doc string

	name      string
	tableType TableType
	schema    *Schema

	columns  *names.OrderedMap[*Column]
	colGroup loadGroup

	pk      *UniqueConstraint
	pkGroup loadGroup

	uniques  []*UniqueConstraint
	indexes  *names.OrderedMap[*Index]
	idxGroup loadGroup

	fks     []*ForeignKey
	fkGroup loadGroup

	checkConstraints []*CheckConstraint
}

// NewTable creates a detached table of type TABLE.
func NewTable(name string) *Table {
	t := &Table{name: name, tableType: TableTypeTable}
	t.colGroup = loadGroup{
		alloc: func() {
			if t.columns == nil {
				t.columns = names.NewOrderedMap[*Column]()
			}
		},
		reset: func() { t.columns = nil },
	}
	t.pkGroup = loadGroup{
		alloc: func() {},
		reset: func() { t.pk = nil },
	}
	t.idxGroup = loadGroup{
		alloc: func() {
			if t.indexes == nil {
				t.indexes = names.NewOrderedMap[*Index]()
			}
		},
		reset: func() {
			t.uniques = nil
			t.indexes = nil
		},
	}
	t.fkGroup = loadGroup{
		alloc: func() {},
		reset: func() { t.fks = nil },
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Type returns the table type.
func (t *Table) Type() TableType { return t.tableType }

// Schema returns the owning schema, or nil for ad-hoc tables.
func (t *Table) Schema() *Schema { return t.schema }

// Catalog returns the owning catalog, or nil.
func (t *Table) Catalog() *Catalog {
	if t.schema == nil {
		return nil
	}
	return t.schema.catalog
}

// Database returns the owning database, or nil.
func (t *Table) Database() *Database {
	if t.schema == nil {
		return nil
	}
	return t.schema.Database()
}

// QualifiedName returns "schema.table", or the bare name for ad-hoc tables.
func (t *Table) QualifiedName() string {
	if t.schema == nil || t.schema.name == "" {
		return t.name
	}
	return t.schema.name + "." + t.name
}

// Equal reports whether t and other denote the same table: equal names
// (ignoring case) in equal schemas.
func (t *Table) Equal(other *Table) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return names.Equal(t.name, other.name) && sameSchema(t.schema, other.schema)
}

func (t *Table) String() string { return t.name }

// ObjectType returns "table".
func (t *Table) ObjectType() string { return "table" }

func (t *Table) importer() Importer {
	if db := t.Database(); db != nil {
		return db.importer
	}
	return nil
}

// columns ---------------------------------------------------------------------------------------

// ColumnsState reports the import state of the column group.
func (t *Table) ColumnsState() LoadState { return t.colGroup.state }

// SetColumnsImported marks the columns as imported or forces a re-import.
func (t *Table) SetColumnsImported(imported bool) { t.colGroup.set(imported) }

func (t *Table) ensureColumns(ctx context.Context) error {
	return t.colGroup.ensure(func() error {
		imp := t.importer()
		if imp == nil {
			return nil
		}
		err := imp.ImportColumns(ctx, t, func(info ColumnInfo) error {
			t.ReceiveColumn(newColumnFromInfo(info))
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to import columns of %s: %w", t.name, err)
		}
		return nil
	})
}

// ReceiveColumn stores c without triggering an import. Importers and the cache
// loader use it; everybody else calls AddColumn.
func (t *Table) ReceiveColumn(c *Column) {
	t.colGroup.alloc()
	c.table = t
	t.columns.Put(c.Name, c)
}

// Columns returns the columns in declaration order.
func (t *Table) Columns(ctx context.Context) ([]*Column, error) {
	if err := t.ensureColumns(ctx); err != nil {
		return nil, err
	}
	return t.columns.Values(), nil
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames(ctx context.Context) ([]string, error) {
	if err := t.ensureColumns(ctx); err != nil {
		return nil, err
	}
	return t.columns.Names(), nil
}

// Column looks up a column by name.
func (t *Table) Column(ctx context.Context, name string) (*Column, error) {
	if err := t.ensureColumns(ctx); err != nil {
		return nil, err
	}
	c, ok := t.columns.Get(name)
	if !ok {
		return nil, fmt.Errorf("column %s in table %s: %w", name, t.name, ErrNotFound)
	}
	return c, nil
}

// ColumnsByName resolves each name in order.
func (t *Table) ColumnsByName(ctx context.Context, columnNames []string) ([]*Column, error) {
	result := make([]*Column, 0, len(columnNames))
	for _, name := range columnNames {
		c, err := t.Column(ctx, name)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// AddColumn imports existing columns and appends c.
func (t *Table) AddColumn(ctx context.Context, c *Column) error {
	if c == nil {
		return fmt.Errorf("column is nil: %w", ErrInvalidArgument)
	}
	if err := t.ensureColumns(ctx); err != nil {
		return err
	}
	t.ReceiveColumn(c)
	return nil
}

func (t *Table) checkColumnNames(ctx context.Context, columnNames []string) error {
	if len(columnNames) == 0 {
		return fmt.Errorf("empty column list for table %s: %w", t.name, ErrInvalidArgument)
	}
	_, err := t.ColumnsByName(ctx, columnNames)
	return err
}

// primary key -----------------------------------------------------------------------------------

// PKState reports the import state of the primary key.
func (t *Table) PKState() LoadState { return t.pkGroup.state }

// SetPKImported marks the primary key as imported or forces a re-import.
func (t *Table) SetPKImported(imported bool) { t.pkGroup.set(imported) }

func (t *Table) ensurePK(ctx context.Context) error {
	if t.pkGroup.state != Unloaded {
		return nil
	}
	if err := t.ensureColumns(ctx); err != nil {
		return err
	}
	return t.pkGroup.ensure(func() error {
		imp := t.importer()
		if imp == nil {
			return nil
		}
		err := imp.ImportPrimaryKey(ctx, t, func(info PKInfo) error {
			if err := t.checkColumnNames(ctx, info.Columns); err != nil {
				return err
			}
			pk, err := NewUniqueConstraint(t, info.Name, info.DeterministicName, info.Columns...)
			if err != nil {
				return err
			}
			pk.primary = true
			t.pk = pk
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to import primary key of %s: %w", t.name, err)
		}
		return nil
	})
}

// PrimaryKey returns the primary key constraint, or nil if the table has none.
func (t *Table) PrimaryKey(ctx context.Context) (*UniqueConstraint, error) {
	if err := t.ensurePK(ctx); err != nil {
		return nil, err
	}
	return t.pk, nil
}

// SetPrimaryKey replaces the primary key. pk may be nil to drop it.
func (t *Table) SetPrimaryKey(ctx context.Context, pk *UniqueConstraint) error {
	if err := t.ensurePK(ctx); err != nil {
		return err
	}
	if pk != nil {
		if err := t.checkColumnNames(ctx, pk.columns); err != nil {
			return err
		}
		pk.primary = true
		pk.table = t
	}
	t.pk = pk
	return nil
}

// PKColumnNames returns the primary key columns in declaration order, or an
// empty slice.
func (t *Table) PKColumnNames(ctx context.Context) ([]string, error) {
	pk, err := t.PrimaryKey(ctx)
	if err != nil {
		return nil, err
	}
	if pk == nil {
		return []string{}, nil
	}
	return pk.ColumnNames(), nil
}

// unique constraints and indexes ----------------------------------------------------------------

// IndexesState reports the import state of indexes and unique constraints.
func (t *Table) IndexesState() LoadState { return t.idxGroup.state }

// SetIndexesImported marks indexes as imported or forces a re-import.
func (t *Table) SetIndexesImported(imported bool) { t.idxGroup.set(imported) }

func (t *Table) ensureIndexes(ctx context.Context) error {
	if t.idxGroup.state != Unloaded {
		return nil
	}
	if err := t.ensureColumns(ctx); err != nil {
		return err
	}
	if err := t.ensurePK(ctx); err != nil {
		return err
	}
	return t.idxGroup.ensure(func() error {
		imp := t.importer()
		if imp == nil {
			return nil
		}
		err := imp.ImportIndexes(ctx, t, func(info IndexInfo) error {
			return t.receiveIndex(ctx, info)
		})
		if err != nil {
			return fmt.Errorf("failed to import indexes of %s: %w", t.name, err)
		}
		return nil
	})
}

func (t *Table) receiveIndex(ctx context.Context, info IndexInfo) error {
	if err := t.checkColumnNames(ctx, info.Columns); err != nil {
		return err
	}
	if !info.Unique {
		idx, err := NewIndex(info.Name, info.DeterministicName, t, info.Columns...)
		if err != nil {
			return err
		}
		t.indexes.Put(idx.Name, idx)
		return nil
	}
	constraint := t.uniqueByColumns(info.Columns, true)
	if constraint == nil {
		uk, err := NewUniqueConstraint(t, info.Name, info.DeterministicName, info.Columns...)
		if err != nil {
			return err
		}
		t.uniques = append(t.uniques, uk)
		constraint = uk
	}
	idx, err := NewUniqueIndex(info.Name, info.DeterministicName, constraint)
	if err != nil {
		return err
	}
	t.indexes.Put(idx.Name, idx)
	return nil
}

// ReceiveUniqueConstraint stores uk without triggering an import.
func (t *Table) ReceiveUniqueConstraint(uk *UniqueConstraint) {
	t.idxGroup.alloc()
	uk.table = t
	for i, existing := range t.uniques {
		if names.Equal(existing.Name, uk.Name) {
			t.uniques[i] = uk
			return
		}
	}
	t.uniques = append(t.uniques, uk)
}

// ReceiveIndex stores idx without triggering an import.
func (t *Table) ReceiveIndex(idx *Index) {
	t.idxGroup.alloc()
	idx.table = t
	t.indexes.Put(idx.Name, idx)
}

func (t *Table) uniqueByColumns(columnNames []string, includePK bool) *UniqueConstraint {
	if includePK && t.pk != nil && names.EqualSlices(columnNames, t.pk.columns) {
		return t.pk
	}
	for _, uk := range t.uniques {
		if names.EqualSlices(columnNames, uk.columns) {
			return uk
		}
	}
	return nil
}

// UniqueConstraints returns the unique constraints, optionally with the primary key first.
func (t *Table) UniqueConstraints(ctx context.Context, includePK bool) ([]*UniqueConstraint, error) {
	if err := t.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	result := make([]*UniqueConstraint, 0, len(t.uniques)+1)
	if includePK && t.pk != nil {
		result = append(result, t.pk)
	}
	return append(result, t.uniques...), nil
}

// UniqueConstraintByColumns finds the unique constraint or primary key over exactly these columns.
func (t *Table) UniqueConstraintByColumns(ctx context.Context, columnNames ...string) (*UniqueConstraint, error) {
	if err := t.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	if uk := t.uniqueByColumns(columnNames, true); uk != nil {
		return uk, nil
	}
	return nil, fmt.Errorf("unique constraint on %s(%s): %w", t.name, strings.Join(columnNames, ", "), ErrNotFound)
}

// UniqueConstraintByName finds a unique constraint or the primary key by name.
func (t *Table) UniqueConstraintByName(ctx context.Context, name string) (*UniqueConstraint, error) {
	if err := t.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	if t.pk != nil && names.Equal(t.pk.Name, name) {
		return t.pk, nil
	}
	for _, uk := range t.uniques {
		if names.Equal(uk.Name, name) {
			return uk, nil
		}
	}
	return nil, fmt.Errorf("unique constraint %s in table %s: %w", name, t.name, ErrNotFound)
}

// AddUniqueConstraint adds uk. A primary key constraint replaces the table's primary key.
func (t *Table) AddUniqueConstraint(ctx context.Context, uk *UniqueConstraint) error {
	if uk == nil {
		return fmt.Errorf("unique constraint is nil: %w", ErrInvalidArgument)
	}
	if err := t.ensureIndexes(ctx); err != nil {
		return err
	}
	if uk.primary {
		return t.SetPrimaryKey(ctx, uk)
	}
	if err := t.checkColumnNames(ctx, uk.columns); err != nil {
		return err
	}
	t.ReceiveUniqueConstraint(uk)
	return nil
}

// RemoveUniqueConstraint removes the unique constraint with uk's name.
func (t *Table) RemoveUniqueConstraint(ctx context.Context, uk *UniqueConstraint) error {
	if err := t.ensureIndexes(ctx); err != nil {
		return err
	}
	for i, existing := range t.uniques {
		if names.Equal(existing.Name, uk.Name) {
			t.uniques = append(t.uniques[:i], t.uniques[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unique constraint %s in table %s: %w", uk.Name, t.name, ErrNotFound)
}

// Indexes returns the indexes in import order.
func (t *Table) Indexes(ctx context.Context) ([]*Index, error) {
	if err := t.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return t.indexes.Values(), nil
}

// Index looks up an index by name.
func (t *Table) Index(ctx context.Context, name string) (*Index, error) {
	if err := t.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	idx, ok := t.indexes.Get(name)
	if !ok {
		return nil, fmt.Errorf("index %s in table %s: %w", name, t.name, ErrNotFound)
	}
	return idx, nil
}

// AddIndex adds idx to the table.
func (t *Table) AddIndex(ctx context.Context, idx *Index) error {
	if idx == nil {
		return fmt.Errorf("index is nil: %w", ErrInvalidArgument)
	}
	if err := t.ensureIndexes(ctx); err != nil {
		return err
	}
	if err := t.checkColumnNames(ctx, idx.ColumnNames()); err != nil {
		return err
	}
	t.ReceiveIndex(idx)
	return nil
}

// RemoveIndex removes the index with idx's name.
func (t *Table) RemoveIndex(ctx context.Context, idx *Index) error {
	if err := t.ensureIndexes(ctx); err != nil {
		return err
	}
	if !t.indexes.Remove(idx.Name) {
		return fmt.Errorf("index %s in table %s: %w", idx.Name, t.name, ErrNotFound)
	}
	return nil
}

// foreign keys ----------------------------------------------------------------------------------

// ForeignKeysState reports the import state of foreign keys.
func (t *Table) ForeignKeysState() LoadState { return t.fkGroup.state }

// SetForeignKeysImported marks foreign keys as imported or forces a re-import.
func (t *Table) SetForeignKeysImported(imported bool) { t.fkGroup.set(imported) }

func (t *Table) ensureFKs(ctx context.Context) error {
	if t.fkGroup.state != Unloaded {
		return nil
	}
	if err := t.ensureColumns(ctx); err != nil {
		return err
	}
	if err := t.ensurePK(ctx); err != nil {
		return err
	}
	return t.fkGroup.ensure(func() error {
		imp := t.importer()
		if imp == nil {
			return nil
		}
		err := imp.ImportForeignKeys(ctx, t, func(info ForeignKeyInfo) error {
			return t.receiveForeignKey(ctx, info)
		})
		if err != nil {
			return fmt.Errorf("failed to import foreign keys of %s: %w", t.name, err)
		}
		return nil
	})
}

func (t *Table) receiveForeignKey(ctx context.Context, info ForeignKeyInfo) error {
	referee, err := t.resolveReferee(info.RefSchema, info.RefTable, info.RefColumns)
	if err != nil {
		return fmt.Errorf("foreign key %s: %w", info.Name, err)
	}
	refColumns := info.RefColumns
	if len(refColumns) == 0 {
		if refColumns, err = referee.PKColumnNames(ctx); err != nil {
			return err
		}
	}
	if err := t.checkColumnNames(ctx, info.Columns); err != nil {
		return err
	}
	fk, err := NewForeignKey(info.Name, info.DeterministicName, t, info.Columns, referee, refColumns)
	if err != nil {
		return err
	}
	t.fks = append(t.fks, fk)
	return nil
}

func (t *Table) resolveReferee(schemaName, tableName string, refColumns []string) (*Table, error) {
	if names.Equal(tableName, t.name) && (schemaName == "" || (t.schema != nil && names.Equal(schemaName, t.schema.name))) {
		return t, nil
	}
	if t.schema != nil {
		if schemaName == "" || names.Equal(schemaName, t.schema.name) {
			if referee, ok := t.schema.Table(tableName); ok {
				return referee, nil
			}
		}
	}
	db := t.Database()
	if db == nil {
		return nil, fmt.Errorf("table %s: %w", tableName, ErrNotFound)
	}
	referee, err := db.TableIn(schemaName, tableName)
	if err == nil || schemaName == "" || !errors.Is(err, ErrNotFound) {
		return referee, err
	}
	if t.schema != nil && names.Equal(schemaName, t.schema.name) {
		return nil, err
	}
	return t.externalTable(schemaName, tableName, refColumns), nil
}

// externalTable registers a placeholder for a table in a schema that was not
// imported. It holds only the referenced columns and all of its groups count
// as imported, so the importer is never asked about it.
func (t *Table) externalTable(schemaName, tableName string, columns []string) *Table {
	catalog := t.Catalog()
	if catalog == nil {
		catalog = t.Database().CreateCatalog("")
	}
	ext := catalog.CreateSchema(schemaName).CreateTable(tableName, TableTypeTable)
	ext.SetColumnsImported(true)
	ext.SetPKImported(true)
	ext.SetIndexesImported(true)
	ext.SetForeignKeysImported(true)
	for _, c := range columns {
		if _, ok := ext.columns.Get(c); !ok {
			ext.ReceiveColumn(NewColumn(c, ""))
		}
	}
	return ext
}

// ReceiveForeignKey stores fk without triggering an import.
func (t *Table) ReceiveForeignKey(fk *ForeignKey) {
	fk.table = t
	t.fks = append(t.fks, fk)
}

// ForeignKeys returns the foreign keys in import order.
func (t *Table) ForeignKeys(ctx context.Context) ([]*ForeignKey, error) {
	if err := t.ensureFKs(ctx); err != nil {
		return nil, err
	}
	return append([]*ForeignKey(nil), t.fks...), nil
}

// ForeignKeyByColumns finds the foreign key over exactly these local columns.
func (t *Table) ForeignKeyByColumns(ctx context.Context, columnNames ...string) (*ForeignKey, error) {
	if err := t.ensureFKs(ctx); err != nil {
		return nil, err
	}
	for _, fk := range t.fks {
		if names.EqualSlices(fk.columns, columnNames) {
			return fk, nil
		}
	}
	return nil, fmt.Errorf("table %s has no foreign key with the columns (%s): %w",
		t.name, strings.Join(columnNames, ", "), ErrNotFound)
}

// AddForeignKey registers fk, which must have been created for this table.
func (t *Table) AddForeignKey(ctx context.Context, fk *ForeignKey) error {
	if fk == nil {
		return fmt.Errorf("foreign key is nil: %w", ErrInvalidArgument)
	}
	if !fk.table.Equal(t) {
		return fmt.Errorf("foreign key %s belongs to table %s, not %s: %w", fk.Name, fk.table.Name(), t.name, ErrInvalidArgument)
	}
	if err := t.ensureFKs(ctx); err != nil {
		return err
	}
	if err := t.checkColumnNames(ctx, fk.columns); err != nil {
		return err
	}
	t.ReceiveForeignKey(fk)
	return nil
}

// RemoveForeignKey removes fk.
func (t *Table) RemoveForeignKey(ctx context.Context, fk *ForeignKey) error {
	if err := t.ensureFKs(ctx); err != nil {
		return err
	}
	for i, existing := range t.fks {
		if existing == fk {
			t.fks = append(t.fks[:i], t.fks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("foreign key %s in table %s: %w", fk.Name, t.name, ErrNotFound)
}

// check constraints -----------------------------------------------------------------------------

// ChecksState reports the import state of check constraints, inherited from
// the owning database. Ad-hoc tables always report Loaded.
func (t *Table) ChecksState() LoadState {
	if db := t.Database(); db != nil {
		return db.ChecksState()
	}
	return Loaded
}

// CheckConstraints returns the table's check constraints.
func (t *Table) CheckConstraints(ctx context.Context) ([]*CheckConstraint, error) {
	if db := t.Database(); db != nil {
		if err := db.ensureChecks(ctx); err != nil {
			return nil, fmt.Errorf("failed to import check constraints: %w", err)
		}
	}
	return append([]*CheckConstraint(nil), t.checkConstraints...), nil
}

// AddCheckConstraint appends c.
func (t *Table) AddCheckConstraint(ctx context.Context, c *CheckConstraint) error {
	if c == nil {
		return fmt.Errorf("check constraint is nil: %w", ErrInvalidArgument)
	}
	if db := t.Database(); db != nil {
		if err := db.ensureChecks(ctx); err != nil {
			return err
		}
	}
	t.receiveCheckConstraint(c)
	return nil
}

// ReceiveCheckConstraint stores c without triggering an import.
func (t *Table) ReceiveCheckConstraint(c *CheckConstraint) {
	t.receiveCheckConstraint(c)
}

func (t *Table) receiveCheckConstraint(c *CheckConstraint) {
	c.table = t
	t.checkConstraints = append(t.checkConstraints, c)
}

// referrers -------------------------------------------------------------------------------------

// Referrers returns the tables holding a foreign key into t. The result is
// derived from the foreign keys of the other tables on every call, so it can
// never disagree with them. If the importer can name the referring tables,
// only those (plus tables whose foreign keys are already loaded) are scanned.
func (t *Table) Referrers(ctx context.Context) ([]*Table, error) {
	db := t.Database()
	if db == nil {
		return t.referrersAmong(ctx, []*Table{t})
	}
	candidates := db.Tables()
	if ri, ok := db.importer.(ReferrerImporter); ok {
		hinted := names.NewSet()
		err := ri.ImportReferrers(ctx, t, func(schemaName, tableName string) error {
			hinted.Add(schemaName + "." + tableName)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to import referrers of %s: %w", t.name, err)
		}
		filtered := make([]*Table, 0, len(candidates))
		for _, c := range candidates {
			if c.fkGroup.state != Unloaded || hinted.Contains(c.QualifiedName()) || hinted.Contains("."+c.name) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	return t.referrersAmong(ctx, candidates)
}

func (t *Table) referrersAmong(ctx context.Context, candidates []*Table) ([]*Table, error) {
	var result []*Table
	for _, c := range candidates {
		fks, err := c.ForeignKeys(ctx)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if fk.referee.Equal(t) {
				result = append(result, c)
				break
			}
		}
	}
	return result, nil
}

// composite views -------------------------------------------------------------------------------

// Components returns columns, primary key, unique constraints, indexes and
// foreign keys, importing every group.
func (t *Table) Components(ctx context.Context) ([]TableComponent, error) {
	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}
	var result []TableComponent
	for _, c := range columns {
		result = append(result, c)
	}
	uniques, err := t.UniqueConstraints(ctx, true)
	if err != nil {
		return nil, err
	}
	for _, uk := range uniques {
		result = append(result, uk)
	}
	indexes, err := t.Indexes(ctx)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		result = append(result, idx)
	}
	fks, err := t.ForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, fk := range fks {
		result = append(result, fk)
	}
	return result, nil
}

// Providers returns the referenced table of each foreign key, in foreign key order.
func (t *Table) Providers(ctx context.Context) ([]*Table, error) {
	fks, err := t.ForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*Table, len(fks))
	for i, fk := range fks {
		result[i] = fk.referee
	}
	return result, nil
}

// RequiresProvider reports whether the i-th foreign key is mandatory, judged by
// the nullability of its first column.
func (t *Table) RequiresProvider(ctx context.Context, i int) (bool, error) {
	fks, err := t.ForeignKeys(ctx)
	if err != nil {
		return false, err
	}
	if i < 0 || i >= len(fks) {
		return false, fmt.Errorf("provider index %d out of range: %w", i, ErrInvalidArgument)
	}
	c, err := t.Column(ctx, fks[i].columns[0])
	if err != nil {
		return false, err
	}
	return !c.Nullable, nil
}

// LoadAll imports every component group of the table.
func (t *Table) LoadAll(ctx context.Context) error {
	if _, err := t.Components(ctx); err != nil {
		return err
	}
	_, err := t.CheckConstraints(ctx)
	return err
}
