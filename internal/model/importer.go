package model

import "context"

// ColumnInfo describes a column as reported by an importer.
type ColumnInfo struct {
	Name           string
	Type           string
	Size           *int
	FractionDigits *int
	Nullable       bool
	Default        *string
	Comment        string
}

// PKInfo describes a primary key constraint.
type PKInfo struct {
	Name              string
	DeterministicName bool
	Columns           []string
}

// IndexInfo describes an index. Unique indexes become unique constraints
// unless their columns equal the primary key.
type IndexInfo struct {
	Name              string
	DeterministicName bool
	Unique            bool
	Columns           []string
}

// ForeignKeyInfo describes a foreign key. RefSchema may be empty, meaning the
// schema of the owning table. RefColumns may be empty, meaning the primary key
// of the referenced table.
type ForeignKeyInfo struct {
	Name              string
	DeterministicName bool
	Columns           []string
	RefSchema         string
	RefTable          string
	RefColumns        []string
}

// CheckInfo describes a check constraint of some table in the database.
type CheckInfo struct {
	Schema    string
	Table     string
	Name      string
	Condition string
}

// Receivers are push-style callbacks handed to an Importer, one call per
// discovered element.
type (
	ColumnReceiver   func(ColumnInfo) error
	PKReceiver       func(PKInfo) error
	IndexReceiver    func(IndexInfo) error
	FKReceiver       func(ForeignKeyInfo) error
	CheckReceiver    func(CheckInfo) error
	ReferrerReceiver func(schemaName, tableName string) error
)

// Importer populates a Database graph. ImportDatabase creates the catalog,
// schema and table shells; the per-table methods are invoked lazily, once per
// component group, the first time that group is accessed.
type Importer interface {
	ImportDatabase(ctx context.Context) (*Database, error)
	ImportColumns(ctx context.Context, table *Table, receive ColumnReceiver) error
	ImportPrimaryKey(ctx context.Context, table *Table, receive PKReceiver) error
	ImportIndexes(ctx context.Context, table *Table, receive IndexReceiver) error
	ImportForeignKeys(ctx context.Context, table *Table, receive FKReceiver) error
	ImportChecks(ctx context.Context, db *Database, receive CheckReceiver) error
}

// ReferrerImporter is implemented by importers that can name the tables
// holding foreign keys into a given table. Table.Referrers uses it to limit the
// set of tables whose foreign keys must be imported.
type ReferrerImporter interface {
	ImportReferrers(ctx context.Context, table *Table, receive ReferrerReceiver) error
}
