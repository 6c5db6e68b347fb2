package model

import (
	"fmt"
	"strings"
)

// TableComponent is anything a table is composed of.
type TableComponent interface {
	ObjectType() string
	String() string
}

// UniqueConstraint is a unique or primary key constraint over an ordered,
// non-empty list of columns.
type UniqueConstraint struct {
	Name              string
	DeterministicName bool

	table   *Table
	columns []string
	primary bool
}

// NewUniqueConstraint creates a unique constraint. table may be nil.
func NewUniqueConstraint(table *Table, name string, deterministic bool, columns ...string) (*UniqueConstraint, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("unique constraint %s has no columns: %w", name, ErrInvalidArgument)
	}
	return &UniqueConstraint{
		Name:              name,
		DeterministicName: deterministic,
		table:             table,
		columns:           append([]string(nil), columns...),
	}, nil
}

// NewPrimaryKey creates a primary key constraint. When table is not nil the
// constraint becomes the table's primary key.
func NewPrimaryKey(table *Table, name string, deterministic bool, columns ...string) (*UniqueConstraint, error) {
	pk, err := NewUniqueConstraint(nil, name, deterministic, columns...)
	if err != nil {
		return nil, err
	}
	pk.primary = true
	if table != nil {
		table.pkGroup.set(true)
		table.pk = pk
		pk.table = table
	}
	return pk, nil
}

// Table returns the owning table.
func (u *UniqueConstraint) Table() *Table { return u.table }

// IsPrimary reports whether u is a primary key.
func (u *UniqueConstraint) IsPrimary() bool { return u.primary }

// ColumnNames returns a copy of the constrained column names in declaration order.
func (u *UniqueConstraint) ColumnNames() []string {
	return append([]string(nil), u.columns...)
}

// ObjectType implements TableComponent.
func (u *UniqueConstraint) ObjectType() string {
	if u.primary {
		return "primary key constraint"
	}
	return "unique constraint"
}

func (u *UniqueConstraint) String() string {
	kind := "UNIQUE"
	if u.primary {
		kind = "PRIMARY KEY"
	}
	return fmt.Sprintf("CONSTRAINT %s %s (%s)", u.Name, kind, strings.Join(u.columns, ", "))
}

// ForeignKey references an equal-length column list of another table.
type ForeignKey struct {
	Name              string
	DeterministicName bool

	table      *Table
	columns    []string
	referee    *Table
	refColumns []string
}

// NewForeignKey creates a foreign key from table(columns) to referee(refColumns).
// It does not register the constraint with table; see Table.AddForeignKey.
func NewForeignKey(name string, deterministic bool, table *Table, columns []string, referee *Table, refColumns []string) (*ForeignKey, error) {
	if table == nil || referee == nil {
		return nil, fmt.Errorf("foreign key %s needs an owner and a referenced table: %w", name, ErrInvalidArgument)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("foreign key %s has no columns: %w", name, ErrInvalidArgument)
	}
	if len(columns) != len(refColumns) {
		return nil, fmt.Errorf("foreign key %s has %d columns but references %d: %w",
			name, len(columns), len(refColumns), ErrInvalidArgument)
	}
	return &ForeignKey{
		Name:              name,
		DeterministicName: deterministic,
		table:             table,
		columns:           append([]string(nil), columns...),
		referee:           referee,
		refColumns:        append([]string(nil), refColumns...),
	}, nil
}

// Table returns the table holding the foreign key columns.
func (f *ForeignKey) Table() *Table { return f.table }

// Referee returns the referenced table.
func (f *ForeignKey) Referee() *Table { return f.referee }

// ColumnNames returns the local column names.
func (f *ForeignKey) ColumnNames() []string {
	return append([]string(nil), f.columns...)
}

// RefereeColumnNames returns the referenced column names, aligned with ColumnNames.
func (f *ForeignKey) RefereeColumnNames() []string {
	return append([]string(nil), f.refColumns...)
}

// ObjectType implements TableComponent.
func (f *ForeignKey) ObjectType() string { return "foreign key constraint" }

func (f *ForeignKey) String() string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		f.Name, strings.Join(f.columns, ", "), f.referee.Name(), strings.Join(f.refColumns, ", "))
}

// CheckConstraint holds free-form predicate text.
type CheckConstraint struct {
	Name      string
	Condition string

	table *Table
}

// Table returns the owning table.
func (c *CheckConstraint) Table() *Table { return c.table }

// ObjectType implements TableComponent.
func (c *CheckConstraint) ObjectType() string { return "check constraint" }

func (c *CheckConstraint) String() string {
	return fmt.Sprintf("CONSTRAINT %s CHECK (%s)", c.Name, c.Condition)
}

// Index is a unique or non-unique index. A unique index shares its column
// list with the unique constraint (or primary key) it implements.
type Index struct {
	Name              string
	DeterministicName bool

	table      *Table
	columns    []string
	constraint *UniqueConstraint
}

// NewIndex creates a non-unique index.
func NewIndex(name string, deterministic bool, table *Table, columns ...string) (*Index, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("index %s has no columns: %w", name, ErrInvalidArgument)
	}
	return &Index{Name: name, DeterministicName: deterministic, table: table, columns: append([]string(nil), columns...)}, nil
}

// NewUniqueIndex creates an index backing constraint.
func NewUniqueIndex(name string, deterministic bool, constraint *UniqueConstraint) (*Index, error) {
	if constraint == nil {
		return nil, fmt.Errorf("unique index %s has no constraint: %w", name, ErrInvalidArgument)
	}
	return &Index{Name: name, DeterministicName: deterministic, table: constraint.table, constraint: constraint}, nil
}

// Table returns the indexed table.
func (i *Index) Table() *Table { return i.table }

// IsUnique reports whether the index enforces uniqueness.
func (i *Index) IsUnique() bool { return i.constraint != nil }

// Constraint returns the constraint a unique index implements, or nil.
func (i *Index) Constraint() *UniqueConstraint { return i.constraint }

// ColumnNames returns the indexed columns.
func (i *Index) ColumnNames() []string {
	if i.constraint != nil {
		return i.constraint.ColumnNames()
	}
	return append([]string(nil), i.columns...)
}

// ObjectType implements TableComponent.
func (i *Index) ObjectType() string { return "index" }

func (i *Index) String() string {
	kind := "INDEX"
	if i.IsUnique() {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("%s %s (%s)", kind, i.Name, strings.Join(i.ColumnNames(), ", "))
}
