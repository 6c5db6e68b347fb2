package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
)

// Database is the root of a metadata graph. Environment names the connection
// configuration the graph was imported from and keys the metadata cache.
type Database struct {
	Name           string
	Environment    string
	ProductName    string
	ProductVersion string

	importer Importer
	catalogs *names.OrderedMap[*Catalog]
	checks   loadGroup
}

// NewDatabase creates an empty graph. importer may be nil for hand-built graphs.
func NewDatabase(name, environment string, importer Importer) *Database {
	d := &Database{
		Name:        name,
		Environment: environment,
		importer:    importer,
		catalogs:    names.NewOrderedMap[*Catalog](),
	}
	d.checks = loadGroup{
		alloc: func() {},
		reset: func() {
			for _, t := range d.Tables() {
				t.checkConstraints = nil
			}
		},
	}
	return d
}

// Importer returns the collaborator used for lazy imports.
func (d *Database) Importer() Importer {
	return d.importer
}

// SetImporter replaces the lazy import collaborator.
func (d *Database) SetImporter(importer Importer) {
	d.importer = importer
}

// AddCatalog attaches c to the database. A catalog belongs to exactly one database.
func (d *Database) AddCatalog(c *Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog is nil: %w", ErrInvalidArgument)
	}
	if c.database != nil && c.database != d {
		return fmt.Errorf("catalog %s already belongs to another database: %w", c.name, ErrInvalidArgument)
	}
	c.database = d
	d.catalogs.Put(c.name, c)
	return nil
}

// CreateCatalog returns the catalog named name, creating it if necessary.
func (d *Database) CreateCatalog(name string) *Catalog {
	if c, ok := d.catalogs.Get(name); ok {
		return c
	}
	c := NewCatalog(name)
	_ = d.AddCatalog(c)
	return c
}

// Catalog looks up a catalog by name.
func (d *Database) Catalog(name string) (*Catalog, bool) {
	return d.catalogs.Get(name)
}

// Catalogs returns the catalogs in import order.
func (d *Database) Catalogs() []*Catalog {
	return d.catalogs.Values()
}

// Schema returns the first schema named name in any catalog.
func (d *Database) Schema(name string) (*Schema, bool) {
	for _, c := range d.catalogs.Values() {
		if s, ok := c.Schema(name); ok {
			return s, true
		}
	}
	return nil, false
}

// Schemas returns all schemas of all catalogs.
func (d *Database) Schemas() []*Schema {
	var result []*Schema
	for _, c := range d.catalogs.Values() {
		result = append(result, c.Schemas()...)
	}
	return result
}

// Tables returns all tables of all schemas.
func (d *Database) Tables() []*Table {
	var result []*Table
	for _, s := range d.Schemas() {
		result = append(result, s.Tables()...)
	}
	return result
}

// Table resolves "table" or "schema.table". Unqualified names match the first
// table of that name in catalog and schema order.
func (d *Database) Table(name string) (*Table, error) {
	if schemaName, tableName, ok := strings.Cut(name, "."); ok {
		return d.TableIn(schemaName, tableName)
	}
	for _, s := range d.Schemas() {
		if t, ok := s.Table(name); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %s: %w", name, ErrNotFound)
}

// TableIn resolves a table inside a named schema. An empty schema name
// searches all schemas.
func (d *Database) TableIn(schemaName, tableName string) (*Table, error) {
	if schemaName == "" {
		return d.Table(tableName)
	}
	for _, c := range d.catalogs.Values() {
		if s, ok := c.Schema(schemaName); ok {
			if t, ok := s.Table(tableName); ok {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("table %s.%s: %w", schemaName, tableName, ErrNotFound)
}

// ChecksState reports the import state of check constraints, which are
// imported for the whole database at once.
func (d *Database) ChecksState() LoadState {
	return d.checks.state
}

// SetChecksImported marks check constraints as imported, or clears them on all
// tables so that the next access re-imports.
func (d *Database) SetChecksImported(imported bool) {
	d.checks.set(imported)
}

func (d *Database) ensureChecks(ctx context.Context) error {
	return d.checks.ensure(func() error {
		if d.importer == nil {
			return nil
		}
		return d.importer.ImportChecks(ctx, d, func(info CheckInfo) error {
			t, err := d.TableIn(info.Schema, info.Table)
			if err != nil {
				return fmt.Errorf("failed to attach check constraint %s: %w", info.Name, err)
			}
			t.receiveCheckConstraint(&CheckConstraint{Name: info.Name, Condition: info.Condition, table: t})
			return nil
		})
	})
}

// Catalog groups schemas.
type Catalog struct {
	name     string
	database *Database
	schemas  *names.OrderedMap[*Schema]
}

// NewCatalog creates a detached catalog.
func NewCatalog(name string) *Catalog {
	return &Catalog{name: name, schemas: names.NewOrderedMap[*Schema]()}
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Database returns the owning database, or nil.
func (c *Catalog) Database() *Database { return c.database }

// AddSchema attaches s to the catalog. A schema belongs to exactly one catalog.
func (c *Catalog) AddSchema(s *Schema) error {
	if s == nil {
		return fmt.Errorf("schema is nil: %w", ErrInvalidArgument)
	}
	if s.catalog != nil && s.catalog != c {
		return fmt.Errorf("schema %s already belongs to catalog %s: %w", s.name, s.catalog.name, ErrInvalidArgument)
	}
	s.catalog = c
	c.schemas.Put(s.name, s)
	return nil
}

// CreateSchema returns the schema named name, creating it if necessary.
func (c *Catalog) CreateSchema(name string) *Schema {
	if s, ok := c.schemas.Get(name); ok {
		return s
	}
	s := NewSchema(name)
	_ = c.AddSchema(s)
	return s
}

// Schema looks up a schema by name.
func (c *Catalog) Schema(name string) (*Schema, bool) {
	return c.schemas.Get(name)
}

// Schemas returns the schemas in import order.
func (c *Catalog) Schemas() []*Schema {
	return c.schemas.Values()
}

// Table returns the first table named name in any schema of the catalog.
func (c *Catalog) Table(name string) (*Table, bool) {
	for _, s := range c.schemas.Values() {
		if t, ok := s.Table(name); ok {
			return t, true
		}
	}
	return nil, false
}

// Schema groups tables.
type Schema struct {
	name    string
	catalog *Catalog
	tables  *names.OrderedMap[*Table]
}

// NewSchema creates a detached schema.
func NewSchema(name string) *Schema {
	return &Schema{name: name, tables: names.NewOrderedMap[*Table]()}
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Catalog returns the owning catalog, or nil.
func (s *Schema) Catalog() *Catalog { return s.catalog }

// Database returns the database the schema belongs to, or nil.
func (s *Schema) Database() *Database {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.database
}

// AddTable attaches t to the schema. A table belongs to exactly one schema.
func (s *Schema) AddTable(t *Table) error {
	if t == nil {
		return fmt.Errorf("table is nil: %w", ErrInvalidArgument)
	}
	if t.schema != nil && t.schema != s {
		return fmt.Errorf("table %s already belongs to schema %s: %w", t.name, t.schema.name, ErrInvalidArgument)
	}
	t.schema = s
	s.tables.Put(t.name, t)
	return nil
}

// CreateTable returns the table named name, creating it if necessary.
func (s *Schema) CreateTable(name string, tableType TableType) *Table {
	if t, ok := s.tables.Get(name); ok {
		return t
	}
	t := NewTable(name)
	t.tableType = tableType
	_ = s.AddTable(t)
	return t
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	return s.tables.Get(name)
}

// Tables returns the tables in import order.
func (s *Schema) Tables() []*Table {
	return s.tables.Values()
}

// RemoveTable detaches the table named name.
func (s *Schema) RemoveTable(name string) {
	if t, ok := s.tables.Get(name); ok {
		t.schema = nil
		s.tables.Remove(name)
	}
}

func sameSchema(a, b *Schema) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if !names.Equal(a.name, b.name) {
		return false
	}
	if a.catalog == nil || b.catalog == nil {
		return a.catalog == b.catalog
	}
	return names.Equal(a.catalog.name, b.catalog.name)
}
