// Package schema holds the plain, serializable form of a metadata graph. The
// cache codecs persist it and the formatters render it.
package schema

import "encoding/xml"

// FormatVersion is bumped whenever the snapshot layout changes. Snapshots of
// another version are rejected.
const FormatVersion = 1

// Snapshot represents a complete database graph
type Snapshot struct {
	XMLName        xml.Name  `xml:"database" msgpack:"-"`
	Version        int       `xml:"version,attr" msgpack:"version"`
	Name           string    `xml:"name,attr" msgpack:"name"`
	Environment    string    `xml:"environment,attr" msgpack:"environment"`
	ProductName    string    `xml:"productName,attr,omitempty" msgpack:"product_name"`
	ProductVersion string    `xml:"productVersion,attr,omitempty" msgpack:"product_version"`
	Catalogs       []Catalog `xml:"catalog" msgpack:"catalogs"`
}

// Catalog represents a catalog and its schemas
type Catalog struct {
	Name    string   `xml:"name,attr" msgpack:"name"`
	Schemas []Schema `xml:"schema" msgpack:"schemas"`
}

// Schema represents a schema and its tables
type Schema struct {
	Name   string  `xml:"name,attr" msgpack:"name"`
	Tables []Table `xml:"table" msgpack:"tables"`
}

// Table represents a database table
type Table struct {
	Name        string       `xml:"name,attr" msgpack:"name"`
	Type        string       `xml:"type,attr" msgpack:"type"`
	Doc         string       `xml:"doc,omitempty" msgpack:"doc,omitempty"`
	Columns     []Column     `xml:"column" msgpack:"columns"`
	PrimaryKey  *Key         `xml:"pk" msgpack:"pk,omitempty"`
	Uniques     []Key        `xml:"uk" msgpack:"uniques"`
	Indexes     []Index      `xml:"index" msgpack:"indexes"`
	ForeignKeys []ForeignKey `xml:"fk" msgpack:"fks"`
	Checks      []Check      `xml:"check" msgpack:"checks"`
}

// Column represents a table column
type Column struct {
	Name           string  `xml:"name,attr" msgpack:"name"`
	Type           string  `xml:"type,attr" msgpack:"type"`
	Size           *int    `xml:"size,attr,omitempty" msgpack:"size,omitempty"`
	FractionDigits *int    `xml:"fractionDigits,attr,omitempty" msgpack:"fraction_digits,omitempty"`
	Nullable       bool    `xml:"nullable,attr" msgpack:"nullable"`
	DefaultValue   *string `xml:"default,omitempty" msgpack:"default,omitempty"`
	Comment        string  `xml:"comment,omitempty" msgpack:"comment,omitempty"`
}

// Key represents a primary key or unique constraint
type Key struct {
	Name          string   `xml:"name,attr" msgpack:"name"`
	Deterministic bool     `xml:"deterministic,attr" msgpack:"deterministic"`
	Columns       []string `xml:"column" msgpack:"columns"`
}

// Index represents a database index
type Index struct {
	Name          string   `xml:"name,attr" msgpack:"name"`
	Deterministic bool     `xml:"deterministic,attr" msgpack:"deterministic"`
	IsUnique      bool     `xml:"unique,attr" msgpack:"unique"`
	Columns       []string `xml:"column" msgpack:"columns"`
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Name          string   `xml:"name,attr" msgpack:"name"`
	Deterministic bool     `xml:"deterministic,attr" msgpack:"deterministic"`
	Columns       []string `xml:"column" msgpack:"columns"`
	TargetSchema  string   `xml:"refSchema,attr" msgpack:"ref_schema"`
	TargetTable   string   `xml:"refTable,attr" msgpack:"ref_table"`
	TargetColumns []string `xml:"refColumn" msgpack:"ref_columns"`
}

// Check represents a check constraint
type Check struct {
	Name      string `xml:"name,attr" msgpack:"name"`
	Condition string `xml:",chardata" msgpack:"condition"`
}

// Tables returns all tables of all schemas in order.
func (s *Snapshot) Tables() []Table {
	var result []Table
	for _, c := range s.Catalogs {
		for _, sc := range c.Schemas {
			result = append(result, sc.Tables...)
		}
	}
	return result
}
