package model

import (
	"fmt"
	"strings"
)

// Column is a table column. Its owner is set once, when the column is
// received or added by a table.
type Column struct {
	Name           string
	Type           string
	Size           *int
	FractionDigits *int
	Nullable       bool
	Default        *string
	Comment        string

	table *Table
}

// NewColumn creates a detached, nullable column.
func NewColumn(name, dataType string) *Column {
	return &Column{Name: name, Type: dataType, Nullable: true}
}

func newColumnFromInfo(info ColumnInfo) *Column {
	return &Column{
		Name:           info.Name,
		Type:           info.Type,
		Size:           info.Size,
		FractionDigits: info.FractionDigits,
		Nullable:       info.Nullable,
		Default:        info.Default,
		Comment:        info.Comment,
	}
}

// Table returns the owning table.
func (c *Column) Table() *Table { return c.table }

// ObjectType implements TableComponent.
func (c *Column) ObjectType() string { return "column" }

// TypeString renders the type with size and fraction digits, e.g. "decimal(10,2)".
func (c *Column) TypeString() string {
	if c.Size == nil {
		return c.Type
	}
	if c.FractionDigits != nil {
		return fmt.Sprintf("%s(%d,%d)", c.Type, *c.Size, *c.FractionDigits)
	}
	return fmt.Sprintf("%s(%d)", c.Type, *c.Size)
}

func (c *Column) String() string {
	parts := []string{c.Name, c.TypeString()}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+*c.Default)
	}
	return strings.Join(parts, " ")
}
