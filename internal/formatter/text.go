// Package formatter renders a schema snapshot as documentation: compact text,
// markdown, or one file per table.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
	"github.com/tordrt/dbtranscode/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Snapshot) error {
	_, _ = fmt.Fprintf(f.writer, "DATABASE %s (%s)%s\n", s.Name, s.Environment, productString(s))
	for _, table := range s.Tables() {
		_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		if err := f.formatTable(table); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table schema.Table) error {
	// Table header with primary key
	pkStr := ""
	if table.PrimaryKey != nil {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey.Columns, ", "))
	}
	kind := "TABLE"
	if table.Type != "" && table.Type != "TABLE" {
		kind = table.Type
	}
	_, _ = fmt.Fprintf(f.writer, "%s %s%s\n", kind, table.Name, pkStr)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col, isUniqueColumn(table, col.Name)))
	}

	if len(table.ForeignKeys) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, fk := range table.ForeignKeys {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s(%s)\n",
				strings.Join(fk.Columns, ", "), fk.TargetTable, strings.Join(fk.TargetColumns, ", "))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}

	if len(table.Checks) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  CHECKS:")
		for _, c := range table.Checks {
			_, _ = fmt.Fprintf(f.writer, "    %s: %s\n", c.Name, c.Condition)
		}
	}

	return nil
}

func formatColumn(col schema.Column, unique bool) string {
	parts := []string{col.Name + ":", typeString(col)}

	if unique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}
	if col.Comment != "" {
		parts = append(parts, "-- "+col.Comment)
	}

	return strings.Join(parts, " ")
}

func typeString(col schema.Column) string {
	switch {
	case col.Size != nil && col.FractionDigits != nil:
		return fmt.Sprintf("%s(%d,%d)", col.Type, *col.Size, *col.FractionDigits)
	case col.Size != nil:
		return fmt.Sprintf("%s(%d)", col.Type, *col.Size)
	default:
		return col.Type
	}
}

func productString(s *schema.Snapshot) string {
	if s.ProductName == "" {
		return ""
	}
	return strings.TrimRight(" "+s.ProductName+" "+s.ProductVersion, " ")
}

// isUniqueColumn reports whether a single-column unique constraint covers name.
func isUniqueColumn(table schema.Table, name string) bool {
	for _, uk := range table.Uniques {
		if len(uk.Columns) == 1 && names.Equal(uk.Columns[0], name) {
			return true
		}
	}
	return false
}
