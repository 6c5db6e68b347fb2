package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
	"github.com/tordrt/dbtranscode/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Snapshot) error {
	_, _ = fmt.Fprintf(f.writer, "# Database %s\n\n", s.Name)
	if product := productString(s); product != "" {
		_, _ = fmt.Fprintf(f.writer, "Environment `%s`,%s\n\n", s.Environment, product)
	}

	for _, table := range s.Tables() {
		if err := f.FormatTable(table, referrers(s, table.Name)); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table schema.Table, incoming []Reference) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	if table.Doc != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Doc)
	}

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns {
		constraintStr := f.formatConstraints(table, col)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, typeString(col), constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, typeString(col))
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.ForeignKeys) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, fk := range table.ForeignKeys {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s(%s)\n",
				strings.Join(fk.Columns, ", "),
				fk.TargetTable,
				strings.Join(fk.TargetColumns, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, ref := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s(%s)\n", ref.SourceTable, strings.Join(ref.SourceColumns, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Idx")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n",
					idx.Name,
					strings.Join(idx.Columns, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n",
					idx.Name,
					strings.Join(idx.Columns, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *MarkdownFormatter) formatConstraints(table schema.Table, col schema.Column) string {
	var constraints []string

	if table.PrimaryKey != nil {
		for _, pk := range table.PrimaryKey.Columns {
			if names.Equal(pk, col.Name) {
				constraints = append(constraints, "PK")
				break
			}
		}
	}

	if isUniqueColumn(table, col.Name) {
		constraints = append(constraints, "UNIQUE")
	}

	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	if col.Comment != "" {
		constraints = append(constraints, fmt.Sprintf("_%s_", col.Comment))
	}

	return strings.Join(constraints, ", ")
}
