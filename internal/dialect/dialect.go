// Package dialect renders the vendor-specific SQL fragments the metadata graph
// needs for point queries and diagnostics.
package dialect

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrRegexUnsupported is returned by RegexQuery for databases without a regex operator.
var ErrRegexUnsupported = errors.New("regular expressions are not supported")

// Dialect is the vendor-specific part of SQL rendering.
type Dialect interface {
	System() string
	QuoteIdentifier(name string) string
	FormatValue(value any) string
	RenderWhereClause(columns []string, values []any) string
	Placeholder(n int) string
	SupportsRegex() bool
	RegexQuery(expression string, not bool, regex string) (string, error)
	IsDefaultSchema(schema, user string) bool
	IsDeterministicName(name string) bool
}

// SQLDialect is a table-driven Dialect. The per-product constructors below
// fill in its fields.
type SQLDialect struct {
	system        string
	quoteOpen     string
	quoteClose    string
	numbered      bool
	regexOperator string
	defaultSchema string
	typedLiterals bool
	boolLiterals  [2]string
	// generatedNames matches constraint and index names the database makes up.
	generatedNames *regexp.Regexp
}

// System returns the short product identifier, e.g. "postgres".
func (d *SQLDialect) System() string { return d.system }

// QuoteIdentifier quotes name, doubling embedded quote characters.
func (d *SQLDialect) QuoteIdentifier(name string) string {
	return d.quoteOpen + strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

// FormatValue renders value as an SQL literal.
func (d *SQLDialect) FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'"
	case bool:
		if v {
			return d.boolLiterals[1]
		}
		return d.boolLiterals[0]
	case time.Time:
		return d.formatTime(v)
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(v.String(), "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (d *SQLDialect) formatTime(t time.Time) string {
	h, m, s := t.Clock()
	var kind, text string
	switch {
	case h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0:
		kind, text = "date", t.Format("2006-01-02")
	case t.Nanosecond() == 0:
		kind, text = "timestamp", t.Format("2006-01-02 15:04:05")
	default:
		kind, text = "timestamp", t.Format("2006-01-02 15:04:05.999999999")
	}
	if d.typedLiterals {
		return kind + " '" + text + "'"
	}
	return "'" + text + "'"
}

// RenderWhereClause renders "a = 1 AND b IS NULL" for a primary key lookup.
func (d *SQLDialect) RenderWhereClause(columns []string, values []any) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		var value any
		if i < len(values) {
			value = values[i]
		}
		if value == nil {
			parts[i] = d.QuoteIdentifier(c) + " IS NULL"
		} else {
			parts[i] = d.QuoteIdentifier(c) + " = " + d.FormatValue(value)
		}
	}
	return strings.Join(parts, " AND ")
}

// Placeholder returns the bind parameter marker for the n-th argument (1-based).
func (d *SQLDialect) Placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SupportsRegex reports whether RegexQuery can render a condition.
func (d *SQLDialect) SupportsRegex() bool { return d.regexOperator != "" }

// RegexQuery renders a condition matching expression against regex.
func (d *SQLDialect) RegexQuery(expression string, not bool, regex string) (string, error) {
	if d.regexOperator == "" {
		return "", fmt.Errorf("%s: %w", d.system, ErrRegexUnsupported)
	}
	query := expression + " " + d.regexOperator + " '" + strings.ReplaceAll(regex, "'", "''") + "'"
	if not {
		query = "NOT " + query
	}
	return query, nil
}

// IsDefaultSchema reports whether schema is the one unqualified names resolve to.
func (d *SQLDialect) IsDefaultSchema(schema, user string) bool {
	if d.defaultSchema == "" {
		return strings.EqualFold(schema, user)
	}
	return strings.EqualFold(schema, d.defaultSchema)
}

// IsDeterministicName reports whether a constraint or index name was chosen by
// a user rather than generated by the database.
func (d *SQLDialect) IsDeterministicName(name string) bool {
	if name == "" {
		return false
	}
	return d.generatedNames == nil || !d.generatedNames.MatchString(name)
}

// NewPostgres creates the PostgreSQL dialect.
func NewPostgres() *SQLDialect {
	return &SQLDialect{
		system:         "postgres",
		quoteOpen:      `"`,
		quoteClose:     `"`,
		numbered:       true,
		regexOperator:  "~",
		defaultSchema:  "public",
		typedLiterals:  true,
		boolLiterals:   [2]string{"false", "true"},
		generatedNames: regexp.MustCompile(`(?i)(_pkey|_fkey|_key|_not_null)$`),
	}
}

// NewMySQL creates the dialect for MySQL before 8.0, which lacks REGEXP_LIKE
// but has the REGEXP operator.
func NewMySQL() *SQLDialect {
	return &SQLDialect{
		system:         "mysql",
		quoteOpen:      "`",
		quoteClose:     "`",
		regexOperator:  "REGEXP",
		boolLiterals:   [2]string{"0", "1"},
		generatedNames: regexp.MustCompile(`(?i)^(PRIMARY|.+_ibfk_\d+)$`),
	}
}

// NewMySQL8 creates the dialect for MySQL 8.0 and later.
func NewMySQL8() *SQLDialect {
	d := NewMySQL()
	d.system = "mysql8"
	d.boolLiterals = [2]string{"false", "true"}
	return d
}

// NewMariaDB creates the MariaDB dialect.
func NewMariaDB() *SQLDialect {
	d := NewMySQL()
	d.system = "mariadb"
	return d
}

// NewSQLite creates the SQLite dialect. SQLite has no built-in regex function.
func NewSQLite() *SQLDialect {
	return &SQLDialect{
		system:         "sqlite",
		quoteOpen:      `"`,
		quoteClose:     `"`,
		defaultSchema:  "main",
		boolLiterals:   [2]string{"0", "1"},
		generatedNames: regexp.MustCompile(`(?i)^(sqlite_autoindex_.+|pk_.+|fk_.+_\d+)$`),
	}
}

// NewDuckDB creates the DuckDB dialect.
func NewDuckDB() *SQLDialect {
	return &SQLDialect{
		system:         "duckdb",
		quoteOpen:      `"`,
		quoteClose:     `"`,
		numbered:       true,
		regexOperator:  "SIMILAR TO",
		defaultSchema:  "main",
		typedLiterals:  true,
		boolLiterals:   [2]string{"false", "true"},
		generatedNames: regexp.MustCompile(`(?i)(_pkey|_fkey|_key|_not_null)$`),
	}
}

// NewUnknown creates the fallback dialect for unrecognized products. It quotes
// with double quotes and renders plain literals.
func NewUnknown(productName string) *SQLDialect {
	return &SQLDialect{
		system:       "unknown:" + productName,
		quoteOpen:    `"`,
		quoteClose:   `"`,
		boolLiterals: [2]string{"false", "true"},
	}
}
