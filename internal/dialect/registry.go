package dialect

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Factory creates a dialect for a product name as reported by the database.
type Factory func(productName string) Dialect

type registration struct {
	product    string
	minVersion string
	factory    Factory
}

// Registry maps product names and versions to dialects. Entries are tried in
// registration order; the first match wins.
type Registry struct {
	entries []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an entry. product is matched as a substring of the normalized
// product name (lower case, spaces replaced by underscores). minVersion may be
// empty; otherwise the entry only matches versions at or above it.
func (r *Registry) Register(product, minVersion string, factory Factory) {
	r.entries = append(r.entries, registration{
		product:    normalizeProduct(product),
		minVersion: minVersion,
		factory:    factory,
	})
}

// ForProduct returns the first matching dialect, or the unknown dialect. An
// empty or unparseable version is treated as the newest one.
func (r *Registry) ForProduct(productName, version string) Dialect {
	normalized := normalizeProduct(productName)
	v := canonicalVersion(version)
	for _, e := range r.entries {
		if !strings.Contains(normalized, e.product) {
			continue
		}
		if e.minVersion != "" && v != "" && semver.Compare(v, canonicalVersion(e.minVersion)) < 0 {
			continue
		}
		return e.factory(productName)
	}
	return NewUnknown(productName)
}

var defaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("postgres", "", func(string) Dialect { return NewPostgres() })
	r.Register("mariadb", "", func(string) Dialect { return NewMariaDB() })
	r.Register("mysql", "8", func(string) Dialect { return NewMySQL8() })
	r.Register("mysql", "", func(string) Dialect { return NewMySQL() })
	r.Register("sqlite", "", func(string) Dialect { return NewSQLite() })
	r.Register("duckdb", "", func(string) Dialect { return NewDuckDB() })
	return r
}

// ForProduct resolves a dialect with the built-in registry.
func ForProduct(productName, version string) Dialect {
	return defaultRegistry.ForProduct(productName, version)
}

func normalizeProduct(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// canonicalVersion turns "16.2 (Debian 16.2-1)" or "8.0.35-0ubuntu" into a
// semver string such as "v16.2.0". It returns "" if no leading number exists.
func canonicalVersion(version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	end := 0
	for end < len(version) && (version[end] == '.' || (version[end] >= '0' && version[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(version[:end], "."), ".")
	if parts[0] == "" {
		return ""
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	for i, p := range parts {
		parts[i] = strings.TrimLeft(p, "0")
		if parts[i] == "" {
			parts[i] = "0"
		}
	}
	v := semver.Canonical("v" + strings.Join(parts, "."))
	return v
}
