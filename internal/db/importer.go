// Package db connects to the supported database products. Each product has a
// client that doubles as a model.Connection and an importer that populates the
// lazy metadata graph from the product's catalog.
package db

import (
	"strconv"
	"strings"

	"github.com/tordrt/dbtranscode/internal/dialect"
	"github.com/tordrt/dbtranscode/internal/model"
)

const varcharType = "varchar"

// importerBase holds what all importers share.
type importerBase struct {
	environment string
	dialect     dialect.Dialect
}

func (b importerBase) deterministic(name string) bool {
	return b.dialect.IsDeterministicName(name)
}

// newDatabase creates the graph root with product information filled in.
func (b importerBase) newDatabase(name, productName, productVersion string, importer model.Importer) *model.Database {
	db := model.NewDatabase(name, b.environment, importer)
	db.ProductName = productName
	db.ProductVersion = productVersion
	return db
}

// splitTypeSize splits "varchar(40)" into varchar and 40, and "decimal(10,2)"
// into decimal, 10 and 2. Types without a size are returned unchanged.
func splitTypeSize(columnType string) (string, *int, *int) {
	open := strings.IndexByte(columnType, '(')
	if open < 0 || !strings.HasSuffix(columnType, ")") {
		return columnType, nil, nil
	}
	base := strings.TrimSpace(columnType[:open])
	args := strings.Split(columnType[open+1:len(columnType)-1], ",")
	size, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return columnType, nil, nil
	}
	if len(args) < 2 {
		return base, &size, nil
	}
	fraction, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return base, &size, nil
	}
	return base, &size, &fraction
}

// stringList converts a list value returned by a driver into strings.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		result := make([]string, 0, len(list))
		for _, item := range list {
			switch s := item.(type) {
			case string:
				result = append(result, s)
			case []byte:
				result = append(result, string(s))
			}
		}
		return result
	case string:
		if list == "" {
			return nil
		}
		return strings.Split(list, ",")
	case []byte:
		return stringList(string(list))
	default:
		return nil
	}
}
