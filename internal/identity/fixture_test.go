package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranscode/internal/model"
)

var errUnexpectedQuery = errors.New("unexpected query")

type scriptedResult struct {
	columns []string
	rows    [][]any
}

// scriptedConnection answers queries from a table of canned results keyed by
// statement and arguments.
type scriptedConnection struct {
	results map[string]scriptedResult
	queries []string
}

func newScriptedConnection() *scriptedConnection {
	return &scriptedConnection{results: map[string]scriptedResult{}}
}

func (c *scriptedConnection) on(query string, args []any, columns []string, rows ...[]any) {
	c.results[query+fmt.Sprintf("%v", args)] = scriptedResult{columns: columns, rows: rows}
}

func (c *scriptedConnection) Query(ctx context.Context, query string, args ...any) (model.Cursor, error) {
	c.queries = append(c.queries, query)
	r, ok := c.results[query+fmt.Sprintf("%v", args)]
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", query, args, errUnexpectedQuery)
	}
	return &scriptedCursor{columns: r.columns, rows: r.rows}, nil
}

type scriptedCursor struct {
	columns []string
	rows    [][]any
	pos     int
}

func (c *scriptedCursor) Columns() []string { return c.columns }

func (c *scriptedCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *scriptedCursor) Values() ([]any, error) { return c.rows[c.pos-1], nil }

func (c *scriptedCursor) Err() error { return nil }

func (c *scriptedCursor) Close() error { return nil }

func quietHandler() *ErrorHandler {
	return NewErrorHandler("test", slog.LevelWarn, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// geoDatabase builds COUNTRY(code, name, capital, updated),
// STATE(id, country -> COUNTRY, code) and CITY(id, state_id -> STATE, name).
func geoDatabase(t *testing.T) *model.Database {
	t.Helper()
	ctx := context.Background()
	db := model.NewDatabase("geo", "test", nil)
	db.ProductName = "SQLite"
	s := db.CreateCatalog("").CreateSchema("main")

	country := s.CreateTable("COUNTRY", model.TableTypeTable)
	state := s.CreateTable("STATE", model.TableTypeTable)
	city := s.CreateTable("CITY", model.TableTypeTable)

	addColumns(t, country, "code", "name", "capital", "updated")
	addColumns(t, state, "id", "country", "code")
	addColumns(t, city, "id", "state_id", "name")

	for table, pk := range map[*model.Table]string{country: "code", state: "id", city: "id"} {
		_, err := model.NewPrimaryKey(table, table.Name()+"_pk", true, pk)
		require.NoError(t, err)
	}

	fk, err := model.NewForeignKey("state_country_fk", true, state, []string{"country"}, country, []string{"code"})
	require.NoError(t, err)
	require.NoError(t, state.AddForeignKey(ctx, fk))
	fk, err = model.NewForeignKey("city_state_fk", true, city, []string{"state_id"}, state, []string{"id"})
	require.NoError(t, err)
	require.NoError(t, city.AddForeignKey(ctx, fk))
	return db
}

func addColumns(t *testing.T, table *model.Table, columns ...string) {
	t.Helper()
	for _, c := range columns {
		require.NoError(t, table.AddColumn(context.Background(), model.NewColumn(c, "varchar")))
	}
}

const (
	countryQuery  = "SELECT name, code FROM COUNTRY"
	countryPKs    = `SELECT "code" FROM "main"."COUNTRY"`
	stateSubQuery = "SELECT code, id FROM STATE WHERE country = ?"
	cityKeys      = `SELECT t0."name", t0."state_id", t0."id" FROM "main"."CITY" t0`
)

// geoProvider registers the identities in reverse dependency order.
func geoProvider(t *testing.T) *Provider {
	t.Helper()
	p := NewProvider()
	p.SetErrorHandler(quietHandler())
	require.NoError(t, p.Add(NewUniqueKeyIdentity("CITY", "name", "state_id")))
	require.NoError(t, p.Add(NewSubNkPkQueryIdentity("STATE", []string{"COUNTRY"}, stateSubQuery)))
	require.NoError(t, p.Add(NewNkPkQueryIdentity("COUNTRY", countryQuery)))
	return p
}

func geoSource() *scriptedConnection {
	c := newScriptedConnection()
	c.on(countryQuery, nil, []string{"name", "code"}, []any{"Germany", "DE"}, []any{"France", "FR"})
	c.on(countryPKs, nil, []string{"code"}, []any{"DE"}, []any{"FR"}, []any{"XX"})
	c.on(stateSubQuery, []any{"DE"}, []string{"code", "id"}, []any{"BY", int64(1)}, []any{"BE", int64(2)})
	c.on(stateSubQuery, []any{"FR"}, []string{"code", "id"}, []any{"PA", int64(3)})
	c.on(cityKeys, nil, []string{"name", "state_id", "id"},
		[]any{"Munich", int64(1), int64(10)},
		[]any{"Paris", int64(3), int64(11)},
		[]any{"Ghost", int64(99), int64(12)})
	return c
}

func geoTarget() *scriptedConnection {
	c := newScriptedConnection()
	c.on(countryQuery, nil, []string{"name", "code"}, []any{"Germany", "DX"})
	c.on(countryPKs, nil, []string{"code"}, []any{"DX"})
	c.on(stateSubQuery, []any{"DX"}, []string{"code", "id"}, []any{"BY", int64(1001)})
	c.on(cityKeys, nil, []string{"name", "state_id", "id"}, []any{"Munich", int64(1001), int64(500)})
	return c
}
