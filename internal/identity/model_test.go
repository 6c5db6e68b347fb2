package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranscode/internal/model"
)

func TestExtractPK(t *testing.T) {
	identity := NewNkPkQueryIdentity("STATE", "")

	tests := []struct {
		name    string
		tuple   []any
		want    any
		wantErr error
	}{
		{name: "empty tuple", tuple: nil, wantErr: model.ErrUnsupportedOperation},
		{name: "natural key only", tuple: []any{"DE"}, wantErr: model.ErrUnsupportedOperation},
		{name: "single column key", tuple: []any{"DE|BY", int64(1)}, want: int64(1)},
		{name: "composite key", tuple: []any{"DE|BY", "DE", int64(1)}, want: []any{"DE", int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity.ExtractPK(tt.tuple)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractNK(t *testing.T) {
	identity := NewNkPkQueryIdentity("COUNTRY", "")
	assert.Equal(t, "DE", identity.ExtractNK([]any{"DE", 1}))
	assert.Equal(t, "DE", identity.ExtractNK([]any{[]byte("DE"), 1}))
	assert.Equal(t, "42", identity.ExtractNK([]any{42, 1}))
	assert.Equal(t, "", identity.ExtractNK(nil))
}

func TestIdentityEquality(t *testing.T) {
	assert.True(t, Equal(NewNkPkQueryIdentity("COUNTRY", "a"), NewNkPkQueryIdentity("country", "b")))
	assert.False(t, Equal(NewNkPkQueryIdentity("COUNTRY", "a"), NewNoIdentity("COUNTRY")))
	assert.False(t, Equal(NewNoIdentity("COUNTRY"), NewNoIdentity("STATE")))
	assert.False(t, Equal(NewNoIdentity("COUNTRY"), nil))
	assert.True(t, Equal(nil, nil))
}

func TestIrrelevantColumns(t *testing.T) {
	identity := NewUniqueKeyIdentity("COUNTRY", "name")
	identity.AddIrrelevantColumn("updated")
	identity.AddIrrelevantColumn("UPDATED")
	assert.Equal(t, []string{"updated"}, identity.IrrelevantColumns())
}

func TestNkPkQueryIterator(t *testing.T) {
	ctx := context.Background()
	db := geoDatabase(t)
	conn := geoSource()
	identity := NewNkPkQueryIdentity("COUNTRY", countryQuery)

	it, err := identity.CreateNkPkIterator(ctx, conn, "s", nil, db)
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.Next() {
		pk, err := identity.ExtractPK(it.Tuple())
		require.NoError(t, err)
		got = append(got, identity.ExtractNK(it.Tuple())+"="+pk.(string))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"Germany=DE", "France=FR"}, got)

	_, err = NewNkPkQueryIdentity("COUNTRY", " ").CreateNkPkIterator(ctx, conn, "s", nil, db)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestSubNkPkQueryIterator(t *testing.T) {
	ctx := context.Background()
	db := geoDatabase(t)
	p := geoProvider(t)
	mapper := NewMemKeyMapper(geoSource(), "s", nil, "", p, db)
	mapper.Store("s", "COUNTRY", "Germany", "DE")
	mapper.Store("s", "COUNTRY", "France", "FR")

	state, ok := p.Identity("state")
	require.True(t, ok)
	it, err := state.CreateNkPkIterator(ctx, geoSource(), "s", mapper, db)
	require.NoError(t, err)

	var tuples [][]any
	for it.Next() {
		tuples = append(tuples, it.Tuple())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, [][]any{
		{"Germany|BY", int64(1)},
		{"Germany|BE", int64(2)},
		{"France|PA", int64(3)},
	}, tuples)

	messages := p.ErrorHandler().Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Missing: s.COUNTRY[XX]")

	_, err = state.CreateNkPkIterator(ctx, geoSource(), "s", nil, db)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestBindPlaceholders(t *testing.T) {
	db := geoDatabase(t)
	assert.Equal(t, "SELECT a FROM t WHERE x = ? AND y = '?'",
		bindPlaceholders("SELECT a FROM t WHERE x = ? AND y = '?'", dialectOf(db)))

	db.ProductName = "PostgreSQL"
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = '?' AND z = $2",
		bindPlaceholders("SELECT a FROM t WHERE x = ? AND y = '?' AND z = ?", dialectOf(db)))
	assert.Equal(t, 2, countPlaceholders("x = ? AND y = '?' AND z = ?"))
}

func TestUniqueKeySelectStatement(t *testing.T) {
	ctx := context.Background()
	db := geoDatabase(t)
	p := geoProvider(t)

	city, _ := p.Identity("CITY")
	query, err := city.(*UniqueKeyIdentity).SelectStatement(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, cityKeys, query)

	byPath := NewUniqueKeyIdentity("CITY", "name", "CITY(state_id) -> STATE(country) -> COUNTRY(code)")
	require.NoError(t, p.Add(byPath))
	query, err = byPath.SelectStatement(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, `SELECT t0."name", t2."code", t0."id" FROM "main"."CITY" t0`+
		` LEFT JOIN "main"."STATE" t1 ON t0."state_id" = t1."id"`+
		` LEFT JOIN "main"."COUNTRY" t2 ON t1."country" = t2."code"`, query)

	deps, err := byPath.Dependencies(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"COUNTRY"}, deps)

	tests := []struct {
		name       string
		components []string
		want       error
	}{
		{name: "no components", want: model.ErrInvalidArgument},
		{name: "unknown column", components: []string{"zip"}, want: model.ErrNotFound},
		{name: "path from another table", components: []string{"STATE(country) -> COUNTRY(code)"}, want: model.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUniqueKeyIdentity("CITY", tt.components...).SelectStatement(ctx, db)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUniqueKeyDropsRowsWithoutOwner(t *testing.T) {
	ctx := context.Background()
	db := geoDatabase(t)
	p := geoProvider(t)
	mapper := NewMemKeyMapper(nil, "s", nil, "", p, db)
	mapper.Store("s", "STATE", "Germany|BY", int64(1))

	city, _ := p.Identity("CITY")
	it, err := city.CreateNkPkIterator(ctx, geoSource(), "s", mapper, db)
	require.NoError(t, err)
	defer it.Close()

	var nks []string
	for it.Next() {
		nks = append(nks, city.ExtractNK(it.Tuple()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"Munich|Germany|BY"}, nks)
	assert.Equal(t, 2, p.ErrorHandler().Count())
	assert.Contains(t, p.ErrorHandler().Messages()[1], "Owner of s.CITY[12] was dropped. Missing: s.STATE[99]")
}

func TestNoIdentity(t *testing.T) {
	it, err := NewNoIdentity("LOG").CreateNkPkIterator(context.Background(), nil, "s", nil, nil)
	require.NoError(t, err)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.NoError(t, it.Close())
}
