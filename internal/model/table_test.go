package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	db := importFakeDatabase(f)
	state, err := db.Table("STATE")
	require.NoError(t, err)

	assert.Equal(t, Unloaded, state.ColumnsState())
	for i := 0; i < 3; i++ {
		_, err := state.Columns(ctx)
		require.NoError(t, err)
		_, err = state.PrimaryKey(ctx)
		require.NoError(t, err)
		_, err = state.Indexes(ctx)
		require.NoError(t, err)
		_, err = state.ForeignKeys(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.calls["columns:STATE"])
	assert.Equal(t, 1, f.calls["pk:STATE"])
	assert.Equal(t, 1, f.calls["indexes:STATE"])
	assert.Equal(t, 1, f.calls["fks:STATE"])
	assert.Equal(t, Loaded, state.ColumnsState())
	assert.Equal(t, Loaded, state.PKState())
	assert.Equal(t, Loaded, state.IndexesState())
	assert.Equal(t, Loaded, state.ForeignKeysState())
}

func TestPrerequisiteGroupsImportFirst(t *testing.T) {
	tests := []struct {
		name   string
		access func(ctx context.Context, t *Table) error
		want   []string
	}{
		{
			name:   "primary key",
			access: func(ctx context.Context, t *Table) error { _, err := t.PrimaryKey(ctx); return err },
			want:   []string{"columns:STATE", "pk:STATE"},
		},
		{
			name:   "indexes",
			access: func(ctx context.Context, t *Table) error { _, err := t.Indexes(ctx); return err },
			want:   []string{"columns:STATE", "pk:STATE", "indexes:STATE"},
		},
		{
			name:   "foreign keys",
			access: func(ctx context.Context, t *Table) error { _, err := t.ForeignKeys(ctx); return err },
			want:   []string{"columns:STATE", "pk:STATE", "fks:STATE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeImporter()
			db := importFakeDatabase(f)
			state, err := db.Table("state")
			require.NoError(t, err)

			require.NoError(t, tt.access(context.Background(), state))
			assert.Equal(t, tt.want, f.order)
		})
	}
}

func TestFailedImportFallsBackToUnloaded(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	f.fail["columns:COUNTRY"] = errImportFailed
	db := importFakeDatabase(f)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)

	_, err = country.Columns(ctx)
	require.ErrorIs(t, err, errImportFailed)
	assert.Equal(t, Unloaded, country.ColumnsState())

	delete(f.fail, "columns:COUNTRY")
	names, err := country.ColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "name"}, names)
	assert.Equal(t, 2, f.calls["columns:COUNTRY"])
}

func TestSetImportedFalseForcesReimport(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	db := importFakeDatabase(f)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)

	_, err = country.Columns(ctx)
	require.NoError(t, err)
	country.SetColumnsImported(false)
	assert.Equal(t, Unloaded, country.ColumnsState())

	_, err = country.Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls["columns:COUNTRY"])
}

func TestSetImportedTrueSkipsImporter(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	db := importFakeDatabase(f)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)

	country.ReceiveColumn(NewColumn("iso", "char"))
	country.SetColumnsImported(true)

	names, err := country.ColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"iso"}, names)
	assert.Zero(t, f.calls["columns:COUNTRY"])
}

func TestPKColumnNamesKeepDeclarationOrder(t *testing.T) {
	ctx := context.Background()
	table := NewTable("ORDER_LINE")
	for _, c := range []string{"line", "order_id", "product"} {
		require.NoError(t, table.AddColumn(ctx, NewColumn(c, "int")))
	}
	pk, err := NewUniqueConstraint(nil, "order_line_pk", true, "order_id", "line")
	require.NoError(t, err)
	require.NoError(t, table.SetPrimaryKey(ctx, pk))

	names, err := table.PKColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "line"}, names)

	require.NoError(t, table.AddColumn(ctx, NewColumn("quantity", "int")))
	names, err = table.PKColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "line"}, names)
}

func TestNewPrimaryKeyAttachesToTable(t *testing.T) {
	ctx := context.Background()
	table := NewTable("Name")
	pk, err := NewPrimaryKey(table, "Name", true, "foo", "foo", "foo")
	require.NoError(t, err)

	assert.Same(t, table, pk.Table())
	assert.True(t, pk.IsPrimary())
	assert.Equal(t, Loaded, table.PKState())
	names, err := table.PKColumnNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3)
	columns, err := table.ColumnNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, columns)

	_, err = NewPrimaryKey(nil, "empty", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestColumnLookup(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	state, err := db.Table("STATE")
	require.NoError(t, err)

	c, err := state.Column(ctx, "COUNTRY")
	require.NoError(t, err)
	assert.Equal(t, "country", c.Name)
	assert.Same(t, state, c.Table())
	assert.Equal(t, "varchar(2)", c.TypeString())

	_, err = state.Column(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = state.ColumnsByName(ctx, []string{"id", "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUniqueIndexMatchingPKReusesConstraint(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)

	idx, err := country.Index(ctx, "country_pk_idx")
	require.NoError(t, err)
	pk, err := country.PrimaryKey(ctx)
	require.NoError(t, err)
	assert.Same(t, pk, idx.Constraint())

	uniques, err := country.UniqueConstraints(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, uniques)
}

func TestUniqueConstraintsAndIndexes(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	state, err := db.Table("STATE")
	require.NoError(t, err)

	uniques, err := state.UniqueConstraints(ctx, true)
	require.NoError(t, err)
	require.Len(t, uniques, 2)
	assert.True(t, uniques[0].IsPrimary())
	assert.Equal(t, "CONSTRAINT state_nk UNIQUE (country, code)", uniques[1].String())

	uk, err := state.UniqueConstraintByColumns(ctx, "COUNTRY", "CODE")
	require.NoError(t, err)
	assert.Equal(t, "state_nk", uk.Name)

	_, err = state.UniqueConstraintByName(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	idx, err := state.Index(ctx, "state_code_idx")
	require.NoError(t, err)
	assert.False(t, idx.IsUnique())
	assert.Equal(t, "INDEX state_code_idx (code)", idx.String())

	require.NoError(t, state.RemoveIndex(ctx, idx))
	_, err = state.Index(ctx, "state_code_idx")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, state.RemoveUniqueConstraint(ctx, uk))
	uniques, err = state.UniqueConstraints(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, uniques)

	bad, err := NewUniqueConstraint(nil, "bad", false, "nonexistent")
	require.NoError(t, err)
	assert.ErrorIs(t, state.AddUniqueConstraint(ctx, bad), ErrNotFound)
}

func TestForeignKeysResolveReferees(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	city, err := db.Table("CITY")
	require.NoError(t, err)

	fk, err := city.ForeignKeyByColumns(ctx, "STATE_ID")
	require.NoError(t, err)
	assert.Equal(t, "STATE", fk.Referee().Name())
	assert.Equal(t, []string{"id"}, fk.RefereeColumnNames())
	assert.Equal(t, "CONSTRAINT city_state_fk FOREIGN KEY (state_id) REFERENCES STATE(id)", fk.String())

	_, err = city.ForeignKeyByColumns(ctx, "name")
	assert.ErrorIs(t, err, ErrNotFound)

	providers, err := city.Providers(ctx)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "STATE", providers[0].Name())

	required, err := city.RequiresProvider(ctx, 0)
	require.NoError(t, err)
	assert.False(t, required)

	state, err := db.Table("STATE")
	require.NoError(t, err)
	required, err = state.RequiresProvider(ctx, 0)
	require.NoError(t, err)
	assert.True(t, required)
}

func TestForeignKeyArity(t *testing.T) {
	a, b := NewTable("A"), NewTable("B")
	_, err := NewForeignKey("fk", false, a, []string{"x", "y"}, b, []string{"id"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewForeignKey("fk", false, a, nil, b, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewForeignKey("fk", false, nil, []string{"x"}, b, []string{"id"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReferrersFollowForeignKeys(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)
	state, err := db.Table("STATE")
	require.NoError(t, err)

	referrers, err := country.Referrers(ctx)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Same(t, state, referrers[0])

	fk, err := state.ForeignKeyByColumns(ctx, "country")
	require.NoError(t, err)
	require.NoError(t, state.RemoveForeignKey(ctx, fk))

	referrers, err = country.Referrers(ctx)
	require.NoError(t, err)
	assert.Empty(t, referrers)
}

func TestReferrersUseImporterHints(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	ri := &referrerImporter{fakeImporter: f, referrers: map[string][]string{"STATE": {"CITY"}}}
	db := importFakeDatabase(f)
	db.SetImporter(ri)
	state, err := db.Table("STATE")
	require.NoError(t, err)

	referrers, err := state.Referrers(ctx)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Equal(t, "CITY", referrers[0].Name())
	assert.Equal(t, 1, f.calls["referrers:STATE"])
	assert.Zero(t, f.calls["fks:COUNTRY"])
}

func TestCheckConstraintsImportPerDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	db := importFakeDatabase(f)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)
	state, err := db.Table("STATE")
	require.NoError(t, err)

	assert.Equal(t, Unloaded, country.ChecksState())
	checks, err := country.CheckConstraints(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "CONSTRAINT code_len CHECK (length(code) = 2)", checks[0].String())

	checks, err = state.CheckConstraints(ctx)
	require.NoError(t, err)
	assert.Empty(t, checks)
	assert.Equal(t, Loaded, state.ChecksState())
	assert.Equal(t, 1, f.calls["checks"])

	db.SetChecksImported(false)
	checks, err = country.CheckConstraints(ctx)
	require.NoError(t, err)
	assert.Len(t, checks, 1)
	assert.Equal(t, 2, f.calls["checks"])
}

func TestTableEquality(t *testing.T) {
	db := NewDatabase("db", "env", nil)
	s1 := db.CreateCatalog("").CreateSchema("public")
	s2 := db.CreateCatalog("").CreateSchema("other")

	a := s1.CreateTable("Person", TableTypeTable)
	b := NewTable("PERSON")
	c := s2.CreateTable("person", TableTypeTable)

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, NewTable("x").Equal(NewTable("X")))
	assert.Equal(t, "public.Person", a.QualifiedName())

	err := s2.AddTable(a)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestComponents(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	state, err := db.Table("public.STATE")
	require.NoError(t, err)

	components, err := state.Components(ctx)
	require.NoError(t, err)
	var kinds []string
	for _, c := range components {
		kinds = append(kinds, c.ObjectType())
	}
	assert.Equal(t, []string{
		"column", "column", "column",
		"primary key constraint", "unique constraint",
		"index", "index",
		"foreign key constraint",
	}, kinds)

	_, err = db.Table("public.MISSING")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestForeignKeyIntoOtherSchema(t *testing.T) {
	ctx := context.Background()
	f := newFakeImporter()
	f.fks["CITY"] = append(f.fks["CITY"], ForeignKeyInfo{
		Name: "city_owner_fk", Columns: []string{"name"}, RefSchema: "auth", RefTable: "users", RefColumns: []string{"login"},
	})
	db := importFakeDatabase(f)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)
	city, err := db.Table("CITY")
	require.NoError(t, err)

	referrers, err := country.Referrers(ctx)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Equal(t, "STATE", referrers[0].Name())

	fk, err := city.ForeignKeyByColumns(ctx, "name")
	require.NoError(t, err)
	users := fk.Referee()
	assert.Equal(t, "auth.users", users.QualifiedName())
	assert.Same(t, db, users.Database())
	assert.Equal(t, []string{"login"}, fk.RefereeColumnNames())

	columns, err := users.Columns(ctx)
	require.NoError(t, err)
	require.Len(t, columns, 1)
	assert.Equal(t, "login", columns[0].Name)
	assert.NoError(t, users.LoadAll(ctx))
	assert.Zero(t, f.calls["columns:users"])
	assert.Zero(t, f.calls["fks:users"])

	referrers, err = users.Referrers(ctx)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Same(t, city, referrers[0])

	// a missing table in the imported schema is still an error
	f.fks["STATE"] = append(f.fks["STATE"], ForeignKeyInfo{
		Name: "state_river_fk", Columns: []string{"code"}, RefSchema: "public", RefTable: "RIVER", RefColumns: []string{"id"},
	})
	state, err := db.Table("STATE")
	require.NoError(t, err)
	state.SetForeignKeysImported(false)
	_, err = state.ForeignKeys(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
