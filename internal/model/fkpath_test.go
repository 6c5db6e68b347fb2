package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nameEdge(t *testing.T, owner, referee *Table, columns, refColumns []string) *ForeignKey {
	t.Helper()
	fk, err := NewForeignKey("Name", true, owner, columns, referee, refColumns)
	require.NoError(t, err)
	return fk
}

func singleEdge(t *testing.T, refereeName string) *ForeignKey {
	return nameEdge(t, NewTable("Name"), NewTable(refereeName), []string{"Fk Column Name"}, []string{"Referee Column Name"})
}

func threeEdgePath(t *testing.T) *ForeignKeyPath {
	return NewForeignKeyPath(singleEdge(t, "Name"), singleEdge(t, "Name"), singleEdge(t, "Name"))
}

func TestParseUnresolvableSpecYieldsEmptyPath(t *testing.T) {
	db := importFakeDatabase(newFakeImporter())
	p := ParseForeignKeyPath(context.Background(), "Spec", db)

	assert.Empty(t, p.StartTable())
	assert.Empty(t, p.TargetTable())
	assert.Empty(t, p.TablePath())
	assert.Empty(t, p.Edges())
	assert.Empty(t, p.String())
	assert.False(t, p.HasIntermediate(NewTable("Name")))
}

func TestParseStrictRejectsUnresolvableSpec(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())

	tests := []struct {
		name string
		spec string
		want error
	}{
		{name: "unknown table", spec: "Spec", want: ErrNotFound},
		{name: "malformed segment", spec: "STATE(country -> COUNTRY", want: ErrInvalidArgument},
		{name: "missing columns", spec: "STATE -> COUNTRY(code)", want: ErrInvalidArgument},
		{name: "wrong referee", spec: "CITY(state_id) -> COUNTRY(code)", want: ErrInvalidArgument},
		{name: "unknown foreign key", spec: "STATE(code) -> COUNTRY(code)", want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForeignKeyPathStrict(ctx, tt.spec, db)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, ParseForeignKeyPath(ctx, tt.spec, db).Edges())
		})
	}
}

func TestParseResolvesChain(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())

	p, err := ParseForeignKeyPathStrict(ctx, "CITY(state_id) -> STATE(country) -> COUNTRY(code)", db)
	require.NoError(t, err)
	assert.Equal(t, "CITY", p.StartTable())
	assert.Equal(t, "COUNTRY", p.TargetTable())
	assert.Equal(t, "CITY, STATE, COUNTRY", p.TablePath())
	assert.Equal(t, "CITY(state_id) -> STATE(country) -> COUNTRY(code)", p.String())
	assert.Equal(t, []string{"code"}, p.EndColumnNames())

	state, err := db.Table("STATE")
	require.NoError(t, err)
	assert.True(t, p.HasIntermediate(state))

	reparsed := ParseForeignKeyPath(ctx, p.String(), db)
	assert.Equal(t, p.String(), reparsed.String())

	anchored := ParseForeignKeyPath(ctx, "city", db)
	assert.Equal(t, "CITY", anchored.StartTable())
	assert.Empty(t, anchored.Edges())
}

func TestAnchoredPath(t *testing.T) {
	p := AnchoredForeignKeyPath("Start Table")
	assert.Equal(t, "Start Table", p.StartTable())
	assert.Empty(t, p.TablePath())
	assert.Empty(t, NewForeignKeyPath().StartTable())
}

func TestMultiEdgePath(t *testing.T) {
	p := threeEdgePath(t)

	assert.Len(t, p.EndColumnNames(), 1)
	assert.Len(t, p.Edges(), 3)
	assert.Equal(t, "Name", p.StartTable())
	assert.Equal(t, "Name", p.TargetTable())
	assert.Len(t, p.Intermediates(), 2)
	assert.True(t, p.HasIntermediate(NewTable("Name")))
	assert.Equal(t, "Name, Name, Name, Name", p.TablePath())
	assert.Equal(t, "Name(Fk Column Name) -> Name(Fk Column Name) -> Name(Fk Column Name) -> Name(Referee Column Name)", p.String())
}

func TestHasIntermediateComparesTables(t *testing.T) {
	p := NewForeignKeyPath(singleEdge(t, "Other"), singleEdge(t, "Name"), singleEdge(t, "Name"))
	assert.True(t, p.HasIntermediate(NewTable("Name")))
	assert.True(t, p.HasIntermediate(NewTable("other")))
	assert.False(t, p.HasIntermediate(NewTable("Third")))

	db := NewDatabase("db", "env", nil)
	scoped := db.CreateCatalog("").CreateSchema("s").CreateTable("Name", TableTypeTable)
	assert.False(t, p.HasIntermediate(scoped))
}

func TestDerivePath(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	empty := ParseForeignKeyPath(ctx, "Spec", db)

	scopedOwner := db.CreateCatalog("").CreateSchema("Name").CreateTable("Name", TableTypeTable)
	wide := nameEdge(t, NewTable("Name"), NewTable("Name"), []string{"foo", "foo", "foo"}, []string{"foo", "foo", "foo"})

	tests := []struct {
		name      string
		path      *ForeignKeyPath
		edge      *ForeignKey
		wantErr   bool
		wantEdges int
		wantEnd   int
	}{
		{name: "empty path anchors the edge", path: empty, edge: singleEdge(t, "Name"), wantEdges: 1, wantEnd: 1},
		{name: "extends a chain", path: threeEdgePath(t), edge: singleEdge(t, "Name"), wantEdges: 4, wantEnd: 1},
		{name: "incompatible start marker", path: AnchoredForeignKeyPath("Start Table"), edge: singleEdge(t, "Name"), wantErr: true},
		{name: "owner in a schema", path: empty, edge: nameEdge(t, scopedOwner, NewTable("Name"), []string{"a"}, []string{"b"}), wantEdges: 1, wantEnd: 1},
		{name: "composite edge", path: empty, edge: wide, wantEdges: 1, wantEnd: 3},
		{name: "composite edge against start marker", path: AnchoredForeignKeyPath("Start Table"), edge: wide, wantErr: true},
		{name: "matching start marker", path: AnchoredForeignKeyPath("name"), edge: singleEdge(t, "Name"), wantEdges: 1, wantEnd: 1},
		{name: "broken chain", path: NewForeignKeyPath(singleEdge(t, "Other")), edge: singleEdge(t, "Name"), wantErr: true},
		{name: "nil edge", path: empty, edge: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.path.Edges())
			derived, err := tt.path.DerivePath(tt.edge)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Len(t, derived.Edges(), tt.wantEdges)
			assert.Equal(t, before+1, derived.Len())
			assert.Len(t, derived.EndColumnNames(), tt.wantEnd)
			assert.Equal(t, tt.edge.RefereeColumnNames(), derived.EndColumnNames())
			assert.Equal(t, "Name", derived.StartTable())
			assert.Len(t, tt.path.Edges(), before)
		})
	}
}

func TestFindForeignKeyPaths(t *testing.T) {
	ctx := context.Background()
	db := importFakeDatabase(newFakeImporter())
	city, err := db.Table("CITY")
	require.NoError(t, err)
	country, err := db.Table("COUNTRY")
	require.NoError(t, err)

	paths, err := FindForeignKeyPaths(ctx, city, country, 3)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "CITY(state_id) -> STATE(country) -> COUNTRY(code)", paths[0].String())

	paths, err = FindForeignKeyPaths(ctx, city, country, 1)
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = FindForeignKeyPaths(ctx, country, city, 3)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
