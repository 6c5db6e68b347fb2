package model

import (
	"context"
	"errors"
)

// fakeImporter serves a fixed COUNTRY/STATE/CITY schema and counts calls per group.
type fakeImporter struct {
	calls   map[string]int
	order   []string
	columns map[string][]ColumnInfo
	pks     map[string]PKInfo
	indexes map[string][]IndexInfo
	fks     map[string][]ForeignKeyInfo
	checks  []CheckInfo
	fail    map[string]error
}

func newFakeImporter() *fakeImporter {
	return &fakeImporter{
		calls: map[string]int{},
		columns: map[string][]ColumnInfo{
			"COUNTRY": {
				{Name: "code", Type: "varchar", Size: intPtr(2)},
				{Name: "name", Type: "varchar", Size: intPtr(40), Nullable: true},
			},
			"STATE": {
				{Name: "id", Type: "int"},
				{Name: "country", Type: "varchar", Size: intPtr(2)},
				{Name: "code", Type: "varchar", Size: intPtr(2)},
			},
			"CITY": {
				{Name: "id", Type: "int"},
				{Name: "state_id", Type: "int", Nullable: true},
				{Name: "name", Type: "varchar"},
			},
		},
		pks: map[string]PKInfo{
			"COUNTRY": {Name: "country_pk", Columns: []string{"code"}},
			"STATE":   {Name: "state_pk", Columns: []string{"id"}},
			"CITY":    {Name: "city_pk", Columns: []string{"id"}},
		},
		indexes: map[string][]IndexInfo{
			"COUNTRY": {{Name: "country_pk_idx", Unique: true, Columns: []string{"CODE"}}},
			"STATE": {
				{Name: "state_nk", Unique: true, Columns: []string{"country", "code"}},
				{Name: "state_code_idx", Columns: []string{"code"}},
			},
		},
		fks: map[string][]ForeignKeyInfo{
			"STATE": {{Name: "state_country_fk", Columns: []string{"country"}, RefTable: "COUNTRY", RefColumns: []string{"code"}}},
			"CITY":  {{Name: "city_state_fk", Columns: []string{"state_id"}, RefTable: "state"}},
		},
		checks: []CheckInfo{{Schema: "public", Table: "COUNTRY", Name: "code_len", Condition: "length(code) = 2"}},
		fail:   map[string]error{},
	}
}

func intPtr(i int) *int { return &i }

var errImportFailed = errors.New("import failed")

func (f *fakeImporter) record(group string, table *Table) error {
	key := group
	if table != nil {
		key = group + ":" + table.Name()
	}
	f.calls[key]++
	f.order = append(f.order, key)
	return f.fail[key]
}

func (f *fakeImporter) ImportDatabase(ctx context.Context) (*Database, error) {
	db := NewDatabase("test", "fake", f)
	s := db.CreateCatalog("").CreateSchema("public")
	for _, name := range []string{"COUNTRY", "STATE", "CITY"} {
		s.CreateTable(name, TableTypeTable)
	}
	return db, nil
}

func (f *fakeImporter) ImportColumns(ctx context.Context, table *Table, receive ColumnReceiver) error {
	if err := f.record("columns", table); err != nil {
		return err
	}
	for _, c := range f.columns[table.Name()] {
		if err := receive(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeImporter) ImportPrimaryKey(ctx context.Context, table *Table, receive PKReceiver) error {
	if err := f.record("pk", table); err != nil {
		return err
	}
	if pk, ok := f.pks[table.Name()]; ok {
		return receive(pk)
	}
	return nil
}

func (f *fakeImporter) ImportIndexes(ctx context.Context, table *Table, receive IndexReceiver) error {
	if err := f.record("indexes", table); err != nil {
		return err
	}
	for _, idx := range f.indexes[table.Name()] {
		if err := receive(idx); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeImporter) ImportForeignKeys(ctx context.Context, table *Table, receive FKReceiver) error {
	if err := f.record("fks", table); err != nil {
		return err
	}
	for _, fk := range f.fks[table.Name()] {
		if err := receive(fk); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeImporter) ImportChecks(ctx context.Context, db *Database, receive CheckReceiver) error {
	if err := f.record("checks", nil); err != nil {
		return err
	}
	for _, c := range f.checks {
		if err := receive(c); err != nil {
			return err
		}
	}
	return nil
}

// referrerImporter narrows referrer scans to the tables it names.
type referrerImporter struct {
	*fakeImporter
	referrers map[string][]string
}

func (r *referrerImporter) ImportReferrers(ctx context.Context, table *Table, receive ReferrerReceiver) error {
	r.calls["referrers:"+table.Name()]++
	for _, name := range r.referrers[table.Name()] {
		if err := receive("public", name); err != nil {
			return err
		}
	}
	return nil
}

func importFakeDatabase(f *fakeImporter) *Database {
	db, _ := f.ImportDatabase(context.Background())
	return db
}
