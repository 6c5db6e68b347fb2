package schema

import (
	"context"
	"fmt"

	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/names"
)

// FromDatabase imports every component group of db and copies the graph into
// a Snapshot.
func FromDatabase(ctx context.Context, db *model.Database) (*Snapshot, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil: %w", model.ErrInvalidArgument)
	}
	s := &Snapshot{
		Version:        FormatVersion,
		Name:           db.Name,
		Environment:    db.Environment,
		ProductName:    db.ProductName,
		ProductVersion: db.ProductVersion,
	}
	for _, c := range db.Catalogs() {
		catalog := Catalog{Name: c.Name()}
		for _, sc := range c.Schemas() {
			sch := Schema{Name: sc.Name()}
			for _, t := range sc.Tables() {
				table, err := snapshotTable(ctx, t)
				if err != nil {
					return nil, err
				}
				sch.Tables = append(sch.Tables, table)
			}
			catalog.Schemas = append(catalog.Schemas, sch)
		}
		s.Catalogs = append(s.Catalogs, catalog)
	}
	return s, nil
}

func snapshotTable(ctx context.Context, t *model.Table) (Table, error) {
	if err := t.LoadAll(ctx); err != nil {
		return Table{}, fmt.Errorf("failed to load table %s: %w", t.Name(), err)
	}
	table := Table{Name: t.Name(), Type: string(t.Type()), Doc: t.Doc}

	columns, err := t.Columns(ctx)
	if err != nil {
		return Table{}, err
	}
	for _, c := range columns {
		table.Columns = append(table.Columns, Column{
			Name:           c.Name,
			Type:           c.Type,
			Size:           c.Size,
			FractionDigits: c.FractionDigits,
			Nullable:       c.Nullable,
			DefaultValue:   c.Default,
			Comment:        c.Comment,
		})
	}

	pk, err := t.PrimaryKey(ctx)
	if err != nil {
		return Table{}, err
	}
	if pk != nil {
		table.PrimaryKey = &Key{Name: pk.Name, Deterministic: pk.DeterministicName, Columns: pk.ColumnNames()}
	}

	uniques, err := t.UniqueConstraints(ctx, false)
	if err != nil {
		return Table{}, err
	}
	for _, uk := range uniques {
		table.Uniques = append(table.Uniques, Key{Name: uk.Name, Deterministic: uk.DeterministicName, Columns: uk.ColumnNames()})
	}

	indexes, err := t.Indexes(ctx)
	if err != nil {
		return Table{}, err
	}
	for _, idx := range indexes {
		table.Indexes = append(table.Indexes, Index{
			Name:          idx.Name,
			Deterministic: idx.DeterministicName,
			IsUnique:      idx.IsUnique(),
			Columns:       idx.ColumnNames(),
		})
	}

	fks, err := t.ForeignKeys(ctx)
	if err != nil {
		return Table{}, err
	}
	for _, fk := range fks {
		targetSchema := ""
		if s := fk.Referee().Schema(); s != nil {
			targetSchema = s.Name()
		}
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Name:          fk.Name,
			Deterministic: fk.DeterministicName,
			Columns:       fk.ColumnNames(),
			TargetSchema:  targetSchema,
			TargetTable:   fk.Referee().Name(),
			TargetColumns: fk.RefereeColumnNames(),
		})
	}

	checks, err := t.CheckConstraints(ctx)
	if err != nil {
		return Table{}, err
	}
	for _, c := range checks {
		table.Checks = append(table.Checks, Check{Name: c.Name, Condition: c.Condition})
	}
	return table, nil
}

// ToDatabase rebuilds the graph. Every component group is marked imported;
// importer stays attached for groups that are reset later.
func (s *Snapshot) ToDatabase(importer model.Importer) (*model.Database, error) {
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("snapshot version %d, expected %d: %w", s.Version, FormatVersion, model.ErrUnsupportedOperation)
	}
	db := model.NewDatabase(s.Name, s.Environment, importer)
	db.ProductName = s.ProductName
	db.ProductVersion = s.ProductVersion

	type pending struct {
		table *model.Table
		data  Table
	}
	var tables []pending
	for _, c := range s.Catalogs {
		catalog := db.CreateCatalog(c.Name)
		for _, sc := range c.Schemas {
			sch := catalog.CreateSchema(sc.Name)
			for _, t := range sc.Tables {
				table := sch.CreateTable(t.Name, model.TableType(t.Type))
				table.Doc = t.Doc
				tables = append(tables, pending{table: table, data: t})
			}
		}
	}

	for _, p := range tables {
		if err := restoreKeys(p.table, p.data); err != nil {
			return nil, fmt.Errorf("failed to restore table %s: %w", p.data.Name, err)
		}
	}
	for _, p := range tables {
		if err := restoreForeignKeys(db, p.table, p.data); err != nil {
			return nil, fmt.Errorf("failed to restore table %s: %w", p.data.Name, err)
		}
	}
	db.SetChecksImported(true)
	return db, nil
}

func restoreKeys(t *model.Table, data Table) error {
	for _, c := range data.Columns {
		t.ReceiveColumn(&model.Column{
			Name:           c.Name,
			Type:           c.Type,
			Size:           c.Size,
			FractionDigits: c.FractionDigits,
			Nullable:       c.Nullable,
			Default:        c.DefaultValue,
			Comment:        c.Comment,
		})
	}
	t.SetColumnsImported(true)

	var pk *model.UniqueConstraint
	if data.PrimaryKey != nil {
		var err error
		if pk, err = model.NewPrimaryKey(t, data.PrimaryKey.Name, data.PrimaryKey.Deterministic, data.PrimaryKey.Columns...); err != nil {
			return err
		}
	}
	t.SetPKImported(true)

	uniques := make([]*model.UniqueConstraint, 0, len(data.Uniques))
	for _, u := range data.Uniques {
		uk, err := model.NewUniqueConstraint(t, u.Name, u.Deterministic, u.Columns...)
		if err != nil {
			return err
		}
		t.ReceiveUniqueConstraint(uk)
		uniques = append(uniques, uk)
	}
	for _, i := range data.Indexes {
		idx, err := restoreIndex(t, i, pk, uniques)
		if err != nil {
			return err
		}
		t.ReceiveIndex(idx)
	}
	t.SetIndexesImported(true)

	for _, c := range data.Checks {
		t.ReceiveCheckConstraint(&model.CheckConstraint{Name: c.Name, Condition: c.Condition})
	}
	return nil
}

func restoreIndex(t *model.Table, i Index, pk *model.UniqueConstraint, uniques []*model.UniqueConstraint) (*model.Index, error) {
	if !i.IsUnique {
		return model.NewIndex(i.Name, i.Deterministic, t, i.Columns...)
	}
	if pk != nil && names.EqualSlices(pk.ColumnNames(), i.Columns) {
		return model.NewUniqueIndex(i.Name, i.Deterministic, pk)
	}
	for _, uk := range uniques {
		if names.EqualSlices(uk.ColumnNames(), i.Columns) {
			return model.NewUniqueIndex(i.Name, i.Deterministic, uk)
		}
	}
	uk, err := model.NewUniqueConstraint(t, i.Name, i.Deterministic, i.Columns...)
	if err != nil {
		return nil, err
	}
	t.ReceiveUniqueConstraint(uk)
	return model.NewUniqueIndex(i.Name, i.Deterministic, uk)
}

func restoreForeignKeys(db *model.Database, t *model.Table, data Table) error {
	for _, f := range data.ForeignKeys {
		referee, err := db.TableIn(f.TargetSchema, f.TargetTable)
		if err != nil {
			return fmt.Errorf("foreign key %s: %w", f.Name, err)
		}
		fk, err := model.NewForeignKey(f.Name, f.Deterministic, t, f.Columns, referee, f.TargetColumns)
		if err != nil {
			return err
		}
		t.ReceiveForeignKey(fk)
	}
	t.SetForeignKeysImported(true)
	return nil
}
