package identity

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/names"
)

// KeyMapper translates keys between databases. Databases are named by the ids
// passed to Store; Map and TargetPK resolve into the target database.
type KeyMapper interface {
	Store(dbID, table, nk string, pk any)
	NaturalKey(dbID, table string, pk any) (string, bool)
	Map(ctx context.Context, table, sourceDBID, nk string) (any, bool)
	TargetPK(ctx context.Context, table, sourceDBID string, sourcePK any) (any, bool)
	TargetID() string
}

// TableStats counts the keys a mapper holds for one table.
type TableStats struct {
	Table      string
	SourceKeys int
	TargetKeys int
	Missing    int
}

type tableKeys struct {
	pkToNK map[string]string
	nkToPK map[string]any
}

// MemKeyMapper keeps all key mappings in memory for the lifetime of the
// process. Build fills it; afterwards only Store modifies it.
type MemKeyMapper struct {
	source   model.Connection
	sourceID string
	target   model.Connection
	targetID string
	provider *Provider
	db       *model.Database
	logger   *slog.Logger

	// keys[dbID][normalized table]
	keys    map[string]map[string]*tableKeys
	tables  []string
	missing map[string]int
}

// NewMemKeyMapper creates a mapper between source and target. target may be
// nil when only the source keys are needed. db describes both databases.
func NewMemKeyMapper(source model.Connection, sourceID string, target model.Connection, targetID string, provider *Provider, db *model.Database) *MemKeyMapper {
	return &MemKeyMapper{
		source:   source,
		sourceID: sourceID,
		target:   target,
		targetID: targetID,
		provider: provider,
		db:       db,
		logger:   slog.Default(),
		keys:     map[string]map[string]*tableKeys{},
		missing:  map[string]int{},
	}
}

// SetLogger replaces the logger used for progress messages.
func (m *MemKeyMapper) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// TargetID returns the id of the target database.
func (m *MemKeyMapper) TargetID() string { return m.targetID }

// SourceID returns the id of the source database.
func (m *MemKeyMapper) SourceID() string { return m.sourceID }

func (m *MemKeyMapper) tableKeys(dbID, table string, create bool) *tableKeys {
	byTable, ok := m.keys[dbID]
	if !ok {
		if !create {
			return nil
		}
		byTable = map[string]*tableKeys{}
		m.keys[dbID] = byTable
	}
	key := names.Normalize(table)
	tk, ok := byTable[key]
	if !ok && create {
		tk = &tableKeys{pkToNK: map[string]string{}, nkToPK: map[string]any{}}
		byTable[key] = tk
		if !slices.ContainsFunc(m.tables, func(t string) bool { return names.Equal(t, table) }) {
			m.tables = append(m.tables, table)
		}
	}
	return tk
}

// Store records that the row of table with primary key pk has natural key nk in dbID.
func (m *MemKeyMapper) Store(dbID, table, nk string, pk any) {
	tk := m.tableKeys(dbID, table, true)
	tk.pkToNK[keyString(pk)] = nk
	tk.nkToPK[nk] = pk
}

// NaturalKey returns the natural key of the row of table with primary key pk in dbID.
func (m *MemKeyMapper) NaturalKey(dbID, table string, pk any) (string, bool) {
	tk := m.tableKeys(dbID, table, false)
	if tk == nil {
		return "", false
	}
	nk, ok := tk.pkToNK[keyString(pk)]
	return nk, ok
}

// PK returns the primary key of the row of table with natural key nk in dbID.
func (m *MemKeyMapper) PK(dbID, table, nk string) (any, bool) {
	tk := m.tableKeys(dbID, table, false)
	if tk == nil {
		return nil, false
	}
	pk, ok := tk.nkToPK[nk]
	return pk, ok
}

// Map returns the target primary key of the row with natural key nk. A miss
// is reported to the error handler of the table's identity.
func (m *MemKeyMapper) Map(ctx context.Context, table, sourceDBID, nk string) (any, bool) {
	pk, ok := m.PK(m.targetID, table, nk)
	if !ok {
		m.reportNKNotFound(ctx, nk, table, sourceDBID)
	}
	return pk, ok
}

// TargetPK translates a source primary key to the target primary key.
func (m *MemKeyMapper) TargetPK(ctx context.Context, table, sourceDBID string, sourcePK any) (any, bool) {
	nk, ok := m.NaturalKey(sourceDBID, table, sourcePK)
	if !ok {
		return nil, false
	}
	return m.Map(ctx, table, sourceDBID, nk)
}

func (m *MemKeyMapper) reportNKNotFound(ctx context.Context, nk, table, sourceDBID string) {
	if ident, ok := m.provider.Identity(table); ok {
		if r, ok := ident.(reporter); ok {
			r.handleNKNotFound(ctx, nk, table, sourceDBID, m.targetID)
			return
		}
	}
	m.provider.ErrorHandler().HandleError(ctx, fmt.Sprintf("Missing entry: %s.%s[%s] does not appear in %s",
		sourceDBID, table, nk, m.targetID))
}

// Build scans every identity in dependency order, first in the source and then
// in the target, and reports source natural keys the target lacks.
func (m *MemKeyMapper) Build(ctx context.Context) error {
	order, err := m.provider.ScanOrder(ctx, m.db)
	if err != nil {
		return fmt.Errorf("failed to order identities: %w", err)
	}
	for _, ident := range order {
		if err := m.scan(ctx, ident, m.source, m.sourceID); err != nil {
			return err
		}
		if m.target == nil {
			continue
		}
		if err := m.scan(ctx, ident, m.target, m.targetID); err != nil {
			return err
		}
		m.reportMissing(ctx, ident)
	}
	return nil
}

func (m *MemKeyMapper) scan(ctx context.Context, ident Model, conn model.Connection, dbID string) error {
	it, err := ident.CreateNkPkIterator(ctx, conn, dbID, m, m.db)
	if err != nil {
		return fmt.Errorf("failed to scan identity of %s in %s: %w", ident.Name(), dbID, err)
	}
	defer it.Close()

	// tables without rows still show up in Stats
	m.tableKeys(dbID, ident.Name(), true)
	count := 0
	for it.Next() {
		tuple := it.Tuple()
		pk, err := ident.ExtractPK(tuple)
		if err != nil {
			return err
		}
		nk := ident.ExtractNK(tuple)
		if prev, ok := m.PK(dbID, ident.Name(), nk); ok && keyString(prev) != keyString(pk) {
			ident.ErrorHandler().HandleError(ctx, fmt.Sprintf("Duplicate natural key: %s.%s[%s] is used by %s and %s",
				dbID, ident.Name(), nk, keyString(prev), keyString(pk)))
			continue
		}
		m.Store(dbID, ident.Name(), nk, pk)
		count++
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("failed to scan identity of %s in %s: %w", ident.Name(), dbID, err)
	}
	m.logger.Debug("scanned identity", "table", ident.Name(), "db", dbID, "keys", count)
	return nil
}

func (m *MemKeyMapper) reportMissing(ctx context.Context, ident Model) {
	source := m.tableKeys(m.sourceID, ident.Name(), false)
	target := m.tableKeys(m.targetID, ident.Name(), false)
	if source == nil {
		return
	}
	for _, nk := range slices.Sorted(maps.Keys(source.nkToPK)) {
		if target != nil {
			if _, ok := target.nkToPK[nk]; ok {
				continue
			}
		}
		m.missing[names.Normalize(ident.Name())]++
		m.reportNKNotFound(ctx, nk, ident.Name(), m.sourceID)
	}
}

// Stats returns key counts per table in the order tables were first seen.
func (m *MemKeyMapper) Stats() []TableStats {
	stats := make([]TableStats, 0, len(m.tables))
	for _, table := range m.tables {
		s := TableStats{Table: table, Missing: m.missing[names.Normalize(table)]}
		if tk := m.tableKeys(m.sourceID, table, false); tk != nil {
			s.SourceKeys = len(tk.nkToPK)
		}
		if tk := m.tableKeys(m.targetID, table, false); tk != nil {
			s.TargetKeys = len(tk.nkToPK)
		}
		stats = append(stats, s)
	}
	return stats
}

// CompareRows checks that rows matched by natural key hold equal values.
// Primary key, foreign key and irrelevant columns are skipped. Differences are
// reported to the identity's error handler.
func (m *MemKeyMapper) CompareRows(ctx context.Context, sourceRenderer, targetRenderer model.SQLRenderer) error {
	if m.target == nil {
		return fmt.Errorf("no target database to compare with: %w", model.ErrInvalidArgument)
	}
	for _, ident := range m.provider.Identities() {
		if err := m.compareTable(ctx, ident, sourceRenderer, targetRenderer); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemKeyMapper) compareTable(ctx context.Context, ident Model, sourceRenderer, targetRenderer model.SQLRenderer) error {
	source := m.tableKeys(m.sourceID, ident.Name(), false)
	target := m.tableKeys(m.targetID, ident.Name(), false)
	if source == nil || target == nil {
		return nil
	}
	table, err := m.db.Table(ident.Name())
	if err != nil {
		return err
	}
	columns, err := m.comparedColumns(ctx, table, ident)
	if err != nil {
		return err
	}
	for _, nk := range slices.Sorted(maps.Keys(source.nkToPK)) {
		targetPK, ok := target.nkToPK[nk]
		if !ok {
			continue
		}
		sourceRow, err := table.QueryByPK(ctx, m.source, sourceRenderer, source.nkToPK[nk])
		if err != nil {
			return err
		}
		targetRow, err := table.QueryByPK(ctx, m.target, targetRenderer, targetPK)
		if err != nil {
			return err
		}
		for _, c := range columns {
			sv, _ := sourceRow.Value(c)
			tv, _ := targetRow.Value(c)
			if keyString(sv) != keyString(tv) {
				message := fmt.Sprintf("Unequal values: %s.%s[%s].%s is %s in %s and %s in %s",
					m.sourceID, table.Name(), nk, c, keyString(sv), m.sourceID, keyString(tv), m.targetID)
				if r, ok := ident.(reporter); ok {
					r.handleNonEquivalence(ctx, message)
				} else {
					ident.ErrorHandler().HandleError(ctx, message)
				}
			}
		}
	}
	return nil
}

func (m *MemKeyMapper) comparedColumns(ctx context.Context, table *model.Table, ident Model) ([]string, error) {
	skip := names.NewSet()
	pkColumns, err := table.PKColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range pkColumns {
		skip.Add(c)
	}
	fks, err := table.ForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, fk := range fks {
		for _, c := range fk.ColumnNames() {
			skip.Add(c)
		}
	}
	for _, c := range ident.IrrelevantColumns() {
		skip.Add(c)
	}
	all, err := table.ColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, c := range all {
		if !skip.Contains(c) {
			result = append(result, c)
		}
	}
	return result, nil
}
