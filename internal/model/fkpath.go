package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/dbtranscode/internal/names"
)

// ForeignKeyPath is a chain of foreign keys where the table referenced by edge
// i owns edge i+1. A path may carry a start table name before it has edges.
//
// Paths are immutable; DerivePath returns a new one.
type ForeignKeyPath struct {
	start string
	edges []*ForeignKey
}

// NewForeignKeyPath builds a path from edges. It does not check the chain; use
// DerivePath for checked construction.
func NewForeignKeyPath(edges ...*ForeignKey) *ForeignKeyPath {
	p := &ForeignKeyPath{edges: append([]*ForeignKey(nil), edges...)}
	if len(edges) > 0 {
		p.start = edges[0].table.Name()
	}
	return p
}

// AnchoredForeignKeyPath creates an edgeless path starting at the named table.
func AnchoredForeignKeyPath(startTable string) *ForeignKeyPath {
	return &ForeignKeyPath{start: startTable}
}

// ParseForeignKeyPath resolves "A(x) -> B(y) -> C(z)" against db. Each segment
// but the last names a table and the columns of its foreign key to the next
// segment. A bare table name yields an anchored path without edges.
//
// Paths that do not parse or do not resolve yield an empty path with no start
// table. Use ParseForeignKeyPathStrict to get the error instead.
func ParseForeignKeyPath(ctx context.Context, spec string, db *Database) *ForeignKeyPath {
	p, err := ParseForeignKeyPathStrict(ctx, spec, db)
	if err != nil {
		return &ForeignKeyPath{}
	}
	return p
}

// ParseForeignKeyPathStrict is ParseForeignKeyPath failing with ErrInvalidArgument
// or ErrNotFound on paths it cannot resolve.
func ParseForeignKeyPathStrict(ctx context.Context, spec string, db *Database) (*ForeignKeyPath, error) {
	if db == nil {
		return nil, fmt.Errorf("no database to resolve %q: %w", spec, ErrInvalidArgument)
	}
	segments := strings.Split(spec, "->")
	type segment struct {
		table   *Table
		columns []string
	}
	parsed := make([]segment, len(segments))
	for i, raw := range segments {
		tableName, columns, err := parsePathSegment(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse foreign key path %q: %w", spec, err)
		}
		table, err := db.Table(tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve foreign key path %q: %w", spec, err)
		}
		parsed[i] = segment{table: table, columns: columns}
	}
	if len(parsed) == 1 {
		return AnchoredForeignKeyPath(parsed[0].table.Name()), nil
	}
	p := AnchoredForeignKeyPath(parsed[0].table.Name())
	for i := 0; i < len(parsed)-1; i++ {
		owner, next := parsed[i], parsed[i+1]
		if len(owner.columns) == 0 {
			return nil, fmt.Errorf("segment %s of %q has no columns: %w", owner.table.Name(), spec, ErrInvalidArgument)
		}
		fk, err := owner.table.ForeignKeyByColumns(ctx, owner.columns...)
		if err != nil {
			return nil, err
		}
		if !fk.referee.Equal(next.table) {
			return nil, fmt.Errorf("foreign key %s references %s, not %s: %w",
				fk.Name, fk.referee.Name(), next.table.Name(), ErrInvalidArgument)
		}
		if p, err = p.DerivePath(fk); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func parsePathSegment(raw string) (string, []string, error) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		if raw == "" || strings.ContainsAny(raw, ") ") {
			return "", nil, fmt.Errorf("malformed segment %q: %w", raw, ErrInvalidArgument)
		}
		return raw, nil, nil
	}
	if !strings.HasSuffix(raw, ")") || open == 0 {
		return "", nil, fmt.Errorf("malformed segment %q: %w", raw, ErrInvalidArgument)
	}
	tableName := strings.TrimSpace(raw[:open])
	var columns []string
	for _, c := range strings.Split(raw[open+1:len(raw)-1], ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	return tableName, columns, nil
}

// DerivePath returns a copy of p extended by edge. The edge must start where p
// ends: at the last referenced table, or at the start table of an edgeless path.
func (p *ForeignKeyPath) DerivePath(edge *ForeignKey) (*ForeignKeyPath, error) {
	if edge == nil {
		return nil, fmt.Errorf("foreign key path edge is nil: %w", ErrInvalidArgument)
	}
	if len(p.edges) == 0 {
		if p.start != "" && !names.Equal(p.start, edge.table.Name()) {
			return nil, fmt.Errorf("edge %s starts at %s, but the path starts at %s: %w",
				edge.Name, edge.table.Name(), p.start, ErrInvalidArgument)
		}
	} else if last := p.edges[len(p.edges)-1]; !last.referee.Equal(edge.table) {
		return nil, fmt.Errorf("edge %s starts at %s, but the path ends at %s: %w",
			edge.Name, edge.table.Name(), last.referee.Name(), ErrInvalidArgument)
	}
	edges := make([]*ForeignKey, 0, len(p.edges)+1)
	edges = append(edges, p.edges...)
	edges = append(edges, edge)
	start := p.start
	if len(p.edges) == 0 {
		start = edge.table.Name()
	}
	return &ForeignKeyPath{start: start, edges: edges}, nil
}

// StartTable returns the name of the first table, or "" for an unanchored path.
func (p *ForeignKeyPath) StartTable() string { return p.start }

// TargetTable returns the name of the table the last edge references, or "".
func (p *ForeignKeyPath) TargetTable() string {
	if len(p.edges) == 0 {
		return ""
	}
	return p.edges[len(p.edges)-1].referee.Name()
}

// Edges returns the foreign keys of the path.
func (p *ForeignKeyPath) Edges() []*ForeignKey {
	return append([]*ForeignKey(nil), p.edges...)
}

// Len returns the number of edges.
func (p *ForeignKeyPath) Len() int { return len(p.edges) }

// Intermediates returns the tables strictly between start and end.
func (p *ForeignKeyPath) Intermediates() []*Table {
	if len(p.edges) < 2 {
		return nil
	}
	result := make([]*Table, 0, len(p.edges)-1)
	for _, edge := range p.edges[:len(p.edges)-1] {
		result = append(result, edge.referee)
	}
	return result
}

// HasIntermediate reports whether table equals one of the intermediate tables.
func (p *ForeignKeyPath) HasIntermediate(table *Table) bool {
	for _, t := range p.Intermediates() {
		if t.Equal(table) {
			return true
		}
	}
	return false
}

// EndColumnNames returns the referenced columns of the last edge.
func (p *ForeignKeyPath) EndColumnNames() []string {
	if len(p.edges) == 0 {
		return nil
	}
	return p.edges[len(p.edges)-1].RefereeColumnNames()
}

// TablePath lists the names of all tables on the path, e.g. "A, B, C".
func (p *ForeignKeyPath) TablePath() string {
	if len(p.edges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.edges)+1)
	for _, edge := range p.edges {
		parts = append(parts, edge.table.Name())
	}
	parts = append(parts, p.edges[len(p.edges)-1].referee.Name())
	return strings.Join(parts, ", ")
}

// String renders the parseable form "A(x) -> B(y) -> C(z)".
func (p *ForeignKeyPath) String() string {
	if len(p.edges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.edges)+1)
	for _, edge := range p.edges {
		parts = append(parts, edge.table.Name()+"("+strings.Join(edge.columns, ", ")+")")
	}
	last := p.edges[len(p.edges)-1]
	parts = append(parts, last.referee.Name()+"("+strings.Join(last.refColumns, ", ")+")")
	return strings.Join(parts, " -> ")
}

func (p *ForeignKeyPath) visits(from, table *Table) bool {
	if from.Equal(table) {
		return true
	}
	for _, edge := range p.edges {
		if edge.referee.Equal(table) {
			return true
		}
	}
	return false
}

// FindForeignKeyPaths returns every path from one table to another that visits
// no table twice and has at most maxEdges edges, shortest first.
func FindForeignKeyPaths(ctx context.Context, from, to *Table, maxEdges int) ([]*ForeignKeyPath, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("path endpoints must not be nil: %w", ErrInvalidArgument)
	}
	var result []*ForeignKeyPath
	frontier := []*ForeignKeyPath{AnchoredForeignKeyPath(from.Name())}
	for depth := 0; depth < maxEdges && len(frontier) > 0; depth++ {
		var next []*ForeignKeyPath
		for _, p := range frontier {
			end := from
			if len(p.edges) > 0 {
				end = p.edges[len(p.edges)-1].referee
			}
			fks, err := end.ForeignKeys(ctx)
			if err != nil {
				return nil, err
			}
			for _, fk := range fks {
				if p.visits(from, fk.referee) {
					continue
				}
				derived, err := p.DerivePath(fk)
				if err != nil {
					return nil, err
				}
				if fk.referee.Equal(to) {
					result = append(result, derived)
					continue
				}
				next = append(next, derived)
			}
		}
		frontier = next
	}
	return result, nil
}
