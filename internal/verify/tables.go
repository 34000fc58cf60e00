package verify

import (
	"fmt"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/prop"
)

// ExtractTables collects every table reachable from the module (local and
// imported), recovers each table's field types from its schema, and parses
// the schema's attached invariants. All parse failures across all tables
// are batched; one bad invariant never hides another.
func ExtractTables(all map[string]*ast.Module, m *ast.Module) ([]prop.Table, []ParseFailure) {
	var tables []prop.Table
	var failures []ParseFailure

	for _, src := range reachable(all, m) {
		for _, d := range src.Defs {
			if d.Kind != ast.DefTable {
				continue
			}
			t, fs := extractTable(all, src, d)
			failures = append(failures, fs...)
			if t != nil {
				tables = append(tables, *t)
			}
		}
	}
	return tables, failures
}

// reachable lists the module followed by each resolvable import, each
// module at most once.
func reachable(all map[string]*ast.Module, m *ast.Module) []*ast.Module {
	mods := []*ast.Module{m}
	seen := map[string]bool{m.Name: true}
	for _, imp := range m.Imports {
		im, ok := all[imp]
		if !ok || seen[imp] {
			continue
		}
		seen[imp] = true
		mods = append(mods, im)
	}
	return mods
}

func extractTable(all map[string]*ast.Module, src *ast.Module, d *ast.Def) (*prop.Table, []ParseFailure) {
	ref, ok := ast.Resolve(all, src, d.SchemaName)
	if !ok || ref.Def.Kind != ast.DefSchema {
		return nil, []ParseFailure{{
			Loc:     d.Pos,
			Context: fmt.Sprintf("table %q", d.Name),
			Err:     fmt.Errorf("schema %q not found", d.SchemaName),
		}}
	}
	schema := ref.Def

	fields := make(map[string]checker.Type, len(schema.Fields))
	var failures []ParseFailure
	order := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		ty, err := checker.TranslateType(f.Type)
		if err != nil {
			failures = append(failures, ParseFailure{
				Loc:     f.Pos,
				Context: fmt.Sprintf("column %s.%s", d.Name, f.Name),
				Err:     err,
			})
			continue
		}
		fields[f.Name] = ty
		order = append(order, f.Name)
	}
	if len(failures) > 0 {
		return nil, failures
	}

	invs, fs := extractInvariants(d.Name, schema, fields)
	if len(fs) > 0 {
		return nil, fs
	}
	return &prop.Table{
		Name:       d.Name,
		Pos:        d.Pos,
		Fields:     fields,
		FieldOrder: order,
		Invariants: invs,
	}, nil
}

// extractInvariants merges the singular "invariant" and plural
// "invariants" metadata keys. The plural form must be a list of
// expressions.
func extractInvariants(table string, schema *ast.Def, fields map[string]checker.Type) ([]prop.Invariant, []ParseFailure) {
	var nodes []ast.SNode
	var failures []ParseFailure

	if n, ok := schema.Meta.Get("invariant"); ok {
		nodes = append(nodes, n)
	}
	if n, ok := schema.Meta.Get("invariants"); ok {
		if n.Kind != ast.SList {
			return nil, []ParseFailure{{
				Loc:     n.Pos,
				Context: fmt.Sprintf("invariants on table %q", table),
				Err:     fmt.Errorf("invariants must be a list of expressions"),
			}}
		}
		nodes = append(nodes, n.Items...)
	}

	var invs []prop.Invariant
	for _, n := range nodes {
		inv, err := prop.ParseInvariant(schema.Fields, fields, n)
		if err != nil {
			failures = append(failures, ParseFailure{
				Loc:     n.Pos,
				Context: fmt.Sprintf("invariant on table %q", table),
				Err:     err,
			})
			continue
		}
		invs = append(invs, inv)
	}
	return invs, failures
}
