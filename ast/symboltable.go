package ast

import "fmt"

// SymbolTable is the ordered, per-query-scope registry of known names
// (spec.md §3.4): columns, tables, calcs, subqueries, functions. A nested
// table (built for a subquery) holds a back reference to its parent for
// name-lookup fallback. A SymbolTable is built once by the parser and
// never shared across queries.
type SymbolTable struct {
	Parent       *SymbolTable
	symbols      []*Symbol
	aliasCounter int
	nextID       int
}

// NewSymbolTable returns an empty symbol table, optionally nested under
// parent (nil for a top-level query scope).
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{Parent: parent}
}

// NewAlias returns a fresh "$alias_N" name, used for unaliased computed
// select-list entries (spec.md §4.2).
func (t *SymbolTable) NewAlias() string {
	t.aliasCounter++
	return fmt.Sprintf("$alias_%d", t.aliasCounter)
}

// AddSymbol appends sym to the table, assigning it a scope-local id.
func (t *SymbolTable) AddSymbol(sym *Symbol) *Symbol {
	t.nextID++
	sym.ID = t.nextID
	t.symbols = append(t.symbols, sym)
	return sym
}

// Symbols returns every symbol in this scope, in insertion order.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.symbols
}

// FindExact returns the first symbol whose Name or Alias matches name
// exactly, searching only this scope (no parent fallback).
func (t *SymbolTable) FindExact(name string) (*Symbol, bool) {
	for _, s := range t.symbols {
		if s.Name == name || s.Alias == name {
			return s, true
		}
	}
	return nil, false
}

// FindByRelationAndName returns the Plain symbol for relation.name in this
// scope.
func (t *SymbolTable) FindByRelationAndName(relation, name string) (*Symbol, bool) {
	for _, s := range t.symbols {
		if s.Relation == relation && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindTable returns the Table symbol registered under name or alias.
func (t *SymbolTable) FindTable(nameOrAlias string) (*Symbol, bool) {
	for _, s := range t.symbols {
		if s.Kind != TableSym {
			continue
		}
		if s.Name == nameOrAlias || s.Alias == nameOrAlias {
			return s, true
		}
	}
	return nil, false
}

// Tables returns every Table symbol in this scope.
func (t *SymbolTable) Tables() []*Symbol {
	var out []*Symbol
	for _, s := range t.symbols {
		if s.Kind == TableSym {
			out = append(out, s)
		}
	}
	return out
}

// Subqueries returns every Subquery symbol in this scope.
func (t *SymbolTable) Subqueries() []*Symbol {
	var out []*Symbol
	for _, s := range t.symbols {
		if s.Kind == SubquerySym {
			out = append(out, s)
		}
	}
	return out
}
