package ast

import "github.com/fuersten/csvsqldb-sub001/value"

// Kind classifies a Symbol (spec.md §3.3).
type Kind int

const (
	NoSym Kind = iota
	Plain
	TableSym
	SubquerySym
	FunctionSym
	Calc
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "Plain"
	case TableSym:
		return "Table"
	case SubquerySym:
		return "Subquery"
	case FunctionSym:
		return "Function"
	case Calc:
		return "Calc"
	default:
		return "NoSym"
	}
}

// Symbol is one entry in a SymbolTable (spec.md §3.3). Name may be
// qualified ("table.column") or unqualified; qualified and unqualified
// spellings of the same column resolve to the same Symbol once typed.
type Symbol struct {
	Kind     Kind
	Name     string
	Alias    string
	ID       int
	Relation string
	Type     value.Type

	// Subquery holds the nested symbol table for a Subquery symbol, used
	// to resolve identifiers of the outer query into the subquery.
	Subquery *SymbolTable

	// Expr holds the expression a Calc symbol was computed from.
	Expr Expression
}

// DisplayName returns the alias if set, otherwise the symbol's name.
func (s *Symbol) DisplayName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}
