// Package ast defines the polymorphic AST node hierarchy of spec.md §3.5
// together with the symbol table of spec.md §3.3–§3.4. The two live in one
// package because every node carries a reference to its owning symbol
// table and a Calc symbol carries a reference back to the expression that
// produced it — a natural cycle in the original reference-counted tree
// that a Go package boundary would otherwise have to break with an
// interface seam for no benefit, since both sides are defined once, here.
package ast

// Node is implemented by every AST node. Dispatch over concrete node kinds
// is done with a Go type switch at each consumer (the typer, the
// validator, the planner) rather than a double-dispatch Accept method set:
// the node hierarchy is closed and defined entirely in this package, so a
// type switch is the idiomatic Go equivalent of the visitor contract
// spec.md §3.5 requires.
type Node interface {
	SymbolTable() *SymbolTable
}

// Statement is a top-level node: a query or a DDL/mapping command.
type Statement interface {
	Node
	stmt()
}

// Expression is any node that evaluates to a Value.
type Expression interface {
	Node
	expr()
}

// QueryBody is either a QuerySpecification or a Union.
type QueryBody interface {
	Node
	queryBody()
}

// TableRef is any node that can appear on the right of FROM or as a join
// operand.
type TableRef interface {
	Node
	tableRef()
}

type Base struct {
	Sym *SymbolTable
}

func (b *Base) SymbolTable() *SymbolTable { return b.Sym }

func newBase(sym *SymbolTable) Base { return Base{Sym: sym} }
