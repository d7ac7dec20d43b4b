// Package stackmachine implements spec.md §4.5: a small stack-based
// virtual machine for evaluating scalar SQL expressions against a row's
// bound variables, plus the postorder AST-to-instruction compiler.
package stackmachine

import (
	"regexp"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// Opcode enumerates the stack machine's instruction set (spec.md §4.5).
type Opcode int

const (
	PUSH Opcode = iota
	PUSH_VAR
	ADD
	SUB
	MUL
	DIV
	MOD
	CONCAT
	EQ
	NEQ
	GT
	GE
	LT
	LE
	AND
	OR
	NOT
	NEG
	LIKE
	BETWEEN
	IN
	IS
	ISNOT
	CAST
	CALL
)

func (op Opcode) String() string {
	names := map[Opcode]string{
		PUSH: "PUSH", PUSH_VAR: "PUSH_VAR", ADD: "ADD", SUB: "SUB", MUL: "MUL",
		DIV: "DIV", MOD: "MOD", CONCAT: "CONCAT", EQ: "EQ", NEQ: "NEQ",
		GT: "GT", GE: "GE", LT: "LT", LE: "LE", AND: "AND", OR: "OR",
		NOT: "NOT", NEG: "NEG", LIKE: "LIKE", BETWEEN: "BETWEEN", IN: "IN",
		IS: "IS", ISNOT: "ISNOT", CAST: "CAST", CALL: "CALL",
	}
	return names[op]
}

// Instruction is one stack machine opcode plus whatever immediate
// operand that opcode needs (spec.md §4.5 writes these as
// PUSH(value)/PUSH_VAR(var_id)/LIKE(regex_id)/IN(arity)/IS(value)/
// CAST(type)/CALL(func_id, arity); this implementation bakes each
// immediate directly into the Instruction rather than indexing into a
// separate constant pool, since instructions never cross process
// boundaries and a pool buys nothing here).
type Instruction struct {
	Op       Opcode
	Value    value.Value    // PUSH, IS, ISNOT
	VarID    int            // PUSH_VAR
	Regex    *regexp.Regexp // LIKE
	Arity    int            // IN, CALL
	CastType value.Type     // CAST
	FuncName string         // CALL
}

// VarBinding names the row column a compiled expression expects bound
// to VarID before Evaluate runs. Symbol is the resolved *ast.Symbol the
// identifier pointed to at type time; an operator binds by Symbol
// identity, not Name, since two columns from different tables commonly
// share a bare Name (e.g. "ID" on both sides of an equi-join) while
// still being distinct Symbols.
type VarBinding struct {
	Name   string
	Symbol *ast.Symbol
	VarID  int
}

// VariableStore maps a variable id to its current row value.
type VariableStore struct {
	values map[int]value.Value
}

// NewVariableStore returns an empty store.
func NewVariableStore() *VariableStore {
	return &VariableStore{values: make(map[int]value.Value)}
}

// Bind sets the value for varID.
func (s *VariableStore) Bind(varID int, v value.Value) {
	s.values[varID] = v
}

// Get returns the value bound to varID, or a typed null of TypeString
// if nothing was ever bound (an unreachable case once a StackMachine's
// Bindings are all satisfied before Evaluate).
func (s *VariableStore) Get(varID int) value.Value {
	v, ok := s.values[varID]
	if !ok {
		return value.Null(value.TypeString)
	}
	return v
}
