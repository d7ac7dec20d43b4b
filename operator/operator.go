// Package operator implements spec.md §4.8's operator node tree: the
// streaming push/pull pipeline a planned query executes through. Every
// node is either a RowOperator (yields tuples one at a time) or the
// root OutputSink that drives execution to completion.
package operator

import (
	"fmt"
	"io"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// ColumnInfo describes one output column. Sym is the resolved symbol a
// column's values originate from, used to bind a compiled expression's
// variables by identity rather than by (frequently ambiguous) bare
// name; it is nil for columns with no underlying symbol, such as a
// SYSTEM_DUAL dummy column consumed by nothing.
type ColumnInfo struct {
	Name string
	Type value.Type
	Sym  *ast.Symbol
}

// RowOperator is spec.md §4.8's RowOperatorNode: connects to zero or
// more inputs (wired at construction) and yields rows on demand.
type RowOperator interface {
	ColumnInfos() []ColumnInfo
	NextRow() (block.Row, bool, error)
	Dump(w io.Writer, prefix string)
	// Close releases the operator's resources and joins any worker
	// goroutines it owns, unconditionally (spec.md §4.8 "Failure
	// semantics": operator destructors must join worker threads
	// unconditionally).
	Close() error
}

func dumpLine(w io.Writer, prefix, desc string) {
	fmt.Fprintf(w, "%s%s\n", prefix, desc)
}

func dumpChild(w io.Writer, prefix string, child RowOperator) {
	fmt.Fprintf(w, "%s--> ", prefix)
	child.Dump(w, prefix+"    ")
}

// resolveBindings maps each of a compiled expression's variable
// bindings onto a column index in schema, by Symbol identity.
func resolveBindings(bindings []stackmachine.VarBinding, schema []ColumnInfo) ([]int, error) {
	indices := make([]int, len(bindings))
	for i, b := range bindings {
		found := -1
		for j, col := range schema {
			if col.Sym != nil && b.Symbol != nil && col.Sym == b.Symbol {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, csverrors.ErrEvaluation.New(fmt.Sprintf("unbound variable %q", b.Name))
		}
		indices[i] = found
	}
	return indices, nil
}

// bindRow binds a compiled expression's variables from row into store
// using precomputed bindings/indices pairs from resolveBindings.
func bindRow(store *stackmachine.VariableStore, bindings []stackmachine.VarBinding, indices []int, row block.Row) {
	for i, b := range bindings {
		store.Bind(b.VarID, row[indices[i]])
	}
}

func columnNames(cols []ColumnInfo) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
