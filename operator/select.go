package operator

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
)

// Select implements spec.md §4.8: pulls rows from its input until the
// compiled predicate evaluates true, passing those rows through
// unchanged.
type Select struct {
	input      RowOperator
	predicate  *stackmachine.StackMachine
	registry   *stackmachine.FunctionRegistry
	indices    []int
}

func NewSelect(input RowOperator, predicate *stackmachine.StackMachine, registry *stackmachine.FunctionRegistry) (*Select, error) {
	indices, err := resolveBindings(predicate.Bindings, input.ColumnInfos())
	if err != nil {
		return nil, err
	}
	return &Select{input: input, predicate: predicate, registry: registry, indices: indices}, nil
}

func (s *Select) ColumnInfos() []ColumnInfo { return s.input.ColumnInfos() }

func (s *Select) NextRow() (block.Row, bool, error) {
	for {
		row, ok, err := s.input.NextRow()
		if err != nil || !ok {
			return nil, ok, err
		}
		store := stackmachine.NewVariableStore()
		bindRow(store, s.predicate.Bindings, s.indices, row)
		result, err := s.predicate.Evaluate(store, s.registry)
		if err != nil {
			return nil, false, err
		}
		if !result.IsNull() && result.Bool() {
			return row, true, nil
		}
	}
}

func (s *Select) Close() error { return s.input.Close() }

func (s *Select) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("Select (%s)", columnNames(s.ColumnInfos())))
	dumpChild(w, prefix, s.input)
}
