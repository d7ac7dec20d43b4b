package operator

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// ProjectionItem is one select-list entry, already resolved by the
// planner: either a direct passthrough of an input column (identifier,
// or one column of an expanded asterisk) or a computed scalar
// expression (spec.md §4.8 "Extended Projection").
type ProjectionItem struct {
	PassthroughIndex int // >= 0 for a passthrough; ignored otherwise
	Expr             *stackmachine.StackMachine
	Name             string
	Type             value.Type
}

func (item ProjectionItem) isComputed() bool { return item.PassthroughIndex < 0 }

// ExtendedProjection implements spec.md §4.8: evaluates each select-list
// item against the input row and materializes the result into fresh
// blocks from the BlockManager it is given, since its output row shape
// differs from its input's.
type ExtendedProjection struct {
	input    RowOperator
	items    []ProjectionItem
	bindings [][]int
	registry *stackmachine.FunctionRegistry
	manager  *block.Manager
	current  *block.Block
	columns  []ColumnInfo
}

func NewExtendedProjection(manager *block.Manager, input RowOperator, items []ProjectionItem, registry *stackmachine.FunctionRegistry) (*ExtendedProjection, error) {
	inCols := input.ColumnInfos()
	columns := make([]ColumnInfo, len(items))
	bindings := make([][]int, len(items))
	for i, item := range items {
		if item.isComputed() {
			indices, err := resolveBindings(item.Expr.Bindings, inCols)
			if err != nil {
				return nil, err
			}
			bindings[i] = indices
			columns[i] = ColumnInfo{Name: item.Name, Type: item.Type}
		} else {
			columns[i] = ColumnInfo{Name: item.Name, Type: inCols[item.PassthroughIndex].Type, Sym: inCols[item.PassthroughIndex].Sym}
		}
	}
	return &ExtendedProjection{
		input:    input,
		items:    items,
		bindings: bindings,
		registry: registry,
		manager:  manager,
		columns:  columns,
	}, nil
}

func (p *ExtendedProjection) ColumnInfos() []ColumnInfo { return p.columns }

func (p *ExtendedProjection) NextRow() (block.Row, bool, error) {
	inRow, ok, err := p.input.NextRow()
	if err != nil || !ok {
		return nil, ok, err
	}
	outRow := make(block.Row, len(p.items))
	for i, item := range p.items {
		if item.isComputed() {
			store := stackmachine.NewVariableStore()
			bindRow(store, item.Expr.Bindings, p.bindings[i], inRow)
			v, err := item.Expr.Evaluate(store, p.registry)
			if err != nil {
				return nil, false, err
			}
			outRow[i] = v
		} else {
			outRow[i] = inRow[item.PassthroughIndex]
		}
	}
	if p.current == nil || p.current.Full() {
		if p.current != nil {
			p.manager.Release(p.current)
		}
		p.current = p.manager.NewBlock()
	}
	p.current.Append(outRow)
	return outRow, true, nil
}

func (p *ExtendedProjection) Close() error {
	if p.current != nil {
		p.manager.Release(p.current)
		p.current = nil
	}
	return p.input.Close()
}

func (p *ExtendedProjection) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("ExtendedProjection (%s)", columnNames(p.columns)))
	dumpChild(w, prefix, p.input)
}
