package operator

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/block/iterator"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
)

// closeAll closes every operator unconditionally (spec.md §4.8 "operator
// destructors must join worker threads unconditionally") and returns
// the first error encountered, if any.
func closeAll(ops ...RowOperator) error {
	var first error
	for _, op := range ops {
		if err := op.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func concatColumns(left, right []ColumnInfo) []ColumnInfo {
	out := make([]ColumnInfo, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func concatRows(left, right block.Row) block.Row {
	out := make(block.Row, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// CrossJoin implements spec.md §4.8: the left input is scanned once;
// for each left row, the right input is replayed in full through a
// Caching block iterator.
type CrossJoin struct {
	left    RowOperator
	right   RowOperator
	caching *iterator.Caching
	columns []ColumnInfo

	leftRow     block.Row
	leftStarted bool
}

func NewCrossJoin(manager *block.Manager, left, right RowOperator) *CrossJoin {
	provider := &rowOperatorProvider{input: right, manager: manager}
	return &CrossJoin{
		left:    left,
		right:   right,
		caching: iterator.NewCaching(manager, provider),
		columns: concatColumns(left.ColumnInfos(), right.ColumnInfos()),
	}
}

func (c *CrossJoin) ColumnInfos() []ColumnInfo { return c.columns }

func (c *CrossJoin) NextRow() (block.Row, bool, error) {
	for {
		if !c.leftStarted {
			row, ok, err := c.left.NextRow()
			if err != nil || !ok {
				return nil, ok, err
			}
			c.leftRow = row
			c.leftStarted = true
			if err := c.caching.Rewind(); err != nil {
				return nil, false, err
			}
		}
		rightRow, ok, err := c.caching.NextRow()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			c.leftStarted = false
			continue
		}
		return concatRows(c.leftRow, rightRow), true, nil
	}
}

func (c *CrossJoin) Close() error { return closeAll(c.left, c.right) }

func (c *CrossJoin) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("CrossJoin (%s)", columnNames(c.columns)))
	dumpChild(w, prefix, c.left)
	dumpChild(w, prefix, c.right)
}

// InnerJoin implements spec.md §4.8: a CrossJoin filtered by a compiled
// predicate stack machine (nested loops).
type InnerJoin struct {
	*Select
	left, right RowOperator
}

func NewInnerJoin(manager *block.Manager, left, right RowOperator, predicate *stackmachine.StackMachine, registry *stackmachine.FunctionRegistry) (*InnerJoin, error) {
	cross := NewCrossJoin(manager, left, right)
	sel, err := NewSelect(cross, predicate, registry)
	if err != nil {
		return nil, err
	}
	return &InnerJoin{Select: sel, left: left, right: right}, nil
}

func (j *InnerJoin) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("InnerJoin (%s)", columnNames(j.ColumnInfos())))
	dumpChild(w, prefix, j.left)
	dumpChild(w, prefix, j.right)
}

// InnerHashJoin implements spec.md §4.8: selected by the planner when
// the join predicate is an equality between two bare identifiers. The
// right input is fully consumed into a Hashing block iterator keyed on
// its join column; each left row probes that table by its own join
// column's value.
type InnerHashJoin struct {
	left          RowOperator
	right         RowOperator
	hashing       *iterator.Hashing
	leftKeyColumn int
	columns       []ColumnInfo

	leftRow     block.Row
	leftStarted bool
}

func NewInnerHashJoin(manager *block.Manager, left, right RowOperator, leftKeyColumn, rightKeyColumn int) *InnerHashJoin {
	provider := &rowOperatorProvider{input: right, manager: manager}
	return &InnerHashJoin{
		left:          left,
		right:         right,
		hashing:       iterator.NewHashing(manager, provider, rightKeyColumn),
		leftKeyColumn: leftKeyColumn,
		columns:       concatColumns(left.ColumnInfos(), right.ColumnInfos()),
	}
}

func (h *InnerHashJoin) ColumnInfos() []ColumnInfo { return h.columns }

func (h *InnerHashJoin) NextRow() (block.Row, bool, error) {
	for {
		if !h.leftStarted {
			row, ok, err := h.left.NextRow()
			if err != nil || !ok {
				return nil, ok, err
			}
			h.leftRow = row
			if err := h.hashing.SetContextForKey(row[h.leftKeyColumn]); err != nil {
				return nil, false, err
			}
			h.leftStarted = true
		}
		rightRow, ok, err := h.hashing.NextKeyValueRow()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			h.leftStarted = false
			continue
		}
		return concatRows(h.leftRow, rightRow), true, nil
	}
}

func (h *InnerHashJoin) Close() error { return closeAll(h.left, h.right) }

func (h *InnerHashJoin) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("InnerHashJoin (%s)", columnNames(h.columns)))
	dumpChild(w, prefix, h.left)
	dumpChild(w, prefix, h.right)
}
