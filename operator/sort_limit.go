package operator

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/block/iterator"
)

// rowOperatorProvider adapts a pull-based RowOperator into the
// block/iterator package's BlockProvider, re-batching individual rows
// into fresh blocks so the BlockIterator variants (Sorting, Hashing,
// Grouping, Caching) can be reused unmodified downstream of any
// operator, not only directly downstream of a Scan.
type rowOperatorProvider struct {
	input   RowOperator
	manager *block.Manager
	done    bool
}

func (p *rowOperatorProvider) NextBlock() (*block.Block, bool, error) {
	if p.done {
		return nil, false, nil
	}
	blk := p.manager.NewBlock()
	for !blk.Full() {
		row, ok, err := p.input.NextRow()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			p.done = true
			break
		}
		blk.Append(row)
	}
	if len(blk.Rows) == 0 {
		p.manager.Release(blk)
		return nil, false, nil
	}
	return blk, true, nil
}

// Sort implements spec.md §4.8: wraps a Sorting block iterator over the
// input.
type Sort struct {
	input   RowOperator
	sorting *iterator.Sorting
}

func NewSort(manager *block.Manager, input RowOperator, keys []iterator.SortKey) *Sort {
	provider := &rowOperatorProvider{input: input, manager: manager}
	return &Sort{input: input, sorting: iterator.NewSorting(manager, provider, keys)}
}

func (s *Sort) ColumnInfos() []ColumnInfo { return s.input.ColumnInfos() }

func (s *Sort) NextRow() (block.Row, bool, error) { return s.sorting.NextRow() }

func (s *Sort) Close() error { return s.input.Close() }

func (s *Sort) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, "Sort")
	dumpChild(w, prefix, s.input)
}

// Limit implements spec.md §4.8: discards the first Offset rows, then
// passes through up to Limit rows.
type Limit struct {
	input     RowOperator
	limit     int64
	offset    int64
	skipped   int64
	remaining int64
}

func NewLimit(input RowOperator, limit, offset int64) *Limit {
	return &Limit{input: input, limit: limit, offset: offset, remaining: limit}
}

func (l *Limit) ColumnInfos() []ColumnInfo { return l.input.ColumnInfos() }

func (l *Limit) NextRow() (block.Row, bool, error) {
	if l.remaining <= 0 {
		return nil, false, nil
	}
	for l.skipped < l.offset {
		_, ok, err := l.input.NextRow()
		if err != nil || !ok {
			l.remaining = 0
			return nil, ok, err
		}
		l.skipped++
	}
	row, ok, err := l.input.NextRow()
	if err != nil || !ok {
		l.remaining = 0
		return nil, ok, err
	}
	l.remaining--
	return row, true, nil
}

func (l *Limit) Close() error { return l.input.Close() }

func (l *Limit) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("Limit (limit=%d, offset=%d)", l.limit, l.offset))
	dumpChild(w, prefix, l.input)
}
