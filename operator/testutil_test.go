package operator

import (
	"io"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// stubOperator is a fixed row source used to exercise operators above
// Scan without touching the filesystem.
type stubOperator struct {
	columns []ColumnInfo
	rows    []block.Row
	pos     int
	closed  bool
}

func newStub(columns []ColumnInfo, rows []block.Row) *stubOperator {
	return &stubOperator{columns: columns, rows: rows}
}

func (s *stubOperator) ColumnInfos() []ColumnInfo { return s.columns }

func (s *stubOperator) NextRow() (block.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *stubOperator) Close() error { s.closed = true; return nil }

func (s *stubOperator) Dump(w io.Writer, prefix string) {}

func col(name string, t value.Type) ColumnInfo {
	return ColumnInfo{Name: name, Type: t, Sym: &ast.Symbol{Kind: ast.Plain, Name: name, Type: t}}
}
