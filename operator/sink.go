package operator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// flushEvery is the output sink's flush cadence (spec.md §4.8 "flushes
// every 1000 rows").
const flushEvery = 1000

// RootOperator is spec.md §4.8's RootOperatorNode: it drives the
// operator tree to completion rather than yielding rows itself.
type RootOperator interface {
	Execute(out io.Writer) (int64, error)
	Dump(w io.Writer)
}

// OutputSink implements spec.md §4.8's Output Sink: formats each row as
// one CSV line via value.Value.Format, optionally preceded by a
// '#'-prefixed header line, and returns the number of rows written.
type OutputSink struct {
	input      RowOperator
	showHeader bool
}

func NewOutputSink(input RowOperator, showHeader bool) *OutputSink {
	return &OutputSink{input: input, showHeader: showHeader}
}

func (s *OutputSink) Execute(out io.Writer) (int64, error) {
	w := bufio.NewWriter(out)
	cols := s.input.ColumnInfos()

	if s.showHeader {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		if _, err := fmt.Fprintln(w, "#"+strings.Join(names, ",")); err != nil {
			s.input.Close()
			return 0, err
		}
	}

	var count int64
	for {
		row, ok, err := s.input.NextRow()
		if err != nil {
			s.input.Close()
			return count, err
		}
		if !ok {
			break
		}
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = v.Format()
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, ",")); err != nil {
			s.input.Close()
			return count, err
		}
		count++
		if count%flushEvery == 0 {
			if err := w.Flush(); err != nil {
				s.input.Close()
				return count, err
			}
		}
	}

	if err := w.Flush(); err != nil {
		s.input.Close()
		return count, err
	}
	return count, s.input.Close()
}

func (s *OutputSink) Dump(w io.Writer) {
	dumpLine(w, "", "OutputSink")
	dumpChild(w, "", s.input)
}
