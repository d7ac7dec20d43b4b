package operator

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/aggregate"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/block/iterator"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// AggColumn names and types one aggregation function's output column
// and binds it to the input column it consumes (iterator.AggSpec).
type AggColumn struct {
	Name string
	Type value.Type
	Spec iterator.AggSpec
}

// GroupingOperator implements spec.md §4.8's Grouping: buckets the
// input by keyColumns and emits one row per group, the full set of key
// columns followed by each aggregate's finalized value. A GROUP BY key
// that the select list doesn't surface is still included here (so
// grouping stays correct) and is dropped by the ExtendedProjection the
// planner wraps around this operator — this operator itself never
// suppresses a key column.
type GroupingOperator struct {
	input    RowOperator
	grouping *iterator.Grouping
	columns  []ColumnInfo
}

func NewGroupingOperator(manager *block.Manager, input RowOperator, keyColumns []int, aggs []AggColumn) *GroupingOperator {
	inCols := input.ColumnInfos()
	specs := make([]iterator.AggSpec, len(aggs))
	columns := make([]ColumnInfo, 0, len(keyColumns)+len(aggs))
	for _, k := range keyColumns {
		columns = append(columns, inCols[k])
	}
	for i, a := range aggs {
		specs[i] = a.Spec
		columns = append(columns, ColumnInfo{Name: a.Name, Type: a.Type})
	}
	provider := &rowOperatorProvider{input: input, manager: manager}
	return &GroupingOperator{
		input:    input,
		grouping: iterator.NewGrouping(manager, provider, keyColumns, specs),
		columns:  columns,
	}
}

func (g *GroupingOperator) ColumnInfos() []ColumnInfo { return g.columns }

func (g *GroupingOperator) NextRow() (block.Row, bool, error) { return g.grouping.NextRow() }

func (g *GroupingOperator) Close() error { return g.input.Close() }

func (g *GroupingOperator) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("GroupingOperator (%s)", columnNames(g.columns)))
	dumpChild(w, prefix, g.input)
}

// AggregationOperator implements spec.md §4.8's Aggregation (no GROUP
// BY): one instance of each aggregation function runs over every input
// row, producing exactly one output row at end-of-input.
type AggregationOperator struct {
	input   RowOperator
	aggs    []AggColumn
	columns []ColumnInfo
	done    bool
}

func NewAggregationOperator(input RowOperator, aggs []AggColumn) *AggregationOperator {
	columns := make([]ColumnInfo, len(aggs))
	for i, a := range aggs {
		columns[i] = ColumnInfo{Name: a.Name, Type: a.Type}
	}
	return &AggregationOperator{input: input, aggs: aggs, columns: columns}
}

func (a *AggregationOperator) ColumnInfos() []ColumnInfo { return a.columns }

func (a *AggregationOperator) NextRow() (block.Row, bool, error) {
	if a.done {
		return nil, false, nil
	}
	a.done = true

	instances := make([]aggregate.Aggregate, len(a.aggs))
	for i, col := range a.aggs {
		instances[i] = col.Spec.NewAgg()
		instances[i].Init()
	}
	for {
		row, ok, err := a.input.NextRow()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		for i, col := range a.aggs {
			v := value.Null(value.TypeBool)
			if col.Spec.Column >= 0 {
				v = row[col.Spec.Column]
			}
			if err := instances[i].Step(v); err != nil {
				return nil, false, err
			}
		}
	}

	out := make(block.Row, len(instances))
	for i, inst := range instances {
		v, err := inst.Finalize()
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

func (a *AggregationOperator) Close() error { return a.input.Close() }

func (a *AggregationOperator) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("AggregationOperator (%s)", columnNames(a.columns)))
	dumpChild(w, prefix, a.input)
}
