package operator

import (
	"bytes"
	"testing"

	"github.com/fuersten/csvsqldb-sub001/aggregate"
	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/block/iterator"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func symCol(name string, t value.Type) (*ast.Symbol, ColumnInfo) {
	sym := &ast.Symbol{Kind: ast.Plain, Name: name, Type: t}
	return sym, ColumnInfo{Name: name, Type: t, Sym: sym}
}

func identFor(sym *ast.Symbol) *ast.Identifier {
	return &ast.Identifier{Name: sym.Name, Sym: sym}
}

func TestSelectFiltersRows(t *testing.T) {
	idSym, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{
		{value.NewInt(1)}, {value.NewInt(2)}, {value.NewInt(3)},
	})
	expr := &ast.BinaryOp{Op: ast.OpGt, Left: identFor(idSym), Right: &ast.Literal{Value: value.NewInt(1)}}
	predicate, err := stackmachine.Compile(expr)
	require.NoError(t, err)

	sel, err := NewSelect(input, predicate, stackmachine.NewFunctionRegistry(nil))
	require.NoError(t, err)

	var got []int64
	for {
		row, ok, err := sel.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{2, 3}, got)
}

func TestExtendedProjectionPassthroughAndComputed(t *testing.T) {
	idSym, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{{value.NewInt(5)}})
	expr := &ast.BinaryOp{Op: ast.OpAdd, Left: identFor(idSym), Right: &ast.Literal{Value: value.NewInt(1)}}
	compiled, err := stackmachine.Compile(expr)
	require.NoError(t, err)

	items := []ProjectionItem{
		{PassthroughIndex: 0, Name: "ID", Type: value.TypeInt},
		{PassthroughIndex: -1, Expr: compiled, Name: "PLUS1", Type: value.TypeInt},
	}
	manager := block.NewManager(10)
	proj, err := NewExtendedProjection(manager, input, items, stackmachine.NewFunctionRegistry(nil))
	require.NoError(t, err)

	row, ok, err := proj.NextRow()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), row[0].Int())
	require.Equal(t, int64(6), row[1].Int())
}

func TestSortOrdersRows(t *testing.T) {
	_, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{
		{value.NewInt(3)}, {value.NewInt(1)}, {value.NewInt(2)},
	})
	manager := block.NewManager(10)
	sort := NewSort(manager, input, []iterator.SortKey{{ColumnIndex: 0}})

	var got []int64
	for {
		row, ok, err := sort.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestLimitAppliesOffsetAndLimit(t *testing.T) {
	_, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{
		{value.NewInt(1)}, {value.NewInt(2)}, {value.NewInt(3)}, {value.NewInt(4)},
	})
	limit := NewLimit(input, 2, 1)

	var got []int64
	for {
		row, ok, err := limit.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{2, 3}, got)
}

func TestLimitZeroYieldsNoRows(t *testing.T) {
	_, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{{value.NewInt(1)}})
	limit := NewLimit(input, 0, 0)
	_, ok, err := limit.NextRow()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCrossJoinConcatenatesEveryPair(t *testing.T) {
	_, leftCol := symCol("L", value.TypeInt)
	_, rightCol := symCol("R", value.TypeString)
	left := newStub([]ColumnInfo{leftCol}, []block.Row{{value.NewInt(1)}, {value.NewInt(2)}})
	right := newStub([]ColumnInfo{rightCol}, []block.Row{{value.NewString("a")}, {value.NewString("b")}})
	manager := block.NewManager(10)
	cross := NewCrossJoin(manager, left, right)

	var pairs [][2]string
	for {
		row, ok, err := cross.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		pairs = append(pairs, [2]string{row[0].Format(), row[1].Format()})
	}
	require.Len(t, pairs, 4)
}

func TestInnerHashJoinMatchesOnKey(t *testing.T) {
	_, leftCol := symCol("ID", value.TypeInt)
	_, rightCol := symCol("ID2", value.TypeInt)
	left := newStub([]ColumnInfo{leftCol}, []block.Row{{value.NewInt(1)}, {value.NewInt(2)}})
	right := newStub([]ColumnInfo{rightCol}, []block.Row{{value.NewInt(2)}, {value.NewInt(3)}})
	manager := block.NewManager(10)
	join := NewInnerHashJoin(manager, left, right, 0, 0)

	var got []int64
	for {
		row, ok, err := join.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{2}, got)
}

func TestUnionReadsLeftThenRight(t *testing.T) {
	_, c := symCol("ID", value.TypeInt)
	left := newStub([]ColumnInfo{c}, []block.Row{{value.NewInt(1)}})
	right := newStub([]ColumnInfo{c}, []block.Row{{value.NewInt(2)}})
	u := NewUnion(left, right)

	var got []int64
	for {
		row, ok, err := u.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{1, 2}, got)
}

func TestOutputSinkWritesHeaderAndRows(t *testing.T) {
	_, idCol := symCol("ID", value.TypeInt)
	input := newStub([]ColumnInfo{idCol}, []block.Row{{value.NewInt(1)}, {value.NewInt(2)}})
	sink := NewOutputSink(input, true)
	var buf bytes.Buffer
	n, err := sink.Execute(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, "#ID\n1\n2\n", buf.String())
}

func TestSystemTableScanEmitsOneRow(t *testing.T) {
	scan := NewSystemTableScan([]ColumnInfo{{Name: "DUMMY", Type: value.TypeBool}})
	row, ok, err := scan.NextRow()
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, row[0].Bool())
	_, ok, err = scan.NextRow()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGroupingOperatorSumsPerKey(t *testing.T) {
	_, keyCol := symCol("DEPT", value.TypeString)
	_, valCol := symCol("SALARY", value.TypeInt)
	input := newStub([]ColumnInfo{keyCol, valCol}, []block.Row{
		{value.NewString("x"), value.NewInt(1)},
		{value.NewString("y"), value.NewInt(2)},
		{value.NewString("x"), value.NewInt(3)},
	})
	manager := block.NewManager(10)
	aggs := []AggColumn{{
		Name: "TOTAL",
		Type: value.TypeInt,
		Spec: iterator.AggSpec{
			NewAgg: func() aggregate.Aggregate {
				sum, err := aggregate.NewSum(value.TypeInt)
				require.NoError(t, err)
				return sum
			},
			Column: 1,
		},
	}}
	g := NewGroupingOperator(manager, input, []int{0}, aggs)
	totals := map[string]int64{}
	for {
		row, ok, err := g.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		totals[row[0].Str()] = row[1].Int()
	}
	require.Equal(t, int64(4), totals["x"])
	require.Equal(t, int64(2), totals["y"])
}
