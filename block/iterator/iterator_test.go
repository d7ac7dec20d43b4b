package iterator

import (
	"testing"

	"github.com/fuersten/csvsqldb-sub001/aggregate"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func rowsToBlocks(m *block.Manager, rows []block.Row) []*block.Block {
	var blocks []*block.Block
	var cur *block.Block
	for _, r := range rows {
		if cur == nil || cur.Full() {
			cur = m.NewBlock()
			blocks = append(blocks, cur)
		}
		cur.Append(r)
	}
	return blocks
}

func intRow(v int64) block.Row { return block.Row{value.NewInt(v)} }

func TestBasicIteratesAllRows(t *testing.T) {
	m := block.NewManager(2)
	blocks := rowsToBlocks(m, []block.Row{intRow(1), intRow(2), intRow(3)})
	basic := NewBasic(m, NewSliceProvider(blocks))
	var got []int64
	for {
		row, ok, err := basic.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0].Int())
	}
	require.Equal(t, []int64{1, 2, 3}, got)
	require.Equal(t, Ended, basic.State())
}

func TestCachingSupportsRewind(t *testing.T) {
	m := block.NewManager(10)
	blocks := rowsToBlocks(m, []block.Row{intRow(1), intRow(2)})
	c := NewCaching(m, NewSliceProvider(blocks))
	var first []int64
	for {
		row, ok, err := c.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		first = append(first, row[0].Int())
	}
	require.NoError(t, c.Rewind())
	var second []int64
	for {
		row, ok, err := c.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		second = append(second, row[0].Int())
	}
	require.Equal(t, first, second)
}

func TestSortingOrdersAscendingWithNullsLast(t *testing.T) {
	m := block.NewManager(10)
	rows := []block.Row{intRow(3), {value.Null(value.TypeInt)}, intRow(1)}
	blocks := rowsToBlocks(m, rows)
	s := NewSorting(m, NewSliceProvider(blocks), []SortKey{{ColumnIndex: 0, Desc: false}})
	var got []value.Value
	for {
		row, ok, err := s.NextRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row[0])
	}
	require.Equal(t, int64(1), got[0].Int())
	require.Equal(t, int64(3), got[1].Int())
	require.True(t, got[2].IsNull())
}

func TestHashingFindsMatchingBucket(t *testing.T) {
	m := block.NewManager(10)
	rows := []block.Row{
		{value.NewInt(1), value.NewString("a")},
		{value.NewInt(2), value.NewString("b")},
		{value.NewInt(1), value.NewString("c")},
	}
	blocks := rowsToBlocks(m, rows)
	h := NewHashing(m, NewSliceProvider(blocks), 0)
	require.NoError(t, h.SetContextForKey(value.NewInt(1)))
	var matches []string
	for {
		row, ok, err := h.NextKeyValueRow()
		require.NoError(t, err)
		if !ok {
			break
		}
		matches = append(matches, row[1].Str())
	}
	require.ElementsMatch(t, []string{"a", "c"}, matches)
}

func TestGroupingAggregatesPerKey(t *testing.T) {
	m := block.NewManager(10)
	rows := []block.Row{
		{value.NewString("x"), value.NewInt(1)},
		{value.NewString("y"), value.NewInt(2)},
		{value.NewString("x"), value.NewInt(3)},
	}
	blocks := rowsToBlocks(m, rows)
	specs := []AggSpec{{NewAgg: func() aggregate.Aggregate {
		s, _ := aggregate.NewSum(value.TypeInt)
		return s
	}, Column: 1}}
	g := NewGrouping(m, NewSliceProvider(blocks), []int{0}, specs)
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
