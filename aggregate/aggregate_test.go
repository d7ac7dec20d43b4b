package aggregate

import (
	"testing"

	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func TestCountXSkipsNulls(t *testing.T) {
	c := NewCount(false)
	c.Init()
	require.NoError(t, c.Step(value.NewInt(1)))
	require.NoError(t, c.Step(value.Null(value.TypeInt)))
	require.NoError(t, c.Step(value.NewInt(2)))
	result, err := c.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Int())
}

func TestCountXOverEmptyInputIsTypedNull(t *testing.T) {
	c := NewCount(false)
	c.Init()
	result, err := c.Finalize()
	require.NoError(t, err)
	require.True(t, result.IsNull())
}

func TestCountStarOverEmptyInputIsZero(t *testing.T) {
	c := NewCount(true)
	c.Init()
	result, err := c.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Int())
}

func TestCountStarCountsNullRows(t *testing.T) {
	c := NewCount(true)
	c.Init()
	require.NoError(t, c.Step(value.Null(value.TypeInt)))
	require.NoError(t, c.Step(value.Null(value.TypeInt)))
	result, err := c.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(2), result.Int())
}

func TestSumOnStringFailsAtConstruction(t *testing.T) {
	_, err := NewSum(value.TypeString)
	require.Error(t, err)
}

func TestSumSkipsNullsAndAccumulates(t *testing.T) {
	s, err := NewSum(value.TypeInt)
	require.NoError(t, err)
	require.NoError(t, s.Step(value.NewInt(3)))
	require.NoError(t, s.Step(value.Null(value.TypeInt)))
	require.NoError(t, s.Step(value.NewInt(4)))
	result, err := s.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(7), result.Int())
}

func TestSumOverEmptyInputIsTypedNull(t *testing.T) {
	s, err := NewSum(value.TypeReal)
	require.NoError(t, err)
	result, err := s.Finalize()
	require.NoError(t, err)
	require.True(t, result.IsNull())
	require.Equal(t, value.TypeReal, result.Type())
}

func TestAvgIsAlwaysReal(t *testing.T) {
	a, err := NewAvg(value.TypeInt)
	require.NoError(t, err)
	require.NoError(t, a.Step(value.NewInt(2)))
	require.NoError(t, a.Step(value.NewInt(4)))
	result, err := a.Finalize()
	require.NoError(t, err)
	require.Equal(t, value.TypeReal, result.Type())
	require.Equal(t, 3.0, result.Real())
}

func TestAvgOverEmptyInputIsTypedNull(t *testing.T) {
	a, err := NewAvg(value.TypeInt)
	require.NoError(t, err)
	result, err := a.Finalize()
	require.NoError(t, err)
	require.True(t, result.IsNull())
}

func TestMinMaxSkipNulls(t *testing.T) {
	min := NewMin(value.TypeInt)
	max := NewMax(value.TypeInt)
	for _, v := range []value.Value{value.NewInt(5), value.Null(value.TypeInt), value.NewInt(1), value.NewInt(9)} {
		require.NoError(t, min.Step(v))
		require.NoError(t, max.Step(v))
	}
	minResult, err := min.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(1), minResult.Int())
	maxResult, err := max.Finalize()
	require.NoError(t, err)
	require.Equal(t, int64(9), maxResult.Int())
}

func TestArbitraryKeepsFirstNonNull(t *testing.T) {
	a := NewArbitrary(value.TypeString)
	require.NoError(t, a.Step(value.Null(value.TypeString)))
	require.NoError(t, a.Step(value.NewString("first")))
	require.NoError(t, a.Step(value.NewString("second")))
	result, err := a.Finalize()
	require.NoError(t, err)
	require.Equal(t, "first", result.Str())
}

func TestPassThroughCarriesFirstValueAndCanSuppress(t *testing.T) {
	p := NewPassThrough(value.TypeString, true)
	require.NoError(t, p.Step(value.NewString("a")))
	require.NoError(t, p.Step(value.NewString("b")))
	result, err := p.Finalize()
	require.NoError(t, err)
	require.Equal(t, "a", result.Str())
	require.True(t, p.Suppress())
}
