package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromCSVField(t *testing.T) {
	tests := []struct {
		raw  string
		typ  Type
		want Value
	}{
		{"", TypeInt, Null(TypeInt)},
		{"42", TypeInt, NewInt(42)},
		{"-7", TypeInt, NewInt(-7)},
		{"3.5", TypeReal, NewReal(3.5)},
		{"true", TypeBool, NewBool(true)},
		{"0", TypeBool, NewBool(false)},
		{"hello", TypeString, NewString("hello")},
		{"1969-05-17", TypeDate, NewDate(1969, 5, 17)},
		{"10:20:30", TypeTime, NewTime(10, 20, 30)},
		{"1969-05-17T10:20:30", TypeTimestamp, NewTimestamp(1969, 5, 17, 10, 20, 30)},
	}
	for _, test := range tests {
		got, err := FromCSVField(test.raw, test.typ)
		require.NoError(t, err)
		require.Equal(t, test.want, got)
	}
}

func TestDivisionByZeroYieldsNull(t *testing.T) {
	r, err := Div(NewInt(4), NewInt(0))
	require.NoError(t, err)
	require.True(t, r.IsNull())
	require.Equal(t, TypeInt, r.Type())

	r, err = Div(NewReal(4), NewReal(0))
	require.NoError(t, err)
	require.True(t, r.IsNull())
	require.Equal(t, TypeReal, r.Type())
}

func TestThreeValuedLogic(t *testing.T) {
	falseV := NewBool(false)
	trueV := NewBool(true)
	nullV := Null(TypeBool)

	r, err := And(nullV, falseV)
	require.NoError(t, err)
	require.False(t, r.IsNull())
	require.False(t, r.Bool())

	r, err = Or(nullV, trueV)
	require.NoError(t, err)
	require.False(t, r.IsNull())
	require.True(t, r.Bool())

	r, err = And(nullV, trueV)
	require.NoError(t, err)
	require.True(t, r.IsNull())
}

func TestCoercePromotesIntToReal(t *testing.T) {
	_, _, t1, err := Coerce(NewInt(1), NewReal(2.5))
	require.NoError(t, err)
	require.Equal(t, TypeReal, t1)

	_, _, _, err = Coerce(NewString("a"), NewInt(1))
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	require.Equal(t, "NULL", Null(TypeInt).Format())
	require.Equal(t, "'Mark Fürstenberg'", NewString("Mark Fürstenberg").Format())
	require.Equal(t, "1969-05-17", NewDate(1969, 5, 17).Format())
	require.Equal(t, "true", NewBool(true).Format())
}
