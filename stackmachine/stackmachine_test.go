package stackmachine

import (
	"testing"
	"time"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func identifier(name string, t value.Type) *ast.Identifier {
	return &ast.Identifier{Name: name, Sym: &ast.Symbol{Kind: ast.Plain, Name: name, Type: t}}
}

func literal(v value.Value) *ast.Literal {
	return &ast.Literal{Value: v}
}

func evalExpr(t *testing.T, expr ast.Expression, binds map[string]value.Value) value.Value {
	t.Helper()
	m, err := Compile(expr)
	require.NoError(t, err)
	store := NewVariableStore()
	for _, b := range m.Bindings {
		v, ok := binds[b.Name]
		require.True(t, ok, "missing binding for %s", b.Name)
		store.Bind(b.VarID, v)
	}
	registry := NewFunctionRegistry(func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) })
	result, err := m.Evaluate(store, registry)
	require.NoError(t, err)
	return result
}

func TestEvaluateArithmetic(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpAdd, Left: literal(value.NewInt(3)), Right: literal(value.NewInt(4))}
	result := evalExpr(t, expr, nil)
	require.Equal(t, int64(7), result.Int())
}

func TestEvaluateArithmeticPromotesToReal(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpMul, Left: literal(value.NewInt(2)), Right: literal(value.NewReal(1.5))}
	result := evalExpr(t, expr, nil)
	require.Equal(t, value.TypeReal, result.Type())
	require.Equal(t, 3.0, result.Real())
}

func TestEvaluateDivisionByZeroYieldsNull(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpDiv, Left: literal(value.NewInt(1)), Right: literal(value.NewInt(0))}
	result := evalExpr(t, expr, nil)
	require.True(t, result.IsNull())
}

func TestEvaluateVariableBinding(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpGt, Left: identifier("SALARY", value.TypeReal), Right: literal(value.NewReal(1000))}
	result := evalExpr(t, expr, map[string]value.Value{"SALARY": value.NewReal(2000)})
	require.True(t, result.Bool())
}

func TestEvaluateAndThreeValuedLogic(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpAnd, Left: literal(value.Null(value.TypeBool)), Right: literal(value.NewBool(false))}
	result := evalExpr(t, expr, nil)
	require.False(t, result.IsNull())
	require.False(t, result.Bool())
}

func TestEvaluateOrThreeValuedLogic(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpOr, Left: literal(value.Null(value.TypeBool)), Right: literal(value.NewBool(true))}
	result := evalExpr(t, expr, nil)
	require.False(t, result.IsNull())
	require.True(t, result.Bool())
}

func TestEvaluateLike(t *testing.T) {
	expr := &ast.Like{Operand: literal(value.NewString("Martina")), Regex: `^M.*n.$`}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateNotLike(t *testing.T) {
	expr := &ast.Like{Operand: literal(value.NewString("Jonas")), Regex: `^M.*n.$`, Not: true}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateBetween(t *testing.T) {
	expr := &ast.Between{Operand: literal(value.NewInt(5)), Low: literal(value.NewInt(1)), High: literal(value.NewInt(10))}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateNotBetween(t *testing.T) {
	expr := &ast.Between{Operand: literal(value.NewInt(50)), Low: literal(value.NewInt(1)), High: literal(value.NewInt(10)), Not: true}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateIn(t *testing.T) {
	expr := &ast.In{Operand: literal(value.NewInt(2)), List: []ast.Expression{literal(value.NewInt(1)), literal(value.NewInt(2))}}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateInWithNullCandidateIsNullWhenNoMatch(t *testing.T) {
	expr := &ast.In{Operand: literal(value.NewInt(3)), List: []ast.Expression{literal(value.Null(value.TypeInt)), literal(value.NewInt(2))}}
	result := evalExpr(t, expr, nil)
	require.True(t, result.IsNull())
}

func TestEvaluateIsNull(t *testing.T) {
	expr := &ast.BinaryOp{Op: ast.OpIs, Left: literal(value.Null(value.TypeString)), Right: literal(value.Null(value.TypeString))}
	result := evalExpr(t, expr, nil)
	require.True(t, result.Bool())
}

func TestEvaluateCast(t *testing.T) {
	expr := &ast.UnaryOp{Op: ast.OpCast, Operand: literal(value.NewInt(7)), CastType: value.TypeReal}
	result := evalExpr(t, expr, nil)
	require.Equal(t, value.TypeReal, result.Type())
	require.Equal(t, 7.0, result.Real())
}

func TestEvaluateUnaryMinus(t *testing.T) {
	expr := &ast.UnaryOp{Op: ast.OpMinus, Operand: literal(value.NewInt(5))}
	result := evalExpr(t, expr, nil)
	require.Equal(t, int64(-5), result.Int())
}

func TestEvaluateExtract(t *testing.T) {
	expr := &ast.FunctionCall{Name: "EXTRACT", Args: []ast.Expression{
		literal(value.NewInt(int64(ast.ExtractYear))),
		literal(value.NewDate(2024, 6, 15)),
	}}
	result := evalExpr(t, expr, nil)
	require.Equal(t, int64(2024), result.Int())
}

func TestEvaluateCurrentDate(t *testing.T) {
	expr := &ast.FunctionCall{Name: "CURRENT_DATE"}
	result := evalExpr(t, expr, nil)
	y, mo, d := result.Date()
	require.Equal(t, 2020, y)
	require.Equal(t, 1, mo)
	require.Equal(t, 2, d)
}

func TestCompileAggregateCallIsError(t *testing.T) {
	_, err := Compile(&ast.AggregateCall{Name: "SUM", Arg: literal(value.NewInt(1))})
	require.Error(t, err)
}

func TestCompileReusesVarIDForRepeatedIdentifier(t *testing.T) {
	id := identifier("ID", value.TypeInt)
	expr := &ast.BinaryOp{Op: ast.OpEq, Left: id, Right: id}
	m, err := Compile(expr)
	require.NoError(t, err)
	require.Len(t, m.Bindings, 1)
}
