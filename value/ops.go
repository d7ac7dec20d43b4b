package value

import (
	"fmt"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
)

// Coerce implements the binary-operation type promotion table of spec.md
// §4.3: Int×Int→Int, Real×Int→Real, Real×Real→Real; any other pairing of
// distinct, non-numeric types is a TypeMismatch.
func Coerce(a, b Value) (Value, Value, Type, error) {
	if a.typ == b.typ {
		return a, b, a.typ, nil
	}
	if a.typ.IsNumeric() && b.typ.IsNumeric() {
		return promoteToReal(a), promoteToReal(b), TypeReal, nil
	}
	return Value{}, Value{}, TypeNull, csverrors.ErrEvaluation.New(
		fmt.Sprintf("type mismatch: cannot combine %s and %s", a.typ, b.typ))
}

func promoteToReal(v Value) Value {
	if v.typ == TypeReal {
		return v
	}
	if v.null {
		return Null(TypeReal)
	}
	return NewReal(float64(v.i))
}

// InferArithmeticType returns the result type of a+b/a-b/a*b per spec.md
// §4.3 without evaluating anything: Int op Int -> Int, anything involving
// a Real -> Real.
func InferArithmeticType(a, b Type) (Type, error) {
	if a == TypeInt && b == TypeInt {
		return TypeInt, nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return TypeReal, nil
	}
	return TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("arithmetic requires numeric operands, got %s and %s", a, b))
}

func arith(a, b Value, op string, intOp func(int64, int64) (int64, bool), realOp func(float64, float64) (float64, bool)) (Value, error) {
	if !a.typ.IsNumeric() || !b.typ.IsNumeric() {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("%s requires numeric operands, got %s and %s", op, a.typ, b.typ))
	}
	resultType, err := InferArithmeticType(a.typ, b.typ)
	if err != nil {
		return Value{}, err
	}
	if a.null || b.null {
		return Null(resultType), nil
	}
	if resultType == TypeInt {
		r, ok := intOp(a.i, b.i)
		if !ok {
			return Null(TypeInt), nil
		}
		return NewInt(r), nil
	}
	ca, cb, _, err := Coerce(a, b)
	if err != nil {
		return Value{}, err
	}
	r, ok := realOp(ca.f, cb.f)
	if !ok {
		return Null(TypeReal), nil
	}
	return NewReal(r), nil
}

func Add(a, b Value) (Value, error) {
	return arith(a, b, "+",
		func(x, y int64) (int64, bool) { return x + y, true },
		func(x, y float64) (float64, bool) { return x + y, true })
}

func Sub(a, b Value) (Value, error) {
	return arith(a, b, "-",
		func(x, y int64) (int64, bool) { return x - y, true },
		func(x, y float64) (float64, bool) { return x - y, true })
}

func Mul(a, b Value) (Value, error) {
	return arith(a, b, "*",
		func(x, y int64) (int64, bool) { return x * y, true },
		func(x, y float64) (float64, bool) { return x * y, true })
}

// Div implements SQL division. Division by zero yields Null rather than an
// error for both the integer and real paths (spec.md §9 Open Question,
// decided in SPEC_FULL.md §1).
func Div(a, b Value) (Value, error) {
	return arith(a, b, "/",
		func(x, y int64) (int64, bool) {
			if y == 0 {
				return 0, false
			}
			return x / y, true
		},
		func(x, y float64) (float64, bool) {
			if y == 0 {
				return 0, false
			}
			return x / y, true
		})
}

// Mod implements SQL modulo, only defined over integers.
func Mod(a, b Value) (Value, error) {
	if a.typ != TypeInt || b.typ != TypeInt {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("MOD requires integer operands, got %s and %s", a.typ, b.typ))
	}
	if a.null || b.null {
		return Null(TypeInt), nil
	}
	if b.i == 0 {
		return Null(TypeInt), nil
	}
	return NewInt(a.i % b.i), nil
}

// Concat implements the || string-concatenation operator. Per spec.md
// §4.3, the result is String whenever at least one side is String; a
// String operand contributes its raw text, any other operand is
// stringified via Format.
func Concat(a, b Value) (Value, error) {
	if a.null || b.null {
		return Null(TypeString), nil
	}
	return NewString(stringify(a) + stringify(b)), nil
}

func stringify(v Value) string {
	if v.typ == TypeString {
		return v.s
	}
	return v.Format()
}

// Neg implements unary minus; unary plus is a no-op handled by the caller.
func Neg(a Value) (Value, error) {
	if !a.typ.IsNumeric() {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("unary - requires a numeric operand, got %s", a.typ))
	}
	if a.null {
		return a, nil
	}
	if a.typ == TypeInt {
		return NewInt(-a.i), nil
	}
	return NewReal(-a.f), nil
}

// Compare orders two values of the same or numerically-compatible types.
// Cross-type comparisons between non-numeric types fail with a type
// mismatch, per spec.md §3.1.
func Compare(a, b Value) (int, error) {
	if a.null || b.null {
		return 0, errNullCompare
	}
	ca, cb, t, err := Coerce(a, b)
	if err != nil {
		return 0, err
	}
	switch t {
	case TypeBool:
		return compareInt(ca.i, cb.i), nil
	case TypeInt:
		return compareInt(ca.i, cb.i), nil
	case TypeReal:
		return compareFloat(ca.f, cb.f), nil
	case TypeString:
		return strings.Compare(ca.s, cb.s), nil
	case TypeDate:
		return compareTuple3(ca.y, ca.mo, ca.d, cb.y, cb.mo, cb.d), nil
	case TypeTime:
		return compareTuple3(ca.h, ca.mi, ca.se, cb.h, cb.mi, cb.se), nil
	case TypeTimestamp:
		c := compareTuple3(ca.y, ca.mo, ca.d, cb.y, cb.mo, cb.d)
		if c != 0 {
			return c, nil
		}
		return compareTuple3(ca.h, ca.mi, ca.se, cb.h, cb.mi, cb.se), nil
	default:
		return 0, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot compare values of type %s", t))
	}
}

// errNullCompare is a sentinel used internally by Compare/the comparison
// operators below to signal three-valued-logic null propagation; it is
// never returned to callers outside this package.
var errNullCompare = fmt.Errorf("null comparand")

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTuple3(a1, a2, a3, b1, b2, b3 int) int {
	if c := compareInt(int64(a1), int64(b1)); c != 0 {
		return c
	}
	if c := compareInt(int64(a2), int64(b2)); c != 0 {
		return c
	}
	return compareInt(int64(a3), int64(b3))
}

func threeValuedCompare(a, b Value, pred func(int) bool) (Value, error) {
	c, err := Compare(a, b)
	if err == errNullCompare {
		return Null(TypeBool), nil
	}
	if err != nil {
		return Value{}, err
	}
	return NewBool(pred(c)), nil
}

func Eq(a, b Value) (Value, error) {
	if a.null || b.null {
		return Null(TypeBool), nil
	}
	if a.typ == TypeString || b.typ == TypeString {
		if a.typ != b.typ {
			return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("type mismatch: cannot compare %s and %s", a.typ, b.typ))
		}
		return NewBool(a.s == b.s), nil
	}
	return threeValuedCompare(a, b, func(c int) bool { return c == 0 })
}

func Neq(a, b Value) (Value, error) {
	eq, err := Eq(a, b)
	if err != nil {
		return Value{}, err
	}
	if eq.null {
		return eq, nil
	}
	return NewBool(!eq.Bool()), nil
}

func Lt(a, b Value) (Value, error) { return threeValuedCompare(a, b, func(c int) bool { return c < 0 }) }
func Le(a, b Value) (Value, error) { return threeValuedCompare(a, b, func(c int) bool { return c <= 0 }) }
func Gt(a, b Value) (Value, error) { return threeValuedCompare(a, b, func(c int) bool { return c > 0 }) }
func Ge(a, b Value) (Value, error) { return threeValuedCompare(a, b, func(c int) bool { return c >= 0 }) }

// And implements three-valued AND: Null AND false = false (spec.md §4.5).
func And(a, b Value) (Value, error) {
	if !a.null && !a.Bool() {
		return NewBool(false), nil
	}
	if !b.null && !b.Bool() {
		return NewBool(false), nil
	}
	if a.null || b.null {
		return Null(TypeBool), nil
	}
	return NewBool(true), nil
}

// Or implements three-valued OR: Null OR true = true (spec.md §4.5).
func Or(a, b Value) (Value, error) {
	if !a.null && a.Bool() {
		return NewBool(true), nil
	}
	if !b.null && b.Bool() {
		return NewBool(true), nil
	}
	if a.null || b.null {
		return Null(TypeBool), nil
	}
	return NewBool(false), nil
}

func Not(a Value) (Value, error) {
	if a.typ != TypeBool {
		return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("NOT requires a boolean operand, got %s", a.typ))
	}
	if a.null {
		return a, nil
	}
	return NewBool(!a.Bool()), nil
}

// Is implements IS <value>: unlike Eq, a null operand on the left side
// compares equal to an explicit null literal on the right rather than
// propagating to null.
func Is(a, b Value) (Value, error) {
	if a.null != b.null {
		return NewBool(false), nil
	}
	if a.null && b.null {
		return NewBool(true), nil
	}
	eq, err := Eq(a, b)
	if err != nil {
		return Value{}, err
	}
	return eq, nil
}

func IsNot(a, b Value) (Value, error) {
	is, err := Is(a, b)
	if err != nil {
		return Value{}, err
	}
	return NewBool(!is.Bool()), nil
}

// Cast converts v to the target type, per spec.md §4.3 ("CAST yields the
// target type").
func Cast(v Value, target Type) (Value, error) {
	if v.null {
		return Null(target), nil
	}
	if v.typ == target {
		return v, nil
	}
	switch target {
	case TypeInt:
		switch v.typ {
		case TypeReal:
			return NewInt(int64(v.f)), nil
		case TypeBool:
			return NewInt(v.i), nil
		case TypeString:
			i, err := ToInt64(v.s)
			if err != nil {
				return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot CAST %q to INT", v.s))
			}
			return NewInt(i), nil
		}
	case TypeReal:
		switch v.typ {
		case TypeInt:
			return NewReal(float64(v.i)), nil
		case TypeString:
			f, err := ToFloat64(v.s)
			if err != nil {
				return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot CAST %q to REAL", v.s))
			}
			return NewReal(f), nil
		}
	case TypeString:
		return NewString(v.Format()), nil
	case TypeBool:
		switch v.typ {
		case TypeInt:
			return NewBool(v.i != 0), nil
		case TypeString:
			b, err := ToBool(v.s)
			if err != nil {
				return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot CAST %q to BOOLEAN", v.s))
			}
			return NewBool(b), nil
		}
	case TypeDate:
		if v.typ == TypeString {
			return ParseDateLiteral(v.s)
		}
	case TypeTime:
		if v.typ == TypeString {
			return ParseTimeLiteral(v.s)
		}
	case TypeTimestamp:
		if v.typ == TypeString {
			return ParseTimestampLiteral(v.s)
		}
	}
	return Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("cannot CAST %s to %s", v.typ, target))
}
