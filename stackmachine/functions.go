package stackmachine

import (
	"fmt"
	"time"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// Function is a scalar function implementation invoked by CALL.
type Function func(args []value.Value) (value.Value, error)

// FunctionRegistry resolves a CALL instruction's function name to its
// implementation (spec.md §4.5's function_registry).
type FunctionRegistry struct {
	functions map[string]Function
}

// NewFunctionRegistry returns a registry pre-populated with the builtin
// scalar functions spec.md §4.2/§4.3 desugars to: EXTRACT and the
// CURRENT_DATE/CURRENT_TIME/CURRENT_TIMESTAMP niladic functions.
func NewFunctionRegistry(now func() time.Time) *FunctionRegistry {
	if now == nil {
		now = time.Now
	}
	r := &FunctionRegistry{functions: make(map[string]Function)}
	r.Register("EXTRACT", extractFunction)
	r.Register("CURRENT_DATE", func(args []value.Value) (value.Value, error) {
		t := now()
		return value.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	})
	r.Register("CURRENT_TIME", func(args []value.Value) (value.Value, error) {
		t := now()
		return value.NewTime(t.Hour(), t.Minute(), t.Second()), nil
	})
	r.Register("CURRENT_TIMESTAMP", func(args []value.Value) (value.Value, error) {
		t := now()
		return value.NewTimestamp(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()), nil
	})
	return r
}

// Register installs fn under name, overwriting any previous entry.
func (r *FunctionRegistry) Register(name string, fn Function) {
	r.functions[name] = fn
}

// Call invokes the function registered under name.
func (r *FunctionRegistry) Call(name string, args []value.Value) (value.Value, error) {
	fn, ok := r.functions[name]
	if !ok {
		return value.Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("unknown function %s", name))
	}
	return fn(args)
}

// extractFunction implements EXTRACT(field_code, e) as desugared by the
// parser (ast.ExtractSecond..ast.ExtractYear field codes).
func extractFunction(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Value{}, csverrors.ErrEvaluation.New("EXTRACT requires exactly two arguments")
	}
	if args[1].IsNull() {
		return value.Null(value.TypeInt), nil
	}
	field := int(args[0].Int())
	y, mo, d, h, mi, se, err := dateTimeParts(args[1])
	if err != nil {
		return value.Value{}, err
	}
	switch field {
	case ast.ExtractSecond:
		return value.NewInt(int64(se)), nil
	case ast.ExtractMinute:
		return value.NewInt(int64(mi)), nil
	case ast.ExtractHour:
		return value.NewInt(int64(h)), nil
	case ast.ExtractDay:
		return value.NewInt(int64(d)), nil
	case ast.ExtractMonth:
		return value.NewInt(int64(mo)), nil
	case ast.ExtractYear:
		return value.NewInt(int64(y)), nil
	default:
		return value.Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("unknown EXTRACT field code %d", field))
	}
}

func dateTimeParts(v value.Value) (y, mo, d, h, mi, se int, err error) {
	switch v.Type() {
	case value.TypeDate:
		y, mo, d = v.Date()
		return
	case value.TypeTime:
		h, mi, se = v.Time()
		return
	case value.TypeTimestamp:
		y, mo, d = v.Date()
		h, mi, se = v.Time()
		return
	default:
		return 0, 0, 0, 0, 0, 0, csverrors.ErrEvaluation.New(
			fmt.Sprintf("EXTRACT requires a date, time, or timestamp operand, got %s", v.Type()))
	}
}
