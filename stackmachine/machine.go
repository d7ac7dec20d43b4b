package stackmachine

import (
	"fmt"
	"regexp"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// StackMachine holds a compiled scalar expression: its instruction
// vector plus the (name, var_id) bindings a caller must satisfy in the
// VariableStore before calling Evaluate (spec.md §4.5).
type StackMachine struct {
	Instructions []Instruction
	Bindings     []VarBinding
}

// Evaluate runs the instruction sequence against store, resolving any
// CALL instruction through registry, and returns the single value left
// on the stack.
func (m *StackMachine) Evaluate(store *VariableStore, registry *FunctionRegistry) (value.Value, error) {
	var stack []value.Value
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() (value.Value, error) {
		if len(stack) == 0 {
			return value.Value{}, csverrors.ErrEvaluation.New("stack underflow")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	popN := func(n int) ([]value.Value, error) {
		if len(stack) < n {
			return nil, csverrors.ErrEvaluation.New("stack underflow")
		}
		vs := append([]value.Value(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]
		return vs, nil
	}
	binary := func(fn func(a, b value.Value) (value.Value, error)) error {
		b, err := pop()
		if err != nil {
			return err
		}
		a, err := pop()
		if err != nil {
			return err
		}
		r, err := fn(a, b)
		if err != nil {
			return err
		}
		push(r)
		return nil
	}

	for _, ins := range m.Instructions {
		switch ins.Op {
		case PUSH:
			push(ins.Value)
		case PUSH_VAR:
			push(store.Get(ins.VarID))
		case ADD:
			if err := binary(value.Add); err != nil {
				return value.Value{}, err
			}
		case SUB:
			if err := binary(value.Sub); err != nil {
				return value.Value{}, err
			}
		case MUL:
			if err := binary(value.Mul); err != nil {
				return value.Value{}, err
			}
		case DIV:
			if err := binary(value.Div); err != nil {
				return value.Value{}, err
			}
		case MOD:
			if err := binary(value.Mod); err != nil {
				return value.Value{}, err
			}
		case CONCAT:
			if err := binary(value.Concat); err != nil {
				return value.Value{}, err
			}
		case EQ:
			if err := binary(value.Eq); err != nil {
				return value.Value{}, err
			}
		case NEQ:
			if err := binary(value.Neq); err != nil {
				return value.Value{}, err
			}
		case GT:
			if err := binary(value.Gt); err != nil {
				return value.Value{}, err
			}
		case GE:
			if err := binary(value.Ge); err != nil {
				return value.Value{}, err
			}
		case LT:
			if err := binary(value.Lt); err != nil {
				return value.Value{}, err
			}
		case LE:
			if err := binary(value.Le); err != nil {
				return value.Value{}, err
			}
		case AND:
			if err := binary(value.And); err != nil {
				return value.Value{}, err
			}
		case OR:
			if err := binary(value.Or); err != nil {
				return value.Value{}, err
			}
		case NOT:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			r, err := value.Not(a)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case NEG:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			r, err := value.Neg(a)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case IS:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			r, err := value.Is(a, ins.Value)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case ISNOT:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			r, err := value.IsNot(a, ins.Value)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case CAST:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			r, err := value.Cast(a, ins.CastType)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case LIKE:
			a, err := pop()
			if err != nil {
				return value.Value{}, err
			}
			push(evalLike(a, ins.Regex))
		case BETWEEN:
			vs, err := popN(3)
			if err != nil {
				return value.Value{}, err
			}
			r, err := evalBetween(vs[0], vs[1], vs[2])
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case IN:
			vs, err := popN(ins.Arity + 1)
			if err != nil {
				return value.Value{}, err
			}
			r, err := evalIn(vs[0], vs[1:])
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		case CALL:
			args, err := popN(ins.Arity)
			if err != nil {
				return value.Value{}, err
			}
			r, err := registry.Call(ins.FuncName, args)
			if err != nil {
				return value.Value{}, err
			}
			push(r)
		default:
			return value.Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("unknown opcode %s", ins.Op))
		}
	}

	if len(stack) != 1 {
		return value.Value{}, csverrors.ErrEvaluation.New(fmt.Sprintf("expression left %d values on the stack, want 1", len(stack)))
	}
	return stack[0], nil
}

func evalLike(operand value.Value, re *regexp.Regexp) value.Value {
	if operand.IsNull() {
		return value.Null(value.TypeBool)
	}
	return value.NewBool(re.MatchString(operand.Str()))
}

func evalBetween(operand, low, high value.Value) (value.Value, error) {
	ge, err := value.Ge(operand, low)
	if err != nil {
		return value.Value{}, err
	}
	le, err := value.Le(operand, high)
	if err != nil {
		return value.Value{}, err
	}
	return value.And(ge, le)
}

// evalIn implements spec.md's three-valued IN: true if any candidate
// equals operand, null if no match was found but the comparison was
// inconclusive for at least one candidate (null operand or candidate),
// false otherwise.
func evalIn(operand value.Value, candidates []value.Value) (value.Value, error) {
	sawNull := operand.IsNull()
	for _, c := range candidates {
		eq, err := value.Eq(operand, c)
		if err != nil {
			return value.Value{}, err
		}
		if eq.IsNull() {
			sawNull = true
			continue
		}
		if eq.Bool() {
			return value.NewBool(true), nil
		}
	}
	if sawNull {
		return value.Null(value.TypeBool), nil
	}
	return value.NewBool(false), nil
}
