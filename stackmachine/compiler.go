package stackmachine

import (
	"fmt"
	"regexp"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
)

// compiler emits a postorder instruction sequence for one scalar
// expression (spec.md §4.5's AstToStackMachine visitor).
type compiler struct {
	instructions []Instruction
	varIDs       map[*ast.Symbol]int
	bindings     []VarBinding
	nextVarID    int
}

// Compile compiles expr into a StackMachine. Every Identifier reachable
// from expr must already be resolved (its Sym field set by the typer).
func Compile(expr ast.Expression) (*StackMachine, error) {
	c := &compiler{varIDs: make(map[*ast.Symbol]int)}
	if err := c.emit(expr); err != nil {
		return nil, err
	}
	return &StackMachine{Instructions: c.instructions, Bindings: c.bindings}, nil
}

func (c *compiler) emit(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.Literal:
		c.instructions = append(c.instructions, Instruction{Op: PUSH, Value: e.Value})
		return nil

	case *ast.Identifier:
		if e.Sym == nil {
			return csverrors.ErrEvaluation.New(fmt.Sprintf("unresolved identifier %s", e.Name))
		}
		varID, ok := c.varIDs[e.Sym]
		if !ok {
			varID = c.nextVarID
			c.nextVarID++
			c.varIDs[e.Sym] = varID
			c.bindings = append(c.bindings, VarBinding{Name: e.Sym.DisplayName(), Symbol: e.Sym, VarID: varID})
		}
		c.instructions = append(c.instructions, Instruction{Op: PUSH_VAR, VarID: varID})
		return nil

	case *ast.BinaryOp:
		return c.emitBinaryOp(e)

	case *ast.UnaryOp:
		return c.emitUnaryOp(e)

	case *ast.Like:
		if err := c.emit(e.Operand); err != nil {
			return err
		}
		re, err := regexp.Compile(e.Regex)
		if err != nil {
			return csverrors.ErrEvaluation.New(fmt.Sprintf("invalid LIKE pattern: %s", err))
		}
		c.instructions = append(c.instructions, Instruction{Op: LIKE, Regex: re})
		if e.Not {
			c.instructions = append(c.instructions, Instruction{Op: NOT})
		}
		return nil

	case *ast.Between:
		if err := c.emit(e.Operand); err != nil {
			return err
		}
		if err := c.emit(e.Low); err != nil {
			return err
		}
		if err := c.emit(e.High); err != nil {
			return err
		}
		c.instructions = append(c.instructions, Instruction{Op: BETWEEN})
		if e.Not {
			c.instructions = append(c.instructions, Instruction{Op: NOT})
		}
		return nil

	case *ast.In:
		if err := c.emit(e.Operand); err != nil {
			return err
		}
		for _, item := range e.List {
			if err := c.emit(item); err != nil {
				return err
			}
		}
		c.instructions = append(c.instructions, Instruction{Op: IN, Arity: len(e.List)})
		if e.Not {
			c.instructions = append(c.instructions, Instruction{Op: NOT})
		}
		return nil

	case *ast.FunctionCall:
		for _, arg := range e.Args {
			if err := c.emit(arg); err != nil {
				return err
			}
		}
		c.instructions = append(c.instructions, Instruction{Op: CALL, FuncName: e.Name, Arity: len(e.Args)})
		return nil

	case *ast.AggregateCall:
		return csverrors.ErrEvaluation.New("aggregate calls cannot be compiled into a scalar expression")

	default:
		return csverrors.ErrEvaluation.New(fmt.Sprintf("cannot compile expression %T", expr))
	}
}

func (c *compiler) emitBinaryOp(e *ast.BinaryOp) error {
	if e.Op == ast.OpIs || e.Op == ast.OpIsNot {
		lit, ok := e.Right.(*ast.Literal)
		if !ok {
			return csverrors.ErrEvaluation.New("IS [NOT] requires a literal right-hand side")
		}
		if err := c.emit(e.Left); err != nil {
			return err
		}
		op := IS
		if e.Op == ast.OpIsNot {
			op = ISNOT
		}
		c.instructions = append(c.instructions, Instruction{Op: op, Value: lit.Value})
		return nil
	}

	if err := c.emit(e.Left); err != nil {
		return err
	}
	if err := c.emit(e.Right); err != nil {
		return err
	}
	opcode, ok := binOpcodes[e.Op]
	if !ok {
		return csverrors.ErrEvaluation.New(fmt.Sprintf("cannot compile binary operator %s", e.Op))
	}
	c.instructions = append(c.instructions, Instruction{Op: opcode})
	return nil
}

var binOpcodes = map[ast.BinOp]Opcode{
	ast.OpAdd: ADD, ast.OpSub: SUB, ast.OpMul: MUL, ast.OpDiv: DIV, ast.OpMod: MOD,
	ast.OpConcat: CONCAT, ast.OpEq: EQ, ast.OpNeq: NEQ, ast.OpLt: LT, ast.OpLe: LE,
	ast.OpGt: GT, ast.OpGe: GE, ast.OpAnd: AND, ast.OpOr: OR,
}

func (c *compiler) emitUnaryOp(e *ast.UnaryOp) error {
	if err := c.emit(e.Operand); err != nil {
		return err
	}
	switch e.Op {
	case ast.OpNot:
		c.instructions = append(c.instructions, Instruction{Op: NOT})
	case ast.OpMinus:
		c.instructions = append(c.instructions, Instruction{Op: NEG})
	case ast.OpPlus:
		// no-op: unary + changes nothing
	case ast.OpCast:
		c.instructions = append(c.instructions, Instruction{Op: CAST, CastType: e.CastType})
	default:
		return csverrors.ErrEvaluation.New("unknown unary operator")
	}
	return nil
}
