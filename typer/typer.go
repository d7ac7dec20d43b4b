// Package typer implements spec.md §4.3's type_symbol_table: it
// completes the symbol-table skeleton the parser built with catalog-
// derived column symbols, resolves every identifier reference against
// that universe, and infers the type of every expression.
//
// The parser registers only Table/Subquery/Calc symbols as it parses
// (ast.Identifier nodes are built with a nil Sym). A fourth kind of
// bookkeeping spec.md §4.3 describes — pre-registering a Plain "stub"
// symbol for every identifier occurrence before resolution — is folded
// into resolveIdentifier below: it resolves and caches directly onto
// the Identifier node instead of indirecting through a pre-registered
// stand-in symbol in the table. Both produce the same resolved
// Relation/Type/ambiguity-or-not-found outcome; the stub pass has no
// externally observable effect once resolution completes, so carrying
// it as a separate bookkeeping step would add a structure with no
// behavioral payoff.
package typer

import (
	"fmt"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// OutputColumn is one entry of a query body's output schema: the
// user-visible name and inferred type of one select-list position.
type OutputColumn struct {
	Name string
	Type value.Type
}

// TypeQuery types q's body, top to bottom, and returns its output
// schema.
func TypeQuery(db *catalog.Database, q *ast.Query) ([]OutputColumn, error) {
	return typeQueryBody(db, q.Body)
}

func typeQueryBody(db *catalog.Database, body ast.QueryBody) ([]OutputColumn, error) {
	switch b := body.(type) {
	case *ast.Union:
		left, err := typeQueryBody(db, b.Left)
		if err != nil {
			return nil, err
		}
		if _, err := typeQueryBody(db, b.Right); err != nil {
			return nil, err
		}
		return left, nil
	case *ast.QuerySpecification:
		return typeQuerySpecification(db, b)
	default:
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown query body %T", body))
	}
}

func typeQuerySpecification(db *catalog.Database, qs *ast.QuerySpecification) ([]OutputColumn, error) {
	st := qs.SymbolTable()
	if err := typeTableRef(db, st, qs.Table.From.Table); err != nil {
		return nil, err
	}
	if w := qs.Table.Where; w != nil {
		if _, err := InferType(st, w.Condition); err != nil {
			return nil, err
		}
	}
	if g := qs.Table.GroupBy; g != nil {
		for _, key := range g.Keys {
			if _, err := InferType(st, key); err != nil {
				return nil, err
			}
		}
	}
	if h := qs.Table.Having; h != nil {
		if _, err := InferType(st, h.Condition); err != nil {
			return nil, err
		}
	}
	if o := qs.Table.OrderBy; o != nil {
		for _, item := range o.Items {
			if _, err := InferType(st, item.Expr); err != nil {
				return nil, err
			}
		}
	}

	var cols []OutputColumn
	for i := range qs.SelectList {
		item := &qs.SelectList[i]
		if qa, ok := item.Expr.(*ast.QualifiedAsterisk); ok {
			expanded, err := expandAsterisk(st, qa)
			if err != nil {
				return nil, err
			}
			cols = append(cols, expanded...)
			continue
		}
		t, err := InferType(st, item.Expr)
		if err != nil {
			return nil, err
		}
		name := ""
		if item.Sym != nil {
			item.Sym.Type = t
			name = item.Sym.DisplayName()
		} else if id, ok := item.Expr.(*ast.Identifier); ok {
			name = id.Name
		}
		cols = append(cols, OutputColumn{Name: name, Type: t})
	}
	return cols, nil
}

func expandAsterisk(st *ast.SymbolTable, qa *ast.QualifiedAsterisk) ([]OutputColumn, error) {
	var cols []OutputColumn
	for _, sym := range st.Symbols() {
		if sym.Kind != ast.Plain {
			continue
		}
		if qa.Qualifier != "" && sym.Relation != qa.Qualifier {
			continue
		}
		cols = append(cols, OutputColumn{Name: sym.Name, Type: sym.Type})
	}
	if len(cols) == 0 {
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("no columns found for %s.*", qa.Qualifier))
	}
	return cols, nil
}

// typeTableRef populates st with the catalog-derived Plain column
// symbols exposed by ref (step 1-2 of spec.md §4.3: subqueries are
// typed first, recursively, so their own output schema is known before
// being exposed as a pseudo-table to the enclosing scope).
func typeTableRef(db *catalog.Database, st *ast.SymbolTable, ref ast.TableRef) error {
	switch r := ref.(type) {
	case *ast.TableIdentifier:
		schema, ok := db.Table(r.Name)
		if !ok {
			return csverrors.ErrSemantic.New(fmt.Sprintf("unknown table %q", r.Name))
		}
		relation := r.Alias
		if relation == "" {
			relation = r.Name
		}
		for _, col := range schema.Columns {
			st.AddSymbol(&ast.Symbol{Kind: ast.Plain, Name: col.Name, Relation: relation, Type: col.Type})
		}
		return nil
	case *ast.TableSubquery:
		cols, err := typeQueryBody(db, r.Query.Body)
		if err != nil {
			return err
		}
		for _, c := range cols {
			st.AddSymbol(&ast.Symbol{Kind: ast.Plain, Name: c.Name, Relation: r.Alias, Type: c.Type})
		}
		return nil
	case *ast.Join:
		if err := typeTableRef(db, st, r.Left); err != nil {
			return err
		}
		if err := typeTableRef(db, st, r.Right); err != nil {
			return err
		}
		if r.On != nil {
			if _, err := InferType(st, r.On); err != nil {
				return err
			}
		}
		return nil
	default:
		return csverrors.ErrSemantic.New(fmt.Sprintf("unknown table reference %T", ref))
	}
}

// InferType resolves every identifier reachable from expr against st
// and returns expr's type, per the promotion table of spec.md §4.3.
func InferType(st *ast.SymbolTable, expr ast.Expression) (value.Type, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value.Type(), nil
	case *ast.Identifier:
		sym, err := resolveIdentifier(st, e)
		if err != nil {
			return value.TypeNull, err
		}
		e.Sym = sym
		return sym.Type, nil
	case *ast.QualifiedAsterisk:
		return value.TypeNull, csverrors.ErrSemantic.New("asterisk has no scalar type")
	case *ast.BinaryOp:
		return inferBinaryOp(st, e)
	case *ast.UnaryOp:
		return inferUnaryOp(st, e)
	case *ast.Like:
		operandType, err := InferType(st, e.Operand)
		if err != nil {
			return value.TypeNull, err
		}
		if operandType != value.TypeString {
			return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("LIKE requires a string operand, got %s", operandType))
		}
		return value.TypeBool, nil
	case *ast.Between:
		if _, err := InferType(st, e.Operand); err != nil {
			return value.TypeNull, err
		}
		if _, err := InferType(st, e.Low); err != nil {
			return value.TypeNull, err
		}
		if _, err := InferType(st, e.High); err != nil {
			return value.TypeNull, err
		}
		return value.TypeBool, nil
	case *ast.In:
		if _, err := InferType(st, e.Operand); err != nil {
			return value.TypeNull, err
		}
		for _, item := range e.List {
			if _, err := InferType(st, item); err != nil {
				return value.TypeNull, err
			}
		}
		return value.TypeBool, nil
	case *ast.FunctionCall:
		return inferFunctionCall(st, e)
	case *ast.AggregateCall:
		return inferAggregateCall(st, e)
	default:
		return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("unknown expression %T", expr))
	}
}

func inferBinaryOp(st *ast.SymbolTable, e *ast.BinaryOp) (value.Type, error) {
	lt, err := InferType(st, e.Left)
	if err != nil {
		return value.TypeNull, err
	}
	rt, err := InferType(st, e.Right)
	if err != nil {
		return value.TypeNull, err
	}
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return value.InferArithmeticType(lt, rt)
	case ast.OpConcat:
		return value.TypeString, nil
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpIs, ast.OpIsNot:
		if lt != rt && !(lt.IsNumeric() && rt.IsNumeric()) {
			return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("type mismatch comparing %s and %s", lt, rt))
		}
		return value.TypeBool, nil
	case ast.OpAnd, ast.OpOr:
		if lt != value.TypeBool || rt != value.TypeBool {
			return value.TypeNull, csverrors.ErrSemantic.New("AND/OR require boolean operands")
		}
		return value.TypeBool, nil
	default:
		return value.TypeNull, csverrors.ErrSemantic.New("unknown binary operator")
	}
}

func inferUnaryOp(st *ast.SymbolTable, e *ast.UnaryOp) (value.Type, error) {
	operandType, err := InferType(st, e.Operand)
	if err != nil {
		return value.TypeNull, err
	}
	switch e.Op {
	case ast.OpNot:
		if operandType != value.TypeBool {
			return value.TypeNull, csverrors.ErrSemantic.New("NOT requires a boolean operand")
		}
		return value.TypeBool, nil
	case ast.OpPlus, ast.OpMinus:
		if !operandType.IsNumeric() {
			return value.TypeNull, csverrors.ErrSemantic.New("unary +/- requires a numeric operand")
		}
		return operandType, nil
	case ast.OpCast:
		return e.CastType, nil
	default:
		return value.TypeNull, csverrors.ErrSemantic.New("unknown unary operator")
	}
}

func inferFunctionCall(st *ast.SymbolTable, e *ast.FunctionCall) (value.Type, error) {
	for _, arg := range e.Args {
		if _, err := InferType(st, arg); err != nil {
			return value.TypeNull, err
		}
	}
	switch e.Name {
	case "EXTRACT":
		return value.TypeInt, nil
	case "CURRENT_DATE":
		return value.TypeDate, nil
	case "CURRENT_TIME":
		return value.TypeTime, nil
	case "CURRENT_TIMESTAMP":
		return value.TypeTimestamp, nil
	default:
		return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("unknown function %s", e.Name))
	}
}

func inferAggregateCall(st *ast.SymbolTable, e *ast.AggregateCall) (value.Type, error) {
	if e.Star {
		return value.TypeInt, nil
	}
	argType, err := InferType(st, e.Arg)
	if err != nil {
		return value.TypeNull, err
	}
	switch e.Name {
	case "COUNT":
		return value.TypeInt, nil
	case "SUM", "AVG", "MIN", "MAX", "ARBITRARY":
		if (e.Name == "SUM" || e.Name == "AVG") && !argType.IsNumeric() {
			return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("%s requires a numeric argument, got %s", e.Name, argType))
		}
		if e.Name == "AVG" {
			return value.TypeReal, nil
		}
		return argType, nil
	default:
		return value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("unknown aggregate function %s", e.Name))
	}
}

// resolveIdentifier implements spec.md §4.3 step 3: a qualified name
// resolves against the named table/alias; an unqualified name must be
// unique across every table currently in scope.
func resolveIdentifier(st *ast.SymbolTable, id *ast.Identifier) (*ast.Symbol, error) {
	for scope := st; scope != nil; scope = scope.Parent {
		if id.Qualifier != "" {
			if sym, ok := scope.FindByRelationAndName(id.Qualifier, id.Name); ok {
				return sym, nil
			}
			continue
		}
		var found *ast.Symbol
		count := 0
		for _, sym := range scope.Symbols() {
			if sym.Kind == ast.Plain && sym.Name == id.Name {
				found = sym
				count++
			}
		}
		if count > 1 {
			return nil, csverrors.ErrSemantic.New(fmt.Sprintf("ambiguous symbol %q", id.Name))
		}
		if count == 1 {
			return found, nil
		}
	}
	qualified := id.Name
	if id.Qualifier != "" {
		qualified = id.Qualifier + "." + id.Name
	}
	return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown symbol %q", qualified))
}
