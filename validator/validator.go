// Package validator implements spec.md §4.4: the visitor that runs
// type_symbol_table over a parsed statement and rejects every
// construct this engine parses but does not execute.
package validator

import (
	"fmt"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/typer"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// Validate types stmt against db and rejects every construct spec.md
// §4.4 lists as unsupported. On success it returns the statement's
// output schema (nil for DDL statements, which have none).
func Validate(db *catalog.Database, stmt ast.Statement) ([]typer.OutputColumn, error) {
	switch s := stmt.(type) {
	case *ast.Query:
		return validateQuery(db, s)
	case *ast.Explain:
		return validateQuery(db, s.Query)
	case *ast.CreateTable, *ast.DropTable, *ast.CreateMapping, *ast.DropMapping:
		return nil, nil
	default:
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown statement %T", stmt))
	}
}

func validateQuery(db *catalog.Database, q *ast.Query) ([]typer.OutputColumn, error) {
	return validateQueryBody(db, q.Body)
}

func validateQueryBody(db *catalog.Database, body ast.QueryBody) ([]typer.OutputColumn, error) {
	switch b := body.(type) {
	case *ast.Union:
		return validateUnion(db, b)
	case *ast.QuerySpecification:
		return validateQuerySpecification(db, b)
	default:
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown query body %T", body))
	}
}

func validateUnion(db *catalog.Database, u *ast.Union) ([]typer.OutputColumn, error) {
	left, err := validateQueryBody(db, u.Left)
	if err != nil {
		return nil, err
	}
	right, err := validateQueryBody(db, u.Right)
	if err != nil {
		return nil, err
	}
	if len(left) == 0 {
		return nil, csverrors.ErrSemantic.New("union's left side produces no output columns")
	}
	if len(left) != len(right) {
		return nil, csverrors.ErrSemantic.New("union sides produce a different number of output columns")
	}
	for i := range left {
		if left[i].Type != right[i].Type {
			return nil, csverrors.ErrSemantic.New(fmt.Sprintf(
				"union sides disagree on the type of column %d: %s vs %s", i+1, left[i].Type, right[i].Type))
		}
	}
	return left, nil
}

func validateQuerySpecification(db *catalog.Database, qs *ast.QuerySpecification) ([]typer.OutputColumn, error) {
	cols, err := typer.TypeQuery(db, &ast.Query{Base: qs.Base, Body: qs})
	if err != nil {
		return nil, err
	}
	st := qs.SymbolTable()
	if err := validateTableRef(db, st, qs.Table.From.Table); err != nil {
		return nil, err
	}
	if w := qs.Table.Where; w != nil {
		if err := requireBoolean(st, w.Condition, "WHERE"); err != nil {
			return nil, err
		}
	}
	if qs.Table.Having != nil {
		return nil, csverrors.ErrSemantic.New("HAVING is not supported")
	}
	if err := requireConsistentAggregation(qs); err != nil {
		return nil, err
	}
	return cols, nil
}

// requireConsistentAggregation rejects a select list that mixes
// aggregate and non-aggregate expressions without a GROUP BY clause to
// make the non-aggregate ones well-defined, and, when GROUP BY is
// present, requires every non-aggregate select-list expression to be
// one of the grouping keys (spec.md §4.9's planner mapping table
// assumes this invariant already holds by the time it chooses between
// GroupingOperator, AggregationOperator, and ExtendedProjection).
func requireConsistentAggregation(qs *ast.QuerySpecification) error {
	var hasAgg, hasNonAgg bool
	for _, item := range qs.SelectList {
		if _, ok := item.Expr.(*ast.AggregateCall); ok {
			hasAgg = true
		} else if _, ok := item.Expr.(*ast.QualifiedAsterisk); !ok {
			hasNonAgg = true
		}
	}
	if qs.Table.GroupBy == nil {
		if hasAgg && hasNonAgg {
			return csverrors.ErrSemantic.New("cannot mix aggregate and non-aggregate columns without GROUP BY")
		}
		return nil
	}
	if !hasAgg && !hasNonAgg {
		return nil
	}
	keys := make(map[*ast.Symbol]bool, len(qs.Table.GroupBy.Keys))
	for _, key := range qs.Table.GroupBy.Keys {
		if id, ok := key.(*ast.Identifier); ok && id.Sym != nil {
			keys[id.Sym] = true
		}
	}
	for _, item := range qs.SelectList {
		id, ok := item.Expr.(*ast.Identifier)
		if !ok {
			continue
		}
		if id.Sym == nil || !keys[id.Sym] {
			return csverrors.ErrSemantic.New(fmt.Sprintf(
				"column %q must appear in GROUP BY or be wrapped in an aggregate function", id.Name))
		}
	}
	return nil
}

// validateTableRef rejects every join kind this engine does not execute,
// requires a Boolean ON condition, and recurses into any nested query
// body a table reference carries (a subquery's FROM clause) so that the
// same rejections apply no matter how deep the subquery nests. The
// grammar never produces a comma-separated FROM list, so the "implicit
// cross join" case spec.md §4.4 names has no reachable input to reject
// in this dialect.
func validateTableRef(db *catalog.Database, st *ast.SymbolTable, ref ast.TableRef) error {
	switch r := ref.(type) {
	case *ast.TableIdentifier:
		return nil
	case *ast.TableSubquery:
		_, err := validateQueryBody(db, r.Query.Body)
		return err
	case *ast.Join:
		return validateJoin(db, st, r)
	default:
		return csverrors.ErrSemantic.New(fmt.Sprintf("unknown table reference %T", ref))
	}
}

func validateJoin(db *catalog.Database, st *ast.SymbolTable, join *ast.Join) error {
	switch join.Kind {
	case ast.JoinCross, ast.JoinInner:
		// executed
	case ast.JoinNatural:
		return csverrors.ErrSemantic.New("natural joins are not supported")
	case ast.JoinLeft, ast.JoinRight, ast.JoinFull:
		return csverrors.ErrSemantic.New("outer joins are not supported")
	default:
		return csverrors.ErrSemantic.New("unknown join kind")
	}
	if join.On != nil {
		if err := requireBoolean(st, join.On, "ON"); err != nil {
			return err
		}
	}
	if err := validateTableRef(db, st, join.Left); err != nil {
		return err
	}
	return validateTableRef(db, st, join.Right)
}

func requireBoolean(st *ast.SymbolTable, expr ast.Expression, clause string) error {
	t, err := typer.InferType(st, expr)
	if err != nil {
		return err
	}
	if t != value.TypeBool {
		return csverrors.ErrSemantic.New(fmt.Sprintf("%s condition must be boolean, got %s", clause, t))
	}
	return nil
}
