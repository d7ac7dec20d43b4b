package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/ast"
)

// dumpStatement renders q's parsed structure as an indented tree,
// backing EXPLAIN AST (spec.md §6 "Commands"). It mirrors the
// indentation style operator.RowOperator.Dump uses for EXPLAIN EXEC, so
// both EXPLAIN modes read the same way.
func dumpStatement(w io.Writer, q *ast.Query) {
	dumpQueryBody(w, "", q.Body)
}

func dumpQueryBody(w io.Writer, prefix string, body ast.QueryBody) {
	switch b := body.(type) {
	case *ast.Union:
		line(w, prefix, "Union")
		dumpQueryBody(w, prefix+"    ", b.Left)
		dumpQueryBody(w, prefix+"    ", b.Right)
	case *ast.QuerySpecification:
		dumpQuerySpecification(w, prefix, b)
	default:
		line(w, prefix, fmt.Sprintf("<unknown query body %T>", body))
	}
}

func dumpQuerySpecification(w io.Writer, prefix string, qs *ast.QuerySpecification) {
	line(w, prefix, "QuerySpecification")
	childPrefix := prefix + "    "
	line(w, childPrefix, "SelectList")
	for _, item := range qs.SelectList {
		name := ""
		if item.Sym != nil {
			name = item.Sym.DisplayName()
		}
		line(w, childPrefix+"    ", fmt.Sprintf("%s as %s", dumpExpr(item.Expr), name))
	}
	line(w, childPrefix, "From")
	dumpTableRef(w, childPrefix+"    ", qs.Table.From.Table)
	if wh := qs.Table.Where; wh != nil {
		line(w, childPrefix, fmt.Sprintf("Where %s", dumpExpr(wh.Condition)))
	}
	if gb := qs.Table.GroupBy; gb != nil {
		keys := make([]string, len(gb.Keys))
		for i, k := range gb.Keys {
			keys[i] = dumpExpr(k)
		}
		line(w, childPrefix, fmt.Sprintf("GroupBy %s", strings.Join(keys, ", ")))
	}
	if ob := qs.Table.OrderBy; ob != nil {
		items := make([]string, len(ob.Items))
		for i, it := range ob.Items {
			dir := "ASC"
			if it.Desc {
				dir = "DESC"
			}
			items[i] = fmt.Sprintf("%s %s", dumpExpr(it.Expr), dir)
		}
		line(w, childPrefix, fmt.Sprintf("OrderBy %s", strings.Join(items, ", ")))
	}
	if l := qs.Table.Limit; l != nil {
		line(w, childPrefix, fmt.Sprintf("Limit %d Offset %d", l.Limit, l.Offset))
	}
}

func dumpTableRef(w io.Writer, prefix string, ref ast.TableRef) {
	switch r := ref.(type) {
	case *ast.TableIdentifier:
		name := r.Name
		if r.Alias != "" {
			name += " AS " + r.Alias
		}
		line(w, prefix, "Table "+name)
	case *ast.TableSubquery:
		line(w, prefix, "Subquery AS "+r.Alias)
		dumpQueryBody(w, prefix+"    ", r.Query.Body)
	case *ast.Join:
		line(w, prefix, fmt.Sprintf("Join %s", joinKindName(r.Kind)))
		if r.On != nil {
			line(w, prefix+"    ", "On "+dumpExpr(r.On))
		}
		dumpTableRef(w, prefix+"    ", r.Left)
		dumpTableRef(w, prefix+"    ", r.Right)
	default:
		line(w, prefix, fmt.Sprintf("<unknown table ref %T>", ref))
	}
}

func joinKindName(k ast.JoinKind) string {
	switch k {
	case ast.JoinCross:
		return "CROSS"
	case ast.JoinInner:
		return "INNER"
	case ast.JoinLeft:
		return "LEFT"
	case ast.JoinRight:
		return "RIGHT"
	case ast.JoinFull:
		return "FULL"
	case ast.JoinNatural:
		return "NATURAL"
	default:
		return "?"
	}
}

// dumpExpr renders an expression as the SQL-ish text it was parsed
// from, for dumpStatement's EXPLAIN AST output.
func dumpExpr(e ast.Expression) string {
	switch x := e.(type) {
	case *ast.Identifier:
		if x.Qualifier != "" {
			return x.Qualifier + "." + x.Name
		}
		return x.Name
	case *ast.Literal:
		return x.Value.String()
	case *ast.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", dumpExpr(x.Left), x.Op, dumpExpr(x.Right))
	case *ast.UnaryOp:
		if x.Op == ast.OpCast {
			return fmt.Sprintf("CAST(%s AS %s)", dumpExpr(x.Operand), x.CastType)
		}
		return fmt.Sprintf("(%s%s)", unOpName(x.Op), dumpExpr(x.Operand))
	case *ast.Like:
		not := ""
		if x.Not {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sLIKE /%s/", dumpExpr(x.Operand), not, x.Regex)
	case *ast.Between:
		not := ""
		if x.Not {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sBETWEEN %s AND %s", dumpExpr(x.Operand), not, dumpExpr(x.Low), dumpExpr(x.High))
	case *ast.In:
		not := ""
		if x.Not {
			not = "NOT "
		}
		items := make([]string, len(x.List))
		for i, v := range x.List {
			items[i] = dumpExpr(v)
		}
		return fmt.Sprintf("%s %sIN (%s)", dumpExpr(x.Operand), not, strings.Join(items, ", "))
	case *ast.FunctionCall:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = dumpExpr(a)
		}
		return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", "))
	case *ast.AggregateCall:
		if x.Star {
			return x.Name + "(*)"
		}
		return fmt.Sprintf("%s(%s)", x.Name, dumpExpr(x.Arg))
	case *ast.QualifiedAsterisk:
		if x.Qualifier != "" {
			return x.Qualifier + ".*"
		}
		return "*"
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}

func unOpName(op ast.UnOp) string {
	switch op {
	case ast.OpNot:
		return "NOT "
	case ast.OpPlus:
		return "+"
	case ast.OpMinus:
		return "-"
	default:
		return ""
	}
}

func line(w io.Writer, prefix, text string) {
	fmt.Fprintf(w, "%s%s\n", prefix, text)
}
