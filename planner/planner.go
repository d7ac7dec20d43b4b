// Package planner implements spec.md §4.9: it walks a validated (typed)
// AST bottom-up and builds the operator.RowOperator/operator.RootOperator
// tree that actually executes the query. It trusts that validator.Validate
// has already run over the statement and rejected every construct this
// engine does not execute, so it never re-checks join kinds, WHERE/ON
// types, or HAVING presence.
package planner

import (
	"fmt"
	"io"

	"github.com/fuersten/csvsqldb-sub001/aggregate"
	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/block/iterator"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/operator"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/sirupsen/logrus"
)

// planCtx carries the dependencies every planning step needs, avoiding a
// long parameter list threaded through a dozen mutually recursive
// functions.
type planCtx struct {
	manager  *block.Manager
	db       *catalog.Database
	dataDir  string
	registry *stackmachine.FunctionRegistry
	log      *logrus.Logger
}

// Plan builds the full operator tree for q, rooted in an
// operator.OutputSink. q must already have been typed and validated
// (typer.TypeQuery / validator.Validate), so every ast.Identifier's Sym
// field is populated.
func Plan(manager *block.Manager, db *catalog.Database, dataDir string, registry *stackmachine.FunctionRegistry, log *logrus.Logger, q *ast.Query, showHeader bool) (operator.RootOperator, error) {
	c := &planCtx{manager: manager, db: db, dataDir: dataDir, registry: registry, log: log}
	root, err := c.planQueryBody(q.Body)
	if err != nil {
		return nil, err
	}
	return operator.NewOutputSink(root, showHeader), nil
}

func (c *planCtx) planQueryBody(body ast.QueryBody) (operator.RowOperator, error) {
	switch b := body.(type) {
	case *ast.Union:
		left, err := c.planQueryBody(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.planQueryBody(b.Right)
		if err != nil {
			return nil, err
		}
		return operator.NewUnion(left, right), nil
	case *ast.QuerySpecification:
		return c.planQuerySpecification(b)
	default:
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown query body %T", body))
	}
}

func (c *planCtx) planQuerySpecification(qs *ast.QuerySpecification) (operator.RowOperator, error) {
	cursor := newSymbolCursor(qs.SymbolTable())
	current, err := c.planTableRef(qs.Table.From.Table, cursor)
	if err != nil {
		return nil, err
	}

	if w := qs.Table.Where; w != nil {
		predicate, err := stackmachine.Compile(w.Condition)
		if err != nil {
			return nil, err
		}
		current, err = operator.NewSelect(current, predicate, c.registry)
		if err != nil {
			return nil, err
		}
	}

	current, err = c.planProjectionStage(qs, current)
	if err != nil {
		return nil, err
	}

	if o := qs.Table.OrderBy; o != nil {
		keys, err := buildSortKeys(o, current.ColumnInfos())
		if err != nil {
			return nil, err
		}
		current = operator.NewSort(c.manager, current, keys)
	}

	if l := qs.Table.Limit; l != nil {
		current = operator.NewLimit(current, l.Limit, l.Offset)
	}

	return current, nil
}

// planTableRef plans ref and consumes, in schema-column order, exactly
// as many symbols from cursor as ref contributes columns. cursor walks
// qs.SymbolTable().Symbols() in the same left-to-right order
// typer.typeTableRef populated it in, so the *ast.Symbol pointers handed
// back here are pointer-identical to the ones typer attached to every
// ast.Identifier.Sym that resolved against this table reference.
func (c *planCtx) planTableRef(ref ast.TableRef, cursor *symbolCursor) (operator.RowOperator, error) {
	switch r := ref.(type) {
	case *ast.TableIdentifier:
		return c.planTableIdentifier(r, cursor)
	case *ast.TableSubquery:
		return c.planTableSubquery(r, cursor)
	case *ast.Join:
		return c.planJoin(r, cursor)
	default:
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("unknown table reference %T", ref))
	}
}

func (c *planCtx) planTableIdentifier(r *ast.TableIdentifier, cursor *symbolCursor) (operator.RowOperator, error) {
	schema, ok := c.db.Table(r.Name)
	if !ok {
		return nil, csverrors.ErrCatalog.New(fmt.Sprintf("unknown table %q", r.Name))
	}
	syms := cursor.take(len(schema.Columns))
	cols := buildColumnInfos(schema, syms)

	if catalog.IsSystemTable(r.Name) {
		return operator.NewSystemTableScan(cols), nil
	}

	mapping, ok := c.db.Mapping(r.Name)
	if !ok {
		return nil, csverrors.ErrCatalog.New(fmt.Sprintf("table %q has no file mapping", r.Name))
	}
	return operator.NewScan(c.manager, c.dataDir, mapping, schema, cols, identityProjection(len(schema.Columns)), c.log)
}

func (c *planCtx) planTableSubquery(r *ast.TableSubquery, cursor *symbolCursor) (operator.RowOperator, error) {
	inner, err := c.planQueryBody(r.Query.Body)
	if err != nil {
		return nil, err
	}
	innerCols := inner.ColumnInfos()
	syms := cursor.take(len(innerCols))
	cols := make([]operator.ColumnInfo, len(innerCols))
	for i, ic := range innerCols {
		cols[i] = operator.ColumnInfo{Name: ic.Name, Type: ic.Type, Sym: syms[i]}
	}
	return &subqueryAlias{inner: inner, cols: cols}, nil
}

func (c *planCtx) planJoin(r *ast.Join, cursor *symbolCursor) (operator.RowOperator, error) {
	left, err := c.planTableRef(r.Left, cursor)
	if err != nil {
		return nil, err
	}
	right, err := c.planTableRef(r.Right, cursor)
	if err != nil {
		return nil, err
	}

	switch r.Kind {
	case ast.JoinCross:
		return operator.NewCrossJoin(c.manager, left, right), nil
	case ast.JoinInner:
		if li, ri, ok := equiJoinColumns(r.On, left.ColumnInfos(), right.ColumnInfos()); ok {
			return operator.NewInnerHashJoin(c.manager, left, right, li, ri), nil
		}
		predicate, err := stackmachine.Compile(r.On)
		if err != nil {
			return nil, err
		}
		return operator.NewInnerJoin(c.manager, left, right, predicate, c.registry)
	default:
		// The validator rejects LEFT/RIGHT/FULL/NATURAL before planning runs.
		return nil, csverrors.ErrSemantic.New(fmt.Sprintf("join kind %v is not executable", r.Kind))
	}
}

// equiJoinColumns reports whether on is an equality between two bare
// identifiers each resolving to one side's input schema, the shape
// spec.md §4.9 requires before the planner may choose InnerHashJoin
// over the nested-loop InnerJoin.
func equiJoinColumns(on ast.Expression, leftCols, rightCols []operator.ColumnInfo) (leftIdx, rightIdx int, ok bool) {
	bin, isBin := on.(*ast.BinaryOp)
	if !isBin || bin.Op != ast.OpEq {
		return 0, 0, false
	}
	lhs, lok := bin.Left.(*ast.Identifier)
	rhs, rok := bin.Right.(*ast.Identifier)
	if !lok || !rok {
		return 0, 0, false
	}
	if li, found := columnIndexForSymbol(leftCols, lhs.Sym); found {
		if ri, found := columnIndexForSymbol(rightCols, rhs.Sym); found {
			return li, ri, true
		}
	}
	if li, found := columnIndexForSymbol(leftCols, rhs.Sym); found {
		if ri, found := columnIndexForSymbol(rightCols, lhs.Sym); found {
			return li, ri, true
		}
	}
	return 0, 0, false
}

// planProjectionStage implements spec.md §4.9's three-way choice: a
// GroupingOperator when GROUP BY is present, an AggregationOperator when
// the select list is entirely aggregate calls, otherwise an
// ExtendedProjection. The validator already rejected a select list that
// mixes the two without GROUP BY.
func (c *planCtx) planProjectionStage(qs *ast.QuerySpecification, current operator.RowOperator) (operator.RowOperator, error) {
	if qs.Table.GroupBy != nil {
		return c.planGrouping(qs, current)
	}
	if allAggregates(qs.SelectList) {
		return c.planAggregation(qs, current)
	}
	return c.planPlainProjection(qs, current)
}

func allAggregates(items []ast.SelectItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if _, ok := item.Expr.(*ast.AggregateCall); !ok {
			return false
		}
	}
	return true
}

func (c *planCtx) planPlainProjection(qs *ast.QuerySpecification, current operator.RowOperator) (operator.RowOperator, error) {
	items, err := buildProjectionItems(qs.SelectList, current.ColumnInfos())
	if err != nil {
		return nil, err
	}
	return operator.NewExtendedProjection(c.manager, current, items, c.registry)
}

func buildProjectionItems(selectList []ast.SelectItem, inputCols []operator.ColumnInfo) ([]operator.ProjectionItem, error) {
	var items []operator.ProjectionItem
	for _, item := range selectList {
		switch expr := item.Expr.(type) {
		case *ast.QualifiedAsterisk:
			for i, col := range inputCols {
				if col.Sym == nil || col.Sym.Kind != ast.Plain {
					continue
				}
				if expr.Qualifier != "" && col.Sym.Relation != expr.Qualifier {
					continue
				}
				items = append(items, operator.ProjectionItem{PassthroughIndex: i, Name: col.Name, Type: col.Type})
			}
		case *ast.Identifier:
			idx, found := columnIndexForSymbol(inputCols, expr.Sym)
			if !found {
				return nil, csverrors.ErrSemantic.New(fmt.Sprintf("column %q not present in input", expr.Name))
			}
			name := expr.Name
			if item.Sym != nil {
				name = item.Sym.DisplayName()
			}
			items = append(items, operator.ProjectionItem{PassthroughIndex: idx, Name: name, Type: inputCols[idx].Type})
		default:
			compiled, err := stackmachine.Compile(expr)
			if err != nil {
				return nil, err
			}
			name, t := "", value.TypeNull
			if item.Sym != nil {
				name, t = item.Sym.DisplayName(), item.Sym.Type
			}
			items = append(items, operator.ProjectionItem{PassthroughIndex: -1, Expr: compiled, Name: name, Type: t})
		}
	}
	return items, nil
}

func (c *planCtx) planAggregation(qs *ast.QuerySpecification, current operator.RowOperator) (operator.RowOperator, error) {
	inputCols := current.ColumnInfos()
	aggs := make([]operator.AggColumn, len(qs.SelectList))
	for i, item := range qs.SelectList {
		call := item.Expr.(*ast.AggregateCall)
		agg, err := buildAggColumn(item, call, inputCols)
		if err != nil {
			return nil, err
		}
		aggs[i] = agg
	}
	return operator.NewAggregationOperator(current, aggs), nil
}

func (c *planCtx) planGrouping(qs *ast.QuerySpecification, current operator.RowOperator) (operator.RowOperator, error) {
	inputCols := current.ColumnInfos()
	groupBy := qs.Table.GroupBy

	keyColumns := make([]int, len(groupBy.Keys))
	keySyms := make([]*ast.Symbol, len(groupBy.Keys))
	for i, key := range groupBy.Keys {
		id, ok := key.(*ast.Identifier)
		if !ok {
			return nil, csverrors.ErrSemantic.New("GROUP BY key must be a column reference")
		}
		idx, found := columnIndexForSymbol(inputCols, id.Sym)
		if !found {
			return nil, csverrors.ErrSemantic.New(fmt.Sprintf("GROUP BY column %q not present in input", id.Name))
		}
		keyColumns[i] = idx
		keySyms[i] = id.Sym
	}

	var aggs []operator.AggColumn
	finalItems := make([]operator.ProjectionItem, len(qs.SelectList))
	for i, item := range qs.SelectList {
		switch expr := item.Expr.(type) {
		case *ast.AggregateCall:
			agg, err := buildAggColumn(item, expr, inputCols)
			if err != nil {
				return nil, err
			}
			aggs = append(aggs, agg)
			outIdx := len(keyColumns) + len(aggs) - 1
			finalItems[i] = operator.ProjectionItem{PassthroughIndex: outIdx, Name: agg.Name, Type: agg.Type}
		case *ast.Identifier:
			keyPos := -1
			for p, sym := range keySyms {
				if sym == expr.Sym {
					keyPos = p
					break
				}
			}
			if keyPos < 0 {
				return nil, csverrors.ErrSemantic.New(fmt.Sprintf(
					"column %q must appear in GROUP BY or be wrapped in an aggregate function", expr.Name))
			}
			name := expr.Name
			if item.Sym != nil {
				name = item.Sym.DisplayName()
			}
			finalItems[i] = operator.ProjectionItem{PassthroughIndex: keyPos, Name: name, Type: inputCols[keyColumns[keyPos]].Type}
		default:
			return nil, csverrors.ErrSemantic.New("a GROUP BY select list entry must be a grouping key or an aggregate function")
		}
	}

	grouping := operator.NewGroupingOperator(c.manager, current, keyColumns, aggs)
	return operator.NewExtendedProjection(c.manager, grouping, finalItems, c.registry)
}

func buildAggColumn(item ast.SelectItem, call *ast.AggregateCall, inputCols []operator.ColumnInfo) (operator.AggColumn, error) {
	column := -1
	var argType value.Type
	if !call.Star {
		id, ok := call.Arg.(*ast.Identifier)
		if !ok {
			return operator.AggColumn{}, csverrors.ErrSemantic.New(fmt.Sprintf("%s requires a plain column reference", call.Name))
		}
		idx, found := columnIndexForSymbol(inputCols, id.Sym)
		if !found {
			return operator.AggColumn{}, csverrors.ErrSemantic.New(fmt.Sprintf("column %q not present in input", id.Name))
		}
		column = idx
		argType = inputCols[idx].Type
	}

	factory, outType, err := aggregateFactory(call.Name, call.Star, argType)
	if err != nil {
		return operator.AggColumn{}, err
	}
	name := aggregateDisplayName(item, call)
	if item.Sym != nil {
		// The typer already computed the precise promoted type (e.g.
		// AVG -> Real), so prefer it over aggregateFactory's default.
		outType = item.Sym.Type
	}
	return operator.AggColumn{
		Name: name,
		Type: outType,
		Spec: iterator.AggSpec{NewAgg: factory, Column: column},
	}, nil
}

// aggregateFactory returns an aggregate.Aggregate constructor and this
// function's result type. argType is only meaningful when star is
// false; validation already confirmed SUM/AVG's argument is numeric, so
// the construction errors NewSum/NewAvg can return are unreachable here.
func aggregateFactory(name string, star bool, argType value.Type) (func() aggregate.Aggregate, value.Type, error) {
	switch name {
	case "COUNT":
		return func() aggregate.Aggregate { return aggregate.NewCount(star) }, value.TypeInt, nil
	case "SUM":
		return func() aggregate.Aggregate { a, _ := aggregate.NewSum(argType); return a }, argType, nil
	case "AVG":
		return func() aggregate.Aggregate { a, _ := aggregate.NewAvg(argType); return a }, value.TypeReal, nil
	case "MIN":
		return func() aggregate.Aggregate { return aggregate.NewMin(argType) }, argType, nil
	case "MAX":
		return func() aggregate.Aggregate { return aggregate.NewMax(argType) }, argType, nil
	case "ARBITRARY":
		return func() aggregate.Aggregate { return aggregate.NewArbitrary(argType) }, argType, nil
	default:
		return nil, value.TypeNull, csverrors.ErrSemantic.New(fmt.Sprintf("unknown aggregate function %s", name))
	}
}

func aggregateDisplayName(item ast.SelectItem, call *ast.AggregateCall) string {
	if item.Sym != nil {
		return item.Sym.DisplayName()
	}
	if call.Star {
		return fmt.Sprintf("%s(*)", call.Name)
	}
	if id, ok := call.Arg.(*ast.Identifier); ok {
		return fmt.Sprintf("%s(%s)", call.Name, id.Name)
	}
	return call.Name
}

func buildSortKeys(o *ast.OrderBy, cols []operator.ColumnInfo) ([]iterator.SortKey, error) {
	keys := make([]iterator.SortKey, len(o.Items))
	for i, item := range o.Items {
		id, ok := item.Expr.(*ast.Identifier)
		if !ok {
			return nil, csverrors.ErrSemantic.New("ORDER BY key must be a column reference")
		}
		idx, found := columnIndexForSymbol(cols, id.Sym)
		if !found {
			return nil, csverrors.ErrSemantic.New(fmt.Sprintf("ORDER BY column %q not present in the selected output", id.Name))
		}
		keys[i] = iterator.SortKey{ColumnIndex: idx, Desc: item.Desc}
	}
	return keys, nil
}

// symbolCursor hands out consecutive runs of a query specification's
// Plain column symbols, in the exact left-to-right order the typer
// added them while walking the FROM clause. The parser also registers
// Table/Subquery/Calc symbols in the same table, interleaved ahead of
// the Plain ones (added later, during typing), so the Plain subset is
// filtered out first; a table reference then plans against the same
// symbol pointers the typer attached to every ast.Identifier.Sym that
// resolved against it.
type symbolCursor struct {
	symbols []*ast.Symbol
	pos     int
}

func newSymbolCursor(st *ast.SymbolTable) *symbolCursor {
	var plain []*ast.Symbol
	for _, sym := range st.Symbols() {
		if sym.Kind == ast.Plain {
			plain = append(plain, sym)
		}
	}
	return &symbolCursor{symbols: plain}
}

func (c *symbolCursor) take(n int) []*ast.Symbol {
	out := c.symbols[c.pos : c.pos+n]
	c.pos += n
	return out
}

func buildColumnInfos(schema *catalog.TableSchema, syms []*ast.Symbol) []operator.ColumnInfo {
	cols := make([]operator.ColumnInfo, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = operator.ColumnInfo{Name: col.Name, Type: col.Type, Sym: syms[i]}
	}
	return cols
}

func identityProjection(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func columnIndexForSymbol(cols []operator.ColumnInfo, sym *ast.Symbol) (int, bool) {
	if sym == nil {
		return 0, false
	}
	for i, c := range cols {
		if c.Sym == sym {
			return i, true
		}
	}
	return 0, false
}

// subqueryAlias relabels a planned subquery's output columns under the
// symbols the enclosing query's typer pass registered for its alias,
// while delegating row production straight to the inner operator.
type subqueryAlias struct {
	inner operator.RowOperator
	cols  []operator.ColumnInfo
}

func (s *subqueryAlias) ColumnInfos() []operator.ColumnInfo { return s.cols }

func (s *subqueryAlias) NextRow() (block.Row, bool, error) { return s.inner.NextRow() }

func (s *subqueryAlias) Close() error { return s.inner.Close() }

func (s *subqueryAlias) Dump(w io.Writer, prefix string) {
	s.inner.Dump(w, prefix)
}
