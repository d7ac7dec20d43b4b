package ast

import "github.com/fuersten/csvsqldb-sub001/catalog"

// CreateTable is `CREATE TABLE name (...)`.
type CreateTable struct {
	Base
	Schema      *catalog.TableSchema
	IfNotExists bool
}

func (*CreateTable) stmt() {}

// DropTable is `DROP TABLE name`.
type DropTable struct {
	Base
	Name     string
	IfExists bool
}

func (*DropTable) stmt() {}

// CreateMapping is `CREATE MAPPING name('regex', delim, skip_first)`.
type CreateMapping struct {
	Base
	Mapping *catalog.FileMapping
}

func (*CreateMapping) stmt() {}

// DropMapping is `DROP MAPPING name`.
type DropMapping struct {
	Base
	Table string
}

func (*DropMapping) stmt() {}

// ExplainMode selects between dumping the parsed AST or the planned
// operator pipeline (spec.md §6 "Commands": EXPLAIN AST|EXEC).
type ExplainMode int

const (
	ExplainAST ExplainMode = iota
	ExplainExec
)

// Explain is `EXPLAIN AST|EXEC <query>`.
type Explain struct {
	Base
	Mode  ExplainMode
	Query *Query
}

func (*Explain) stmt() {}

// Query is the top-level `SELECT ...` statement.
type Query struct {
	Base
	Body QueryBody
}

func (*Query) stmt() {}

// Union is `left UNION [ALL|DISTINCT] (right)`, left-associative chaining
// handled by the parser building nested Unions.
type Union struct {
	Base
	Left  QueryBody
	Right QueryBody
	All   bool
}

func (*Union) queryBody() {}

// SelectItem is one entry of a select list: Expr paired with its resolved
// (possibly synthesized) symbol.
type SelectItem struct {
	Expr Expression
	Sym  *Symbol
}

// QuerySpecification is `SELECT [DISTINCT|ALL] select_list table_expr`.
type QuerySpecification struct {
	Base
	Distinct   bool
	SelectList []SelectItem
	Table      *TableExpression
}

func (*QuerySpecification) queryBody() {}

// TableExpression is the FROM-through-LIMIT tail of a query specification.
type TableExpression struct {
	Base
	From    *From
	Where   *Where
	GroupBy *GroupBy
	Having  *Having
	OrderBy *OrderBy
	Limit   *Limit
}

// From wraps the table reference a query selects from.
type From struct {
	Base
	Table TableRef
}

// Where wraps the filter predicate.
type Where struct {
	Base
	Condition Expression
}

// GroupBy wraps the list of grouping key expressions (identifiers).
type GroupBy struct {
	Base
	Keys []Expression
}

// Having wraps a HAVING predicate. Parsed but rejected by the validator
// (spec.md §4.4, §9 Open Question, decided in SPEC_FULL.md §10).
type Having struct {
	Base
	Condition Expression
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr Expression
	Desc bool
}

// OrderBy wraps the ORDER BY key list.
type OrderBy struct {
	Base
	Items []OrderItem
}

// Limit wraps the LIMIT/OFFSET clause. Both are non-negative integer
// literals; a zero Offset means none was given.
type Limit struct {
	Base
	Limit  int64
	Offset int64
}

// TableIdentifier is a bare `table [alias]` FROM operand.
type TableIdentifier struct {
	Base
	Name  string
	Alias string
}

func (*TableIdentifier) tableRef() {}

// TableSubquery is `(subquery) alias`.
type TableSubquery struct {
	Base
	Query *Query
	Alias string
}

func (*TableSubquery) tableRef() {}

// JoinKind enumerates the join variants spec.md §3.5 lists. Only Cross and
// Inner are executed; the rest are parsed but rejected by the validator
// (spec.md Non-goals).
type JoinKind int

const (
	JoinCross JoinKind = iota
	JoinInner
	JoinLeft
	JoinRight
	JoinFull
	JoinNatural
)

// Join is any of CROSS/INNER/LEFT/RIGHT/FULL/NATURAL JOIN.
type Join struct {
	Base
	Kind  JoinKind
	Left  TableRef
	Right TableRef
	On    Expression // nil for CROSS and NATURAL
}

func (*Join) tableRef() {}
