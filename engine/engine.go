// Package engine wires parser, validator, planner, and operator together
// into the single entry point spec.md §6 describes: parse a statement,
// validate and type it, plan an operator tree, and drain it to an
// io.Writer (spec.md §4.9, §6). It mirrors the teacher's
// Engine.Query/QueryWithBindings analyze-then-build-then-drain shape in
// engine.go, simplified to this engine's single-statement,
// non-prepared-statement scope: no PreparedDataCache, no session pool,
// one *catalog.Database per Engine.
package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/config"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/operator"
	"github.com/fuersten/csvsqldb-sub001/parser"
	"github.com/fuersten/csvsqldb-sub001/planner"
	"github.com/fuersten/csvsqldb-sub001/stackmachine"
	"github.com/fuersten/csvsqldb-sub001/validator"
	"github.com/sirupsen/logrus"
)

// Engine parses, validates, plans, and executes SQL statements against a
// catalog.Database backed by CSV files under dataDir. It is safe for
// concurrent use: catalog.Database guards its own state and each
// Execute builds an independent operator tree and block.Manager.
type Engine struct {
	db      *catalog.Database
	dataDir string
	opts    config.EngineOptions
	log     *logrus.Logger
}

// New returns an Engine reading mapped CSV files from dataDir and
// backed by db.
func New(db *catalog.Database, dataDir string, opts config.EngineOptions, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{db: db, dataDir: dataDir, opts: opts, log: log}
}

// Database returns the engine's catalog, for callers that need to
// inspect or persist it outside of a statement (spec.md §6 "Persisted
// state").
func (e *Engine) Database() *catalog.Database { return e.db }

// Execute parses, validates, plans, and runs sql, writing CSV output to
// out and returning the number of rows written. DDL statements
// (CREATE/DROP TABLE/MAPPING) mutate the catalog directly and always
// report zero rows. Per spec.md §7's propagation policy, an error
// aborts the statement; the row count returned alongside an error is
// undefined and must not be relied upon.
func (e *Engine) Execute(ctx *Context, sql string, out io.Writer) (int64, error) {
	start := time.Now()
	n, err := e.execute(ctx, sql, out)
	ctx.Log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
		"rows":        n,
	}).WithError(err).Debug("statement executed")
	return n, err
}

func (e *Engine) execute(ctx *Context, sqlText string, out io.Writer) (int64, error) {
	stmt, err := parser.Parse(sqlText)
	if err != nil {
		return 0, err
	}
	if _, err := validator.Validate(e.db, stmt); err != nil {
		return 0, err
	}

	switch s := stmt.(type) {
	case *ast.CreateTable:
		return 0, e.createTable(s)
	case *ast.DropTable:
		return 0, e.dropTable(s)
	case *ast.CreateMapping:
		return 0, e.db.CreateMapping(s.Mapping)
	case *ast.DropMapping:
		return 0, e.db.DropMapping(s.Table)
	case *ast.Query:
		return e.executeQuery(ctx, s, out)
	case *ast.Explain:
		return e.executeExplain(ctx, s, out)
	default:
		return 0, csverrors.ErrSemantic.New(fmt.Sprintf("unsupported statement %T", stmt))
	}
}

func (e *Engine) createTable(s *ast.CreateTable) error {
	if s.IfNotExists {
		if _, ok := e.db.Table(s.Schema.Name); ok {
			return nil
		}
	}
	return e.db.CreateTable(s.Schema)
}

func (e *Engine) dropTable(s *ast.DropTable) error {
	if s.IfExists {
		if _, ok := e.db.Table(s.Name); !ok {
			return nil
		}
	}
	return e.db.DropTable(s.Name)
}

func (e *Engine) executeQuery(ctx *Context, q *ast.Query, out io.Writer) (int64, error) {
	root, err := e.plan(q)
	if err != nil {
		return 0, err
	}
	return root.Execute(out)
}

func (e *Engine) executeExplain(ctx *Context, ex *ast.Explain, out io.Writer) (int64, error) {
	switch ex.Mode {
	case ast.ExplainAST:
		dumpStatement(out, ex.Query)
		return 0, nil
	case ast.ExplainExec:
		root, err := e.plan(ex.Query)
		if err != nil {
			return 0, err
		}
		root.Dump(out)
		return 0, nil
	default:
		return 0, csverrors.ErrSemantic.New("unknown EXPLAIN mode")
	}
}

// plan builds a fresh operator tree for q. Each statement gets its own
// block.Manager and function registry: block.Manager's intermediate
// blocks (sort runs, join hash tables, group tables) do not outlive one
// query, and there is no session-scoped function registry to reuse
// across statements.
func (e *Engine) plan(q *ast.Query) (operator.RootOperator, error) {
	manager := block.NewManager(e.opts.BlockCapacity)
	registry := stackmachine.NewFunctionRegistry(nil)
	return planner.Plan(manager, e.db, e.dataDir, registry, e.log, q, e.opts.ShowHeaderLine)
}
