// Package csverrors collects the sentinel error kinds raised across the
// engine, following the error-kind convention the catalog's source
// dependencies use for typed, parameterized errors.
package csverrors

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Error kinds, one per spec.md §7 category. Each is created with
// errors.NewKind so callers get a typed, matchable error via Is/As while
// still formatting a human-readable message with the offending detail.
var (
	// ErrLexical is raised by the lexer when no token definition matches.
	ErrLexical = goerrors.NewKind("lexical error at line %d, column %d: %s")

	// ErrParse is raised by the parser on an unexpected token or an
	// incomplete phrase.
	ErrParse = goerrors.NewKind("parse error at line %d, column %d: unexpected token %q: %s")

	// ErrSemantic is raised by symbol resolution, type inference, and the
	// validator.
	ErrSemantic = goerrors.NewKind("semantic error: %s")

	// ErrEvaluation is raised by the stack machine or an aggregate function
	// at evaluation time.
	ErrEvaluation = goerrors.NewKind("evaluation error: %s")

	// ErrCatalog is raised for table/mapping lookups and mutations.
	ErrCatalog = goerrors.NewKind("catalog error: %s")

	// ErrIO is raised for file-open and read failures.
	ErrIO = goerrors.NewKind("I/O error: %s")

	// ErrCSV is raised for a single malformed CSV row. Callers are expected
	// to log and continue rather than propagate it, per spec.md §6.
	ErrCSV = goerrors.NewKind("CSV error at line %d: %s")

	// ErrConfig is raised for invalid CREATE MAPPING options or engine
	// configuration.
	ErrConfig = goerrors.NewKind("configuration error: %s")
)
