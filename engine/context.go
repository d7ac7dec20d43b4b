package engine

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// Context bundles the per-statement dependencies Execute threads through
// parsing, validation, planning, and execution, mirroring the teacher's
// sql.Context: a cancellable context.Context plus the logger and tracing
// span a statement runs under. The engine accepts one from its caller
// rather than owning log/tracer setup itself (spec.md §9's "the engine
// accepts a logger/writer, it does not own main").
type Context struct {
	context.Context
	Log  *logrus.Entry
	Span opentracing.Span
}

// NewContext wraps parent with log, defaulting to the standard logger
// when log is nil.
func NewContext(parent context.Context, log *logrus.Entry) *Context {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Context{Context: parent, Log: log}
}

// WithSpan returns a child Context carrying a span started under tracer,
// and the func the caller must invoke once the span's operation
// completes.
func (c *Context) WithSpan(tracer opentracing.Tracer, operationName string) (*Context, func()) {
	span := tracer.StartSpan(operationName)
	return &Context{Context: c.Context, Log: c.Log, Span: span}, span.Finish
}
