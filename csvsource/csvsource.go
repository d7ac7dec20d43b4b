// Package csvsource implements spec.md §1/§6's CSV ingest adapter: the
// byte-level CSV tokenizer itself is explicitly out of scope for the
// core ("the core consumes it via a callback interface"), so this
// package is a thin, intentionally minimal wrapper around the standard
// library's encoding/csv, exposing only the RowCallback interface the
// Scan operator depends on.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// RowCallback receives one logical CSV row at a time as raw fields.
// Column typing and schema-shape checking happen above this package, in
// the Scan operator, which knows the table's declared column types.
type RowCallback interface {
	OnRow(fields []string) error
}

// Options controls how a mapping's CSV files are tokenized (spec.md
// §3.7's Mapping: delimiter and header-skipping).
type Options struct {
	Delimiter     rune
	SkipFirstLine bool
}

// ErrCancelled is returned by Read when ctx is cancelled between rows.
var ErrCancelled = errors.New("csvsource: read cancelled")

// Read tokenizes r according to opts and calls cb.OnRow for every
// logical row. A row that fails to tokenize, or that cb rejects (e.g.
// because its field count or a field's type doesn't match the table's
// schema), is skipped and logged with its source line number; Read
// itself only returns an error for conditions that abort the whole
// scan (I/O failure, cancellation). log may be nil, in which case a
// package-level default logger is used.
func Read(ctx context.Context, r io.Reader, opts Options, cb RowCallback, log *logrus.Logger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	first := true
	for {
		select {
		case <-ctx.Done():
			return ErrCancelled
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return err
			}
			line, _ := reader.FieldPos(0)
			log.WithField("line", line).WithError(err).Warn("csvsource: skipping malformed row")
			continue
		}

		if first {
			first = false
			if opts.SkipFirstLine {
				continue
			}
		}

		if err := cb.OnRow(record); err != nil {
			line, _ := reader.FieldPos(0)
			log.WithField("line", line).WithError(err).Warn("csvsource: skipping row rejected by consumer")
			continue
		}
	}
}
