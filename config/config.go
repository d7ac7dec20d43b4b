// Package config holds the non-functional knobs the engine needs but the
// specification leaves to an external bootstrap/configuration loader.
// Only the EngineOptions interface matters to the rest of the engine; Load
// is a convenience the caller may use or ignore.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EngineOptions carries the tunables named, but not pinned down, by
// spec.md: block capacity (§3.2), the ingest queue depth (§5), and whether
// the output sink emits a leading header line (§4.8).
type EngineOptions struct {
	// BlockCapacity is the number of rows a single block holds before a
	// scan rolls over to a new one; block.NewManager counts capacity in
	// rows, not in encoded bytes.
	BlockCapacity int `yaml:"block_capacity"`

	// IngestQueueDepth is loaded from YAML but not read by the engine: a
	// table scan's block channel always has the fixed depth of
	// operator.ingestQueueDepth (4).
	IngestQueueDepth int `yaml:"ingest_queue_depth"`

	// ShowHeaderLine controls whether OutputSink writes a leading
	// "#col1,col2,..." line (spec.md §4.8).
	ShowHeaderLine bool `yaml:"show_header_line"`

	// FlushEvery is loaded from YAML but not read by the engine: the
	// output sink always flushes its writer every 1000 rows
	// (operator.flushEvery).
	FlushEvery int `yaml:"flush_every"`
}

// DefaultEngineOptions returns the options spec.md describes as defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		BlockCapacity:    1 << 20, // rows per block
		IngestQueueDepth: 4,
		ShowHeaderLine:   true,
		FlushEvery:       1000,
	}
}

// Load reads a YAML document at path and overlays any keys it sets onto
// DefaultEngineOptions. A missing file is not an error: the defaults are
// returned unchanged, matching an embedded engine that may have no
// configuration file at all.
func Load(path string) (EngineOptions, error) {
	opts := DefaultEngineOptions()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	} else if err != nil {
		return opts, errors.Wrapf(err, "reading engine config %q", path)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrapf(err, "parsing engine config %q", path)
	}

	return opts, nil
}
