package operator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/fuersten/csvsqldb-sub001/block"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/csvsource"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/sirupsen/logrus"
)

// ingestQueueDepth bounds the block queue between a Scan's ingest
// goroutine and its consumer (spec.md §5 "ingest queue's condition
// variable"; a buffered channel is the idiomatic Go substitute for a
// condition-variable-guarded bounded queue).
const ingestQueueDepth = 4

type scanState int

const (
	scanUnstarted scanState = iota
	scanRunning
	scanEnded
	// scanCancelled is reached when the consumer drops the scan before
	// EOF (spec.md §4.8 "State machines").
	scanCancelled
)

// Scan implements spec.md §4.8's TableScan: it resolves a mapping's file
// pattern against a directory of candidate files, opens the first
// match, and runs a CSV ingest on a dedicated goroutine that pushes
// filled blocks across a bounded channel to this operator's consumer.
type Scan struct {
	columns []ColumnInfo
	manager *block.Manager

	current *block.Block
	pos     int
	state   scanState

	queue  chan *block.Block
	errCh  chan error
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScan opens the first file in dataDir matching mapping's pattern
// and starts ingesting it. projection lists, for each entry of columns
// in order, the index into schema.Columns that column's values come
// from (spec.md §4.8: "output schema = the table's column list
// restricted to columns referenced in the enclosing scope").
func NewScan(manager *block.Manager, dataDir string, mapping *catalog.FileMapping, schema *catalog.TableSchema, columns []ColumnInfo, projection []int, log *logrus.Logger) (*Scan, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	path, err := resolveFile(dataDir, mapping.Pattern)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, csverrors.ErrIO.New(fmt.Sprintf("opening %s: %s", path, err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scan{
		columns: columns,
		manager: manager,
		queue:   make(chan *block.Block, ingestQueueDepth),
		errCh:   make(chan error, 1),
		cancel:  cancel,
	}

	sink := &scanIngest{
		schema:     schema,
		projection: projection,
		manager:    manager,
		queue:      s.queue,
		ctx:        ctx,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer file.Close()
		opts := csvsource.Options{Delimiter: mapping.DelimiterRune(), SkipFirstLine: mapping.SkipFirstLine}
		readErr := csvsource.Read(ctx, file, opts, sink, log)
		if sink.current != nil && len(sink.current.Rows) > 0 {
			select {
			case s.queue <- sink.current:
			case <-ctx.Done():
			}
		}
		close(s.queue)
		if readErr != nil && readErr != csvsource.ErrCancelled {
			s.errCh <- readErr
		}
		close(s.errCh)
	}()

	return s, nil
}

// resolveFile matches pattern against the entries of dir, in sorted
// order, and returns the first match's full path.
func resolveFile(dir, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", csverrors.ErrConfig.New(fmt.Sprintf("invalid mapping pattern %q: %s", pattern, err))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", csverrors.ErrIO.New(fmt.Sprintf("reading %s: %s", dir, err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if re.MatchString(name) {
			return filepath.Join(dir, name), nil
		}
	}
	return "", csverrors.ErrIO.New(fmt.Sprintf("no file in %s matches pattern %q", dir, pattern))
}

// scanIngest is the BlockReader spec.md §4.8 describes: it converts raw
// CSV fields to typed values and appends them to the current block,
// pushing the block onto the queue and allocating a fresh one once full.
type scanIngest struct {
	schema     *catalog.TableSchema
	projection []int
	manager    *block.Manager
	current    *block.Block
	queue      chan<- *block.Block
	ctx        context.Context
}

func (s *scanIngest) OnRow(fields []string) error {
	cols := s.schema.Columns
	if len(fields) != len(cols) {
		return fmt.Errorf("expected %d fields, got %d", len(cols), len(fields))
	}
	row := make(block.Row, len(s.projection))
	for i, idx := range s.projection {
		v, err := value.FromCSVField(fields[idx], cols[idx].Type)
		if err != nil {
			return err
		}
		row[i] = v
	}
	if s.current == nil {
		s.current = s.manager.NewBlock()
	}
	s.current.Append(row)
	if s.current.Full() {
		select {
		case s.queue <- s.current:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
		s.current = nil
	}
	return nil
}

func (s *Scan) ColumnInfos() []ColumnInfo { return s.columns }

func (s *Scan) NextRow() (block.Row, bool, error) {
	if s.state == scanEnded || s.state == scanCancelled {
		return nil, false, nil
	}
	s.state = scanRunning
	for {
		if s.current != nil && s.pos < len(s.current.Rows) {
			row := s.current.Rows[s.pos]
			s.pos++
			return row, true, nil
		}
		if s.current != nil {
			s.manager.Release(s.current)
			s.current = nil
		}
		blk, ok := <-s.queue
		if !ok {
			if err, ok := <-s.errCh; ok && err != nil {
				s.state = scanEnded
				return nil, false, err
			}
			s.state = scanEnded
			return nil, false, nil
		}
		s.current = blk
		s.pos = 0
	}
}

// Close cancels the ingest goroutine, drains any in-flight block so the
// goroutine's blocked send can unblock, and joins it unconditionally.
func (s *Scan) Close() error {
	if s.state == scanEnded {
		return nil
	}
	s.cancel()
	for range s.queue {
	}
	s.wg.Wait()
	if s.state != scanEnded {
		s.state = scanCancelled
	}
	return nil
}

func (s *Scan) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, fmt.Sprintf("Scan (%s)", columnNames(s.columns)))
}

// SystemTableScan implements spec.md §4.8's SystemTableScan: the single
// row of the SYSTEM_DUAL pseudo-table, emitted without any I/O.
type SystemTableScan struct {
	columns []ColumnInfo
	emitted bool
}

func NewSystemTableScan(columns []ColumnInfo) *SystemTableScan {
	return &SystemTableScan{columns: columns}
}

func (s *SystemTableScan) ColumnInfos() []ColumnInfo { return s.columns }

func (s *SystemTableScan) NextRow() (block.Row, bool, error) {
	if s.emitted {
		return nil, false, nil
	}
	s.emitted = true
	row := make(block.Row, len(s.columns))
	for i := range row {
		row[i] = value.NewBool(false)
	}
	return row, true, nil
}

func (s *SystemTableScan) Close() error { return nil }

func (s *SystemTableScan) Dump(w io.Writer, prefix string) {
	dumpLine(w, prefix, "SystemTableScan")
}
