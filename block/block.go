// Package block implements spec.md §3.2/§4.7's block-based row flow: rows
// are materialized in fixed-capacity batches so an ingest thread can hand
// whole batches to a consumer across a bounded queue instead of
// synchronizing per row.
package block

import (
	"sync/atomic"

	"github.com/fuersten/csvsqldb-sub001/value"
)

// Row is one tuple of column values.
type Row []value.Value

// Block is a fixed-capacity batch of rows, owned by exactly one
// BlockManager for its whole lifetime.
type Block struct {
	Rows     []Row
	capacity int
}

// Full reports whether b has reached its capacity.
func (b *Block) Full() bool { return len(b.Rows) >= b.capacity }

// Append adds row to b. The caller must check Full first.
func (b *Block) Append(row Row) { b.Rows = append(b.Rows, row) }

// Manager owns every block allocated for one query (spec.md §4.7: "All
// iterators materialize through the BlockManager; memory never leaks on
// early termination because the manager owns every block"). It is not
// safe for concurrent use across queries, matching the single-query
// ownership spec.md §5 describes.
type Manager struct {
	blockCapacity int64
	active        int64
	peak          int64
}

// NewManager returns a Manager allocating blocks of blockCapacity rows.
func NewManager(blockCapacity int) *Manager {
	if blockCapacity <= 0 {
		blockCapacity = 1000
	}
	return &Manager{blockCapacity: int64(blockCapacity)}
}

// NewBlock allocates and tracks a new, empty block.
func (m *Manager) NewBlock() *Block {
	active := atomic.AddInt64(&m.active, 1)
	for {
		peak := atomic.LoadInt64(&m.peak)
		if active <= peak || atomic.CompareAndSwapInt64(&m.peak, peak, active) {
			break
		}
	}
	return &Block{capacity: int(m.blockCapacity)}
}

// Release returns a block to the manager once its consumer is done with
// it. Go's GC reclaims the backing storage; Release only maintains the
// manager's reference accounting.
func (m *Manager) Release(*Block) {
	atomic.AddInt64(&m.active, -1)
}

// Stats reports live and peak block counts, used by EXPLAIN EXEC and by
// tests asserting no block leaks on early termination.
type Stats struct {
	Active int64
	Peak   int64
}

func (m *Manager) Stats() Stats {
	return Stats{Active: atomic.LoadInt64(&m.active), Peak: atomic.LoadInt64(&m.peak)}
}

// BlockCapacity returns the row capacity each allocated block carries.
func (m *Manager) BlockCapacity() int { return int(m.blockCapacity) }
