package rowstore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/page"
)

// Loader is the small capability interface the database implements to let
// a Table's bufferpool frames load from and write back to disk without
// the bufferpool knowing anything about on-disk layout. Grounded on
// spec §9's "Runtime dispatch" design note and the teacher's
// StorageBackend interface (internal/storage/storage_backend.go).
type Loader interface {
	LoadPage(key buffer.Key) (*page.Page, error)
	WritePage(key buffer.Key, p *page.Page) error
}

// Table is a named columnar record store: an ordered list of page
// ranges, a page directory, an index, RID counters, and the locks
// guarding them. The method surface (Insert/Read/Update/Delete) and the
// single-RWMutex-over-directory-and-ranges shape are grounded on the
// teacher's internal/storage/db.go Table type.
type Table struct {
	name       string
	numColumns int
	keyCol     int

	pool   *buffer.BufferPool
	loader Loader

	mu        sync.RWMutex
	ranges    []*pageRange
	directory map[int64]dirEntry
	index     *Index

	nextBaseRID atomic.Int64
	nextTailRID atomic.Int64
	updateCount atomic.Int64

	mergeThresholdPages int
	mergeInProgress     atomic.Bool
	mergeRuns           atomic.Int64
	// mergeMu protects the base-page swap and tps update performed by
	// applyPendingMerge, distinct from mu which guards directory/range
	// topology. Per spec §9: "one lock per table covering
	// directory+ranges, plus a dedicated merge lock".
	mergeMu sync.Mutex
}

// NewTable constructs an empty table with numColumns user columns, a
// primary index on keyCol, backed by pool and loader.
func NewTable(name string, numColumns, keyCol int, pool *buffer.BufferPool, loader Loader) *Table {
	t := &Table{
		name:                name,
		numColumns:          numColumns,
		keyCol:              keyCol,
		pool:                pool,
		loader:              loader,
		directory:           make(map[int64]dirEntry),
		index:               NewIndex(keyCol),
		mergeThresholdPages: DefaultMergeThresholdPages,
	}
	t.nextTailRID.Store(TailRIDBase)
	return t
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// NumColumns returns U, the user column count.
func (t *Table) NumColumns() int { return t.numColumns }

// KeyCol returns the primary key column index.
func (t *Table) KeyCol() int { return t.keyCol }

// Index exposes the table's index for secondary-index creation and
// direct lookups by the query facade.
func (t *Table) Index() *Index { return t.index }

// SetMergeThreshold overrides the update-count threshold that triggers a
// background merge.
func (t *Table) SetMergeThreshold(n int) {
	if n > 0 {
		t.mergeThresholdPages = n
	}
}

func (t *Table) bundleKey(rangeID int, isTail bool, bundleID, col int) buffer.Key {
	return buffer.Key{Table: t.name, RangeID: rangeID, IsTail: isTail, PageID: bundleID, Col: col}
}

// acquireBundle pins all (5+U) columns of a bundle and returns them
// indexed by column. Callers must releaseBundle with the same keys.
func (t *Table) acquireBundle(rangeID int, isTail bool, bundleID int) ([]*page.Page, error) {
	width := MetaColumns + t.numColumns
	pages := make([]*page.Page, width)
	for c := 0; c < width; c++ {
		p, err := t.pool.GetPage(t.bundleKey(rangeID, isTail, bundleID, c), t.loader.LoadPage)
		if err != nil {
			return nil, fmt.Errorf("rowstore: acquire bundle (range %d tail=%v bundle %d col %d): %w", rangeID, isTail, bundleID, c, err)
		}
		pages[c] = p
	}
	return pages, nil
}

// releaseBundle unpins every column of a bundle acquired via
// acquireBundle.
func (t *Table) releaseBundle(rangeID int, isTail bool, bundleID int, dirty bool) {
	width := MetaColumns + t.numColumns
	for c := 0; c < width; c++ {
		t.pool.Unpin(t.bundleKey(rangeID, isTail, bundleID, c), dirty)
	}
}

// allocateBundle creates a fresh (5+U)-column bundle of empty pages,
// registers them in the bufferpool, and records the bundle in rng.
func (t *Table) allocateBundle(rng *pageRange, isTail bool) (int, error) {
	var bundleID int
	if isTail {
		bundleID = rng.appendTailBundle()
	} else {
		// appendBaseBundle grows tps, which is guarded by mergeMu.
		t.mergeMu.Lock()
		bundleID = rng.appendBaseBundle()
		t.mergeMu.Unlock()
	}
	width := MetaColumns + t.numColumns
	for c := 0; c < width; c++ {
		if err := t.pool.RegisterPage(t.bundleKey(rng.id, isTail, bundleID, c), page.New()); err != nil {
			return 0, fmt.Errorf("rowstore: allocate bundle: %w", err)
		}
	}
	return bundleID, nil
}

// activeRange returns the table's currently-active (last) page range,
// creating one if none exists or the last is full. Must be called with
// t.mu held for writing.
func (t *Table) activeRange() *pageRange {
	if len(t.ranges) == 0 || !t.ranges[len(t.ranges)-1].hasCapacity() {
		rng := newPageRange(len(t.ranges))
		t.ranges = append(t.ranges, rng)
	}
	return t.ranges[len(t.ranges)-1]
}

// Insert adds a new record with the given U user column values (nil
// entries are treated as null and zero-filled, per spec §4.1) and
// returns its newly allocated base RID.
func (t *Table) Insert(values []*int64) (int64, error) {
	if len(values) != t.numColumns {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrInvalidArgument, len(values), t.numColumns)
	}
	keyVal := resolveNull(values[t.keyCol])

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.index.Locate(t.keyCol, keyVal)) > 0 {
		return 0, ErrDuplicateKey
	}

	rng := t.activeRange()
	if rng.numBaseBundles == 0 || rng.baseRecordCounts[rng.lastBaseBundle()] >= page.MaxSlots {
		if _, err := t.allocateBundle(rng, false); err != nil {
			return 0, err
		}
	}
	bundleID := rng.lastBaseBundle()
	t.applyPendingMergeLocked(rng.id)

	rid := t.nextBaseRID.Add(1) - 1

	pages, err := t.acquireBundle(rng.id, false, bundleID)
	if err != nil {
		return 0, err
	}

	slot, err := pages[IndirectionCol].Write(NullRID)
	if err != nil {
		t.releaseBundle(rng.id, false, bundleID, false)
		return 0, fmt.Errorf("rowstore: insert: %w", err)
	}
	mustWriteAt(pages[RIDCol], slot, rid)
	mustWriteAt(pages[TimestampCol], slot, now())
	mustWriteAt(pages[SchemaEncodingCol], slot, 0)
	mustWriteAt(pages[BaseRIDCol], slot, rid)
	for c := 0; c < t.numColumns; c++ {
		mustWriteAt(pages[MetaColumns+c], slot, resolveNull(values[c]))
	}

	t.releaseBundle(rng.id, false, bundleID, true)
	rng.baseRecordCounts[bundleID]++

	t.directory[rid] = dirEntry{rangeID: rng.id, isTail: false, pageID: bundleID, slotOffset: slot}
	t.index.Insert(t.keyCol, keyVal, rid)
	for _, col := range t.index.Columns() {
		if col == t.keyCol {
			continue
		}
		t.index.Insert(col, resolveNull(values[col]), rid)
	}

	return rid, nil
}

// mustWriteAt writes v at exactly the slot just returned by the
// INDIRECTION page's Write; since every column in a bundle is written in lockstep,
// this can only fail if the bundle's columns have desynchronized record
// counts, which would itself be a bug.
func mustWriteAt(p *page.Page, slot int, v int64) {
	if p.NumRecords() <= slot {
		if _, err := p.Write(v); err != nil {
			panic(fmt.Sprintf("rowstore: bundle column desynchronized: %v", err))
		}
		return
	}
	if err := p.Update(slot, v); err != nil {
		panic(fmt.Sprintf("rowstore: bundle column desynchronized: %v", err))
	}
}

func resolveNull(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func now() int64 {
	return time.Now().Unix()
}
