package rowstore

import (
	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/page"
)

// This file exposes the table-internal state that internal/persist
// needs to serialize and restore, without handing out the unexported
// pageRange/dirEntry types directly.

// DirEntry is the exported mirror of dirEntry, used at the Table/persist
// boundary.
type DirEntry struct {
	RID        int64
	RangeID    int
	IsTail     bool
	PageID     int
	SlotOffset int
}

// RangeInfo describes one page range's bundle topology, enough to
// reconstruct a pageRange on restore without replaying every insert and
// update.
type RangeInfo struct {
	NumBase          int
	NumTail          int
	BaseRecordCounts []int
	TailRecordCounts []int
}

// Meta is the table-level metadata persist needs for meta.bin.
type Meta struct {
	NextRID     int64
	NextTailRID int64
	NumColumns  int
	KeyCol      int
	NumRanges   int
}

// Meta returns the table's persistable metadata.
func (t *Table) Meta() Meta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Meta{
		NextRID:     t.nextBaseRID.Load(),
		NextTailRID: t.nextTailRID.Load(),
		NumColumns:  t.numColumns,
		KeyCol:      t.keyCol,
		NumRanges:   len(t.ranges),
	}
}

// RangeInfos returns a snapshot of every range's bundle topology, in
// range-id order.
func (t *Table) RangeInfos() []RangeInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RangeInfo, len(t.ranges))
	for i, rng := range t.ranges {
		base := make([]int, len(rng.baseRecordCounts))
		copy(base, rng.baseRecordCounts)
		tail := make([]int, len(rng.tailRecordCounts))
		copy(tail, rng.tailRecordCounts)
		out[i] = RangeInfo{
			NumBase:          rng.numBaseBundles,
			NumTail:          rng.numTailBundles,
			BaseRecordCounts: base,
			TailRecordCounts: tail,
		}
	}
	return out
}

// DirectoryEntries returns every page-directory entry, in no particular
// order.
func (t *Table) DirectoryEntries() []DirEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]DirEntry, 0, len(t.directory))
	for rid, e := range t.directory {
		out = append(out, DirEntry{RID: rid, RangeID: e.rangeID, IsTail: e.isTail, PageID: e.pageID, SlotOffset: e.slotOffset})
	}
	return out
}

// PageAt pins and returns the page at (rangeID, isTail, bundleID, col),
// for persist to read out and serialize. The caller must call
// ReleasePage(rangeID, isTail, bundleID, col) when done.
func (t *Table) PageAt(rangeID int, isTail bool, bundleID, col int) (*page.Page, error) {
	return t.pool.GetPage(t.bundleKey(rangeID, isTail, bundleID, col), t.loader.LoadPage)
}

// ReleasePage unpins a page obtained via PageAt.
func (t *Table) ReleasePage(rangeID int, isTail bool, bundleID, col int) {
	t.pool.Unpin(t.bundleKey(rangeID, isTail, bundleID, col), false)
}

// Restore rebuilds a Table's directory, ranges, and RID counters from
// previously-serialized metadata, without replaying inserts/updates. The
// primary (and any previously-existing secondary) index must be rebuilt
// separately via RebuildPrimaryIndex, since index contents are not
// persisted. tps is not part of the persisted format (spec §4.11);
// ranges restore with every tps entry at NullRID.
func Restore(name string, meta Meta, ranges []RangeInfo, entries []DirEntry, pool *buffer.BufferPool, loader Loader) *Table {
	t := &Table{
		name:                name,
		numColumns:          meta.NumColumns,
		keyCol:              meta.KeyCol,
		pool:                pool,
		loader:              loader,
		directory:           make(map[int64]dirEntry, len(entries)),
		index:               NewIndex(meta.KeyCol),
		mergeThresholdPages: DefaultMergeThresholdPages,
	}
	t.nextBaseRID.Store(meta.NextRID)
	t.nextTailRID.Store(meta.NextTailRID)

	t.ranges = make([]*pageRange, len(ranges))
	for i, ri := range ranges {
		rng := newPageRange(i)
		rng.numBaseBundles = ri.NumBase
		rng.numTailBundles = ri.NumTail
		rng.baseRecordCounts = append([]int(nil), ri.BaseRecordCounts...)
		rng.tailRecordCounts = append([]int(nil), ri.TailRecordCounts...)
		rng.tps = make([]int64, ri.NumBase)
		for j := range rng.tps {
			rng.tps[j] = NullRID
		}
		t.ranges[i] = rng
	}

	for _, e := range entries {
		t.directory[e.RID] = dirEntry{rangeID: e.RangeID, isTail: e.IsTail, pageID: e.PageID, slotOffset: e.SlotOffset}
	}

	return t
}
