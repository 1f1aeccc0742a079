package rowstore

import "fmt"

// CreateIndex installs a secondary index on col, backfilling it from
// every live (non-deleted) base record currently in the page directory.
// It is a no-op if col already has an index. Secondary indexes always
// key by base RID, per spec §4.6 step 10.
func (t *Table) CreateIndex(col int) error {
	if col < 0 || col >= t.numColumns {
		return fmt.Errorf("%w: column %d out of range", ErrInvalidArgument, col)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index.HasColumn(col) {
		return nil
	}
	t.index.CreateColumn(col)

	for rid, entry := range t.directory {
		if entry.isTail {
			continue
		}
		basePages, err := t.acquireBundle(entry.rangeID, false, entry.pageID)
		if err != nil {
			return err
		}
		indirection, err := basePages[IndirectionCol].Read(entry.slotOffset)
		if err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return err
		}
		if indirection == DeletedRID {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			continue
		}
		current, err := t.currentValuesLocked(entry, indirection, basePages)
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		if err != nil {
			return err
		}
		t.index.Insert(col, current[col], rid)
	}
	return nil
}

// RebuildPrimaryIndex scans the page directory and repopulates the
// primary index from scratch, skipping tombstoned base records. Used by
// internal/persist after Deserialize repopulates the directory but
// before the table is otherwise usable, per spec §4.11's "deserialize
// rebuilds the primary index by scanning the base entries".
func (t *Table) RebuildPrimaryIndex(fromScratch *Index) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.index = fromScratch

	for rid, entry := range t.directory {
		if entry.isTail {
			continue
		}
		basePages, err := t.acquireBundle(entry.rangeID, false, entry.pageID)
		if err != nil {
			return err
		}
		indirection, err := basePages[IndirectionCol].Read(entry.slotOffset)
		if err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return err
		}
		if indirection == DeletedRID {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			continue
		}
		current, err := t.currentValuesLocked(entry, indirection, basePages)
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		if err != nil {
			return err
		}
		for _, col := range t.index.Columns() {
			t.index.Insert(col, current[col], rid)
		}
	}
	return nil
}
