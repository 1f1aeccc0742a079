package rowstore

import (
	"fmt"

	"github.com/tantalum-db/lstore/internal/page"
)

// Delete tombstones the record at rid, per spec §4.7. The page directory
// entry is kept (never removed) so a later deserialize/reload does not
// lose the tombstone; only the index entries are removed.
func (t *Table) Delete(rid int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.directory[rid]
	if !ok || entry.isTail {
		return ErrNotFound
	}

	t.applyPendingMergeLocked(entry.rangeID)

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
		return ErrNotFound
	}

	current, err := t.currentValuesLocked(entry, indirection, basePages)
	if err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return err
	}

	if err := basePages[IndirectionCol].Update(entry.slotOffset, DeletedRID); err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, true)
		return err
	}
	t.releaseBundle(entry.rangeID, false, entry.pageID, true)

	t.index.Remove(t.keyCol, current[t.keyCol], rid)
	for _, col := range t.index.Columns() {
		if col == t.keyCol {
			continue
		}
		t.index.Remove(col, current[col], rid)
	}

	return nil
}

// currentValuesLocked reads the cumulative user-column values for a base
// record, following its indirection to the latest tail if one exists.
// Caller must hold t.mu and have already acquired basePages.
func (t *Table) currentValuesLocked(entry dirEntry, indirection int64, basePages []*page.Page) ([]int64, error) {
	current := make([]int64, t.numColumns)
	if indirection == NullRID {
		for c := 0; c < t.numColumns; c++ {
			v, err := basePages[MetaColumns+c].Read(entry.slotOffset)
			if err != nil {
				return nil, err
			}
			current[c] = v
		}
		return current, nil
	}

	tailEntry, ok := t.directory[indirection]
	if !ok {
		return nil, fmt.Errorf("rowstore: dangling tail rid %d", indirection)
	}
	tailPages, err := t.acquireBundle(tailEntry.rangeID, true, tailEntry.pageID)
	if err != nil {
		return nil, err
	}
	defer t.releaseBundle(tailEntry.rangeID, true, tailEntry.pageID, false)
	for c := 0; c < t.numColumns; c++ {
		v, err := tailPages[MetaColumns+c].Read(tailEntry.slotOffset)
		if err != nil {
			return nil, err
		}
		current[c] = v
	}
	return current, nil
}
