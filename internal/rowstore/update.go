package rowstore

import (
	"fmt"

	"github.com/tantalum-db/lstore/internal/page"
)

// Update applies a partial update to the record at baseRID, per spec
// §4.6. values[i] == nil means "leave unchanged"; updating the key
// column is forbidden. It allocates a new tail record holding the
// merged cumulative values and relinks the base record's indirection to
// point at it.
func (t *Table) Update(baseRID int64, values []*int64) error {
	if len(values) != t.numColumns {
		return fmt.Errorf("%w: got %d values, want %d", ErrInvalidArgument, len(values), t.numColumns)
	}
	if values[t.keyCol] != nil {
		return fmt.Errorf("%w: key column may not be updated", ErrInvalidArgument)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.directory[baseRID]
	if !ok || entry.isTail {
		return ErrNotFound
	}

	t.applyPendingMergeLocked(entry.rangeID)

	basePages, err := t.acquireBundle(entry.rangeID, false, entry.pageID)
	if err != nil {
		return err
	}
	prevTailRID, err := basePages[IndirectionCol].Read(entry.slotOffset)
	if err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return err
	}
	if prevTailRID == DeletedRID {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return ErrNotFound
	}

	current := make([]int64, t.numColumns)
	if prevTailRID == NullRID {
		for c := 0; c < t.numColumns; c++ {
			v, err := basePages[MetaColumns+c].Read(entry.slotOffset)
			if err != nil {
				t.releaseBundle(entry.rangeID, false, entry.pageID, false)
				return err
			}
			current[c] = v
		}
	} else {
		prevEntry, ok := t.directory[prevTailRID]
		if !ok {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return fmt.Errorf("rowstore: update: dangling tail rid %d", prevTailRID)
		}
		prevPages, err := t.acquireBundle(prevEntry.rangeID, true, prevEntry.pageID)
		if err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return err
		}
		for c := 0; c < t.numColumns; c++ {
			v, err := prevPages[MetaColumns+c].Read(prevEntry.slotOffset)
			if err != nil {
				t.releaseBundle(prevEntry.rangeID, true, prevEntry.pageID, false)
				t.releaseBundle(entry.rangeID, false, entry.pageID, false)
				return err
			}
			current[c] = v
		}
		t.releaseBundle(prevEntry.rangeID, true, prevEntry.pageID, false)
	}

	var mask int64
	merged := make([]int64, t.numColumns)
	copy(merged, current)
	for c, v := range values {
		if v == nil {
			continue
		}
		mask |= 1 << uint(c)
		merged[c] = *v
	}
	if mask == 0 {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return fmt.Errorf("%w: empty update mask", ErrInvalidArgument)
	}

	rng := t.ranges[entry.rangeID]
	if rng.numTailBundles == 0 || rng.tailRecordCounts[rng.lastTailBundle()] >= page.MaxSlots {
		if _, err := t.allocateBundle(rng, true); err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return err
		}
	}
	tailBundleID := rng.lastTailBundle()

	newTailRID := t.nextTailRID.Add(1) - 1

	tailPages, err := t.acquireBundle(entry.rangeID, true, tailBundleID)
	if err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return err
	}
	slot, err := tailPages[IndirectionCol].Write(prevTailRID)
	if err != nil {
		t.releaseBundle(entry.rangeID, true, tailBundleID, false)
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return fmt.Errorf("rowstore: update: %w", err)
	}
	mustWriteAt(tailPages[RIDCol], slot, newTailRID)
	mustWriteAt(tailPages[TimestampCol], slot, now())
	mustWriteAt(tailPages[SchemaEncodingCol], slot, mask)
	mustWriteAt(tailPages[BaseRIDCol], slot, baseRID)
	for c := 0; c < t.numColumns; c++ {
		mustWriteAt(tailPages[MetaColumns+c], slot, merged[c])
	}
	t.releaseBundle(entry.rangeID, true, tailBundleID, true)
	rng.tailRecordCounts[tailBundleID]++

	t.directory[newTailRID] = dirEntry{rangeID: entry.rangeID, isTail: true, pageID: tailBundleID, slotOffset: slot}

	if err := basePages[IndirectionCol].Update(entry.slotOffset, newTailRID); err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return fmt.Errorf("rowstore: update: %w", err)
	}
	baseMask, err := basePages[SchemaEncodingCol].Read(entry.slotOffset)
	if err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, true)
		return err
	}
	if err := basePages[SchemaEncodingCol].Update(entry.slotOffset, baseMask|mask); err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, true)
		return err
	}
	t.releaseBundle(entry.rangeID, false, entry.pageID, true)

	for _, col := range t.index.Columns() {
		if col == t.keyCol {
			continue
		}
		bit := int64(1) << uint(col)
		if mask&bit == 0 || current[col] == merged[col] {
			continue
		}
		t.index.Remove(col, current[col], baseRID)
		t.index.Insert(col, merged[col], baseRID)
	}

	if t.updateCount.Add(1) >= int64(t.mergeThresholdPages) {
		if t.mergeInProgress.CompareAndSwap(false, true) {
			t.updateCount.Store(0)
			go t.runMerge()
		}
	}

	return nil
}
