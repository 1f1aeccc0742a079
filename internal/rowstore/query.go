package rowstore

import "fmt"

// SelectVersion resolves rid (a base RID) to the record state relative to
// its latest version, per spec §4.8. relVersion == 0 is the live record
// (identical to Read). Negative values walk backward along the tail
// chain by |relVersion| steps toward the chain root; once the root is
// reached, every further negative step still resolves to the base
// record's stored values.
func (t *Table) SelectVersion(rid int64, relVersion int) (*Record, error) {
	if relVersion > 0 {
		return nil, fmt.Errorf("%w: relative_version must be <= 0, got %d", ErrInvalidArgument, relVersion)
	}
	if relVersion == 0 {
		return t.Read(rid)
	}

	t.mu.RLock()
	entry, ok := t.directory[rid]
	t.mu.RUnlock()
	if !ok || entry.isTail {
		return nil, nil
	}

	t.applyPendingMerge(entry.rangeID)

	basePages, err := t.acquireBundle(entry.rangeID, false, entry.pageID)
	if err != nil {
		return nil, err
	}
	indirection, err := basePages[IndirectionCol].Read(entry.slotOffset)
	if err != nil {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return nil, err
	}
	if indirection == DeletedRID {
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return nil, nil
	}

	steps := -relVersion
	cur := indirection
	for i := 0; i < steps && cur != NullRID; i++ {
		t.mu.RLock()
		tailEntry, ok := t.directory[cur]
		t.mu.RUnlock()
		if !ok {
			cur = NullRID
			break
		}
		tailPages, err := t.acquireBundle(tailEntry.rangeID, true, tailEntry.pageID)
		if err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return nil, err
		}
		next, err := tailPages[IndirectionCol].Read(tailEntry.slotOffset)
		t.releaseBundle(tailEntry.rangeID, true, tailEntry.pageID, false)
		if err != nil {
			t.releaseBundle(entry.rangeID, false, entry.pageID, false)
			return nil, err
		}
		cur = next
	}

	if cur == NullRID {
		rec, err := t.assembleRecord(basePages, entry.slotOffset, rid)
		t.releaseBundle(entry.rangeID, false, entry.pageID, false)
		return rec, err
	}
	t.releaseBundle(entry.rangeID, false, entry.pageID, false)

	t.mu.RLock()
	tailEntry, ok := t.directory[cur]
	t.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	tailPages, err := t.acquireBundle(tailEntry.rangeID, true, tailEntry.pageID)
	if err != nil {
		return nil, err
	}
	rec, err := t.assembleRecord(tailPages, tailEntry.slotOffset, rid)
	t.releaseBundle(tailEntry.rangeID, true, tailEntry.pageID, false)
	return rec, err
}

// Sum resolves every key in [lo, hi] via the primary index, reads each
// matching RID's latest value for col, and returns the total. An empty
// range (no matching keys) returns ErrNotFound, per spec §4.9.
func (t *Table) Sum(lo, hi int64, col int) (int64, error) {
	return t.sum(lo, hi, col, 0)
}

// SumVersion is Sum resolved through SelectVersion(rid, relVersion)
// instead of Read.
func (t *Table) SumVersion(lo, hi int64, col, relVersion int) (int64, error) {
	return t.sum(lo, hi, col, relVersion)
}

func (t *Table) sum(lo, hi int64, col, relVersion int) (int64, error) {
	rids := t.index.LocateRange(t.keyCol, lo, hi)
	if len(rids) == 0 {
		return 0, ErrNotFound
	}
	var total int64
	found := false
	for _, rid := range rids {
		rec, err := t.SelectVersion(rid, relVersion)
		if err != nil {
			return 0, err
		}
		if rec == nil || col >= len(rec.Columns) || rec.Columns[col] == nil {
			continue
		}
		total += *rec.Columns[col]
		found = true
	}
	if !found {
		return 0, ErrNotFound
	}
	return total, nil
}
