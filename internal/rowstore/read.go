package rowstore

import "github.com/tantalum-db/lstore/internal/page"

// Read resolves rid to its latest visible version, per spec §4.5. It
// follows the indirection chain from a base record to its latest tail
// exactly once (tails never chain further for "latest" reads, since a
// tail's user columns are already cumulative, per invariant I4). A
// missing directory entry or a tombstoned base record both resolve to a
// nil Record with no error, matching "queries against a deleted key
// yield null" rather than an error.
func (t *Table) Read(rid int64) (*Record, error) {
	cur := rid
	for {
		t.mu.RLock()
		entry, ok := t.directory[cur]
		t.mu.RUnlock()
		if !ok {
			return nil, nil
		}

		if !entry.isTail {
			t.applyPendingMerge(entry.rangeID)
		}

		pages, err := t.acquireBundle(entry.rangeID, entry.isTail, entry.pageID)
		if err != nil {
			return nil, err
		}

		indirection, err := pages[IndirectionCol].Read(entry.slotOffset)
		if err != nil {
			t.releaseBundle(entry.rangeID, entry.isTail, entry.pageID, false)
			return nil, err
		}

		if !entry.isTail && indirection == DeletedRID {
			t.releaseBundle(entry.rangeID, entry.isTail, entry.pageID, false)
			return nil, nil
		}

		if !entry.isTail && indirection != NullRID {
			t.releaseBundle(entry.rangeID, entry.isTail, entry.pageID, false)
			cur = indirection
			continue
		}

		rec, err := t.assembleRecord(pages, entry.slotOffset, rid)
		t.releaseBundle(entry.rangeID, entry.isTail, entry.pageID, false)
		return rec, err
	}
}

// assembleRecord reads BASE_RID and every user column at slot out of an
// acquired bundle.
func (t *Table) assembleRecord(pages []*page.Page, slot int, fallbackRID int64) (*Record, error) {
	baseRID, err := pages[BaseRIDCol].Read(slot)
	if err != nil {
		baseRID = fallbackRID
	}
	cols := make([]*int64, t.numColumns)
	for c := 0; c < t.numColumns; c++ {
		v, err := pages[MetaColumns+c].Read(slot)
		if err != nil {
			return nil, err
		}
		val := v
		cols[c] = &val
	}
	key := int64(0)
	if cols[t.keyCol] != nil {
		key = *cols[t.keyCol]
	}
	return &Record{RID: baseRID, Key: key, Columns: cols}, nil
}
