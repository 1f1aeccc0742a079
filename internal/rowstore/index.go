package rowstore

import "sync"

// Index is a per-column value→RID-list map. The key column's map is
// always present; secondary indexes are optional and built on demand.
// Secondary indexes always key by base RID, per spec §4.6 step 10.
//
// Grounded on the teacher's internal/storage/db.go index helpers and
// catalog lookup shape, generalized from a single index to a set of
// per-column maps.
type Index struct {
	mu      sync.RWMutex
	keyCol  int
	columns map[int]map[int64][]int64
}

// NewIndex returns an Index with only the primary (key-column) map
// present.
func NewIndex(keyCol int) *Index {
	return &Index{
		keyCol:  keyCol,
		columns: map[int]map[int64][]int64{keyCol: make(map[int64][]int64)},
	}
}

// KeyCol reports the primary index's column.
func (ix *Index) KeyCol() int {
	return ix.keyCol
}

// HasColumn reports whether col has an index (primary or secondary).
func (ix *Index) HasColumn(col int) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.columns[col]
	return ok
}

// CreateColumn installs a secondary index on col if not already present.
// It is the caller's responsibility to populate it (e.g. by scanning the
// page directory).
func (ix *Index) CreateColumn(col int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.columns[col]; !ok {
		ix.columns[col] = make(map[int64][]int64)
	}
}

// Columns returns every indexed column, primary first.
func (ix *Index) Columns() []int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cols := make([]int, 0, len(ix.columns))
	cols = append(cols, ix.keyCol)
	for c := range ix.columns {
		if c != ix.keyCol {
			cols = append(cols, c)
		}
	}
	return cols
}

// Insert records that column col holds value for rid.
func (ix *Index) Insert(col int, value int64, rid int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	m, ok := ix.columns[col]
	if !ok {
		return
	}
	m[value] = append(m[value], rid)
}

// Remove deletes the (value, rid) pair from column col's index, if
// present.
func (ix *Index) Remove(col int, value int64, rid int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	m, ok := ix.columns[col]
	if !ok {
		return
	}
	list := m[value]
	for i, r := range list {
		if r == rid {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m, value)
	} else {
		m[value] = list
	}
}

// Locate returns the RID list for (col, value). The returned slice is a
// defensive copy.
func (ix *Index) Locate(col int, value int64) []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	m, ok := ix.columns[col]
	if !ok {
		return nil
	}
	src := m[value]
	out := make([]int64, len(src))
	copy(out, src)
	return out
}

// LocateRange returns every RID whose (col, value) satisfies lo <= value
// <= hi, in no particular order. The matching values are not returned.
func (ix *Index) LocateRange(col int, lo, hi int64) []int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	m, ok := ix.columns[col]
	if !ok {
		return nil
	}
	var out []int64
	for value, rids := range m {
		if value < lo || value > hi {
			continue
		}
		out = append(out, rids...)
	}
	return out
}
