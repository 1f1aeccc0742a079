package lstore

import "github.com/tantalum-db/lstore/internal/rowstore"

// Record is the user-visible row shape: RID, key value, and U user
// column values (nil where not requested by a projection).
type Record = rowstore.Record

// TableHandle is the user-facing wrapper around a rowstore.Table. Its
// mutation methods (Insert/Update/Delete) return bool; its query methods
// (Select/SelectVersion/Sum/SumVersion/Increment) swallow every error
// and return false, per spec §7's "queries that fail must return false"
// propagation policy — grounded on the teacher's query facade in
// sql.go/builder.go.
type TableHandle struct {
	tbl *rowstore.Table
}

// Table exposes the underlying rowstore.Table for callers that want
// typed errors instead of the swallow-to-bool contract (e.g. a CLI that
// wants to print why an operation failed).
func (h *TableHandle) Table() *rowstore.Table { return h.tbl }

// Insert adds a record and reports whether it succeeded (it fails on a
// duplicate primary key, a column-count mismatch, or a bufferpool or
// page-load error).
func (h *TableHandle) Insert(values []*int64) bool {
	_, err := h.tbl.Insert(values)
	return err == nil
}

// InsertRID is Insert but also returns the allocated RID, for callers
// (the CLI, tests) that need it immediately without a subsequent Select.
func (h *TableHandle) InsertRID(values []*int64) (int64, bool) {
	rid, err := h.tbl.Insert(values)
	return rid, err == nil
}

// Read returns the live record at rid, or nil if it does not exist or
// is deleted.
func (h *TableHandle) Read(rid int64) *Record {
	rec, err := h.tbl.Read(rid)
	if err != nil {
		return nil
	}
	return rec
}

// Update applies a partial update and reports success.
func (h *TableHandle) Update(rid int64, values []*int64) bool {
	return h.tbl.Update(rid, values) == nil
}

// Delete tombstones rid and reports success.
func (h *TableHandle) Delete(rid int64) bool {
	return h.tbl.Delete(rid) == nil
}

// CreateIndex installs a secondary index on col and reports success.
func (h *TableHandle) CreateIndex(col int) bool {
	return h.tbl.CreateIndex(col) == nil
}

// Select resolves every RID whose col equals value via the table's index
// on col, reads each one's latest version, and applies projection
// (nil/false entries are masked to nil in the result). Returns (nil,
// false) if col has no index; an empty, successful match returns
// ([]Record{}, true), since "a query against a deleted key yields an
// empty result list, not false" per spec §7.
func (h *TableHandle) Select(value int64, col int, projection []bool) ([]Record, bool) {
	return h.selectVersion(value, col, projection, 0)
}

// SelectVersion is Select resolved through SelectVersion(rid,
// relVersion) instead of the live value.
func (h *TableHandle) SelectVersion(value int64, col int, projection []bool, relVersion int) ([]Record, bool) {
	return h.selectVersion(value, col, projection, relVersion)
}

func (h *TableHandle) selectVersion(value int64, col int, projection []bool, relVersion int) ([]Record, bool) {
	if !h.tbl.Index().HasColumn(col) {
		return nil, false
	}
	rids := h.tbl.Index().Locate(col, value)
	out := make([]Record, 0, len(rids))
	for _, rid := range rids {
		rec, err := h.tbl.SelectVersion(rid, relVersion)
		if err != nil || rec == nil {
			continue
		}
		out = append(out, applyProjection(*rec, projection))
	}
	return out, true
}

func applyProjection(rec Record, projection []bool) Record {
	if projection == nil {
		return rec
	}
	masked := make([]*int64, len(rec.Columns))
	for i, v := range rec.Columns {
		if i < len(projection) && projection[i] {
			masked[i] = v
		}
	}
	rec.Columns = masked
	return rec
}

// Sum swallows rowstore.Table.Sum's error to false.
func (h *TableHandle) Sum(lo, hi int64, col int) (int64, bool) {
	total, err := h.tbl.Sum(lo, hi, col)
	return total, err == nil
}

// SumVersion swallows rowstore.Table.SumVersion's error to false.
func (h *TableHandle) SumVersion(lo, hi int64, col, relVersion int) (int64, bool) {
	total, err := h.tbl.SumVersion(lo, hi, col, relVersion)
	return total, err == nil
}

// Increment reads value's current column value and writes back value+1
// in a single Update, reporting success.
func (h *TableHandle) Increment(keyValue int64, col int) bool {
	rids := h.tbl.Index().Locate(h.tbl.KeyCol(), keyValue)
	if len(rids) != 1 {
		return false
	}
	rec, err := h.tbl.Read(rids[0])
	if err != nil || rec == nil || col >= len(rec.Columns) || rec.Columns[col] == nil {
		return false
	}
	values := make([]*int64, h.tbl.NumColumns())
	next := *rec.Columns[col] + 1
	values[col] = &next
	return h.tbl.Update(rids[0], values) == nil
}

// Stats reports a row-count/tail-chain-depth/merge-activity snapshot for
// the table, swallowing rowstore.Table.Stats's error to false like every
// other query method on this facade.
func (h *TableHandle) Stats() (rowstore.Stats, bool) {
	stats, err := h.tbl.Stats()
	return stats, err == nil
}
