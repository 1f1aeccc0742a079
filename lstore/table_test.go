package lstore

import "testing"

func newHandle(t *testing.T) *TableHandle {
	t.Helper()
	db, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h, err := db.CreateTable("widgets", 3, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return h
}

func TestInsertReadDelete(t *testing.T) {
	h := newHandle(t)

	rid, ok := h.InsertRID(vals(5, 50, 500))
	if !ok {
		t.Fatalf("insert failed")
	}
	rec := h.Read(rid)
	if rec == nil || *rec.Columns[1] != 50 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if !h.Delete(rid) {
		t.Fatalf("delete failed")
	}
	if rec := h.Read(rid); rec != nil {
		t.Fatalf("expected nil after delete, got %+v", rec)
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	h := newHandle(t)

	if !h.Insert(vals(5, 50, 500)) {
		t.Fatalf("first insert should succeed")
	}
	if h.Insert(vals(5, 51, 501)) {
		t.Fatalf("duplicate key insert should fail")
	}
}

func TestSelectWithoutIndexFails(t *testing.T) {
	h := newHandle(t)
	h.Insert(vals(5, 50, 500))

	if _, ok := h.Select(50, 1, nil); ok {
		t.Fatalf("expected select on unindexed column to fail")
	}
}

func TestSelectWithIndexReturnsEmptyListOnNoMatch(t *testing.T) {
	h := newHandle(t)
	if !h.CreateIndex(1) {
		t.Fatalf("create index failed")
	}
	h.Insert(vals(5, 50, 500))

	recs, ok := h.Select(999, 1, nil)
	if !ok {
		t.Fatalf("expected select to succeed")
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %+v", recs)
	}
}

func TestSelectProjectionMasksColumns(t *testing.T) {
	h := newHandle(t)
	h.Insert(vals(5, 50, 500))

	recs, ok := h.Select(5, 0, []bool{true, false, true})
	if !ok || len(recs) != 1 {
		t.Fatalf("expected one match, got %+v ok=%v", recs, ok)
	}
	rec := recs[0]
	if rec.Columns[1] != nil {
		t.Fatalf("expected column 1 masked to nil, got %v", *rec.Columns[1])
	}
	if rec.Columns[0] == nil || *rec.Columns[0] != 5 {
		t.Fatalf("expected column 0 preserved, got %+v", rec.Columns[0])
	}
}

func TestIncrement(t *testing.T) {
	h := newHandle(t)
	h.Insert(vals(5, 50, 500))

	if !h.Increment(5, 1) {
		t.Fatalf("increment failed")
	}
	recs, _ := h.Select(5, 0, nil)
	if len(recs) != 1 || *recs[0].Columns[1] != 51 {
		t.Fatalf("unexpected column value after increment: %+v", recs)
	}
}

func TestSumAcrossKeyRange(t *testing.T) {
	h := newHandle(t)
	h.Insert(vals(1, 10, 100))
	h.Insert(vals(2, 20, 200))
	h.Insert(vals(3, 30, 300))

	total, ok := h.Sum(1, 2, 1)
	if !ok || total != 30 {
		t.Fatalf("expected sum 30, got %d ok=%v", total, ok)
	}
}

func TestSumVersionReflectsHistoricalValue(t *testing.T) {
	h := newHandle(t)
	rid, _ := h.InsertRID(vals(5, 50, 500))
	h.Update(rid, []*int64{nil, ptr(51), nil})

	total, ok := h.SumVersion(5, 5, 1, -1)
	if !ok || total != 50 {
		t.Fatalf("expected historical sum 50, got %d ok=%v", total, ok)
	}
}
