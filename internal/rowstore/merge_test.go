package rowstore

import "testing"

// P9: running merge twice without intervening updates produces the same
// tps as running it once, and the latest value still reads back.
func TestMergeIdempotence(t *testing.T) {
	tbl := newTestTable(2, 0)
	rid, err := tbl.Insert(vals(1, 10))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tbl.Update(rid, []*int64{nil, ptr(11)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rng := tbl.ranges[0]

	if _, err := tbl.mergeRange(rng); err != nil {
		t.Fatalf("merge 1: %v", err)
	}
	tbl.applyPendingMergeOn(rng)
	firstTPS := append([]int64(nil), rng.tps...)

	if _, err := tbl.mergeRange(rng); err != nil {
		t.Fatalf("merge 2: %v", err)
	}
	tbl.applyPendingMergeOn(rng)
	secondTPS := append([]int64(nil), rng.tps...)

	if len(firstTPS) != len(secondTPS) {
		t.Fatalf("tps length changed: %v vs %v", firstTPS, secondTPS)
	}
	for i := range firstTPS {
		if firstTPS[i] != secondTPS[i] {
			t.Fatalf("tps[%d] changed across idempotent merges: %d vs %d", i, firstTPS[i], secondTPS[i])
		}
	}

	rec, err := tbl.Read(rid)
	if err != nil {
		t.Fatalf("read after merge: %v", err)
	}
	if colVal(t, rec, 1) != 11 {
		t.Fatalf("expected merge to preserve latest value 11, got %d", colVal(t, rec, 1))
	}
}

// Merge should reconcile the most recent tail per base record, bumping
// tps to that tail's RID.
func TestMergeBumpsTPSToLatestTail(t *testing.T) {
	tbl := newTestTable(2, 0)
	rid, _ := tbl.Insert(vals(1, 10))
	if err := tbl.Update(rid, []*int64{nil, ptr(11)}); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	if err := tbl.Update(rid, []*int64{nil, ptr(12)}); err != nil {
		t.Fatalf("update 2: %v", err)
	}

	rng := tbl.ranges[0]
	if _, err := tbl.mergeRange(rng); err != nil {
		t.Fatalf("merge: %v", err)
	}
	tbl.applyPendingMergeOn(rng)

	if rng.tps[0] != TailRIDBase+1 {
		t.Fatalf("expected tps bumped to the latest tail rid %d, got %d", TailRIDBase+1, rng.tps[0])
	}
}

func TestMergeNoOpWithoutTails(t *testing.T) {
	tbl := newTestTable(1, 0)
	tbl.Insert(vals(1))
	rng := tbl.ranges[0]
	n, err := tbl.mergeRange(rng)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if n != -1 {
		t.Fatalf("expected -1 (no tails to reconcile), got %d", n)
	}
}
