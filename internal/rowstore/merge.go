package rowstore

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tantalum-db/lstore/internal/page"
)

var mergeLog = log.New(log.Writer(), "lstore/merge: ", log.LstdFlags)

// TriggerMerge forces an out-of-band merge run, as if update_count had
// just crossed merge_threshold_pages. Per spec §4.10's "one merge per
// table at a time, enforced by merge_in_progress", it returns
// ErrMergeInProgress instead of queuing a second concurrent run.
func (t *Table) TriggerMerge() error {
	if !t.mergeInProgress.CompareAndSwap(false, true) {
		return ErrMergeInProgress
	}
	t.updateCount.Store(0)
	go t.runMerge()
	return nil
}

// AwaitMergeQuiescent blocks until no merge is running, per spec §9: "on
// table drop or database close, the worker must be joined or the flag
// polled so no merge is active when persistence runs."
func (t *Table) AwaitMergeQuiescent() {
	for t.mergeInProgress.Load() {
		time.Sleep(time.Millisecond)
	}
}

// runMerge is the background merge producer (spec §4.10), spawned as one
// detached goroutine per table with mergeInProgress set before spawn and
// cleared on exit here. Grounded on the teacher's ConcurrencyManager
// goroutine-lifecycle pattern (internal/storage/concurrency.go): start
// under a flag, run detached, clear the flag on exit — without importing
// its unused worker-pool queueing machinery, since a table runs exactly
// one merge goroutine at a time.
func (t *Table) runMerge() {
	id := uuid.New()
	defer t.mergeInProgress.Store(false)
	defer t.mergeRuns.Add(1)

	t.mu.RLock()
	ranges := make([]*pageRange, len(t.ranges))
	copy(ranges, t.ranges)
	t.mu.RUnlock()

	for _, rng := range ranges {
		reconciled, err := t.mergeRange(rng)
		if err != nil {
			mergeLog.Printf("merge %s: range %d failed: %v", id, rng.id, err)
			continue
		}
		if reconciled >= 0 {
			mergeLog.Printf("merge %s: range %d reconciled %d tails", id, rng.id, reconciled)
		}
	}
}

// mergeRange runs the producer protocol (snapshot, newest-first walk,
// reconcile, publish) for a single range.
// It returns -1 (and no error) when the range has no tail bundles to
// reconcile.
func (t *Table) mergeRange(rng *pageRange) (int, error) {
	t.mu.RLock()
	numTailBundles := rng.numTailBundles
	tailCounts := make([]int, numTailBundles)
	copy(tailCounts, rng.tailRecordCounts)
	numBaseBundles := rng.numBaseBundles
	t.mu.RUnlock()

	if numTailBundles == 0 {
		return -1, nil
	}

	// Phase 1: snapshot. Deep-copy base bundles and the current tps so
	// the walk below never observes a half-written base page.
	mergedBase := make([][]*page.Page, numBaseBundles)
	width := MetaColumns + t.numColumns
	for b := 0; b < numBaseBundles; b++ {
		cols, err := t.acquireBundle(rng.id, false, b)
		if err != nil {
			return 0, err
		}
		snap := make([]*page.Page, width)
		for c := 0; c < width; c++ {
			snap[c] = clonePage(cols[c])
		}
		t.releaseBundle(rng.id, false, b, false)
		mergedBase[b] = snap
	}

	t.mergeMu.Lock()
	mergedTPS := make([]int64, len(rng.tps))
	copy(mergedTPS, rng.tps)
	t.mergeMu.Unlock()
	for len(mergedTPS) < numBaseBundles {
		mergedTPS = append(mergedTPS, NullRID)
	}

	alreadyMerged := make(map[int64]bool)
	reconciled := t.walkTailsNewestFirst(rng.id, numTailBundles, tailCounts, mergedTPS, alreadyMerged)

	// Phase 3: reconcile tails appended during phase 2 — new bundles
	// beyond the snapshot, plus growth in the last snapshotted bundle.
	t.mu.RLock()
	currentNumTail := rng.numTailBundles
	currentCounts := make([]int, currentNumTail)
	copy(currentCounts, rng.tailRecordCounts)
	t.mu.RUnlock()

	extra := 0
	if currentNumTail > numTailBundles {
		for b := numTailBundles; b < currentNumTail; b++ {
			extra += t.walkTailBundleForward(rng.id, b, currentCounts[b], mergedTPS, alreadyMerged)
		}
	}
	if numTailBundles > 0 && numTailBundles-1 < currentNumTail {
		last := numTailBundles - 1
		if currentCounts[last] > tailCounts[last] {
			extra += t.walkTailBundleForwardFrom(rng.id, last, tailCounts[last], currentCounts[last], mergedTPS, alreadyMerged)
		}
	}

	// Phase 4: publish.
	t.mergeMu.Lock()
	rng.pendingMerge = &mergeResult{mergedBase: mergedBase, mergedTPS: mergedTPS}
	t.mergeMu.Unlock()

	return reconciled + extra, nil
}

// walkTailsNewestFirst scans the snapshotted tail bundles in reverse
// bundle order, reverse slot order within each bundle, updating
// mergedTPS in place. Returns the number of tail slots reconciled.
func (t *Table) walkTailsNewestFirst(rangeID, numTailBundles int, tailCounts []int, mergedTPS []int64, alreadyMerged map[int64]bool) int {
	count := 0
	for b := numTailBundles - 1; b >= 0; b-- {
		for s := tailCounts[b] - 1; s >= 0; s-- {
			if t.considerTailSlot(rangeID, b, s, mergedTPS, alreadyMerged) {
				count++
			}
		}
	}
	return count
}

func (t *Table) walkTailBundleForward(rangeID, bundleID, count int, mergedTPS []int64, alreadyMerged map[int64]bool) int {
	return t.walkTailBundleForwardFrom(rangeID, bundleID, 0, count, mergedTPS, alreadyMerged)
}

func (t *Table) walkTailBundleForwardFrom(rangeID, bundleID, from, to int, mergedTPS []int64, alreadyMerged map[int64]bool) int {
	n := 0
	for s := from; s < to; s++ {
		if t.considerTailSlot(rangeID, bundleID, s, mergedTPS, alreadyMerged) {
			n++
		}
	}
	return n
}

// considerTailSlot inspects one tail slot and, if eligible, bumps
// mergedTPS for its base page and marks the base RID already-merged.
func (t *Table) considerTailSlot(rangeID, bundleID, slot int, mergedTPS []int64, alreadyMerged map[int64]bool) bool {
	pages, err := t.acquireBundle(rangeID, true, bundleID)
	if err != nil {
		return false
	}
	defer t.releaseBundle(rangeID, true, bundleID, false)

	baseRID, err := pages[BaseRIDCol].Read(slot)
	if err != nil || baseRID == NullRID || baseRID == DeletedRID {
		return false
	}
	if alreadyMerged[baseRID] {
		return false
	}

	t.mu.RLock()
	baseEntry, ok := t.directory[baseRID]
	t.mu.RUnlock()
	if !ok || baseEntry.isTail || baseEntry.rangeID != rangeID {
		return false
	}

	tailRID, err := pages[RIDCol].Read(slot)
	if err != nil {
		return false
	}

	if baseEntry.pageID >= len(mergedTPS) {
		return false
	}
	if tailRID > mergedTPS[baseEntry.pageID] {
		mergedTPS[baseEntry.pageID] = tailRID
	}
	alreadyMerged[baseRID] = true
	return true
}
