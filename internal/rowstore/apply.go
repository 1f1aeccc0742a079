package rowstore

import "github.com/tantalum-db/lstore/internal/page"

// applyPendingMerge is the foreground consumer half of the background
// merge protocol (spec §4.10): Read, SelectVersion, Insert, Update and
// Delete call this (or applyPendingMergeLocked) before touching a base
// bundle. CreateIndex, RebuildPrimaryIndex, Stats, PageAt and the merge
// producer itself read base bundles without applying a pending merge. It
// takes its own brief read lock on the table to resolve the range
// pointer, for callers (Read, SelectVersion) that are not already
// holding t.mu.
func (t *Table) applyPendingMerge(rangeID int) {
	t.mu.RLock()
	rng := t.ranges[rangeID]
	t.mu.RUnlock()
	t.applyPendingMergeOn(rng)
}

// applyPendingMergeLocked is applyPendingMerge for callers (Update,
// Delete, Insert's bundle allocation path) that already hold t.mu for
// writing; it indexes t.ranges directly rather than re-acquiring the
// lock, which would deadlock against sync.RWMutex's non-reentrancy.
func (t *Table) applyPendingMergeLocked(rangeID int) {
	t.applyPendingMergeOn(t.ranges[rangeID])
}

// applyPendingMergeOn performs the actual swap. pendingMerge and tps are
// exclusively guarded by mergeMu (never read or written without it),
// independent of whatever the caller is doing with t.mu, so this is safe
// to call under either an RLock, a Lock, or no table lock at all.
func (t *Table) applyPendingMergeOn(rng *pageRange) {
	t.mergeMu.Lock()
	defer t.mergeMu.Unlock()

	merged := rng.pendingMerge
	if merged == nil {
		return
	}

	for bundleID, cols := range merged.mergedBase {
		for col, p := range cols {
			key := t.bundleKey(rng.id, false, bundleID, col)
			if !t.pool.Swap(key, p) {
				// Not resident: install it directly so the next
				// GetPage finds the merged content.
				_ = t.pool.RegisterPage(key, p)
			}
		}
	}

	if len(merged.mergedTPS) > len(rng.tps) {
		grown := make([]int64, len(merged.mergedTPS))
		copy(grown, rng.tps)
		for i := len(rng.tps); i < len(grown); i++ {
			grown[i] = NullRID
		}
		rng.tps = grown
	}
	for i, v := range merged.mergedTPS {
		if v > rng.tps[i] {
			rng.tps[i] = v
		}
	}

	rng.pendingMerge = nil
}

// clonePage is a small helper kept close to its only call site (the
// merge producer snapshot) rather than exported from
// internal/page, since only the merge path needs bundle-wide cloning.
func clonePage(p *page.Page) *page.Page {
	return p.Clone()
}
