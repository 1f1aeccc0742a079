package rowstore

import "github.com/tantalum-db/lstore/internal/page"

// pageRange groups up to MaxBaseBundles base bundles of one insertion
// cohort together with their tail bundles and a per-base-page tail
// watermark (tps). Bundle pages are not stored as pointers here; they are
// addressed through buffer.Key values resolved against the table's shared
// bufferpool, mirroring the teacher's StorageBackend abstraction
// (internal/storage/storage_backend.go): the range only ever holds
// coordinates, never owns page memory.
type pageRange struct {
	id int

	numBaseBundles int
	// baseRecordCounts[i] is the number of records written into base
	// bundle i so far (shared across all 5+U columns in the bundle,
	// since every column write targets the same slot index).
	baseRecordCounts []int

	numTailBundles int
	tailRecordCounts []int

	// tps[i] is the tail-sequence watermark for base bundle i: the
	// highest tail RID merged into that base page, or NullRID.
	tps []int64

	pendingMerge *mergeResult
}

// mergeResult is a background-prepared merge snapshot awaiting foreground
// publication via applyPendingMerge.
type mergeResult struct {
	// mergedBase[i][c] is a deep-copied snapshot of base bundle i,
	// column c, as of the moment the merge producer snapshotted it.
	mergedBase [][]*page.Page

	mergedTPS []int64
}

func newPageRange(id int) *pageRange {
	return &pageRange{id: id}
}

func (r *pageRange) hasCapacity() bool {
	return r.numBaseBundles < MaxBaseBundles
}

// lastBaseBundle returns the index of the most recently created base
// bundle, or -1 if the range has none yet.
func (r *pageRange) lastBaseBundle() int {
	return r.numBaseBundles - 1
}

func (r *pageRange) lastTailBundle() int {
	return r.numTailBundles - 1
}

func (r *pageRange) appendBaseBundle() int {
	id := r.numBaseBundles
	r.numBaseBundles++
	r.baseRecordCounts = append(r.baseRecordCounts, 0)
	r.tps = append(r.tps, NullRID)
	return id
}

func (r *pageRange) appendTailBundle() int {
	id := r.numTailBundles
	r.numTailBundles++
	r.tailRecordCounts = append(r.tailRecordCounts, 0)
	return id
}
