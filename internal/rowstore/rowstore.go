// Package rowstore implements the columnar record store: RID allocation,
// the physical (5+U)-column page layout, page ranges of base/tail bundles,
// in-memory indexes, the versioned read path, and the background merge
// procedure that reconciles tail updates into base pages.
//
// The locking shape and method surface are grounded on the teacher's
// internal/storage/db.go (github.com/SimonWaldherr/tinySQL): a single
// sync.RWMutex guarding directory/range/index state, Insert/Read/Update/
// Delete naming, and sentinel-error returns. The tail-chain-as-linked-list
// idea is grounded on internal/storage/mvcc.go's RowVersion.NextVersion.
package rowstore

import "errors"

// Column indices within a (5+U)-wide record bundle, per the physical
// layout: INDIRECTION, RID, TIMESTAMP, SCHEMA_ENCODING, BASE_RID, then U
// user columns starting at MetaColumns.
const (
	IndirectionCol    = 0
	RIDCol            = 1
	TimestampCol      = 2
	SchemaEncodingCol = 3
	BaseRIDCol        = 4
	MetaColumns       = 5
)

// Sentinel RID values stored in the INDIRECTION column.
const (
	// NullRID marks "no indirection": a base record never updated, or a
	// tail record at the root of its chain.
	NullRID int64 = -1

	// DeletedRID marks a base record tombstoned by Delete.
	DeletedRID int64 = -5

	// TailRIDBase is the first tail RID; base RIDs allocate upward from
	// 0 and are always strictly less than this, per invariant I1.
	TailRIDBase int64 = 1 << 32
)

// MaxBaseBundles is the per-range cap on base bundles (invariant I5).
const MaxBaseBundles = 16

// DefaultMergeThresholdPages is the update-count threshold that triggers
// a background merge when crossed.
const DefaultMergeThresholdPages = 64

var (
	// ErrDuplicateKey is returned by Insert when the primary-key value
	// already has a live record.
	ErrDuplicateKey = errors.New("rowstore: duplicate key")

	// ErrNotFound is returned by Update/Delete on a missing or deleted
	// RID, and by Sum/SumVersion when no key falls in the range. Read and
	// SelectVersion report a missing or deleted RID as a nil Record with
	// no error instead.
	ErrNotFound = errors.New("rowstore: not found")

	// ErrInvalidArgument covers column-count mismatches, attempted
	// key-column updates, and empty update masks.
	ErrInvalidArgument = errors.New("rowstore: invalid argument")

	// ErrIO is returned by persistence-facing operations.
	ErrIO = errors.New("rowstore: io error")

	// ErrMergeInProgress is returned when a caller tries to force a
	// second concurrent merge on the same table.
	ErrMergeInProgress = errors.New("rowstore: merge already in progress")
)

// Record is the user-visible shape of one row: its RID, key value, and
// the U user column values (nil where not requested by a projection).
type Record struct {
	RID     int64
	Key     int64
	Columns []*int64
}

// dirEntry locates one physical record within a table's page ranges.
type dirEntry struct {
	rangeID    int
	isTail     bool
	pageID     int
	slotOffset int
}
