package lstore

import (
	"fmt"
	"sync"

	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/page"
	"github.com/tantalum-db/lstore/internal/persist"
	"github.com/tantalum-db/lstore/internal/rowstore"
)

// Database owns the bufferpool shared by every table, the table
// registry, and the on-disk root path. Grounded on tinysql.go/sql.go's
// top-level DB wrapper shape (OpenDB/SaveToFile/LoadFromFile naming) and
// spec §9's "the database owns the bufferpool and the table list; tables
// hold a borrow/handle to the bufferpool" design note.
type Database struct {
	mu     sync.RWMutex
	root   string
	opts   Options
	pool   *buffer.BufferPool
	tables map[string]*TableHandle

	// loaderMu guards loaders independently of mu: dispatchWrite is
	// invoked from inside the bufferpool (dirty-victim eviction,
	// FlushAll) while mu may already be held by Close, and a second
	// lock on the same mutex from the same goroutine would deadlock.
	loaderMu sync.RWMutex
	loaders  map[string]*persist.FileLoader

	checkpoint *rowstore.CheckpointScheduler
}

// registerLoader records name's FileLoader so dispatchWrite can route a
// dirty frame back to the table that owns it.
func (db *Database) registerLoader(name string, loader *persist.FileLoader) {
	db.loaderMu.Lock()
	defer db.loaderMu.Unlock()
	db.loaders[name] = loader
}

// dispatchWrite is the bufferpool's single write callback across every
// table sharing it (spec §9: one bufferpool, many tables): it routes a
// dirty frame to the FileLoader registered for key.Table.
func (db *Database) dispatchWrite(key buffer.Key, p *page.Page) error {
	db.loaderMu.RLock()
	loader, ok := db.loaders[key.Table]
	db.loaderMu.RUnlock()
	if !ok {
		return fmt.Errorf("lstore: write callback: unknown table %q", key.Table)
	}
	return loader.WritePage(key, p)
}

// CreateTable creates a new, empty table with numColumns user columns
// and a primary index on keyCol. It fails if a table with that name
// already exists.
func (db *Database) CreateTable(name string, numColumns, keyCol int) (*TableHandle, error) {
	if keyCol < 0 || keyCol >= numColumns {
		return nil, fmt.Errorf("%w: key column %d out of range", rowstore.ErrInvalidArgument, keyCol)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("lstore: table %q already exists", name)
	}

	loader := persist.NewFileLoader(db.root, name)
	db.registerLoader(name, loader)
	tbl := rowstore.NewTable(name, numColumns, keyCol, db.pool, loader)
	tbl.SetMergeThreshold(db.opts.MergeThresholdPages)

	handle := &TableHandle{tbl: tbl}
	db.tables[name] = handle
	return handle, nil
}

// DropTable removes a table from the registry. It does not scrub its
// on-disk files; the next Close/Open cycle simply no longer lists it in
// the catalog.
func (db *Database) DropTable(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tables[name]; !ok {
		return false
	}
	delete(db.tables, name)
	return true
}

// GetTable returns the named table, or (nil, false) if it does not
// exist.
func (db *Database) GetTable(name string) (*TableHandle, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	h, ok := db.tables[name]
	return h, ok
}

// PoolStats reports hit/miss and occupancy counters for the bufferpool
// shared by every table in the database.
func (db *Database) PoolStats() buffer.Stats {
	return db.pool.Stats()
}

// Open opens (or creates, if root has no catalog.bin yet) a database
// rooted at path, applying opts (DefaultOptions() if nil).
func Open(path string, opts *Options) (*Database, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	pool := buffer.New(o.BufferPoolSize)
	db := &Database{
		root:    path,
		opts:    o,
		pool:    pool,
		tables:  make(map[string]*TableHandle),
		loaders: make(map[string]*persist.FileLoader),
	}
	pool.SetWriteCallback(db.dispatchWrite)

	entries, err := persist.ReadCatalog(path)
	if err == nil {
		for _, e := range entries {
			loader := persist.NewFileLoader(path, e.Name)
			db.registerLoader(e.Name, loader)
			tbl, err := persist.DeserializeTable(path, e.Name, pool, loader)
			if err != nil {
				return nil, fmt.Errorf("lstore: open table %q: %w", e.Name, err)
			}
			tbl.SetMergeThreshold(o.MergeThresholdPages)
			db.tables[e.Name] = &TableHandle{tbl: tbl}
		}
	}

	if o.CheckpointCronSpec != "" {
		sched, err := rowstore.NewCheckpointScheduler(pool, o.CheckpointCronSpec)
		if err != nil {
			return nil, fmt.Errorf("lstore: checkpoint scheduler: %w", err)
		}
		sched.Start()
		db.checkpoint = sched
	}

	return db, nil
}

// Close flushes every dirty page and serializes every table plus the
// database catalog to disk.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.checkpoint != nil {
		db.checkpoint.Stop()
	}

	if err := db.pool.FlushAll(nil); err != nil {
		return fmt.Errorf("lstore: close: flush: %w", err)
	}

	catalog := make([]persist.CatalogEntry, 0, len(db.tables))
	for name, h := range db.tables {
		// Per spec §9: a merge worker must be joined (or its flag
		// polled) before persistence runs, so Close never serializes a
		// table mid-merge.
		h.tbl.AwaitMergeQuiescent()
		if err := persist.SerializeTable(db.root, h.tbl); err != nil {
			return fmt.Errorf("lstore: close: serialize %q: %w", name, err)
		}
		catalog = append(catalog, persist.CatalogEntry{
			Name:       name,
			NumColumns: h.tbl.NumColumns(),
			KeyCol:     h.tbl.KeyCol(),
		})
	}
	if err := persist.WriteCatalog(db.root, catalog); err != nil {
		return fmt.Errorf("lstore: close: catalog: %w", err)
	}
	return nil
}
