package persist

import (
	"fmt"
	"os"

	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/page"
	"github.com/tantalum-db/lstore/internal/rowstore"
)

// FileLoader implements rowstore.Loader against the on-disk page-file
// layout, giving a table's bufferpool frames a cold-load/write-back path
// with no in-memory duplication: every page not already resident in the
// bufferpool is fetched from (and flushed back to) these files on
// demand, and nowhere else.
type FileLoader struct {
	root  string
	table string
}

// NewFileLoader returns a FileLoader rooted at root for table.
func NewFileLoader(root, table string) *FileLoader {
	return &FileLoader{root: root, table: table}
}

// LoadPage fetches key's page from disk, returning a fresh empty page
// if the file does not yet exist (a bundle allocated but never flushed).
func (l *FileLoader) LoadPage(key buffer.Key) (*page.Page, error) {
	path := pageFilePath(l.root, l.table, key.RangeID, key.IsTail, key.PageID, key.Col)
	p, err := readPageFile(path)
	if os.IsNotExist(err) {
		return page.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", rowstore.ErrIO, path, err)
	}
	return p, nil
}

// WritePage flushes key's page to disk.
func (l *FileLoader) WritePage(key buffer.Key, p *page.Page) error {
	path := pageFilePath(l.root, l.table, key.RangeID, key.IsTail, key.PageID, key.Col)
	if err := writePageFile(path, p); err != nil {
		return fmt.Errorf("%w: write %s: %v", rowstore.ErrIO, path, err)
	}
	return nil
}
