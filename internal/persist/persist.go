// Package persist implements the on-disk binary format for a database:
// per-table metadata, page directory, page-range topology, and per-page
// payload files, plus a database-root catalog listing every table.
//
// All integer fields are little-endian, via encoding/binary, exactly as
// spec.md §4.11. The layout idiom (fixed binary records, one file per
// logical unit) is grounded on the teacher's pager/page.go
// (MarshalHeader/UnmarshalHeader) and pager/catalog.go (catalog-entry
// encoding), though the file format itself does not reuse either —
// the teacher's pager is B+Tree-indexed and CRC-checked; this format has
// neither, per spec's data model and its no-WAL non-goal.
package persist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tantalum-db/lstore/internal/page"
)

// ErrCorrupt is returned when a file's contents do not match the
// expected binary layout.
var ErrCorrupt = errors.New("persist: corrupt file")

func writeInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// tableDir returns <root>/<table>.
func tableDir(root, table string) string {
	return filepath.Join(root, table)
}

// rangeDir returns <root>/<table>/ranges/range_<i>.
func rangeDir(root, table string, rangeID int) string {
	return filepath.Join(tableDir(root, table), "ranges", fmt.Sprintf("range_%d", rangeID))
}

// pageFilePath returns the path for one bundle column's page file.
func pageFilePath(root, table string, rangeID int, isTail bool, bundleID, col int) string {
	kind := "base"
	if isTail {
		kind = "tail"
	}
	return filepath.Join(rangeDir(root, table, rangeID), fmt.Sprintf("%s_%d_col_%d.bin", kind, bundleID, col))
}

func writePageFile(path string, p *page.Page) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeInt32(f, int32(p.NumRecords())); err != nil {
		return err
	}
	raw := p.ToBytes()
	if _, err := f.Write(raw[:]); err != nil {
		return err
	}
	return nil
}

func readPageFile(path string) (*page.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numRecords, err := readInt32(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw := make([]byte, page.Size)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return page.FromBytes(raw, int(numRecords))
}
