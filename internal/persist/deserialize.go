package persist

import (
	"fmt"
	"os"

	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/rowstore"
)

// DeserializeTable is the dual of SerializeTable: it reads meta.bin,
// page_directory.bin, and every range's range_meta.bin to reconstruct a
// Table's topology without replaying inserts/updates, then rebuilds the
// primary index by scanning the base entries of the page directory, per
// spec §4.11. Each bundle's RID-column page file is read here directly
// for its record count; every other page is fetched by FileLoader as the
// restored table's bufferpool frames miss.
func DeserializeTable(root, name string, pool *buffer.BufferPool, loader *FileLoader) (*rowstore.Table, error) {
	dir := tableDir(root, name)

	metaFile, err := os.Open(dir + "/meta.bin")
	if err != nil {
		return nil, fmt.Errorf("persist: open meta.bin: %w", err)
	}
	var meta rowstore.Meta
	err = func() error {
		defer metaFile.Close()
		nextRID, err := readInt64(metaFile)
		if err != nil {
			return err
		}
		nextTailRID, err := readInt64(metaFile)
		if err != nil {
			return err
		}
		numColumns, err := readInt32(metaFile)
		if err != nil {
			return err
		}
		keyCol, err := readInt32(metaFile)
		if err != nil {
			return err
		}
		numRanges, err := readInt32(metaFile)
		if err != nil {
			return err
		}
		meta = rowstore.Meta{
			NextRID:     nextRID,
			NextTailRID: nextTailRID,
			NumColumns:  int(numColumns),
			KeyCol:      int(keyCol),
			NumRanges:   int(numRanges),
		}
		return nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%w: meta.bin: %v", ErrCorrupt, err)
	}

	dirFile, err := os.Open(dir + "/page_directory.bin")
	if err != nil {
		return nil, fmt.Errorf("persist: open page_directory.bin: %w", err)
	}
	var entries []rowstore.DirEntry
	err = func() error {
		defer dirFile.Close()
		count, err := readInt64(dirFile)
		if err != nil {
			return err
		}
		entries = make([]rowstore.DirEntry, 0, count)
		for i := int64(0); i < count; i++ {
			rid, err := readInt64(dirFile)
			if err != nil {
				return err
			}
			rangeID, err := readInt32(dirFile)
			if err != nil {
				return err
			}
			isTail, err := readInt32(dirFile)
			if err != nil {
				return err
			}
			pageID, err := readInt32(dirFile)
			if err != nil {
				return err
			}
			slotOffset, err := readInt32(dirFile)
			if err != nil {
				return err
			}
			entries = append(entries, rowstore.DirEntry{
				RID: rid, RangeID: int(rangeID), IsTail: isTail != 0,
				PageID: int(pageID), SlotOffset: int(slotOffset),
			})
		}
		return nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%w: page_directory.bin: %v", ErrCorrupt, err)
	}

	ranges := make([]rowstore.RangeInfo, meta.NumRanges)
	for i := 0; i < meta.NumRanges; i++ {
		rmFile, err := os.Open(rangeDir(root, name, i) + "/range_meta.bin")
		if err != nil {
			return nil, fmt.Errorf("persist: open range_meta.bin (range %d): %w", i, err)
		}
		var numBase, numTail int32
		err = func() error {
			defer rmFile.Close()
			var err error
			numBase, err = readInt32(rmFile)
			if err != nil {
				return err
			}
			numTail, err = readInt32(rmFile)
			return err
		}()
		if err != nil {
			return nil, fmt.Errorf("%w: range_meta.bin (range %d): %v", ErrCorrupt, i, err)
		}

		baseCounts := make([]int, numBase)
		for b := 0; b < int(numBase); b++ {
			p, err := readPageFile(pageFilePath(root, name, i, false, b, rowstore.RIDCol))
			if err != nil {
				return nil, fmt.Errorf("persist: read base bundle record count (range %d bundle %d): %w", i, b, err)
			}
			baseCounts[b] = p.NumRecords()
		}
		tailCounts := make([]int, numTail)
		for b := 0; b < int(numTail); b++ {
			p, err := readPageFile(pageFilePath(root, name, i, true, b, rowstore.RIDCol))
			if err != nil {
				return nil, fmt.Errorf("persist: read tail bundle record count (range %d bundle %d): %w", i, b, err)
			}
			tailCounts[b] = p.NumRecords()
		}
		ranges[i] = rowstore.RangeInfo{
			NumBase: int(numBase), NumTail: int(numTail),
			BaseRecordCounts: baseCounts, TailRecordCounts: tailCounts,
		}
	}

	tbl := rowstore.Restore(name, meta, ranges, entries, pool, loader)
	if err := tbl.RebuildPrimaryIndex(rowstore.NewIndex(meta.KeyCol)); err != nil {
		return nil, fmt.Errorf("persist: rebuild index: %w", err)
	}
	return tbl, nil
}
