package js5

import (
	"encoding/binary"
	"fmt"
)

// Index provides positional access to one archive index of a cache.
//
// The index file is a flat array of 6-byte records, one per group: a 24-bit
// big-endian size followed by the 24-bit number of the group's first data
// sector. Lookup is O(1) by record position.
type Index struct {
	cache *Cache
	id    int
	file  readAtFile
	count int
}

type readAtFile interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// ID returns the index id (the N of main_file_cache.idxN).
func (ix *Index) ID() int {
	return ix.id
}

// GroupCount returns the number of index records. Valid group ids are
// [0, GroupCount).
func (ix *Index) GroupCount() int {
	return ix.count
}

// entry reads the index record for group.
func (ix *Index) entry(group int) (size, sector uint32, err error) {
	if group < 0 || group >= ix.count {
		return 0, 0, fmt.Errorf("idx%d group %d: index holds %d groups: %w", ix.id, group, ix.count, ErrOutOfRange)
	}
	var rec [indexEntrySize]byte
	if _, err := ix.file.ReadAt(rec[:], int64(group)*indexEntrySize); err != nil {
		return 0, 0, fmt.Errorf("idx%d group %d: read index entry: %w", ix.id, group, err)
	}
	return uint24(rec[0:3]), uint24(rec[3:6]), nil
}

// ReadGroup returns the raw container bytes for group, reassembled from the
// data file's sector chain.
//
// ReadGroup reports [ErrOutOfRange] for ids outside [0, GroupCount),
// [ErrEmptyGroup] for slots with no stored payload, and [ErrSectorCorrupt]
// when the chain's sector headers do not match the group being read.
func (ix *Index) ReadGroup(group int) ([]byte, error) {
	size, sector, err := ix.entry(group)
	if err != nil {
		return nil, err
	}
	if size == 0 || sector == 0 {
		return nil, fmt.Errorf("idx%d group %d: %w", ix.id, group, ErrEmptyGroup)
	}
	if ix.cache.maxGroupSize != 0 && size > ix.cache.maxGroupSize {
		return nil, fmt.Errorf("idx%d group %d: %d bytes: %w", ix.id, group, size, ErrGroupTooLarge)
	}
	return ix.readChain(group, size, sector)
}

// readChain walks the sector chain starting at sector, validating each
// sector header against the expected group, chunk sequence, and index id.
func (ix *Index) readChain(group int, size, sector uint32) ([]byte, error) {
	headerSize, dataSize := sectorHeaderSize, sectorDataSize
	extended := group >= extendedGroupThreshold
	if extended {
		headerSize, dataSize = extendedHeaderSize, extendedDataSize
	}

	buf := make([]byte, 0, size)
	remaining := int(size)
	var raw [sectorSize]byte

	for chunk := 0; remaining > 0; chunk++ {
		if sector == 0 {
			return nil, fmt.Errorf("idx%d group %d: sector chain ended %d bytes short: %w", ix.id, group, remaining, ErrSectorCorrupt)
		}
		off := int64(sector) * sectorSize
		if off+sectorSize > ix.cache.dataSize {
			return nil, fmt.Errorf("idx%d group %d: sector %d beyond data file: %w", ix.id, group, sector, ErrSectorCorrupt)
		}
		if _, err := ix.cache.data.ReadAt(raw[:], off); err != nil {
			return nil, fmt.Errorf("idx%d group %d: read sector %d: %w", ix.id, group, sector, err)
		}

		var gotGroup uint32
		var hdr []byte
		if extended {
			gotGroup = binary.BigEndian.Uint32(raw[0:4])
			hdr = raw[4:headerSize]
		} else {
			gotGroup = uint32(binary.BigEndian.Uint16(raw[0:2]))
			hdr = raw[2:headerSize]
		}
		gotChunk := int(binary.BigEndian.Uint16(hdr[0:2]))
		next := uint24(hdr[2:5])
		gotIndex := int(hdr[5])
		if gotGroup != uint32(group) || gotChunk != chunk || gotIndex != ix.id {
			return nil, fmt.Errorf("idx%d group %d: sector %d claims group %d chunk %d idx%d: %w",
				ix.id, group, sector, gotGroup, gotChunk, gotIndex, ErrSectorCorrupt)
		}

		take := remaining
		if take > dataSize {
			take = dataSize
		}
		buf = append(buf, raw[headerSize:headerSize+take]...)
		remaining -= take
		sector = next
	}
	return buf, nil
}

// uint24 reads a 3-byte big-endian integer.
func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
