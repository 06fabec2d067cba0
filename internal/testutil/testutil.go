// Package testutil builds synthetic JS5 cache fixtures for tests.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

const (
	sectorSize    = 520
	headerSize    = 8
	dataSize      = sectorSize - headerSize
	extHeaderSize = 10
	extDataSize   = sectorSize - extHeaderSize

	extendedGroupThreshold = 0x10000
)

// Payload20 is a 20-byte reference payload with a matching pre-compressed
// bzip2 body below.
var Payload20 = []byte("synth fixture 20byte")

// Bzip2Body20 is Payload20 compressed with bzip2, stored cache-style with
// the four-byte "BZh1" magic stripped.
var Bzip2Body20 = []byte{
	0x31, 0x41, 0x59, 0x26, 0x53, 0x59, 0xd0, 0xa1, 0x81, 0x53, 0x00, 0x00,
	0x06, 0x19, 0x80, 0x40, 0x00, 0x50, 0x00, 0x13, 0x61, 0x1e, 0x60, 0x20,
	0x00, 0x22, 0x9a, 0x6d, 0x11, 0x83, 0x50, 0xa6, 0x00, 0x00, 0x38, 0x51,
	0x14, 0xa9, 0xe3, 0x91, 0xcb, 0x2f, 0x84, 0xfc, 0x5d, 0xc9, 0x14, 0xe1,
	0x42, 0x43, 0x42, 0x86, 0x05, 0x4c,
}

// GroupSpec describes one group stored in a fixture cache.
type GroupSpec struct {
	Index int
	Group int

	// Container holds the raw container bytes. nil leaves the index slot
	// empty (a zero size, zero sector record).
	Container []byte
}

// BuildCache writes main_file_cache.dat2 and the required idx files under
// dir. Groups are laid out in order, each chain using consecutive sectors.
func BuildCache(t *testing.T, dir string, groups []GroupSpec) {
	t.Helper()

	type entry struct {
		size, sector uint32
	}
	entries := make(map[int]map[int]entry)
	maxGroup := make(map[int]int)

	// Sector 0 is reserved; chains start at sector 1.
	data := make([]byte, sectorSize)

	for _, g := range groups {
		if entries[g.Index] == nil {
			entries[g.Index] = make(map[int]entry)
		}
		if g.Group > maxGroup[g.Index] {
			maxGroup[g.Index] = g.Group
		}
		if g.Container == nil {
			entries[g.Index][g.Group] = entry{}
			continue
		}
		first := uint32(len(data) / sectorSize)
		data = appendChain(data, g.Index, g.Group, g.Container)
		entries[g.Index][g.Group] = entry{size: uint32(len(g.Container)), sector: first}
	}

	writeFile(t, filepath.Join(dir, "main_file_cache.dat2"), data)

	for id, recs := range entries {
		buf := make([]byte, (maxGroup[id]+1)*6)
		for g, e := range recs {
			put24(buf[g*6:], e.size)
			put24(buf[g*6+3:], e.sector)
		}
		writeFile(t, filepath.Join(dir, "main_file_cache.idx"+strconv.Itoa(id)), buf)
	}
}

// appendChain appends the sector chain for one group's container bytes.
func appendChain(data []byte, index, group int, container []byte) []byte {
	extended := group >= extendedGroupThreshold
	hs, ds := headerSize, dataSize
	if extended {
		hs, ds = extHeaderSize, extDataSize
	}

	remaining := container
	for chunk := 0; len(remaining) > 0; chunk++ {
		sector := make([]byte, sectorSize)
		cur := uint32(len(data) / sectorSize)
		take := min(len(remaining), ds)
		var next uint32
		if take < len(remaining) {
			next = cur + 1
		}
		if extended {
			binary.BigEndian.PutUint32(sector[0:4], uint32(group))
			binary.BigEndian.PutUint16(sector[4:6], uint16(chunk))
			put24(sector[6:9], next)
			sector[9] = byte(index)
		} else {
			binary.BigEndian.PutUint16(sector[0:2], uint16(group))
			binary.BigEndian.PutUint16(sector[2:4], uint16(chunk))
			put24(sector[4:7], next)
			sector[7] = byte(index)
		}
		copy(sector[hs:], remaining[:take])
		data = append(data, sector...)
		remaining = remaining[take:]
	}
	return data
}

// StoredContainer frames payload as an uncompressed container (tag 0).
func StoredContainer(payload []byte) []byte {
	out := make([]byte, 5, 5+len(payload))
	binary.BigEndian.PutUint32(out[1:5], uint32(len(payload)))
	return append(out, payload...)
}

// CompressedContainer frames an already-compressed body with the given tag
// and declared decompressed length.
func CompressedContainer(tag byte, body []byte, decompressedLen int) []byte {
	out := make([]byte, 9, 9+len(body))
	out[0] = tag
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)))
	binary.BigEndian.PutUint32(out[5:9], uint32(decompressedLen))
	return append(out, body...)
}

// WithVersion appends a 2-byte group version trailer to container bytes.
func WithVersion(container []byte, version uint16) []byte {
	out := make([]byte, 0, len(container)+2)
	out = append(out, container...)
	return binary.BigEndian.AppendUint16(out, version)
}

func put24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
