// Package js5 reads JS5-format game caches: the versioned, sector-chained
// asset store used by RuneScape-era clients (main_file_cache.dat2 plus one
// main_file_cache.idx<N> per archive index).
//
// The cache is treated as immutable. A [Cache] owns read-only file handles
// for the duration of a run and performs only positional reads, so a single
// Cache is safe for concurrent readers.
//
// # Layout
//
// Each index file is a flat array of 6-byte records: a 24-bit big-endian
// group size followed by a 24-bit big-endian first-sector number. Group ids
// are positional; record i describes group i. The data file is divided into
// 520-byte sectors, each carrying a small header (group id, chunk number,
// next sector, index id) and up to 512 payload bytes. A group's container
// bytes are reassembled by walking the sector chain.
//
// # Containers
//
// Reassembled bytes form a JS5 container: a compression tag byte, a 32-bit
// big-endian compressed length, an additional 32-bit decompressed length for
// compressed tags, the body, and an optional trailing 16-bit group version.
// [DecodeContainer] validates the header, decompresses the body (bzip2,
// gzip, or lzma), and verifies the decompressed length exactly.
//
// # Quick Start
//
//	cache, err := js5.Open("/path/to/jagexcache/oldschool/LIVE")
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	raw, err := cache.ReadGroup(js5.IndexSynths, 187)
//	if err != nil {
//	    return err
//	}
//	c, err := js5.DecodeContainer(raw)
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("0187.synth", c.Data, 0o644)
//
// For bulk extraction with selection, output naming, and skip-and-report
// error policy, use the [github.com/meklund/js5/dump] subpackage.
package js5
