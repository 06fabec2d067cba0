package js5

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Cache file names within the cache root directory.
const (
	DataFileName     = "main_file_cache.dat2"
	indexFilePattern = "main_file_cache.idx%d"
)

// Well-known sound indexes.
const (
	IndexSynths       = 4
	IndexMusicSamples = 14
	IndexMusicPatches = 15
)

const (
	sectorSize         = 520
	sectorHeaderSize   = 8
	sectorDataSize     = sectorSize - sectorHeaderSize
	extendedHeaderSize = 10
	extendedDataSize   = sectorSize - extendedHeaderSize

	indexEntrySize = 6

	// extendedGroupThreshold is the first group id stored with the wide
	// sector header; 16-bit header group ids cannot represent it.
	extendedGroupThreshold = 0x10000
)

// DefaultMaxGroupSize is the default limit on a single group's declared
// size (64MB). Sound groups are far smaller; the limit exists so a corrupt
// index entry cannot drive a huge allocation.
const DefaultMaxGroupSize = 64 << 20

// Cache provides random access to the groups of a JS5 cache directory.
//
// Cache owns read-only handles to the data file and any opened index files.
// All reads are positional, so a Cache may be shared by concurrent readers.
// Close releases every handle.
type Cache struct {
	dir          string
	data         *os.File
	dataSize     int64
	maxGroupSize uint32

	mu      sync.Mutex
	indexes map[int]*Index
}

// Open opens the cache rooted at dir.
//
// The data file is opened immediately; index files are opened lazily by
// [Cache.Index]. A missing data file reports [ErrNotFound].
func Open(dir string, opts ...Option) (*Cache, error) {
	path := filepath.Join(dir, DataFileName)
	f, err := os.Open(path) //nolint:gosec // user-provided cache root is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open data file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	c := &Cache{
		dir:          dir,
		data:         f,
		dataSize:     info.Size(),
		maxGroupSize: DefaultMaxGroupSize,
		indexes:      make(map[int]*Index),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Index returns the archive index with the given id, opening its file on
// first use. A missing index file reports [ErrNotFound].
func (c *Cache) Index(id int) (*Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ix, ok := c.indexes[id]; ok {
		return ix, nil
	}

	path := filepath.Join(c.dir, fmt.Sprintf(indexFilePattern, id))
	f, err := os.Open(path) //nolint:gosec // user-provided cache root is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat index file: %w", err)
	}

	ix := &Index{
		cache: c,
		id:    id,
		file:  f,
		count: int(info.Size() / indexEntrySize),
	}
	c.indexes[id] = ix
	return ix, nil
}

// ReadGroup reads the raw container bytes of one group from the given index.
func (c *Cache) ReadGroup(index, group int) ([]byte, error) {
	ix, err := c.Index(index)
	if err != nil {
		return nil, err
	}
	return ix.ReadGroup(group)
}

// Close releases the data-file handle and all opened index handles.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, ix := range c.indexes {
		if err := ix.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close idx%d: %w", ix.id, err))
		}
	}
	c.indexes = make(map[int]*Index)
	if c.data != nil {
		if err := c.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data file: %w", err))
		}
		c.data = nil
	}
	return errors.Join(errs...)
}
