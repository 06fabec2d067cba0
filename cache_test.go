package js5

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meklund/js5/internal/testutil"
)

func openFixture(t *testing.T, groups []testutil.GroupSpec, opts ...Option) *Cache {
	t.Helper()
	dir := t.TempDir()
	testutil.BuildCache(t, dir, groups)
	cache, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestOpen_MissingDataFile(t *testing.T) {
	t.Parallel()

	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCache_MissingIndexFile(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("x"))},
	})

	_, err := cache.Index(IndexMusicSamples)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIndex_GroupCount(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("a"))},
		{Index: IndexSynths, Group: 4, Container: testutil.StoredContainer([]byte("b"))},
	})

	ix, err := cache.Index(IndexSynths)
	require.NoError(t, err)
	assert.Equal(t, 5, ix.GroupCount())
}

func TestReadGroup_SingleSector(t *testing.T) {
	t.Parallel()

	container := testutil.StoredContainer([]byte("0123456789"))
	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: container},
	})

	raw, err := cache.ReadGroup(IndexSynths, 0)
	require.NoError(t, err)
	assert.Equal(t, container, raw)
}

func TestReadGroup_MultiSectorChain(t *testing.T) {
	t.Parallel()

	// Spans three sectors (two full 512-byte payloads plus a remainder).
	payload := bytes.Repeat([]byte{0xa5, 0x5a, 0x11}, 400)
	container := testutil.StoredContainer(payload)
	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 7, Container: container},
	})

	raw, err := cache.ReadGroup(IndexSynths, 7)
	require.NoError(t, err)
	require.Equal(t, container, raw)
}

func TestReadGroup_ExtendedSectorHeader(t *testing.T) {
	t.Parallel()

	// Group ids past 16 bits use the wide 10-byte sector header.
	container := testutil.StoredContainer(bytes.Repeat([]byte("ext"), 300))
	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0x10001, Container: container},
	})

	raw, err := cache.ReadGroup(IndexSynths, 0x10001)
	require.NoError(t, err)
	assert.Equal(t, container, raw)
}

func TestReadGroup_OutOfRange(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("a"))},
		{Index: IndexSynths, Group: 1, Container: testutil.StoredContainer([]byte("b"))},
	})
	ix, err := cache.Index(IndexSynths)
	require.NoError(t, err)

	for _, group := range []int{ix.GroupCount(), -1} {
		_, err := ix.ReadGroup(group)
		require.ErrorIs(t, err, ErrOutOfRange, "group %d", group)
	}
}

func TestReadGroup_EmptySlot(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: nil},
		{Index: IndexSynths, Group: 1, Container: testutil.StoredContainer([]byte("b"))},
	})

	_, err := cache.ReadGroup(IndexSynths, 0)
	require.ErrorIs(t, err, ErrEmptyGroup)
}

func TestReadGroup_GroupTooLarge(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer(bytes.Repeat([]byte("x"), 100))},
	}, WithMaxGroupSize(16))

	_, err := cache.ReadGroup(IndexSynths, 0)
	require.ErrorIs(t, err, ErrGroupTooLarge)
}

func TestReadGroup_CorruptSectorHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.BuildCache(t, dir, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 3, Container: testutil.StoredContainer([]byte("payload"))},
	})

	// Flip the group id in the first chain sector's header.
	dataPath := filepath.Join(dir, DataFileName)
	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	data[sectorSize+1] ^= 0xff
	require.NoError(t, os.WriteFile(dataPath, data, 0o644))

	cache, err := Open(dir)
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.ReadGroup(IndexSynths, 3)
	require.ErrorIs(t, err, ErrSectorCorrupt)
}

func TestReadGroup_SectorBeyondDataFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.BuildCache(t, dir, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("payload"))},
	})

	// Truncate the data file so the chain's sector lies past EOF.
	require.NoError(t, os.Truncate(filepath.Join(dir, DataFileName), sectorSize))

	cache, err := Open(dir)
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.ReadGroup(IndexSynths, 0)
	require.ErrorIs(t, err, ErrSectorCorrupt)
}

func TestReadGroup_ChainEndsShort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.BuildCache(t, dir, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer(bytes.Repeat([]byte("x"), 600))},
	})

	// Zero the next-sector field of the first chain sector so the chain
	// terminates with bytes still owed.
	dataPath := filepath.Join(dir, DataFileName)
	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	data[sectorSize+4] = 0
	data[sectorSize+5] = 0
	data[sectorSize+6] = 0
	require.NoError(t, os.WriteFile(dataPath, data, 0o644))

	cache, err := Open(dir)
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.ReadGroup(IndexSynths, 0)
	require.ErrorIs(t, err, ErrSectorCorrupt)
}

func TestCache_IndexHandleReuse(t *testing.T) {
	t.Parallel()

	cache := openFixture(t, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("a"))},
	})

	first, err := cache.Index(IndexSynths)
	require.NoError(t, err)
	second, err := cache.Index(IndexSynths)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.BuildCache(t, dir, []testutil.GroupSpec{
		{Index: IndexSynths, Group: 0, Container: testutil.StoredContainer([]byte("a"))},
	})

	cache, err := Open(dir)
	require.NoError(t, err)
	_, err = cache.Index(IndexSynths)
	require.NoError(t, err)

	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
