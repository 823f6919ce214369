package rdb_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rdb "github.com/ardb/snapshot"
	"github.com/ardb/snapshot/internal/memengine"
)

func TestSaveNative_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ardb")

	src := memengine.New()
	populateSample(t, src)
	want := dumpEngine(t, src)

	require.NoError(t, rdb.SaveNative(path, src, nil))

	dst := memengine.New()
	require.NoError(t, rdb.LoadNative(path, dst, nil, nil))
	got := dumpEngine(t, dst)

	assertSameContents(t, want, got)
}

func TestSaveNative_EmptyEngineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.ardb")

	src := memengine.New()
	require.NoError(t, rdb.SaveNative(path, src, nil))

	dst := memengine.New()
	require.NoError(t, rdb.LoadNative(path, dst, nil, nil))
	assert.Empty(t, dumpEngine(t, dst))
}

// TestSaveNative_RedundantValuesUseSnappyChunk exercises the flush
// policy's "compression actually helps" branch: a buffer of many
// identical values compresses well under Snappy, so the written file
// should be smaller than the raw records it encodes.
func TestSaveNative_RedundantValuesUseSnappyChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redundant.ardb")

	src := memengine.New()
	value := "samevalue-padding-padding-padding-padding-padding"
	rawLen := 0
	const n = 5000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%05d-padding-padding", i)
		require.NoError(t, src.SetString(0, key, value))
		rawLen += len(key) + len(value)
	}

	require.NoError(t, rdb.SaveNative(path, src, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, int(info.Size()), rawLen, "redundant values should compress smaller than the raw records")

	dst := memengine.New()
	require.NoError(t, rdb.LoadNative(path, dst, nil, nil))
	got := dumpEngine(t, dst)
	assert.Len(t, got, n)
}

// TestSaveNative_RandomValuesUseRawChunk exercises the flush policy's
// other branch: values with no redundancy don't compress well enough
// to beat the raw+4 threshold, so the writer falls back to a raw
// chunk. This is verified indirectly: the round trip must still
// succeed either way, since both chunk kinds share the same loader
// path.
func TestSaveNative_RandomValuesUseRawChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "random.ardb")

	src := memengine.New()
	seed := uint64(0x9e3779b97f4a7c15)
	nextByte := func() byte {
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		return byte(seed)
	}
	for i := 0; i < 64; i++ {
		buf := make([]byte, 1024)
		for j := range buf {
			buf[j] = nextByte()
		}
		require.NoError(t, src.SetString(0, string(rune('a'+i)), string(buf)))
	}
	want := dumpEngine(t, src)

	require.NoError(t, rdb.SaveNative(path, src, nil))

	dst := memengine.New()
	require.NoError(t, rdb.LoadNative(path, dst, nil, nil))
	got := dumpEngine(t, dst)
	assertSameContents(t, want, got)
}

// TestLoadNative_CorruptCRCIsFatal flips a byte inside the file's body
// so the trailing CRC-64 no longer matches, and checks LoadNative
// rejects it instead of silently loading corrupted data.
func TestLoadNative_CorruptCRCIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.ardb")

	src := memengine.New()
	require.NoError(t, src.SetString(0, "k", "v"))
	require.NoError(t, rdb.SaveNative(path, src, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 12)
	raw[10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	dst := memengine.New()
	err = rdb.LoadNative(path, dst, nil, nil)
	assert.Error(t, err)
}

// TestLoadNative_AcceptDBFilters confirms the replication-style
// database filter drops records for databases the predicate rejects
// while keeping the rest.
func TestLoadNative_AcceptDBFilters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filtered.ardb")

	src := memengine.New()
	require.NoError(t, src.SetString(0, "keep", "1"))
	require.NoError(t, src.SetString(1, "drop", "2"))
	require.NoError(t, rdb.SaveNative(path, src, nil))

	dst := memengine.New()
	accept := func(db uint32) bool { return db == 0 }
	require.NoError(t, rdb.LoadNative(path, dst, accept, nil))

	got := dumpEngine(t, dst)
	_, hasKeep := got[dbKey{0, "keep"}]
	_, hasDrop := got[dbKey{1, "drop"}]
	assert.True(t, hasKeep)
	assert.False(t, hasDrop)
}

// TestSaveNative_CooperativeCancel mirrors
// TestSaveLegacy_CooperativeCancel for the native dialect's tick
// granularity (every 256 rows).
func TestSaveNative_CooperativeCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cancelled.ardb")

	src := memengine.New()
	for i := 0; i < 2000; i++ {
		require.NoError(t, src.ListInsert(0, "biglist", "element"))
	}

	calls := 0
	tick := func() error {
		calls++
		if calls >= 2 {
			return assert.AnError
		}
		return nil
	}

	err := rdb.SaveNative(path, src, tick)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoadNative_WrongMagicRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notardb.ardb")
	require.NoError(t, os.WriteFile(path, []byte("REDIS0011"), 0o644))

	dst := memengine.New()
	err := rdb.LoadNative(path, dst, nil, nil)
	assert.Error(t, err)
}

// TestVerifyNativeFile_RoundTripAccepted confirms VerifyNativeFile
// accepts a file SaveNative itself produced, across both the raw and
// Snappy chunk paths.
func TestVerifyNativeFile_RoundTripAccepted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verify-ok.ardb")

	src := memengine.New()
	populateSample(t, src)
	require.NoError(t, rdb.SaveNative(path, src, nil))

	require.NoError(t, rdb.VerifyNativeFile(path, rdb.VerifyFileOptions{}))
}

// TestVerifyNativeFile_BadCRC confirms VerifyNativeFile rejects a file
// whose body no longer matches its CRC-64 trailer.
func TestVerifyNativeFile_BadCRC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verify-bad-crc.ardb")

	src := memengine.New()
	require.NoError(t, src.SetString(0, "k", "v"))
	require.NoError(t, rdb.SaveNative(path, src, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 12)
	raw[10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	err = rdb.VerifyNativeFile(path, rdb.VerifyFileOptions{})
	assert.Error(t, err)
}

// TestVerifyNativeFile_MaxKeySize confirms VerifyNativeFile enforces
// MaxKeySize against the (raw_key, raw_value) records inside a chunk.
func TestVerifyNativeFile_MaxKeySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verify-maxkey.ardb")

	src := memengine.New()
	require.NoError(t, src.SetString(0, "a-fairly-long-key-name", "v"))
	require.NoError(t, rdb.SaveNative(path, src, nil))

	err := rdb.VerifyNativeFile(path, rdb.VerifyFileOptions{MaxKeySize: 4})
	assert.ErrorContains(t, err, "max key size")
}

// TestVerifyNativeFile_WrongMagicRejected mirrors
// TestLoadNative_WrongMagicRejected for VerifyNativeFile.
func TestVerifyNativeFile_WrongMagicRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verify-notardb.ardb")
	require.NoError(t, os.WriteFile(path, []byte("REDIS0011"), 0o644))

	err := rdb.VerifyNativeFile(path, rdb.VerifyFileOptions{})
	assert.Error(t, err)
}
