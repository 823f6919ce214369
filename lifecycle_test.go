package rdb_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rdb "github.com/ardb/snapshot"
	"github.com/ardb/snapshot/internal/memengine"
)

func TestLifecycle_SaveLoadRoundTrip_Legacy(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	populateSample(t, engine)
	want := dumpEngine(t, engine)

	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, engine, nil, nil)
	require.NoError(t, lc.Save("dump.rdb", nil))

	dst := memengine.New()
	dstLC := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, dst, nil, nil)
	require.NoError(t, dstLC.Load("dump.rdb", true, nil, nil))

	assertSameContents(t, want, dumpEngine(t, dst))
}

func TestLifecycle_SaveLoadRoundTrip_Native(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	populateSample(t, engine)
	want := dumpEngine(t, engine)

	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, Dialect: rdb.DialectNative}, engine, nil, nil)
	require.NoError(t, lc.Save("dump.ardb", nil))

	dst := memengine.New()
	dstLC := rdb.NewLifecycle(rdb.Config{Dir: dir, Dialect: rdb.DialectNative}, dst, nil, nil)
	require.NoError(t, dstLC.Load("dump.ardb", false, nil, nil))

	assertSameContents(t, want, dumpEngine(t, dst))
}

// blockingEngine wraps a memengine.Engine so its cursor only advances
// once release is closed, letting a test hold a save open long enough
// to observe Lifecycle's mutual-exclusion guard.
type blockingEngine struct {
	*memengine.Engine
	release <-chan struct{}
}

func (b *blockingEngine) IterFromKeyMeta() (rdb.Cursor, error) {
	cur, err := b.Engine.IterFromKeyMeta()
	if err != nil {
		return nil, err
	}
	return &blockingCursor{Cursor: cur, release: b.release}, nil
}

type blockingCursor struct {
	rdb.Cursor
	release <-chan struct{}
	blocked bool
}

func (c *blockingCursor) Valid() bool {
	if !c.blocked {
		c.blocked = true
		<-c.release
	}
	return c.Cursor.Valid()
}

func TestLifecycle_Save_RejectsConcurrentSave(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	require.NoError(t, engine.SetString(0, "k", "v"))

	release := make(chan struct{})
	blocked := &blockingEngine{Engine: engine, release: release}
	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, blocked, nil, nil)

	saveErr := make(chan error, 1)
	go func() { saveErr <- lc.Save("dump.rdb", nil) }()

	// give the first save time to reach blockingCursor.Valid and park there.
	time.Sleep(50 * time.Millisecond)

	err := lc.Save("concurrent.rdb", nil)
	assert.ErrorContains(t, err, "already in progress")

	close(release)
	require.NoError(t, <-saveErr)
}

func TestLifecycle_BGSave_SignalsCompletion(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	require.NoError(t, engine.SetString(0, "k", "v"))

	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, engine, nil, nil)

	done := make(chan error, 1)
	require.NoError(t, lc.BGSave("dump.rdb", done))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("BGSave never signaled completion")
	}

	_, statErr := os.Stat(filepath.Join(dir, "dump.rdb"))
	require.NoError(t, statErr)
}

func TestLifecycle_BGSave_RejectsConcurrentSave(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	require.NoError(t, engine.SetString(0, "k", "v"))

	release := make(chan struct{})
	blocked := &blockingEngine{Engine: engine, release: release}
	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, blocked, nil, nil)

	done := make(chan error, 1)
	require.NoError(t, lc.BGSave("dump.rdb", done))
	time.Sleep(50 * time.Millisecond)

	err := lc.Save("other.rdb", nil)
	assert.ErrorContains(t, err, "already in progress")

	close(release)
	require.NoError(t, <-done)
}

func TestLifecycle_RenameRemoveFlush(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	require.NoError(t, engine.SetString(0, "k", "v"))

	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, engine, nil, nil)
	require.NoError(t, lc.Save("temp.rdb", nil))

	require.NoError(t, lc.Rename("temp.rdb", "dump.rdb"))
	require.NoError(t, lc.Remove("dump.rdb"))
	require.NoError(t, lc.Remove("dump.rdb"), "removing an already-absent file is not an error")

	require.NoError(t, lc.Save("a.rdb", nil))
	require.NoError(t, lc.Save("b.rdb", nil))
	require.NoError(t, lc.Flush())

	dst := memengine.New()
	dstLC := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, dst, nil, nil)
	err := dstLC.Load("a.rdb", false, nil, nil)
	assert.Error(t, err, "Flush should have removed every snapshot file")
}

// delayingEngine pads the start of iteration with a fixed sleep, so a
// Save through Lifecycle reliably runs long enough for
// cooperativeTick's 100ms gate (see lifecycle.go) to have elapsed by
// the first tick, without depending on how fast the in-memory engine
// itself happens to iterate.
type delayingEngine struct {
	*memengine.Engine
	delay time.Duration
}

func (d *delayingEngine) IterFromKeyMeta() (rdb.Cursor, error) {
	time.Sleep(d.delay)
	return d.Engine.IterFromKeyMeta()
}

func TestLifecycle_Save_CooperativeCancel(t *testing.T) {
	dir := t.TempDir()
	engine := memengine.New()
	for i := 0; i < 500; i++ {
		require.NoError(t, engine.ListInsert(0, "biglist", "element"))
	}
	delayed := &delayingEngine{Engine: engine, delay: 150 * time.Millisecond}

	lc := rdb.NewLifecycle(rdb.Config{Dir: dir, RedisVersion: "7.0.0", Dialect: rdb.DialectLegacy}, delayed, nil, nil)

	calls := 0
	callback := func() error {
		calls++
		return assert.AnError
	}

	err := lc.Save("dump.rdb", callback)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)

	// the aborted save leaves its partial file on disk for the caller
	// to remove or rename away; there is no forced abort.
	_, statErr := os.Stat(filepath.Join(dir, "dump.rdb"))
	assert.NoError(t, statErr)

	// a second save must succeed: the aborted save released the
	// mutual-exclusion guard regardless of what became of its file.
	require.NoError(t, lc.Save("dump2.rdb", nil))
}
