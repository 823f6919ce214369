package rdb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Dialect selects which on-disk format Lifecycle reads and writes.
type Dialect int

const (
	DialectLegacy Dialect = iota
	DialectNative
)

// Tasker launches background work. BGSave uses it to run a save off
// the caller's goroutine; production callers typically hand in
// whatever worker pool already exists (see Scarage1-FlashDB's
// cmd/flashdb for the shape of such a runtime), tests can pass a
// Tasker that runs fn synchronously.
type Tasker interface {
	Go(fn func())
}

// goTasker runs fn on a new goroutine. It's the default Tasker, used
// whenever Lifecycle is built without one; no example repo in the
// retrieval pack happened to show a concrete worker-pool abstraction
// for this exact "launch a detached background job" need (see
// DESIGN.md), so this is a direct, idiomatic Go rendition of it.
type goTasker struct{}

func (goTasker) Go(fn func()) { go fn() }

// Config is the lifecycle façade's configuration, following
// Scarage1-FlashDB's internal/config plain struct-of-fields style.
type Config struct {
	// Dir is where snapshot files live.
	Dir string
	// RedisVersion is reported in the legacy dialect's "redis-ver" aux field.
	RedisVersion string
	// Dialect picks the on-disk format Save/Load use.
	Dialect Dialect
}

// Lifecycle is the save/load façade described in spec §4.7: it owns
// mutual exclusion between concurrent saves, background save
// scheduling, and the rename-into-place/remove/flush housekeeping
// operations around a StorageEngine's snapshot files.
type Lifecycle struct {
	cfg    Config
	engine StorageEngine
	tasker Tasker
	log    *slog.Logger

	saving atomic.Bool
}

// NewLifecycle builds a façade around engine. log may be nil, in which
// case slog.Default() is used; tasker may be nil, in which case
// BGSave launches its goroutine directly.
func NewLifecycle(cfg Config, engine StorageEngine, tasker Tasker, log *slog.Logger) *Lifecycle {
	if tasker == nil {
		tasker = goTasker{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{cfg: cfg, engine: engine, tasker: tasker, log: log}
}

func (l *Lifecycle) path(name string) string {
	return filepath.Join(l.cfg.Dir, name)
}

// Save writes a complete snapshot under name, blocking the caller. It
// fails immediately if a save (foreground or background) is already
// in flight, mirroring the single-writer invariant ardb's own dump
// file classes assume. callback, if non-nil, is the cooperative
// cancellation hook of spec §4.1/§5: it is invoked at most once every
// 100ms while the save runs, and a non-zero (non-nil) error from it
// aborts the save and is returned as Save's own error.
func (l *Lifecycle) Save(name string, callback func() error) error {
	if !l.saving.CompareAndSwap(false, true) {
		return fmt.Errorf("rdb: a save is already in progress")
	}
	defer l.saving.Store(false)
	return l.save(name, callback)
}

func (l *Lifecycle) save(name string, callback func() error) error {
	path := l.path(name)
	l.log.Info("snapshot save starting", "path", path, "dialect", l.cfg.Dialect)

	tick := cooperativeTick(callback)

	var err error
	switch l.cfg.Dialect {
	case DialectNative:
		err = SaveNative(path, l.engine, tick)
	default:
		err = SaveLegacy(path, l.engine, l.cfg.RedisVersion, tick)
	}

	if err != nil {
		l.log.Error("snapshot save failed", "path", path, "error", err)
		return fmt.Errorf("rdb: save %s: %w", path, err)
	}
	l.log.Info("snapshot save complete", "path", path)
	return nil
}

// cooperativeTick wraps callback with the 100ms gate described in spec
// §4.1: the wrapped function is cheap to call on every row (it does
// nothing until 100ms have elapsed since its last real invocation),
// so save/load loops can call it every ~256 rows without it becoming
// the dominant cost itself. A nil callback yields a tick that never
// does anything, matching "no callback registered" in the spec.
func cooperativeTick(callback func() error) func() error {
	if callback == nil {
		return nil
	}
	last := time.Now()
	return func() error {
		if now := time.Now(); now.Sub(last) >= 100*time.Millisecond {
			last = now
			return callback()
		}
		return nil
	}
}

// BGSave launches Save on a background goroutine via the configured
// Tasker and returns immediately, with no cooperative-cancel callback
// (spec §4.7: "calls save(path, None)"). done, if non-nil, receives
// the save result once it completes.
func (l *Lifecycle) BGSave(name string, done chan<- error) error {
	if !l.saving.CompareAndSwap(false, true) {
		return fmt.Errorf("rdb: a save is already in progress")
	}

	l.tasker.Go(func() {
		defer l.saving.Store(false)
		err := l.save(name, nil)
		if done != nil {
			done <- err
		}
	})
	return nil
}

// Load restores name into the engine. allowOtherDBs only applies to
// the legacy dialect, matching ReadFile's own multi-database
// restriction; acceptDB only applies to the native dialect's
// replication-filtering mode (nil accepts every database). callback is
// the same cooperative cancellation hook as Save's: the native
// dialect's load loop consults it once per chunk, the legacy dialect's
// opcode loop (via engineHandler's Ticking implementation) once per
// top-level opcode.
//
// Partial-load atomicity (open question, preserved as-is): Load never
// deletes keys already present in the engine but absent from the
// snapshot. A clean restore needs an empty engine; Flush does not
// provide one, since it removes snapshot files, not engine keys.
func (l *Lifecycle) Load(name string, allowOtherDBs bool, acceptDB func(uint32) bool, callback func() error) error {
	path := l.path(name)
	l.log.Info("snapshot load starting", "path", path, "dialect", l.cfg.Dialect)

	var err error
	switch l.cfg.Dialect {
	case DialectNative:
		err = LoadNative(path, l.engine, acceptDB, cooperativeTick(callback))
	default:
		err = LoadLegacy(path, l.engine, allowOtherDBs, l.log, cooperativeTick(callback))
	}

	if err != nil {
		l.log.Error("snapshot load failed", "path", path, "error", err)
		return fmt.Errorf("rdb: load %s: %w", path, err)
	}
	l.log.Info("snapshot load complete", "path", path)
	return nil
}

// Rename moves the snapshot file from oldName to newName, both
// relative to Config.Dir.
func (l *Lifecycle) Rename(oldName, newName string) error {
	return os.Rename(l.path(oldName), l.path(newName))
}

// Remove deletes the named snapshot file. It is not an error for the
// file to already be absent.
func (l *Lifecycle) Remove(name string) error {
	err := os.Remove(l.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Flush removes every snapshot file under Config.Dir, leaving the
// directory itself in place.
func (l *Lifecycle) Flush() error {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(l.cfg.Dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
