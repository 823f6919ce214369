package rdb

import (
	"log/slog"
	"time"
)

// LoadLegacy reads a legacy-dialect snapshot from path into engine,
// driving file_reader.go's opcode loop through an engineHandler
// instead of an arbitrary FileHandler. A snapshot that selects any
// database other than 0 is rejected with an error unless allowOtherDBs
// is set, in which case every database is restored into the matching
// database of the engine. tick, if non-nil,
// is invoked once per top-level opcode ReadFile decodes (engineHandler
// implements Ticking), the same cooperative-cancellation hook
// SaveLegacy's tick is; pass nil to disable it.
//
// Partial-load atomicity (open question, preserved as-is): keys
// present in engine but absent from the snapshot are left untouched.
// Callers that want a clean restore must flush the engine first.
func LoadLegacy(path string, engine StorageEngine, allowOtherDBs bool, log *slog.Logger, tick func() error) error {
	if log == nil {
		log = slog.Default()
	}
	h := &engineHandler{engine: engine, allowOtherDBs: allowOtherDBs, log: log, tick: tick}
	return ReadFile(path, h)
}

// engineHandler adapts the legacy value reader's callback-driven
// FileHandler interface onto a StorageEngine. It writes every row to
// the database most recently announced through SelectDB (database 0
// until the first announcement), so multi-database snapshots restore
// into the matching databases when allowOtherDBs is set.
type engineHandler struct {
	engine        StorageEngine
	allowOtherDBs bool
	log           *slog.Logger
	tick          func() error

	db uint32
}

// Tick implements Ticking: ReadFile calls it once per top-level
// opcode. A nil tick (cooperative cancellation not requested) is a
// no-op.
func (h *engineHandler) Tick() error {
	if h.tick == nil {
		return nil
	}
	return h.tick()
}

// AllowPartialRead, combined with engineHandler implementing DBAware,
// tells ReadFile to route every database in the file to engineHandler
// (via SelectDB) rather than silently skipping anything but database
// 0. With allowOtherDBs false, ReadFile rejects any snapshot that
// selects a database other than 0 outright.
func (h *engineHandler) AllowPartialRead() bool {
	return h.allowOtherDBs
}

// SelectDB implements DBAware: it is ReadFile's notification of each
// SELECTDB opcode, and is what lets a single engineHandler restore a
// multi-database snapshot into the matching databases of the engine,
// per spec §4.4's "current database" state.
func (h *engineHandler) SelectDB(db uint32) {
	h.db = db
}

func (h *engineHandler) HandleString(key, value string) error {
	if err := h.engine.DeleteKey(h.db, key); err != nil {
		return err
	}
	return h.engine.SetString(h.db, key, value)
}

func (h *engineHandler) ListEntryHandler(key string) func(elem string) error {
	first := true
	return func(elem string) error {
		if first {
			first = false
			if err := h.engine.DeleteKey(h.db, key); err != nil {
				return err
			}
		}
		return h.engine.ListInsert(h.db, key, elem)
	}
}

func (h *engineHandler) HandleListEnding(key string, entriesRead uint64) {}

func (h *engineHandler) SetEntryHandler(key string) func(elem string) error {
	first := true
	return func(elem string) error {
		if first {
			first = false
			if err := h.engine.DeleteKey(h.db, key); err != nil {
				return err
			}
		}
		return h.engine.SetAdd(h.db, key, elem)
	}
}

func (h *engineHandler) ZsetEntryHandler(key string) func(elem string, score float64) error {
	first := true
	return func(elem string, score float64) error {
		if first {
			first = false
			if err := h.engine.DeleteKey(h.db, key); err != nil {
				return err
			}
		}
		return h.engine.ZsetAdd(h.db, key, elem, score)
	}
}

func (h *engineHandler) HandleZsetEnding(key string, entriesRead uint64) {}

func (h *engineHandler) HashEntryHandler(key string) func(field, value string) error {
	first := true
	return func(field, value string) error {
		if first {
			first = false
			if err := h.engine.DeleteKey(h.db, key); err != nil {
				return err
			}
		}
		return h.engine.HashSet(h.db, key, field, value)
	}
}

// HandleModule stores a decoded JSON module value as a plain string:
// this package's StorageEngine surface has no notion of module types
// beyond the five RDB object families (see SPEC_FULL.md's module map),
// so a JSON document round-trips as its serialized text.
func (h *engineHandler) HandleModule(key, value string, marker ModuleMarker) error {
	if err := h.engine.DeleteKey(h.db, key); err != nil {
		return err
	}
	return h.engine.SetString(h.db, key, value)
}

// StreamEntryHandler, StreamGroupHandler: streams are outside this
// module's data model (spec.md's object encodings cover string, list,
// set, zset and hash only). engineHandler decodes them, for format
// completeness and so VerifyFile-style consumers still see well-formed
// data, and then discards them, logging once per key so a lossy load
// is never silent.
func (h *engineHandler) StreamEntryHandler(key string) func(entry StreamEntry) error {
	h.log.Warn("skipping unsupported stream entry during legacy load", "key", key)
	return func(entry StreamEntry) error {
		return nil
	}
}

func (h *engineHandler) StreamGroupHandler(key string) func(group StreamConsumerGroup) error {
	return func(group StreamConsumerGroup) error {
		return nil
	}
}

func (h *engineHandler) HandleStreamEnding(key string, entriesRead uint64) {}

func (h *engineHandler) HandleExpireTime(key string, expireTime time.Duration) error {
	ms := int64(expireTime / time.Millisecond)
	return h.engine.SetTTL(h.db, key, ms)
}
