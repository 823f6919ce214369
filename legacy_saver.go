package rdb

import (
	"fmt"
	"time"
)

// SaveLegacy writes a full legacy-dialect snapshot of engine to path,
// driving the low-level writer (encoder.go, collection_encoders.go)
// from a single KEY_META-first cursor, per spec §4.5.
//
// This mirrors original_source/src/repl/rdb.cpp's
// RedisDumpFile::DoSave: SELECTDB is (re-)emitted whenever the row's
// database changes; a row whose kind isn't one of
// KEY_META/LIST_ELEMENT/SET_ELEMENT/ZSET_ELEMENT_SCORE/HASH_FIELD/
// BITSET_ELEMENT is skipped outright; and a KEY_META row is
// redispatched by the decoded value's object kind rather than trusted
// on its own. tick is called periodically (roughly every 256 rows) so
// a caller can implement the 100ms cooperative cancellation gate
// described in spec §4.1; pass nil to disable it.
//
// The legacy saver never emits a packed container encoding
// (ziplist/zipmap/intset/listpack): every collection is written as its
// plain, length-prefixed RDB object type, matching both spec.md §4.5
// and ardb's own DoSave.
func SaveLegacy(path string, engine StorageEngine, redisVersion string, tick func() error) error {
	enc, err := NewFileEncoder(path, redisVersion)
	if err != nil {
		return err
	}
	if err := enc.Begin(); err != nil {
		return err
	}

	cur, err := engine.IterFromKeyMeta()
	if err != nil {
		return err
	}
	defer cur.Close()

	s := &legacySaveState{engine: engine, enc: enc}
	rows := 0

	for cur.Valid() {
		if tick != nil {
			rows++
			if rows%256 == 0 {
				if err := tick(); err != nil {
					return err
				}
			}
		}

		pair := cur.Pair()
		dk, err := engine.DecodeKey(pair.Key)
		if err != nil {
			return err
		}
		if dk.DB == ReservedGlobalDB {
			return fmt.Errorf("rdb: cursor yielded a row from the reserved global database")
		}

		switch dk.Kind {
		case RowKeyMeta, RowListElement, RowSetElement, RowZsetElementScore, RowHashField, RowBitsetElement:
		default:
			if err := cur.Next(); err != nil {
				return err
			}
			continue
		}

		if err := s.handleRow(dk, pair); err != nil {
			return err
		}

		if err := cur.Next(); err != nil {
			return err
		}
	}

	if err := s.closeCollection(); err != nil {
		return err
	}
	return enc.Close()
}

// legacySaveState tracks which logical (db, key) the currently-open
// collection encoder belongs to, so that contiguous element rows for
// the same key are coalesced under one BeginX/Close pair.
type legacySaveState struct {
	engine StorageEngine
	enc    *Encoder

	haveDB  bool
	db      uint32
	haveKey bool
	key     string

	list *ListEncoder
	set  *SetEncoder
	zset *SortedSetEncoder
	hash *HashEncoder
}

func (s *legacySaveState) closeCollection() error {
	switch {
	case s.list != nil:
		err := s.list.Close()
		s.list = nil
		return err
	case s.set != nil:
		err := s.set.Close()
		s.set = nil
		return err
	case s.zset != nil:
		err := s.zset.Close()
		s.zset = nil
		return err
	case s.hash != nil:
		err := s.hash.Close()
		s.hash = nil
		return err
	}
	return nil
}

func (s *legacySaveState) expiryFor(db uint32, key string) (*time.Time, error) {
	ms, err := s.engine.TTLMillis(db, key)
	if err != nil {
		return nil, err
	}
	if ms == 0 {
		return nil, nil
	}
	t := time.UnixMilli(ms)
	return &t, nil
}

func (s *legacySaveState) handleRow(dk DecodedKey, pair KVPair) error {
	firstInKey := !s.haveKey || dk.Key != s.key || dk.DB != s.db

	if firstInKey {
		if err := s.closeCollection(); err != nil {
			return err
		}
		if !s.haveDB || dk.DB != s.db {
			if err := s.enc.selectDB(int(dk.DB)); err != nil {
				return err
			}
			s.db = dk.DB
			s.haveDB = true
		}
		s.key = dk.Key
		s.haveKey = true
	}

	switch dk.Kind {
	case RowKeyMeta:
		return s.handleKeyMeta(dk, pair)
	case RowListElement:
		return s.appendList(dk, pair)
	case RowSetElement:
		return s.appendSet(dk, pair)
	case RowZsetElementScore:
		return s.appendZset(dk, pair)
	case RowHashField:
		return s.appendHash(dk, pair)
	case RowBitsetElement:
		return s.handleBitset(dk, pair)
	}
	return nil
}

func (s *legacySaveState) handleKeyMeta(dk DecodedKey, pair KVPair) error {
	dv, err := s.engine.DecodeValue(pair.Value)
	if err != nil {
		return err
	}

	expiry, err := s.expiryFor(dk.DB, dk.Key)
	if err != nil {
		return err
	}

	switch dv.Kind {
	case ObjectString:
		return s.enc.WriteStringEntry(dk.Key, dv.Str, expiry)
	case ObjectList:
		n, err := s.engine.ListLen(dk.DB, dk.Key)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		s.list, err = s.enc.BeginList(dk.Key, expiry)
		return err
	case ObjectSet:
		n, err := s.engine.SetLen(dk.DB, dk.Key)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		s.set, err = s.enc.BeginSet(dk.Key, expiry)
		return err
	case ObjectZset:
		n, err := s.engine.ZsetLen(dk.DB, dk.Key)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		s.zset, err = s.enc.BeginSortedSet(dk.Key, expiry)
		return err
	case ObjectHash:
		n, err := s.engine.HashLen(dk.DB, dk.Key)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		s.hash, err = s.enc.BeginHash(dk.Key, expiry)
		return err
	}
	return fmt.Errorf("rdb: unknown object kind %d for key %q", dv.Kind, dk.Key)
}

func (s *legacySaveState) appendList(dk DecodedKey, pair KVPair) error {
	if s.list == nil {
		return nil
	}
	dv, err := s.engine.DecodeValue(pair.Value)
	if err != nil {
		return err
	}
	return s.list.WriteFieldStr(dv.Str)
}

func (s *legacySaveState) appendSet(dk DecodedKey, pair KVPair) error {
	if s.set == nil {
		return nil
	}
	return s.set.WriteFieldStr(dk.Element)
}

func (s *legacySaveState) appendZset(dk DecodedKey, pair KVPair) error {
	if s.zset == nil {
		return nil
	}
	dv, err := s.engine.DecodeValue(pair.Value)
	if err != nil {
		return err
	}
	return s.zset.WriteFieldStrFloat64(dk.Element, dv.Score)
}

func (s *legacySaveState) appendHash(dk DecodedKey, pair KVPair) error {
	if s.hash == nil {
		return nil
	}
	dv, err := s.engine.DecodeValue(pair.Value)
	if err != nil {
		return err
	}
	return s.hash.WriteFieldStrStr(dk.Element, dv.Str)
}

// handleBitset folds a bitset row into a plain string entry: RDB has no
// object type of its own for bitmaps distinct from a raw string, so a
// bitset is saved the same way ardb itself does at the RDB boundary —
// as TypeString over the raw element bytes.
func (s *legacySaveState) handleBitset(dk DecodedKey, pair KVPair) error {
	dv, err := s.engine.DecodeValue(pair.Value)
	if err != nil {
		return err
	}
	expiry, err := s.expiryFor(dk.DB, dk.Key)
	if err != nil {
		return err
	}
	return s.enc.WriteStringEntry(dk.Key, dv.Str, expiry)
}
