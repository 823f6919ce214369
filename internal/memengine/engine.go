// Package memengine is a small in-memory StorageEngine, used by this
// module's own tests and examples in place of a real keyspace. It is
// modeled on Scarage1-FlashDB's internal/store Store: one RWMutex
// guarding a plain map of typed containers, plus a parallel per-key
// TTL map.
package memengine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ardb/snapshot"
)

type dbData struct {
	kind    map[string]rdb.ObjectKind
	strings map[string]string
	lists   map[string][]string
	sets    map[string][]string
	hashFields map[string][]string // field insertion order
	hashValues map[string]map[string]string
	zsetMembers map[string][]string // member insertion order
	zsetScores  map[string]map[string]float64
	ttl     map[string]int64 // absolute unix ms, absent/0 = no TTL
	order   []string         // key insertion order, for deterministic iteration
}

func newDBData() *dbData {
	return &dbData{
		kind:        make(map[string]rdb.ObjectKind),
		strings:     make(map[string]string),
		lists:       make(map[string][]string),
		sets:        make(map[string][]string),
		hashFields:  make(map[string][]string),
		hashValues:  make(map[string]map[string]string),
		zsetMembers: make(map[string][]string),
		zsetScores:  make(map[string]map[string]float64),
		ttl:         make(map[string]int64),
	}
}

func (d *dbData) touch(key string, kind rdb.ObjectKind) {
	if _, ok := d.kind[key]; !ok {
		d.order = append(d.order, key)
	}
	d.kind[key] = kind
}

func (d *dbData) wipe(key string) {
	delete(d.kind, key)
	delete(d.strings, key)
	delete(d.lists, key)
	delete(d.sets, key)
	delete(d.hashFields, key)
	delete(d.hashValues, key)
	delete(d.zsetMembers, key)
	delete(d.zsetScores, key)
	delete(d.ttl, key)
}

// Engine is an in-memory rdb.StorageEngine.
type Engine struct {
	mu  sync.RWMutex
	dbs map[uint32]*dbData
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{dbs: make(map[uint32]*dbData)}
}

func (e *Engine) db(id uint32) *dbData {
	d, ok := e.dbs[id]
	if !ok {
		d = newDBData()
		e.dbs[id] = d
	}
	return d
}

// --- StorageEngine: mutation surface ---

func (e *Engine) DeleteKey(db uint32, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.db(db).wipe(key)
	return nil
}

func (e *Engine) SetString(db uint32, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	d.wipe(key)
	d.touch(key, rdb.ObjectString)
	d.strings[key] = value
	return nil
}

func (e *Engine) ListInsert(db uint32, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	d.touch(key, rdb.ObjectList)
	d.lists[key] = append(d.lists[key], value)
	return nil
}

func (e *Engine) SetAdd(db uint32, key, member string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	d.touch(key, rdb.ObjectSet)
	for _, m := range d.sets[key] {
		if m == member {
			return nil
		}
	}
	d.sets[key] = append(d.sets[key], member)
	return nil
}

func (e *Engine) ZsetAdd(db uint32, key, member string, score float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	d.touch(key, rdb.ObjectZset)
	scores, ok := d.zsetScores[key]
	if !ok {
		scores = make(map[string]float64)
		d.zsetScores[key] = scores
	}
	if _, exists := scores[member]; !exists {
		d.zsetMembers[key] = append(d.zsetMembers[key], member)
	}
	scores[member] = score
	return nil
}

func (e *Engine) HashSet(db uint32, key, field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	d.touch(key, rdb.ObjectHash)
	values, ok := d.hashValues[key]
	if !ok {
		values = make(map[string]string)
		d.hashValues[key] = values
	}
	if _, exists := values[field]; !exists {
		d.hashFields[key] = append(d.hashFields[key], field)
	}
	values[field] = value
	return nil
}

func (e *Engine) SetTTL(db uint32, key string, expireAtMillis int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.db(db)
	if expireAtMillis == 0 {
		delete(d.ttl, key)
		return nil
	}
	d.ttl[key] = expireAtMillis
	return nil
}

// SetRaw installs a record produced by this engine's own Cursor (see
// encodeKey/encodeValue below). It is the insertion surface the native
// dialect's loader drives. Unlike the legacy loader, it does not delete
// an existing container key before appending its elements; string and
// bitset rows go through SetString, which replaces the key (and drops
// its TTL).
func (e *Engine) SetRaw(rawKey, rawValue []byte) error {
	dk, err := e.DecodeKey(rawKey)
	if err != nil {
		return err
	}
	dv, err := e.DecodeValue(rawValue)
	if err != nil {
		return err
	}

	switch dk.Kind {
	case rdb.RowKeyMeta:
		if dv.Kind == rdb.ObjectString {
			return e.SetString(dk.DB, dk.Key, dv.Str)
		}
		return nil
	case rdb.RowListElement:
		return e.ListInsert(dk.DB, dk.Key, dv.Str)
	case rdb.RowSetElement:
		return e.SetAdd(dk.DB, dk.Key, dk.Element)
	case rdb.RowZsetElementScore:
		return e.ZsetAdd(dk.DB, dk.Key, dk.Element, dv.Score)
	case rdb.RowHashField:
		return e.HashSet(dk.DB, dk.Key, dk.Element, dv.Str)
	case rdb.RowBitsetElement:
		return e.SetString(dk.DB, dk.Key, dv.Str)
	}
	return fmt.Errorf("memengine: unknown row kind %d", dk.Kind)
}

// --- StorageEngine: read surface ---

func (e *Engine) TTLMillis(db uint32, key string) (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db(db).ttl[key], nil
}

func (e *Engine) ListLen(db uint32, key string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(len(e.db(db).lists[key])), nil
}

func (e *Engine) SetLen(db uint32, key string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(len(e.db(db).sets[key])), nil
}

func (e *Engine) ZsetLen(db uint32, key string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(len(e.db(db).zsetMembers[key])), nil
}

func (e *Engine) HashLen(db uint32, key string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(len(e.db(db).hashFields[key])), nil
}

// --- raw key/value codec ---
//
// Row keys are encoded as:
//   [1 byte kind][4 byte db][4 byte keyLen][key][4 byte elementLen][element]
// Row values start with a 1 byte tag disambiguating their shape, since
// length alone can't (a meta string value and a score happen to be the
// same size for some inputs):
//   valueTagMeta (KEY_META):       [object kind][4 byte strLen][str]
//   valueTagStr (elements/bitset): [4 byte strLen][str]
//   valueTagScore (ZSET score):    [8 byte score bits]

func encodeKey(db uint32, kind rdb.RowKind, key, element string) []byte {
	out := make([]byte, 0, 1+4+4+len(key)+4+len(element))
	out = append(out, byte(kind))
	out = appendUint32(out, db)
	out = appendUint32(out, uint32(len(key)))
	out = append(out, key...)
	out = appendUint32(out, uint32(len(element)))
	out = append(out, element...)
	return out
}

func (e *Engine) DecodeKey(raw []byte) (rdb.DecodedKey, error) {
	if len(raw) < 9 {
		return rdb.DecodedKey{}, fmt.Errorf("memengine: truncated row key")
	}
	kind := rdb.RowKind(raw[0])
	db := binary.BigEndian.Uint32(raw[1:5])
	pos := 9
	keyLen := int(binary.BigEndian.Uint32(raw[5:9]))
	if pos+keyLen > len(raw) {
		return rdb.DecodedKey{}, fmt.Errorf("memengine: truncated row key")
	}
	key := string(raw[pos : pos+keyLen])
	pos += keyLen
	if pos+4 > len(raw) {
		return rdb.DecodedKey{}, fmt.Errorf("memengine: truncated row key")
	}
	elemLen := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
	pos += 4
	if pos+elemLen > len(raw) {
		return rdb.DecodedKey{}, fmt.Errorf("memengine: truncated row key")
	}
	element := string(raw[pos : pos+elemLen])
	return rdb.DecodedKey{DB: db, Kind: kind, Key: key, Element: element}, nil
}

const (
	valueTagMeta  = byte(0)
	valueTagStr   = byte(1)
	valueTagScore = byte(2)
)

func encodeValueMeta(kind rdb.ObjectKind, str string) []byte {
	out := make([]byte, 0, 6+len(str))
	out = append(out, valueTagMeta, byte(kind))
	out = appendUint32(out, uint32(len(str)))
	out = append(out, str...)
	return out
}

func encodeValueStr(str string) []byte {
	out := make([]byte, 0, 5+len(str))
	out = append(out, valueTagStr)
	out = appendUint32(out, uint32(len(str)))
	out = append(out, str...)
	return out
}

func encodeValueScore(score float64) []byte {
	out := make([]byte, 9)
	out[0] = valueTagScore
	binary.BigEndian.PutUint64(out[1:], math.Float64bits(score))
	return out
}

func (e *Engine) DecodeValue(raw []byte) (rdb.DecodedValue, error) {
	if len(raw) == 0 {
		return rdb.DecodedValue{}, fmt.Errorf("memengine: empty row value")
	}
	switch raw[0] {
	case valueTagScore:
		if len(raw) != 9 {
			return rdb.DecodedValue{}, fmt.Errorf("memengine: malformed score value")
		}
		return rdb.DecodedValue{Score: math.Float64frombits(binary.BigEndian.Uint64(raw[1:]))}, nil
	case valueTagMeta:
		if len(raw) < 6 {
			return rdb.DecodedValue{}, fmt.Errorf("memengine: malformed meta value")
		}
		n := int(binary.BigEndian.Uint32(raw[2:6]))
		if 6+n != len(raw) {
			return rdb.DecodedValue{}, fmt.Errorf("memengine: malformed meta value")
		}
		return rdb.DecodedValue{Kind: rdb.ObjectKind(raw[1]), Str: string(raw[6:])}, nil
	case valueTagStr:
		if len(raw) < 5 {
			return rdb.DecodedValue{}, fmt.Errorf("memengine: malformed string value")
		}
		n := int(binary.BigEndian.Uint32(raw[1:5]))
		if 5+n != len(raw) {
			return rdb.DecodedValue{}, fmt.Errorf("memengine: malformed string value")
		}
		return rdb.DecodedValue{Str: string(raw[5:])}, nil
	}
	return rdb.DecodedValue{}, fmt.Errorf("memengine: unknown value tag %d", raw[0])
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// --- cursor ---

type sliceCursor struct {
	pairs []rdb.KVPair
	pos   int
}

func (c *sliceCursor) Valid() bool      { return c.pos < len(c.pairs) }
func (c *sliceCursor) Pair() rdb.KVPair { return c.pairs[c.pos] }
func (c *sliceCursor) Next() error      { c.pos++; return nil }
func (c *sliceCursor) Close() error     { return nil }

// IterFromKeyMeta snapshots the whole keyspace into a deterministic
// sequence of rows (KEY_META first per key, then its elements in
// insertion order), sorted by database id. The snapshot is taken
// eagerly under a read lock rather than iterated live, since this
// engine exists for small-scale tests, not production traffic.
func (e *Engine) IterFromKeyMeta() (rdb.Cursor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dbIDs := make([]uint32, 0, len(e.dbs))
	for id := range e.dbs {
		dbIDs = append(dbIDs, id)
	}
	sort.Slice(dbIDs, func(i, j int) bool { return dbIDs[i] < dbIDs[j] })

	var pairs []rdb.KVPair
	for _, id := range dbIDs {
		d := e.dbs[id]
		for _, key := range d.order {
			kind, ok := d.kind[key]
			if !ok {
				continue
			}
			var metaStr string
			if kind == rdb.ObjectString {
				metaStr = d.strings[key]
			}
			pairs = append(pairs, rdb.KVPair{
				Key:   encodeKey(id, rdb.RowKeyMeta, key, ""),
				Value: encodeValueMeta(kind, metaStr),
			})

			switch kind {
			case rdb.ObjectList:
				for _, v := range d.lists[key] {
					pairs = append(pairs, rdb.KVPair{
						Key:   encodeKey(id, rdb.RowListElement, key, ""),
						Value: encodeValueStr(v),
					})
				}
			case rdb.ObjectSet:
				for _, m := range d.sets[key] {
					pairs = append(pairs, rdb.KVPair{
						Key:   encodeKey(id, rdb.RowSetElement, key, m),
						Value: encodeValueStr(""),
					})
				}
			case rdb.ObjectZset:
				for _, m := range d.zsetMembers[key] {
					pairs = append(pairs, rdb.KVPair{
						Key:   encodeKey(id, rdb.RowZsetElementScore, key, m),
						Value: encodeValueScore(d.zsetScores[key][m]),
					})
				}
			case rdb.ObjectHash:
				for _, f := range d.hashFields[key] {
					pairs = append(pairs, rdb.KVPair{
						Key:   encodeKey(id, rdb.RowHashField, key, f),
						Value: encodeValueStr(d.hashValues[key][f]),
					})
				}
			}
		}
	}

	return &sliceCursor{pairs: pairs}, nil
}
