package rdb

// RowKind is the leading discriminator of a storage-engine raw key, as
// decoded by StorageEngine.DecodeKey. Kinds not listed here (index
// rows, ...) are opaque to this package and are skipped during legacy
// save; bitset elements are saved as plain strings. See SPEC_FULL.md's
// "row-kind filter" note.
type RowKind uint8

const (
	RowKeyMeta          RowKind = 0
	RowListElement      RowKind = 1
	RowSetElement       RowKind = 2
	RowZsetElementScore RowKind = 3
	RowHashField        RowKind = 4
	RowBitsetElement    RowKind = 5
)

// ReservedGlobalDB is the sentinel database id used internally by the
// storage engine for bookkeeping that must never be captured in a
// snapshot. A cursor that yields a row with this database id during
// save is a programming error in the caller and aborts the save.
const ReservedGlobalDB uint32 = 0xFFFFFFFF

// DecodedKey is the parsed form of a storage-engine raw key.
type DecodedKey struct {
	DB       uint32
	Kind     RowKind
	Key      string
	Element  string // member/field discriminator; empty for RowKeyMeta
}

// ObjectKind describes the logical value type carried by a KEY_META row,
// mirroring the five RDB object families (§3 of the spec).
type ObjectKind uint8

const (
	ObjectString ObjectKind = 0
	ObjectList   ObjectKind = 1
	ObjectSet    ObjectKind = 2
	ObjectZset   ObjectKind = 3
	ObjectHash   ObjectKind = 4
)

// DecodedValue is the parsed form of a storage-engine raw value.
type DecodedValue struct {
	Kind    ObjectKind
	Str     string  // meaningful when Kind == ObjectString, or as the element's value for element rows
	Score   float64 // meaningful for RowZsetElementScore rows
}

// KVPair is an opaque (raw_key, raw_value) record as produced by the
// engine's cursor and consumed by the native dialect and the legacy
// saver alike.
type KVPair struct {
	Key   []byte
	Value []byte
}

// Cursor walks an ordered sequence of KVPair values. All rows belonging
// to one (database, logical key) are contiguous, KEY_META first; see
// spec §5 "Ordering".
type Cursor interface {
	Valid() bool
	Next() error
	Pair() KVPair
	Close() error
}

// StorageEngine is the external collaborator described in spec §6: it
// owns the actual keyspace and exposes just enough surface for this
// package to walk it (for save) or repopulate it (for load). This
// package never interprets engine-internal encodings beyond what
// DecodeKey/DecodeValue hand back.
type StorageEngine interface {
	// IterFromKeyMeta returns a cursor starting at the first KEY_META
	// row (db=0) and walking forward in the order described by spec §5.
	IterFromKeyMeta() (Cursor, error)

	DecodeKey(raw []byte) (DecodedKey, error)
	DecodeValue(raw []byte) (DecodedValue, error)

	// TTLMillis returns the absolute millisecond expiry of key in db,
	// or 0 if the key has no TTL.
	TTLMillis(db uint32, key string) (int64, error)
	ListLen(db uint32, key string) (uint64, error)
	SetLen(db uint32, key string) (uint64, error)
	ZsetLen(db uint32, key string) (uint64, error)
	HashLen(db uint32, key string) (uint64, error)

	// The insertion surface used while loading a legacy snapshot.
	// DeleteKey must be called (and must be a no-op on a missing key)
	// immediately before the first insert for a logical key, matching
	// spec §4.4's "delete prior value, then insert" sequencing. See
	// StorageEngine's doc note on partial-load atomicity: keys absent
	// from the snapshot are never touched.
	DeleteKey(db uint32, key string) error
	SetString(db uint32, key, value string) error
	ListInsert(db uint32, key, value string) error
	SetAdd(db uint32, key, member string) error
	ZsetAdd(db uint32, key, member string, score float64) error
	HashSet(db uint32, key, field, value string) error
	SetTTL(db uint32, key string, expireAtMillis int64) error

	// SetRaw installs a pre-encoded (raw_key, raw_value) pair directly,
	// bypassing typed insertion. Used by the native dialect's loader.
	SetRaw(rawKey, rawValue []byte) error
}

// Partial-load atomicity (open question, preserved from the source):
// Load never removes keys that are absent from the snapshot being
// read. Callers that want a clean restore must flush/reset the engine
// themselves before calling Load.
