package rdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"github.com/golang/snappy"
)

var defaultMaxDataSize = 256 << 20  // 256 MB
var defaultMaxEntrySize = 100 << 20 // 100 MB
var defaultMaxKeySize = 32 << 10    // 32 KB
var defaultMaxStreamPELSize = 1000

const maxStreamStrSize = math.MaxUint32

type VerifyFileOptions struct {
	MaxDataSize      int
	MaxEntrySize     int
	MaxKeySize       int
	MaxStreamPELSize int
}

func (o *VerifyFileOptions) maybeSetDefaults() {
	if o.MaxDataSize <= 0 {
		o.MaxDataSize = defaultMaxDataSize
	}

	if o.MaxEntrySize <= 0 {
		o.MaxEntrySize = defaultMaxEntrySize
	}

	if o.MaxKeySize <= 0 {
		o.MaxKeySize = defaultMaxKeySize
	}

	if o.MaxStreamPELSize <= 0 {
		o.MaxStreamPELSize = defaultMaxStreamPELSize
	}
}

// VerifyFile verifies that the given RDB file is not corrupt,
// or does not exceed the limits in the given options.
func VerifyFile(path string, opts VerifyFileOptions) error {
	opts.maybeSetDefaults()
	v := &verifier{
		maxDataSize:      opts.MaxDataSize,
		maxEntrySize:     opts.MaxEntrySize,
		maxKeySize:       opts.MaxKeySize,
		maxStreamPELSize: opts.MaxStreamPELSize,
	}

	return readFile(path, v, uint64(opts.MaxEntrySize))
}

type VerifyValueOptions struct {
	MaxEntrySize     int
	MaxStreamPELSize int
}

func (o *VerifyValueOptions) maybeSetDefaults() {
	if o.MaxEntrySize <= 0 {
		o.MaxEntrySize = defaultMaxEntrySize
	}

	if o.MaxStreamPELSize <= 0 {
		o.MaxStreamPELSize = defaultMaxStreamPELSize
	}
}

// VerifyValue verifies that the given RDB value is not corrupt,
// or does not exceed the limits in the given options.
func VerifyValue(payload []byte, opts VerifyValueOptions) error {
	opts.maybeSetDefaults()
	v := &verifier{
		maxEntrySize:     opts.MaxEntrySize,
		maxStreamPELSize: opts.MaxStreamPELSize,
		// We don't care about the values below, as they don't
		// really apply to RDB values.
		maxDataSize: math.MaxInt,
		maxKeySize:  math.MaxInt,
	}

	return readValue("", payload, v, uint64(opts.MaxEntrySize))
}

// VerifyNativeFile is the native-dialect analogue of VerifyFile: it
// checks a .ardb file's magic, chunk framing, Snappy decompression and
// CRC-64 trailer, and the bounds of every (raw_key, raw_value) record
// inside each chunk, without installing anything into a StorageEngine.
// Grounded on native.go's LoadNative, whose chunk-reading helpers it
// reuses directly.
func VerifyNativeFile(path string, opts VerifyFileOptions) error {
	opts.maybeSetDefaults()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, nativeHeaderLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return err
	}
	if string(header[:len(nativeMagic)]) != nativeMagic {
		return errors.New("rdb: not a native snapshot file")
	}

	br := bufio.NewReader(f)
	var crc uint64
	var dataSize int

	for {
		kindBuf := make([]byte, 1)
		if _, err := io.ReadFull(br, kindBuf); err != nil {
			return err
		}
		crc = getCRC(crc, kindBuf)
		kind := kindBuf[0]

		switch kind {
		case nativeChunkEOF:
			crcBuf := make([]byte, 8)
			if _, err := io.ReadFull(br, crcBuf); err != nil {
				return err
			}
			stored := binary.LittleEndian.Uint64(crcBuf)
			if stored != 0 && stored != crc {
				return errors.New("rdb: wrong CRC at the end of the native snapshot file")
			}
			return nil
		case nativeChunkRaw:
			raw, n, err := readChunkLen(br, &crc)
			if err != nil {
				return err
			}
			if n > opts.MaxEntrySize {
				return errMaxEntrySizeExceeded
			}
			if err := readAndHashN(br, raw, n, &crc); err != nil {
				return err
			}
			if err := verifyNativeRecords(raw, opts.MaxKeySize); err != nil {
				return err
			}
			dataSize += n
			if dataSize > opts.MaxDataSize {
				return errMaxDataSizeExceeded
			}
		case nativeChunkSnappy:
			rawLen, err := readUint32CRC(br, &crc)
			if err != nil {
				return err
			}
			compLen, err := readUint32CRC(br, &crc)
			if err != nil {
				return err
			}
			if int(rawLen) > opts.MaxEntrySize {
				return errMaxEntrySizeExceeded
			}
			compressed := make([]byte, compLen)
			if err := readAndHashN(br, compressed, int(compLen), &crc); err != nil {
				return err
			}
			raw := make([]byte, rawLen)
			if _, err := snappy.Decode(raw, compressed); err != nil {
				return err
			}
			if err := verifyNativeRecords(raw, opts.MaxKeySize); err != nil {
				return err
			}
			dataSize += int(rawLen)
			if dataSize > opts.MaxDataSize {
				return errMaxDataSizeExceeded
			}
		default:
			return errNativeCorrupt
		}
	}
}

// verifyNativeRecords walks one decompressed chunk's (key, value)
// records, checking only that each length-prefixed slice stays in
// bounds and that no key exceeds maxKeySize; it never interprets the
// value bytes themselves (the native dialect carries opaque engine
// rows, not RDB objects).
func verifyNativeRecords(buf []byte, maxKeySize int) error {
	pos := 0
	for pos < len(buf) {
		key, next, err := readVarSlice(buf, pos)
		if err != nil {
			return err
		}
		if len(key) > maxKeySize {
			return errMaxKeySizeExceeded
		}
		pos = next

		_, next, err = readVarSlice(buf, pos)
		if err != nil {
			return err
		}
		pos = next
	}
	return nil
}

var errMaxDataSizeExceeded = errors.New("max data size is exceeded")
var errMaxEntrySizeExceeded = errors.New("max entry size is exceeded")
var errMaxKeySizeExceeded = errors.New("max key size is exceeded")
var errMaxStreamPELSizeExceeded = errors.New("max stream pel size is exceeded")
var errMaxStreamStrSizeExceeded = errors.New("max stream string item size is exceeded")

type verifier struct {
	maxDataSize      int
	maxEntrySize     int
	maxKeySize       int
	maxStreamPELSize int
	dataSize         int
}

func (v *verifier) HashWithExpEntryHandler(key string) func(field string, value string, ttl time.Time) error {
	if len(key) > v.maxKeySize {
		return func(field, value string, ttl time.Time) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(field, value string, ttl time.Time) error {
			return errMaxDataSizeExceeded
		}
	}

	var entrySize int
	return func(field, value string, ttl time.Time) error {
		size := len(field) + len(value) + 8
		entrySize += size
		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += size
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) HandleString(key string, value string) error {
	if len(key) > v.maxKeySize {
		return errMaxKeySizeExceeded
	}

	if len(value) > v.maxEntrySize {
		return errMaxEntrySizeExceeded
	}

	v.dataSize += len(key) + len(value)
	if v.dataSize > v.maxDataSize {
		return errMaxDataSizeExceeded
	}

	return nil
}

func (v *verifier) HashEntryHandler(key string) func(field string, value string) error {
	if len(key) > v.maxKeySize {
		return func(field, value string) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(field, value string) error {
			return errMaxDataSizeExceeded
		}
	}

	var entrySize int
	return func(field, value string) error {
		size := len(field) + len(value)
		entrySize += size
		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += size
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) ListEntryHandler(key string) func(elem string) error {
	if len(key) > v.maxKeySize {
		return func(elem string) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(elem string) error {
			return errMaxDataSizeExceeded
		}
	}

	var entrySize int
	return func(elem string) error {
		entrySize += len(elem)
		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += len(elem)
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) SetEntryHandler(key string) func(elem string) error {
	if len(key) > v.maxKeySize {
		return func(elem string) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(elem string) error {
			return errMaxDataSizeExceeded
		}
	}

	var entrySize int
	return func(elem string) error {
		entrySize += len(elem)
		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += len(elem)
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) ZsetEntryHandler(key string) func(elem string, score float64) error {
	if len(key) > v.maxKeySize {
		return func(elem string, score float64) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(elem string, score float64) error {
			return errMaxDataSizeExceeded
		}
	}

	var entrySize int
	return func(elem string, score float64) error {
		entrySize += len(elem) + 8
		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += len(elem) + 8
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) HandleModule(key string, value string, marker ModuleMarker) error {
	if len(key) > v.maxKeySize {
		return errMaxKeySizeExceeded
	}

	if len(value) > v.maxEntrySize {
		return errMaxEntrySizeExceeded
	}

	v.dataSize += len(key) + len(value)
	if v.dataSize > v.maxDataSize {
		return errMaxDataSizeExceeded
	}

	return nil
}

func (v *verifier) StreamEntryHandler(key string) func(entry StreamEntry) error {
	if len(key) > v.maxKeySize {
		return func(entry StreamEntry) error {
			return errMaxKeySizeExceeded
		}
	}

	v.dataSize += len(key)
	if v.dataSize > v.maxDataSize {
		return func(entry StreamEntry) error {
			return errMaxDataSizeExceeded
		}
	}

	return func(entry StreamEntry) error {
		var valueSize int
		for _, value := range entry.Value {
			if len(value) > maxStreamStrSize {
				return errMaxStreamStrSizeExceeded
			}

			valueSize += len(value)
		}

		// we don't check for the max entry size here as we store
		// stream entries on disk.

		v.dataSize += valueSize
		v.dataSize += 16 // 8: ID#Seq + 8: ID#Millis
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) StreamGroupHandler(key string) func(group StreamConsumerGroup) error {
	var entrySize int
	return func(group StreamConsumerGroup) error {
		if len(group.Name) > maxStreamStrSize {
			return errMaxStreamStrSizeExceeded
		}

		groupStart := entrySize
		entrySize += len(group.Name) + 24 // 8: LastID#Seq + 8: LastID#Millis + 8: EntriesRead

		for _, consumer := range group.Consumers {
			if len(consumer.Name) > maxStreamStrSize {
				return errMaxStreamStrSizeExceeded
			}

			entrySize += len(consumer.Name) + 16 // 8: SeenTime + 8: ActiveTime

			if len(consumer.PendingEntries) > v.maxStreamPELSize {
				return errMaxStreamPELSizeExceeded
			}

			for _, pe := range consumer.PendingEntries {
				entrySize += 32 // 8: ID#Seq + 8: ID#Millis + 8: DeliveryCount + 8: DeliveryTime

				for _, val := range pe.Entry.Value {
					if len(val) > maxStreamStrSize {
						return errMaxStreamStrSizeExceeded
					}

					entrySize += len(val)
				}
			}
		}

		// unlike normal stream entries, pending entries are stored both on disk
		// and memory.

		if entrySize > v.maxEntrySize {
			return errMaxEntrySizeExceeded
		}

		v.dataSize += entrySize - groupStart
		if v.dataSize > v.maxDataSize {
			return errMaxDataSizeExceeded
		}

		return nil
	}
}

func (v *verifier) AllowPartialRead() bool {
	return true
}

func (v *verifier) HandleExpireTime(key string, expireTime time.Duration) error {
	return nil
}

func (v *verifier) HandleListEnding(key string, entriesRead uint64) {
}

func (v *verifier) HandleZsetEnding(key string, entriesRead uint64) {
}

func (v *verifier) HandleStreamEnding(key string, entriesRead uint64) {
}
