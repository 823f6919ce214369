package rdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Native dialect: a backup/replication-oriented format that stores raw
// engine (key, value) records directly, instead of re-encoding them as
// RDB objects. Grounded on original_source/src/repl/rdb.cpp's
// ArdbDumpFile.
const (
	nativeMagic      = "ARDB"
	nativeVersionFmt = "%04d"
	nativeHeaderLen  = 8 // 4 byte magic + 4 digit version

	nativeChunkRaw    = byte(1)
	nativeChunkSnappy = byte(2)
	nativeChunkEOF    = byte(255)

	nativeFlushThreshold = 1 << 20 // 1 MiB, per ArdbDumpFile::FlushWriteBuffer
)

var errNativeCorrupt = errors.New("corrupt native snapshot chunk")

// SaveNative writes every (raw key, raw value) pair the engine's
// cursor yields to path in the native dialect. tick is invoked
// periodically for the same cooperative-cancellation purpose as
// SaveLegacy's; original_source's SaveRawKeyValue gates its own loop
// the same way.
func SaveNative(path string, engine StorageEngine, tick func() error) (err error) {
	f, ferr := os.Create(path)
	if ferr != nil {
		return ferr
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := &nativeWriter{f: f, bw: bufio.NewWriterSize(f, nativeFlushThreshold)}
	if err = w.writeHeader(); err != nil {
		return err
	}

	cur, cerr := engine.IterFromKeyMeta()
	if cerr != nil {
		return cerr
	}
	defer cur.Close()

	rows := 0
	for cur.Valid() {
		if tick != nil {
			rows++
			if rows%256 == 0 {
				if err = tick(); err != nil {
					return err
				}
			}
		}

		pair := cur.Pair()
		if err = w.writeRecord(pair.Key, pair.Value); err != nil {
			return err
		}
		if err = cur.Next(); err != nil {
			return err
		}
	}

	if err = w.flush(); err != nil {
		return err
	}
	return w.writeEOF()
}

type nativeWriter struct {
	f   *os.File
	bw  *bufio.Writer
	buf []byte
	crc uint64
}

func (w *nativeWriter) writeHeader() error {
	if _, err := w.bw.WriteString(nativeMagic); err != nil {
		return err
	}
	_, err := w.bw.WriteString(fmt.Sprintf(nativeVersionFmt, 1))
	return err
}

// writeRecord appends a length-prefixed (key, value) pair to the
// in-memory write buffer, flushing it as a chunk once it reaches
// nativeFlushThreshold bytes, matching ArdbDumpFile::SaveRawKeyValue.
func (w *nativeWriter) writeRecord(key, value []byte) error {
	w.buf = appendVarSlice(w.buf, key)
	w.buf = appendVarSlice(w.buf, value)
	if len(w.buf) >= nativeFlushThreshold {
		return w.flush()
	}
	return nil
}

func appendVarSlice(dst []byte, s []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

// flush compresses the pending write buffer and emits it as a single
// chunk: a raw chunk when the Snappy output is more than 4 bytes larger
// than the payload, a Snappy chunk otherwise. This mirrors ArdbDumpFile::FlushWriteBuffer's
// policy exactly: raw wins whenever the compressed size exceeds
// raw+4 bytes.
func (w *nativeWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	raw := w.buf
	compressed := snappy.Encode(nil, raw)

	if len(compressed) > len(raw)+4 {
		if err := w.writeChunk(nativeChunkRaw, raw); err != nil {
			return err
		}
	} else {
		if err := w.writeSnappyChunk(raw, compressed); err != nil {
			return err
		}
	}
	w.buf = w.buf[:0]
	return nil
}

func (w *nativeWriter) writeChunk(kind byte, raw []byte) error {
	if err := w.writeByteCRC(kind); err != nil {
		return err
	}
	if err := w.writeUint32CRC(uint32(len(raw))); err != nil {
		return err
	}
	return w.writeBytesCRC(raw)
}

func (w *nativeWriter) writeSnappyChunk(raw, compressed []byte) error {
	if err := w.writeByteCRC(nativeChunkSnappy); err != nil {
		return err
	}
	if err := w.writeUint32CRC(uint32(len(raw))); err != nil {
		return err
	}
	if err := w.writeUint32CRC(uint32(len(compressed))); err != nil {
		return err
	}
	return w.writeBytesCRC(compressed)
}

func (w *nativeWriter) writeEOF() error {
	if err := w.writeByteCRC(nativeChunkEOF); err != nil {
		return err
	}
	var crcBuf [8]byte
	binary.LittleEndian.PutUint64(crcBuf[:], w.crc)
	if _, err := w.bw.Write(crcBuf[:]); err != nil {
		return err
	}
	return w.bw.Flush()
}

func (w *nativeWriter) writeByteCRC(b byte) error {
	return w.writeBytesCRC([]byte{b})
}

func (w *nativeWriter) writeUint32CRC(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.writeBytesCRC(b[:])
}

func (w *nativeWriter) writeBytesCRC(b []byte) error {
	w.crc = getCRC(w.crc, b)
	_, err := w.bw.Write(b)
	return err
}

// LoadNative reads a native-dialect snapshot from path, installing
// each record directly via StorageEngine.SetRaw. acceptDB, when
// non-nil, is consulted per record with the database id decoded from
// the record's key (via engine.DecodeKey): records for a database the
// predicate rejects are dropped silently, matching rdb.cpp's
// LoadBuffer behavior under CONTEXT_DUMP_SYNC_LOADING. Pass nil to
// accept every database, the behavior of a plain (non-replication)
// load. tick, if non-nil, is invoked once per chunk read, the same
// cooperative-cancellation hook SaveNative's tick is; a chunk is the
// natural granularity here since records within one are only visible
// to loadBuffer once the whole chunk has been read and decompressed.
func LoadNative(path string, engine StorageEngine, acceptDB func(uint32) bool, tick func() error) error {
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
		return fmt.Errorf("rdb: not a native snapshot file")
	}

	br := bufio.NewReader(f)
	var crc uint64

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
			if err := readAndHashN(br, raw, n, &crc); err != nil {
				return err
			}
			if err := loadBuffer(raw, engine, acceptDB); err != nil {
				return err
			}
			if tick != nil {
				if err := tick(); err != nil {
					return err
				}
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
			compressed := make([]byte, compLen)
			if err := readAndHashN(br, compressed, int(compLen), &crc); err != nil {
				return err
			}
			raw := make([]byte, rawLen)
			if _, err := snappy.Decode(raw, compressed); err != nil {
				return err
			}
			if err := loadBuffer(raw, engine, acceptDB); err != nil {
				return err
			}
			if tick != nil {
				if err := tick(); err != nil {
					return err
				}
			}
		default:
			return errNativeCorrupt
		}
	}
}

func readChunkLen(br *bufio.Reader, crc *uint64) ([]byte, int, error) {
	n, err := readUint32CRC(br, crc)
	if err != nil {
		return nil, 0, err
	}
	return make([]byte, n), int(n), nil
}

func readUint32CRC(br *bufio.Reader, crc *uint64) (uint32, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(br, b); err != nil {
		return 0, err
	}
	*crc = getCRC(*crc, b)
	return binary.LittleEndian.Uint32(b), nil
}

func readAndHashN(br *bufio.Reader, dst []byte, n int, crc *uint64) error {
	if _, err := io.ReadFull(br, dst[:n]); err != nil {
		return err
	}
	*crc = getCRC(*crc, dst[:n])
	return nil
}

// loadBuffer walks one decompressed chunk's (key, value) records,
// inserting each via StorageEngine.SetRaw, filtering by acceptDB when
// given. Grounded on ArdbDumpFile::LoadBuffer.
func loadBuffer(buf []byte, engine StorageEngine, acceptDB func(uint32) bool) error {
	pos := 0
	for pos < len(buf) {
		key, next, err := readVarSlice(buf, pos)
		if err != nil {
			return err
		}
		pos = next

		value, next, err := readVarSlice(buf, pos)
		if err != nil {
			return err
		}
		pos = next

		if acceptDB != nil {
			dk, err := engine.DecodeKey(key)
			if err != nil {
				return err
			}
			if !acceptDB(dk.DB) {
				continue
			}
		}

		if err := engine.SetRaw(key, value); err != nil {
			return err
		}
	}
	return nil
}

func readVarSlice(buf []byte, pos int) (slice []byte, next int, err error) {
	if pos+4 > len(buf) {
		return nil, 0, errNativeCorrupt
	}
	n := int(binary.LittleEndian.Uint32(buf[pos:]))
	pos += 4
	if pos+n > len(buf) {
		return nil, 0, errNativeCorrupt
	}
	return buf[pos : pos+n], pos + n, nil
}
