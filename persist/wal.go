// Package persist implements spec.md §4.7: an append-only WAL sufficient
// to replay state, periodic/on-demand RLP+Merkle snapshots, and crash
// recovery tolerant of a torn trailing write. Nothing here depends on
// account/entity semantics directly — it persists opaque payloads and
// replica-state bytes the caller supplies, rather than interpreting them.
package persist

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlnerrors"
)

// entryHeaderSize is len(payload) uint32 + index uint64 + checksum[32].
const entryHeaderSize = 4 + 8 + 32

// Entry is one WAL record (spec.md §4.7 "each entry is (index,
// checksum=hash(payload), payload)").
type Entry struct {
	Index    uint64
	Checksum codec.Bytes32
	Payload  []byte
}

// WAL is an append-only write-ahead log file (spec.md Glossary "WAL").
type WAL struct {
	mu        sync.Mutex
	f         *os.File
	nextIndex uint64
}

// OpenWAL opens (creating if absent) the WAL file at path, scanning any
// existing entries tolerantly to resume indexing after the last valid one
// (spec.md §9 "Determinism" + §8 S6 crash recovery).
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open wal")
	}
	entries, _ := readEntries(f, true)
	var next uint64
	if len(entries) > 0 {
		next = entries[len(entries)-1].Index + 1
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "seek wal end")
	}
	return &WAL{f: f, nextIndex: next}, nil
}

// Append atomically appends one entry carrying payload and returns its
// index (spec.md §4.7 "append(payload) atomically appends one entry").
func (w *WAL) Append(payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	index := w.nextIndex
	checksum := codec.Hash(payload)

	buf := make([]byte, entryHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint64(buf[4:12], index)
	copy(buf[12:44], checksum[:])
	copy(buf[44:], payload)

	if _, err := w.f.Write(buf); err != nil {
		return 0, errors.Wrap(err, "append wal entry")
	}
	if err := w.f.Sync(); err != nil {
		return 0, errors.Wrap(err, "sync wal")
	}
	w.nextIndex++
	return index, nil
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ReadAllWAL returns every entry in path, in order, failing if any
// entry's checksum does not match its payload (spec.md §4.7 "read_all(path)
// returns entries in order").
func ReadAllWAL(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wal for read")
	}
	defer f.Close()

	entries, err := readEntries(f, false)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadAllWALTolerant returns every entry in path up to, but excluding, the
// first incomplete or checksum-mismatched entry. It never errors on a
// torn trailing write — only recovery (recover.go) should call this
// variant (spec.md §8 S6 "Crash recovery").
func ReadAllWALTolerant(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wal for tolerant read")
	}
	defer f.Close()

	entries, _ := readEntries(f, true)
	return entries, nil
}

// VerifyWALIntegrity recomputes every entry's checksum and returns true
// iff all match (spec.md §4.7 "verify_integrity(path) ... returns true
// iff all match").
func VerifyWALIntegrity(path string) (bool, error) {
	_, err := ReadAllWAL(path)
	if err == nil {
		return true, nil
	}
	if e, ok := errors.Cause(err).(*xlnerrors.E); ok && e.Kind == xlnerrors.KindStorage {
		return false, nil
	}
	return false, err
}

// readEntries reads sequential WAL records from f starting at its current
// offset. In tolerant mode, a truncated or checksum-mismatched record
// stops the read silently (the valid prefix is returned); otherwise it is
// reported as a *xlnerrors.E of KindStorage.
func readEntries(f *os.File, tolerant bool) ([]Entry, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek wal start")
	}

	var entries []Entry
	header := make([]byte, entryHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			if tolerant {
				return entries, nil
			}
			return entries, xlnerrors.New(xlnerrors.KindStorage, "truncated wal header")
		}

		length := binary.BigEndian.Uint32(header[0:4])
		index := binary.BigEndian.Uint64(header[4:12])
		var checksum codec.Bytes32
		copy(checksum[:], header[12:44])

		payload := make([]byte, length)
		if _, err := io.ReadFull(f, payload); err != nil {
			if tolerant {
				return entries, nil
			}
			return entries, xlnerrors.New(xlnerrors.KindStorage, "truncated wal payload", "index", index)
		}

		if codec.Hash(payload) != checksum {
			if tolerant {
				return entries, nil
			}
			return entries, xlnerrors.New(xlnerrors.KindStorage, "wal checksum mismatch", "index", index)
		}

		entries = append(entries, Entry{Index: index, Checksum: checksum, Payload: payload})
	}
}
