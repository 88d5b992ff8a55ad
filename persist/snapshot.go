package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlnerrors"
)

// ReplicaState is one replica's durable state as the caller (account or
// entity machine) hands it to the persistence layer: persist treats Payload
// as opaque, the way kv treats a Put value as opaque (spec.md §4.7
// "replicasRlp is the RLP list of replica state, sorted by replica key").
type ReplicaState struct {
	Key     []byte
	Hash    codec.Bytes32 // contributes one leaf to the snapshot's stateRoot
	Payload []byte        // RLP-encoded replica state
}

// Snapshot is spec.md §4.7's "[height, timestamp, stateRoot, replicasRlp]".
type Snapshot struct {
	Height    uint64
	Timestamp uint64
	StateRoot codec.Bytes32
	Replicas  []ReplicaState
}

// rlpSnapshot/rlpReplica are the canonical wire encodings of Snapshot and
// ReplicaState.
type rlpSnapshot struct {
	Height    uint64
	Timestamp uint64
	StateRoot codec.Bytes32
	Replicas  []rlpReplica
}

type rlpReplica struct {
	Key     []byte
	Hash    codec.Bytes32
	Payload []byte
}

// BuildSnapshot sorts replicas by key, computes stateRoot as the Merkle
// root over their hashes in that sorted order, and returns the snapshot
// (spec.md §4.7 "stateRoot = merkle_root(list of per-replica hashes in
// sorted-key order)").
func BuildSnapshot(height, timestamp uint64, replicas []ReplicaState) *Snapshot {
	sorted := append([]ReplicaState(nil), replicas...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0 })

	leaves := make([]codec.Bytes32, len(sorted))
	for i, r := range sorted {
		leaves[i] = r.Hash
	}
	return &Snapshot{
		Height:    height,
		Timestamp: timestamp,
		StateRoot: codec.MerkleRoot(leaves),
		Replicas:  sorted,
	}
}

func (s *Snapshot) toRLP() *rlpSnapshot {
	replicas := make([]rlpReplica, len(s.Replicas))
	for i, r := range s.Replicas {
		replicas[i] = rlpReplica{Key: r.Key, Hash: r.Hash, Payload: r.Payload}
	}
	return &rlpSnapshot{Height: s.Height, Timestamp: s.Timestamp, StateRoot: s.StateRoot, Replicas: replicas}
}

func fromRLP(w *rlpSnapshot) *Snapshot {
	replicas := make([]ReplicaState, len(w.Replicas))
	for i, r := range w.Replicas {
		replicas[i] = ReplicaState{Key: r.Key, Hash: r.Hash, Payload: r.Payload}
	}
	return &Snapshot{Height: w.Height, Timestamp: w.Timestamp, StateRoot: w.StateRoot, Replicas: replicas}
}

// recomputeStateRoot recomputes stateRoot from s.Replicas, which must
// already be in sorted-key order (as BuildSnapshot and ReadSnapshot leave
// them).
func (s *Snapshot) recomputeStateRoot() codec.Bytes32 {
	leaves := make([]codec.Bytes32, len(s.Replicas))
	for i, r := range s.Replicas {
		leaves[i] = r.Hash
	}
	return codec.MerkleRoot(leaves)
}

// SnapshotPaths returns the canonical binary and debug sibling paths for a
// snapshot at height (spec.md §8 "snapshot-<height>.rlp plus a sibling
// snapshot-<height>.debug.ss").
func SnapshotPaths(dir string, height uint64) (rlpPath, debugPath string) {
	base := filepath.Join(dir, fmt.Sprintf("snapshot-%d", height))
	return base + ".rlp", base + ".debug.ss"
}

// WriteSnapshot writes both the canonical RLP file and the human-readable
// debug sibling for snap. The debug file is informational only (spec.md §8
// "must not be used for recovery").
func WriteSnapshot(dir string, snap *Snapshot) error {
	rlpPath, debugPath := SnapshotPaths(dir, snap.Height)

	encoded, err := codec.EncodeRLP(snap.toRLP())
	if err != nil {
		return errors.Wrap(err, "rlp-encode snapshot")
	}
	f, err := os.OpenFile(rlpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open snapshot rlp for write")
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		return errors.Wrap(err, "write snapshot rlp")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "sync snapshot rlp")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close snapshot rlp")
	}

	if err := os.WriteFile(debugPath, []byte(snap.debugDump()), 0o644); err != nil {
		return errors.Wrap(err, "write snapshot debug dump")
	}
	return nil
}

func (s *Snapshot) debugDump() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "height: %d\n", s.Height)
	fmt.Fprintf(&buf, "timestamp: %d\n", s.Timestamp)
	fmt.Fprintf(&buf, "stateRoot: %s\n", s.StateRoot.String())
	fmt.Fprintf(&buf, "replicas: %d\n", len(s.Replicas))
	for _, r := range s.Replicas {
		fmt.Fprintf(&buf, "  key=%x hash=%s payloadLen=%d\n", r.Key, r.Hash.String(), len(r.Payload))
	}
	return buf.String()
}

// ReadSnapshot reads and decodes the canonical RLP file at path, verifying
// that the decoded replicas' recomputed stateRoot matches the stored value
// (spec.md §4.7 "Integrity is verified by recomputing stateRoot from the
// decoded binary and comparing with the stored value").
func ReadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot file")
	}
	var wire rlpSnapshot
	if err := codec.DecodeRLP(raw, &wire); err != nil {
		return nil, xlnerrors.New(xlnerrors.KindStorage, "malformed snapshot rlp", "path", path)
	}
	snap := fromRLP(&wire)
	if snap.recomputeStateRoot() != snap.StateRoot {
		return nil, xlnerrors.New(xlnerrors.KindFatal, "snapshot stateRoot mismatch on recover", "path", path, "height", snap.Height)
	}
	return snap, nil
}
