package main

import (
	"strconv"

	"github.com/xlnfi/xln-core/codec"
)

// frameRecord is the WAL payload this CLI reads and writes: the minimal
// per-height state needed for divergence reporting and snapshotting
// (spec.md §4.7's WAL is a linearized log of "committed frames and other
// consensus-relevant events" — the core defines the log; a host process
// decides what exactly each entry's payload encodes). A real node wires
// its own entity.Frame/account.Frame commits into the WAL; this CLI
// operates on the same record shape so it can demonstrate and verify the
// persist package end to end without depending on a live process.
type frameRecord struct {
	Height    uint64
	Timestamp uint64
	StateHash codec.Bytes32
}

func encodeRecord(r frameRecord) []byte {
	return codec.MustEncodeRLP(&r)
}

func decodeRecord(payload []byte) (frameRecord, error) {
	var r frameRecord
	err := codec.DecodeRLP(payload, &r)
	return r, err
}

// heightKey renders height as a sortable decimal key for persist.ReplicaState
// (snapshot replicas are sorted lexicographically by key, spec.md §4.7).
func heightKey(height uint64) []byte {
	s := strconv.FormatUint(height, 10)
	for len(s) < 20 { // zero-pad so lexicographic order matches numeric order
		s = "0" + s
	}
	return []byte(s)
}
