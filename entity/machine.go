package entity

import (
	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlntypes"
)

// State is a replica's position in the idle → proposed → precommitted →
// committed cycle of spec.md §4.5.
type State uint8

const (
	StateIdle State = iota
	StateProposed
	StatePrecommitted
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProposed:
		return "proposed"
	case StatePrecommitted:
		return "precommitted"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// PrecommitVote is a validator's signature over a proposed frame's
// stateHash at a given height (spec.md §4.5 step 2).
type PrecommitVote struct {
	SignerId  xlntypes.SignerId
	Height    uint64
	StateHash codec.Bytes32
	Signature []byte
}

// CommitNotification is broadcast once a frame's signatures reach quorum
// voting power (spec.md §4.5 step 3): "it emits a commit notification
// containing the signature map."
type CommitNotification struct {
	Frame      *Frame
	Signatures map[string][]byte
}

// Evidence records that SignerId signed two different frame hashes at the
// same height — double-signing, reported but never slashed by the core
// (spec.md §4.5 "the core only reports such evidence").
type Evidence struct {
	SignerId   xlntypes.SignerId
	Height     uint64
	FirstHash  codec.Bytes32
	SecondHash codec.Bytes32
}

// quorumSet tallies voting power behind one (height, frame hash) pair:
// votes map keyed by signer, a running power total, and the quorum
// threshold it is racing toward.
type quorumSet struct {
	votes     map[string][]byte
	power     uint64
	threshold uint64
	committed bool
}

func newQuorumSet(threshold uint64) *quorumSet {
	return &quorumSet{votes: make(map[string][]byte), threshold: threshold}
}

// addVote records signerId's signature, worth power voting power, unless
// already recorded. Returns whether this call is the one that first
// crossed the threshold (so the caller emits a commit notification
// exactly once).
func (q *quorumSet) addVote(signerId xlntypes.SignerId, power uint64, sig []byte) bool {
	key := string(signerId)
	if _, exists := q.votes[key]; exists {
		return false
	}
	q.votes[key] = sig
	q.power += power
	if !q.committed && q.power >= q.threshold {
		q.committed = true
		return true
	}
	return false
}

func (q *quorumSet) isCommitted() bool { return q.committed }

func (q *quorumSet) signatureMap() map[string][]byte {
	out := make(map[string][]byte, len(q.votes))
	for k, v := range q.votes {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
