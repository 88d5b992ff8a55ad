package entity

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/boundary"
	"github.com/xlnfi/xln-core/cache"
	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlnerrors"
	"github.com/xlnfi/xln-core/xlntypes"
)

// sigCacheSize bounds Replica.sigCache to a per-validator-set-sized
// working set.
const sigCacheSize = 256

// MempoolLimit bounds a Replica's pending entity-tx queue (spec.md §5).
const MempoolLimit = 1000

// Replica is one validator's view of the entity BFT machine (spec.md
// §4.5): propose/precommit/commit over a fixed ValidatorSet.
type Replica struct {
	SignerId xlntypes.SignerId
	signer   boundary.Signer

	validators *ValidatorSet

	CurrentHeight uint64
	CurrentFrame  *Frame
	State         State

	// LockedFrame is the frame this replica has precommitted for
	// CurrentHeight+1. It is released once a commit at its own height or
	// higher is applied (spec.md §9 Open Question "Validator locking
	// release").
	LockedFrame *Frame

	pendingTxs        []Tx
	insertionSeq      uint64
	proposerOverrides map[uint64]xlntypes.SignerId

	quorums  map[uint64]map[codec.Bytes32]*quorumSet
	seen     map[uint64]map[string]codec.Bytes32 // height -> signerId(string) -> first hash signed
	evidence []Evidence

	lockedAt map[uint64]time.Time // height -> time this replica first locked a frame for it, for quorum latency

	// sigCache memoizes signature verification by (signer, hash,
	// signature), avoiding redundant crypto verification when a gossiped
	// vote is relayed to this replica more than once.
	sigCache *cache.LRU

	log log.Logger
}

// NewReplica creates a fresh Replica for signerId within validators.
func NewReplica(signerId xlntypes.SignerId, validators *ValidatorSet, signer boundary.Signer) *Replica {
	r := &Replica{
		SignerId:          signerId,
		signer:            signer,
		validators:        validators,
		proposerOverrides: make(map[uint64]xlntypes.SignerId),
		quorums:           make(map[uint64]map[codec.Bytes32]*quorumSet),
		seen:              make(map[uint64]map[string]codec.Bytes32),
		lockedAt:          make(map[uint64]time.Time),
		sigCache:          cache.NewLRU(sigCacheSize),
		log:               log.New("pkg", "entity", "signer", signerId.String()),
	}
	r.CurrentFrame = &Frame{Height: 0, PrevFrameHash: GenesisPrevHash()}
	r.CurrentFrame.StateHash = r.CurrentFrame.ComputeStateHash()
	return r
}

// AddTx enqueues tx in this replica's mempool, subject to MempoolLimit.
func (r *Replica) AddTx(tx Tx) error {
	if len(r.pendingTxs) >= MempoolLimit {
		return xlnerrors.New(xlnerrors.KindValidation, "entity mempool full", "limit", MempoolLimit)
	}
	tx.InsertionIndex = r.insertionSeq
	r.insertionSeq++
	r.pendingTxs = append(r.pendingTxs, tx)
	return nil
}

// MempoolLen returns the number of queued, not-yet-proposed transactions.
func (r *Replica) MempoolLen() int { return len(r.pendingTxs) }

// ProposerFor returns the designated proposer for height, honoring any
// change_proposer override (spec.md §4.5 liveness operation) before
// falling back to round-robin.
func (r *Replica) ProposerFor(height uint64) xlntypes.SignerId {
	if signerId, ok := r.proposerOverrides[height]; ok {
		return signerId
	}
	return r.validators.ProposerAt(height)
}

// ChangeProposer overrides the proposer for height (spec.md §4.5
// "the core exposes a change_proposer operation" for liveness during
// proposer failure).
func (r *Replica) ChangeProposer(height uint64, signerId xlntypes.SignerId) {
	r.proposerOverrides[height] = signerId
}

// Propose drains the mempool (if this replica is proposer for the next
// height and no proposal is outstanding), builds and signs an EntityFrame
// (spec.md §4.5 step 1), and returns it for broadcast to every other
// validator. The proposer locks and tallies its own precommit immediately
// (the same outcome OnPropose would produce for it), rather than routing
// its own proposal back through OnPropose. Returns (nil, nil) if this
// replica is not proposer, or there is nothing to propose.
func (r *Replica) Propose(timestamp uint64) (*Frame, error) {
	height := r.CurrentHeight + 1
	if !r.ProposerFor(height).Equal(r.SignerId) {
		return nil, nil
	}
	if r.LockedFrame != nil || len(r.pendingTxs) == 0 {
		return nil, nil
	}

	txs := r.pendingTxs
	r.pendingTxs = nil
	SortTxs(txs)

	frame := &Frame{Height: height, PrevFrameHash: r.CurrentFrame.StateHash, Txs: txs, Timestamp: timestamp}
	frame.StateHash = frame.ComputeStateHash()

	sig, err := r.signer.Sign(r.SignerId, frame.StateHash[:])
	if err != nil {
		r.pendingTxs = txs
		return nil, errors.Wrap(err, "sign proposed entity frame")
	}
	frame.Signatures = map[string][]byte{string(r.SignerId): sig}

	r.LockedFrame = frame
	r.State = StatePrecommitted
	r.markLocked(frame.Height)
	r.recordSigned(frame.Height, r.SignerId, frame.StateHash)
	r.recordVote(frame.Height, frame.StateHash, r.SignerId, r.validators.PowerOf(r.SignerId), sig)

	return frame, nil
}

// OnPropose validates a received proposal (spec.md §4.5 step 2): expected
// height, valid proposer signature, frame-chain linkage, and independent
// re-execution (here, recomputation of stateHash from the frame's own
// fields, since entity txs are opaque application payloads the core does
// not interpret). On success it locks the frame and returns this
// replica's precommit vote.
func (r *Replica) OnPropose(frame *Frame, proposerId xlntypes.SignerId) (*PrecommitVote, error) {
	if frame.Height != r.CurrentHeight+1 {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "unexpected entity frame height", "want", r.CurrentHeight+1, "got", frame.Height)
	}
	if frame.PrevFrameHash != r.CurrentFrame.StateHash {
		return nil, xlnerrors.New(xlnerrors.KindDivergence, "entity frame-chain linkage mismatch")
	}
	if !r.ProposerFor(frame.Height).Equal(proposerId) {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "proposal from non-designated proposer")
	}
	proposerSig, ok := frame.SignatureFor(proposerId)
	if !ok || !r.verifySigCached(proposerId, frame.StateHash, proposerSig) {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "invalid proposer signature")
	}
	recomputed := frame.ComputeStateHash()
	if recomputed != frame.StateHash {
		return nil, xlnerrors.New(xlnerrors.KindDivergence, "entity frame state hash mismatch")
	}
	r.recordSigned(frame.Height, proposerId, recomputed)
	r.recordVote(frame.Height, recomputed, proposerId, r.validators.PowerOf(proposerId), proposerSig)

	if r.LockedFrame != nil && r.LockedFrame.Height == frame.Height && r.LockedFrame.StateHash != recomputed {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "already locked to a different frame at this height")
	}

	r.LockedFrame = frame
	r.State = StatePrecommitted
	r.markLocked(frame.Height)

	sig, err := r.signer.Sign(r.SignerId, frame.StateHash[:])
	if err != nil {
		return nil, errors.Wrap(err, "sign entity precommit")
	}
	r.recordSigned(frame.Height, r.SignerId, recomputed)
	r.recordVote(frame.Height, recomputed, r.SignerId, r.validators.PowerOf(r.SignerId), sig)

	return &PrecommitVote{SignerId: r.SignerId, Height: frame.Height, StateHash: recomputed, Signature: sig}, nil
}

// CollectPrecommit folds a peer's precommit vote into this replica's local
// quorum tally and returns a ready-to-broadcast CommitNotification the
// instant voting power crosses quorum (spec.md §4.5 step 3: "the proposer
// (or any replica)" may be the one to notice quorum and emit the commit).
func (r *Replica) CollectPrecommit(vote *PrecommitVote) (*CommitNotification, error) {
	if !r.validators.IsValidator(vote.SignerId) {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "precommit from non-validator")
	}
	if !r.verifySigCached(vote.SignerId, vote.StateHash, vote.Signature) {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "invalid precommit signature")
	}
	r.recordSigned(vote.Height, vote.SignerId, vote.StateHash)
	crossed := r.recordVote(vote.Height, vote.StateHash, vote.SignerId, r.validators.PowerOf(vote.SignerId), vote.Signature)
	if !crossed {
		return nil, nil
	}
	if r.LockedFrame == nil || r.LockedFrame.Height != vote.Height || r.LockedFrame.StateHash != vote.StateHash {
		// Quorum reached on a hash this replica has not itself locked
		// (e.g. it joined late); it cannot assemble the frame to
		// broadcast, only tally the signatures for whoever has it.
		return nil, nil
	}
	return &CommitNotification{Frame: r.LockedFrame, Signatures: r.quorums[vote.Height][vote.StateHash].signatureMap()}, nil
}

// OnCommit applies a quorum commit notification (spec.md §4.5 step 3):
// verifies the signature set's voting power reaches quorum and that every
// signature from a validator verifies (others are skipped), applies the frame, advances height, clears the
// proposal and unlocks.
func (r *Replica) OnCommit(notif *CommitNotification) error {
	frame := notif.Frame
	if frame.Height != r.CurrentHeight+1 {
		return xlnerrors.New(xlnerrors.KindValidation, "unexpected commit height", "want", r.CurrentHeight+1, "got", frame.Height)
	}
	if frame.PrevFrameHash != r.CurrentFrame.StateHash {
		return xlnerrors.New(xlnerrors.KindDivergence, "entity frame-chain linkage mismatch")
	}
	recomputed := frame.ComputeStateHash()
	if recomputed != frame.StateHash {
		return xlnerrors.New(xlnerrors.KindDivergence, "entity frame state hash mismatch")
	}

	var power uint64
	for signerId, sig := range notif.Signatures {
		id := xlntypes.ID(signerId)
		if !r.validators.IsValidator(id) {
			continue
		}
		if !r.verifySigCached(id, recomputed, sig) {
			return xlnerrors.New(xlnerrors.KindValidation, "invalid commit signature", "signer", id.String())
		}
		r.recordSigned(frame.Height, id, recomputed)
		power += r.validators.PowerOf(id)
	}
	if power < r.validators.Quorum() {
		return xlnerrors.New(xlnerrors.KindQuorum, "commit signatures below quorum", "power", power, "quorum", r.validators.Quorum())
	}

	r.CurrentFrame = frame
	r.CurrentHeight = frame.Height
	if r.LockedFrame != nil && r.LockedFrame.Height <= r.CurrentHeight {
		r.LockedFrame = nil
	}
	for h := range r.quorums {
		if h <= r.CurrentHeight {
			delete(r.quorums, h)
		}
	}
	for h := range r.seen {
		if h <= r.CurrentHeight {
			delete(r.seen, h)
		}
	}
	if lockedAt, ok := r.lockedAt[frame.Height]; ok {
		metricQuorumLatencyMicros().Observe(time.Since(lockedAt).Microseconds())
		delete(r.lockedAt, frame.Height)
	}
	r.State = StateCommitted
	metricFramesCommitted().Add(1)
	return nil
}

// recordVote adds signerId's vote to the (height, hash) quorum tally,
// creating it if necessary, and reports whether this call is the one that
// first crossed the quorum threshold.
func (r *Replica) recordVote(height uint64, hash codec.Bytes32, signerId xlntypes.SignerId, power uint64, sig []byte) bool {
	byHash, ok := r.quorums[height]
	if !ok {
		byHash = make(map[codec.Bytes32]*quorumSet)
		r.quorums[height] = byHash
	}
	qs, ok := byHash[hash]
	if !ok {
		qs = newQuorumSet(r.validators.Quorum())
		byHash[hash] = qs
	}
	return qs.addVote(signerId, power, sig)
}

// recordSigned tracks the first frame hash each signer has signed at each
// height, and appends Evidence the moment a signer is seen signing a
// second, different hash at the same height (spec.md §4.5 "a validator
// that signs two different frames at the same height is evidence"). The
// core only records this; it never slashes or rejects on its account.
func (r *Replica) recordSigned(height uint64, signerId xlntypes.SignerId, hash codec.Bytes32) {
	byHeight, ok := r.seen[height]
	if !ok {
		byHeight = make(map[string]codec.Bytes32)
		r.seen[height] = byHeight
	}
	key := string(signerId)
	first, ok := byHeight[key]
	if !ok {
		byHeight[key] = hash
		return
	}
	if first != hash {
		r.evidence = append(r.evidence, Evidence{SignerId: signerId, Height: height, FirstHash: first, SecondHash: hash})
		r.log.Warn("double-signing evidence", "signer", signerId.String(), "height", height)
		metricDoubleSignReports().Add(1)
	}
}

// verifySigCached verifies signerId's signature over hash, memoizing the
// result in sigCache: the same (signer, hash, signature) triple recurs
// whenever a vote is relayed to this replica more than once, and
// signature verification is the dominant cost of processing a vote.
func (r *Replica) verifySigCached(signerId xlntypes.SignerId, hash codec.Bytes32, sig []byte) bool {
	key := string(signerId) + "|" + string(hash[:]) + "|" + string(sig)
	v, _ := r.sigCache.GetOrLoad(key, func(interface{}) (interface{}, error) {
		return r.signer.Verify(signerId, hash[:], sig), nil
	})
	ok, _ := v.(bool)
	return ok
}

// markLocked records the first time this replica locks a frame at height,
// the start point for the quorum-latency metric observed in OnCommit. The
// wall-clock read is metrics-only: it never feeds a hash, vote, or commit
// decision, so it does not affect consensus determinism.
func (r *Replica) markLocked(height uint64) {
	if _, ok := r.lockedAt[height]; !ok {
		r.lockedAt[height] = time.Now()
	}
}

// Evidence returns every double-signing evidence record collected so far.
func (r *Replica) Evidence() []Evidence {
	return append([]Evidence(nil), r.evidence...)
}
