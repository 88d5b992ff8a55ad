package subcontract

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlnerrors"
	"github.com/xlnfi/xln-core/xlntypes"
)

// HTLCStatus is the lifecycle state of a hash time-locked contract
// (spec.md §4.3: locked → claimed | refunded).
type HTLCStatus int

const (
	HTLCLocked HTLCStatus = iota
	HTLCClaimed
	HTLCRefunded
)

func (s HTLCStatus) String() string {
	switch s {
	case HTLCLocked:
		return "locked"
	case HTLCClaimed:
		return "claimed"
	case HTLCRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// HTLC is a hash time-locked contract attached to an account (spec.md §3
// "Subcontract (HTLC variant)").
type HTLC struct {
	Id               string
	Amount           *big.Int
	TokenId          xlntypes.TokenId
	HashLock         codec.Bytes32
	Timeout          uint64 // compared against the frame's deterministic timestamp, never wall clock
	Sender           xlntypes.EntityId
	Receiver         xlntypes.EntityId
	RevealedPreimage []byte
	Status           HTLCStatus
	DeltaApplied     bool // true once the claimed transfer has been folded into a committed frame
}

// Clone returns a deep copy of h, used when a frame proposal clones account
// state to apply changes tentatively before a commit (account.Machine).
func (h *HTLC) Clone() *HTLC {
	cp := *h
	cp.RevealedPreimage = append([]byte(nil), h.RevealedPreimage...)
	return &cp
}

// NewHTLC locks amount of tokenId from sender to receiver, revealed by
// preimage whose hash is hashLock, expiring at timeout.
func NewHTLC(id string, amount *big.Int, tokenId xlntypes.TokenId, hashLock codec.Bytes32, timeout uint64, sender, receiver xlntypes.EntityId) *HTLC {
	return &HTLC{
		Id: id, Amount: amount, TokenId: tokenId, HashLock: hashLock,
		Timeout: timeout, Sender: sender, Receiver: receiver, Status: HTLCLocked,
	}
}

// HashPreimage computes hash(preimage) using the same SHA-256 primitive as
// codec.Hash, so HashLock == codec.Hash(preimage) is the claim condition.
func HashPreimage(preimage []byte) codec.Bytes32 {
	return codec.Hash(preimage)
}

// Claim attempts to transition locked → claimed: the receiver presents
// preimage before timeout. now is the per-frame deterministic timestamp,
// never wall-clock (spec.md §5 "Cancellation and timeouts").
func (h *HTLC) Claim(preimage []byte, now uint64) error {
	if h.Status != HTLCLocked {
		return &Error{Reason: "double_claim_or_refund", HTLCId: h.Id}
	}
	if now >= h.Timeout {
		return &Error{Reason: "claim_after_timeout", HTLCId: h.Id}
	}
	if HashPreimage(preimage) != h.HashLock {
		return &Error{Reason: "wrong_preimage", HTLCId: h.Id}
	}
	h.RevealedPreimage = append([]byte(nil), preimage...)
	h.Status = HTLCClaimed
	return nil
}

// Refund attempts to transition locked → refunded: the sender reclaims at
// or after timeout.
func (h *HTLC) Refund(now uint64) error {
	if h.Status != HTLCLocked {
		return &Error{Reason: "double_claim_or_refund", HTLCId: h.Id}
	}
	if now < h.Timeout {
		return &Error{Reason: "refund_before_timeout", HTLCId: h.Id}
	}
	h.Status = HTLCRefunded
	return nil
}

// Error is the structured SubcontractError of spec.md §7.
type Error struct {
	Reason string
	HTLCId string
}

func (e *Error) Error() string {
	return errors.Errorf("subcontract error: %s (htlc=%s)", e.Reason, e.HTLCId).Error()
}

func (e *Error) Is(target error) bool {
	return target == xlnerrors.ErrSubcontract
}

// AsTransformer wraps an *HTLC as a DeltaTransformer, signed from the
// canonical left entity's point of view (left is whichever side of the
// account sorts first, the same reference frame account.Machine uses for
// a frame's tokenIds/deltas): once claimed, it contributes the transfer
// exactly once, positive if left is the receiver and negative if left is
// the sender. h.DeltaApplied marks the one-shot transfer as folded so
// re-evaluating an already-committed HTLC (e.g. when building the next
// frame) does not double-apply it.
func AsTransformer(h *HTLC, left xlntypes.EntityId) DeltaTransformer {
	return &htlcTransformer{htlc: h, left: left}
}

type htlcTransformer struct {
	htlc *HTLC
	left xlntypes.EntityId
}

func (t *htlcTransformer) ID() string { return "htlc:" + t.htlc.Id }

func (t *htlcTransformer) Condition(_ AccountView) bool {
	return !t.htlc.DeltaApplied && t.htlc.Status == HTLCClaimed
}

func (t *htlcTransformer) Apply(_ AccountView) []DeltaChange {
	t.htlc.DeltaApplied = true
	change := new(big.Int).Set(t.htlc.Amount)
	if t.htlc.Sender.Equal(t.left) {
		change.Neg(change)
	}
	return []DeltaChange{
		{TokenId: t.htlc.TokenId, Change: change},
	}
}
