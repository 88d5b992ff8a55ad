package account

import "github.com/xlnfi/xln-core/xlntypes"

// Input is the AccountInput wire message of spec.md §3/§6. A single
// message may carry both an ACK (PrevSignatures, for the pendingFrame we
// previously sent) and a new proposal (NewAccountFrame) — the batched
// ACK+propose optimization of spec.md §4.4.
type Input struct {
	FromEntityId xlntypes.EntityId
	ToEntityId   xlntypes.EntityId
	Height       uint64
	Counter      uint64

	NewAccountFrame *Frame   // proposer's new frame, if any
	NewSignatures   [][]byte // proposer's signature(s) on NewAccountFrame
	PrevSignatures  [][]byte // ACK signature(s) on the previously proposed frame
}
