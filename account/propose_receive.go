package account

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/subcontract"
	"github.com/xlnfi/xln-core/xlnerrors"
)

// Propose implements spec.md §4.4 "Propose": if the mempool is non-empty
// and no frame is already pending, build and sign a new frame, draining
// the mempool into it, and return the Input to send. Returns (nil, nil)
// when there is nothing to propose (spec.md §8 "Zero-length mempool:
// propose returns no message").
func (m *Machine) Propose(timestamp uint64) (*Input, error) {
	if m.PendingFrame != nil || m.mp.len() == 0 {
		return nil, nil
	}
	frame, err := m.buildPendingFrame(timestamp)
	if err != nil {
		return nil, err
	}
	m.SendCounter++
	return &Input{
		FromEntityId:    m.Self,
		ToEntityId:      m.Counterparty,
		Height:          frame.Height,
		Counter:         m.SendCounter,
		NewAccountFrame: frame,
		NewSignatures:   frame.Signatures,
	}, nil
}

// buildPendingFrame drains the mempool, tentatively applies it to a clone
// of account state, and on success sets m.PendingFrame (plus the matching
// pendingDeltas/pendingSubs, promoted to live state on commit) and returns
// the signed frame. On failure the drained txs are restored to the
// mempool head and no Machine field is touched.
func (m *Machine) buildPendingFrame(timestamp uint64) (*Frame, error) {
	txs := m.mp.drain()

	cloneDeltas := cloneDeltaMap(m.Deltas)
	cloneSubs := cloneSubMap(m.Subcontracts)
	if err := m.applyTxs(cloneDeltas, cloneSubs, txs, timestamp); err != nil {
		m.mp.prepend(txs)
		return nil, err
	}

	tokenIds, deltaValues, full := BuildTokenLists(cloneDeltas)
	frame := &Frame{
		Height:          m.CurrentHeight + 1,
		Timestamp:       timestamp,
		PrevFrameHash:   append([]byte(nil), m.CurrentFrame.StateHash[:]...),
		AccountTxs:      txs,
		TokenIds:        tokenIds,
		Deltas:          deltaValues,
		FullDeltaStates: full,
	}
	frame.StateHash = frame.ComputeStateHash()

	if len(codec.MustEncodeRLP(frame.canonical())) > MaxFrameBytes {
		m.mp.prepend(txs)
		return nil, xlnerrors.New(xlnerrors.KindValidation, "frame exceeds max size")
	}

	sig, err := m.signer.Sign(m.signerId, frame.StateHash[:])
	if err != nil {
		m.mp.prepend(txs)
		return nil, errors.Wrap(err, "sign proposed frame")
	}
	frame.Signatures = [][]byte{sig}

	m.PendingFrame = frame
	m.pendingDeltas = cloneDeltas
	m.pendingSubs = cloneSubs
	m.SentTransitions = uint64(len(txs))
	return frame, nil
}

// Receive implements spec.md §4.4 "Receive": validates and advances the
// replay counter, then processes an optional ACK (PrevSignatures) followed
// by an optional new proposal (NewAccountFrame) — including the
// simultaneous-proposal tiebreak and the batched ACK+propose response.
// It returns the Input to send back (if any) or an error classifying why
// the message was rejected.
func (m *Machine) Receive(in *Input, timestamp uint64) (*Input, error) {
	if err := m.checkCounter(in.Counter); err != nil {
		return nil, err
	}

	if len(in.PrevSignatures) > 0 {
		if err := m.handleAck(in.PrevSignatures); err != nil {
			return nil, err
		}
	}

	if in.NewAccountFrame == nil {
		return nil, nil
	}
	return m.handleNewFrame(in.NewAccountFrame, timestamp)
}

// checkCounter enforces spec.md §4.4 "Counter discipline": an incoming
// message's counter must equal ackedTransitions + 1, checked and advanced
// before any other state mutation (spec.md §7).
func (m *Machine) checkCounter(counter uint64) error {
	want := m.AckedTransitions + 1
	if counter != want {
		return xlnerrors.New(xlnerrors.KindReplay, "counter mismatch", "want", want, "got", counter)
	}
	m.AckedTransitions = counter
	m.ReceiveCounter = counter
	return nil
}

// handleAck commits our own PendingFrame once the counterparty's ACK
// signature verifies, per spec.md §4.4 step 2.
func (m *Machine) handleAck(prevSignatures [][]byte) error {
	if m.PendingFrame == nil {
		return xlnerrors.New(xlnerrors.KindValidation, "ack with no pending frame")
	}
	if !m.verifyAny(m.PendingFrame.StateHash, prevSignatures) {
		return xlnerrors.New(xlnerrors.KindValidation, "invalid ack signature")
	}

	committed := m.PendingFrame
	committed.Signatures = append(append([][]byte{}, committed.Signatures...), prevSignatures...)
	m.commitFrame(committed, m.pendingDeltas, m.pendingSubs)

	m.PendingFrame = nil
	m.pendingDeltas, m.pendingSubs = nil, nil
	m.SentTransitions = 0
	if m.RollbackCount > 0 {
		m.RollbackCount--
	}
	return nil
}

// handleNewFrame processes an incoming proposal: the simultaneous-proposal
// tiebreak, frame-chain linkage and signature checks, independent
// re-execution, and (on success) commit plus the ACK response, optionally
// bundled with our own next proposal.
func (m *Machine) handleNewFrame(received *Frame, timestamp uint64) (*Input, error) {
	if m.PendingFrame != nil && m.PendingFrame.Height == received.Height {
		if m.isLeft {
			// Left wins ties: keep our own pending frame and do not answer
			// this one (spec.md §4.4 "Simultaneous-proposal tiebreak").
			return nil, nil
		}
		if m.RollbackCount >= 1 {
			return nil, xlnerrors.New(xlnerrors.KindFatal, "two consecutive rollbacks")
		}
		m.mp.prepend(m.PendingFrame.AccountTxs)
		m.PendingFrame = nil
		m.pendingDeltas, m.pendingSubs = nil, nil
		m.SentTransitions = 0
		m.RollbackCount = 1
	}

	if received.Height != m.CurrentHeight+1 {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "unexpected frame height",
			"want", m.CurrentHeight+1, "got", received.Height)
	}
	if !bytes.Equal(received.PrevFrameHash, m.CurrentFrame.StateHash[:]) {
		return nil, xlnerrors.New(xlnerrors.KindDivergence, "frame-chain linkage mismatch")
	}
	if received.ComputeStateHash() != received.StateHash {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "frame state hash mismatch")
	}
	if len(received.Signatures) == 0 || !m.verifyAny(received.StateHash, received.Signatures) {
		return nil, xlnerrors.New(xlnerrors.KindValidation, "invalid proposer signature")
	}

	cloneDeltas := cloneDeltaMap(m.Deltas)
	cloneSubs := cloneSubMap(m.Subcontracts)
	if err := m.applyTxs(cloneDeltas, cloneSubs, received.AccountTxs, timestamp); err != nil {
		return nil, err
	}
	tokenIds, values, _ := BuildTokenLists(cloneDeltas)
	if !SameTokenLists(tokenIds, values, received.TokenIds, received.Deltas) {
		return nil, xlnerrors.New(xlnerrors.KindDivergence, "independent re-execution diverged from proposed frame")
	}

	m.commitFrame(received, cloneDeltas, cloneSubs)

	sig, err := m.signer.Sign(m.signerId, received.StateHash[:])
	if err != nil {
		return nil, errors.Wrap(err, "sign ack")
	}

	m.SendCounter++
	resp := &Input{
		FromEntityId:   m.Self,
		ToEntityId:     m.Counterparty,
		Height:         received.Height,
		Counter:        m.SendCounter,
		PrevSignatures: [][]byte{sig},
	}

	if m.PendingFrame == nil && m.mp.len() > 0 {
		if frame, err := m.buildPendingFrame(timestamp); err == nil {
			resp.NewAccountFrame = frame
			resp.NewSignatures = frame.Signatures
		}
	}
	return resp, nil
}

func (m *Machine) verifyAny(hash codec.Bytes32, sigs [][]byte) bool {
	for _, sig := range sigs {
		if m.signer.Verify(m.counterpartySignerId(), hash[:], sig) {
			return true
		}
	}
	return false
}

// counterpartySignerId assumes a single signer per side for the bilateral
// account layer (unlike the entity BFT layer's validator sets): the
// counterparty signs with its own EntityId.
func (m *Machine) counterpartySignerId() []byte {
	return m.Counterparty
}

// commitFrame advances CurrentFrame/CurrentHeight/Deltas/Subcontracts and
// trims FrameHistory to its bounded tail (spec.md §3 "frameHistory").
func (m *Machine) commitFrame(frame *Frame, deltas map[string]*Delta, subs map[string]*subcontract.HTLC) {
	m.CurrentFrame = frame
	m.CurrentHeight = frame.Height
	m.Deltas = deltas
	m.Subcontracts = subs
	m.FrameHistory = append(m.FrameHistory, frame)
	if len(m.FrameHistory) > FrameHistoryLimit {
		m.FrameHistory = m.FrameHistory[len(m.FrameHistory)-FrameHistoryLimit:]
	}
}
