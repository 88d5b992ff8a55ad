package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/boundary"
	"github.com/xlnfi/xln-core/subcontract"
	"github.com/xlnfi/xln-core/xlnerrors"
	"github.com/xlnfi/xln-core/xlntypes"
)

// FrameHistoryLimit bounds AccountMachine.frameHistory (spec.md §3).
const FrameHistoryLimit = 10

// MaxFrameBytes bounds an AccountFrame's encoded size (spec.md §4.4 "Frame
// size").
const MaxFrameBytes = 1 << 20 // 1 MiB

// ForwardInfo carries the next hop of an in-flight multi-hop payment by id,
// never by a binding to the counterparty's replica (spec.md §9 "Cyclic
// references").
type ForwardInfo struct {
	NextHop xlntypes.EntityId
	HTLCId  string
}

// ProofHeader is the dispute-proof header cached alongside account state
// (spec.md §3).
type ProofHeader struct {
	FromEntity       xlntypes.EntityId
	ToEntity         xlntypes.EntityId
	CooperativeNonce uint64
	DisputeNonce     uint64
}

// ProofBody is the dispute-proof body cached alongside account state
// (spec.md §3).
type ProofBody struct {
	TokenIds []xlntypes.TokenId
	Deltas   []*big.Int
}

// Machine is the AccountMachine of spec.md §3/§4.4: one local entity's view
// of its bilateral account with counterpartyEntityId.
type Machine struct {
	Self          xlntypes.EntityId
	Counterparty  xlntypes.EntityId
	isLeft        bool
	signer        boundary.Signer
	signerId      xlntypes.SignerId // the id this machine signs frames with; defaults to Self

	mp           mempool
	CurrentFrame *Frame
	PendingFrame *Frame
	FrameHistory []*Frame

	// pendingDeltas/pendingSubs are the account state that would result if
	// PendingFrame is ACKed. They are computed once, in buildPendingFrame, and
	// promoted to Deltas/Subcontracts on commit rather than recomputed, so
	// commit can never itself fail on an RCPAN/subcontract violation.
	pendingDeltas map[string]*Delta
	pendingSubs   map[string]*subcontract.HTLC

	Deltas             map[string]*Delta // key: string(tokenId)
	Subcontracts       map[string]*subcontract.HTLC
	GlobalCreditLimits map[string]*big.Int

	CurrentHeight uint64
	ProofHeader   ProofHeader
	ProofBody     ProofBody

	SendCounter      uint64
	ReceiveCounter   uint64
	SentTransitions  uint64
	AckedTransitions uint64
	RollbackCount    int
	PendingForward   *ForwardInfo

	log log.Logger
}

// NewMachine creates a fresh AccountMachine between self and counterparty,
// signing with signer under signerId (typically self).
func NewMachine(self, counterparty xlntypes.EntityId, signer boundary.Signer, signerId xlntypes.SignerId) *Machine {
	left, _ := xlntypes.LeftRight(self, counterparty)
	m := &Machine{
		Self: self, Counterparty: counterparty,
		isLeft: self.Equal(left),
		signer: signer, signerId: signerId,
		Deltas:             make(map[string]*Delta),
		Subcontracts:       make(map[string]*subcontract.HTLC),
		GlobalCreditLimits: make(map[string]*big.Int),
		ProofHeader:        ProofHeader{FromEntity: self, ToEntity: counterparty},
		log:                log.New("pkg", "account", "self", self.String(), "counterparty", counterparty.String()),
	}
	m.CurrentFrame = &Frame{Height: 0, PrevFrameHash: GenesisPrevHash()}
	m.CurrentFrame.StateHash = m.CurrentFrame.ComputeStateHash()
	return m
}

// IsLeft reports whether self is the canonical left side of the pair.
func (m *Machine) IsLeft() bool { return m.isLeft }

// SelfDelta reports tokenId's net delta from self's own point of view:
// positive means the counterparty owes self (spec.md Glossary "Delta").
// Deltas is always stored canonically from the left entity's point of
// view (so both sides hash identical frames); SelfDelta mirrors it for
// the right side's own display/bookkeeping purposes only — it is never
// used in consensus-affecting computation.
func (m *Machine) SelfDelta(tokenId xlntypes.TokenId) *big.Int {
	net := m.deltaFor(tokenId).Net()
	if m.isLeft {
		return net
	}
	return new(big.Int).Neg(net)
}

func (m *Machine) deltaFor(tokenId xlntypes.TokenId) *Delta {
	key := string(tokenId)
	d, ok := m.Deltas[key]
	if !ok {
		d = NewDelta(tokenId)
		m.Deltas[key] = d
	}
	return d
}

// AddTx enqueues tx in the mempool, subject to MempoolLimit.
func (m *Machine) AddTx(tx Tx) error {
	return m.mp.add(tx)
}

// MempoolLen returns the number of queued, not-yet-proposed transactions.
func (m *Machine) MempoolLen() int { return m.mp.len() }

// --- cloning helpers -------------------------------------------------

func cloneDeltaMap(src map[string]*Delta) map[string]*Delta {
	out := make(map[string]*Delta, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

func cloneSubMap(src map[string]*subcontract.HTLC) map[string]*subcontract.HTLC {
	out := make(map[string]*subcontract.HTLC, len(src))
	for k, v := range src {
		out[k] = v.Clone()
	}
	return out
}

// leftRight returns the canonical (left, right) entities of this account,
// independent of which side this Machine instance represents — both sides
// must derive identical signs for the same tx (spec.md §4.4 "Token list
// discipline": the two sides' frames must be byte-identical).
func (m *Machine) leftRight() (left, right xlntypes.EntityId) {
	if m.isLeft {
		return m.Self, m.Counterparty
	}
	return m.Counterparty, m.Self
}

// signedChange returns the net-delta change of a value-bearing tx that
// moves amount to receiver, signed from the canonical left entity's point
// of view (positive when left gains) so both sides of the pair compute the
// identical value regardless of which one is applying the tx.
func signedChange(left, right, receiver xlntypes.EntityId, amount *big.Int) (*big.Int, error) {
	switch {
	case receiver.Equal(left):
		return new(big.Int).Set(amount), nil
	case receiver.Equal(right):
		return new(big.Int).Neg(amount), nil
	default:
		return nil, xlnerrors.New(xlnerrors.KindValidation, "payment receiver is neither side of this account")
	}
}

// applyTxs applies txs, in order, to deltas/subs (clones, never the live
// Machine state) and returns an error on the first RCPAN/subcontract
// violation, leaving deltas/subs as they were before the offending tx
// (apart from a zero-valued Delta created for a token that tx touched for
// the first time). This is the exhaustive, reflection-free dispatch spec.md §9 requires.
func (m *Machine) applyTxs(deltas map[string]*Delta, subs map[string]*subcontract.HTLC, txs []Tx, timestamp uint64) error {
	for i, tx := range txs {
		if err := m.applyOneTx(deltas, subs, tx, timestamp); err != nil {
			return errors.Wrapf(err, "account tx %d (kind %d)", i, tx.Kind)
		}
	}
	return nil
}

func (m *Machine) applyOneTx(deltas map[string]*Delta, subs map[string]*subcontract.HTLC, tx Tx, timestamp uint64) error {
	get := func(tokenId xlntypes.TokenId) *Delta {
		key := string(tokenId)
		d, ok := deltas[key]
		if !ok {
			d = NewDelta(tokenId)
			deltas[key] = d
		}
		return d
	}

	left, right := m.leftRight()

	switch tx.Kind {
	case TxPayment:
		change, err := signedChange(left, right, tx.Receiver, tx.Amount)
		if err != nil {
			return err
		}
		_, err = get(tx.TokenId).ApplyOffDeltaChange(change)
		return err

	case TxSetCollateral:
		return get(tx.TokenId).SetCollateral(tx.Amount)

	case TxSetCreditLeft:
		return get(tx.TokenId).SetLeftCreditLimit(tx.Amount)

	case TxSetCreditRight:
		return get(tx.TokenId).SetRightCreditLimit(tx.Amount)

	case TxHTLCLock:
		if _, exists := subs[tx.HTLCId]; exists {
			return xlnerrors.New(xlnerrors.KindSubcontract, "duplicate htlc id", "id", tx.HTLCId)
		}
		sender := m.Self
		if tx.Receiver.Equal(m.Self) {
			sender = m.Counterparty
		}
		subs[tx.HTLCId] = subcontract.NewHTLC(tx.HTLCId, tx.Amount, tx.TokenId, tx.HashLock, tx.Timeout, sender, tx.Receiver)
		return nil

	case TxHTLCClaim:
		h, ok := subs[tx.HTLCId]
		if !ok {
			return xlnerrors.New(xlnerrors.KindSubcontract, "unknown htlc", "id", tx.HTLCId)
		}
		c := h.Clone()
		if err := c.Claim(tx.Preimage, timestamp); err != nil {
			return err
		}
		if err := m.foldClaimedHTLC(deltas, c); err != nil {
			return err
		}
		subs[tx.HTLCId] = c
		return nil

	case TxHTLCRefund:
		h, ok := subs[tx.HTLCId]
		if !ok {
			return xlnerrors.New(xlnerrors.KindSubcontract, "unknown htlc", "id", tx.HTLCId)
		}
		return h.Refund(timestamp)

	default:
		return xlnerrors.New(xlnerrors.KindValidation, "unknown tx kind", "kind", tx.Kind)
	}
}

// foldClaimedHTLC applies the subcontract.DeltaTransformer contribution of a
// just-claimed HTLC to deltas, subject to RCPAN (spec.md §4.3 "combined with
// frame accountTxs and must all respect RCPAN"). The transformer is always
// evaluated from the canonical left entity's point of view so both sides of
// the account fold an identical signed change.
func (m *Machine) foldClaimedHTLC(deltas map[string]*Delta, h *subcontract.HTLC) error {
	left, _ := m.leftRight()
	transformer := subcontract.AsTransformer(h, left)
	for _, change := range subcontract.ApplyAll(nil, []subcontract.DeltaTransformer{transformer}) {
		key := string(change.TokenId)
		d, ok := deltas[key]
		if !ok {
			d = NewDelta(change.TokenId)
			deltas[key] = d
		}
		if _, err := d.ApplyOffDeltaChange(change.Change); err != nil {
			return err
		}
	}
	return nil
}

