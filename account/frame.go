package account

import (
	"math/big"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlntypes"
)

// genesisPrevHash is the literal "genesis" previous-frame-hash marker used
// at height 0 (spec.md §3 "AccountFrame").
var genesisPrevHash = []byte("genesis")

// GenesisPrevHash returns a fresh copy of the "genesis" sentinel.
func GenesisPrevHash() []byte {
	out := make([]byte, len(genesisPrevHash))
	copy(out, genesisPrevHash)
	return out
}

// IsGenesisPrevHash reports whether b is the "genesis" sentinel.
func IsGenesisPrevHash(b []byte) bool {
	if len(b) != len(genesisPrevHash) {
		return false
	}
	for i := range b {
		if b[i] != genesisPrevHash[i] {
			return false
		}
	}
	return true
}

// TxKind is a closed, exhaustively-dispatched tag for account transactions
// (spec.md §9 "Polymorphism and dispatch": tagged variants, no reflection).
type TxKind uint8

const (
	TxPayment TxKind = iota
	TxSetCollateral
	TxSetCreditLeft
	TxSetCreditRight
	TxHTLCLock
	TxHTLCClaim
	TxHTLCRefund
)

// Tx is one account transaction, carried inside accountTxs of a Frame.
// Fields are a superset covering every TxKind; unused fields for a given
// kind are left zero, keeping a single concrete shape for every kind
// rather than an interface hierarchy.
type Tx struct {
	Kind     TxKind
	TokenId  xlntypes.TokenId
	Amount   *big.Int // Payment amount, or new limit value for SetCollateral/SetCreditLeft/SetCreditRight
	HTLCId   string
	HashLock codec.Bytes32
	Timeout  uint64
	Preimage []byte
	Receiver xlntypes.EntityId // Payment and HTLCLock only
}

// Frame is the AccountFrame of spec.md §3.
type Frame struct {
	Height          uint64
	Timestamp       uint64
	PrevFrameHash   []byte // "genesis" at height 0, else prior frame's StateHash
	AccountTxs      []Tx
	TokenIds        []xlntypes.TokenId
	Deltas          []*big.Int // parallel to TokenIds: ondelta+offdelta sum
	FullDeltaStates []Delta    // full Delta per included token, for dispute proofs
	StateHash       codec.Bytes32
	Signatures      [][]byte // up to two, canonical left/right order
}

// canonicalFrame is the RLP shape of a Frame excluding StateHash and
// Signatures (spec.md §4.4 "Frame integrity"). A distinct type (rather than
// reusing Frame with omitted fields) keeps the exclusion explicit and the
// RLP field order stable regardless of Frame's own field order.
type canonicalFrame struct {
	Height          uint64
	Timestamp       uint64
	PrevFrameHash   []byte
	AccountTxs      []Tx
	TokenIds        []xlntypes.TokenId
	Deltas          codec.SignedBigInts // net deltas may be negative; see codec.SignedBigInts
	FullDeltaStates []Delta
}

func (f *Frame) canonical() *canonicalFrame {
	return &canonicalFrame{
		Height: f.Height, Timestamp: f.Timestamp, PrevFrameHash: f.PrevFrameHash,
		AccountTxs: f.AccountTxs, TokenIds: f.TokenIds, Deltas: codec.SignedBigInts(f.Deltas),
		FullDeltaStates: f.FullDeltaStates,
	}
}

// ComputeStateHash computes keccak(rlp(frame-without-stateHash-and-signatures)),
// the frame_hash formula of spec.md §4.1/§3.
func (f *Frame) ComputeStateHash() codec.Bytes32 {
	return codec.FrameHash(f.canonical())
}

// BuildTokenLists derives the canonical, filtered (tokenIds, deltas) pair
// from a full deltas map: sorted ascending by tokenId, tokens with zero net
// delta and zero credit limits on both sides omitted (spec.md §4.4 "Token
// list discipline", §9 "Canonical filtering").
func BuildTokenLists(deltas map[string]*Delta) (tokenIds []xlntypes.TokenId, values []*big.Int, full []Delta) {
	keys := make([]string, 0, len(deltas))
	for k, d := range deltas {
		if !d.IsExcludable() {
			keys = append(keys, k)
		}
	}
	// keys are the string(tokenId) byte-representation; sort lexicographically.
	sortStrings(keys)

	for _, k := range keys {
		d := deltas[k]
		tokenIds = append(tokenIds, xlntypes.ID(k))
		values = append(values, d.Net())
		full = append(full, *d.Clone())
	}
	return
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// SameTokenLists reports whether two (tokenIds, deltas) pairs are
// byte-exactly equal, in order — the equality check spec.md §4.4 requires
// both sides to pass before accepting a proposed frame.
func SameTokenLists(aIds []xlntypes.TokenId, aVals []*big.Int, bIds []xlntypes.TokenId, bVals []*big.Int) bool {
	if len(aIds) != len(bIds) {
		return false
	}
	for i := range aIds {
		if !aIds[i].Equal(bIds[i]) {
			return false
		}
		if aVals[i].Cmp(bVals[i]) != 0 {
			return false
		}
	}
	return true
}
