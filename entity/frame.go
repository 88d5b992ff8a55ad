package entity

import (
	"sort"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlntypes"
)

// genesisPrevHash is the entity-chain analogue of account.GenesisPrevHash
// (spec.md §3 "AccountFrame" pattern reused for EntityFrame).
var genesisPrevHash = codec.Keccak([]byte("xln-entity-genesis"))

// GenesisPrevHash returns the sentinel prevFrameHash for height 0.
func GenesisPrevHash() codec.Bytes32 { return genesisPrevHash }

// TxKind is a closed, exhaustively-dispatched tag for entity-level
// transactions (spec.md §9 "Polymorphism and dispatch").
type TxKind uint8

const (
	// TxGeneric carries an opaque, application-defined payload (e.g. an
	// account-layer AccountInput forwarded for entity-level ordering);
	// the entity machine itself only orders and hashes it.
	TxGeneric TxKind = iota
	// TxChangeProposer carries a liveness override (spec.md §4.5
	// "change_proposer operation").
	TxChangeProposer
)

// Tx is one entity-level transaction. InsertionIndex is the order it was
// added to the proposer's mempool; it is not part of the wire/hash
// encoding but is the final tiebreak of the deterministic sort spec.md
// §4.5 requires: "(nonce, from, kind, insertion-index)".
type Tx struct {
	Nonce          uint64
	From           xlntypes.SignerId
	Kind           TxKind
	Payload        []byte
	InsertionIndex uint64 `rlp:"-"`
}

// SortTxs sorts txs in place by (nonce, from, kind, insertion-index), the
// deterministic proposer ordering of spec.md §4.5.
func SortTxs(txs []Tx) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if a.Nonce != b.Nonce {
			return a.Nonce < b.Nonce
		}
		if !a.From.Equal(b.From) {
			return a.From.Less(b.From)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.InsertionIndex < b.InsertionIndex
	})
}

// Frame is the EntityFrame of spec.md §4.5.
type Frame struct {
	Height        uint64
	PrevFrameHash codec.Bytes32
	Txs           []Tx
	Timestamp     uint64
	StateHash     codec.Bytes32

	// Signatures maps a validator's SignerId (as string(bytes)) to its
	// signature over StateHash. It always contains at least the
	// proposer's signature once broadcast (spec.md §4.5 step 1); further
	// entries accumulate as precommits are collected. Not itself part of
	// the hashed canonical form.
	Signatures map[string][]byte
}

// canonicalFrame is the RLP/hash shape of a Frame, excluding StateHash and
// Signatures — mirrors account.canonicalFrame (spec.md §4.1 "frame_hash").
type canonicalFrame struct {
	Height        uint64
	PrevFrameHash codec.Bytes32
	Txs           []Tx
	Timestamp     uint64
}

func (f *Frame) canonical() *canonicalFrame {
	return &canonicalFrame{Height: f.Height, PrevFrameHash: f.PrevFrameHash, Txs: f.Txs, Timestamp: f.Timestamp}
}

// ComputeStateHash computes keccak(rlp(frame-without-hash-and-signatures)),
// the same frame_hash formula account.Frame uses (spec.md §4.1).
func (f *Frame) ComputeStateHash() codec.Bytes32 {
	return codec.FrameHash(f.canonical())
}

// SignatureFor returns signerId's signature over this frame, if present.
func (f *Frame) SignatureFor(signerId xlntypes.SignerId) ([]byte, bool) {
	sig, ok := f.Signatures[string(signerId)]
	return sig, ok
}

// CloneSignatures returns an independent copy of f.Signatures.
func (f *Frame) CloneSignatures() map[string][]byte {
	out := make(map[string][]byte, len(f.Signatures))
	for k, v := range f.Signatures {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
