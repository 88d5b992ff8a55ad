// Package subcontract implements spec.md §4.3: programmable conditional
// effects on account deltas, through a generic DeltaTransformer
// abstraction and its HTLC variant.
package subcontract

import (
	"math/big"

	"github.com/xlnfi/xln-core/xlntypes"
)

// DeltaChange is one token's proposed change, contributed by a transformer
// alongside the frame's own accountTxs. It is applied atomically with the
// rest of the frame and must respect RCPAN like any other change.
type DeltaChange struct {
	TokenId xlntypes.TokenId
	Change  *big.Int
}

// AccountView is the read-only view of account state a transformer's
// Condition may inspect (current deltas, height, timestamp). It is kept
// minimal and decoupled from package account to avoid a cyclic import.
// Package account passes a nil view; the HTLC transformer never reads it.
type AccountView interface {
	Delta(tokenId xlntypes.TokenId) *big.Int
	Height() uint64
	Timestamp() uint64
}

// DeltaTransformer is the generic subcontract abstraction of spec.md §4.3:
// a condition over account state and, when the condition holds, the delta
// changes it contributes.
type DeltaTransformer interface {
	// ID identifies the transformer instance (used for deterministic
	// ordering and for referencing it from accountTxs that claim/refund it).
	ID() string
	// Condition reports whether this transformer currently applies.
	Condition(view AccountView) bool
	// Apply returns the delta changes to combine with the frame's own
	// accountTxs when Condition holds.
	Apply(view AccountView) []DeltaChange
}

// ApplyAll evaluates transformers in a deterministic order (by ID,
// ascending) and returns the concatenated delta changes of those whose
// Condition is true. Deterministic ordering is required because these
// changes are folded into the frame's canonical (tokenIds, deltas) that
// both sides must reproduce byte-for-byte (spec.md §4.4).
func ApplyAll(view AccountView, transformers []DeltaTransformer) []DeltaChange {
	ordered := make([]DeltaTransformer, len(transformers))
	copy(ordered, transformers)
	sortByID(ordered)

	var out []DeltaChange
	for _, tr := range ordered {
		if tr.Condition(view) {
			out = append(out, tr.Apply(view)...)
		}
	}
	return out
}

func sortByID(ts []DeltaTransformer) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].ID() < ts[j-1].ID(); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}
