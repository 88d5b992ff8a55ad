// Package account implements spec.md §4.4: the bilateral account state
// machine — frame construction, signature exchange, simultaneous-proposal
// tiebreak, ACK+new-frame batching, frame-chain linkage, mempool
// discipline and replay-counter enforcement between two entities.
package account

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/rcpan"
	"github.com/xlnfi/xln-core/xlntypes"
)

// Delta is the per-token state within an account (spec.md §3 "Delta").
type Delta struct {
	TokenId          xlntypes.TokenId
	Collateral       *big.Int // C ≥ 0
	OnDelta          *big.Int
	OffDelta         *big.Int
	LeftCreditLimit  *big.Int // Lₗ ≥ 0
	RightCreditLimit *big.Int // Lᵣ ≥ 0
	LeftAllowance    *big.Int // ≥ 0
	RightAllowance   *big.Int // ≥ 0
}

// NewDelta returns a zeroed Delta for tokenId.
func NewDelta(tokenId xlntypes.TokenId) *Delta {
	return &Delta{
		TokenId:          tokenId,
		Collateral:       big.NewInt(0),
		OnDelta:          big.NewInt(0),
		OffDelta:         big.NewInt(0),
		LeftCreditLimit:  big.NewInt(0),
		RightCreditLimit: big.NewInt(0),
		LeftAllowance:    big.NewInt(0),
		RightAllowance:   big.NewInt(0),
	}
}

// deltaWire is Delta's RLP shape: OnDelta/OffDelta are signed, so they are
// carried through codec.SignedBigInt rather than raw *big.Int (which
// go-ethereum/rlp only encodes when non-negative).
type deltaWire struct {
	TokenId          xlntypes.TokenId
	Collateral       *big.Int
	OnDelta          codec.SignedBigInt
	OffDelta         codec.SignedBigInt
	LeftCreditLimit  *big.Int
	RightCreditLimit *big.Int
	LeftAllowance    *big.Int
	RightAllowance   *big.Int
}

// EncodeRLP gives Delta a signed-safe RLP encoding (spec.md §4.1 canonical
// encoding discipline), used whenever a Delta is part of a frame's
// FullDeltaStates.
func (d Delta) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, deltaWire{
		TokenId:          d.TokenId,
		Collateral:       d.Collateral,
		OnDelta:          codec.NewSignedBigInt(d.OnDelta),
		OffDelta:         codec.NewSignedBigInt(d.OffDelta),
		LeftCreditLimit:  d.LeftCreditLimit,
		RightCreditLimit: d.RightCreditLimit,
		LeftAllowance:    d.LeftAllowance,
		RightAllowance:   d.RightAllowance,
	})
}

// DecodeRLP is the inverse of EncodeRLP.
func (d *Delta) DecodeRLP(s *rlp.Stream) error {
	var w deltaWire
	if err := s.Decode(&w); err != nil {
		return err
	}
	*d = Delta{
		TokenId:          w.TokenId,
		Collateral:       w.Collateral,
		OnDelta:          w.OnDelta.V,
		OffDelta:         w.OffDelta.V,
		LeftCreditLimit:  w.LeftCreditLimit,
		RightCreditLimit: w.RightCreditLimit,
		LeftAllowance:    w.LeftAllowance,
		RightAllowance:   w.RightAllowance,
	}
	return nil
}

// Net returns Δ = ondelta + offdelta.
func (d *Delta) Net() *big.Int {
	return new(big.Int).Add(d.OnDelta, d.OffDelta)
}

// Limits projects the Delta's RCPAN-relevant fields into an *rcpan.Limits.
func (d *Delta) Limits() *rcpan.Limits {
	return &rcpan.Limits{
		Collateral:       d.Collateral,
		LeftCreditLimit:  d.LeftCreditLimit,
		RightCreditLimit: d.RightCreditLimit,
	}
}

// IsExcludable reports whether the token carries no economically
// meaningful state — net delta zero and both credit limits zero — and so
// must be omitted from a frame's tokenIds/deltas (spec.md §4.4 "Token list
// discipline").
func (d *Delta) IsExcludable() bool {
	return d.Net().Sign() == 0 && d.LeftCreditLimit.Sign() == 0 && d.RightCreditLimit.Sign() == 0
}

// Clone returns a deep copy of d.
func (d *Delta) Clone() *Delta {
	return &Delta{
		TokenId:          d.TokenId,
		Collateral:       new(big.Int).Set(d.Collateral),
		OnDelta:          new(big.Int).Set(d.OnDelta),
		OffDelta:         new(big.Int).Set(d.OffDelta),
		LeftCreditLimit:  new(big.Int).Set(d.LeftCreditLimit),
		RightCreditLimit: new(big.Int).Set(d.RightCreditLimit),
		LeftAllowance:    new(big.Int).Set(d.LeftAllowance),
		RightAllowance:   new(big.Int).Set(d.RightAllowance),
	}
}

// SetCollateral updates C, failing (and leaving d untouched) if it would
// make the current net delta violate the invariant (spec.md §4.2).
func (d *Delta) SetCollateral(newCollateral *big.Int) error {
	candidate := &rcpan.Limits{Collateral: newCollateral, LeftCreditLimit: d.LeftCreditLimit, RightCreditLimit: d.RightCreditLimit}
	if !rcpan.Validate(candidate, d.Net()) {
		lower, upper := rcpan.Bounds(candidate)
		return &rcpan.Violation{TokenId: d.TokenId, Current: d.Net(), Change: big.NewInt(0), Proposed: d.Net(), Lower: lower, Upper: upper}
	}
	d.Collateral = newCollateral
	return nil
}

// SetLeftCreditLimit updates Lₗ under the same non-violation requirement.
func (d *Delta) SetLeftCreditLimit(newLeft *big.Int) error {
	candidate := &rcpan.Limits{Collateral: d.Collateral, LeftCreditLimit: newLeft, RightCreditLimit: d.RightCreditLimit}
	if !rcpan.Validate(candidate, d.Net()) {
		lower, upper := rcpan.Bounds(candidate)
		return &rcpan.Violation{TokenId: d.TokenId, Current: d.Net(), Change: big.NewInt(0), Proposed: d.Net(), Lower: lower, Upper: upper}
	}
	d.LeftCreditLimit = newLeft
	return nil
}

// SetRightCreditLimit updates Lᵣ under the same non-violation requirement.
func (d *Delta) SetRightCreditLimit(newRight *big.Int) error {
	candidate := &rcpan.Limits{Collateral: d.Collateral, LeftCreditLimit: d.LeftCreditLimit, RightCreditLimit: newRight}
	if !rcpan.Validate(candidate, d.Net()) {
		lower, upper := rcpan.Bounds(candidate)
		return &rcpan.Violation{TokenId: d.TokenId, Current: d.Net(), Change: big.NewInt(0), Proposed: d.Net(), Lower: lower, Upper: upper}
	}
	d.RightCreditLimit = newRight
	return nil
}

// ApplyOffDeltaChange adds change to OffDelta after validating the
// resulting net delta against d's own limits via the rcpan package. On
// success it mutates d in place and returns the new net delta; on failure
// it returns the *rcpan.Violation and leaves d untouched.
func (d *Delta) ApplyOffDeltaChange(change *big.Int) (*big.Int, error) {
	current := d.Net()
	proposed, err := rcpan.UpdateDelta(d.TokenId, current, d.Limits(), change)
	if err != nil {
		return nil, err
	}
	d.OffDelta = new(big.Int).Add(d.OffDelta, change)
	return proposed, nil
}
