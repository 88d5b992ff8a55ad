// Package rcpan enforces spec.md §4.2: the per-token RCPAN invariant
// −Lₗ ≤ Δ ≤ C + Lᵣ at the point of mutation, actively rejecting
// out-of-bound changes rather than clamping them.
package rcpan

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/xlnfi/xln-core/xlnerrors"
	"github.com/xlnfi/xln-core/xlntypes"
)

// Limits bundles the three bound parameters of a token's RCPAN state:
// collateral (C), left credit limit (Lₗ) and right credit limit (Lᵣ).
// Callers hold Limits per tokenId. Only a nil *Limits ("no limits stored")
// is the permissionless fallback that accepts any Δ; a Limits whose fields
// are zero or nil bounds Δ to exactly 0.
type Limits struct {
	Collateral       *big.Int // C ≥ 0
	LeftCreditLimit  *big.Int // Lₗ ≥ 0
	RightCreditLimit *big.Int // Lᵣ ≥ 0
}

// State is the minimal per-token RCPAN state: the current net delta plus
// its limits. account.Delta embeds the same fields; State exists so the
// engine can be exercised (and tested) independent of the account package.
type State struct {
	Delta  *big.Int
	Limits *Limits // nil => no limits recorded for this token (always valid)
}

// Bounds returns the inclusive [lower, upper] bound of the invariant for
// limits: lower = −Lₗ, upper = C + Lᵣ.
func Bounds(limits *Limits) (lower, upper *big.Int) {
	if limits == nil {
		return nil, nil
	}
	lower = new(big.Int).Neg(nz(limits.LeftCreditLimit))
	upper = new(big.Int).Add(nz(limits.Collateral), nz(limits.RightCreditLimit))
	return lower, upper
}

func nz(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// Validate reports whether newDelta satisfies −Lₗ ≤ newDelta ≤ C + Lᵣ for
// limits. A nil limits means no limits exist for that token, which always
// validates (spec.md §4.2 "permissionless fallback").
func Validate(limits *Limits, newDelta *big.Int) bool {
	if limits == nil {
		return true
	}
	lower, upper := Bounds(limits)
	return newDelta.Cmp(lower) >= 0 && newDelta.Cmp(upper) <= 0
}

// Violation is the structured RcpanViolation error of spec.md §4.2/§7.
type Violation struct {
	TokenId  xlntypes.TokenId
	Current  *big.Int
	Change   *big.Int
	Proposed *big.Int
	Lower    *big.Int
	Upper    *big.Int
}

func (v *Violation) Error() string {
	return errors.Errorf(
		"rcpan violation: token=%s current=%s change=%s proposed=%s bounds=[%s,%s]",
		v.TokenId, v.Current, v.Change, v.Proposed, v.Lower, v.Upper,
	).Error()
}

// Is allows errors.Is(err, xlnerrors.ErrRcpan).
func (v *Violation) Is(target error) bool {
	return target == xlnerrors.ErrRcpan
}

// UpdateDelta computes newDelta = current + change and, if Validate fails,
// returns a *Violation and leaves current untouched (it is the caller's
// responsibility to not have mutated state yet — callers of UpdateDelta
// must treat a non-nil error as "no state changed", spec.md §4.2).
func UpdateDelta(tokenId xlntypes.TokenId, current *big.Int, limits *Limits, change *big.Int) (*big.Int, error) {
	proposed := new(big.Int).Add(current, change)
	if !Validate(limits, proposed) {
		metricViolations().Add(1)
		lower, upper := Bounds(limits)
		return nil, &Violation{
			TokenId: tokenId, Current: current, Change: change,
			Proposed: proposed, Lower: lower, Upper: upper,
		}
	}
	return proposed, nil
}

// SetCollateral updates C for limits, failing if it would make the existing
// delta violate the invariant (spec.md §4.2).
func SetCollateral(tokenId xlntypes.TokenId, limits *Limits, currentDelta *big.Int, newCollateral *big.Int) error {
	candidate := &Limits{Collateral: newCollateral, LeftCreditLimit: limits.LeftCreditLimit, RightCreditLimit: limits.RightCreditLimit}
	if !Validate(candidate, currentDelta) {
		lower, upper := Bounds(candidate)
		return &Violation{TokenId: tokenId, Current: currentDelta, Change: big.NewInt(0), Proposed: currentDelta, Lower: lower, Upper: upper}
	}
	limits.Collateral = newCollateral
	return nil
}

// SetCreditLeft updates Lₗ, subject to the same non-violation requirement.
func SetCreditLeft(tokenId xlntypes.TokenId, limits *Limits, currentDelta *big.Int, newLeft *big.Int) error {
	candidate := &Limits{Collateral: limits.Collateral, LeftCreditLimit: newLeft, RightCreditLimit: limits.RightCreditLimit}
	if !Validate(candidate, currentDelta) {
		lower, upper := Bounds(candidate)
		return &Violation{TokenId: tokenId, Current: currentDelta, Change: big.NewInt(0), Proposed: currentDelta, Lower: lower, Upper: upper}
	}
	limits.LeftCreditLimit = newLeft
	return nil
}

// SetCreditRight updates Lᵣ, subject to the same non-violation requirement.
func SetCreditRight(tokenId xlntypes.TokenId, limits *Limits, currentDelta *big.Int, newRight *big.Int) error {
	candidate := &Limits{Collateral: limits.Collateral, LeftCreditLimit: limits.LeftCreditLimit, RightCreditLimit: newRight}
	if !Validate(candidate, currentDelta) {
		lower, upper := Bounds(candidate)
		return &Violation{TokenId: tokenId, Current: currentDelta, Change: big.NewInt(0), Proposed: currentDelta, Lower: lower, Upper: upper}
	}
	limits.RightCreditLimit = newRight
	return nil
}

// AvailableCredit returns how much further the delta may move downward
// before hitting −Lₗ (i.e. how much more this side can still owe).
func AvailableCredit(limits *Limits, currentDelta *big.Int) *big.Int {
	lower, _ := Bounds(limits)
	if lower == nil {
		return nil // unlimited
	}
	return new(big.Int).Sub(currentDelta, lower)
}

// MaxSend returns the maximum amount that can be sent (delta decreased by)
// from this side without violating the invariant: current − lower.
func MaxSend(limits *Limits, currentDelta *big.Int) *big.Int {
	return AvailableCredit(limits, currentDelta)
}

// MaxReceive returns the maximum amount that can be received (delta
// increased by) without violating the invariant: upper − current.
func MaxReceive(limits *Limits, currentDelta *big.Int) *big.Int {
	_, upper := Bounds(limits)
	if upper == nil {
		return nil // unlimited
	}
	return new(big.Int).Sub(upper, currentDelta)
}
