// Package entity implements spec.md §4.5: the entity BFT machine — a
// fixed validator set agreeing, by ≥⅔ voting power, on a chain of entity
// frames through a propose/precommit/commit round.
package entity

import (
	"sort"

	"github.com/xlnfi/xln-core/xlntypes"
)

// Validator is one member of a replica's fixed validator set, with its
// voting power (spec.md §4.5 "voting-power agreement").
type Validator struct {
	SignerId xlntypes.SignerId
	Power    uint64
}

// ValidatorSet is a fixed, sorted set of validators for a replica.
type ValidatorSet struct {
	validators []Validator
	byId       map[string]int
	total      uint64
}

// NewValidatorSet builds a ValidatorSet from validators, sorted by
// ascending SignerId so proposer rotation and signature-map iteration are
// deterministic (spec.md §9 "Determinism discipline").
func NewValidatorSet(validators []Validator) *ValidatorSet {
	sorted := append([]Validator(nil), validators...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SignerId.Less(sorted[j].SignerId) })

	vs := &ValidatorSet{validators: sorted, byId: make(map[string]int, len(sorted))}
	for i, v := range sorted {
		vs.byId[string(v.SignerId)] = i
		vs.total += v.Power
	}
	return vs
}

// Len returns the number of validators.
func (vs *ValidatorSet) Len() int { return len(vs.validators) }

// TotalPower returns Σ power across all validators.
func (vs *ValidatorSet) TotalPower() uint64 { return vs.total }

// Quorum returns ⌈2·Σpower/3⌉, the voting-power threshold to commit
// (spec.md §4.5 "Byzantine tolerance").
func (vs *ValidatorSet) Quorum() uint64 {
	return ceilDiv(2*vs.total, 3)
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// PowerOf returns signerId's voting power, or 0 if it is not a validator.
func (vs *ValidatorSet) PowerOf(signerId xlntypes.SignerId) uint64 {
	i, ok := vs.byId[string(signerId)]
	if !ok {
		return 0
	}
	return vs.validators[i].Power
}

// IsValidator reports whether signerId is a member of this set.
func (vs *ValidatorSet) IsValidator(signerId xlntypes.SignerId) bool {
	_, ok := vs.byId[string(signerId)]
	return ok
}

// ProposerAt returns the round-robin proposer for height (spec.md §4.5
// "one replica is designated proposer per height (round-robin ...)").
func (vs *ValidatorSet) ProposerAt(height uint64) xlntypes.SignerId {
	if len(vs.validators) == 0 {
		return nil
	}
	return vs.validators[height%uint64(len(vs.validators))].SignerId
}

// SignaturePower sums the voting power of the signers present in sigMap
// (keyed by signerId's string(bytes) representation), ignoring any entry
// whose signerId is not in this validator set.
func (vs *ValidatorSet) SignaturePower(sigMap map[string][]byte) uint64 {
	var sum uint64
	for signerId := range sigMap {
		if i, ok := vs.byId[signerId]; ok {
			sum += vs.validators[i].Power
		}
	}
	return sum
}
