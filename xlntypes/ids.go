// Package xlntypes defines the opaque identifiers shared by every layer of
// the XLN core: entities, signers and tokens — the common vocabulary
// every other package imports.
package xlntypes

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// ID is an opaque byte-string identifier. EntityId, SignerId and TokenId are
// all represented as ID; the distinction is documentary, not structural,
// matching how the source treats entity/signer/token identifiers as plain
// strings/buffers.
type ID []byte

// EntityId identifies an entity. EntityId carries a canonical lexicographic
// order, used throughout the account machine to pick the "left" side of a
// bilateral pair.
type EntityId = ID

// SignerId identifies a validator/signer within an entity's replica set.
type SignerId = ID

// TokenId identifies a fungible token.
type TokenId = ID

// Bytes returns the raw bytes of the id.
func (id ID) Bytes() []byte { return []byte(id) }

// String renders the id as a 0x-prefixed hex string.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id)
}

// Hex is an alias of String kept for readability at call sites that compare
// ids for debugging/log output.
func (id ID) Hex() string { return id.String() }

// Equal reports whether two ids are byte-identical.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

// Less reports whether id sorts strictly before other under lexicographic
// byte order. This is the "canonical lexicographic order" spec.md §3 refers
// to for EntityId.
func (id ID) Less(other ID) bool {
	return bytes.Compare(id, other) < 0
}

// Clone returns an independent copy of the id.
func (id ID) Clone() ID {
	out := make(ID, len(id))
	copy(out, id)
	return out
}

// IDFromString builds an ID by copying the bytes of s. It exists so test
// code and examples can write xlntypes.IDFromString("alice") the way
// spec.md's scenarios name entities as bare strings.
func IDFromString(s string) ID {
	return ID(s)
}

// LeftRight returns (left, right) for a bilateral pair of entities a and b,
// where left = min(a, b) under canonical order (spec.md §3, §4.4). It does
// not check for equal ids; for a == b it returns (b, a).
func LeftRight(a, b EntityId) (left, right EntityId) {
	if a.Less(b) {
		return a, b
	}
	return b, a
}

// IsLeft reports whether self is the canonical left side of the pair
// (self, counterparty).
func IsLeft(self, counterparty EntityId) bool {
	return self.Less(counterparty)
}

// SortIDs sorts a slice of ids in place in canonical order. Every map/set
// iteration that feeds hashing or RLP encoding must go through a sort like
// this one first (spec.md §4.1, §9 "determinism discipline").
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(ids[j])
	})
}

// SortTokenIds is SortIDs specialized for readability at call sites that deal
// exclusively with token ids.
func SortTokenIds(ids []TokenId) {
	SortIDs(ids)
}
