// Package codec implements spec.md §4.1: deterministic hashing, canonical
// RLP serialization, and Merkle commitments. It leans entirely on
// go-ethereum's rlp and crypto packages rather than hand-rolling either.
package codec

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto"
)

// Bytes32 is a 32-byte digest, used for both SHA-256 hashes and keccak
// frame hashes.
type Bytes32 [32]byte

// Hash computes the SHA-256 digest of data.
func Hash(data []byte) Bytes32 {
	return sha256.Sum256(data)
}

// Keccak computes the keccak-256 digest of data (used for frame hashes, the
// "keccak-like digest" of spec.md §4.1). go-ethereum's crypto.Keccak256
// implements the legacy (pre-NIST) Keccak padding, which is what
// ethereum-derived stacks mean by "keccak".
func Keccak(data ...[]byte) Bytes32 {
	var out Bytes32
	copy(out[:], crypto.Keccak256(data...))
	return out
}

// IsZero reports whether the digest is the all-zero value.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

// Bytes returns a copy of the digest as a slice.
func (b Bytes32) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, b[:])
	return out
}

// String renders the digest as 0x-prefixed hex.
func (b Bytes32) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 2+64)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hextable[c>>4]
		out[2+i*2+1] = hextable[c&0xf]
	}
	return string(out)
}

// BytesToBytes32 copies up to 32 bytes of b into a Bytes32, left-padding
// with zeros.
func BytesToBytes32(b []byte) (out Bytes32) {
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return
}
