package codec

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeRLP canonically encodes value per spec.md §4.1: byte strings,
// non-negative big-endian minimal-length integers, and nested lists. This
// is exactly what go-ethereum/rlp implements, so we delegate rather than
// reimplement the RLP rules.
func EncodeRLP(value interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(value)
}

// DecodeRLP decodes data into out, which must be a pointer.
func DecodeRLP(data []byte, out interface{}) error {
	return rlp.DecodeBytes(data, out)
}

// MustEncodeRLP is EncodeRLP but panics on error; used only for values whose
// shape is known at compile time to be RLP-encodable (frame hashing).
func MustEncodeRLP(value interface{}) []byte {
	b, err := EncodeRLP(value)
	if err != nil {
		panic(err)
	}
	return b
}
