package codec

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// go-ethereum/rlp only encodes non-negative *big.Int values (it panics on a
// negative one), but account deltas are signed. SignedBigInt and
// SignedBigInts give any RLP-hashed structure a safe signed-integer
// encoding: a sign byte alongside the non-negative magnitude.

type signMagnitude struct {
	Sign uint8 // 0 = non-negative, 1 = negative
	Abs  *big.Int
}

func toSignMagnitude(v *big.Int) signMagnitude {
	if v.Sign() < 0 {
		return signMagnitude{Sign: 1, Abs: new(big.Int).Neg(v)}
	}
	return signMagnitude{Sign: 0, Abs: new(big.Int).Set(v)}
}

func fromSignMagnitude(sm signMagnitude) *big.Int {
	v := new(big.Int).Set(sm.Abs)
	if sm.Sign == 1 {
		v.Neg(v)
	}
	return v
}

// SignedBigInt is a single possibly-negative integer with its own RLP
// encoding, for use as a struct field (e.g. Delta.OnDelta/OffDelta).
type SignedBigInt struct {
	V *big.Int
}

func NewSignedBigInt(v *big.Int) SignedBigInt { return SignedBigInt{V: v} }

func (s SignedBigInt) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, toSignMagnitude(s.V))
}

func (s *SignedBigInt) DecodeRLP(stream *rlp.Stream) error {
	var sm signMagnitude
	if err := stream.Decode(&sm); err != nil {
		return err
	}
	s.V = fromSignMagnitude(sm)
	return nil
}

// SignedBigInts is a slice of possibly-negative integers, for use as a
// canonical frame field (account.Frame.Deltas).
type SignedBigInts []*big.Int

func (s SignedBigInts) EncodeRLP(w io.Writer) error {
	pairs := make([]signMagnitude, len(s))
	for i, v := range s {
		pairs[i] = toSignMagnitude(v)
	}
	return rlp.Encode(w, pairs)
}

func (s *SignedBigInts) DecodeRLP(stream *rlp.Stream) error {
	var pairs []signMagnitude
	if err := stream.Decode(&pairs); err != nil {
		return err
	}
	out := make([]*big.Int, len(pairs))
	for i, p := range pairs {
		out[i] = fromSignMagnitude(p)
	}
	*s = out
	return nil
}
