package subcontract

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlnfi/xln-core/codec"
	"github.com/xlnfi/xln-core/xlntypes"
)

var (
	alice = xlntypes.IDFromString("alice")
	bob   = xlntypes.IDFromString("bob")
	token = xlntypes.IDFromString("1")
)

// TestS4HTLCHappyPath mirrors spec.md §8 scenario S4.
func TestS4HTLCHappyPath(t *testing.T) {
	hashLock := HashPreimage([]byte("preimage"))
	h := NewHTLC("h1", big.NewInt(100), token, hashLock, 70, alice, bob)

	require.NoError(t, h.Claim([]byte("preimage"), 10))
	assert.Equal(t, HTLCClaimed, h.Status)
	assert.Equal(t, []byte("preimage"), h.RevealedPreimage)

	changes := AsTransformer(h, alice).Apply(nil)
	require.Len(t, changes, 1)
	assert.Equal(t, big.NewInt(-100), changes[0].Change)

	changesForBob := AsTransformer(h.Clone(), bob).Apply(nil)
	require.Len(t, changesForBob, 1)
	assert.Equal(t, big.NewInt(100), changesForBob[0].Change)
}

func TestHTLCWrongPreimageRejected(t *testing.T) {
	hashLock := HashPreimage([]byte("preimage"))
	h := NewHTLC("h1", big.NewInt(100), token, hashLock, 70, alice, bob)
	err := h.Claim([]byte("wrong"), 10)
	require.Error(t, err)
	assert.Equal(t, HTLCLocked, h.Status)
}

func TestHTLCClaimAfterTimeoutRejected(t *testing.T) {
	hashLock := HashPreimage([]byte("preimage"))
	h := NewHTLC("h1", big.NewInt(100), token, hashLock, 70, alice, bob)
	err := h.Claim([]byte("preimage"), 70)
	require.Error(t, err)
	assert.Equal(t, HTLCLocked, h.Status)
}

// TestS5HTLCTimeoutRefund mirrors spec.md §8 scenario S5.
func TestS5HTLCTimeoutRefund(t *testing.T) {
	hashLock := HashPreimage([]byte("preimage"))
	h := NewHTLC("h1", big.NewInt(100), token, hashLock, 60, alice, bob)

	err := h.Refund(59)
	require.Error(t, err, "refund before timeout must be rejected")

	require.NoError(t, h.Refund(60))
	assert.Equal(t, HTLCRefunded, h.Status)

	err = h.Claim([]byte("preimage"), 60)
	require.Error(t, err, "claim after refund must be rejected")

	err = h.Refund(61)
	require.Error(t, err, "double refund must be rejected")
}

func TestHTLCDoubleClaimRejected(t *testing.T) {
	hashLock := HashPreimage([]byte("preimage"))
	h := NewHTLC("h1", big.NewInt(100), token, hashLock, 70, alice, bob)
	require.NoError(t, h.Claim([]byte("preimage"), 10))
	err := h.Claim([]byte("preimage"), 10)
	require.Error(t, err)
}

func TestApplyAllDeterministicOrder(t *testing.T) {
	h1 := NewHTLC("b", big.NewInt(10), token, codec.Bytes32{}, 100, alice, bob)
	h2 := NewHTLC("a", big.NewInt(20), token, codec.Bytes32{}, 100, alice, bob)
	h1.Status, h2.Status = HTLCClaimed, HTLCClaimed

	changes := ApplyAll(nil, []DeltaTransformer{AsTransformer(h1, alice), AsTransformer(h2, alice)})
	require.Len(t, changes, 2)
	// "a" (h2, -20) must be applied before "b" (h1, -10) by ascending ID.
	assert.Equal(t, big.NewInt(-20), changes[0].Change)
	assert.Equal(t, big.NewInt(-10), changes[1].Change)
}
