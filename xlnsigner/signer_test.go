package xlnsigner

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlnfi/xln-core/xlntypes"
)

func TestSignAndVerify(t *testing.T) {
	s := NewInMemory()
	alice := xlntypes.IDFromString("alice")
	_, err := s.Register(alice)
	require.NoError(t, err)

	msg := crypto.Keccak256([]byte("hello"))
	sig, err := s.Sign(alice, msg)
	require.NoError(t, err)

	assert.True(t, s.Verify(alice, msg, sig))
	assert.False(t, s.Verify(alice, crypto.Keccak256([]byte("tampered")), sig))
}

func TestVerifyUnknownSignerFails(t *testing.T) {
	s := NewInMemory()
	assert.False(t, s.Verify(xlntypes.IDFromString("nobody"), []byte("m"), []byte("s")))
}
