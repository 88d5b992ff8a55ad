// Package xlnsigner provides a reference, in-memory implementation of
// boundary.Signer for tests and examples, built on go-ethereum's
// secp256k1 ECDSA. The consensus core never imports this package
// directly — it depends only on boundary.Signer — but every test in
// account/entity needs a concrete signer to exercise signature
// verification.
package xlnsigner

import (
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xlnfi/xln-core/xlntypes"
)

// InMemory is a boundary.Signer backed by a map of registered private
// keys, keyed by SignerId.
type InMemory struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

// NewInMemory creates an empty in-memory signer.
func NewInMemory() *InMemory {
	return &InMemory{keys: make(map[string]*ecdsa.PrivateKey)}
}

// Register generates a new secp256k1 key for signerId and returns its
// public key bytes (uncompressed), so callers can build validator sets
// without touching the private key itself.
func (s *InMemory) Register(signerId xlntypes.SignerId) ([]byte, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.keys[string(signerId)] = key
	s.mu.Unlock()
	return crypto.FromECDSAPub(&key.PublicKey), nil
}

// Sign signs message (expected to already be a 32-byte digest, per
// go-ethereum/crypto.Sign's contract) with signerId's registered key.
func (s *InMemory) Sign(signerId xlntypes.SignerId, message []byte) ([]byte, error) {
	s.mu.RLock()
	key, ok := s.keys[string(signerId)]
	s.mu.RUnlock()
	if !ok {
		return nil, errUnknownSigner(signerId)
	}
	return crypto.Sign(message, key)
}

// Verify reports whether signature is a valid secp256k1 signature over
// message by signerId's registered key.
func (s *InMemory) Verify(signerId xlntypes.SignerId, message, signature []byte) bool {
	s.mu.RLock()
	key, ok := s.keys[string(signerId)]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	pub, err := crypto.SigToPub(message, signature)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == crypto.PubkeyToAddress(key.PublicKey)
}

type errUnknownSigner xlntypes.SignerId

func (e errUnknownSigner) Error() string {
	return "xlnsigner: unknown signer " + xlntypes.SignerId(e).String()
}
