package codec

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash([]byte("alice"))
	b := Hash([]byte("alice"))
	assert.Equal(t, a, b)

	c := Keccak([]byte("alice"))
	assert.NotEqual(t, a, c, "sha256 and keccak must differ")
}

func TestRLPRoundTrip(t *testing.T) {
	type payload struct {
		Height uint64
		Name   []byte
		Nested []uint64
	}

	f := fuzz.New().NilChance(0).NumElements(1, 8)
	for i := 0; i < 50; i++ {
		var p payload
		f.Fuzz(&p)

		enc, err := EncodeRLP(&p)
		require.NoError(t, err)

		var out payload
		require.NoError(t, DecodeRLP(enc, &out))
		assert.Equal(t, p, out)
	}
}

func TestMerkleRootSingleLeaf(t *testing.T) {
	leaf := Hash([]byte("only"))
	assert.Equal(t, leaf, MerkleRoot([]Bytes32{leaf}))
}

func TestMerkleProofRoundTrip(t *testing.T) {
	leaves := make([]Bytes32, 0, 7)
	for i := 0; i < 7; i++ {
		leaves = append(leaves, Hash([]byte{byte(i)}))
	}
	root := MerkleRoot(leaves)
	for i := range leaves {
		proof := BuildMerkleProof(leaves, i)
		assert.True(t, VerifyMerkleProof(leaves[i], root, proof, i), "proof for index %d", i)
	}
}

func TestMerkleProofRejectsTamperedLeaf(t *testing.T) {
	leaves := []Bytes32{Hash([]byte("a")), Hash([]byte("b")), Hash([]byte("c"))}
	root := MerkleRoot(leaves)
	proof := BuildMerkleProof(leaves, 1)
	assert.False(t, VerifyMerkleProof(Hash([]byte("tampered")), root, proof, 1))
}

func TestMerkleOddLevelDuplicatesLast(t *testing.T) {
	leaves := []Bytes32{Hash([]byte("a")), Hash([]byte("b")), Hash([]byte("c"))}
	want := hashPair(hashPair(leaves[0], leaves[1]), hashPair(leaves[2], leaves[2]))
	assert.Equal(t, want, MerkleRoot(leaves))
}
