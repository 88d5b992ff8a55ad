package gossip

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xlnfi/xln-core/xlntypes"
)

func profileAt(entityId xlntypes.EntityId, ts uint64) *Profile {
	return &Profile{
		EntityId:  entityId,
		Timestamp: ts,
		Peers: []PeerCapacity{{
			Counterparty: xlntypes.IDFromString("bob"),
			TokenId:      xlntypes.IDFromString("usd"),
			SendCapacity: big.NewInt(int64(ts)),
			BaseFee:      big.NewInt(0),
			FeePPM:       0,
		}},
	}
}

// TestOlderOrEqualTimestampIgnored mirrors spec.md §4.6 "Equal or older
// updates are ignored."
func TestOlderOrEqualTimestampIgnored(t *testing.T) {
	store := NewStore()
	alice := xlntypes.IDFromString("alice")

	assert.True(t, store.Apply(profileAt(alice, 5)))
	assert.False(t, store.Apply(profileAt(alice, 5)))
	assert.False(t, store.Apply(profileAt(alice, 3)))

	p, ok := store.Get(alice)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), p.Timestamp)

	assert.True(t, store.Apply(profileAt(alice, 6)))
	p, _ = store.Get(alice)
	assert.Equal(t, uint64(6), p.Timestamp)
}

// TestConvergenceUnderReordering mirrors spec.md §8 testable property 7:
// under arbitrary message reordering, every node's profile[eid] equals the
// profile with the highest timestamp ever written by eid.
func TestConvergenceUnderReordering(t *testing.T) {
	alice := xlntypes.IDFromString("alice")
	updates := make([]*Profile, 20)
	for i := range updates {
		updates[i] = profileAt(alice, uint64(i+1))
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := append([]*Profile(nil), updates...)
		rand.New(rand.NewSource(int64(trial))).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		store := NewStore()
		for _, p := range shuffled {
			store.Apply(p)
		}

		got, ok := store.Get(alice)
		assert.True(t, ok)
		assert.Equal(t, uint64(len(updates)), got.Timestamp)
	}
}

func TestAllReturnsSortedByEntityId(t *testing.T) {
	store := NewStore()
	store.Apply(profileAt(xlntypes.IDFromString("bob"), 1))
	store.Apply(profileAt(xlntypes.IDFromString("alice"), 1))

	all := store.All()
	assert := assert.New(t)
	assert.Len(all, 2)
	assert.Equal("alice", string(all[0].EntityId))
	assert.Equal("bob", string(all[1].EntityId))
}
