// Package gossip implements spec.md §4.6's gossip half: a CRDT profile
// store, eventually consistent under arbitrary message reordering with no
// coordination required — last-write-wins per-entity profile keyed by
// strictly increasing timestamp.
package gossip

import (
	"math/big"

	"github.com/xlnfi/xln-core/xlntypes"
)

// PeerCapacity is one advertised counterparty relationship inside a
// Profile: the capacity this entity can send toward Counterparty for
// TokenId, and the fee it charges to forward through this hop.
type PeerCapacity struct {
	Counterparty xlntypes.EntityId
	TokenId      xlntypes.TokenId
	SendCapacity *big.Int
	BaseFee      *big.Int
	FeePPM       uint64
}

// Profile is the Gossip profile of spec.md §4.6: an entity's
// self-described capability and capacity advertisement with a monotonic
// timestamp (spec.md Glossary "Gossip profile").
type Profile struct {
	EntityId  xlntypes.EntityId
	Timestamp uint64
	Peers     []PeerCapacity
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	out := &Profile{EntityId: p.EntityId.Clone(), Timestamp: p.Timestamp, Peers: make([]PeerCapacity, len(p.Peers))}
	for i, pc := range p.Peers {
		out.Peers[i] = PeerCapacity{
			Counterparty: pc.Counterparty.Clone(),
			TokenId:      pc.TokenId.Clone(),
			SendCapacity: new(big.Int).Set(pc.SendCapacity),
			BaseFee:      new(big.Int).Set(pc.BaseFee),
			FeePPM:       pc.FeePPM,
		}
	}
	return out
}
