// Package boundary collects the external interfaces of spec.md §6 that the
// consensus core consumes but never implements in production: signing,
// transport, and the on-chain jurisdiction. The core is written entirely
// against these interfaces so concrete HTTP/WebSocket servers, ECDSA
// primitives and an on-chain client can be supplied at the edge without
// touching consensus logic (spec.md §1 "Out of scope").
package boundary

import (
	"math/big"

	"github.com/xlnfi/xln-core/xlntypes"
)

// Signer is the external signing boundary of spec.md §6. The core never
// stores private keys; it identifies signers by SignerId and delegates.
type Signer interface {
	Sign(signerId xlntypes.SignerId, message []byte) ([]byte, error)
	Verify(signerId xlntypes.SignerId, message, signature []byte) bool
}

// Message is the tagged union of wire messages a Transport carries.
// Concrete payloads live in the account/entity/gossip packages; Transport
// itself stays payload-agnostic to avoid a dependency cycle.
type Message struct {
	AccountInput  interface{} // *account.Input, when non-nil
	EntityMessage interface{} // *entity.Message, when non-nil
	GossipMessage interface{} // *gossip.Profile, when non-nil
}

// Transport is the outbound/inbound network boundary of spec.md §6.
type Transport interface {
	Send(entityId xlntypes.EntityId, msg Message) error
}

// Receiver is implemented by the core and driven by the host's transport
// in single-threaded fashion (spec.md §6 "on_receive").
type Receiver interface {
	OnReceive(msg Message) error
}

// SettlementDiff is one token's zero-sum settlement diff of spec.md §6:
// leftDiff + rightDiff + collateralDiff must equal zero.
type SettlementDiff struct {
	TokenId        xlntypes.TokenId
	LeftDiff       *big.Int
	RightDiff      *big.Int
	CollateralDiff *big.Int
}

// IsZeroSum reports whether the diff satisfies the zero-sum invariant
// (spec.md §6, §8 testable property 8).
func (d SettlementDiff) IsZeroSum() bool {
	sum := new(big.Int).Add(d.LeftDiff, d.RightDiff)
	sum.Add(sum, d.CollateralDiff)
	return sum.Sign() == 0
}

// EventFilter and EventHandler parameterize ChainClient.WatchEvents; left
// abstract since the event shapes belong to the jurisdiction layer, not
// the consensus core.
type EventFilter interface{}
type EventHandler func(event interface{})

// ChainClient is the on-chain jurisdiction boundary of spec.md §6. The core
// never talks to a chain directly; it only emits SettlementDiffs through
// this interface and refuses to emit non-zero-sum ones.
type ChainClient interface {
	RegisterEntity(entityId xlntypes.EntityId, boardHash []byte) (uint64, error)
	GetReserve(entityId xlntypes.EntityId, tokenId xlntypes.TokenId) (*big.Int, error)
	SubmitSettlement(leftEntity, rightEntity xlntypes.EntityId, diffs []SettlementDiff) ([]byte, error)
	WatchEvents(filter EventFilter, handler EventHandler) error
}
