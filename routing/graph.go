// Package routing implements spec.md §4.6's routing half: a directed
// capacity multigraph built from gossiped profiles, and pathfinding over
// it (dijkstra.go).
package routing

import (
	"math/big"

	"github.com/xlnfi/xln-core/gossip"
	"github.com/xlnfi/xln-core/xlntypes"
)

// Edge is one directed capacity edge A→B for a given token (spec.md §4.6
// "Graph"): "it creates directed edges A→B with capacity sendCap_{A,B}".
type Edge struct {
	From         xlntypes.EntityId
	To           xlntypes.EntityId
	SendCapacity *big.Int
	BaseFee      *big.Int
	FeePPM       uint64
}

// Graph is the directed multigraph for one tokenId.
type Graph struct {
	TokenId xlntypes.TokenId
	edges   map[string][]Edge // key: string(from entityId)
}

// BuildGraph builds the directed capacity multigraph for tokenId from
// every gossiped profile: each peer entry for tokenId in A's profile
// creates one directed edge A→B carrying A's advertised send capacity
// (spec.md §4.6 "Graph"). The reverse edge B→A exists only if B's own
// profile advertises A; A's profile alone does not create it.
func BuildGraph(profiles []*gossip.Profile, tokenId xlntypes.TokenId) *Graph {
	g := &Graph{TokenId: tokenId, edges: make(map[string][]Edge)}
	for _, p := range profiles {
		for _, peer := range p.Peers {
			if !peer.TokenId.Equal(tokenId) {
				continue
			}
			g.addEdge(Edge{
				From:         p.EntityId,
				To:           peer.Counterparty,
				SendCapacity: peer.SendCapacity,
				BaseFee:      peer.BaseFee,
				FeePPM:       peer.FeePPM,
			})
		}
	}
	return g
}

func (g *Graph) addEdge(e Edge) {
	key := string(e.From)
	g.edges[key] = append(g.edges[key], e)
}

// EdgesFrom returns every outgoing edge from entityId, in stable
// insertion order (the order profiles were folded in by BuildGraph).
func (g *Graph) EdgesFrom(entityId xlntypes.EntityId) []Edge {
	return g.edges[string(entityId)]
}
