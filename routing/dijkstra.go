package routing

import (
	"container/heap"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/xlnfi/xln-core/xlntypes"
)

// MaxRoutes is the hard ceiling of spec.md §4.6 "maxRoutes ≤ 100".
const MaxRoutes = 100

// maxExplored bounds the search's total pop count so a dense graph cannot
// make FindRoutes unbounded; it is an implementation safety valve.
const maxExplored = 10000

// Route is one path from source to target with its accumulated fee and
// success probability (spec.md §4.6 "Pathfinding").
type Route struct {
	Path        []xlntypes.EntityId
	TotalFee    *big.Int
	Probability float64
}

// searchState is a partial backward-built path during the modified
// Dijkstra search: node is the current upstream frontier, requiredAmount
// is "a" — the amount that must arrive at node, already including every
// downstream fee (spec.md §4.6 "Fees accumulate backward").
type searchState struct {
	node           xlntypes.EntityId
	requiredAmount *big.Int
	probability    float64
	path           []xlntypes.EntityId // node ... target
	visited        map[string]bool
}

type searchHeap []*searchState

func (h searchHeap) Len() int { return len(h) }
func (h searchHeap) Less(i, j int) bool {
	return h[i].requiredAmount.Cmp(h[j].requiredAmount) < 0
}
func (h searchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *searchHeap) Push(x interface{}) { *h = append(*h, x.(*searchState)) }
func (h *searchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FindRoutes implements spec.md §4.6 find_routes: a modified Dijkstra,
// relaxed backward from target to source so that each edge's cost is
// computed on the amount it must carry including all downstream fees.
// Results are sorted by ascending total fee, ties broken by descending
// success probability then lexicographic path order, truncated to
// min(maxRoutes, MaxRoutes).
func FindRoutes(g *Graph, source, target xlntypes.EntityId, amount *big.Int, maxRoutes int) []Route {
	start := time.Now()
	defer func() { metricSearchDurationMicros().Observe(time.Since(start).Microseconds()) }()

	if source.Equal(target) {
		return []Route{{Path: nil, TotalFee: big.NewInt(0), Probability: 1}}
	}
	if maxRoutes <= 0 || maxRoutes > MaxRoutes {
		maxRoutes = MaxRoutes
	}

	reverse := buildReverseIndex(g)

	h := &searchHeap{{
		node:           target,
		requiredAmount: new(big.Int).Set(amount),
		probability:    1,
		path:           []xlntypes.EntityId{target},
		visited:        map[string]bool{string(target): true},
	}}
	heap.Init(h)

	var routes []Route
	explored := 0
	for h.Len() > 0 && len(routes) < maxRoutes && explored < maxExplored {
		state := heap.Pop(h).(*searchState)
		explored++

		if state.node.Equal(source) {
			fee := new(big.Int).Sub(state.requiredAmount, amount)
			routes = append(routes, Route{Path: reversePath(state.path), TotalFee: fee, Probability: state.probability})
			continue
		}

		for _, e := range reverse[string(state.node)] {
			if state.visited[string(e.From)] {
				continue
			}
			if e.SendCapacity.Cmp(state.requiredAmount) < 0 {
				continue
			}
			cost := edgeCost(e, state.requiredAmount)
			newRequired := new(big.Int).Add(state.requiredAmount, cost)
			newProb := state.probability * edgeSuccessProbability(state.requiredAmount, e.SendCapacity)

			newVisited := make(map[string]bool, len(state.visited)+1)
			for k := range state.visited {
				newVisited[k] = true
			}
			newVisited[string(e.From)] = true

			newPath := make([]xlntypes.EntityId, len(state.path)+1)
			copy(newPath, state.path)
			newPath[len(state.path)] = e.From

			heap.Push(h, &searchState{
				node:           e.From,
				requiredAmount: newRequired,
				probability:    newProb,
				path:           newPath,
				visited:        newVisited,
			})
		}
	}

	sort.SliceStable(routes, func(i, j int) bool { return routeLess(routes[i], routes[j]) })
	if len(routes) > maxRoutes {
		routes = routes[:maxRoutes]
	}
	return routes
}

// edgeCost is base_fee + floor(a·fee_ppm / 1_000_000) (spec.md §4.6).
func edgeCost(e Edge, requiredAmount *big.Int) *big.Int {
	numerator := new(big.Int).Mul(requiredAmount, big.NewInt(int64(e.FeePPM)))
	ppmCost := numerator.Div(numerator, big.NewInt(1_000_000))
	return new(big.Int).Add(e.BaseFee, ppmCost)
}

// edgeSuccessProbability is exp(−2·utilization), utilization = a/capacity
// (spec.md §4.6).
func edgeSuccessProbability(requiredAmount, capacity *big.Int) float64 {
	if capacity.Sign() == 0 {
		return 0
	}
	a := new(big.Float).SetInt(requiredAmount)
	c := new(big.Float).SetInt(capacity)
	utilization, _ := new(big.Float).Quo(a, c).Float64()
	return math.Exp(-2 * utilization)
}

// routeLess orders routes by ascending fee, then descending probability,
// then lexicographic path (spec.md §4.6 "Ties ... broken by descending
// success probability, then by lexicographic order of the path").
func routeLess(a, b Route) bool {
	if cmp := a.TotalFee.Cmp(b.TotalFee); cmp != 0 {
		return cmp < 0
	}
	if a.Probability != b.Probability {
		return a.Probability > b.Probability
	}
	return pathLess(a.Path, b.Path)
}

func pathLess(a, b []xlntypes.EntityId) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Equal(b[i]) {
			continue
		}
		return a[i].Less(b[i])
	}
	return len(a) < len(b)
}

func reversePath(path []xlntypes.EntityId) []xlntypes.EntityId {
	out := make([]xlntypes.EntityId, len(path))
	for i, id := range path {
		out[len(path)-1-i] = id
	}
	return out
}

// buildReverseIndex maps a node to the edges that point into it, so the
// backward search can ask "who can reach me" in O(1).
func buildReverseIndex(g *Graph) map[string][]Edge {
	reverse := make(map[string][]Edge)
	for _, edges := range g.edges {
		for _, e := range edges {
			key := string(e.To)
			reverse[key] = append(reverse[key], e)
		}
	}
	return reverse
}
