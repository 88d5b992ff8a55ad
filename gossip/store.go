package gossip

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/xlnfi/xln-core/xlntypes"
)

// Store is the CRDT profile store of spec.md §4.6: "a profile replaces
// the stored copy for that entityId iff its timestamp is strictly
// greater. Equal or older updates are ignored." This makes last-write-wins
// convergence (testable property 7) hold under arbitrary message
// reordering with no coordination between nodes.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*Profile // key: string(entityId)
	log      log.Logger
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*Profile), log: log.New("pkg", "gossip")}
}

// Apply merges p into the store: it replaces the entry for p.EntityId iff
// p.Timestamp is strictly greater than the stored profile's timestamp (or
// none is stored yet). Returns whether it was applied.
func (s *Store) Apply(p *Profile) bool {
	key := string(p.EntityId)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[key]
	if ok && p.Timestamp <= current.Timestamp {
		return false
	}
	s.profiles[key] = p.Clone()
	return true
}

// Get returns the stored profile for entityId, if any.
func (s *Store) Get(entityId xlntypes.EntityId) (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[string(entityId)]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// All returns every stored profile, sorted by entityId (spec.md §9
// "determinism discipline": map iteration must be sorted before any
// downstream consumer, such as routing.BuildGraph, depends on order).
func (s *Store) All() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.profiles))
	for k := range s.profiles {
		keys = append(keys, k)
	}

	out := make([]*Profile, 0, len(keys))
	for _, k := range sortedKeys(keys) {
		out = append(out, s.profiles[k].Clone())
	}
	return out
}

// sortedKeys returns keys (raw-byte entityId representations) in
// canonical xlntypes.ID order.
func sortedKeys(keys []string) []string {
	ids := make([]xlntypes.ID, len(keys))
	for i, k := range keys {
		ids[i] = xlntypes.ID(k)
	}
	xlntypes.SortIDs(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
