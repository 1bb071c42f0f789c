package discovery

import (
	"fmt"
	"sort"
)

// State is the in-memory set of known entities for one run. The pipeline
// orchestrator is the sole writer; Contains is consulted before any
// enrichment work so repeated runs stay cheap.
type State struct {
	entities map[string]Entity
	order    []string
}

// NewState seeds a State from previously persisted entities. A nil or empty
// seed is the first-run case and is perfectly valid.
func NewState(seed map[string]Entity) *State {
	s := &State{entities: make(map[string]Entity, len(seed))}
	ids := make([]string, 0, len(seed))
	for id := range seed {
		ids = append(ids, id)
	}
	// Persisted maps carry no order; discovery time is the stable ordering.
	sort.Slice(ids, func(i, j int) bool {
		a, b := seed[ids[i]], seed[ids[j]]
		if !a.DiscoveredAt.Equal(b.DiscoveredAt) {
			return a.DiscoveredAt.Before(b.DiscoveredAt)
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		s.entities[id] = seed[id]
		s.order = append(s.order, id)
	}
	return s
}

// Contains reports whether the place id is already known.
func (s *State) Contains(id string) bool {
	_, ok := s.entities[id]
	return ok
}

// Record inserts a newly discovered entity. Inserting a known id is a
// programming error on the caller's side and fails loudly.
func (s *State) Record(e Entity) error {
	if e.PlaceID == "" {
		return fmt.Errorf("record entity: empty place id")
	}
	if _, ok := s.entities[e.PlaceID]; ok {
		return fmt.Errorf("record entity: id %q already present", e.PlaceID)
	}
	s.entities[e.PlaceID] = e
	s.order = append(s.order, e.PlaceID)
	return nil
}

// Len returns the number of known entities.
func (s *State) Len() int {
	return len(s.entities)
}

// ZoneCount counts known entities owned by the given zone.
func (s *State) ZoneCount(zoneID string) int {
	n := 0
	for _, e := range s.entities {
		if e.ZoneID == zoneID {
			n++
		}
	}
	return n
}

// Entities returns all known entities in discovery order.
func (s *State) Entities() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out
}

// ZoneEntities returns the entities owned by one zone, in discovery order.
func (s *State) ZoneEntities(zoneID string) []Entity {
	var out []Entity
	for _, id := range s.order {
		if e := s.entities[id]; e.ZoneID == zoneID {
			out = append(out, e)
		}
	}
	return out
}
