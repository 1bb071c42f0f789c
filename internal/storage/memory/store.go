// Package memory stores pipeline state in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/sohogrid/menuscout/internal/discovery"
)

// Store is an in-memory storage provider.
type Store struct {
	mu        sync.RWMutex
	zones     []discovery.Zone
	state     map[string]discovery.Entity
	snapshots map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		state:     make(map[string]discovery.Entity),
		snapshots: make(map[string][]byte),
	}
}

// LoadZones returns a copy of the zone registry.
func (s *Store) LoadZones(_ context.Context) ([]discovery.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]discovery.Zone(nil), s.zones...), nil
}

// SaveZones replaces the zone registry.
func (s *Store) SaveZones(_ context.Context, zones []discovery.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append([]discovery.Zone(nil), zones...)
	return nil
}

// LoadState returns a copy of the discovered-entity state.
func (s *Store) LoadState(_ context.Context) (map[string]discovery.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]discovery.Entity, len(s.state))
	for id, e := range s.state {
		out[id] = e
	}
	return out, nil
}

// SaveState replaces the discovered-entity state.
func (s *Store) SaveState(_ context.Context, entities []discovery.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string]discovery.Entity, len(entities))
	for _, e := range entities {
		s.state[e.PlaceID] = e
	}
	return nil
}

// WriteSnapshot retains the snapshot content keyed by name.
func (s *Store) WriteSnapshot(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[name] = append([]byte(nil), data...)
	return nil
}

// Snapshot returns a stored snapshot, or nil when absent.
func (s *Store) Snapshot(name string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.snapshots[name]...)
}

// SnapshotNames lists stored snapshot names.
func (s *Store) SnapshotNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	return names
}
