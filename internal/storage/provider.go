// Package storage persists pipeline state between runs: the zone registry,
// the discovered-entity state, and per-zone CSV snapshots.
package storage

import (
	"context"

	"github.com/sohogrid/menuscout/internal/discovery"
)

// Provider is the persistence surface the pipeline depends on. Loads are
// tolerant: a missing or unreadable store yields empty data, never an
// error, so a fresh deployment and a wiped disk both start from zero.
type Provider interface {
	// LoadZones returns the zone registry, possibly empty.
	LoadZones(ctx context.Context) ([]discovery.Zone, error)
	// SaveZones replaces the zone registry.
	SaveZones(ctx context.Context, zones []discovery.Zone) error
	// LoadState returns all previously discovered entities keyed by place id.
	LoadState(ctx context.Context) (map[string]discovery.Entity, error)
	// SaveState replaces the discovered-entity state.
	SaveState(ctx context.Context, entities []discovery.Entity) error
	// WriteSnapshot stores a CSV snapshot for one zone scan.
	WriteSnapshot(ctx context.Context, name string, data []byte) error
}
