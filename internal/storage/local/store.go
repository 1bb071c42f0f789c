// Package local implements a filesystem-backed storage provider. State and
// zones are JSON documents; snapshots land under a snapshots/ subdirectory.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/discovery"
)

const (
	zonesFile    = "zones.json"
	stateFile    = "state.json"
	snapshotsDir = "snapshots"
)

// Config captures the parameters for the local store.
type Config struct {
	// DataDir is the root directory where all state lives.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// Store persists pipeline state on the local filesystem.
type Store struct {
	dataDir string
	logger  *zap.Logger
}

// New creates a local store, creating the data directory if needed and
// verifying it is writable.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat data directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.DataDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("data directory path is not a directory")
	}

	testFile := filepath.Join(cfg.DataDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Store{dataDir: cfg.DataDir, logger: logger}, nil
}

// LoadZones reads the zone registry. A missing or corrupt file degrades to
// an empty registry with a warning so operators can re-register zones
// instead of facing a crashed service.
func (s *Store) LoadZones(_ context.Context) ([]discovery.Zone, error) {
	var zones []discovery.Zone
	if !s.loadJSON(zonesFile, &zones) {
		return nil, nil
	}
	return zones, nil
}

// SaveZones replaces the zone registry atomically.
func (s *Store) SaveZones(_ context.Context, zones []discovery.Zone) error {
	if zones == nil {
		zones = []discovery.Zone{}
	}
	return s.saveJSON(zonesFile, zones)
}

// LoadState reads the discovered-entity state keyed by place id. Missing
// or corrupt files degrade to empty state.
func (s *Store) LoadState(_ context.Context) (map[string]discovery.Entity, error) {
	var entities []discovery.Entity
	if !s.loadJSON(stateFile, &entities) {
		return map[string]discovery.Entity{}, nil
	}
	state := make(map[string]discovery.Entity, len(entities))
	for _, e := range entities {
		state[e.PlaceID] = e
	}
	return state, nil
}

// SaveState replaces the discovered-entity state atomically.
func (s *Store) SaveState(_ context.Context, entities []discovery.Entity) error {
	if entities == nil {
		entities = []discovery.Entity{}
	}
	return s.saveJSON(stateFile, entities)
}

// WriteSnapshot stores a snapshot file under snapshots/.
func (s *Store) WriteSnapshot(_ context.Context, name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("snapshot name is required")
	}
	dir := filepath.Join(s.dataDir, snapshotsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	return nil
}

// EventLogPath returns where the scan event log for this store lives.
func (s *Store) EventLogPath() string {
	return filepath.Join(s.dataDir, "scan_events.ndjson")
}

// loadJSON reads and decodes one document, reporting whether usable data
// was found. Decode failures are logged, not returned.
func (s *Store) loadJSON(name string, v any) bool {
	path := filepath.Join(s.dataDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state file unreadable, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger.Warn("state file corrupt, starting empty",
			zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) saveJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.dataDir, name)
	if err := atomicWrite(path, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// atomicWrite writes to a temp file in the target directory and renames it
// into place, so readers never observe a half-written document.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
