// Package progress defines the event stream emitted while scan runs execute.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageScanStart        Stage = "SCAN_START"
	StageRestaurantFound  Stage = "RESTAURANT_FOUND"
	StageZoneScanComplete Stage = "ZONE_SCAN_COMPLETE"
	StageScanDone         Stage = "SCAN_DONE"
	StageScanError        Stage = "SCAN_ERROR"
)

// Event captures a single milestone of a scan run.
type Event struct {
	// RunID identifies the scan run the event belongs to.
	RunID uuid.UUID `json:"run_id"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// Stage denotes which milestone occurred.
	Stage Stage `json:"type"`
	// ZoneID scopes zone-level events.
	ZoneID string `json:"zone_id,omitempty"`
	// PlaceID and Name describe a newly discovered restaurant.
	PlaceID string `json:"place_id,omitempty"`
	Name    string `json:"name,omitempty"`
	// NewFound counts discoveries: 1 for a found event, the zone total
	// for a zone completion.
	NewFound int `json:"new_found,omitempty"`
	// TotalKnown is the cumulative entity count after the event.
	TotalKnown int `json:"total_known,omitempty"`
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageScanStart, StageScanDone, StageScanError:
	case StageRestaurantFound:
		if e.ZoneID == "" {
			return errors.New("restaurant found requires zone id")
		}
		if e.PlaceID == "" {
			return errors.New("restaurant found requires place id")
		}
	case StageZoneScanComplete:
		if e.ZoneID == "" {
			return errors.New("zone scan complete requires zone id")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}
