// Package discovery defines the durable data model for the incremental
// restaurant discovery pipeline: zones, discovered entities, and the
// run-to-run state that makes repeated scans cheap.
package discovery

import (
	"time"

	"github.com/sohogrid/menuscout/internal/geo"
)

// Zone is a configured geographic region subject to repeated scanning. The
// identity fields come from configuration; the telemetry fields are mutated
// once per zone per run.
type Zone struct {
	ID           string    `json:"zone_id"`
	Name         string    `json:"zone_name"`
	Center       geo.Point `json:"center"`
	RadiusMeters float64   `json:"radius_meters"`

	ScanCount        int        `json:"scan_count"`
	LastScannedAt    *time.Time `json:"last_scanned_at,omitempty"`
	LastScanNewFound int        `json:"last_scan_new_found"`
	TotalDiscovered  int        `json:"total_discovered"`
	// NewFoundHistory holds the most recent new-entity counts, oldest first.
	NewFoundHistory []int `json:"new_found_history,omitempty"`
	LikelyComplete  bool  `json:"likely_complete"`
}

// ApplyScanResult folds one completed scan pass into the zone telemetry.
// historySize bounds the rolling window; threshold drives LikelyComplete,
// which becomes true once the two most recent new-found counts are both
// below it. The flag is advisory: the pipeline keeps scanning flagged zones.
func (z *Zone) ApplyScanResult(newFound, totalInZone int, at time.Time, threshold, historySize int) {
	z.ScanCount++
	z.LastScannedAt = &at
	z.LastScanNewFound = newFound
	z.TotalDiscovered = totalInZone

	z.NewFoundHistory = append(z.NewFoundHistory, newFound)
	if historySize > 0 && len(z.NewFoundHistory) > historySize {
		z.NewFoundHistory = z.NewFoundHistory[len(z.NewFoundHistory)-historySize:]
	}

	z.LikelyComplete = false
	if n := len(z.NewFoundHistory); n >= 2 {
		z.LikelyComplete = z.NewFoundHistory[n-1] < threshold && z.NewFoundHistory[n-2] < threshold
	}
}

// Entity is one discovered place. Entities are created once, at first
// discovery, and are immutable afterwards; the PlaceID is the global
// dedup key and the first zone to see it owns it permanently.
type Entity struct {
	PlaceID      string    `json:"place_id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Address      string    `json:"address,omitempty"`
	Postcode     string    `json:"postcode,omitempty"`
	Cuisine      string    `json:"cuisine,omitempty"`
	Categories   []string  `json:"categories,omitempty"`
	Website      string    `json:"website,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewsCount *int      `json:"reviews_count,omitempty"`
	PriceLevel   *int      `json:"price_level,omitempty"`
	MenuURL      string    `json:"menu_url,omitempty"`
	HeroImageURL string    `json:"hero_image_url,omitempty"`
	ZoneID       string    `json:"zone_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
