// Package geo tiles a zone into the scan points the pipeline searches from.
package geo

import "math"

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const (
	// metersPerDegreeLat is the planar approximation used for meter/degree
	// conversion; longitude is additionally scaled by cos(lat).
	metersPerDegreeLat = 111320.0

	// stepFactor spaces grid points at 1.4x the sub-scan radius so adjacent
	// sub-scan circles overlap without fine-grained tiling.
	stepFactor = 1.4

	// minStepMeters floors the grid step for very small sub-scan radii.
	minStepMeters = 200.0
)

// Plan lays a square grid over the zone's bounding box and keeps the grid
// points that fall inside the zone circle, in row-major order. The result is
// deterministic for a given input and never empty: a zone smaller than one
// grid cell collapses to a single scan point at its center.
func Plan(center Point, zoneRadiusMeters, subScanRadiusMeters float64) []Point {
	step := math.Max(stepFactor*subScanRadiusMeters, minStepMeters)

	latRad := center.Latitude * math.Pi / 180
	metersPerDegreeLng := metersPerDegreeLat * math.Cos(latRad)

	var points []Point
	for y := -zoneRadiusMeters; y <= zoneRadiusMeters; y += step {
		for x := -zoneRadiusMeters; x <= zoneRadiusMeters; x += step {
			if math.Hypot(x, y) > zoneRadiusMeters {
				continue
			}
			points = append(points, Point{
				Latitude:  center.Latitude + y/metersPerDegreeLat,
				Longitude: center.Longitude + x/metersPerDegreeLng,
			})
		}
	}
	if len(points) == 0 {
		points = append(points, center)
	}
	return points
}

// PlanarDistance returns the approximate distance in meters between two
// points, using the same local planar model as Plan. Good enough at zone
// scale; not for long baselines.
func PlanarDistance(a, b Point) float64 {
	latRad := (a.Latitude + b.Latitude) / 2 * math.Pi / 180
	dy := (b.Latitude - a.Latitude) * metersPerDegreeLat
	dx := (b.Longitude - a.Longitude) * metersPerDegreeLat * math.Cos(latRad)
	return math.Hypot(dx, dy)
}
