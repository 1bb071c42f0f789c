// Package export reads and writes the snapshot CSV contract. The column
// order is fixed so downstream consumers can rely on position as well as
// header names.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sohogrid/menuscout/internal/discovery"
)

// Columns is the snapshot header, in writing order.
var Columns = []string{
	"place_id",
	"name",
	"latitude",
	"longitude",
	"address",
	"postcode",
	"cuisine",
	"categories",
	"zone_id",
	"discovered_at",
	"rating",
	"reviews_count",
	"price_level",
	"website",
	"menu_url",
	"hero_image_url",
}

// Write emits the header plus one row per entity, in the order given.
// Absent optional values render as empty cells.
func Write(w io.Writer, entities []discovery.Entity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entities {
		if err := cw.Write(row(e)); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.PlaceID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Read parses a snapshot produced by Write. The header row is validated
// against Columns so a stale or foreign file fails loudly.
func Read(r io.Reader) ([]discovery.Entity, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(Columns) {
		return nil, fmt.Errorf("csv header has %d columns, want %d", len(header), len(Columns))
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, fmt.Errorf("csv column %d is %q, want %q", i, header[i], col)
		}
	}

	var entities []discovery.Entity
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		e, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("parse csv line %d: %w", line, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func row(e discovery.Entity) []string {
	return []string{
		e.PlaceID,
		e.Name,
		formatFloat(e.Latitude),
		formatFloat(e.Longitude),
		e.Address,
		e.Postcode,
		e.Cuisine,
		strings.Join(e.Categories, "|"),
		e.ZoneID,
		e.DiscoveredAt.UTC().Format(time.RFC3339Nano),
		formatFloatPtr(e.Rating),
		formatIntPtr(e.ReviewsCount),
		formatIntPtr(e.PriceLevel),
		e.Website,
		e.MenuURL,
		e.HeroImageURL,
	}
}

func parseRow(record []string) (discovery.Entity, error) {
	var e discovery.Entity
	e.PlaceID = record[0]
	e.Name = record[1]

	var err error
	if e.Latitude, err = strconv.ParseFloat(record[2], 64); err != nil {
		return e, fmt.Errorf("latitude: %w", err)
	}
	if e.Longitude, err = strconv.ParseFloat(record[3], 64); err != nil {
		return e, fmt.Errorf("longitude: %w", err)
	}
	e.Address = record[4]
	e.Postcode = record[5]
	e.Cuisine = record[6]
	if record[7] != "" {
		e.Categories = strings.Split(record[7], "|")
	}
	e.ZoneID = record[8]
	if e.DiscoveredAt, err = time.Parse(time.RFC3339Nano, record[9]); err != nil {
		return e, fmt.Errorf("discovered_at: %w", err)
	}
	if e.Rating, err = parseFloatPtr(record[10]); err != nil {
		return e, fmt.Errorf("rating: %w", err)
	}
	if e.ReviewsCount, err = parseIntPtr(record[11]); err != nil {
		return e, fmt.Errorf("reviews_count: %w", err)
	}
	if e.PriceLevel, err = parseIntPtr(record[12]); err != nil {
		return e, fmt.Errorf("price_level: %w", err)
	}
	e.Website = record[13]
	e.MenuURL = record[14]
	e.HeroImageURL = record[15]
	return e, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseFloatPtr(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseIntPtr(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
