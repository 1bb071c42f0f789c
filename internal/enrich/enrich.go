// Package enrich derives presentation fields from raw place data: a best-fit
// cuisine label from the place type list and a UK postcode from the
// formatted address.
package enrich

import "regexp"

// DefaultCuisine is used when no type maps to a specific cuisine.
const DefaultCuisine = "Restaurant"

// cuisineByType maps place types to display cuisines. Policy, not mechanism:
// extend it via WithCuisines rather than editing call sites.
var cuisineByType = map[string]string{
	"italian_restaurant":        "Italian",
	"chinese_restaurant":        "Chinese",
	"indian_restaurant":         "Indian",
	"japanese_restaurant":       "Japanese",
	"thai_restaurant":           "Thai",
	"french_restaurant":         "French",
	"spanish_restaurant":        "Spanish",
	"mexican_restaurant":        "Mexican",
	"middle_eastern_restaurant": "Middle Eastern",
	"american_restaurant":       "American",
	"mediterranean_restaurant":  "Mediterranean",
	"seafood_restaurant":        "Seafood",
	"steak_house":               "Steakhouse",
	"sushi_restaurant":          "Sushi",
	"vietnamese_restaurant":     "Vietnamese",
	"korean_restaurant":         "Korean",
	"greek_restaurant":          "Greek",
	"turkish_restaurant":        "Turkish",
	"brazilian_restaurant":      "Brazilian",
	"pizza_restaurant":          "Pizza",
	"hamburger_restaurant":      "Burgers",
	"bakery":                    "Bakery",
	"cafe":                      "Cafe",
	"wine_bar":                  "Wine Bar",
	"pub":                       "Gastropub",
	"brasserie":                 "Brasserie",
	"lebanese_restaurant":       "Lebanese",
	"ethiopian_restaurant":      "Ethiopian",
	"israeli_restaurant":        "Israeli",
}

// ukPostcode matches standard UK postcodes (e.g. W1F 0RN) including the
// GIR 0AA special case.
var ukPostcode = regexp.MustCompile(
	`([Gg][Ii][Rr] 0[Aa]{2})|` +
		`((([A-Za-z][0-9]{1,2})|` +
		`(([A-Za-z][A-Ha-hJ-Yj-y][0-9]{1,2})|` +
		`(([A-Za-z][0-9][A-Za-z])|([A-Za-z][A-Ha-hJ-Yj-y][0-9][A-Za-z]?))))` +
		`\s?[0-9][A-Za-z]{2})`)

// Deriver resolves cuisines for a configurable type mapping.
type Deriver struct {
	byType map[string]string
}

// NewDeriver builds a Deriver over the built-in cuisine table.
func NewDeriver() *Deriver {
	return &Deriver{byType: cuisineByType}
}

// WithCuisines overlays extra type-to-cuisine entries, overriding built-ins
// on conflict.
func (d *Deriver) WithCuisines(extra map[string]string) *Deriver {
	merged := make(map[string]string, len(d.byType)+len(extra))
	for k, v := range d.byType {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &Deriver{byType: merged}
}

// Cuisine returns the first type with a known cuisine, or DefaultCuisine.
func (d *Deriver) Cuisine(types []string) string {
	for _, t := range types {
		if c, ok := d.byType[t]; ok {
			return c
		}
	}
	return DefaultCuisine
}

// Postcode extracts the first UK postcode found in the address, or "".
func (d *Deriver) Postcode(address string) string {
	return ukPostcode.FindString(address)
}
