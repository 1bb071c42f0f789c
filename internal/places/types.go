// Package places implements the client for the Places API (New) text search
// and place details endpoints, with the retry contract the pipeline depends
// on: transient faults are retried with backoff, authorization denials fail
// fast and surface as empty results.
package places

// LatLng mirrors the API's coordinate object.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocalizedText mirrors the API's displayName object.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Photo is a photo reference returned on a details response.
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx,omitempty"`
	HeightPx int    `json:"heightPx,omitempty"`
}

// Summary is the slim record returned per place by text search.
type Summary struct {
	ID               string        `json:"id"`
	DisplayName      LocalizedText `json:"displayName"`
	Location         LatLng        `json:"location"`
	FormattedAddress string        `json:"formattedAddress,omitempty"`
}

// Details is the full record returned by the details endpoint. Rating,
// UserRatingCount, and PriceLevel are absent for unrated places; absent is
// not an error.
type Details struct {
	ID               string        `json:"id"`
	DisplayName      LocalizedText `json:"displayName"`
	FormattedAddress string        `json:"formattedAddress,omitempty"`
	Location         LatLng        `json:"location"`
	WebsiteURI       string        `json:"websiteUri,omitempty"`
	Types            []string      `json:"types,omitempty"`
	Rating           *float64      `json:"rating,omitempty"`
	UserRatingCount  *int          `json:"userRatingCount,omitempty"`
	PriceLevel       string        `json:"priceLevel,omitempty"`
	Photos           []Photo       `json:"photos,omitempty"`
}

// priceLevels maps the API's enum onto the 0-4 scale the export format uses.
var priceLevels = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

// NumericPriceLevel converts the PriceLevel enum to its 0-4 form, or nil for
// absent/unspecified values.
func (d *Details) NumericPriceLevel() *int {
	if d == nil {
		return nil
	}
	if v, ok := priceLevels[d.PriceLevel]; ok {
		return &v
	}
	return nil
}

type searchRequest struct {
	TextQuery    string        `json:"textQuery"`
	LocationBias *locationBias `json:"locationBias,omitempty"`
	PageToken    string        `json:"pageToken,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type searchResponse struct {
	Places        []Summary `json:"places"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}
