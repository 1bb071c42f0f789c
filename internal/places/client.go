package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/geo"
	"github.com/sohogrid/menuscout/internal/retry"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// Field masks are fixed per call type; search stays slim on purpose since
// every returned place may already be known.
const (
	searchFieldMask = "places.id,places.displayName,places.location," +
		"places.formattedAddress,nextPageToken"
	detailsFieldMask = "id,displayName,formattedAddress,location,websiteUri," +
		"types,rating,userRatingCount,priceLevel,photos"
)

// ErrAccessDenied reports an authorization denial from the API. It is never
// retried; callers receive empty results instead of a hard failure.
var ErrAccessDenied = errors.New("places: api key denied access")

// Config controls client behavior.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	PageDelay time.Duration
	// PhotoMaxPx bounds both photo dimensions in generated media URLs.
	PhotoMaxPx int
}

// Client talks to the places API with the shared retry policy applied to
// every request.
type Client struct {
	cfg    Config
	http   *http.Client
	policy *retry.Policy
	logger *zap.Logger
}

// NewClient builds a Client. The policy governs retries for transient
// upstream faults; pass nil for defaults.
func NewClient(cfg Config, policy *retry.Policy, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 1500 * time.Millisecond
	}
	if cfg.PhotoMaxPx <= 0 {
		cfg.PhotoMaxPx = 1600
	}
	if policy == nil {
		policy = retry.New(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: policy,
		logger: logger,
	}
}

// TextSearch runs a paginated text search biased to the given circle. It
// keeps requesting pages, with a fixed inter-page delay, until the API
// stops returning a next-page token. Deduplication is the caller's job.
func (c *Client) TextSearch(ctx context.Context, query string, center geo.Point, radiusMeters float64) ([]Summary, error) {
	var all []Summary
	pageToken := ""
	for {
		body := searchRequest{
			TextQuery: query,
			LocationBias: &locationBias{Circle: circle{
				Center: LatLng{Latitude: center.Latitude, Longitude: center.Longitude},
				Radius: radiusMeters,
			}},
			PageToken: pageToken,
		}
		var page searchResponse
		err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/places:searchText", searchFieldMask, body, &page)
		if err != nil {
			if isAccessDenied(err) {
				return all, nil
			}
			return all, fmt.Errorf("text search: %w", err)
		}
		all = append(all, page.Places...)

		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
		if err := sleepCtx(ctx, c.cfg.PageDelay); err != nil {
			return all, err
		}
	}
}

// PlaceDetails fetches the full record for one place id. An authorization
// denial returns (nil, nil) so the caller can skip and continue.
func (c *Client) PlaceDetails(ctx context.Context, id string) (*Details, error) {
	var details Details
	err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/places/"+id, detailsFieldMask, nil, &details)
	if err != nil {
		if isAccessDenied(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("place details %s: %w", id, err)
	}
	return &details, nil
}

// PhotoURL builds the media URL for a photo reference. Pure string
// construction; no request is made.
func (c *Client) PhotoURL(photoName string) string {
	if photoName == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/media?maxHeightPx=%d&maxWidthPx=%d&key=%s",
		c.cfg.BaseURL, photoName, c.cfg.PhotoMaxPx, c.cfg.PhotoMaxPx, c.cfg.APIKey)
}

func (c *Client) doJSON(ctx context.Context, method, url, fieldMask string, body, out any) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return retry.Permanent(fmt.Errorf("encode request: %w", err))
			}
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
		req.Header.Set("X-Goog-FieldMask", fieldMask)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", url, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusForbidden:
			// Logged once here; the policy will not retry a permanent error.
			c.logger.Error("api key denied access; check that the Places API (New) is enabled")
			return retry.Permanent(ErrAccessDenied)
		case resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Warn("rate limited by places api", zap.String("url", url))
			return fmt.Errorf("places: rate limited (status %d)", resp.StatusCode)
		case resp.StatusCode >= 500:
			return fmt.Errorf("places: upstream error (status %d)", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return retry.Permanent(fmt.Errorf("places: status %d: %s", resp.StatusCode, payload))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}

func isAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
