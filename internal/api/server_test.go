package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sohogrid/menuscout/internal/config"
	"github.com/sohogrid/menuscout/internal/discovery"
	"github.com/sohogrid/menuscout/internal/geo"
	"github.com/sohogrid/menuscout/internal/pipeline"
	"github.com/sohogrid/menuscout/internal/places"
	"github.com/sohogrid/menuscout/internal/storage/memory"
)

type stubPlacesAPI struct {
	block <-chan struct{}
}

func (s *stubPlacesAPI) TextSearch(ctx context.Context, _ string, _ geo.Point, _ float64) ([]places.Summary, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (s *stubPlacesAPI) PlaceDetails(context.Context, string) (*places.Details, error) {
	return nil, nil
}

func (s *stubPlacesAPI) PhotoURL(string) string { return "" }

type stubFinder struct{}

func (stubFinder) FindMenu(context.Context, string) (string, error) { return "", nil }

type stubClock struct{}

func (stubClock) Now() time.Time { return time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC) }

type serverEnv struct {
	server *Server
	store  *memory.Store
	events string
}

func newTestServer(t *testing.T, cfg config.Config, block <-chan struct{}) serverEnv {
	t.Helper()
	store := memory.New()
	logger := zaptest.NewLogger(t)
	p := pipeline.New(
		pipeline.Config{},
		&stubPlacesAPI{block: block},
		stubFinder{},
		nil,
		store,
		nil,
		stubClock{},
		logger,
	)
	runner := pipeline.NewRunner(p, stubClock{}, logger)
	events := filepath.Join(t.TempDir(), "scan_events.ndjson")
	srv := NewServer(runner, store, events, prometheus.NewRegistry(), cfg, logger)
	return serverEnv{server: srv, store: store, events: events}
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{}, nil)
	require.Equal(t, http.StatusOK, doRequest(t, env.server, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, doRequest(t, env.server, http.MethodGet, "/readyz", "").Code)
	require.Equal(t, http.StatusOK, doRequest(t, env.server, http.MethodGet, "/metrics", "").Code)
}

func TestZoneRegistration(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{}, nil)

	rec := doRequest(t, env.server, http.MethodPost, "/v1/zones",
		`{"zone_id":"soho","name":"Soho","latitude":51.5136,"longitude":-0.1331,"radius_meters":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, env.server, http.MethodGet, "/v1/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Zones []discovery.Zone `json:"zones"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Zones, 1)
	require.Equal(t, "soho", list.Zones[0].ID)
	require.InDelta(t, 1000.0, list.Zones[0].RadiusMeters, 1e-9)

	// Re-registering the same id updates geometry and keeps telemetry.
	zones, err := env.store.LoadZones(context.Background())
	require.NoError(t, err)
	zones[0].ScanCount = 4
	require.NoError(t, env.store.SaveZones(context.Background(), zones))

	rec = doRequest(t, env.server, http.MethodPost, "/v1/zones",
		`{"zone_id":"soho","name":"Soho","latitude":51.5136,"longitude":-0.1331,"radius_meters":1200}`)
	require.Equal(t, http.StatusOK, rec.Code)

	zones, err = env.store.LoadZones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 1)
	require.InDelta(t, 1200.0, zones[0].RadiusMeters, 1e-9)
	require.Equal(t, 4, zones[0].ScanCount)
}

func TestZoneRegistrationRejectsBadInput(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{}, nil)

	for _, body := range []string{
		`{nope`,
		`{"name":"Soho","latitude":91,"longitude":0,"radius_meters":100}`,
		`{"name":"Soho","latitude":0,"longitude":181,"radius_meters":100}`,
		`{"name":"Soho","latitude":0,"longitude":0,"radius_meters":0}`,
		`{"latitude":0,"longitude":0,"radius_meters":100}`,
	} {
		rec := doRequest(t, env.server, http.MethodPost, "/v1/zones", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestScanLifecycle(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	env := newTestServer(t, config.Config{}, block)

	require.NoError(t, env.store.SaveZones(context.Background(), []discovery.Zone{{
		ID:           "soho",
		Center:       geo.Point{Latitude: 51.5136, Longitude: -0.1331},
		RadiusMeters: 1000,
	}}))

	rec := doRequest(t, env.server, http.MethodPost, "/v1/scans", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted["run_id"])

	rec = doRequest(t, env.server, http.MethodPost, "/v1/scans", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, env.server, http.MethodGet, "/v1/scans/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status pipeline.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Running)

	close(block)
	require.Eventually(t, func() bool {
		rec := doRequest(t, env.server, http.MethodGet, "/v1/scans/current", "")
		var status pipeline.RunStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return !status.Running && status.LastSummary != nil
	}, 5*time.Second, 10*time.Millisecond)

	rec = doRequest(t, env.server, http.MethodPost, "/v1/scans/current/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code, "nothing left to cancel")

	rec = doRequest(t, env.server, http.MethodGet, "/v1/scans/"+accepted["run_id"], "")
	require.Equal(t, http.StatusOK, rec.Code)
	var byID map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byID))
	require.Equal(t, false, byID["running"])

	rec = doRequest(t, env.server, http.MethodGet, "/v1/scans/1b671a64-40d5-491e-99b0-da01ff1f3341", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, env.server, http.MethodGet, "/v1/scans/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelRunningScan(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	env := newTestServer(t, config.Config{}, block)

	require.NoError(t, env.store.SaveZones(context.Background(), []discovery.Zone{{
		ID:           "soho",
		Center:       geo.Point{Latitude: 51.5136, Longitude: -0.1331},
		RadiusMeters: 1000,
	}}))

	rec := doRequest(t, env.server, http.MethodPost, "/v1/scans", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, env.server, http.MethodPost, "/v1/scans/current/cancel", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doRequest(t, env.server, http.MethodGet, "/v1/scans/current", "")
		var status pipeline.RunStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return !status.Running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestResultsCSV(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{}, nil)
	require.NoError(t, env.store.SaveState(context.Background(), []discovery.Entity{
		{PlaceID: "pid-1", Name: "Uno", ZoneID: "soho", DiscoveredAt: time.Now().UTC()},
		{PlaceID: "pid-2", Name: "Due", ZoneID: "mayfair", DiscoveredAt: time.Now().UTC()},
	}))

	rec := doRequest(t, env.server, http.MethodGet, "/v1/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "place_id,name,"))

	rec = doRequest(t, env.server, http.MethodGet, "/v1/results?zone_id=soho", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines = strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "pid-1")
}

func TestEventsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{}, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(env.events, []byte(`{"type":"scan_start"}`+"\n"), 0o600))
	rec = doRequest(t, env.server, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "scan_start")
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "sekrit"
	env := newTestServer(t, cfg, nil)

	rec := doRequest(t, env.server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "sekrit")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	rec = doRequest(t, env.server, http.MethodGet, "/healthz?api_key=sekrit", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
