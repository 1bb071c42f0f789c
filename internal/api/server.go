// Package api exposes the HTTP admin interface for the scan service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/config"
	"github.com/sohogrid/menuscout/internal/discovery"
	"github.com/sohogrid/menuscout/internal/export"
	"github.com/sohogrid/menuscout/internal/geo"
	"github.com/sohogrid/menuscout/internal/pipeline"
	"github.com/sohogrid/menuscout/internal/storage"
)

// Server wires HTTP handlers to the scan runner and the state store.
type Server struct {
	router       chi.Router
	runner       *pipeline.Runner
	store        storage.Provider
	eventLogPath string
	gatherer     prometheus.Gatherer
	cfg          config.Config
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner *pipeline.Runner,
	store storage.Provider,
	eventLogPath string,
	gatherer prometheus.Gatherer,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		runner:       runner,
		store:        store,
		eventLogPath: eventLogPath,
		gatherer:     gatherer,
		cfg:          cfg,
		logger:       logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.startScan)
			r.Get("/current", s.scanStatus)
			r.Post("/current/cancel", s.cancelScan)
			r.Get("/{run_id}", s.scanByID)
		})
		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.listZones)
			r.Post("/", s.registerZone)
		})
		r.Get("/results", s.results)
		r.Get("/events", s.events)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Readiness means the store answers; a scan in flight is still ready.
	if _, err := s.store.LoadZones(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	// The run must outlive this request.
	runID, err := s.runner.Start(context.Background())
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("scan run accepted", zap.String("run_id", runID.String()))
	s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID.String()})
}

func (s *Server) scanStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) scanByID(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	status := s.runner.Status()
	if status.CurrentRunID != nil && *status.CurrentRunID == runID {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"run_id":     runID.String(),
			"running":    true,
			"started_at": status.StartedAt,
		})
		return
	}
	if status.LastSummary != nil && status.LastSummary.RunID == runID {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"run_id":     runID.String(),
			"running":    false,
			"summary":    status.LastSummary,
			"last_error": status.LastError,
		})
		return
	}
	s.writeError(w, http.StatusNotFound, "run not found")
}

func (s *Server) cancelScan(w http.ResponseWriter, _ *http.Request) {
	if !s.runner.Status().Running {
		s.writeError(w, http.StatusNotFound, "no scan run in progress")
		return
	}
	s.runner.Stop()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "canceling"})
}

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.store.LoadZones(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load zones")
		return
	}
	if zones == nil {
		zones = []discovery.Zone{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

type registerZoneRequest struct {
	ID           string  `json:"zone_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func (s *Server) registerZone(w http.ResponseWriter, r *http.Request) {
	var req registerZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateZoneRequest(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.runner.Status().Running {
		s.writeError(w, http.StatusConflict, "cannot modify zones while a scan run is in progress")
		return
	}

	zone := discovery.Zone{
		ID:           req.ID,
		Name:         req.Name,
		Center:       geo.Point{Latitude: req.Latitude, Longitude: req.Longitude},
		RadiusMeters: req.RadiusMeters,
	}
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}

	zones, err := s.store.LoadZones(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load zones")
		return
	}
	replaced := false
	for i := range zones {
		if zones[i].ID == zone.ID {
			// Re-registering keeps the accumulated scan telemetry.
			zone.ScanCount = zones[i].ScanCount
			zone.LastScannedAt = zones[i].LastScannedAt
			zone.LastScanNewFound = zones[i].LastScanNewFound
			zone.TotalDiscovered = zones[i].TotalDiscovered
			zone.NewFoundHistory = zones[i].NewFoundHistory
			zone.LikelyComplete = zones[i].LikelyComplete
			zones[i] = zone
			replaced = true
			break
		}
	}
	if !replaced {
		zones = append(zones, zone)
	}
	if err := s.store.SaveZones(r.Context(), zones); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save zones")
		return
	}
	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]any{"zone": zone})
}

func validateZoneRequest(req registerZoneRequest) error {
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("zone_id or name is required")
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return fmt.Errorf("latitude must be within [-90, 90]")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return fmt.Errorf("longitude must be within [-180, 180]")
	}
	if req.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be > 0")
	}
	return nil
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	seed, err := s.store.LoadState(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load state")
		return
	}
	entities := discovery.NewState(seed).Entities()
	if zoneID := r.URL.Query().Get("zone_id"); zoneID != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if e.ZoneID == zoneID {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="restaurants.csv"`)
	if err := export.Write(w, entities); err != nil {
		s.logger.Error("results write failed", zap.Error(err))
	}
}

func (s *Server) events(w http.ResponseWriter, _ *http.Request) {
	f, err := os.Open(s.eventLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, http.StatusNotFound, "no event log yet")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to open event log")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := bufio.NewReader(f).WriteTo(w); err != nil {
		s.logger.Error("event log write failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("hijacking not supported")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
