package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a scan run is requested while one is
// still in flight.
var ErrAlreadyRunning = errors.New("a scan run is already in progress")

// RunStatus describes the Runner's current and most recent run.
type RunStatus struct {
	Running      bool        `json:"running"`
	CurrentRunID *uuid.UUID  `json:"current_run_id,omitempty"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	LastSummary  *RunSummary `json:"last_summary,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
}

// Runner serializes scan runs: at most one is in flight at a time.
type Runner struct {
	pipeline *Pipeline
	clock    Clock
	logger   *zap.Logger

	mu        sync.Mutex
	running   bool
	runID     uuid.UUID
	startedAt time.Time
	cancel    context.CancelFunc
	last      *RunSummary
	lastErr   error
}

// NewRunner wires a Runner around a Pipeline.
func NewRunner(p *Pipeline, clock Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{pipeline: p, clock: clock, logger: logger}
}

// Start launches a scan run in the background. It fails fast with
// ErrAlreadyRunning instead of queueing.
func (r *Runner) Start(ctx context.Context) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return uuid.Nil, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.runID = uuid.New()
	r.startedAt = r.clock.Now()
	r.cancel = cancel
	ticket := r.runID

	go func() {
		summary, err := r.pipeline.RunWithID(runCtx, ticket)
		cancel()
		r.mu.Lock()
		r.running = false
		r.last = summary
		r.lastErr = err
		r.mu.Unlock()
		if err != nil {
			r.logger.Error("scan run failed", zap.String("ticket", ticket.String()), zap.Error(err))
		}
	}()
	return ticket, nil
}

// Stop cancels the in-flight run, if any.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.cancel != nil {
		r.cancel()
	}
}

// Status reports whether a run is in flight plus the latest outcome.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := RunStatus{
		Running:     r.running,
		LastSummary: r.last,
	}
	if r.running {
		id := r.runID
		started := r.startedAt
		status.CurrentRunID = &id
		status.StartedAt = &started
	}
	if r.lastErr != nil {
		status.LastError = r.lastErr.Error()
	}
	return status
}
