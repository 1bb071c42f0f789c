// Package sinks provides Sink implementations for the progress hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/progress"
)

// LogSink emits structured logs for the scan event stream. It is the
// default operator-facing view of a running scan.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.ZoneID != "" {
			fields = append(fields, zap.String("zone_id", evt.ZoneID))
		}
		if evt.PlaceID != "" {
			fields = append(fields,
				zap.String("place_id", evt.PlaceID),
				zap.String("name", evt.Name))
		}
		if evt.Stage == progress.StageZoneScanComplete || evt.Stage == progress.StageRestaurantFound {
			fields = append(fields,
				zap.Int("new_found", evt.NewFound),
				zap.Int("total_known", evt.TotalKnown))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("scan event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
