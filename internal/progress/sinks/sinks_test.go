package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sohogrid/menuscout/internal/progress"
)

func testBatch() []progress.Event {
	runID := uuid.New()
	ts := time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC)
	return []progress.Event{
		{RunID: runID, TS: ts, Stage: progress.StageScanStart},
		{
			RunID: runID, TS: ts.Add(time.Second),
			Stage:  progress.StageRestaurantFound,
			ZoneID: "soho", PlaceID: "pid-1", Name: "Quo Vadis",
			NewFound: 1, TotalKnown: 1,
		},
		{
			RunID: runID, TS: ts.Add(2 * time.Second),
			Stage:  progress.StageZoneScanComplete,
			ZoneID: "soho", NewFound: 1, TotalKnown: 1,
		},
		{RunID: runID, TS: ts.Add(3 * time.Second), Stage: progress.StageScanDone},
	}
}

func TestFileSinkWritesNDJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scan_events.ndjson")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), testBatch()))
	require.NoError(t, sink.Close(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var stages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		stages = append(stages, rec["type"].(string))
	}
	require.NoError(t, scanner.Err())
	require.Equal(t,
		[]string{"scan_start", "restaurant_found", "zone_scan_complete", "scan_done"},
		stages)
}

func TestFileSinkTruncatesOnOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scan_events.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o600))

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestFileSinkResetsPerRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scan_events.ndjson")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), testBatch()))
	secondRun := testBatch()
	require.NoError(t, sink.Consume(context.Background(), secondRun))
	require.NoError(t, sink.Close(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var runIDs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		runIDs = append(runIDs, rec["run_id"].(string))
	}
	require.NoError(t, scanner.Err())
	require.Len(t, runIDs, len(secondRun), "earlier runs are dropped at scan start")
	for _, id := range runIDs {
		require.Equal(t, secondRun[0].RunID.String(), id)
	}
}

func TestFileSinkConsumeAfterClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scan_events.ndjson")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	require.Error(t, sink.Consume(context.Background(), testBatch()))
	require.NoError(t, sink.Close(context.Background()))
}

func TestPrometheusSinkCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	require.NoError(t, sink.Consume(context.Background(), testBatch()))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.scansStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.scansCompleted.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.restaurants.WithLabelValues("soho")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.zoneScans.WithLabelValues("soho")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.totalKnown))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

func TestLogSinkDoesNotError(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(zaptest.NewLogger(t))
	require.NoError(t, sink.Consume(context.Background(), testBatch()))
	require.NoError(t, sink.Close(context.Background()))
}
