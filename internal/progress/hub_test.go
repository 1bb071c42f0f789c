package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(stage Stage) Event {
	return Event{
		RunID:   uuid.New(),
		TS:      time.Now().UTC(),
		Stage:   stage,
		ZoneID:  "soho",
		PlaceID: "pid-1",
	}
}

func TestHubDeliversAndCloses(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{Logger: zaptest.NewLogger(t)}, sink)

	hub.Emit(validEvent(StageScanStart))
	hub.Emit(validEvent(StageRestaurantFound))
	hub.Emit(validEvent(StageZoneScanComplete))

	require.NoError(t, hub.Close(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 3)
	require.Equal(t, StageScanStart, got[0].Stage)
	require.Equal(t, StageZoneScanComplete, got[2].Stage)
	require.True(t, sink.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{Logger: zaptest.NewLogger(t)}, sink)

	hub.Emit(Event{Stage: StageScanStart})
	hub.Emit(Event{RunID: uuid.New(), TS: time.Now(), Stage: "BOGUS"})
	hub.Emit(Event{RunID: uuid.New(), TS: time.Now(), Stage: StageRestaurantFound})

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.snapshot())
}

func TestHubFlushesOnBatchSize(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{
		MaxBatchEvents: 2,
		MaxBatchWait:   time.Hour,
		Logger:         zaptest.NewLogger(t),
	}, sink)
	defer hub.Close(context.Background())

	hub.Emit(validEvent(StageRestaurantFound))
	hub.Emit(validEvent(StageRestaurantFound))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubEmitAfterCloseIsSafe(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{Logger: zaptest.NewLogger(t)}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageScanStart))
	require.NoError(t, hub.Close(context.Background()))
}

func TestNilHubIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent(StageScanStart))
	require.NoError(t, hub.Close(context.Background()))
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	base := validEvent(StageRestaurantFound)
	require.NoError(t, base.Validate())

	missingRun := base
	missingRun.RunID = uuid.Nil
	require.Error(t, missingRun.Validate())

	missingTS := base
	missingTS.TS = time.Time{}
	require.Error(t, missingTS.Validate())

	missingPlace := base
	missingPlace.PlaceID = ""
	require.Error(t, missingPlace.Validate())

	zoneDone := base
	zoneDone.Stage = StageZoneScanComplete
	zoneDone.PlaceID = ""
	require.NoError(t, zoneDone.Validate())
	zoneDone.ZoneID = ""
	require.Error(t, zoneDone.Validate())
}
