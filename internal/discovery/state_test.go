package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func entity(id, zoneID string, at time.Time) Entity {
	return Entity{PlaceID: id, Name: "place " + id, ZoneID: zoneID, DiscoveredAt: at}
}

func TestStateRecordAndContains(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	require.False(t, s.Contains("a"))
	require.Zero(t, s.Len())

	now := time.Now().UTC()
	require.NoError(t, s.Record(entity("a", "soho", now)))
	require.True(t, s.Contains("a"))
	require.Equal(t, 1, s.Len())
}

func TestStateRecordDuplicateFailsLoudly(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	now := time.Now().UTC()
	require.NoError(t, s.Record(entity("a", "soho", now)))

	err := s.Record(entity("a", "mayfair", now))
	require.Error(t, err)
	require.Contains(t, err.Error(), "already present")

	// First zone keeps ownership.
	require.Equal(t, 1, s.ZoneCount("soho"))
	require.Zero(t, s.ZoneCount("mayfair"))
}

func TestStateRecordEmptyID(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	require.Error(t, s.Record(Entity{}))
}

func TestStateSeedOrderIsDiscoveryOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := map[string]Entity{
		"c": entity("c", "soho", base.Add(2*time.Minute)),
		"a": entity("a", "soho", base),
		"b": entity("b", "soho", base.Add(time.Minute)),
	}
	s := NewState(seed)

	got := s.Entities()
	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].PlaceID)
	require.Equal(t, "b", got[1].PlaceID)
	require.Equal(t, "c", got[2].PlaceID)
}

func TestStateZoneEntities(t *testing.T) {
	t.Parallel()

	s := NewState(nil)
	now := time.Now().UTC()
	require.NoError(t, s.Record(entity("a", "soho", now)))
	require.NoError(t, s.Record(entity("b", "mayfair", now)))
	require.NoError(t, s.Record(entity("c", "soho", now)))

	soho := s.ZoneEntities("soho")
	require.Len(t, soho, 2)
	require.Equal(t, "a", soho[0].PlaceID)
	require.Equal(t, "c", soho[1].PlaceID)
	require.Equal(t, 2, s.ZoneCount("soho"))
}

func TestZoneSaturationFlag(t *testing.T) {
	t.Parallel()

	z := Zone{ID: "soho"}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// First pass found plenty; second tapers but history is [5, 1].
	z.ApplyScanResult(5, 5, at, 2, 5)
	require.False(t, z.LikelyComplete)
	z.ApplyScanResult(1, 6, at.Add(time.Hour), 2, 5)
	require.False(t, z.LikelyComplete, "one low count is not saturation")

	// History [1, 1] then [1, 0]: two consecutive counts below threshold.
	z.ApplyScanResult(1, 7, at.Add(2*time.Hour), 2, 5)
	require.True(t, z.LikelyComplete)
	z.ApplyScanResult(0, 7, at.Add(3*time.Hour), 2, 5)
	require.True(t, z.LikelyComplete)

	require.Equal(t, 4, z.ScanCount)
	require.Equal(t, 0, z.LastScanNewFound)
	require.Equal(t, 7, z.TotalDiscovered)
}

func TestZoneSaturationRecovers(t *testing.T) {
	t.Parallel()

	z := Zone{ID: "soho"}
	at := time.Now().UTC()
	z.ApplyScanResult(0, 0, at, 2, 5)
	z.ApplyScanResult(0, 0, at, 2, 5)
	require.True(t, z.LikelyComplete)

	// A burst of new entities clears the flag.
	z.ApplyScanResult(4, 4, at, 2, 5)
	require.False(t, z.LikelyComplete)
}

func TestZoneHistoryBounded(t *testing.T) {
	t.Parallel()

	z := Zone{ID: "soho"}
	at := time.Now().UTC()
	for i := 0; i < 10; i++ {
		z.ApplyScanResult(i, i, at, 2, 3)
	}
	require.Len(t, z.NewFoundHistory, 3)
	require.Equal(t, []int{7, 8, 9}, z.NewFoundHistory)
}
