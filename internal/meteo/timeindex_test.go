package meteo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNearNowIndex(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		require.Equal(t, 0, NearNowIndex(nil, now))
	})

	t.Run("exact match", func(t *testing.T) {
		times := []string{"2025-01-15T10:00", "2025-01-15T11:00", "2025-01-15T12:00", "2025-01-15T13:00"}
		require.Equal(t, 2, NearNowIndex(times, now))
	})

	t.Run("closest wins", func(t *testing.T) {
		times := []string{"2025-01-15T10:00", "2025-01-15T12:40", "2025-01-15T11:50"}
		require.Equal(t, 2, NearNowIndex(times, now))
	})

	t.Run("tie keeps first", func(t *testing.T) {
		times := []string{"2025-01-15T11:30", "2025-01-15T12:30"}
		require.Equal(t, 0, NearNowIndex(times, now))
	})

	t.Run("unparseable skipped", func(t *testing.T) {
		times := []string{"garbage", "", "2025-01-15T12:00:00Z"}
		require.Equal(t, 2, NearNowIndex(times, now))
	})

	t.Run("all unparseable", func(t *testing.T) {
		require.Equal(t, 0, NearNowIndex([]string{"x", "y"}, now))
	})
}

func TestNearNowIndexInLocalZone(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	santiago := time.FixedZone("", -3*3600)

	// 09:00 local at UTC-3 is 12:00 UTC.
	times := []string{"2025-01-15T08:00", "2025-01-15T09:00", "2025-01-15T12:00"}
	require.Equal(t, 1, NearNowIndexIn(times, now, santiago))
	require.Equal(t, 2, NearNowIndex(times, now))
}
