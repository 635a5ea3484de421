package meteo

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// NearNowIndex returns the index of the timestamp closest to now, reading
// timestamps without an offset as UTC. See NearNowIndexIn.
func NearNowIndex(times []string, now time.Time) int {
	return NearNowIndexIn(times, now, time.UTC)
}

// NearNowIndexIn scans times and returns the index with the smallest absolute
// distance to now. Offset-less timestamps are read in loc. Ties keep the first
// match, unparseable entries are skipped, and an empty or fully unparseable
// slice yields 0.
func NearNowIndexIn(times []string, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	best := 0
	var bestDiff time.Duration
	found := false
	for i, raw := range times {
		ts, ok := parseTimestamp(raw, loc)
		if !ok {
			continue
		}
		diff := ts.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			best, bestDiff, found = i, diff, true
		}
	}
	return best
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
