// Package sources implements the four upstream clients feeding the meteo service.
package sources

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
)

// ErrNoHourlyData is returned when a 2xx air-quality payload has no hourly block.
var ErrNoHourlyData = errors.New("response has no hourly data")

// Base URLs of the public endpoints.
const (
	DefaultPowerURL      = "https://power.larc.nasa.gov/api/temporal/hourly/point"
	DefaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
)

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// openMeteoValues holds the query parameters shared by the Open-Meteo endpoints.
func openMeteoValues(q meteo.Query) url.Values {
	values := url.Values{}
	values.Set("latitude", formatCoord(q.Coordinate.Lat))
	values.Set("longitude", formatCoord(q.Coordinate.Lon))
	tz := q.Timezone
	if tz == "" {
		tz = meteo.DefaultTimezone
	}
	values.Set("timezone", tz)
	return values
}

// at reads series[i] and treats a short or absent series as null.
func at(series []meteo.Float, i int) meteo.Float {
	if i < 0 || i >= len(series) {
		return meteo.Null
	}
	return series[i]
}

func timeAt(times []string, i int) string {
	if i < 0 || i >= len(times) {
		return ""
	}
	return times[i]
}

// responseZone is the fixed zone Open-Meteo used to render offset-less hourly timestamps.
func responseZone(offsetSeconds int) *time.Location {
	if offsetSeconds == 0 {
		return time.UTC
	}
	return time.FixedZone("", offsetSeconds)
}

// nearNow picks the near-now index, falling back to 0 without timestamps.
func nearNow(times []string, now time.Time, offsetSeconds int) int {
	if len(times) == 0 {
		return 0
	}
	return meteo.NearNowIndexIn(times, now, responseZone(offsetSeconds))
}
