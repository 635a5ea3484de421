package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/meteo-aggregation/internal/cache"
	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

func TestForecastFetch(t *testing.T) {
	var got recorder
	srv := serve(t, http.StatusOK, `{
		"utc_offset_seconds": -10800,
		"current": {"temperature_2m": 19.5},
		"hourly": {
			"time": ["2025-01-15T08:00", "2025-01-15T09:00", "2025-01-15T10:00"],
			"wind_speed_10m": [5, 7, 9],
			"wind_direction_10m": [90, 100, 110],
			"wind_gusts_10m": [12, 400, 18],
			"precipitation": [0.1, -0.5, 0.2],
			"precipitation_probability": [5, 10, 15],
			"rain": [0, null, 0],
			"showers": [0, 0.3, 0],
			"snowfall": [0, 0, 0],
			"freezing_level_height": [3000, 3100, 3200],
			"uv_index": [1, 2, 3],
			"surface_pressure": [1012, 1013, 1014]
		}
	}`, &got)

	f := NewForecastFetcher(testClient("forecast"), srv.URL)
	reading, err := f.Fetch(context.Background(), meteo.Query{
		Coordinate: meteo.Coordinate{Lat: -33.45, Lon: -70.66},
		Hours:      24,
		Timezone:   "auto",
		Now:        testNow,
	})
	require.NoError(t, err)

	q := got.Query()
	require.Equal(t, "temperature_2m", q.Get("current"))
	require.Equal(t, "24", q.Get("forecast_hours"))
	require.Equal(t, "auto", q.Get("timezone"))
	require.Contains(t, q.Get("hourly"), "freezing_level_height")

	// 09:00 at UTC-3 is the hour containing 12:00 UTC.
	require.Equal(t, "2025-01-15T09:00", reading.Time)
	require.Equal(t, meteo.Some(19.5), reading.TemperatureC)
	require.Equal(t, meteo.Some(7), reading.WindSpeedKmh)
	require.Equal(t, meteo.Null, reading.WindGustKmh)
	require.Equal(t, meteo.Some(0), reading.PrecipitationMm)
	require.Equal(t, meteo.Some(0), reading.RainMm)
	require.Equal(t, meteo.Some(0.3), reading.ShowersMm)
	require.Equal(t, meteo.Some(10), reading.PrecipitationProbabilityPct)
	require.Equal(t, meteo.Some(3100), reading.FreezingLevelM)
	require.Equal(t, meteo.Some(1013), reading.SurfacePressureHpa)
}

func TestForecastWithoutHourly(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"current": {"temperature_2m": 75}}`, nil)
	f := NewForecastFetcher(testClient("forecast"), srv.URL)

	reading, err := f.Fetch(context.Background(), meteo.Query{Now: testNow})
	require.NoError(t, err)
	require.Equal(t, meteo.Null, reading.TemperatureC)
	require.Equal(t, meteo.Some(0), reading.PrecipitationMm)
	require.Equal(t, meteo.Some(0), reading.SnowfallCm)
	require.Equal(t, meteo.Null, reading.UVIndex)
}

func TestAirQualityFetch(t *testing.T) {
	var got recorder
	srv := serve(t, http.StatusOK, `{
		"utc_offset_seconds": 0,
		"hourly": {
			"time": ["2025-01-15T11:00", "2025-01-15T12:00"],
			"pm2_5": [10, 11],
			"pm10": [20, 1200],
			"ozone": [30, 31],
			"nitrogen_dioxide": [5, -999],
			"sulphur_dioxide": [1, 2],
			"carbon_monoxide": [150, 160],
			"uv_index": [2, 2.5],
			"uv_index_clear_sky": [3, 3.5]
		}
	}`, &got)

	f := NewAirQualityFetcher(testClient("air_quality"), srv.URL)
	reading, err := f.Fetch(context.Background(), meteo.Query{Now: testNow})
	require.NoError(t, err)
	require.Contains(t, got.Query().Get("hourly"), "pm2_5")

	require.Equal(t, "2025-01-15T12:00", reading.Time)
	require.Equal(t, meteo.Some(11), reading.PM25)
	require.Equal(t, meteo.Null, reading.PM10)
	require.Equal(t, meteo.Null, reading.NO2)
	require.Equal(t, meteo.Some(160), reading.CO)
	require.Equal(t, meteo.Some(2.5), reading.UVIndex)
	require.Equal(t, meteo.Null, reading.Dust)
}

func TestAirQualityWithoutHourly(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"latitude": 1}`, nil)

	_, err := NewAirQualityFetcher(testClient("air_quality"), srv.URL).Fetch(context.Background(), meteo.Query{Now: testNow})
	require.ErrorIs(t, err, ErrNoHourlyData)

	_, err = NewPollenFetcher(testClient("pollen"), srv.URL).Fetch(context.Background(), meteo.Query{Now: testNow})
	require.ErrorIs(t, err, ErrNoHourlyData)
}

func TestPollenFetch(t *testing.T) {
	var got recorder
	srv := serve(t, http.StatusOK, `{
		"hourly": {
			"time": ["2025-01-15T12:00"],
			"grass_pollen": [3],
			"birch_pollen": [6],
			"ragweed_pollen": [null],
			"alder_pollen": ["1.5"],
			"olive_pollen": [0],
			"mugwort_pollen": [-1]
		}
	}`, &got)

	reading, err := NewPollenFetcher(testClient("pollen"), srv.URL).Fetch(context.Background(), meteo.Query{Now: testNow})
	require.NoError(t, err)
	require.Contains(t, got.Query().Get("hourly"), "grass_pollen")

	require.Equal(t, meteo.Some(3), reading.Grass)
	require.Equal(t, meteo.Null, reading.Birch)
	require.Equal(t, meteo.Null, reading.Ragweed)
	require.Equal(t, meteo.Some(1.5), reading.Alder)
	require.Equal(t, meteo.Some(0), reading.Olive)
	require.Equal(t, meteo.Null, reading.Mugwort)
}

func TestAirQualityWithoutHourlyIsRefetched(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"latitude": 1}`))
			return
		}
		_, _ = w.Write([]byte(`{"hourly": {"time": ["2025-01-15T12:00"], "pm2_5": [7]}}`))
	}))
	t.Cleanup(srv.Close)

	client := upstream.New("air_quality", upstream.Options{
		HTTPClient: srv.Client(),
		Cache:      cache.NewMemoryCache(10),
		CacheTTL:   time.Minute,
	})
	f := NewAirQualityFetcher(client, srv.URL)
	q := meteo.Query{Now: testNow}

	_, err := f.Fetch(context.Background(), q)
	require.ErrorIs(t, err, ErrNoHourlyData)

	reading, err := f.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, meteo.Some(7), reading.PM25)

	// The good body is now cached.
	_, err = f.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}
