package meteo

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/meteo-aggregation/internal/logging"
)

type stubFetcher[T any] struct {
	name    Source
	reading T
	err     error
	calls   atomic.Int32
	got     Query
}

func (s *stubFetcher[T]) Name() Source { return s.name }

func (s *stubFetcher[T]) Fetch(_ context.Context, q Query) (T, error) {
	s.calls.Add(1)
	s.got = q
	if s.err != nil {
		var zero T
		return zero, s.err
	}
	return s.reading, nil
}

func TestServiceAggregateIsolatesFailures(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	power := &stubFetcher[PowerReading]{name: SourcePower, err: errDown}
	forecast := &stubFetcher[ForecastReading]{name: SourceForecast, reading: ForecastReading{
		TemperatureC: Some(22), SurfacePressureHpa: Some(1010),
	}}
	air := &stubFetcher[AirQualityReading]{name: SourceAirQuality, reading: AirQualityReading{PM10: Some(16)}}

	svc := NewService(Fetchers{Power: power, Forecast: forecast, AirQuality: air}, logging.Discard()).
		WithClock(func() time.Time { return now })

	merged := svc.Aggregate(context.Background(), Query{Coordinate: Coordinate{Lat: -33.45, Lon: -70.66}})

	require.Equal(t, int32(1), power.calls.Load())
	require.Equal(t, int32(1), forecast.calls.Load())
	require.Equal(t, int32(1), air.calls.Load())

	require.Equal(t, Some(22.0), merged.TemperatureC)
	require.Equal(t, Some(1010.0), merged.PressureHpa)
	require.NotNil(t, merged.AirQuality)
	require.Nil(t, merged.Pollen)
	require.Equal(t, SourceStatus{OpenMeteoWeather: true, OpenMeteoAirQuality: true}, merged.Sources)

	// Defaults are filled in before fan-out.
	require.Equal(t, now, forecast.got.Now)
	require.Equal(t, DefaultHours, forecast.got.Hours)
	require.Equal(t, DefaultTimezone, forecast.got.Timezone)
}

func TestServiceAllSourcesDown(t *testing.T) {
	svc := NewService(Fetchers{
		Power:      &stubFetcher[PowerReading]{name: SourcePower, err: errDown},
		Forecast:   &stubFetcher[ForecastReading]{name: SourceForecast, err: errDown},
		AirQuality: &stubFetcher[AirQualityReading]{name: SourceAirQuality, err: errDown},
		Pollen:     &stubFetcher[PollenReading]{name: SourcePollen, err: errDown},
	}, nil)

	merged := svc.Aggregate(context.Background(), Query{})
	require.Equal(t, MergedReading{}, merged)

	resp := Assemble(Coordinate{Lat: 1, Lon: 2}, merged, time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"ok": true,
		"coords": {"lat": 1, "lon": 2},
		"temperature_c": null,
		"pressure_hpa": null,
		"uv_index": null,
		"precipitation_mm_per_hr": null,
		"wind": {"speed_kmh": null, "direction_deg": null, "gust_kmh": null},
		"forecast": {
			"precipitation_probability_pct": null,
			"rain_mm": null,
			"showers_mm": null,
			"snowfall_cm": null,
			"freezing_level_m": null
		},
		"air_quality": null,
		"pollen": null,
		"sources": {
			"nasa_power": false,
			"open_meteo_weather": false,
			"open_meteo_air_quality": false,
			"open_meteo_pollen": false
		},
		"generated_at": "2025-01-15T12:00:00Z",
		"units": {
			"temperature": "°C",
			"pressure": "hPa",
			"precipitation_rate": "mm/h",
			"precipitation_amount": "mm",
			"wind_speed": "km/h",
			"wind_direction": "deg",
			"snowfall": "cm",
			"freezing_level": "m",
			"pollutants": "µg/m³",
			"co": "µg/m³",
			"uv_index": "index",
			"pollen": "index"
		}
	}`, string(out))
}

func TestServiceMissingFetcherCountsAsFailed(t *testing.T) {
	svc := NewService(Fetchers{}, nil)
	in := svc.Collect(context.Background(), Query{})
	require.False(t, in.Power.OK())
	require.False(t, in.Forecast.OK())
	require.False(t, in.AirQuality.OK())
	require.False(t, in.Pollen.OK())
}
