package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

var forecastHourly = []string{
	"wind_speed_10m", "wind_direction_10m", "wind_gusts_10m",
	"precipitation", "precipitation_probability", "rain", "showers", "snowfall",
	"freezing_level_height", "uv_index", "surface_pressure",
}

// ForecastFetcher implements meteo.Fetcher for the Open-Meteo forecast API.
type ForecastFetcher struct {
	baseURL string
	client  *upstream.Client
}

func NewForecastFetcher(client *upstream.Client, baseURL string) *ForecastFetcher {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &ForecastFetcher{baseURL: baseURL, client: client}
}

func (f *ForecastFetcher) Name() meteo.Source {
	return meteo.SourceForecast
}

type forecastPayload struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Temperature2m meteo.Float `json:"temperature_2m"`
	} `json:"current"`
	Hourly *struct {
		Time                     []string      `json:"time"`
		WindSpeed10m             []meteo.Float `json:"wind_speed_10m"`
		WindDirection10m         []meteo.Float `json:"wind_direction_10m"`
		WindGusts10m             []meteo.Float `json:"wind_gusts_10m"`
		Precipitation            []meteo.Float `json:"precipitation"`
		PrecipitationProbability []meteo.Float `json:"precipitation_probability"`
		Rain                     []meteo.Float `json:"rain"`
		Showers                  []meteo.Float `json:"showers"`
		Snowfall                 []meteo.Float `json:"snowfall"`
		FreezingLevelHeight      []meteo.Float `json:"freezing_level_height"`
		UVIndex                  []meteo.Float `json:"uv_index"`
		SurfacePressure          []meteo.Float `json:"surface_pressure"`
	} `json:"hourly"`
}

func (f *ForecastFetcher) Fetch(ctx context.Context, q meteo.Query) (meteo.ForecastReading, error) {
	var payload forecastPayload
	if err := f.client.GetJSON(ctx, f.endpoint(q), &payload); err != nil {
		return meteo.ForecastReading{}, err
	}
	return normalizeForecast(payload, q), nil
}

func (f *ForecastFetcher) endpoint(q meteo.Query) string {
	hours := q.Hours
	if hours <= 0 {
		hours = meteo.DefaultHours
	}
	values := openMeteoValues(q)
	values.Set("current", "temperature_2m")
	values.Set("hourly", strings.Join(forecastHourly, ","))
	values.Set("forecast_hours", strconv.Itoa(hours))
	return fmt.Sprintf("%s?%s", f.baseURL, values.Encode())
}

func normalizeForecast(payload forecastPayload, q meteo.Query) meteo.ForecastReading {
	out := meteo.ForecastReading{
		TemperatureC: meteo.Clamp(meteo.Clean(payload.Current.Temperature2m), -60, 60),
	}
	h := payload.Hourly
	if h == nil {
		// Amounts default to 0 even without an hourly block.
		out.PrecipitationMm = amount(meteo.Null)
		out.RainMm = amount(meteo.Null)
		out.ShowersMm = amount(meteo.Null)
		out.SnowfallCm = amount(meteo.Null)
		return out
	}

	i := nearNow(h.Time, q.Now, payload.UTCOffsetSeconds)
	value := func(series []meteo.Float) meteo.Float {
		return meteo.Clean(at(series, i))
	}

	out.Time = timeAt(h.Time, i)
	out.WindSpeedKmh = meteo.Clamp(value(h.WindSpeed10m), 0, 300)
	out.WindDirectionDeg = meteo.Clamp(value(h.WindDirection10m), 0, 360)
	out.WindGustKmh = meteo.Clamp(value(h.WindGusts10m), 0, 350)
	out.PrecipitationMm = amount(value(h.Precipitation))
	out.PrecipitationProbabilityPct = meteo.Clamp(value(h.PrecipitationProbability), 0, 100)
	out.RainMm = amount(value(h.Rain))
	out.ShowersMm = amount(value(h.Showers))
	out.SnowfallCm = amount(value(h.Snowfall))
	out.FreezingLevelM = meteo.Clamp(value(h.FreezingLevelHeight), 0, 8000)
	out.UVIndex = meteo.Clamp(value(h.UVIndex), 0, 20)
	out.SurfacePressureHpa = meteo.Clamp(value(h.SurfacePressure), 800, 1100)
	return out
}

// amount treats an absent accumulation as 0 and floors negatives at 0.
func amount(v meteo.Float) meteo.Float {
	return meteo.FloorZero(v.Or(meteo.Some(0)))
}

var _ meteo.Fetcher[meteo.ForecastReading] = (*ForecastFetcher)(nil)
