package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

// POWER parameter codes.
const (
	powerPressure      = "PS"
	powerUV            = "ALLSKY_SFC_UV_INDEX"
	powerPrecipitation = "PRECTOTCORR"
	powerWindSpeed     = "WS10M"
	powerWindDirection = "WD10M"
	powerTemperature   = "T2M"
)

var powerParameters = []string{
	powerPressure, powerUV, powerPrecipitation, powerWindSpeed, powerWindDirection, powerTemperature,
}

// kPaThreshold: a surface pressure below this cannot be hPa, so it is read as kPa.
const kPaThreshold = 200

// PowerFetcher implements meteo.Fetcher for the NASA POWER hourly point API.
type PowerFetcher struct {
	baseURL string
	client  *upstream.Client
}

func NewPowerFetcher(client *upstream.Client, baseURL string) *PowerFetcher {
	if baseURL == "" {
		baseURL = DefaultPowerURL
	}
	return &PowerFetcher{baseURL: baseURL, client: client}
}

func (p *PowerFetcher) Name() meteo.Source {
	return meteo.SourcePower
}

type powerPayload struct {
	Properties struct {
		Parameter      map[string]map[string]meteo.Float `json:"parameter"`
		ParameterUnits map[string]string                 `json:"parameter_units"`
	} `json:"properties"`
	Parameters map[string]struct {
		Units string `json:"units"`
	} `json:"parameters"`
}

// unit returns the declared unit of param, preferring properties.parameter_units.
func (p powerPayload) unit(param string) string {
	if u, ok := p.Properties.ParameterUnits[param]; ok && u != "" {
		return u
	}
	if meta, ok := p.Parameters[param]; ok {
		return meta.Units
	}
	return ""
}

func (p *PowerFetcher) Fetch(ctx context.Context, q meteo.Query) (meteo.PowerReading, error) {
	var payload powerPayload
	if err := p.client.GetJSON(ctx, p.endpoint(q), &payload); err != nil {
		return meteo.PowerReading{}, err
	}
	return normalizePower(payload), nil
}

// endpoint covers the 24 hours up to q.Now, as UTC dates.
func (p *PowerFetcher) endpoint(q meteo.Query) string {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	values := url.Values{}
	values.Set("parameters", strings.Join(powerParameters, ","))
	values.Set("community", "RE")
	values.Set("longitude", formatCoord(q.Coordinate.Lon))
	values.Set("latitude", formatCoord(q.Coordinate.Lat))
	values.Set("start", meteo.ISODateUTC(now.Add(-24*time.Hour)))
	values.Set("end", meteo.ISODateUTC(now))
	values.Set("format", "JSON")
	values.Set("time-standard", "UTC")
	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

func normalizePower(payload powerPayload) meteo.PowerReading {
	params := payload.Properties.Parameter
	latest := func(code string) meteo.Float {
		return meteo.Clean(latestValue(params[code]))
	}

	return meteo.PowerReading{
		PressureHpa:          powerPressureHpa(latest(powerPressure), payload.unit(powerPressure)),
		UVIndex:              meteo.Clamp(latest(powerUV), 0, 20),
		PrecipitationMmPerHr: meteo.FloorZero(latest(powerPrecipitation)),
		WindSpeedKmh:         rejectNegative(meteo.MsToKmh(latest(powerWindSpeed))),
		WindDirectionDeg:     meteo.Clamp(latest(powerWindDirection), 0, 360),
		TemperatureC:         meteo.Clamp(latest(powerTemperature), -60, 60),
	}
}

// latestValue takes the lexicographically last hour key. POWER keys are
// zero-padded YYYYMMDDHH, so that is also the most recent hour.
func latestValue(series map[string]meteo.Float) meteo.Float {
	if len(series) == 0 {
		return meteo.Null
	}
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return series[keys[len(keys)-1]]
}

// powerPressureHpa reads raw as kPa when declared so or when below
// kPaThreshold, then rejects anything outside 800-1100 hPa.
func powerPressureHpa(raw meteo.Float, unit string) meteo.Float {
	v, ok := raw.Get()
	if !ok {
		return meteo.Null
	}
	if strings.EqualFold(strings.TrimSpace(unit), "kpa") || v < kPaThreshold {
		v *= 10
	}
	return meteo.Clamp(meteo.Some(v), 800, 1100)
}

func rejectNegative(v meteo.Float) meteo.Float {
	if x, ok := v.Get(); ok && x < 0 {
		return meteo.Null
	}
	return v
}

var _ meteo.Fetcher[meteo.PowerReading] = (*PowerFetcher)(nil)
