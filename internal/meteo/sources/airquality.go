package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

var airQualityHourly = []string{
	"pm2_5", "pm10", "ozone", "nitrogen_dioxide", "sulphur_dioxide", "carbon_monoxide",
	"uv_index", "uv_index_clear_sky", "dust",
}

var pollenHourly = []string{
	"grass_pollen", "birch_pollen", "ragweed_pollen", "alder_pollen", "olive_pollen", "mugwort_pollen",
}

// AirQualityFetcher implements meteo.Fetcher for the Open-Meteo pollutant series.
type AirQualityFetcher struct {
	baseURL string
	client  *upstream.Client
}

func NewAirQualityFetcher(client *upstream.Client, baseURL string) *AirQualityFetcher {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &AirQualityFetcher{baseURL: baseURL, client: client}
}

func (a *AirQualityFetcher) Name() meteo.Source {
	return meteo.SourceAirQuality
}

type airQualityPayload struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Hourly           *struct {
		Time            []string      `json:"time"`
		PM25            []meteo.Float `json:"pm2_5"`
		PM10            []meteo.Float `json:"pm10"`
		Ozone           []meteo.Float `json:"ozone"`
		NitrogenDioxide []meteo.Float `json:"nitrogen_dioxide"`
		SulphurDioxide  []meteo.Float `json:"sulphur_dioxide"`
		CarbonMonoxide  []meteo.Float `json:"carbon_monoxide"`
		UVIndex         []meteo.Float `json:"uv_index"`
		UVIndexClearSky []meteo.Float `json:"uv_index_clear_sky"`
		Dust            []meteo.Float `json:"dust"`
	} `json:"hourly"`
}

// Validate rejects a 2xx body without an hourly block so it is never cached.
func (p *airQualityPayload) Validate() error {
	if p.Hourly == nil {
		return ErrNoHourlyData
	}
	return nil
}

func (a *AirQualityFetcher) Fetch(ctx context.Context, q meteo.Query) (meteo.AirQualityReading, error) {
	var payload airQualityPayload
	if err := a.client.GetJSON(ctx, airQualityEndpoint(a.baseURL, q, airQualityHourly), &payload); err != nil {
		return meteo.AirQualityReading{}, err
	}
	h := payload.Hourly

	i := nearNow(h.Time, q.Now, payload.UTCOffsetSeconds)
	value := func(series []meteo.Float, min, max float64) meteo.Float {
		return meteo.Clamp(meteo.Clean(at(series, i)), min, max)
	}
	return meteo.AirQualityReading{
		Time:            timeAt(h.Time, i),
		PM25:            value(h.PM25, 0, 1000),
		PM10:            value(h.PM10, 0, 1000),
		O3:              value(h.Ozone, 0, 1000),
		NO2:             value(h.NitrogenDioxide, 0, 1000),
		SO2:             value(h.SulphurDioxide, 0, 1000),
		CO:              value(h.CarbonMonoxide, 0, 50000),
		UVIndex:         value(h.UVIndex, 0, 20),
		UVIndexClearSky: value(h.UVIndexClearSky, 0, 20),
		Dust:            value(h.Dust, 0, 10000),
	}, nil
}

// PollenFetcher implements meteo.Fetcher for the Open-Meteo pollen series.
// It hits the same endpoint as AirQualityFetcher with another parameter set.
type PollenFetcher struct {
	baseURL string
	client  *upstream.Client
}

func NewPollenFetcher(client *upstream.Client, baseURL string) *PollenFetcher {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &PollenFetcher{baseURL: baseURL, client: client}
}

func (p *PollenFetcher) Name() meteo.Source {
	return meteo.SourcePollen
}

type pollenPayload struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Hourly           *struct {
		Time    []string      `json:"time"`
		Grass   []meteo.Float `json:"grass_pollen"`
		Birch   []meteo.Float `json:"birch_pollen"`
		Ragweed []meteo.Float `json:"ragweed_pollen"`
		Alder   []meteo.Float `json:"alder_pollen"`
		Olive   []meteo.Float `json:"olive_pollen"`
		Mugwort []meteo.Float `json:"mugwort_pollen"`
	} `json:"hourly"`
}

func (p *pollenPayload) Validate() error {
	if p.Hourly == nil {
		return ErrNoHourlyData
	}
	return nil
}

func (p *PollenFetcher) Fetch(ctx context.Context, q meteo.Query) (meteo.PollenReading, error) {
	var payload pollenPayload
	if err := p.client.GetJSON(ctx, airQualityEndpoint(p.baseURL, q, pollenHourly), &payload); err != nil {
		return meteo.PollenReading{}, err
	}
	h := payload.Hourly

	i := nearNow(h.Time, q.Now, payload.UTCOffsetSeconds)
	index := func(series []meteo.Float) meteo.Float {
		return meteo.Clamp(meteo.Clean(at(series, i)), 0, 5)
	}
	return meteo.PollenReading{
		Time:    timeAt(h.Time, i),
		Grass:   index(h.Grass),
		Birch:   index(h.Birch),
		Ragweed: index(h.Ragweed),
		Alder:   index(h.Alder),
		Olive:   index(h.Olive),
		Mugwort: index(h.Mugwort),
	}, nil
}

func airQualityEndpoint(baseURL string, q meteo.Query, hourly []string) string {
	values := openMeteoValues(q)
	values.Set("hourly", strings.Join(hourly, ","))
	return fmt.Sprintf("%s?%s", baseURL, values.Encode())
}

var (
	_ upstream.Validator = (*airQualityPayload)(nil)
	_ upstream.Validator = (*pollenPayload)(nil)

	_ meteo.Fetcher[meteo.AirQualityReading] = (*AirQualityFetcher)(nil)
	_ meteo.Fetcher[meteo.PollenReading]     = (*PollenFetcher)(nil)
)
