package meteo

import (
	"fmt"
	"math"
	"time"
)

// Source identifies one upstream data source. The value doubles as its key in
// the response "sources" block.
type Source string

const (
	SourcePower      Source = "nasa_power"
	SourceForecast   Source = "open_meteo_weather"
	SourceAirQuality Source = "open_meteo_air_quality"
	SourcePollen     Source = "open_meteo_pollen"
)

// Coordinate is a validated point on the globe.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoordinate validates lat/lon ranges.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("longitude %v out of range", lon)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

// Query is everything a source fetch depends on.
type Query struct {
	Coordinate Coordinate
	Hours      int
	Timezone   string
	Now        time.Time
}

const (
	DefaultHours    = 48
	DefaultTimezone = "auto"
)

// PowerReading is the cleaned NASA POWER hourly point sample.
type PowerReading struct {
	PressureHpa          Float
	UVIndex              Float
	PrecipitationMmPerHr Float
	WindSpeedKmh         Float
	WindDirectionDeg     Float
	TemperatureC         Float
}

// ForecastReading is the near-now hour of the Open-Meteo forecast.
type ForecastReading struct {
	Time                        string
	TemperatureC                Float
	WindSpeedKmh                Float
	WindGustKmh                 Float
	WindDirectionDeg            Float
	PrecipitationMm             Float
	PrecipitationProbabilityPct Float
	RainMm                      Float
	ShowersMm                   Float
	SnowfallCm                  Float
	FreezingLevelM              Float
	UVIndex                     Float
	SurfacePressureHpa          Float
}

// AirQualityReading is the near-now hour of the Open-Meteo air-quality series.
// Pollutants are in µg/m³.
type AirQualityReading struct {
	Time            string `json:"time"`
	PM25            Float  `json:"pm25"`
	PM10            Float  `json:"pm10"`
	O3              Float  `json:"o3"`
	NO2             Float  `json:"no2"`
	SO2             Float  `json:"so2"`
	CO              Float  `json:"co"`
	UVIndex         Float  `json:"uv_index_openmeteo"`
	UVIndexClearSky Float  `json:"uv_index_clear_sky"`
	Dust            Float  `json:"dust"`
}

// PollenReading holds pollen indices on the 0-5 scale.
type PollenReading struct {
	Time    string `json:"time"`
	Grass   Float  `json:"grass"`
	Birch   Float  `json:"birch"`
	Ragweed Float  `json:"ragweed"`
	Alder   Float  `json:"alder"`
	Olive   Float  `json:"olive"`
	Mugwort Float  `json:"mugwort"`
}

// Result is the outcome of one source fetch. A failed fetch carries the
// all-null zero Reading and a non-nil Err.
type Result[T any] struct {
	Reading T
	Err     error
}

// OK reports whether the source answered.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Inputs bundles the four source results fed into Merge.
type Inputs struct {
	Power      Result[PowerReading]
	Forecast   Result[ForecastReading]
	AirQuality Result[AirQualityReading]
	Pollen     Result[PollenReading]
}

// Wind is the merged wind block.
type Wind struct {
	SpeedKmh     Float `json:"speed_kmh"`
	DirectionDeg Float `json:"direction_deg"`
	GustKmh      Float `json:"gust_kmh"`
}

// ForecastSummary carries the forecast-only fields.
type ForecastSummary struct {
	PrecipitationProbabilityPct Float `json:"precipitation_probability_pct"`
	RainMm                      Float `json:"rain_mm"`
	ShowersMm                   Float `json:"showers_mm"`
	SnowfallCm                  Float `json:"snowfall_cm"`
	FreezingLevelM              Float `json:"freezing_level_m"`
}

// SourceStatus records which upstreams answered.
type SourceStatus struct {
	NASAPower           bool `json:"nasa_power"`
	OpenMeteoWeather    bool `json:"open_meteo_weather"`
	OpenMeteoAirQuality bool `json:"open_meteo_air_quality"`
	OpenMeteoPollen     bool `json:"open_meteo_pollen"`
}

// MergedReading is the final per-field reading.
type MergedReading struct {
	TemperatureC         Float              `json:"temperature_c"`
	PressureHpa          Float              `json:"pressure_hpa"`
	UVIndex              Float              `json:"uv_index"`
	PrecipitationMmPerHr Float              `json:"precipitation_mm_per_hr"`
	Wind                 Wind               `json:"wind"`
	Forecast             ForecastSummary    `json:"forecast"`
	AirQuality           *AirQualityReading `json:"air_quality"`
	Pollen               *PollenReading     `json:"pollen"`
	Sources              SourceStatus       `json:"sources"`
}
