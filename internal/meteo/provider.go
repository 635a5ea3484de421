package meteo

import "context"

// Fetcher abstracts one upstream data source producing a normalized reading of type T.
type Fetcher[T any] interface {
	Name() Source
	Fetch(ctx context.Context, q Query) (T, error)
}

// Fetchers is the fixed set of sources the service fans out to. A nil entry
// is reported as a failed source.
type Fetchers struct {
	Power      Fetcher[PowerReading]
	Forecast   Fetcher[ForecastReading]
	AirQuality Fetcher[AirQualityReading]
	Pollen     Fetcher[PollenReading]
}
