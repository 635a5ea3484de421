package meteo

// Field names one merged output value, using its JSON path.
type Field string

const (
	FieldTemperature              Field = "temperature_c"
	FieldPressure                 Field = "pressure_hpa"
	FieldUVIndex                  Field = "uv_index"
	FieldPrecipitationRate        Field = "precipitation_mm_per_hr"
	FieldWindSpeed                Field = "wind.speed_kmh"
	FieldWindDirection            Field = "wind.direction_deg"
	FieldWindGust                 Field = "wind.gust_kmh"
	FieldPrecipitationProbability Field = "forecast.precipitation_probability_pct"
	FieldRain                     Field = "forecast.rain_mm"
	FieldShowers                  Field = "forecast.showers_mm"
	FieldSnowfall                 Field = "forecast.snowfall_cm"
	FieldFreezingLevel            Field = "forecast.freezing_level_m"
)

type candidate struct {
	source Source
	value  func(in Inputs) Float
}

// priorities lists, per field, the sources to consult in order. The first
// non-null value wins; values are never blended.
var priorities = map[Field][]candidate{
	FieldTemperature: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.TemperatureC }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.TemperatureC }},
	},
	FieldPressure: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.PressureHpa }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.SurfacePressureHpa }},
	},
	FieldUVIndex: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.UVIndex }},
		{SourceAirQuality, func(in Inputs) Float { return in.AirQuality.Reading.UVIndex }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.UVIndex }},
	},
	FieldPrecipitationRate: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.PrecipitationMmPerHr }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.PrecipitationMm }},
	},
	FieldWindSpeed: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.WindSpeedKmh }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.WindSpeedKmh }},
	},
	FieldWindDirection: {
		{SourcePower, func(in Inputs) Float { return in.Power.Reading.WindDirectionDeg }},
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.WindDirectionDeg }},
	},
	FieldWindGust: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.WindGustKmh }},
	},
	FieldPrecipitationProbability: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.PrecipitationProbabilityPct }},
	},
	FieldRain: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.RainMm }},
	},
	FieldShowers: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.ShowersMm }},
	},
	FieldSnowfall: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.SnowfallCm }},
	},
	FieldFreezingLevel: {
		{SourceForecast, func(in Inputs) Float { return in.Forecast.Reading.FreezingLevelM }},
	},
}

// Priority returns the source chain consulted for f, highest priority first.
func Priority(f Field) []Source {
	chain := priorities[f]
	out := make([]Source, 0, len(chain))
	for _, c := range chain {
		out = append(out, c.source)
	}
	return out
}

// Resolve returns the first non-null value of f along its priority chain.
// Failed sources contribute nothing.
func Resolve(in Inputs, f Field) Float {
	for _, c := range priorities[f] {
		if !in.ok(c.source) {
			continue
		}
		if v := c.value(in); v.Valid() {
			return v
		}
	}
	return Null
}

func (in Inputs) ok(src Source) bool {
	switch src {
	case SourcePower:
		return in.Power.OK()
	case SourceForecast:
		return in.Forecast.OK()
	case SourceAirQuality:
		return in.AirQuality.OK()
	case SourcePollen:
		return in.Pollen.OK()
	default:
		return false
	}
}

// Merge combines the four source results into one reading. It is a pure
// function of its input.
func Merge(in Inputs) MergedReading {
	merged := MergedReading{
		TemperatureC:         Resolve(in, FieldTemperature),
		PressureHpa:          Resolve(in, FieldPressure),
		UVIndex:              Resolve(in, FieldUVIndex),
		PrecipitationMmPerHr: Resolve(in, FieldPrecipitationRate),
		Wind: Wind{
			SpeedKmh:     Resolve(in, FieldWindSpeed),
			DirectionDeg: Resolve(in, FieldWindDirection),
			GustKmh:      Resolve(in, FieldWindGust),
		},
		Forecast: ForecastSummary{
			PrecipitationProbabilityPct: Resolve(in, FieldPrecipitationProbability),
			RainMm:                      Resolve(in, FieldRain),
			ShowersMm:                   Resolve(in, FieldShowers),
			SnowfallCm:                  Resolve(in, FieldSnowfall),
			FreezingLevelM:              Resolve(in, FieldFreezingLevel),
		},
		Sources: SourceStatus{
			NASAPower:           in.Power.OK(),
			OpenMeteoWeather:    in.Forecast.OK(),
			OpenMeteoAirQuality: in.AirQuality.OK(),
			OpenMeteoPollen:     in.Pollen.OK(),
		},
	}

	if in.AirQuality.OK() {
		air := in.AirQuality.Reading
		merged.AirQuality = &air
	}
	if in.Pollen.OK() {
		pollen := in.Pollen.Reading
		merged.Pollen = &pollen
	}
	return merged
}
