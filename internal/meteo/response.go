package meteo

import "time"

// Units annotates the unit of every numeric family in the response.
type Units struct {
	Temperature         string `json:"temperature"`
	Pressure            string `json:"pressure"`
	PrecipitationRate   string `json:"precipitation_rate"`
	PrecipitationAmount string `json:"precipitation_amount"`
	WindSpeed           string `json:"wind_speed"`
	WindDirection       string `json:"wind_direction"`
	Snowfall            string `json:"snowfall"`
	FreezingLevel       string `json:"freezing_level"`
	Pollutants          string `json:"pollutants"`
	CO                  string `json:"co"`
	UVIndex             string `json:"uv_index"`
	Pollen              string `json:"pollen"`
}

// CanonicalUnits are the units every source is converted to before merging.
var CanonicalUnits = Units{
	Temperature:         "°C",
	Pressure:            "hPa",
	PrecipitationRate:   "mm/h",
	PrecipitationAmount: "mm",
	WindSpeed:           "km/h",
	WindDirection:       "deg",
	Snowfall:            "cm",
	FreezingLevel:       "m",
	Pollutants:          "µg/m³",
	CO:                  "µg/m³",
	UVIndex:             "index",
	Pollen:              "index",
}

// Response is the wire body of GET /api/meteo.
type Response struct {
	OK     bool       `json:"ok"`
	Coords Coordinate `json:"coords"`
	MergedReading
	GeneratedAt string `json:"generated_at"`
	Units       Units  `json:"units"`
}

// Assemble wraps a merged reading into the wire response.
func Assemble(coord Coordinate, merged MergedReading, generatedAt time.Time) Response {
	return Response{
		OK:            true,
		Coords:        coord,
		MergedReading: merged,
		GeneratedAt:   generatedAt.UTC().Format(time.RFC3339Nano),
		Units:         CanonicalUnits,
	}
}
