package meteo

import (
	"math"
	"time"
)

// missingSentinel is the upstream "no data" code; anything at or below it is absent.
const missingSentinel = -900.0

// IsMissing reports whether v is null, NaN or an upstream sentinel.
func IsMissing(v Float) bool {
	x, ok := v.Get()
	return !ok || math.IsNaN(x) || x <= missingSentinel
}

// Clean maps missing values to Null.
func Clean(v Float) Float {
	if IsMissing(v) {
		return Null
	}
	return v
}

// Clamp rejects values outside [min, max]. Out-of-range readings become Null;
// they are never clipped to the bound.
func Clamp(v Float, min, max float64) Float {
	x, ok := v.Get()
	if !ok || math.IsNaN(x) || x < min || x > max {
		return Null
	}
	return v
}

// FloorZero lifts negative values to 0 and keeps Null as Null.
func FloorZero(v Float) Float {
	x, ok := v.Get()
	if !ok {
		return Null
	}
	if x < 0 {
		return Some(0)
	}
	return v
}

// MsToKmh converts metres per second to kilometres per hour.
func MsToKmh(v Float) Float {
	x, ok := v.Get()
	if !ok {
		return Null
	}
	return Some(x * 3.6)
}

// ISODateUTC formats t as YYYYMMDD in UTC.
func ISODateUTC(t time.Time) string {
	return t.UTC().Format("20060102")
}
