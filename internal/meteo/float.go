package meteo

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Float is a nullable measurement. The zero value is null.
type Float struct {
	value float64
	valid bool
}

// Null is the absent measurement.
var Null = Float{}

// Some wraps a present value.
func Some(v float64) Float {
	return Float{value: v, valid: true}
}

// ParseFloat converts a text field into a Float. Blank or non-numeric text yields Null.
func ParseFloat(s string) Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return Some(v)
}

// Get returns the value and whether it is present.
func (f Float) Get() (float64, bool) {
	return f.value, f.valid
}

// Valid reports whether a value is present.
func (f Float) Valid() bool {
	return f.valid
}

// Or returns f when present, otherwise fallback.
func (f Float) Or(fallback Float) Float {
	if f.valid {
		return f
	}
	return fallback
}

func (f Float) String() string {
	if !f.valid {
		return "null"
	}
	return strconv.FormatFloat(f.value, 'f', -1, 64)
}

// MarshalJSON writes null for absent or non-finite values.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.valid || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.value, 'f', -1, 64), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// decodes to Null instead of failing the whole payload.
func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			*f = Null
			return nil
		}
		*f = ParseFloat(unquoted)
		return nil
	}
	*f = ParseFloat(string(data))
	return nil
}
