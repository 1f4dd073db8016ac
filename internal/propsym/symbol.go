// Package propsym holds the proportional symbol math shared by the map
// pipeline: area-proportional radius scaling, JS-style value coercion,
// attribute discovery, the temporal sequence and legend extents.
package propsym

import (
	"math"
	"strconv"
	"strings"
)

// DefaultScaleFactor converts an attribute value into a symbol area.
const DefaultScaleFactor = 0.0010

// Radius returns the symbol radius for value using DefaultScaleFactor.
func Radius(value float64) float64 {
	return RadiusScaled(value, DefaultScaleFactor)
}

// RadiusScaled returns sqrt((value * scaleFactor) / π).
// Negative or NaN input yields NaN; callers tolerate it.
func RadiusScaled(value, scaleFactor float64) float64 {
	area := value * scaleFactor
	return math.Sqrt(area / math.Pi)
}

// Finite reports whether f is neither NaN nor ±Inf.
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Year returns the token after the first underscore of an attribute name,
// e.g. "Pop_2015" → "2015". Names without an underscore yield "".
func Year(attribute string) string {
	parts := strings.Split(attribute, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Number coerces a decoded JSON value the way a browser's Number() does:
// nil → 0, bool → 0/1, "" → 0, numeric strings parsed, anything else NaN.
func Number(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Lookup returns the coerced value of key and whether the key is present.
// A missing key coerces to NaN.
func Lookup(props map[string]any, key string) (float64, bool) {
	v, ok := props[key]
	if !ok {
		return math.NaN(), false
	}
	return Number(v), true
}

// Format renders a raw property value for display.
func Format(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		f := Number(v)
		if math.IsNaN(f) {
			return "NaN"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
