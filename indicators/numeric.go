package indicators

import (
	"math"
	"strconv"
	"strings"
)

// coerce converts a cell to a number. Anything that is not a plain decimal
// or exponent literal (including "..", "NA" and the empty string) yields
// ok == false and is stored as MissingValue.
func coerce(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	// ParseFloat also accepts hex floats and digit separators
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// round rounds v to the given number of decimal places, ties to even
func round(v float64, decimals int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*scale) / scale
}

// formatFloat renders v with the fewest digits that read back as v.
// Integral values keep a trailing ".0" and magnitudes outside
// [1e-4, 1e16) switch to exponent notation.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return MissingValue
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(v)
	if abs < 1e-4 || abs >= 1e16 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// normalize coerces, rounds and re-renders a single cell
func normalize(cell string, scale float64) (string, bool) {
	v, ok := coerce(cell)
	if !ok {
		return MissingValue, false
	}
	return formatFloat(round(v/scale, Decimals)), true
}
