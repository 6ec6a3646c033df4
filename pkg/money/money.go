package money

import "math"

// ToCents converts a major-unit amount to integer cents. Every money
// conversion in the service goes through this single rounding rule.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to major units.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
