package utils

import "math"

// Prices travel as float64 with two-decimal precision, matching the
// decimal(10,2) columns. Splitting is done on integer cents so that shares
// always sum back to the exact line total.

// ToCents converts a price to integer cents, rounding half away from zero.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a price.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// SplitCents divides cents evenly across n ways. It returns the per-way
// share and the indivisible remainder (0 <= rem < n).
func SplitCents(cents int64, n int) (share int64, rem int64) {
	if n <= 0 {
		return 0, cents
	}
	return cents / int64(n), cents % int64(n)
}
