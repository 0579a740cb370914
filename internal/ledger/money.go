package ledger

import "math"

// Epsilon is the largest debit/credit imbalance absorbed as rounding noise.
// Anything above it rejects the voucher.
const Epsilon = 0.005

// Round normalises an amount to the smallest currency unit.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// WithinEpsilon reports whether two amounts agree up to rounding noise.
func WithinEpsilon(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}
