package predict

import "math"

// Confidence scores how overdue a reorder is relative to the product's
// historical cadence. It rises linearly from 0 (just purchased) to 1
// (elapsed time equals or exceeds the average gap) and never decays.
// The result is clamped to [0, 1] and rounded to two decimals.
//
// An average gap of zero or less means consecutive same-day purchases:
// the product is due immediately, so confidence is 1 rather than a
// division fault.
func Confidence(avgGap float64, daysSinceLast int) float64 {
	if avgGap <= 0 {
		return 1.0
	}
	ratio := float64(daysSinceLast) / avgGap
	ratio = math.Max(0.0, math.Min(1.0, ratio))
	// Exact half-cent ties round away from zero: 0.625 scores 0.63.
	return math.Round(ratio*100) / 100
}
