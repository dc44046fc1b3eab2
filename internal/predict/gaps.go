package predict

import (
	"math"
	"time"
)

// GapStatistics holds the inter-purchase gap statistics for one
// product of one customer.
type GapStatistics struct {
	ProductID     int       `json:"product_id"`
	Gaps          []int     `json:"gaps"`        // whole days between consecutive purchases
	AverageGap    float64   `json:"average_gap"` // arithmetic mean of Gaps
	Dispersion    float64   `json:"dispersion"`  // population std deviation, informational only
	PurchaseCount int       `json:"purchase_count"`
	LastPurchase  time.Time `json:"last_purchase"`
	NextExpected  time.Time `json:"next_expected"` // LastPurchase + floor(AverageGap) days
}

// ComputeGaps derives gap statistics from a product's purchase dates,
// which must be in ascending order. It returns ok=false when the
// product has fewer than two purchases: that is insufficient data for
// a prediction, not an error.
func ComputeGaps(productID int, dates []time.Time) (stats *GapStatistics, ok bool) {
	if len(dates) < 2 {
		return nil, false
	}

	gaps := make([]int, 0, len(dates)-1)
	sum := 0
	for i := 1; i < len(dates); i++ {
		gap := daysBetween(dates[i-1], dates[i])
		gaps = append(gaps, gap)
		sum += gap
	}
	avg := float64(sum) / float64(len(gaps))

	last := dateOf(dates[len(dates)-1])
	return &GapStatistics{
		ProductID:     productID,
		Gaps:          gaps,
		AverageGap:    avg,
		Dispersion:    dispersion(gaps, avg),
		PurchaseCount: len(dates),
		LastPurchase:  last,
		NextExpected:  last.AddDate(0, 0, int(avg)),
	}, true
}

// dispersion is the population standard deviation of the gaps.
func dispersion(gaps []int, mean float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	var sq float64
	for _, g := range gaps {
		d := float64(g) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(gaps)))
}
