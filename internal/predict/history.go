// Package predict implements per-customer reorder prediction: purchase
// history aggregation, gap statistics, confidence scoring, the nudge
// trigger policy, and basket grouping.
package predict

import (
	"sort"
	"time"

	"github.com/sells-group/reorder-cli/internal/model"
)

// ProductHistory maps a product ID to its purchase dates in ascending
// order. Same-day repeat purchases are kept as separate entries.
type ProductHistory map[int][]time.Time

// AggregateHistory groups a customer's purchase events per product and
// sorts each product's dates ascending. The ledger gives no ordering
// guarantee. An empty event list yields an empty map.
func AggregateHistory(events []model.PurchaseEvent) ProductHistory {
	history := make(ProductHistory, len(events))
	for _, ev := range events {
		history[ev.ProductID] = append(history[ev.ProductID], ev.OrderDate)
	}
	for _, dates := range history {
		sort.SliceStable(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
	return history
}

// ProductIDs returns the product IDs of the history in ascending order
// so a prediction run visits products deterministically.
func (h ProductHistory) ProductIDs() []int {
	ids := make([]int, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// dateOf truncates a timestamp to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b (negative when b is
// before a). Both are truncated to calendar dates first.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)) / (24 * time.Hour))
}
