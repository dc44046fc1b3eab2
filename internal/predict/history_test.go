package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reorder-cli/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateHistory(t *testing.T) {
	t.Parallel()

	events := []model.PurchaseEvent{
		{ProductID: 2, OrderDate: day(2024, 1, 21)},
		{ProductID: 1, OrderDate: day(2024, 1, 5)},
		{ProductID: 2, OrderDate: day(2024, 1, 1)},
		{ProductID: 2, OrderDate: day(2024, 1, 11)},
		{ProductID: 1, OrderDate: day(2024, 1, 1)},
	}

	h := AggregateHistory(events)
	require.Len(t, h, 2)

	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 5)}, h[1])
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 11), day(2024, 1, 21)}, h[2])
}

func TestAggregateHistoryEmpty(t *testing.T) {
	t.Parallel()

	h := AggregateHistory(nil)
	assert.Empty(t, h)
	assert.Empty(t, h.ProductIDs())
}

func TestAggregateHistoryKeepsSameDayPurchases(t *testing.T) {
	t.Parallel()

	h := AggregateHistory([]model.PurchaseEvent{
		{ProductID: 7, OrderDate: day(2024, 3, 1)},
		{ProductID: 7, OrderDate: day(2024, 3, 1)},
	})
	require.Len(t, h[7], 2)
}

func TestProductIDsSorted(t *testing.T) {
	t.Parallel()

	h := ProductHistory{
		9: {day(2024, 1, 1)},
		3: {day(2024, 1, 1)},
		5: {day(2024, 1, 1)},
	}
	assert.Equal(t, []int{3, 5, 9}, h.ProductIDs())
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", day(2024, 1, 1), day(2024, 1, 1), 0},
		{"forward", day(2024, 1, 1), day(2024, 1, 11), 10},
		{"backward", day(2024, 1, 11), day(2024, 1, 1), -10},
		{"ignores time of day", day(2024, 1, 1).Add(23 * time.Hour), day(2024, 1, 2).Add(time.Hour), 1},
		{"across month boundary", day(2024, 1, 29), day(2024, 2, 2), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, daysBetween(tt.a, tt.b))
		})
	}
}
