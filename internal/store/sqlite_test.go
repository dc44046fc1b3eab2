package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reorder-cli/internal/model"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seed(t *testing.T, st *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	_, err := st.UpsertProducts(ctx, []model.Product{
		{ID: 1, Name: "milk", Price: 2.49, Stock: 10, Brand: "DairyBest", PackSize: "1L"},
		{ID: 2, Name: "bread", Price: 1.80, Stock: 3, Brand: "Generic"},
		{ID: 3, Name: "almond milk", Price: 3.20, Stock: 8, Brand: "NutCo", PackSize: "1L"},
	})
	require.NoError(t, err)

	_, err = st.UpsertCustomers(ctx, []model.Customer{
		{ID: 5, Name: "Asha", Phone: "555-0101"},
		{ID: 6, Name: "Ben", Phone: "555-0102"},
	})
	require.NoError(t, err)
}

func TestSQLiteUpsertProductsIsIdempotent(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	n, err := st.UpsertProducts(ctx, []model.Product{
		{ID: 1, Name: "whole milk", Price: 2.59, Stock: 20, Brand: "DairyBest", PackSize: "1L"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := st.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "whole milk", p.Name)
	assert.Equal(t, 20, p.Stock)

	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestSQLiteSearchProductsCaseInsensitive(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)

	products, err := st.SearchProducts(context.Background(), "MILK")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "milk", products[0].Name)
	assert.Equal(t, "almond milk", products[1].Name)
}

func TestSQLiteLowStockProducts(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)

	products, err := st.LowStockProducts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "bread", products[0].Name)
}

func TestSQLiteGetProductNotFound(t *testing.T) {
	st := newSQLiteStore(t)

	p, err := st.GetProduct(context.Background(), 404)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLitePlaceOrderDecrementsStock(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	order, err := st.PlaceOrder(ctx, 5, []model.OrderItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)

	milk, err := st.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, milk.Stock)

	events, err := st.PurchaseHistory(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSQLitePlaceOrderInsufficientStockRollsBack(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	// Second item exceeds stock: the whole order fails and the first
	// item's decrement is rolled back.
	order, err := st.PlaceOrder(ctx, 5, []model.OrderItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 99},
	})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	milk, err := st.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, milk.Stock)

	events, err := st.PurchaseHistory(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSQLitePlaceOrderUnknownProduct(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)

	order, err := st.PlaceOrder(context.Background(), 5, []model.OrderItem{{ProductID: 404, Quantity: 1}})
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteNudgeLifecycle(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	candidate := model.NudgeCandidate{
		CustomerID:   5,
		ProductID:    1,
		NextExpected: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Confidence:   0.8,
	}

	id, err := st.InsertPending(ctx, candidate)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pending, err := st.ListPending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, model.NudgeStatusPending, pending[0].Status)
	assert.Equal(t, 0.8, pending[0].Confidence)

	// A re-run supersedes the pending nudge instead of stacking a second one.
	candidate.Confidence = 0.9
	id2, err := st.InsertPending(ctx, candidate)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)

	pending, err = st.ListPending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)
	assert.Equal(t, 0.9, pending[0].Confidence)

	require.NoError(t, st.ResolvePending(ctx, 5, 1))

	pending, err = st.ListPending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteOrderResolvesPendingNudge(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	_, err := st.InsertPending(ctx, model.NudgeCandidate{
		CustomerID: 5, ProductID: 1,
		NextExpected: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Confidence:   0.8,
	})
	require.NoError(t, err)

	// An ordinary order for the nudged product resolves the nudge, even
	// though the customer never accepted it explicitly.
	_, err = st.PlaceOrder(ctx, 5, []model.OrderItem{{ProductID: 1, Quantity: 2}})
	require.NoError(t, err)

	pending, err := st.ListPending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLiteFailedOrderLeavesNudgePending(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	_, err := st.InsertPending(ctx, model.NudgeCandidate{
		CustomerID: 5, ProductID: 2,
		NextExpected: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Confidence:   0.7,
	})
	require.NoError(t, err)

	_, err = st.PlaceOrder(ctx, 5, []model.OrderItem{{ProductID: 2, Quantity: 99}})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	pending, err := st.ListPending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSQLiteFrequentProducts(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	for range 3 {
		_, err := st.PlaceOrder(ctx, 5, []model.OrderItem{{ProductID: 1, Quantity: 1}})
		require.NoError(t, err)
	}
	_, err := st.PlaceOrder(ctx, 5, []model.OrderItem{{ProductID: 2, Quantity: 1}})
	require.NoError(t, err)

	freqs, err := st.FrequentProducts(ctx, 5, 3)
	require.NoError(t, err)
	require.Len(t, freqs, 2)
	assert.Equal(t, model.ProductFrequency{ProductID: 1, Name: "milk", Orders: 3}, freqs[0])
	assert.Equal(t, model.ProductFrequency{ProductID: 2, Name: "bread", Orders: 1}, freqs[1])
}

func TestSQLiteLeaderboard(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	// Asha: two nudges, one resolved -> 0.5.
	_, err := st.InsertPending(ctx, model.NudgeCandidate{CustomerID: 5, ProductID: 1, NextExpected: due, Confidence: 0.8})
	require.NoError(t, err)
	_, err = st.InsertPending(ctx, model.NudgeCandidate{CustomerID: 5, ProductID: 2, NextExpected: due, Confidence: 0.7})
	require.NoError(t, err)
	require.NoError(t, st.ResolvePending(ctx, 5, 1))

	// Ben: one nudge, resolved -> 1.0.
	_, err = st.InsertPending(ctx, model.NudgeCandidate{CustomerID: 6, ProductID: 1, NextExpected: due, Confidence: 0.6})
	require.NoError(t, err)
	require.NoError(t, st.ResolvePending(ctx, 6, 1))

	entries, err := st.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Ben", entries[0].Name)
	assert.Equal(t, 1.0, entries[0].Consistency)
	assert.Equal(t, "Asha", entries[1].Name)
	assert.Equal(t, 0.5, entries[1].Consistency)
	assert.Equal(t, 2, entries[1].TotalNudges)
	assert.Equal(t, 1, entries[1].ResolvedNudges)
}

func TestSQLiteLeaderboardLimit(t *testing.T) {
	st := newSQLiteStore(t)
	seed(t, st)
	ctx := context.Background()

	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := st.InsertPending(ctx, model.NudgeCandidate{CustomerID: 5, ProductID: 1, NextExpected: due, Confidence: 0.8})
	require.NoError(t, err)
	_, err = st.InsertPending(ctx, model.NudgeCandidate{CustomerID: 6, ProductID: 1, NextExpected: due, Confidence: 0.8})
	require.NoError(t, err)

	entries, err := st.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConsistency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolved int
		total    int
		want     float64
	}{
		{"all resolved", 4, 4, 1.0},
		{"none resolved", 0, 4, 0.0},
		{"rounds to two decimals", 1, 3, 0.33},
		{"zero total", 0, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, consistency(tt.resolved, tt.total))
		})
	}
}
