package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/reorder-cli/internal/model"
	"github.com/sells-group/reorder-cli/internal/predict"
	"github.com/sells-group/reorder-cli/internal/store"
)

func newTestRouter(t *testing.T, limiter *rate.Limiter) (http.Handler, store.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertProducts(ctx, []model.Product{
		{ID: 1, Name: "milk", Price: 2.49, Stock: 10},
	})
	require.NoError(t, err)
	_, err = st.UpsertCustomers(ctx, []model.Customer{{ID: 5, Name: "Asha"}})
	require.NoError(t, err)

	engine := predict.NewEngine(st, st, st, predict.DefaultTriggerPolicy())
	return buildRouter(st, engine, limiter), st
}

func seedOrderHistory(t *testing.T, router http.Handler, orders int) {
	t.Helper()
	// Each order is a single unit of product 1 so stock stays available.
	for range orders {
		rr := postJSON(t, router, "/orders", map[string]any{
			"customer_id": 5,
			"items":       []map[string]int{{"product_id": 1, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestServeHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServePredictionsNoHistory(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/customers/5/predictions?date=2024-01-29", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServePredictionsBadInputs(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		name string
		path string
	}{
		{"bad customer id", "/customers/abc/predictions"},
		{"bad date", "/customers/5/predictions?date=tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestServePlaceOrder(t *testing.T) {
	router, st := newTestRouter(t, nil)

	rr := postJSON(t, router, "/orders", map[string]any{
		"customer_id": 5,
		"items":       []map[string]int{{"product_id": 1, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var order model.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 5, order.CustomerID)

	p, err := st.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
}

func TestServePlaceOrderRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		name    string
		payload any
	}{
		{"no items", map[string]any{"customer_id": 5}},
		{"missing customer", map[string]any{"items": []map[string]int{{"product_id": 1, "quantity": 1}}}},
		{"zero quantity", map[string]any{"customer_id": 5, "items": []map[string]int{{"product_id": 1, "quantity": 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, router, "/orders", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestServePlaceOrderInsufficientStock(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := postJSON(t, router, "/orders", map[string]any{
		"customer_id": 5,
		"items":       []map[string]int{{"product_id": 1, "quantity": 99}},
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestServePredictAndAcceptNudge(t *testing.T) {
	router, st := newTestRouter(t, nil)
	ctx := context.Background()

	seedOrderHistory(t, router, 3)

	req := httptest.NewRequest(http.MethodGet, "/customers/5/predictions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var pred model.Prediction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pred))
	require.Len(t, pred.Candidates, 1)

	pending, err := st.ListPending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	rr = postJSON(t, router, fmt.Sprintf("/customers/5/nudges/%d/accept", pending[0].ProductID),
		map[string]int{"quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Accepting the nudge placed the order and resolved it.
	pending, err = st.ListPending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestServeAcceptNudgeInvalidQuantity(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := postJSON(t, router, "/customers/5/nudges/1/accept", map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = postJSON(t, router, "/customers/5/nudges/1/accept", map[string]int{"quantity": 99})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestServeRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	router, _ := newTestRouter(t, limiter)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Burst of 1 is spent; an immediate second request is rejected.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	time.Sleep(time.Second)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestShutdownOnDone(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	ctx, cancel := context.WithCancel(context.Background())
	go shutdownOnDone(ctx, srv, 2*time.Second)
	cancel()

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server never shut down")
	}
}
