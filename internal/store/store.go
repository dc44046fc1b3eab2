// Package store provides persistence for the catalog, customers, the
// order ledger and the nudge lifecycle, backed by PostgreSQL or SQLite.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reorder-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrInsufficientStock is returned by PlaceOrder when a requested
// quantity exceeds a product's current stock. The whole order is
// rolled back and no nudge is resolved.
var ErrInsufficientStock = eris.New("store: insufficient stock")

// Store defines the persistence interface shared by both backends.
type Store interface {
	// Catalog
	GetProduct(ctx context.Context, productID int) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]model.Product, error)
	LowStockProducts(ctx context.Context, threshold int) ([]model.Product, error)
	UpsertProducts(ctx context.Context, products []model.Product) (int64, error)

	// Customers
	GetCustomer(ctx context.Context, customerID int) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	UpsertCustomers(ctx context.Context, customers []model.Customer) (int64, error)

	// Order ledger
	PurchaseHistory(ctx context.Context, customerID int) ([]model.PurchaseEvent, error)
	FrequentProducts(ctx context.Context, customerID, limit int) ([]model.ProductFrequency, error)

	// PlaceOrder atomically checks and decrements stock, records the
	// order with its items, and resolves any pending nudge for each
	// ordered (customer, product) pair. On any failure the whole
	// order rolls back and nudges stay pending.
	PlaceOrder(ctx context.Context, customerID int, items []model.OrderItem) (*model.Order, error)

	// Nudge lifecycle
	InsertPending(ctx context.Context, candidate model.NudgeCandidate) (string, error)
	ResolvePending(ctx context.Context, customerID, productID int) error
	ListPending(ctx context.Context, customerID int) ([]model.Nudge, error)

	// Reporting
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// consistency rounds resolved/total to two decimals.
func consistency(resolved, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(int((float64(resolved)/float64(total))*100+0.5)) / 100
}
