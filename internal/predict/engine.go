package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reorder-cli/internal/model"
)

// ErrNoHistory is returned by Predict for a customer with no purchase
// history. It is a reported condition, not a failure: the run ends
// cleanly with nothing to predict.
var ErrNoHistory = eris.New("predict: no purchase history for customer")

// ValidationError reports an invalid nudge acceptance input. The
// retry loop belongs to the caller, so the reason is returned rather
// than re-prompted here.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("predict: invalid acceptance: %s", e.Reason)
}

// Catalog looks up product details.
type Catalog interface {
	GetProduct(ctx context.Context, productID int) (*model.Product, error)
}

// Ledger reads a customer's purchase events from the order history.
type Ledger interface {
	PurchaseHistory(ctx context.Context, customerID int) ([]model.PurchaseEvent, error)
}

// NudgeStore persists the nudge lifecycle.
type NudgeStore interface {
	InsertPending(ctx context.Context, candidate model.NudgeCandidate) (string, error)
	ResolvePending(ctx context.Context, customerID, productID int) error
	ListPending(ctx context.Context, customerID int) ([]model.Nudge, error)
}

// Engine runs reorder predictions for one customer at a time against
// the catalog, ledger and nudge store collaborators.
type Engine struct {
	catalog Catalog
	ledger  Ledger
	nudges  NudgeStore
	policy  TriggerPolicy
}

// NewEngine creates an Engine with the given collaborators and policy.
func NewEngine(catalog Catalog, ledger Ledger, nudges NudgeStore, policy TriggerPolicy) *Engine {
	return &Engine{
		catalog: catalog,
		ledger:  ledger,
		nudges:  nudges,
		policy:  policy,
	}
}

// Predict computes reorder candidates for the customer as of the given
// reference date and records a pending nudge for each candidate. The
// reference date is always a parameter: the engine never reads a wall
// clock, so runs are deterministic and repeatable.
//
// Products with a single purchase are reported as insufficient data
// and skipped. A customer with no history at all yields ErrNoHistory.
// Bad data on one product never aborts the run for the rest.
func (e *Engine) Predict(ctx context.Context, customerID int, today time.Time) (*model.Prediction, error) {
	events, err := e.ledger.PurchaseHistory(ctx, customerID)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: purchase history for customer %d", customerID)
	}
	if len(events) == 0 {
		return nil, ErrNoHistory
	}

	history := AggregateHistory(events)
	pred := &model.Prediction{
		CustomerID: customerID,
		Date:       dateOf(today),
	}

	for _, productID := range history.ProductIDs() {
		dates := history[productID]

		stats, ok := ComputeGaps(productID, dates)
		if !ok {
			pred.Insufficient = append(pred.Insufficient, model.InsufficientProduct{
				ProductID: productID,
				Purchases: len(dates),
			})
			continue
		}

		product, err := e.catalog.GetProduct(ctx, productID)
		if err != nil {
			// Scoped to this product: the rest of the run proceeds.
			zap.L().Warn("predict: catalog lookup failed, skipping product",
				zap.Int("customer_id", customerID),
				zap.Int("product_id", productID),
				zap.Error(err),
			)
			continue
		}

		candidate := e.buildCandidate(customerID, product.Name, stats, today)
		if _, err := e.nudges.InsertPending(ctx, candidate); err != nil {
			return nil, eris.Wrapf(err, "predict: insert pending nudge for product %d", productID)
		}

		pred.Candidates = append(pred.Candidates, candidate)
		if candidate.Triggered {
			pred.Triggered = append(pred.Triggered, candidate)
		}
	}

	pred.Basket = GroupBasket(pred.Candidates)

	zap.L().Info("predict: run complete",
		zap.Int("customer_id", customerID),
		zap.Time("date", pred.Date),
		zap.Int("candidates", len(pred.Candidates)),
		zap.Int("triggered", len(pred.Triggered)),
		zap.Int("insufficient", len(pred.Insufficient)),
	)

	return pred, nil
}

// buildCandidate scores one product's statistics against the reference
// date and applies the trigger policy.
func (e *Engine) buildCandidate(customerID int, productName string, stats *GapStatistics, today time.Time) model.NudgeCandidate {
	daysSince := daysBetween(stats.LastPurchase, today)
	if daysSince < 0 {
		daysSince = 0
	}
	daysUntil := daysBetween(today, stats.NextExpected)
	confidence := Confidence(stats.AverageGap, daysSince)

	return model.NudgeCandidate{
		CustomerID:        customerID,
		ProductID:         stats.ProductID,
		ProductName:       productName,
		NextExpected:      stats.NextExpected,
		Confidence:        confidence,
		DaysSinceLast:     daysSince,
		DaysUntilExpected: daysUntil,
		AverageGap:        stats.AverageGap,
		Dispersion:        stats.Dispersion,
		PurchaseCount:     stats.PurchaseCount,
		Triggered:         e.policy.ShouldTrigger(daysUntil, confidence),
	}
}

// AcceptNudge validates a customer's acceptance of a triggered nudge
// and emits the order-placement request. Quantity must be positive and
// within current stock; violations come back as *ValidationError so
// the caller can re-prompt. Placing the order, and resolving the
// nudge atomically with it, is the order collaborator's job.
func (e *Engine) AcceptNudge(ctx context.Context, customerID, productID, quantity int) (*model.OrderRequest, error) {
	product, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, eris.Wrapf(err, "predict: accept nudge: product %d", productID)
	}

	if quantity <= 0 {
		return nil, &ValidationError{Reason: "quantity must be positive"}
	}
	if quantity > product.Stock {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("only %d units of %s in stock", product.Stock, product.Name),
		}
	}

	return &model.OrderRequest{
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
	}, nil
}
