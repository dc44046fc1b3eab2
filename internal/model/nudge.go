package model

import "time"

// NudgeStatus represents the lifecycle state of a persisted nudge.
type NudgeStatus string

const (
	NudgeStatusPending  NudgeStatus = "pending"
	NudgeStatusResolved NudgeStatus = "resolved"
)

// Nudge is a persisted reorder recommendation for one (customer,
// product) pair. It is created pending and becomes resolved when a
// matching order is successfully placed, whether through the accept
// path or the ordinary order path.
type Nudge struct {
	ID         string      `json:"id"`
	CustomerID int         `json:"customer_id"`
	ProductID  int         `json:"product_id"`
	NudgeDate  time.Time   `json:"nudge_date"` // predicted next purchase date
	Confidence float64     `json:"confidence"`
	Status     NudgeStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NudgeCandidate is the computed prediction for one product within a
// prediction run, before persistence.
type NudgeCandidate struct {
	CustomerID        int       `json:"customer_id"`
	ProductID         int       `json:"product_id"`
	ProductName       string    `json:"product_name"`
	NextExpected      time.Time `json:"next_expected"`
	Confidence        float64   `json:"confidence"` // [0,1], 2dp
	DaysSinceLast     int       `json:"days_since_last"`
	DaysUntilExpected int       `json:"days_until_expected"`
	AverageGap        float64   `json:"average_gap"`
	Dispersion        float64   `json:"dispersion"` // informational only
	PurchaseCount     int       `json:"purchase_count"`
	Triggered         bool      `json:"triggered"`
}

// BasketGroup clusters predicted products sharing the same expected
// date into one suggested combined order.
type BasketGroup struct {
	ExpectedDate time.Time `json:"expected_date"`
	Products     []string  `json:"products"`
}

// InsufficientProduct reports a product skipped by a prediction run
// because it has fewer than two purchases.
type InsufficientProduct struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Purchases   int    `json:"purchases"`
}

// Prediction is the full result of one prediction run for a customer.
type Prediction struct {
	CustomerID   int                   `json:"customer_id"`
	Date         time.Time             `json:"date"` // reference "today"
	Candidates   []NudgeCandidate      `json:"candidates"`
	Triggered    []NudgeCandidate      `json:"triggered"`
	Insufficient []InsufficientProduct `json:"insufficient,omitempty"`
	Basket       []BasketGroup         `json:"basket,omitempty"`
}
