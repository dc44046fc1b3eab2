package model

import "time"

// Order is a placed customer order.
type Order struct {
	ID         string      `json:"id"`
	CustomerID int         `json:"customer_id"`
	OrderDate  time.Time   `json:"order_date"`
	Items      []OrderItem `json:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderRequest is a validated request to place a single-product order,
// emitted by the nudge acceptance protocol.
type OrderRequest struct {
	CustomerID int `json:"customer_id"`
	ProductID  int `json:"product_id"`
	Quantity   int `json:"quantity"`
}

// PurchaseEvent is one purchase of a product by a customer, as read
// from the order ledger. Events arrive in no guaranteed order.
type PurchaseEvent struct {
	ProductID int       `json:"product_id"`
	OrderDate time.Time `json:"order_date"`
}
