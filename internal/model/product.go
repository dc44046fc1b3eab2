package model

// Product represents a catalog item.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Brand    string  `json:"brand,omitempty"`
	PackSize string  `json:"pack_size,omitempty"` // e.g. "200 g - Cup"
	Image    string  `json:"image,omitempty"`
}

// Customer represents a registered customer.
type Customer struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// ProductFrequency is a product with its order count for one customer,
// used by the frequent-products suggestion.
type ProductFrequency struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Orders    int    `json:"orders"`
}

// LeaderboardEntry ranks a customer by how consistently they resolve
// their reorder nudges.
type LeaderboardEntry struct {
	CustomerID     int     `json:"customer_id"`
	Name           string  `json:"name"`
	TotalNudges    int     `json:"total_nudges"`
	ResolvedNudges int     `json:"resolved_nudges"`
	Consistency    float64 `json:"consistency"` // resolved/total, 2dp
}
