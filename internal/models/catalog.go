package models

import "time"

const (
	OrderTypePurchase = "purchase"
	OrderTypeSale     = "sale"
	OrderTypeTransfer = "transfer"
)

// CachedProduct is a read-mostly local snapshot of a product, refreshed from
// the remote catalog while online and served from the cache while offline.
type CachedProduct struct {
	ID          string    `json:"id" yaml:"id"`
	SKU         string    `json:"sku" yaml:"sku"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	Quantity    int64     `json:"quantity" yaml:"quantity"`
	Location    string    `json:"location" yaml:"location"`
	Price       float64   `json:"price" yaml:"price"`
	LastUpdated time.Time `json:"last_updated" yaml:"-"`
}

// OrderLine is one product position within a cached order.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Received  int    `json:"received,omitempty"`
}

// CachedOrder is a local snapshot of an order an operator is working on.
type CachedOrder struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"order_number"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Supplier    *string     `json:"supplier,omitempty"`
	Lines       []OrderLine `json:"lines"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUpdated time.Time   `json:"last_updated"`
}
