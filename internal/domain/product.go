package domain

import "time"

type Product struct {
	ID              string    `json:"id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand,omitempty"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"priceCents"`
	BaseAmountCents int64     `json:"baseAmountCents,omitempty"`
	Currency        string    `json:"currency"`
	TaxRateBP       int       `json:"taxRateBp"`
	IsActive        bool      `json:"isActive"`
	StockQuantity   int       `json:"stockQuantity"`
	ReservedQty     int       `json:"reservedQuantity"`
	MinStockLevel   int       `json:"minStockLevel"`
	MaxStockLevel   int       `json:"maxStockLevel"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Available is the quantity that can still be reserved.
func (p Product) Available() int {
	return p.StockQuantity - p.ReservedQty
}
