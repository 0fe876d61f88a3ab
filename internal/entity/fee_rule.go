package entity

import "github.com/shopspring/decimal"

// FeeRule prices shipping and tax for one store, optionally narrowed to a
// destination country. An empty Country is the store's default rule.
type FeeRule struct {
	ID                    int64            `json:"id"`
	StoreID               int64            `json:"store_id"`
	Country               string           `json:"country"`
	FlatShipping          decimal.Decimal  `json:"flat_shipping"`
	FreeShippingThreshold *decimal.Decimal `json:"free_shipping_threshold,omitempty"` // subtotal at or above ships free
	TaxRate               decimal.Decimal  `json:"tax_rate"`                          // fraction, 0.0825 for 8.25%
}
