package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusRejected ProductStatus = "rejected"
)

type Product struct {
	ID             int64            `json:"id"`
	StoreID        int64            `json:"store_id"`
	CategoryID     int64            `json:"category_id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	SKU            string           `json:"sku"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Inventory      int              `json:"inventory"`
	TrackInventory bool             `json:"track_inventory"`
	Status         ProductStatus    `json:"status"`
	ImageURL       string           `json:"image_url"` // first image by position
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Store is populated by the partitioner's locking read.
	Store *Store `json:"-"`
}

// Purchasable reports whether quantity units can be sold right now.
func (p *Product) Purchasable(quantity int) bool {
	if quantity < 1 || p.Status != ProductStatusActive {
		return false
	}
	if p.Store != nil && !p.Store.Orderable() {
		return false
	}
	return !p.TrackInventory || p.Inventory >= quantity
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Position  int    `json:"position"`
	URL       string `json:"url"`
}
