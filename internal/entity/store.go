package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID             int64           `json:"id"`
	OwnerID        int64           `json:"owner_id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Verified       bool            `json:"verified"`
	Active         bool            `json:"active"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalOrders    int64           `json:"total_orders"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Orderable reports whether shoppers may buy from the store.
func (s *Store) Orderable() bool {
	return s.Verified && s.Active
}
