package entity

import "time"

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

type CartItem struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
