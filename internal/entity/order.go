package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID               int64           `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           int64           `json:"user_id"`
	StoreID          int64           `json:"store_id"`
	Status           OrderStatus     `json:"status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ShippingAddress  Address         `json:"shipping_address"`
	BillingAddress   Address         `json:"billing_address"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	FulfilledAt      *time.Time      `json:"fulfilled_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []OrderItem     `json:"items"`
}

// CanCancel reports whether the buyer may still cancel the order.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

type OrderItem struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Snapshot   ProductSnapshot `json:"product_snapshot"`
}

// ProductSnapshot is the purchase-time copy of the product shown on order
// history. It is written once with the item and never updated.
type ProductSnapshot struct {
	ProductID  int64           `json:"product_id"`
	StoreID    int64           `json:"store_id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Image      string          `json:"image,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CapturedAt time.Time       `json:"captured_at"`
}

func (s ProductSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ProductSnapshot) Scan(src any) error {
	return scanJSON(src, s)
}

type Address struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Street     string `json:"street" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("entity: cannot scan %T into %T", src, dst)
	}
}

/*
Mysql Table

CREATE TABLE orders (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	order_number VARCHAR(40) NOT NULL UNIQUE,
	user_id BIGINT NOT NULL REFERENCES users(id),
	store_id BIGINT NOT NULL REFERENCES stores(id),
	...
	shipping_address JSON NOT NULL,
	billing_address JSON NOT NULL,
	...
);

CREATE TABLE order_items (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id BIGINT NOT NULL,
	...
	product_snapshot JSON NOT NULL
);

order_items.product_id carries no foreign key so items survive product deletion.
*/
