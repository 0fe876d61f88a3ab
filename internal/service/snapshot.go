package service

import (
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
)

// BuildItem prices a resolved line at the product's current base price and
// freezes the product data shown on the order from now on. The compare-at
// price is never charged.
func BuildItem(product *entity.Product, quantity int, now time.Time) entity.OrderItem {
	unitPrice := product.Price
	return entity.OrderItem{
		ProductID:  product.ID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		Snapshot: entity.ProductSnapshot{
			ProductID:  product.ID,
			StoreID:    product.StoreID,
			Name:       product.Name,
			SKU:        product.SKU,
			Image:      product.ImageURL,
			UnitPrice:  unitPrice,
			CapturedAt: now.UTC(),
		},
	}
}

// Subtotal sums item totals.
func Subtotal(items []entity.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}
