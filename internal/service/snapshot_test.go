package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/internal/entity"
)

func TestBuildItemChargesBasePrice(t *testing.T) {
	compareAt := dec("30.00")
	product := &entity.Product{
		ID:             7,
		StoreID:        3,
		Name:           "Mug",
		SKU:            "MUG-1",
		Price:          dec("12.25"),
		CompareAtPrice: &compareAt,
		ImageURL:       "https://cdn.example.com/mug.jpg",
	}

	item := BuildItem(product, 3, testNow)
	assert.Equal(t, int64(7), item.ProductID)
	assert.True(t, dec("12.25").Equal(item.UnitPrice))
	assert.True(t, dec("36.75").Equal(item.TotalPrice))
	assert.Equal(t, entity.ProductSnapshot{
		ProductID:  7,
		StoreID:    3,
		Name:       "Mug",
		SKU:        "MUG-1",
		Image:      "https://cdn.example.com/mug.jpg",
		UnitPrice:  product.Price,
		CapturedAt: testNow,
	}, item.Snapshot)

	product.Price = dec("1.00")
	product.Name = "Cup"
	assert.Equal(t, "Mug", item.Snapshot.Name)
	assert.True(t, dec("12.25").Equal(item.Snapshot.UnitPrice))
}

func TestSubtotal(t *testing.T) {
	items := []entity.OrderItem{
		{TotalPrice: dec("0.10")},
		{TotalPrice: dec("0.20")},
		{TotalPrice: dec("19.99")},
	}
	assert.True(t, dec("20.29").Equal(Subtotal(items)))
	assert.True(t, Subtotal(nil).IsZero())
}
