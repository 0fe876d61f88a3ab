package service

import (
	"context"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// MaxLineQuantity caps the units of one product in a cart or order,
// including repeated lines merged together.
const MaxLineQuantity = 10000

// CartLine is one requested (product, quantity) pair, from a persisted cart
// or an inline guest payload.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Line is a cart line resolved to a locked, purchasable product.
type Line struct {
	Product  *entity.Product
	Quantity int
}

// StoreGroup holds the lines that become one store's order.
type StoreGroup struct {
	Store *entity.Store
	Lines []Line
}

// Partition resolves lines to products and groups them by store, in order of
// each store's first appearance. Repeated products are merged into their
// first line. Must run inside the checkout transaction: products are
// row-locked and availability is checked against the locked rows.
func Partition(ctx context.Context, products repository.ProductRepository, lines []CartLine) ([]StoreGroup, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	merged := make([]CartLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			return nil, ErrInvalidQuantity.withMessage("quantity for product %d must be between 1 and %d", line.ProductID, MaxLineQuantity)
		}
		if i, ok := index[line.ProductID]; ok {
			if merged[i].Quantity > MaxLineQuantity-line.Quantity {
				return nil, ErrInvalidQuantity.withMessage("quantity for product %d must not exceed %d", line.ProductID, MaxLineQuantity)
			}
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	ids := make([]int64, len(merged))
	for i, line := range merged {
		ids[i] = line.ProductID
	}

	found, err := products.GetProductsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	var groups []StoreGroup
	groupIndex := make(map[int64]int)
	for _, line := range merged {
		product, ok := found[line.ProductID]
		if !ok {
			return nil, ErrProductNotFound.withMessage("product %d not found", line.ProductID)
		}
		if product.Store == nil {
			return nil, ErrStoreNotFound.withMessage("store for product %d not found", line.ProductID)
		}
		if !product.Purchasable(line.Quantity) {
			return nil, ErrProductUnavailable.withMessage("%s is unavailable in the requested quantity", product.Name)
		}

		i, ok := groupIndex[product.StoreID]
		if !ok {
			i = len(groups)
			groupIndex[product.StoreID] = i
			groups = append(groups, StoreGroup{Store: product.Store})
		}
		groups[i].Lines = append(groups[i].Lines, Line{Product: product, Quantity: line.Quantity})
	}
	return groups, nil
}
