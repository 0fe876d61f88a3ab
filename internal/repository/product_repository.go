package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
)

const productColumns = `p.id, p.store_id, p.category_id, p.name, p.slug, p.sku, p.price, p.compare_at_price,
	p.inventory, p.track_inventory, p.status,
	COALESCE((SELECT pi.url FROM product_images pi WHERE pi.product_id = p.id ORDER BY pi.position LIMIT 1), ''),
	p.created_at, p.updated_at`

const productStoreColumns = `s.id, s.owner_id, s.name, s.slug, s.verified, s.active, s.commission_rate, s.total_sales, s.total_orders, s.created_at, s.updated_at`

type productRepository struct {
	q Querier
}

func NewProductRepository(q Querier) ProductRepository {
	return &productRepository{q: q}
}

func scanProductWithStore(row interface{ Scan(...any) error }) (*entity.Product, error) {
	product := &entity.Product{}
	store := &entity.Store{}
	var compareAt decimal.NullDecimal
	err := row.Scan(&product.ID, &product.StoreID, &product.CategoryID, &product.Name, &product.Slug, &product.SKU,
		&product.Price, &compareAt, &product.Inventory, &product.TrackInventory, &product.Status, &product.ImageURL,
		&product.CreatedAt, &product.UpdatedAt,
		&store.ID, &store.OwnerID, &store.Name, &store.Slug, &store.Verified, &store.Active, &store.CommissionRate,
		&store.TotalSales, &store.TotalOrders, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if compareAt.Valid {
		product.CompareAtPrice = &compareAt.Decimal
	}
	product.Store = store
	return product, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + `, ` + productStoreColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id WHERE p.id = ?`
	product, err := scanProductWithStore(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return product, nil
}

// GetProductsForUpdate locks in ascending id order so concurrent checkouts
// over overlapping carts acquire locks in the same order.
func (r *productRepository) GetProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	products := make(map[int64]*entity.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	args := make([]any, len(sorted))
	for i, id := range sorted {
		args[i] = id
	}

	query := `SELECT ` + productColumns + `, ` + productStoreColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.id IN (` + placeholders(len(sorted)) + `)
		ORDER BY p.id
		FOR UPDATE OF p`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProductWithStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

func (r *productRepository) ListStoreProducts(ctx context.Context, storeID int64) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + `, ` + productStoreColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.store_id = ? AND p.status = ?
		ORDER BY p.id`
	rows, err := r.q.QueryContext(ctx, query, storeID, entity.ProductStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list products of store %d: %w", storeID, err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		product, err := scanProductWithStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepository) AdjustInventory(ctx context.Context, productID int64, delta int) error {
	query := `UPDATE products SET inventory = inventory + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND track_inventory = TRUE AND inventory + ? >= 0`
	res, err := r.q.ExecContext(ctx, query, delta, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust inventory of product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *productRepository) AddProductImage(ctx context.Context, image *entity.ProductImage) (*entity.ProductImage, error) {
	query := `INSERT INTO product_images (product_id, position, url)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ? FROM product_images WHERE product_id = ?`
	res, err := r.q.ExecContext(ctx, query, image.ProductID, image.URL, image.ProductID)
	if err != nil {
		return nil, fmt.Errorf("insert product image: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	image.ID = id

	err = r.q.QueryRowContext(ctx, `SELECT position FROM product_images WHERE id = ?`, id).Scan(&image.Position)
	if err != nil {
		return nil, fmt.Errorf("read product image position: %w", err)
	}
	return image, nil
}
