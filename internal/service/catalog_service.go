package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
	"marketplace/internal/storage"
)

// ProductView is what shoppers see of a product.
type ProductView struct {
	*entity.Product
	StoreName   string `json:"store_name"`
	Purchasable bool   `json:"purchasable"`
}

func newProductView(product *entity.Product) *ProductView {
	view := &ProductView{Product: product, Purchasable: product.Purchasable(1)}
	if product.Store != nil {
		view.StoreName = product.Store.Name
	}
	return view
}

type CatalogService struct {
	products repository.ProductRepository
	stores   repository.StoreRepository
	uploader *storage.Uploader
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewCatalogService creates a new instance of CatalogService. rdb may be nil.
func NewCatalogService(repos repository.Repositories, uploader *storage.Uploader, rdb *redis.Client, cacheTTL time.Duration) *CatalogService {
	return &CatalogService{
		products: repos.Products,
		stores:   repos.Stores,
		uploader: uploader,
		rdb:      rdb,
		cacheTTL: cacheTTL,
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// GetProduct retrieves a product view, reading through the cache.
func (c *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductView, error) {
	key := productCacheKey(id)
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Error().Err(err).Msgf("Error getting product %d from cache", id)
		}
		if cached != "" {
			var view ProductView
			if err := json.Unmarshal([]byte(cached), &view); err == nil {
				return &view, nil
			}
			logger.Warn().Msgf("Discarding malformed cache entry for product %d", id)
		}
	}

	product, err := c.products.GetProductByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting product by ID %d", id)
		return nil, err
	}
	if product.Status != entity.ProductStatusActive {
		return nil, ErrProductNotFound
	}

	view := newProductView(product)
	if c.rdb != nil {
		payload, err := json.Marshal(view)
		if err == nil {
			err = c.rdb.Set(ctx, key, payload, c.cacheTTL).Err()
		}
		if err != nil {
			logger.Error().Err(err).Msgf("Error setting product %d in cache", id)
		}
	}
	return view, nil
}

// ListStoreProducts lists the active products of an orderable store.
func (c *CatalogService) ListStoreProducts(ctx context.Context, storeID int64) ([]*ProductView, error) {
	store, err := c.stores.GetStoreByID(ctx, storeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting store %d", storeID)
		return nil, err
	}
	if !store.Orderable() {
		return nil, ErrStoreNotFound
	}

	products, err := c.products.ListStoreProducts(ctx, storeID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing products of store %d", storeID)
		return nil, err
	}
	views := make([]*ProductView, len(products))
	for i, product := range products {
		views[i] = newProductView(product)
	}
	return views, nil
}

// AttachProductImage uploads an image for a product owned by the requester's
// store and appends it to the product's gallery.
func (c *CatalogService) AttachProductImage(ctx context.Context, requester *Requester, productID int64, filename string, data []byte) (*entity.ProductImage, error) {
	if requester == nil {
		return nil, ErrForbidden
	}
	product, err := c.products.GetProductByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !requester.isAdmin() && (product.Store == nil || product.Store.OwnerID != requester.UserID) {
		return nil, ErrForbidden.withMessage("only the store owner can add product images")
	}

	upload, err := c.uploader.Upload(ctx, storage.KindProductImage, filename, data)
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return nil, ErrUnsupportedImage
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error uploading image for product %d", productID)
		return nil, err
	}

	image, err := c.products.AddProductImage(ctx, &entity.ProductImage{ProductID: productID, URL: upload.URL})
	if err != nil {
		logger.Error().Err(err).Msgf("Error saving image for product %d", productID)
		return nil, err
	}
	c.Invalidate(ctx, productID)
	return image, nil
}

// Invalidate drops cached views. Failures are logged only.
func (c *CatalogService) Invalidate(ctx context.Context, productIDs ...int64) {
	if c.rdb == nil || len(productIDs) == 0 {
		return
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productCacheKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.Error().Err(err).Msg("Error invalidating product cache")
	}
}
