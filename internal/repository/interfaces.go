package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrConflict is returned when a guarded update matched no row.
	ErrConflict = errors.New("repository: conflict")
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetUserByEmailForUpdate is a locking read; it sees rows committed by
	// concurrent transactions.
	GetUserByEmailForUpdate(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) (*entity.User, error)
	UpdateUser(ctx context.Context, user *entity.User) error
}

type ProductRepository interface {
	GetProductByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetProductsForUpdate row-locks the products (not their stores) and
	// returns them keyed by id with Store populated. Missing ids are absent.
	GetProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*entity.Product, error)
	ListStoreProducts(ctx context.Context, storeID int64) ([]*entity.Product, error)
	// AdjustInventory adds delta to a tracked product's inventory, refusing to
	// go below zero with ErrConflict.
	AdjustInventory(ctx context.Context, productID int64, delta int) error
	AddProductImage(ctx context.Context, image *entity.ProductImage) (*entity.ProductImage, error)
}

type StoreRepository interface {
	GetStoreByID(ctx context.Context, id int64) (*entity.Store, error)
	IncrementAggregates(ctx context.Context, storeID int64, sales decimal.Decimal, orders int64) error
}

type OrderRepository interface {
	// CreateOrder inserts the order and all of its items. A clash on
	// order_number is reported as ErrDuplicate.
	CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*entity.Order, error)
	GetOrderByNumberForUpdate(ctx context.Context, number string) (*entity.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*entity.Order, error)
	// UpdateOrder persists lifecycle fields only; amounts and items are immutable.
	UpdateOrder(ctx context.Context, order *entity.Order) error
}

type CartRepository interface {
	GetCartByID(ctx context.Context, id int64) (*entity.Cart, error)
	GetActiveCartByUser(ctx context.Context, userID int64, now time.Time) (*entity.Cart, error)
	CreateCart(ctx context.Context, cart *entity.Cart) (*entity.Cart, error)
	AddCartItem(ctx context.Context, cartID, productID int64, quantity int) error
	ClearCart(ctx context.Context, cartID int64) error
}

type FeeRuleRepository interface {
	GetFeeRules(ctx context.Context, storeID int64) ([]*entity.FeeRule, error)
}

// Repositories bundles the repositories bound to one connection or
// transaction.
type Repositories struct {
	Users    UserRepository
	Products ProductRepository
	Stores   StoreRepository
	Orders   OrderRepository
	Carts    CartRepository
	FeeRules FeeRuleRepository
}

// UnitOfWork hands out repositories outside and inside a transaction.
type UnitOfWork interface {
	Repositories() Repositories
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
