package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
)

type storeRepository struct {
	q Querier
}

func NewStoreRepository(q Querier) StoreRepository {
	return &storeRepository{q: q}
}

func (r *storeRepository) GetStoreByID(ctx context.Context, id int64) (*entity.Store, error) {
	query := `SELECT id, owner_id, name, slug, verified, active, commission_rate, total_sales, total_orders, created_at, updated_at
		FROM stores WHERE id = ?`
	store := &entity.Store{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(&store.ID, &store.OwnerID, &store.Name, &store.Slug, &store.Verified,
		&store.Active, &store.CommissionRate, &store.TotalSales, &store.TotalOrders, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get store %d: %w", id, err)
	}
	return store, nil
}

func (r *storeRepository) IncrementAggregates(ctx context.Context, storeID int64, sales decimal.Decimal, orders int64) error {
	query := `UPDATE stores SET total_sales = total_sales + ?, total_orders = total_orders + ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, sales, orders, storeID)
	if err != nil {
		return fmt.Errorf("increment aggregates of store %d: %w", storeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
