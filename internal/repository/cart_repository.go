package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/entity"
)

type cartRepository struct {
	q Querier
}

func NewCartRepository(q Querier) CartRepository {
	return &cartRepository{q: q}
}

func (r *cartRepository) getCart(ctx context.Context, query string, args ...any) (*entity.Cart, error) {
	cart := &entity.Cart{}
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&cart.ID, &cart.UserID, &cart.ExpiresAt, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = ? ORDER BY id`, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get items of cart %d: %w", cart.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

func (r *cartRepository) GetCartByID(ctx context.Context, id int64) (*entity.Cart, error) {
	return r.getCart(ctx, `SELECT id, user_id, expires_at, created_at FROM carts WHERE id = ?`, id)
}

func (r *cartRepository) GetActiveCartByUser(ctx context.Context, userID int64, now time.Time) (*entity.Cart, error) {
	return r.getCart(ctx, `SELECT id, user_id, expires_at, created_at FROM carts
		WHERE user_id = ? AND expires_at > ? ORDER BY id DESC LIMIT 1`, userID, now)
}

func (r *cartRepository) CreateCart(ctx context.Context, cart *entity.Cart) (*entity.Cart, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO carts (user_id, expires_at) VALUES (?, ?)`, cart.UserID, cart.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cart.ID = id
	return cart, nil
}

// AddCartItem merges into an existing line for the same product.
func (r *cartRepository) AddCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	query := `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`
	if _, err := r.q.ExecContext(ctx, query, cartID, productID, quantity); err != nil {
		return fmt.Errorf("add item to cart %d: %w", cartID, err)
	}
	return nil
}

func (r *cartRepository) ClearCart(ctx context.Context, cartID int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("clear cart %d: %w", cartID, err)
	}
	return nil
}
