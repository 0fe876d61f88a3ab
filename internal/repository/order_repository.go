package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/entity"
)

const orderColumns = `id, order_number, user_id, store_id, status, payment_status, subtotal, shipping_cost, tax_amount,
	total_amount, shipping_address, billing_address, payment_method, payment_reference, tracking_number,
	fulfilled_at, cancelled_at, created_at, updated_at`

type orderRepository struct {
	q Querier
}

func NewOrderRepository(q Querier) OrderRepository {
	return &orderRepository{q: q}
}

func scanOrder(row interface{ Scan(...any) error }) (*entity.Order, error) {
	order := &entity.Order{}
	var fulfilledAt, cancelledAt sql.NullTime
	err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.StoreID, &order.Status, &order.PaymentStatus,
		&order.Subtotal, &order.ShippingCost, &order.TaxAmount, &order.TotalAmount,
		&order.ShippingAddress, &order.BillingAddress, &order.PaymentMethod, &order.PaymentReference, &order.TrackingNumber,
		&fulfilledAt, &cancelledAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fulfilledAt.Valid {
		order.FulfilledAt = &fulfilledAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = &cancelledAt.Time
	}
	return order, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("insert order %s: no items", order.OrderNumber)
	}

	orderQuery := `INSERT INTO orders (order_number, user_id, store_id, status, payment_status, subtotal, shipping_cost,
		tax_amount, total_amount, shipping_address, billing_address, payment_method, payment_reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, orderQuery, order.OrderNumber, order.UserID, order.StoreID, order.Status, order.PaymentStatus,
		order.Subtotal, order.ShippingCost, order.TaxAmount, order.TotalAmount, order.ShippingAddress, order.BillingAddress,
		order.PaymentMethod, order.PaymentReference)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert order %s: %w", order.OrderNumber, err)
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	// Insert items with batch
	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price, product_snapshot) VALUES `
	rowsSQL := make([]string, 0, len(order.Items))
	values := make([]any, 0, len(order.Items)*6)
	for _, item := range order.Items {
		rowsSQL = append(rowsSQL, "(?, ?, ?, ?, ?, ?)")
		values = append(values, orderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice, item.Snapshot)
	}

	if _, err := r.q.ExecContext(ctx, itemQuery+strings.Join(rowsSQL, ", "), values...); err != nil {
		return nil, fmt.Errorf("insert items of order %s: %w", order.OrderNumber, err)
	}

	// Item ids of a multi-row insert need not be consecutive, so read them back.
	order.ID = orderID
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) getOrder(ctx context.Context, query string, number string) (*entity.Order, error) {
	order, err := scanOrder(r.q.QueryRowContext(ctx, query, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", number, err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, number string) (*entity.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number)
}

func (r *orderRepository) GetOrderByNumberForUpdate(ctx context.Context, number string) (*entity.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ? FOR UPDATE`, number)
}

func (r *orderRepository) loadItems(ctx context.Context, order *entity.Order) error {
	query := `SELECT id, order_id, product_id, quantity, unit_price, total_price, product_snapshot
		FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("get items of order %s: %w", order.OrderNumber, err)
	}
	defer rows.Close()

	order.Items = order.Items[:0]
	for rows.Next() {
		item := entity.OrderItem{}
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.Snapshot)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", userID, err)
	}

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order *entity.Order) error {
	query := `UPDATE orders SET status = ?, payment_status = ?, payment_reference = ?, tracking_number = ?,
		fulfilled_at = ?, cancelled_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, order.Status, order.PaymentStatus, order.PaymentReference, order.TrackingNumber,
		order.FulfilledAt, order.CancelledAt, order.ID)
	if err != nil {
		return fmt.Errorf("update order %s: %w", order.OrderNumber, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
