package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// nextStatus is the forward chain; only the immediate next state is legal.
var nextStatus = map[entity.OrderStatus]entity.OrderStatus{
	entity.OrderStatusPending:    entity.OrderStatusConfirmed,
	entity.OrderStatusConfirmed:  entity.OrderStatusProcessing,
	entity.OrderStatusProcessing: entity.OrderStatusShipped,
	entity.OrderStatusShipped:    entity.OrderStatusDelivered,
}

var knownStatuses = map[entity.OrderStatus]bool{
	entity.OrderStatusPending:    true,
	entity.OrderStatusConfirmed:  true,
	entity.OrderStatusProcessing: true,
	entity.OrderStatusShipped:    true,
	entity.OrderStatusDelivered:  true,
	entity.OrderStatusCancelled:  true,
	entity.OrderStatusRefunded:   true,
}

// sellerCancellable are the states a store owner may cancel from. Buyers are
// limited to Order.CanCancel.
func sellerCancellable(status entity.OrderStatus) bool {
	switch status {
	case entity.OrderStatusPending, entity.OrderStatusConfirmed, entity.OrderStatusProcessing:
		return true
	}
	return false
}

type access int

const (
	accessNone access = iota
	accessBuyer
	accessOwner
	accessAdmin
)

// accessTo works out how requester relates to order. Store ownership wins
// over being the buyer.
func accessTo(ctx context.Context, stores repository.StoreRepository, requester *Requester, order *entity.Order) (access, error) {
	if requester == nil {
		return accessNone, nil
	}
	if requester.isAdmin() {
		return accessAdmin, nil
	}

	store, err := stores.GetStoreByID(ctx, order.StoreID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return accessNone, err
	}
	if store != nil && store.OwnerID == requester.UserID {
		return accessOwner, nil
	}
	if order.UserID == requester.UserID {
		return accessBuyer, nil
	}
	return accessNone, nil
}

// mutation changes a locked order in place. It returns false when the
// order already is in the requested state.
type mutation func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error)

type transitionResult struct {
	order    *entity.Order
	previous entity.OrderStatus
	changed  bool
}

func (s *OrderService) mutate(ctx context.Context, requester *Requester, number string, fn mutation) (*transitionResult, error) {
	if requester == nil {
		return nil, ErrForbidden
	}

	var result transitionResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.GetOrderByNumberForUpdate(ctx, number)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		who, err := accessTo(ctx, repos.Stores, requester, order)
		if err != nil {
			return err
		}
		if who == accessNone {
			return ErrOrderNotFound
		}

		now := s.clock().UTC()
		previous := order.Status
		changed, err := fn(ctx, repos, order, who, now)
		if err != nil {
			return err
		}
		if changed {
			order.UpdatedAt = now
			if err := repos.Orders.UpdateOrder(ctx, order); err != nil {
				return err
			}
		}
		result = transitionResult{order: order, previous: previous, changed: changed}
		return nil
	})
	if err != nil {
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			logger.Error().Err(err).Msgf("Error updating order %s", number)
		}
		return nil, err
	}

	if result.changed && result.order.Status == entity.OrderStatusCancelled && result.previous != entity.OrderStatusCancelled {
		s.invalidateProducts(ctx, result.order)
	}
	if result.changed && result.order.Status != result.previous {
		s.dispatch(ctx, "status_changed", result.order, func(ctx context.Context) error {
			return s.notifier.OrderStatusChanged(ctx, result.order, result.previous)
		})
	}
	return &result, nil
}

// Cancel cancels an order for its buyer, its store owner or an admin.
// Cancelling a cancelled order is a no-op.
func (s *OrderService) Cancel(ctx context.Context, requester *Requester, number string) (*entity.Order, error) {
	res, err := s.mutate(ctx, requester, number, func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error) {
		if order.Status == entity.OrderStatusCancelled {
			return false, nil
		}
		if !order.CanCancel() {
			return false, ErrInvalidTransition.withMessage("order %s cannot be cancelled while %s", order.OrderNumber, order.Status)
		}
		return true, cancelOrder(ctx, repos, order, now)
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

// cancelOrder marks the order cancelled and puts tracked stock back.
func cancelOrder(ctx context.Context, repos repository.Repositories, order *entity.Order, now time.Time) error {
	order.Status = entity.OrderStatusCancelled
	order.CancelledAt = &now

	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := repos.Products.GetProductsForUpdate(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.TrackInventory {
			continue
		}
		if err := repos.Products.AdjustInventory(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus moves an order one step along the forward chain, or cancels
// it. Only the store owner may do this. Asking for the current status is a
// no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, requester *Requester, number string, target entity.OrderStatus) (*entity.Order, error) {
	target = entity.OrderStatus(strings.ToLower(strings.TrimSpace(string(target))))
	if !knownStatuses[target] {
		return nil, ErrInvalidStatus.withMessage("unknown order status %q", target)
	}

	res, err := s.mutate(ctx, requester, number, func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error) {
		if who != accessOwner {
			return false, ErrForbidden.withMessage("only the store owner can update order status")
		}
		if order.Status == target {
			return false, nil
		}

		switch target {
		case entity.OrderStatusCancelled:
			if !sellerCancellable(order.Status) {
				return false, ErrInvalidTransition.withMessage("order %s cannot be cancelled while %s", order.OrderNumber, order.Status)
			}
			return true, cancelOrder(ctx, repos, order, now)
		case entity.OrderStatusRefunded:
			return refundOrder(order)
		}

		if nextStatus[order.Status] != target {
			return false, ErrInvalidTransition.withMessage("order %s cannot move from %s to %s", order.OrderNumber, order.Status, target)
		}
		order.Status = target
		if target == entity.OrderStatusShipped {
			order.FulfilledAt = &now
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if res.changed && res.order.Status == entity.OrderStatusShipped {
		s.notifyShipped(ctx, res.order)
	}
	return res.order, nil
}

// Fulfill ships a processing order with an optional tracking number.
// Repeating it with the same tracking number is a no-op.
func (s *OrderService) Fulfill(ctx context.Context, requester *Requester, number, trackingNumber string) (*entity.Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	res, err := s.mutate(ctx, requester, number, func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error) {
		if who != accessOwner {
			return false, ErrForbidden.withMessage("only the store owner can fulfill orders")
		}
		if order.Status == entity.OrderStatusShipped && order.TrackingNumber == trackingNumber {
			return false, nil
		}
		if order.Status != entity.OrderStatusProcessing {
			return false, ErrInvalidTransition.withMessage("order %s cannot be fulfilled while %s", order.OrderNumber, order.Status)
		}
		order.Status = entity.OrderStatusShipped
		order.TrackingNumber = trackingNumber
		order.FulfilledAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if res.changed {
		s.notifyShipped(ctx, res.order)
	}
	return res.order, nil
}

func (s *OrderService) notifyShipped(ctx context.Context, order *entity.Order) {
	s.dispatch(ctx, "shipped", order, func(ctx context.Context) error {
		return s.notifier.OrderShipped(ctx, order, order.TrackingNumber)
	})
}

// Refund refunds a paid order for its store owner or an admin.
func (s *OrderService) Refund(ctx context.Context, requester *Requester, number string) (*entity.Order, error) {
	res, err := s.mutate(ctx, requester, number, func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error) {
		if who != accessOwner && who != accessAdmin {
			return false, ErrForbidden.withMessage("only the store owner or an admin can refund orders")
		}
		return refundOrder(order)
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

func refundOrder(order *entity.Order) (bool, error) {
	if order.Status == entity.OrderStatusRefunded {
		return false, nil
	}
	if order.Status == entity.OrderStatusCancelled || order.PaymentStatus != entity.PaymentStatusPaid {
		return false, ErrInvalidTransition.withMessage("order %s has no payment to refund", order.OrderNumber)
	}
	order.Status = entity.OrderStatusRefunded
	order.PaymentStatus = entity.PaymentStatusRefunded
	return true, nil
}

// RecordPayment marks the order paid. Recording it again is a no-op.
func (s *OrderService) RecordPayment(ctx context.Context, requester *Requester, number, reference string) (*entity.Order, error) {
	reference = strings.TrimSpace(reference)
	res, err := s.mutate(ctx, requester, number, func(ctx context.Context, repos repository.Repositories, order *entity.Order, who access, now time.Time) (bool, error) {
		if who != accessOwner && who != accessAdmin {
			return false, ErrForbidden.withMessage("only the store owner or an admin can record payments")
		}
		if order.PaymentStatus == entity.PaymentStatusPaid {
			return false, nil
		}
		if order.Status == entity.OrderStatusCancelled || order.Status == entity.OrderStatusRefunded {
			return false, ErrInvalidTransition.withMessage("order %s is %s", order.OrderNumber, order.Status)
		}
		if order.PaymentStatus == entity.PaymentStatusRefunded {
			return false, ErrInvalidTransition.withMessage("order %s was refunded", order.OrderNumber)
		}
		order.PaymentStatus = entity.PaymentStatusPaid
		order.PaymentReference = reference
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return res.order, nil
}

// GetOrder returns an order visible to its buyer, its store owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, requester *Requester, number string) (*entity.Order, error) {
	repos := s.uow.Repositories()
	order, err := repos.Orders.GetOrderByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting order %s", number)
		return nil, err
	}

	who, err := accessTo(ctx, repos.Stores, requester, order)
	if err != nil {
		return nil, err
	}
	if who == accessNone {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders returns the requester's own orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, requester *Requester) ([]*entity.Order, error) {
	if requester == nil {
		return nil, ErrForbidden
	}
	orders, err := s.uow.Repositories().Orders.ListOrdersByUser(ctx, requester.UserID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error listing orders of user %d", requester.UserID)
		return nil, err
	}
	return orders, nil
}
