package service

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

type CartService struct {
	uow   repository.UnitOfWork
	ttl   time.Duration
	clock func() time.Time
}

func NewCartService(uow repository.UnitOfWork, ttl time.Duration, clock func() time.Time) *CartService {
	if clock == nil {
		clock = time.Now
	}
	return &CartService{uow: uow, ttl: ttl, clock: clock}
}

// AddItem puts quantity units of a product in the requester's active cart,
// creating the cart when there is none. Adding a product already in the cart
// increases its quantity.
func (s *CartService) AddItem(ctx context.Context, requester *Requester, line CartLine) (*entity.Cart, error) {
	if requester == nil {
		return nil, ErrForbidden
	}
	if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity.withMessage("quantity must be between 1 and %d", MaxLineQuantity)
	}

	var cart *entity.Cart
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.GetProductByID(ctx, line.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		if !product.Purchasable(1) {
			return ErrProductUnavailable.withMessage("%s is unavailable", product.Name)
		}

		now := s.clock().UTC()
		current, err := repos.Carts.GetActiveCartByUser(ctx, requester.UserID, now)
		if errors.Is(err, repository.ErrNotFound) {
			current, err = repos.Carts.CreateCart(ctx, &entity.Cart{UserID: requester.UserID, ExpiresAt: now.Add(s.ttl), CreatedAt: now})
		}
		if err != nil {
			return err
		}
		for _, item := range current.Items {
			if item.ProductID == line.ProductID && item.Quantity > MaxLineQuantity-line.Quantity {
				return ErrInvalidQuantity.withMessage("quantity for product %d must not exceed %d", line.ProductID, MaxLineQuantity)
			}
		}

		if err := repos.Carts.AddCartItem(ctx, current.ID, line.ProductID, line.Quantity); err != nil {
			return err
		}
		cart, err = repos.Carts.GetCartByID(ctx, current.ID)
		return err
	})
	if err != nil {
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			logger.Error().Err(err).Msgf("Error adding product %d to cart of user %d", line.ProductID, requester.UserID)
		}
		return nil, err
	}
	return cart, nil
}

// GetCart returns the requester's active cart.
func (s *CartService) GetCart(ctx context.Context, requester *Requester) (*entity.Cart, error) {
	if requester == nil {
		return nil, ErrForbidden
	}
	cart, err := s.uow.Repositories().Carts.GetActiveCartByUser(ctx, requester.UserID, s.clock().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting cart of user %d", requester.UserID)
		return nil, err
	}
	return cart, nil
}
