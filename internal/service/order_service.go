package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const maxOrderNumberAttempts = 5

// Requester is the authenticated caller. A nil *Requester is a guest.
type Requester struct {
	UserID int64
	Email  string
	Role   entity.Role
}

func (r *Requester) isAdmin() bool {
	return r != nil && r.Role == entity.RoleSystemAdmin
}

// CheckoutRequest is the checkout payload. Guests send CartItems; signed-in
// buyers send either CartID or CartItems.
type CheckoutRequest struct {
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	ShippingAddress *entity.Address `json:"shipping_address"`
	BillingAddress  *entity.Address `json:"billing_address"`
	PaymentMethod   string          `json:"payment_method"`
	CartItems       []CartLine      `json:"cart_items"`
	CartID          *int64          `json:"cart_id"`
	IdempotencyKey  string          `json:"-"`
}

// ProductCache drops cached product views after stock changes.
type ProductCache interface {
	Invalidate(ctx context.Context, productIDs ...int64)
}

type OrderServiceDeps struct {
	UoW         repository.UnitOfWork
	Fees        FeePolicy
	Notifier    Notifier
	Idempotency IdempotencyStore // optional
	Products    ProductCache     // optional

	Clock               func() time.Time
	NewOrderNumber      func(now time.Time) string
	NotificationTimeout time.Duration
}

// OrderService places orders and drives them through their lifecycle.
type OrderService struct {
	uow                 repository.UnitOfWork
	fees                FeePolicy
	notifier            Notifier
	idempotency         IdempotencyStore
	products            ProductCache
	clock               func() time.Time
	newOrderNumber      func(now time.Time) string
	notificationTimeout time.Duration

	inflight sync.WaitGroup
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.UoW == nil {
		return nil, errors.New("order service: unit of work is required")
	}
	if deps.Fees == nil {
		return nil, errors.New("order service: fee policy is required")
	}

	s := &OrderService{
		uow:                 deps.UoW,
		fees:                deps.Fees,
		notifier:            deps.Notifier,
		idempotency:         deps.Idempotency,
		products:            deps.Products,
		clock:               deps.Clock,
		newOrderNumber:      deps.NewOrderNumber,
		notificationTimeout: deps.NotificationTimeout,
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newOrderNumber == nil {
		s.newOrderNumber = OrderNumberGenerator("ORD")
	}
	if s.notificationTimeout <= 0 {
		s.notificationTimeout = 10 * time.Second
	}
	return s, nil
}

// OrderNumberGenerator returns numbers like ORD-20260115-9F3A0C1E.
func OrderNumberGenerator(prefix string) func(now time.Time) string {
	return func(now time.Time) string {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix)
	}
}

// checkout is a validated request.
type checkout struct {
	guest    GuestIdentity
	shipping entity.Address
	billing  entity.Address
	payment  string
	items    []CartLine
	cartID   int64
}

func (s *OrderService) validateCheckout(requester *Requester, req CheckoutRequest) (*checkout, error) {
	c := &checkout{
		payment: strings.TrimSpace(req.PaymentMethod),
		items:   req.CartItems,
	}

	shipping, err := validateAddress("shipping_address", req.ShippingAddress)
	if requester == nil {
		if strings.TrimSpace(req.Email) == "" {
			return nil, ErrEmailRequired
		}
		if len(req.CartItems) == 0 {
			return nil, ErrCartItemsRequired
		}
		if err != nil {
			return nil, err
		}
		billing, err := validateAddress("billing_address", req.BillingAddress)
		if err != nil {
			return nil, err
		}
		email, err := normalizeEmail(req.Email)
		if err != nil {
			return nil, err
		}

		firstName, lastName := req.FirstName, req.LastName
		if strings.TrimSpace(firstName) == "" && strings.TrimSpace(lastName) == "" {
			firstName, lastName = shipping.FirstName, shipping.LastName
		}
		c.guest = GuestIdentity{Email: email, FirstName: firstName, LastName: lastName}
		c.shipping, c.billing = shipping, billing
		return c, nil
	}

	if req.CartID == nil && len(req.CartItems) == 0 {
		return nil, ErrCartItemsRequired
	}
	if req.CartID != nil {
		c.cartID = *req.CartID
		c.items = nil
	}
	if err != nil {
		return nil, err
	}
	c.shipping, c.billing = shipping, shipping
	if req.BillingAddress != nil {
		billing, err := validateAddress("billing_address", req.BillingAddress)
		if err != nil {
			return nil, err
		}
		c.billing = billing
	}
	return c, nil
}

// CreateOrder places one order per store represented in the cart. Either
// every order is created, with inventory and store totals updated, or
// nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, requester *Requester, req CheckoutRequest) ([]*entity.Order, error) {
	c, err := s.validateCheckout(requester, req)
	if err != nil {
		return nil, err
	}

	claimed := false
	if req.IdempotencyKey != "" && s.idempotency != nil {
		ok, err := s.idempotency.Claim(ctx, req.IdempotencyKey)
		if err != nil {
			logger.Error().Err(err).Msg("Error claiming idempotency key")
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		claimed = true
	}

	var orders []*entity.Order
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		orders = nil
		placed, err := s.placeOrders(ctx, repos, requester, c)
		if err != nil {
			return err
		}
		orders = placed
		return nil
	})
	if err != nil {
		if claimed {
			if err := s.idempotency.Release(context.WithoutCancel(ctx), req.IdempotencyKey); err != nil {
				logger.Error().Err(err).Msg("Error releasing idempotency key")
			}
		}
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			logger.Error().Err(err).Msg("Error creating order")
		}
		return nil, err
	}

	s.invalidateProducts(ctx, orders...)

	for _, order := range orders {
		order := order
		s.dispatch(ctx, "created", order, func(ctx context.Context) error {
			return s.notifier.OrderCreated(ctx, order)
		})
	}
	return orders, nil
}

func (s *OrderService) placeOrders(ctx context.Context, repos repository.Repositories, requester *Requester, c *checkout) ([]*entity.Order, error) {
	now := s.clock().UTC()

	user, err := s.actingUser(ctx, repos, requester, c)
	if err != nil {
		return nil, err
	}

	lines := c.items
	if c.cartID != 0 {
		cart, err := repos.Carts.GetCartByID(ctx, c.cartID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (cart.UserID != user.ID || cart.Expired(now))) {
			return nil, ErrCartNotFound
		}
		if err != nil {
			return nil, err
		}
		lines = make([]CartLine, len(cart.Items))
		for i, item := range cart.Items {
			lines[i] = CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
		}
	}

	groups, err := Partition(ctx, repos.Products, lines)
	if err != nil {
		return nil, err
	}

	orders := make([]*entity.Order, 0, len(groups))
	for _, group := range groups {
		order, err := s.placeStoreOrder(ctx, repos, user, group, c, now)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	// Store rows are locked in id order.
	byStore := append([]*entity.Order(nil), orders...)
	sort.Slice(byStore, func(i, j int) bool { return byStore[i].StoreID < byStore[j].StoreID })
	for _, order := range byStore {
		if err := repos.Stores.IncrementAggregates(ctx, order.StoreID, order.Subtotal, 1); err != nil {
			return nil, err
		}
	}

	if c.cartID != 0 {
		if err := repos.Carts.ClearCart(ctx, c.cartID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *OrderService) actingUser(ctx context.Context, repos repository.Repositories, requester *Requester, c *checkout) (*entity.User, error) {
	if requester == nil {
		user, _, err := ResolveGuest(ctx, repos.Users, c.guest)
		return user, err
	}

	user, err := repos.Users.GetUserByID(ctx, requester.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrForbidden.withMessage("account is deactivated")
	}
	return user, nil
}

func (s *OrderService) placeStoreOrder(ctx context.Context, repos repository.Repositories, user *entity.User, group StoreGroup, c *checkout, now time.Time) (*entity.Order, error) {
	items := make([]entity.OrderItem, len(group.Lines))
	for i, line := range group.Lines {
		items[i] = BuildItem(line.Product, line.Quantity, now)
	}
	subtotal := Subtotal(items)

	fees, err := s.fees.Quote(ctx, repos.FeeRules, group.Store, subtotal, c.shipping)
	if err != nil {
		return nil, fmt.Errorf("quote fees for store %d: %w", group.Store.ID, err)
	}

	order := &entity.Order{
		UserID:          user.ID,
		StoreID:         group.Store.ID,
		Status:          entity.OrderStatusPending,
		PaymentStatus:   entity.PaymentStatusPending,
		Subtotal:        subtotal,
		ShippingCost:    fees.Shipping,
		TaxAmount:       fees.Tax,
		TotalAmount:     subtotal.Add(fees.Shipping).Add(fees.Tax),
		ShippingAddress: c.shipping,
		BillingAddress:  c.billing,
		PaymentMethod:   c.payment,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
	}

	created, err := s.insertOrder(ctx, repos.Orders, order, now)
	if err != nil {
		return nil, err
	}

	for _, line := range group.Lines {
		if !line.Product.TrackInventory {
			continue
		}
		err := repos.Products.AdjustInventory(ctx, line.Product.ID, -line.Quantity)
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrProductUnavailable.withMessage("%s is unavailable in the requested quantity", line.Product.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *OrderService) insertOrder(ctx context.Context, orders repository.OrderRepository, order *entity.Order, now time.Time) (*entity.Order, error) {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.newOrderNumber(now)
		created, err := orders.CreateOrder(ctx, order)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt == maxOrderNumberAttempts {
			return nil, err
		}
		logger.Warn().Msgf("Order number %s already taken, retrying", order.OrderNumber)
	}
}

// invalidateProducts drops cached views of products whose stock the orders
// changed.
func (s *OrderService) invalidateProducts(ctx context.Context, orders ...*entity.Order) {
	if s.products == nil {
		return
	}
	var ids []int64
	for _, order := range orders {
		for _, item := range order.Items {
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) > 0 {
		s.products.Invalidate(ctx, ids...)
	}
}

// dispatch runs a notification after commit without holding up the caller.
// Failures are logged only.
func (s *OrderService) dispatch(ctx context.Context, event string, order *entity.Order, notify func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notificationTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		if err := notify(ctx); err != nil {
			logger.Error().Err(err).Msgf("Error publishing order %s event for %s", event, order.OrderNumber)
		}
	}()
}

// Wait blocks until in-flight notifications have finished.
func (s *OrderService) Wait() {
	s.inflight.Wait()
}
