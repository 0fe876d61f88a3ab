package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"marketplace/internal/entity"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type notification struct {
	event    string
	number   string
	previous entity.OrderStatus
	status   entity.OrderStatus
	tracking string
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []notification
	fail bool
}

func (n *recordingNotifier) record(note notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
	if n.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (n *recordingNotifier) OrderCreated(_ context.Context, order *entity.Order) error {
	return n.record(notification{event: EventOrderCreated, number: order.OrderNumber, status: order.Status})
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, order *entity.Order, previous entity.OrderStatus) error {
	return n.record(notification{event: EventOrderStatusChanged, number: order.OrderNumber, previous: previous, status: order.Status})
}

func (n *recordingNotifier) OrderShipped(_ context.Context, order *entity.Order, tracking string) error {
	return n.record(notification{event: EventOrderShipped, number: order.OrderNumber, status: order.Status, tracking: tracking})
}

func (n *recordingNotifier) events() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.got...)
}

type fixture struct {
	t        *testing.T
	db       *memDB
	notifier *recordingNotifier
	orders   *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	notifier := &recordingNotifier{}
	fees := NewRuleFeePolicy(nil, time.Minute, dec("5.00"), decimal.Zero)
	orders, err := NewOrderService(OrderServiceDeps{
		UoW:      db,
		Fees:     fees,
		Notifier: notifier,
		Clock:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &fixture{t: t, db: db, notifier: notifier, orders: orders}
}

func (f *fixture) addUser(email string, verified bool, passwordHash string) *entity.User {
	var user *entity.User
	f.db.read(func(st *memState) {
		user = &entity.User{ID: st.id(), Email: email, Verified: verified, Active: true, PasswordHash: passwordHash, Role: entity.RoleConsumer}
		st.users[user.ID] = copyUser(user)
	})
	return user
}

func (f *fixture) addStore(ownerID int64) *entity.Store {
	var store *entity.Store
	f.db.read(func(st *memState) {
		store = &entity.Store{ID: st.id(), OwnerID: ownerID, Name: "Store", Verified: true, Active: true}
		st.stores[store.ID] = copyStore(store)
	})
	return store
}

func (f *fixture) addProduct(storeID int64, price string, inventory int) *entity.Product {
	var product *entity.Product
	f.db.read(func(st *memState) {
		id := st.id()
		product = &entity.Product{
			ID:             id,
			StoreID:        storeID,
			Name:           "Product",
			SKU:            "SKU-" + decimal.NewFromInt(id).String(),
			Price:          dec(price),
			Inventory:      inventory,
			TrackInventory: true,
			Status:         entity.ProductStatusActive,
		}
		st.products[id] = copyProduct(product)
	})
	return product
}

func (f *fixture) product(id int64) *entity.Product {
	var product *entity.Product
	f.db.read(func(st *memState) {
		if p, ok := st.products[id]; ok {
			product = copyProduct(p)
		}
	})
	return product
}

func (f *fixture) store(id int64) *entity.Store {
	var store *entity.Store
	f.db.read(func(st *memState) { store = copyStore(st.stores[id]) })
	return store
}

func (f *fixture) counts() (users, orders int) {
	f.db.read(func(st *memState) {
		users, orders = len(st.users), len(st.orders)
	})
	return users, orders
}

func (f *fixture) owner(store *entity.Store) *Requester {
	return &Requester{UserID: store.OwnerID, Role: entity.RoleSellerAdmin}
}

func completeAddress() *entity.Address {
	return &entity.Address{
		FirstName:  "Grace",
		LastName:   "Hopper",
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "us",
	}
}

func guestCheckout(email string, lines ...CartLine) CheckoutRequest {
	return CheckoutRequest{
		Email:           email,
		ShippingAddress: completeAddress(),
		BillingAddress:  completeAddress(),
		PaymentMethod:   "card",
		CartItems:       lines,
	}
}
