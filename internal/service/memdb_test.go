package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// memState is one snapshot of the fake database.
type memState struct {
	nextID   int64
	users    map[int64]*entity.User
	stores   map[int64]*entity.Store
	products map[int64]*entity.Product
	images   map[int64][]entity.ProductImage
	orders   map[int64]*entity.Order
	carts    map[int64]*entity.Cart
	feeRules map[int64][]*entity.FeeRule
}

func newMemState() *memState {
	return &memState{
		nextID:   1000,
		users:    map[int64]*entity.User{},
		stores:   map[int64]*entity.Store{},
		products: map[int64]*entity.Product{},
		images:   map[int64][]entity.ProductImage{},
		orders:   map[int64]*entity.Order{},
		carts:    map[int64]*entity.Cart{},
		feeRules: map[int64][]*entity.FeeRule{},
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func copyUser(u *entity.User) *entity.User { c := *u; return &c }

func copyStore(st *entity.Store) *entity.Store { c := *st; return &c }

func copyProduct(p *entity.Product) *entity.Product {
	c := *p
	c.Store = nil
	if p.CompareAtPrice != nil {
		v := *p.CompareAtPrice
		c.CompareAtPrice = &v
	}
	return &c
}

func copyOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderItem(nil), o.Items...)
	if o.FulfilledAt != nil {
		v := *o.FulfilledAt
		c.FulfilledAt = &v
	}
	if o.CancelledAt != nil {
		v := *o.CancelledAt
		c.CancelledAt = &v
	}
	return &c
}

func copyCart(cart *entity.Cart) *entity.Cart {
	c := *cart
	c.Items = append([]entity.CartItem(nil), cart.Items...)
	return &c
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for id, u := range s.users {
		c.users[id] = copyUser(u)
	}
	for id, st := range s.stores {
		c.stores[id] = copyStore(st)
	}
	for id, p := range s.products {
		c.products[id] = copyProduct(p)
	}
	for id, imgs := range s.images {
		c.images[id] = append([]entity.ProductImage(nil), imgs...)
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	for id, cart := range s.carts {
		c.carts[id] = copyCart(cart)
	}
	for id, rules := range s.feeRules {
		for _, r := range rules {
			rule := *r
			c.feeRules[id] = append(c.feeRules[id], &rule)
		}
	}
	return c
}

// memDB is a UnitOfWork over memState. Transactions are serialized and work
// on a copy that replaces the state on commit.
type memDB struct {
	mu    sync.Mutex
	state *memState
	txs   int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (db *memDB) Repositories() repository.Repositories {
	return memRepos(&memConn{db: db})
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txs++

	work := db.state.clone()
	if err := fn(ctx, memRepos(&memConn{db: db, tx: work})); err != nil {
		return err
	}
	db.state = work
	return nil
}

// read gives direct access to the committed state for assertions and seeding.
func (db *memDB) read(fn func(st *memState)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.state)
}

type memConn struct {
	db *memDB
	tx *memState
}

func (c *memConn) with(fn func(st *memState) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return fn(c.db.state)
}

func memRepos(c *memConn) repository.Repositories {
	return repository.Repositories{
		Users:    memUsers{c},
		Products: memProducts{c},
		Stores:   memStores{c},
		Orders:   memOrders{c},
		Carts:    memCarts{c},
		FeeRules: memFeeRules{c},
	}
}

type memUsers struct{ c *memConn }

func (r memUsers) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	var out *entity.User
	err := r.c.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

func (r memUsers) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.c.with(func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = copyUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memUsers) GetUserByEmailForUpdate(ctx context.Context, email string) (*entity.User, error) {
	return r.GetUserByEmail(ctx, email)
}

func (r memUsers) CreateUser(_ context.Context, user *entity.User) (*entity.User, error) {
	var out *entity.User
	err := r.c.with(func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repository.ErrDuplicate
			}
		}
		created := copyUser(user)
		created.ID = st.id()
		st.users[created.ID] = created
		out = copyUser(created)
		return nil
	})
	return out, err
}

func (r memUsers) UpdateUser(_ context.Context, user *entity.User) error {
	return r.c.with(func(st *memState) error {
		if _, ok := st.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		st.users[user.ID] = copyUser(user)
		return nil
	})
}

type memProducts struct{ c *memConn }

func (st *memState) productView(p *entity.Product) *entity.Product {
	out := copyProduct(p)
	if imgs := st.images[p.ID]; len(imgs) > 0 {
		out.ImageURL = imgs[0].URL
	}
	if store, ok := st.stores[p.StoreID]; ok {
		out.Store = copyStore(store)
	}
	return out
}

func (r memProducts) GetProductByID(_ context.Context, id int64) (*entity.Product, error) {
	var out *entity.Product
	err := r.c.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = st.productView(p)
		return nil
	})
	return out, err
}

func (r memProducts) GetProductsForUpdate(_ context.Context, ids []int64) (map[int64]*entity.Product, error) {
	out := make(map[int64]*entity.Product, len(ids))
	err := r.c.with(func(st *memState) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out[id] = st.productView(p)
			}
		}
		return nil
	})
	return out, err
}

func (r memProducts) ListStoreProducts(_ context.Context, storeID int64) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.c.with(func(st *memState) error {
		for _, p := range st.products {
			if p.StoreID == storeID && p.Status == entity.ProductStatusActive {
				out = append(out, st.productView(p))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memProducts) AdjustInventory(_ context.Context, productID int64, delta int) error {
	return r.c.with(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok || !p.TrackInventory || p.Inventory+delta < 0 {
			return repository.ErrConflict
		}
		p.Inventory += delta
		return nil
	})
}

func (r memProducts) AddProductImage(_ context.Context, image *entity.ProductImage) (*entity.ProductImage, error) {
	out := *image
	err := r.c.with(func(st *memState) error {
		out.ID = st.id()
		out.Position = len(st.images[image.ProductID])
		st.images[image.ProductID] = append(st.images[image.ProductID], out)
		return nil
	})
	return &out, err
}

type memStores struct{ c *memConn }

func (r memStores) GetStoreByID(_ context.Context, id int64) (*entity.Store, error) {
	var out *entity.Store
	err := r.c.with(func(st *memState) error {
		s, ok := st.stores[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyStore(s)
		return nil
	})
	return out, err
}

func (r memStores) IncrementAggregates(_ context.Context, storeID int64, sales decimal.Decimal, orders int64) error {
	return r.c.with(func(st *memState) error {
		s, ok := st.stores[storeID]
		if !ok {
			return repository.ErrNotFound
		}
		s.TotalSales = s.TotalSales.Add(sales)
		s.TotalOrders += orders
		return nil
	})
}

type memOrders struct{ c *memConn }

func (r memOrders) CreateOrder(_ context.Context, order *entity.Order) (*entity.Order, error) {
	var out *entity.Order
	err := r.c.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.OrderNumber == order.OrderNumber {
				return repository.ErrDuplicate
			}
		}
		created := copyOrder(order)
		created.ID = st.id()
		for i := range created.Items {
			created.Items[i].ID = st.id()
			created.Items[i].OrderID = created.ID
		}
		st.orders[created.ID] = created
		out = copyOrder(created)
		return nil
	})
	return out, err
}

func (r memOrders) GetOrderByNumber(_ context.Context, number string) (*entity.Order, error) {
	var out *entity.Order
	err := r.c.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.OrderNumber == number {
				out = copyOrder(o)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memOrders) GetOrderByNumberForUpdate(ctx context.Context, number string) (*entity.Order, error) {
	return r.GetOrderByNumber(ctx, number)
}

func (r memOrders) ListOrdersByUser(_ context.Context, userID int64) ([]*entity.Order, error) {
	var out []*entity.Order
	err := r.c.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r memOrders) UpdateOrder(_ context.Context, order *entity.Order) error {
	return r.c.with(func(st *memState) error {
		current, ok := st.orders[order.ID]
		if !ok {
			return repository.ErrNotFound
		}
		updated := copyOrder(current)
		updated.Status = order.Status
		updated.PaymentStatus = order.PaymentStatus
		updated.PaymentReference = order.PaymentReference
		updated.TrackingNumber = order.TrackingNumber
		updated.FulfilledAt = order.FulfilledAt
		updated.CancelledAt = order.CancelledAt
		updated.UpdatedAt = order.UpdatedAt
		st.orders[order.ID] = updated
		return nil
	})
}

type memCarts struct{ c *memConn }

func (r memCarts) GetCartByID(_ context.Context, id int64) (*entity.Cart, error) {
	var out *entity.Cart
	err := r.c.with(func(st *memState) error {
		cart, ok := st.carts[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyCart(cart)
		return nil
	})
	return out, err
}

func (r memCarts) GetActiveCartByUser(_ context.Context, userID int64, now time.Time) (*entity.Cart, error) {
	var out *entity.Cart
	err := r.c.with(func(st *memState) error {
		for _, cart := range st.carts {
			if cart.UserID == userID && !cart.Expired(now) && (out == nil || cart.ID > out.ID) {
				out = copyCart(cart)
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r memCarts) CreateCart(_ context.Context, cart *entity.Cart) (*entity.Cart, error) {
	var out *entity.Cart
	err := r.c.with(func(st *memState) error {
		created := copyCart(cart)
		created.ID = st.id()
		st.carts[created.ID] = created
		out = copyCart(created)
		return nil
	})
	return out, err
}

func (r memCarts) AddCartItem(_ context.Context, cartID, productID int64, quantity int) error {
	return r.c.with(func(st *memState) error {
		cart, ok := st.carts[cartID]
		if !ok {
			return repository.ErrNotFound
		}
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				cart.Items[i].Quantity += quantity
				return nil
			}
		}
		cart.Items = append(cart.Items, entity.CartItem{ID: st.id(), CartID: cartID, ProductID: productID, Quantity: quantity})
		return nil
	})
}

func (r memCarts) ClearCart(_ context.Context, cartID int64) error {
	return r.c.with(func(st *memState) error {
		if cart, ok := st.carts[cartID]; ok {
			cart.Items = nil
		}
		return nil
	})
}

type memFeeRules struct{ c *memConn }

func (r memFeeRules) GetFeeRules(_ context.Context, storeID int64) ([]*entity.FeeRule, error) {
	var out []*entity.FeeRule
	err := r.c.with(func(st *memState) error {
		for _, rule := range st.feeRules[storeID] {
			c := *rule
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}
