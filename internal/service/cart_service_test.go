package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddItemMergesAndExpires(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(1)
	p := f.addProduct(store.ID, "1.00", 10)
	buyer := &Requester{UserID: f.addUser("cart@example.com", true, "hash").ID}

	now := testNow
	carts := NewCartService(f.db, 24*time.Hour, func() time.Time { return now })

	_, err := carts.GetCart(context.Background(), buyer)
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart, err := carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), cart.ExpiresAt)

	cart, err = carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	got, err := carts.GetCart(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)

	now = testNow.Add(25 * time.Hour)
	_, err = carts.GetCart(context.Background(), buyer)
	assert.ErrorIs(t, err, ErrCartNotFound)

	fresh, err := carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)
}

func TestCartAddItemValidation(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(1)
	p := f.addProduct(store.ID, "1.00", 0)
	carts := NewCartService(f.db, time.Hour, nil)
	buyer := &Requester{UserID: 9}

	_, err := carts.AddItem(context.Background(), nil, CartLine{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = carts.AddItem(context.Background(), buyer, CartLine{ProductID: 999999, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCartAddItemCapsQuantity(t *testing.T) {
	f := newFixture(t)
	store := f.addStore(1)
	p := f.addProduct(store.ID, "1.00", 0)
	f.db.read(func(st *memState) { st.products[p.ID].TrackInventory = false })
	carts := NewCartService(f.db, time.Hour, nil)
	buyer := &Requester{UserID: f.addUser("cap@example.com", true, "hash").ID}

	_, err := carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: math.MaxInt})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	cart, err := carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: MaxLineQuantity})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	_, err = carts.AddItem(context.Background(), buyer, CartLine{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	cart, err = carts.GetCart(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, MaxLineQuantity, cart.Items[0].Quantity)
}
