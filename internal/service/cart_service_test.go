package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

func TestCartAddItemAccumulates(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	product := seedProduct(store, "Classic Tee", 25, 10)

	_, err := carts.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)
	cart, err := carts.AddItem(context.Background(), customerID, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1, "same product accumulates onto one line")
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 125.0, cart.Subtotal)
}

func TestCartTotalsInvariantAfterMutations(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	ctx := context.Background()

	tee := seedProduct(store, "Classic Tee", 25, 50)
	hoodie := seedProduct(store, "Zip Hoodie", 65, 50)

	cart, err := carts.AddItem(ctx, customerID, tee.ID, 2)
	require.NoError(t, err)
	cart, err = carts.AddItem(ctx, customerID, hoodie.ID, 1)
	require.NoError(t, err)

	// 2*25 + 65 = 115 > 100: free shipping
	assert.Equal(t, 115.0, cart.Subtotal)
	assert.Equal(t, 17.25, cart.Tax)
	assert.Equal(t, 0.0, cart.Shipping)
	assert.Equal(t, 132.25, cart.Total)

	// Drop the hoodie: 50 <= 100, shipping comes back
	var hoodieItem uuid.UUID
	for _, item := range cart.Items {
		if item.ProductID == hoodie.ID {
			hoodieItem = item.ID
		}
	}
	cart, err = carts.RemoveItem(ctx, customerID, hoodieItem)
	require.NoError(t, err)

	assert.Equal(t, 50.0, cart.Subtotal)
	assert.Equal(t, 7.5, cart.Tax)
	assert.Equal(t, 10.0, cart.Shipping)
	assert.Equal(t, 67.5, cart.Total)
}

func TestCartAddItemRejectsOverStock(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	product := seedProduct(store, "Trail Runners", 120, 3)

	_, err := carts.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	_, err = carts.AddItem(context.Background(), customerID, product.ID, 2)
	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr, "existing line plus new quantity exceeds stock")
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
}

func TestCartUpdateItemZeroRemovesLine(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	product := seedProduct(store, "Canvas Tote", 18, 10)

	cart, err := carts.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	cart, err = carts.UpdateItem(context.Background(), customerID, cart.Items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCartRemoveItemIdempotent(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	product := seedProduct(store, "Wool Beanie", 15, 10)

	cart, err := carts.AddItem(context.Background(), customerID, product.ID, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = carts.RemoveItem(context.Background(), customerID, itemID)
	require.NoError(t, err)
	cart, err = carts.RemoveItem(context.Background(), customerID, itemID)
	require.NoError(t, err, "removing an already-removed line succeeds")
	assert.Empty(t, cart.Items)
}

func TestCartClearIdempotent(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	product := seedProduct(store, "Classic Tee", 25, 10)

	_, err := carts.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	cart, err := carts.Clear(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart, err = carts.Clear(context.Background(), customerID)
	require.NoError(t, err, "clearing an empty cart succeeds")
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCartUpdateItemOwnership(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	owner := uuid.New()
	intruder := uuid.New()
	product := seedProduct(store, "Classic Tee", 25, 10)

	cart, err := carts.AddItem(context.Background(), owner, product.ID, 1)
	require.NoError(t, err)

	_, err = carts.UpdateItem(context.Background(), intruder, cart.Items[0].ID, 5)
	var notFound *errors.ErrNotFound
	assert.ErrorAs(t, err, &notFound, "another customer's line reads as not found")
}

func TestGuestCartLifecycle(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	product := seedProduct(store, "Classic Tee", 25, 10)
	ctx := context.Background()
	session := "sess-abc123"

	view, err := carts.AddGuestItem(ctx, session, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 50.0, view.Subtotal)
	assert.Equal(t, 10.0, view.Shipping)

	view, err = carts.UpdateGuestItem(ctx, session, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 125.0, view.Subtotal)
	assert.Equal(t, 0.0, view.Shipping, "over the free shipping threshold")

	view, err = carts.RemoveGuestItem(ctx, session, product.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = carts.ClearGuestCart(ctx, session)
	require.NoError(t, err)
}

func TestMergeGuestCartIntoCustomerCart(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	ctx := context.Background()
	session := "sess-merge"

	tee := seedProduct(store, "Classic Tee", 25, 50)
	hoodie := seedProduct(store, "Zip Hoodie", 65, 50)

	// Customer already has a tee; the guest session has more tees and a hoodie
	_, err := carts.AddItem(ctx, customerID, tee.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddGuestItem(ctx, session, tee.ID, 2)
	require.NoError(t, err)
	_, err = carts.AddGuestItem(ctx, session, hoodie.ID, 1)
	require.NoError(t, err)

	cart, err := carts.MergeGuestCart(ctx, session, customerID)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	byProduct := make(map[uuid.UUID]int)
	for _, item := range cart.Items {
		byProduct[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 3, byProduct[tee.ID], "guest quantity accumulates onto the existing line")
	assert.Equal(t, 1, byProduct[hoodie.ID])

	// The session cart is gone
	view, err := carts.GetGuestCart(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestMergeGuestCartSkipsUnmergeableLines(t *testing.T) {
	repos, store, logger := newFixture()
	carts := service.NewCartService(repos, testTotals, logger)
	customerID := uuid.New()
	ctx := context.Background()
	session := "sess-partial"

	tee := seedProduct(store, "Classic Tee", 25, 50)
	scarce := seedProduct(store, "Trail Runners", 120, 2)

	_, err := carts.AddGuestItem(ctx, session, tee.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddGuestItem(ctx, session, scarce.ID, 2)
	require.NoError(t, err)

	// Stock drains between adding and merging
	scarce.Stock = 1

	cart, err := carts.MergeGuestCart(ctx, session, customerID)
	require.NoError(t, err, "merge succeeds even when a line cannot transfer")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, tee.ID, cart.Items[0].ProductID)
}
