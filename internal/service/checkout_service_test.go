package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

var testAddress = map[string]interface{}{
	"street":  "12 Harbor Rd",
	"city":    "Amman",
	"country": "Jordan",
}

func TestCheckoutEmptyCart(t *testing.T) {
	checkout, _, _, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	product := seedProduct(store, "Classic Tee", 25, 10)

	_, err := checkout.CreateFromCart(context.Background(), customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})

	var emptyErr *errors.ErrEmptyCart
	require.ErrorAs(t, err, &emptyErr)
	assert.Zero(t, store.OrderCount(), "no order is created")
	assert.Equal(t, 10, store.Product(product.ID).Stock, "stock is untouched")
}

func TestCheckoutSnapshotsCartAndClearsIt(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	tee := seedProduct(store, "Classic Tee", 100, 10)
	tote := seedProduct(store, "Canvas Tote", 50, 10)
	addToCart(t, carts, customerID, tee.ID, 2)
	addToCart(t, carts, customerID, tote.ID, 1)

	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)

	// 250 subtotal, 15% tax, free shipping over 100
	assert.Equal(t, 250.0, order.Subtotal)
	assert.Equal(t, 37.5, order.Tax)
	assert.Equal(t, 0.0, order.Shipping)
	assert.Equal(t, 287.5, order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status, "card orders await payment")
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"), "order number %q", order.OrderNumber)

	items, err := repos.Order.GetItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, item.UnitPrice*float64(item.Quantity), item.LineTotal)
	}

	// Stock decremented, cart cleared
	assert.Equal(t, 8, store.Product(tee.ID).Stock)
	assert.Equal(t, 9, store.Product(tote.ID).Stock)
	cart, err := carts.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
}

func TestCheckoutRepricesFromCatalog(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Zip Hoodie", 65, 10)
	addToCart(t, carts, customerID, product.ID, 2)

	// Price changes after the item was added; the cart's cached unit price is stale
	product.Price = 80

	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)

	items, err := repos.Order.GetItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 80.0, items[0].UnitPrice, "order uses the catalog price at checkout time")
	assert.Equal(t, 160.0, order.Subtotal)
}

func TestCheckoutInsufficientStockLeavesEverythingIntact(t *testing.T) {
	checkout, _, carts, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Trail Runners", 120, 5)
	addToCart(t, carts, customerID, product.ID, 4)

	// Another checkout drains the stock first
	product.Stock = 2

	_, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})

	var stockErr *errors.ErrInsufficientStock
	require.ErrorAs(t, err, &stockErr)
	assert.Zero(t, store.OrderCount())
	assert.Equal(t, 2, store.Product(product.ID).Stock, "stock is untouched")

	cart, err := carts.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "cart survives the failed checkout")
}

func TestCheckoutAppliesDiscount(t *testing.T) {
	checkout, _, carts, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 100, 10)
	addToCart(t, carts, customerID, product.ID, 2)

	store.SeedDiscount(&domain.Discount{
		Code:     "SAVE20",
		Type:     domain.DiscountTypePercentage,
		Value:    20,
		IsActive: true,
	})

	code := "SAVE20"
	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})
	require.NoError(t, err)

	// 200 subtotal, 40 off, 30 tax, free shipping
	assert.Equal(t, 40.0, order.Discount)
	assert.Equal(t, 190.0, order.Total)
	require.NotNil(t, order.DiscountCode)
	assert.Equal(t, "SAVE20", *order.DiscountCode)
}

func TestCheckoutRejectsIneligibleDiscount(t *testing.T) {
	checkout, _, carts, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Wool Beanie", 15, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	store.SeedDiscount(&domain.Discount{
		Code:           "BIGSPEND",
		Type:           domain.DiscountTypeFixed,
		Value:          10,
		MinOrderAmount: 50,
		IsActive:       true,
	})

	code := "BIGSPEND"
	_, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})

	var ruleErr *errors.ErrBusinessRule
	require.ErrorAs(t, err, &ruleErr)
	assert.Zero(t, store.OrderCount())
}

func TestCheckoutRequiresShippingAddress(t *testing.T) {
	checkout, _, carts, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	_, err := checkout.CreateFromCart(context.Background(), customerID, service.CreateOrderRequest{
		PaymentMethod: domain.PaymentMethodCard,
	})

	var valErr *errors.ErrValidation
	require.ErrorAs(t, err, &valErr)
	assert.Zero(t, store.OrderCount())
}

func TestCheckoutUsesAddressBookSnapshot(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	state := "Amman Governorate"
	address := &domain.Address{
		CustomerID: customerID,
		Street:     "12 Harbor Rd",
		City:       "Amman",
		State:      &state,
		Country:    "Jordan",
	}
	require.NoError(t, repos.Address.Create(ctx, address))

	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:     domain.PaymentMethodCard,
		ShippingAddressID: &address.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, order.ShippingAddressID)
	assert.Equal(t, address.ID, *order.ShippingAddressID)
	assert.Equal(t, "12 Harbor Rd", order.ShippingAddress["street"])
	assert.Equal(t, "Amman Governorate", order.ShippingAddress["state"])
}

func TestCheckoutRejectsForeignAddress(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	other := &domain.Address{
		CustomerID: uuid.New(),
		Street:     "1 Elsewhere",
		City:       "Irbid",
		Country:    "Jordan",
	}
	require.NoError(t, repos.Address.Create(ctx, other))

	_, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:     domain.PaymentMethodCard,
		ShippingAddressID: &other.ID,
	})

	var notFound *errors.ErrNotFound
	assert.ErrorAs(t, err, &notFound, "another customer's address reads as not found")
}

func TestCheckoutCashOnDeliveryConfirmsImmediately(t *testing.T) {
	checkout, payments, carts, _, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 2)

	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)

	status, err := payments.Status(ctx, &customerID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Latest)
	assert.Equal(t, domain.PaymentStatusPending, status.Latest.Status, "COD payment awaits collection")
	require.NotNil(t, status.Latest.TransactionID)
	assert.True(t, strings.HasPrefix(*status.Latest.TransactionID, "COD-"),
		"transaction id %q", *status.Latest.TransactionID)
}

// conflictingOrderRepo fails CreateCheckout with ErrConflict a set number of
// times before delegating, simulating order-number collisions.
type conflictingOrderRepo struct {
	repository.OrderRepository
	failures int
	attempts int
}

func (r *conflictingOrderRepo) CreateCheckout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, effects repository.CheckoutEffects) error {
	r.attempts++
	if r.attempts <= r.failures {
		return &errors.ErrConflict{Message: "duplicate order number"}
	}
	return r.OrderRepository.CreateCheckout(ctx, order, items, effects)
}

func TestCheckoutRetriesOrderNumberCollision(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	wrapped := &conflictingOrderRepo{OrderRepository: repos.Order, failures: 2}
	repos.Order = wrapped

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err, "collisions are retried with a fresh number")
	assert.Equal(t, 3, wrapped.attempts)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestCheckoutGivesUpAfterRepeatedCollisions(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	// More collisions than the retry budget
	repos.Order = &conflictingOrderRepo{OrderRepository: repos.Order, failures: 100}

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 1)

	_, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})

	var failed *errors.ErrOrderCreationFailed
	require.ErrorAs(t, err, &failed)
}

func TestCheckoutDiscountRedemptionCounts(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 100, 50)
	limit := 1
	store.SeedDiscount(&domain.Discount{
		Code:       "ONCE",
		Type:       domain.DiscountTypeFixed,
		Value:      10,
		UsageLimit: &limit,
		IsActive:   true,
	})

	code := "ONCE"
	first := uuid.New()
	addToCart(t, carts, first, product.ID, 1)
	_, err := checkout.CreateFromCart(ctx, first, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})
	require.NoError(t, err)

	d, err := repos.Discount.GetByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, d.UsedCount, "redemption rides inside the checkout transaction")

	second := uuid.New()
	addToCart(t, carts, second, product.ID, 1)
	_, err = checkout.CreateFromCart(ctx, second, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})

	var ruleErr *errors.ErrBusinessRule
	assert.ErrorAs(t, err, &ruleErr, "usage limit is exhausted")
}
