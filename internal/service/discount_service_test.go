package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

func TestDiscountValidateMatrix(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := 2

	cases := []struct {
		name        string
		discount    domain.Discount
		orderAmount float64
		wantAmount  float64
		wantMessage string
	}{
		{
			name:        "percentage applies",
			discount:    domain.Discount{Code: "PCT20", Type: domain.DiscountTypePercentage, Value: 20, IsActive: true},
			orderAmount: 250,
			wantAmount:  50,
		},
		{
			name:        "fixed applies",
			discount:    domain.Discount{Code: "FLAT15", Type: domain.DiscountTypeFixed, Value: 15, IsActive: true},
			orderAmount: 100,
			wantAmount:  15,
		},
		{
			name:        "inactive",
			discount:    domain.Discount{Code: "OFF", Type: domain.DiscountTypeFixed, Value: 5},
			orderAmount: 100,
			wantMessage: "discount code is not active",
		},
		{
			name:        "not yet started",
			discount:    domain.Discount{Code: "SOON", Type: domain.DiscountTypeFixed, Value: 5, IsActive: true, StartsAt: &future},
			orderAmount: 100,
			wantMessage: "discount code is not yet valid",
		},
		{
			name:        "expired",
			discount:    domain.Discount{Code: "LATE", Type: domain.DiscountTypeFixed, Value: 5, IsActive: true, ExpiresAt: &past},
			orderAmount: 100,
			wantMessage: "discount code has expired",
		},
		{
			name:        "usage limit reached",
			discount:    domain.Discount{Code: "FULL", Type: domain.DiscountTypeFixed, Value: 5, IsActive: true, UsageLimit: &limit, UsedCount: 2},
			orderAmount: 100,
			wantMessage: "discount code usage limit reached",
		},
		{
			name:        "below minimum order",
			discount:    domain.Discount{Code: "BIG", Type: domain.DiscountTypeFixed, Value: 5, IsActive: true, MinOrderAmount: 50},
			orderAmount: 49.99,
			wantMessage: "minimum order amount of 50.00 required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repos, store, logger := newFixture()
			discounts := service.NewDiscountService(repos, logger)
			d := tc.discount
			store.SeedDiscount(&d)

			_, amount, err := discounts.Validate(context.Background(), d.Code, uuid.New(), tc.orderAmount)

			if tc.wantMessage != "" {
				var ruleErr *errors.ErrBusinessRule
				require.ErrorAs(t, err, &ruleErr)
				assert.Equal(t, tc.wantMessage, ruleErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAmount, amount)
		})
	}
}

func TestDiscountValidateUnknownCode(t *testing.T) {
	repos, _, logger := newFixture()
	discounts := service.NewDiscountService(repos, logger)

	_, _, err := discounts.Validate(context.Background(), "NOSUCH", uuid.New(), 100)

	var notFound *errors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestDiscountValidatePerCustomerLimit(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	discounts := service.NewDiscountService(repos, newLogger())
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 50)
	perCustomer := 1
	store.SeedDiscount(&domain.Discount{
		Code:             "ONEEACH",
		Type:             domain.DiscountTypeFixed,
		Value:            5,
		PerCustomerLimit: &perCustomer,
		IsActive:         true,
	})

	customerID := uuid.New()
	code := "ONEEACH"
	addToCart(t, carts, customerID, product.ID, 1)
	_, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})
	require.NoError(t, err)

	_, _, err = discounts.Validate(ctx, "ONEEACH", customerID, 100)
	var ruleErr *errors.ErrBusinessRule
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "discount code already used", ruleErr.Message)

	// A different customer is unaffected
	_, amount, err := discounts.Validate(ctx, "ONEEACH", uuid.New(), 100)
	require.NoError(t, err)
	assert.Equal(t, 5.0, amount)
}

func TestDiscountPerCustomerLimitIgnoresCancelledOrders(t *testing.T) {
	checkout, _, carts, repos, store := checkoutFixture(approveAll())
	discounts := service.NewDiscountService(repos, newLogger())
	orders := service.NewOrderService(repos, newLogger())
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 50)
	perCustomer := 1
	store.SeedDiscount(&domain.Discount{
		Code:             "RETRY",
		Type:             domain.DiscountTypeFixed,
		Value:            5,
		PerCustomerLimit: &perCustomer,
		IsActive:         true,
	})

	customerID := uuid.New()
	code := "RETRY"
	addToCart(t, carts, customerID, product.ID, 1)
	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
		DiscountCode:    &code,
	})
	require.NoError(t, err)

	_, err = orders.Cancel(ctx, customerID, order.ID)
	require.NoError(t, err)

	_, _, err = discounts.Validate(ctx, "RETRY", customerID, 100)
	assert.NoError(t, err, "a cancelled order does not count as a redemption")
}

func TestDiscountCreateNormalizesAndValidates(t *testing.T) {
	repos, _, logger := newFixture()
	discounts := service.NewDiscountService(repos, logger)
	ctx := context.Background()

	created, err := discounts.Create(ctx, &service.CreateDiscountRequest{
		Code:  "summer10",
		Type:  domain.DiscountTypePercentage,
		Value: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER10", created.Code, "codes are stored uppercase")
	assert.True(t, created.IsActive)

	_, err = discounts.Create(ctx, &service.CreateDiscountRequest{
		Code:  "TOOMUCH",
		Type:  domain.DiscountTypePercentage,
		Value: 150,
	})
	var valErr *errors.ErrValidation
	require.ErrorAs(t, err, &valErr)

	_, err = discounts.Create(ctx, &service.CreateDiscountRequest{
		Code:  "WHEN",
		Type:  domain.DiscountTypeFixed,
		Value: 5,
		StartsAt: func() *string {
			s := "not-a-date"
			return &s
		}(),
	})
	require.ErrorAs(t, err, &valErr)

	_, err = discounts.Create(ctx, &service.CreateDiscountRequest{
		Code:  "SUMMER10",
		Type:  domain.DiscountTypeFixed,
		Value: 5,
	})
	var conflict *errors.ErrConflict
	assert.ErrorAs(t, err, &conflict, "duplicate code")
}

func TestDiscountDeactivate(t *testing.T) {
	repos, store, logger := newFixture()
	discounts := service.NewDiscountService(repos, logger)
	ctx := context.Background()

	store.SeedDiscount(&domain.Discount{
		Code:     "SOONOFF",
		Type:     domain.DiscountTypeFixed,
		Value:    5,
		IsActive: true,
	})

	require.NoError(t, discounts.Deactivate(ctx, "SOONOFF"))

	_, _, err := discounts.Validate(ctx, "SOONOFF", uuid.New(), 100)
	var ruleErr *errors.ErrBusinessRule
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "discount code is not active", ruleErr.Message)
}
