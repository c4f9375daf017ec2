package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/gateway"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

var testCard = &gateway.CardDetails{
	Number:     "4242424242424242",
	ExpMonth:   12,
	ExpYear:    2030,
	CVC:        "123",
	HolderName: "Test Customer",
}

// pendingCardOrder fills a fresh customer's cart and checks out with the card
// method, leaving a pending order awaiting payment.
func pendingCardOrder(t *testing.T, checkout *service.CheckoutService, carts *service.CartService, storeSeed func() uuid.UUID) *domain.Order {
	t.Helper()
	customerID := uuid.New()
	productID := storeSeed()
	addToCart(t, carts, customerID, productID, 2)
	order, err := checkout.CreateFromCart(context.Background(), customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodCard,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)
	return order
}

func TestPaymentCardSuccessConfirmsOrder(t *testing.T) {
	gw := approveAll()
	checkout, payments, carts, repos, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, order.Total, payment.Amount)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "TXN-OK", *payment.TransactionID)
	assert.NotNil(t, payment.ProcessedAt)

	updated, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)

	events := store.Events(order.ID)
	var sawCompleted bool
	for _, e := range events {
		if e.EventType == "payment_completed" {
			sawCompleted = true
		}
	}
	assert.True(t, sawCompleted, "payment_completed event recorded")
}

func TestPaymentCardDeclineLeavesOrderPending(t *testing.T) {
	gw := &scriptedGateway{authorizeResults: []authorizeOutcome{
		{err: &errors.ErrGatewayDeclined{Code: "card_declined", Message: "insufficient funds"}},
	}}
	checkout, payments, carts, repos, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})

	var declined *errors.ErrGatewayDeclined
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, 1, gw.authorizeCalls, "declines are never retried")

	require.NotNil(t, payment, "failed payment row rides along with the error")
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)

	updated, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, updated.Status, "order can be retried with a new payment")
}

func TestPaymentCardRetriesOnceOnTransientFailure(t *testing.T) {
	gw := &scriptedGateway{authorizeResults: []authorizeOutcome{
		{err: &errors.ErrGatewayUnavailable{Cause: context.DeadlineExceeded}},
		{result: &gateway.AuthorizeResult{TransactionID: "TXN-RETRY"}},
	}}
	checkout, payments, carts, repos, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, gw.authorizeCalls, "one retry after the transient failure")
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)

	updated, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
}

func TestPaymentCardTransientFailureTwiceGivesUp(t *testing.T) {
	gw := &scriptedGateway{authorizeResults: []authorizeOutcome{
		{err: &errors.ErrGatewayUnavailable{Cause: context.DeadlineExceeded}},
	}}
	checkout, payments, carts, repos, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	_, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})

	var unavailable *errors.ErrGatewayUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 2, gw.authorizeCalls)

	updated, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, updated.Status)
}

func TestPaymentRejectsSecondPaymentOnPaidOrder(t *testing.T) {
	checkout, payments, carts, _, store := checkoutFixture(approveAll())
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	_, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	_, err = payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})

	var alreadyPaid *errors.ErrAlreadyPaid
	assert.ErrorAs(t, err, &alreadyPaid)
}

func TestPaymentOwnershipCheck(t *testing.T) {
	checkout, payments, carts, _, store := checkoutFixture(approveAll())
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	intruder := uuid.New()
	_, err := payments.Process(ctx, &intruder, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})

	var notFound *errors.ErrNotFound
	assert.ErrorAs(t, err, &notFound, "another customer's order reads as not found")
}

func TestPaymentCardRequiresCardDetails(t *testing.T) {
	checkout, payments, carts, _, store := checkoutFixture(approveAll())

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	_, err := payments.Process(context.Background(), &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
	})

	var valErr *errors.ErrValidation
	assert.ErrorAs(t, err, &valErr)
}

func TestPaymentMarkCompletedConfirmsManualPayment(t *testing.T) {
	checkout, payments, carts, repos, store := checkoutFixture(approveAll())
	customerID := uuid.New()
	ctx := context.Background()

	product := seedProduct(store, "Classic Tee", 25, 10)
	addToCart(t, carts, customerID, product.ID, 2)
	order, err := checkout.CreateFromCart(ctx, customerID, service.CreateOrderRequest{
		PaymentMethod:   domain.PaymentMethodBankTransfer,
		ShippingAddress: testAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)

	status, err := payments.Status(ctx, &customerID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, status.Latest)
	assert.Equal(t, domain.PaymentStatusPending, status.Latest.Status)

	completed, err := payments.MarkCompleted(ctx, status.Latest.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, completed.Status)
	require.NotNil(t, completed.TransactionID, "keeps the BT- transaction id")

	_, err = payments.MarkCompleted(ctx, status.Latest.ID, "", nil)
	var ruleErr *errors.ErrBusinessRule
	assert.ErrorAs(t, err, &ruleErr, "completing twice is rejected")

	updated, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
}

func TestPaymentRefundPartialThenFull(t *testing.T) {
	checkout, payments, carts, repos, store := checkoutFixture(approveAll())
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Zip Hoodie", 100, 10).ID
	})
	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	// 200 subtotal + 30 tax, free shipping: total 230
	partial := 50.0
	refund, err := payments.Refund(ctx, payment.ID, service.RefundRequest{Amount: &partial, Reason: "damaged item"})
	require.NoError(t, err)
	assert.Equal(t, -50.0, refund.Amount, "refunds are negative ledger rows")
	assert.Equal(t, domain.PaymentStatusRefunded, refund.Status)
	require.NotNil(t, refund.ParentPaymentID)
	assert.Equal(t, payment.ID, *refund.ParentPaymentID)

	mid, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, mid.Status, "partial refund leaves the order alone")

	// Refund the rest (nil amount = remaining balance)
	rest, err := payments.Refund(ctx, payment.ID, service.RefundRequest{Reason: "order cancelled"})
	require.NoError(t, err)
	assert.Equal(t, -180.0, rest.Amount)

	final, err := repos.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, final.Status, "full coverage flips the order to refunded")

	original, err := repos.Payment.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, original.Status, "the original row is never mutated")
	assert.Equal(t, 230.0, original.Amount)
}

func TestPaymentRefundOverRemainingBalance(t *testing.T) {
	checkout, payments, carts, _, store := checkoutFixture(approveAll())
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Zip Hoodie", 100, 10).ID
	})
	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	partial := 200.0
	_, err = payments.Refund(ctx, payment.ID, service.RefundRequest{Amount: &partial})
	require.NoError(t, err)

	tooMuch := 100.0
	_, err = payments.Refund(ctx, payment.ID, service.RefundRequest{Amount: &tooMuch})
	var amountErr *errors.ErrInvalidAmount
	assert.ErrorAs(t, err, &amountErr, "remaining balance is 30")

	negative := -5.0
	_, err = payments.Refund(ctx, payment.ID, service.RefundRequest{Amount: &negative})
	assert.ErrorAs(t, err, &amountErr)
}

func TestPaymentRefundRequiresCompletedPayment(t *testing.T) {
	gw := &scriptedGateway{authorizeResults: []authorizeOutcome{
		{err: &errors.ErrGatewayDeclined{Code: "card_declined", Message: "do not honor"}},
	}}
	checkout, payments, carts, _, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})
	failed, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.Error(t, err)
	require.NotNil(t, failed)

	_, err = payments.Refund(ctx, failed.ID, service.RefundRequest{})
	var notRefundable *errors.ErrNotRefundable
	assert.ErrorAs(t, err, &notRefundable)
}

func TestPaymentRefundGoesThroughGatewayForCards(t *testing.T) {
	gw := approveAll()
	gw.refundResult = &gateway.RefundResult{RefundID: "RF-123"}
	checkout, payments, carts, _, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})
	payment, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err)

	refund, err := payments.Refund(ctx, payment.ID, service.RefundRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.refundCalls)
	require.NotNil(t, refund.TransactionID)
	assert.Equal(t, "RF-123", *refund.TransactionID)
}

func TestPaymentStatusHistory(t *testing.T) {
	gw := &scriptedGateway{authorizeResults: []authorizeOutcome{
		{err: &errors.ErrGatewayDeclined{Code: "card_declined", Message: "do not honor"}},
		{result: &gateway.AuthorizeResult{TransactionID: "TXN-2"}},
	}}
	checkout, payments, carts, _, store := checkoutFixture(gw)
	ctx := context.Background()

	order := pendingCardOrder(t, checkout, carts, func() uuid.UUID {
		return seedProduct(store, "Classic Tee", 25, 10).ID
	})

	_, err := payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.Error(t, err, "first attempt declines")

	_, err = payments.Process(ctx, &order.CustomerID, service.ProcessPaymentRequest{
		OrderID:       order.ID,
		PaymentMethod: domain.PaymentMethodCard,
		Card:          testCard,
	})
	require.NoError(t, err, "second attempt succeeds with a fresh row")

	status, err := payments.Status(ctx, &order.CustomerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, status.OrderStatus)
	require.Len(t, status.History, 2)
	assert.Equal(t, domain.PaymentStatusFailed, status.History[0].Status)
	assert.Equal(t, domain.PaymentStatusCompleted, status.History[1].Status)
	assert.Equal(t, status.History[1], status.Latest)
}
