package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenshop/storefront/internal/domain"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
		domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusCancelled, domain.OrderStatusRefunded},
		domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled, domain.OrderStatusRefunded},
		domain.OrderStatusShipped:    {domain.OrderStatusDelivered, domain.OrderStatusRefunded},
		domain.OrderStatusDelivered:  {domain.OrderStatusRefunded},
		domain.OrderStatusCancelled:  {},
		domain.OrderStatusRefunded:   {},
	}

	all := []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		domain.OrderStatusRefunded,
	}

	for from, targets := range allowed {
		ok := make(map[domain.OrderStatus]bool, len(targets))
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestOrderStatusCanBeCancelled(t *testing.T) {
	assert.True(t, domain.OrderStatusPending.CanBeCancelled())
	assert.True(t, domain.OrderStatusConfirmed.CanBeCancelled())
	assert.True(t, domain.OrderStatusProcessing.CanBeCancelled())
	assert.False(t, domain.OrderStatusShipped.CanBeCancelled())
	assert.False(t, domain.OrderStatusDelivered.CanBeCancelled())
	assert.False(t, domain.OrderStatusCancelled.CanBeCancelled())
	assert.False(t, domain.OrderStatusRefunded.CanBeCancelled())
}

func TestOrderStatusIsValid(t *testing.T) {
	assert.True(t, domain.OrderStatusPending.IsValid())
	assert.False(t, domain.OrderStatus("partially_shipped").IsValid())
	assert.False(t, domain.OrderStatus("").IsValid())
}

func TestPaymentMethodRequiresGateway(t *testing.T) {
	assert.True(t, domain.PaymentMethodCard.RequiresGateway())
	assert.False(t, domain.PaymentMethodCashOnDelivery.RequiresGateway())
	assert.False(t, domain.PaymentMethodBankTransfer.RequiresGateway())
}
