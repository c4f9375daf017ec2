package errors

import (
	"fmt"

	"github.com/greenshop/storefront/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., duplicate phone, idempotency reuse)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrBusinessRule is returned when an operation violates a business rule
// (empty cart, already paid, cannot cancel a shipped order, ...)
type ErrBusinessRule struct {
	Message string
}

func (e *ErrBusinessRule) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "business rule violation"
}

// ErrInvalidStateTransition is returned when an invalid order status transition is attempted
type ErrInvalidStateTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrEmptyCart is returned when checkout is attempted on a cart with no items
type ErrEmptyCart struct{}

func (e *ErrEmptyCart) Error() string {
	return "cart is empty"
}

// ErrInsufficientStock is returned when a requested quantity exceeds available stock
type ErrInsufficientStock struct {
	ProductID string
	Requested int
	Available int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ErrAlreadyPaid is returned when payment is attempted on an order that already
// has a completed payment
type ErrAlreadyPaid struct {
	OrderID string
}

func (e *ErrAlreadyPaid) Error() string {
	return fmt.Sprintf("order %s already has a completed payment", e.OrderID)
}

// ErrInvalidAmount is returned when a refund exceeds the remaining refundable balance
type ErrInvalidAmount struct {
	Message string
}

func (e *ErrInvalidAmount) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "invalid amount"
}

// ErrNotRefundable is returned when a refund is attempted against a payment
// that was never completed
type ErrNotRefundable struct {
	PaymentID string
}

func (e *ErrNotRefundable) Error() string {
	return fmt.Sprintf("payment %s is not refundable", e.PaymentID)
}

// ErrGatewayDeclined is returned when the payment gateway refuses the charge.
// Declines are terminal and must not be retried.
type ErrGatewayDeclined struct {
	Code    string
	Message string
}

func (e *ErrGatewayDeclined) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment declined: %s", e.Message)
	}
	return "payment declined"
}

// ErrGatewayUnavailable is returned when the payment gateway cannot be reached
// or times out. Transient: the caller may retry once.
type ErrGatewayUnavailable struct {
	Cause error
}

func (e *ErrGatewayUnavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("payment gateway unavailable: %v", e.Cause)
	}
	return "payment gateway unavailable"
}

func (e *ErrGatewayUnavailable) Unwrap() error {
	return e.Cause
}

// ErrOrderCreationFailed wraps any failure inside the checkout transaction.
// The transaction has been rolled back and the cart left untouched.
type ErrOrderCreationFailed struct {
	Cause error
}

func (e *ErrOrderCreationFailed) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Cause)
}

func (e *ErrOrderCreationFailed) Unwrap() error {
	return e.Cause
}
