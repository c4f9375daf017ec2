package service

import (
	"github.com/google/uuid"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/gateway"
)

// CartItemView is one cart line as presented to the storefront
type CartItemView struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	LineTotal float64   `json:"line_total"`
}

// CartView is a cart with its derived totals. For guest carts the line ID is
// the product ID (guest lines have no row identity of their own).
type CartView struct {
	Items    []CartItemView `json:"items"`
	Subtotal float64        `json:"subtotal"`
	Tax      float64        `json:"tax"`
	Shipping float64        `json:"shipping"`
	Total    float64        `json:"total"`
}

// CreateOrderRequest is the checkout payload
type CreateOrderRequest struct {
	ShippingAddressID *uuid.UUID             `json:"shipping_address_id"`
	ShippingAddress   map[string]interface{} `json:"shipping_address"`
	PaymentMethod     domain.PaymentMethod   `json:"payment_method" binding:"required"`
	DiscountCode      *string                `json:"discount_code"`
	Notes             *string                `json:"notes"`
}

// ProcessPaymentRequest asks the ledger to collect funds for an order
type ProcessPaymentRequest struct {
	OrderID       uuid.UUID            `json:"order_id" binding:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" binding:"required"`
	Card          *gateway.CardDetails `json:"card_details"`
}

// RefundRequest asks the ledger to return funds. A nil amount refunds the
// remaining balance.
type RefundRequest struct {
	Amount *float64 `json:"amount"`
	Reason string   `json:"reason"`
}

// PaymentStatusView summarizes the ledger for one order
type PaymentStatusView struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderStatus domain.OrderStatus `json:"order_status"`
	Latest      *domain.Payment    `json:"latest_payment"`
	History     []*domain.Payment  `json:"history"`
}

// RegisterRequest creates a customer login
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest authenticates by phone and password
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued access token
type AuthResponse struct {
	Token    string           `json:"token"`
	Customer *domain.Customer `json:"customer"`
}

// CreateDiscountRequest creates a discount code
type CreateDiscountRequest struct {
	Code             string              `json:"code" binding:"required"`
	Type             domain.DiscountType `json:"type" binding:"required"`
	Value            float64             `json:"value" binding:"required,gt=0"`
	MinOrderAmount   float64             `json:"min_order_amount"`
	MaximumDiscount  *float64            `json:"maximum_discount"`
	UsageLimit       *int                `json:"usage_limit"`
	PerCustomerLimit *int                `json:"per_customer_limit"`
	StartsAt         *string             `json:"starts_at"`
	ExpiresAt        *string             `json:"expires_at"`
}
