package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a shopper identity, optionally linked to a login account
type Customer struct {
	ID           uuid.UUID
	Name         string
	Phone        string // unique across customers
	Email        *string
	PasswordHash *string // nil for customers created at first checkout
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Address is one entry in a customer's address book
type Address struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Label      *string
	Street     string
	City       string
	State      *string
	PostalCode *string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
}

// Category groups products
type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Product is a catalog entry. Stock is authoritative for checkout.
type Product struct {
	ID          uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	SKU         string
	Description *string
	Price       float64
	Stock       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductVariant is a color/size attribute pair of a product
type ProductVariant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Color     *string
	Size      *string
	SKU       string
	Price     *float64 // nil means inherit product price
	Stock     int
	CreatedAt time.Time
}

// Cart is the mutable pre-checkout collection of items for one owner.
// Totals are denormalized projections of the items; RecomputeTotals is the
// only code path allowed to set them.
type Cart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Items      []*CartItem
	Subtotal   float64
	Tax        float64
	Shipping   float64
	Total      float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartItem is one line in a cart. UnitPrice is captured at add time and used
// for display only; checkout re-prices from the catalog.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int // >= 1; setting 0 removes the line
	UnitPrice float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GuestCart is a session-scoped cart for anonymous shoppers, stored in Redis
// under the session token and merged into the customer's cart on login.
type GuestCart struct {
	SessionToken string           `json:"session_token"`
	Items        []*GuestCartItem `json:"items"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// GuestCartItem is one line in a guest cart
type GuestCartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

// Order is the immutable snapshot of a completed checkout.
// total = subtotal + tax + shipping - discount, fixed at creation.
// Orders are never deleted; status changes go through the transition table.
type Order struct {
	ID                uuid.UUID
	OrderNumber       string // unique, ORD-YYYYMMDD-NNNN
	CustomerID        uuid.UUID
	Status            OrderStatus
	Subtotal          float64
	Tax               float64
	Shipping          float64
	Discount          float64
	Total             float64
	PaymentMethod     PaymentMethod
	DiscountCode      *string
	ShippingAddressID *uuid.UUID
	ShippingAddress   map[string]interface{} // JSONB snapshot of the address at checkout
	TrackingNumber    *string
	Notes             *string
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is an immutable product/quantity/price snapshot
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   float64
	Quantity    int
	LineTotal   float64
	CreatedAt   time.Time
}

// Payment is one attempt to collect (or return) funds for an order.
// Refunds are negative-amount rows referencing the original via ParentPaymentID;
// the original row is never mutated by a refund.
type Payment struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ParentPaymentID *uuid.UUID
	Amount          float64 // negative for refund rows
	Method          PaymentMethod
	Status          PaymentStatus
	TransactionID   *string
	Gateway         *string
	GatewayResponse map[string]interface{} // opaque JSONB blob
	FailureReason   *string
	RefundReason    *string
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Discount is a code-based order-total reducer with usage and validity constraints
type Discount struct {
	ID               uuid.UUID
	Code             string // unique, stored uppercase
	Type             DiscountType
	Value            float64
	MinOrderAmount   float64
	MaximumDiscount  *float64 // cap for percentage type; nil means uncapped
	UsageLimit       *int     // global cap; nil means unlimited
	PerCustomerLimit *int     // nil means unlimited
	UsedCount        int
	StartsAt         *time.Time // nil means no lower bound
	ExpiresAt        *time.Time // nil means no upper bound
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsValidAt reports whether the discount can be applied at the given time to
// an order of the given amount. Per-customer usage is checked separately by
// the service, which has access to the customer's redemption count.
func (d *Discount) IsValidAt(now time.Time, orderAmount float64) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.ExpiresAt != nil && now.After(*d.ExpiresAt) {
		return false
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return false
	}
	if orderAmount < d.MinOrderAmount {
		return false
	}
	return true
}

// Apply returns the discount amount for the given order amount.
// Percentage discounts cap at MaximumDiscount when set; the result never
// exceeds the order amount (the total floors at zero).
func (d *Discount) Apply(orderAmount float64) float64 {
	var amount float64
	switch d.Type {
	case DiscountTypePercentage:
		amount = Round2(orderAmount * d.Value / 100)
		if d.MaximumDiscount != nil && amount > *d.MaximumDiscount {
			amount = *d.MaximumDiscount
		}
	case DiscountTypeFixed:
		amount = d.Value
	default:
		return 0
	}
	if amount > orderAmount {
		amount = orderAmount
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// OrderEvent is an append-only audit record for an order
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	EventData map[string]interface{} // JSONB
	CreatedAt time.Time
}

// IdempotencyKey stores idempotency information for checkout requests
type IdempotencyKey struct {
	Key         string
	CustomerID  uuid.UUID
	OrderID     uuid.UUID
	RequestHash string
	CreatedAt   time.Time
}
