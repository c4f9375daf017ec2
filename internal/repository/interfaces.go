package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/greenshop/storefront/internal/domain"
)

// CheckoutEffects carries the side effects that must commit atomically with
// the order snapshot: stock decrements, cart clearing and discount redemption.
// All of them succeed together or none do.
type CheckoutEffects struct {
	StockDecrements map[uuid.UUID]int
	ClearCartID     uuid.UUID
	DiscountCode    *string
}

// CustomerRepository defines customer data access methods
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
}

// AddressRepository defines address book data access methods
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.Address, error)
}

// CategoryRepository defines category data access methods
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
}

// ProductRepository defines catalog data access methods
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// GetByIDs returns the active products for the given IDs, keyed by ID.
	// Missing IDs are simply absent from the map.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Product, error)
	CreateVariant(ctx context.Context, variant *domain.ProductVariant) error
	ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.ProductVariant, error)
	// AdjustStock adds delta to the product's stock (negative deltas are
	// rejected by the stock >= -delta guard).
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}

// CartRepository defines persistent (customer-owned) cart data access methods
type CartRepository interface {
	// GetOrCreate returns the customer's cart, creating it lazily on first use.
	// Items are loaded.
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error)
	CreateItem(ctx context.Context, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	// UpdateTotals persists the cart's cached totals (display hints only;
	// checkout re-derives them from the catalog).
	UpdateTotals(ctx context.Context, cart *domain.Cart) error
}

// GuestCartRepository defines session-scoped cart storage for anonymous shoppers
type GuestCartRepository interface {
	// Get returns (nil, nil) when no cart exists for the token
	Get(ctx context.Context, sessionToken string) (*domain.GuestCart, error)
	Save(ctx context.Context, cart *domain.GuestCart) error
	Delete(ctx context.Context, sessionToken string) error
}

// OrderRepository defines order data access methods
type OrderRepository interface {
	// CreateCheckout writes the order, its items and all checkout side effects
	// in a single transaction. A unique violation on order_number is reported
	// as *errors.ErrConflict so the caller can retry with a new number.
	CreateCheckout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, effects CheckoutEffects) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
	// UpdateStatus sets the status and its side effects (shipped_at,
	// delivered_at, tracking number). Transition validity is the service's job.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error
	// CancelAndRestock marks the order cancelled and restores product stock
	// from its items, in one transaction.
	CancelAndRestock(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines payment ledger data access methods
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error)
	// GetCompletedByOrderID returns (nil, nil) when the order has no completed payment
	GetCompletedByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	// SumRefunds returns the absolute value of all refund rows for the payment
	SumRefunds(ctx context.Context, parentPaymentID uuid.UUID) (float64, error)
	// CompleteAndConfirmOrder marks the payment completed and advances its
	// order to confirmed, in one transaction.
	CompleteAndConfirmOrder(ctx context.Context, paymentID uuid.UUID, transactionID string, gatewayResponse map[string]interface{}) error
	MarkFailed(ctx context.Context, paymentID uuid.UUID, reason string, gatewayResponse map[string]interface{}) error
	// CreateRefund inserts the negative-amount ledger row and, when the refund
	// covers the full order total, transitions the order to refunded, in one
	// transaction.
	CreateRefund(ctx context.Context, refund *domain.Payment, markOrderRefunded bool) error
}

// DiscountRepository defines discount data access methods
type DiscountRepository interface {
	Create(ctx context.Context, discount *domain.Discount) error
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Discount, error)
	Deactivate(ctx context.Context, code string) error
	// CountCustomerRedemptions counts orders by the customer that used the code
	CountCustomerRedemptions(ctx context.Context, code string, customerID uuid.UUID) (int, error)
}

// OrderEventRepository defines order audit event data access methods
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error)
}

// IdempotencyKeyRepository defines idempotency key data access methods
type IdempotencyKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Create(ctx context.Context, key *domain.IdempotencyKey) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Customer       CustomerRepository
	Address        AddressRepository
	Category       CategoryRepository
	Product        ProductRepository
	Cart           CartRepository
	GuestCart      GuestCartRepository
	Order          OrderRepository
	Payment        PaymentRepository
	Discount       DiscountRepository
	OrderEvent     OrderEventRepository
	IdempotencyKey IdempotencyKeyRepository
}
