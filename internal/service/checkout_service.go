package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// orderNumberAttempts bounds the retry loop on order_number collisions.
// Uniqueness is enforced by the database constraint, not the generator.
const orderNumberAttempts = 5

// CheckoutService turns a cart into an order. Items are re-priced from the
// catalog at order time; the cart's cached totals are display hints only.
// The snapshot, stock decrements, cart clearing and discount redemption
// commit in a single transaction.
type CheckoutService struct {
	repos     *repository.Repositories
	discounts *DiscountService
	payments  *PaymentService
	totals    domain.TotalsConfig
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	repos *repository.Repositories,
	discounts *DiscountService,
	payments *PaymentService,
	totals domain.TotalsConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		repos:     repos,
		discounts: discounts,
		payments:  payments,
		totals:    totals,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateFromCart snapshots the customer's cart into an order.
// COD and bank-transfer orders get their pending payment and confirmation
// immediately; card orders stay pending until the payment endpoint collects
// the card.
func (s *CheckoutService) CreateFromCart(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (*domain.Order, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown payment method",
			Fields:  map[string]string{"payment_method": "must be card, cash_on_delivery or bank_transfer"},
		}
	}

	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, &errors.ErrEmptyCart{}
	}

	items, lines, decrements, err := s.priceItems(ctx, cart)
	if err != nil {
		return nil, err
	}

	subtotal, tax, shipping, _ := domain.ComputeTotals(lines, s.totals)

	var discountAmount float64
	var discountCode *string
	if req.DiscountCode != nil && *req.DiscountCode != "" {
		discount, amount, err := s.discounts.Validate(ctx, *req.DiscountCode, customerID, subtotal)
		if err != nil {
			return nil, err
		}
		discountAmount = amount
		discountCode = &discount.Code
	}

	total := domain.Round2(subtotal + tax + shipping - discountAmount)
	if total < 0 {
		total = 0
	}

	shippingAddress, addressID, err := s.resolveShippingAddress(ctx, customerID, req)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerID:        customerID,
		Status:            domain.OrderStatusPending,
		Subtotal:          subtotal,
		Tax:               tax,
		Shipping:          shipping,
		Discount:          discountAmount,
		Total:             total,
		PaymentMethod:     req.PaymentMethod,
		DiscountCode:      discountCode,
		ShippingAddressID: addressID,
		ShippingAddress:   shippingAddress,
		Notes:             req.Notes,
	}

	effects := repository.CheckoutEffects{
		StockDecrements: decrements,
		ClearCartID:     cart.ID,
		DiscountCode:    discountCode,
	}

	if err := s.createWithUniqueNumber(ctx, order, items, effects); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", customerID.String()),
		zap.Float64("total", order.Total),
	)

	event := &domain.OrderEvent{
		OrderID:   order.ID,
		EventType: "order_created",
		EventData: map[string]interface{}{
			"order_number":   order.OrderNumber,
			"total":          order.Total,
			"payment_method": string(order.PaymentMethod),
		},
	}
	if err := s.repos.OrderEvent.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record order_created event", zap.Error(err))
	}

	// Manual-collection methods confirm immediately with a pending payment;
	// card orders wait for the payment endpoint
	if !req.PaymentMethod.RequiresGateway() {
		if _, err := s.payments.Process(ctx, &customerID, ProcessPaymentRequest{
			OrderID:       order.ID,
			PaymentMethod: req.PaymentMethod,
		}); err != nil {
			s.logger.Error("Failed to initiate manual payment", zap.Error(err))
			return nil, err
		}
		return s.repos.Order.GetByID(ctx, order.ID)
	}

	return order, nil
}

// priceItems re-prices the cart from the catalog and builds the order item
// snapshots plus the stock decrements for the transaction.
func (s *CheckoutService) priceItems(ctx context.Context, cart *domain.Cart) ([]*domain.OrderItem, []domain.CartLine, map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.repos.Product.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	items := make([]*domain.OrderItem, 0, len(cart.Items))
	lines := make([]domain.CartLine, 0, len(cart.Items))
	decrements := make(map[uuid.UUID]int, len(cart.Items))

	for _, cartItem := range cart.Items {
		product, ok := products[cartItem.ProductID]
		if !ok {
			return nil, nil, nil, &errors.ErrNotFound{Resource: "product", ID: cartItem.ProductID.String()}
		}
		if cartItem.Quantity > product.Stock {
			return nil, nil, nil, &errors.ErrInsufficientStock{
				ProductID: product.ID.String(),
				Requested: cartItem.Quantity,
				Available: product.Stock,
			}
		}

		items = append(items, &domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			UnitPrice:   product.Price,
			Quantity:    cartItem.Quantity,
			LineTotal:   domain.Round2(product.Price * float64(cartItem.Quantity)),
		})
		lines = append(lines, domain.CartLine{UnitPrice: product.Price, Quantity: cartItem.Quantity})
		decrements[product.ID] += cartItem.Quantity
	}

	return items, lines, decrements, nil
}

func (s *CheckoutService) resolveShippingAddress(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (map[string]interface{}, *uuid.UUID, error) {
	if req.ShippingAddressID != nil {
		address, err := s.repos.Address.GetByID(ctx, *req.ShippingAddressID)
		if err != nil {
			return nil, nil, err
		}
		if address.CustomerID != customerID {
			return nil, nil, &errors.ErrNotFound{Resource: "address", ID: req.ShippingAddressID.String()}
		}
		snapshot := map[string]interface{}{
			"street":  address.Street,
			"city":    address.City,
			"country": address.Country,
		}
		if address.State != nil {
			snapshot["state"] = *address.State
		}
		if address.PostalCode != nil {
			snapshot["postal_code"] = *address.PostalCode
		}
		return snapshot, &address.ID, nil
	}

	if len(req.ShippingAddress) > 0 {
		return req.ShippingAddress, nil, nil
	}

	return nil, nil, &errors.ErrValidation{
		Message: "shipping address is required",
		Fields:  map[string]string{"shipping_address": "provide shipping_address_id or shipping_address"},
	}
}

// createWithUniqueNumber retries on order_number collisions. The random
// suffix is not unique by construction; the database constraint is.
func (s *CheckoutService) createWithUniqueNumber(ctx context.Context, order *domain.Order, items []*domain.OrderItem, effects repository.CheckoutEffects) error {
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = s.generateOrderNumber()

		err := s.repos.Order.CreateCheckout(ctx, order, items, effects)
		if err == nil {
			return nil
		}

		switch err.(type) {
		case *errors.ErrConflict:
			lastErr = err
			continue
		case *errors.ErrInsufficientStock, *errors.ErrBusinessRule:
			// User-facing: stock ran out or the discount got redeemed
			// concurrently; the transaction rolled back, cart intact
			return err
		default:
			return &errors.ErrOrderCreationFailed{Cause: err}
		}
	}
	return &errors.ErrOrderCreationFailed{Cause: lastErr}
}

func (s *CheckoutService) generateOrderNumber() string {
	s.mu.Lock()
	n := s.rng.Intn(10000)
	s.mu.Unlock()
	return fmt.Sprintf("ORD-%s-%04d", time.Now().Format("20060102"), n)
}
