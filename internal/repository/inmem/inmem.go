// Package inmem provides map-backed repositories honoring the same contracts
// as the Postgres and Redis implementations. The service tests run against it.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// Store is the shared state behind all in-memory repositories
type Store struct {
	mu sync.Mutex

	customers   map[uuid.UUID]*domain.Customer
	addresses   map[uuid.UUID]*domain.Address
	categories  map[uuid.UUID]*domain.Category
	products    map[uuid.UUID]*domain.Product
	variants    map[uuid.UUID][]*domain.ProductVariant
	carts       map[uuid.UUID]*domain.Cart
	cartItems   map[uuid.UUID]*domain.CartItem
	guestCarts  map[string]*domain.GuestCart
	orders      map[uuid.UUID]*domain.Order
	orderItems  map[uuid.UUID][]*domain.OrderItem
	payments    map[uuid.UUID]*domain.Payment
	// paymentSeq preserves insertion order; ListByOrderID must report the
	// ledger oldest-first like the created_at ordering in Postgres
	paymentSeq  []uuid.UUID
	discounts   map[string]*domain.Discount
	events      map[uuid.UUID][]*domain.OrderEvent
	idempotency map[string]*domain.IdempotencyKey
}

// NewRepositories builds a full repository set over a fresh store
func NewRepositories() (*repository.Repositories, *Store) {
	s := &Store{
		customers:   make(map[uuid.UUID]*domain.Customer),
		addresses:   make(map[uuid.UUID]*domain.Address),
		categories:  make(map[uuid.UUID]*domain.Category),
		products:    make(map[uuid.UUID]*domain.Product),
		variants:    make(map[uuid.UUID][]*domain.ProductVariant),
		carts:       make(map[uuid.UUID]*domain.Cart),
		cartItems:   make(map[uuid.UUID]*domain.CartItem),
		guestCarts:  make(map[string]*domain.GuestCart),
		orders:      make(map[uuid.UUID]*domain.Order),
		orderItems:  make(map[uuid.UUID][]*domain.OrderItem),
		payments:    make(map[uuid.UUID]*domain.Payment),
		discounts:   make(map[string]*domain.Discount),
		events:      make(map[uuid.UUID][]*domain.OrderEvent),
		idempotency: make(map[string]*domain.IdempotencyKey),
	}
	return &repository.Repositories{
		Customer:       &customerRepo{s},
		Address:        &addressRepo{s},
		Category:       &categoryRepo{s},
		Product:        &productRepo{s},
		Cart:           &cartRepo{s},
		GuestCart:      &guestCartRepo{s},
		Order:          &orderRepo{s},
		Payment:        &paymentRepo{s},
		Discount:       &discountRepo{s},
		OrderEvent:     &orderEventRepo{s},
		IdempotencyKey: &idempotencyRepo{s},
	}, s
}

// SeedProduct inserts a product directly, bypassing validation
func (s *Store) SeedProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.products[p.ID] = p
}

// SeedDiscount inserts a discount directly
func (s *Store) SeedDiscount(d *domain.Discount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.discounts[d.Code] = d
}

// Product returns a product by ID for assertions
func (s *Store) Product(id uuid.UUID) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

// OrderCount reports how many orders exist
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Events returns the recorded events for an order
func (s *Store) Events(orderID uuid.UUID) []*domain.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[orderID]
}

// --- customers ---

type customerRepo struct{ s *Store }

func (r *customerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.customers {
		if existing.Phone == c.Phone {
			return &errors.ErrConflict{Message: "phone already exists"}
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.customers[c.ID] = c
	return nil
}

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "customer", ID: id.String()}
	}
	return c, nil
}

func (r *customerRepo) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "customer", ID: phone}
}

func (r *customerRepo) Update(ctx context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.customers[c.ID]; !ok {
		return &errors.ErrNotFound{Resource: "customer", ID: c.ID.String()}
	}
	c.UpdatedAt = time.Now()
	r.s.customers[c.ID] = c
	return nil
}

// --- addresses ---

type addressRepo struct{ s *Store }

func (r *addressRepo) Create(ctx context.Context, a *domain.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	r.s.addresses[a.ID] = a
	return nil
}

func (r *addressRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "address", ID: id.String()}
	}
	return a, nil
}

func (r *addressRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Address
	for _, a := range r.s.addresses {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- categories ---

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.Slug == c.Slug {
			return &errors.ErrConflict{Message: "slug already exists"}
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	r.s.categories[c.ID] = c
	return nil
}

func (r *categoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	return out, nil
}

// --- products ---

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return &errors.ErrConflict{Message: "sku already exists"}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.products[p.ID] = p
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	return p, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok && p.IsActive {
			out[id] = p
		}
	}
	return out, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Product
	for _, p := range r.s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *productRepo) CreateVariant(ctx context.Context, v *domain.ProductVariant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	r.s.variants[v.ProductID] = append(r.s.variants[v.ProductID], v)
	return nil
}

func (r *productRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.ProductVariant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.variants[productID], nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if p.Stock+delta < 0 {
		return &errors.ErrInsufficientStock{ProductID: id.String(), Requested: -delta, Available: p.Stock}
	}
	p.Stock += delta
	return nil
}

// --- carts ---

type cartRepo struct{ s *Store }

func (r *cartRepo) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var cart *domain.Cart
	for _, c := range r.s.carts {
		if c.CustomerID == customerID {
			cart = c
			break
		}
	}
	if cart == nil {
		now := time.Now()
		cart = &domain.Cart{ID: uuid.New(), CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
		r.s.carts[cart.ID] = cart
	}
	cart.Items = nil
	for _, item := range r.s.cartItems {
		if item.CartID == cart.ID {
			cart.Items = append(cart.Items, item)
		}
	}
	return cart, nil
}

func (r *cartRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cartItems[itemID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}
	return item, nil
}

func (r *cartRepo) CreateItem(ctx context.Context, item *domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			// Accumulate onto the existing line, like the ON CONFLICT upsert
			existing.Quantity += item.Quantity
			existing.UnitPrice = item.UnitPrice
			existing.UpdatedAt = time.Now()
			*item = *existing
			return nil
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now()
	item.CreatedAt, item.UpdatedAt = now, now
	r.s.cartItems[item.ID] = item
	return nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.cartItems[itemID]
	if !ok {
		return &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	return nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cartItems, itemID)
	return nil
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, item := range r.s.cartItems {
		if item.CartID == cartID {
			delete(r.s.cartItems, id)
		}
	}
	return nil
}

func (r *cartRepo) UpdateTotals(ctx context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.carts[cart.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "cart", ID: cart.ID.String()}
	}
	stored.Subtotal, stored.Tax, stored.Shipping, stored.Total =
		cart.Subtotal, cart.Tax, cart.Shipping, cart.Total
	stored.UpdatedAt = time.Now()
	return nil
}

// --- guest carts ---

type guestCartRepo struct{ s *Store }

func (r *guestCartRepo) Get(ctx context.Context, sessionToken string) (*domain.GuestCart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.guestCarts[sessionToken], nil
}

func (r *guestCartRepo) Save(ctx context.Context, cart *domain.GuestCart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart.UpdatedAt = time.Now()
	r.s.guestCarts[cart.SessionToken] = cart
	return nil
}

func (r *guestCartRepo) Delete(ctx context.Context, sessionToken string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.guestCarts, sessionToken)
	return nil
}

// --- orders ---

type orderRepo struct{ s *Store }

func (r *orderRepo) CreateCheckout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, effects repository.CheckoutEffects) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.orders {
		if existing.OrderNumber == order.OrderNumber {
			return &errors.ErrConflict{Message: "order_number collision"}
		}
	}
	for productID, qty := range effects.StockDecrements {
		p, ok := r.s.products[productID]
		if !ok || p.Stock < qty {
			available := 0
			if ok {
				available = p.Stock
			}
			return &errors.ErrInsufficientStock{ProductID: productID.String(), Requested: qty, Available: available}
		}
	}
	var discount *domain.Discount
	if effects.DiscountCode != nil {
		discount = r.s.discounts[*effects.DiscountCode]
		if discount == nil || !discount.IsActive ||
			(discount.UsageLimit != nil && discount.UsedCount >= *discount.UsageLimit) {
			return &errors.ErrBusinessRule{Message: "discount code is no longer available"}
		}
	}

	// All guards passed; apply everything
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.s.orders[order.ID] = order

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		item.CreatedAt = now
	}
	r.s.orderItems[order.ID] = items

	for productID, qty := range effects.StockDecrements {
		r.s.products[productID].Stock -= qty
	}
	for id, item := range r.s.cartItems {
		if item.CartID == effects.ClearCartID {
			delete(r.s.cartItems, id)
		}
	}
	if cart, ok := r.s.carts[effects.ClearCartID]; ok {
		cart.Subtotal, cart.Tax, cart.Shipping, cart.Total = 0, 0, 0, 0
	}
	if discount != nil {
		discount.UsedCount++
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	clone := *order
	return &clone, nil
}

func (r *orderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, order := range r.s.orders {
		if order.OrderNumber == orderNumber {
			clone := *order
			return &clone, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: orderNumber}
}

func (r *orderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.orderItems[orderID], nil
}

func (r *orderRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.s.orders {
		if order.CustomerID == customerID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *orderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.s.orders {
		if order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	now := time.Now()
	order.Status = status
	order.UpdatedAt = now
	switch status {
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
		if trackingNumber != nil {
			order.TrackingNumber = trackingNumber
		}
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	}
	return nil
}

func (r *orderRepo) CancelAndRestock(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	for _, item := range r.s.orderItems[id] {
		if p, ok := r.s.products[item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
	return nil
}

// --- payments ---

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.payments[p.ID] = p
	r.s.paymentSeq = append(r.s.paymentSeq, p.ID)
	return nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "payment", ID: id.String()}
	}
	clone := *p
	return &clone, nil
}

func (r *paymentRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Payment
	for _, id := range r.s.paymentSeq {
		if p := r.s.payments[id]; p != nil && p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *paymentRepo) GetCompletedByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.OrderID == orderID && p.Status == domain.PaymentStatusCompleted && p.Amount > 0 {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *paymentRepo) SumRefunds(ctx context.Context, parentPaymentID uuid.UUID) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum float64
	for _, p := range r.s.payments {
		if p.ParentPaymentID != nil && *p.ParentPaymentID == parentPaymentID && p.Amount < 0 {
			sum += -p.Amount
		}
	}
	return sum, nil
}

func (r *paymentRepo) CompleteAndConfirmOrder(ctx context.Context, paymentID uuid.UUID, transactionID string, gatewayResponse map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return &errors.ErrNotFound{Resource: "payment", ID: paymentID.String()}
	}
	now := time.Now()
	p.Status = domain.PaymentStatusCompleted
	p.TransactionID = &transactionID
	p.GatewayResponse = gatewayResponse
	p.ProcessedAt = &now
	p.UpdatedAt = now
	if order, ok := r.s.orders[p.OrderID]; ok && order.Status == domain.OrderStatusPending {
		order.Status = domain.OrderStatusConfirmed
		order.UpdatedAt = now
	}
	return nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, paymentID uuid.UUID, reason string, gatewayResponse map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return &errors.ErrNotFound{Resource: "payment", ID: paymentID.String()}
	}
	now := time.Now()
	p.Status = domain.PaymentStatusFailed
	p.FailureReason = &reason
	if gatewayResponse != nil {
		p.GatewayResponse = gatewayResponse
	}
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}

func (r *paymentRepo) CreateRefund(ctx context.Context, refund *domain.Payment, markOrderRefunded bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	now := time.Now()
	refund.CreatedAt, refund.UpdatedAt = now, now
	r.s.payments[refund.ID] = refund
	r.s.paymentSeq = append(r.s.paymentSeq, refund.ID)
	if markOrderRefunded {
		if order, ok := r.s.orders[refund.OrderID]; ok {
			order.Status = domain.OrderStatusRefunded
			order.UpdatedAt = now
		}
	}
	return nil
}

// --- discounts ---

type discountRepo struct{ s *Store }

func (r *discountRepo) Create(ctx context.Context, d *domain.Discount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.discounts[d.Code]; exists {
		return &errors.ErrConflict{Message: "code already exists"}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	r.s.discounts[d.Code] = d
	return nil
}

func (r *discountRepo) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.discounts[normalizeCode(code)]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "discount", ID: code}
	}
	clone := *d
	return &clone, nil
}

func (r *discountRepo) List(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Discount, 0, len(r.s.discounts))
	for _, d := range r.s.discounts {
		out = append(out, d)
	}
	return out, nil
}

func (r *discountRepo) Deactivate(ctx context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.discounts[normalizeCode(code)]
	if !ok {
		return &errors.ErrNotFound{Resource: "discount", ID: code}
	}
	d.IsActive = false
	d.UpdatedAt = time.Now()
	return nil
}

func (r *discountRepo) CountCustomerRedemptions(ctx context.Context, code string, customerID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	code = normalizeCode(code)
	count := 0
	for _, order := range r.s.orders {
		if order.CustomerID == customerID &&
			order.DiscountCode != nil && *order.DiscountCode == code &&
			order.Status != domain.OrderStatusCancelled && order.Status != domain.OrderStatusRefunded {
			count++
		}
	}
	return count, nil
}

func normalizeCode(code string) string {
	out := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// --- order events ---

type orderEventRepo struct{ s *Store }

func (r *orderEventRepo) Create(ctx context.Context, event *domain.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	r.s.events[event.OrderID] = append(r.s.events[event.OrderID], event)
	return nil
}

func (r *orderEventRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.events[orderID], nil
}

// --- idempotency keys ---

type idempotencyRepo struct{ s *Store }

func (r *idempotencyRepo) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.idempotency[key], nil
}

func (r *idempotencyRepo) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.idempotency[key.Key]; exists {
		return &errors.ErrConflict{Message: "idempotency key already exists"}
	}
	key.CreatedAt = time.Now()
	r.s.idempotency[key.Key] = key
	return nil
}
