package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// CartService owns cart mutations for both authenticated customers (Postgres
// carts) and anonymous sessions (Redis guest carts). Totals are recomputed
// from items after every mutation; the cached columns never drift.
type CartService struct {
	repos  *repository.Repositories
	totals domain.TotalsConfig
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(repos *repository.Repositories, totals domain.TotalsConfig, logger *zap.Logger) *CartService {
	return &CartService{
		repos:  repos,
		totals: totals,
		logger: logger,
	}
}

// GetCart returns the customer's cart with fresh totals
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	cart.RecomputeTotals(s.totals)
	return cart, nil
}

// AddItem adds quantity of a product to the cart, accumulating onto an
// existing line rather than duplicating it. The current catalog price is
// captured on the line.
func (s *CartService) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, &errors.ErrValidation{
			Message: "quantity must be at least 1",
			Fields:  map[string]string{"quantity": "must be at least 1"},
		}
	}

	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}

	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	existing := 0
	for _, item := range cart.Items {
		if item.ProductID == productID {
			existing = item.Quantity
			break
		}
	}
	if existing+quantity > product.Stock {
		return nil, &errors.ErrInsufficientStock{
			ProductID: productID.String(),
			Requested: existing + quantity,
			Available: product.Stock,
		}
	}

	item := &domain.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}
	if err := s.repos.Cart.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Cart item added",
		zap.String("customer_id", customerID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
	)

	return s.refresh(ctx, customerID)
}

// UpdateItem sets the quantity of a cart line. Quantity <= 0 removes the line.
func (s *CartService) UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repos.Cart.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		// Never reveal other customers' cart lines
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}

	if quantity <= 0 {
		if err := s.repos.Cart.DeleteItem(ctx, itemID); err != nil {
			return nil, err
		}
		return s.refresh(ctx, customerID)
	}

	product, err := s.repos.Product.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &errors.ErrInsufficientStock{
			ProductID: item.ProductID.String(),
			Requested: quantity,
			Available: product.Stock,
		}
	}

	if err := s.repos.Cart.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}

	return s.refresh(ctx, customerID)
}

// RemoveItem deletes a cart line. Idempotent: removing an already-removed
// line is a no-op success.
func (s *CartService) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repos.Cart.GetItem(ctx, itemID)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); ok {
			return s.refresh(ctx, customerID)
		}
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}

	if err := s.repos.Cart.DeleteItem(ctx, itemID); err != nil {
		return nil, err
	}

	return s.refresh(ctx, customerID)
}

// Clear empties the cart. Idempotent: clearing an already-empty cart is a
// no-op success.
func (s *CartService) Clear(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Cart.ClearItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.refresh(ctx, customerID)
}

// refresh reloads the cart, recomputes its totals and persists them
func (s *CartService) refresh(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Cart.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	cart.RecomputeTotals(s.totals)
	if err := s.repos.Cart.UpdateTotals(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// View projects a customer cart for the API
func (s *CartService) View(cart *domain.Cart) *CartView {
	view := &CartView{
		Items:    make([]CartItemView, 0, len(cart.Items)),
		Subtotal: cart.Subtotal,
		Tax:      cart.Tax,
		Shipping: cart.Shipping,
		Total:    cart.Total,
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: domain.Round2(item.UnitPrice * float64(item.Quantity)),
		})
	}
	return view
}

// --- Guest carts (anonymous sessions, Redis-backed) ---

// GetGuestCart returns the session's cart view, empty when none exists
func (s *CartService) GetGuestCart(ctx context.Context, sessionToken string) (*CartView, error) {
	cart, err := s.repos.GuestCart.Get(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &domain.GuestCart{SessionToken: sessionToken}
	}
	return s.guestView(cart), nil
}

// AddGuestItem adds quantity of a product to the session cart
func (s *CartService) AddGuestItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, &errors.ErrValidation{
			Message: "quantity must be at least 1",
			Fields:  map[string]string{"quantity": "must be at least 1"},
		}
	}

	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}

	cart, err := s.repos.GuestCart.Get(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &domain.GuestCart{SessionToken: sessionToken}
	}

	found := false
	for _, item := range cart.Items {
		if item.ProductID == productID {
			if item.Quantity+quantity > product.Stock {
				return nil, &errors.ErrInsufficientStock{
					ProductID: productID.String(),
					Requested: item.Quantity + quantity,
					Available: product.Stock,
				}
			}
			item.Quantity += quantity
			item.UnitPrice = product.Price
			found = true
			break
		}
	}
	if !found {
		if quantity > product.Stock {
			return nil, &errors.ErrInsufficientStock{
				ProductID: productID.String(),
				Requested: quantity,
				Available: product.Stock,
			}
		}
		cart.Items = append(cart.Items, &domain.GuestCartItem{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		})
	}

	if err := s.repos.GuestCart.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.guestView(cart), nil
}

// UpdateGuestItem sets the quantity of a session cart line (keyed by product).
// Quantity <= 0 removes the line.
func (s *CartService) UpdateGuestItem(ctx context.Context, sessionToken string, productID uuid.UUID, quantity int) (*CartView, error) {
	cart, err := s.repos.GuestCart.Get(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: productID.String()}
	}

	idx := -1
	for i, item := range cart.Items {
		if item.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: productID.String()}
	}

	if quantity <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		product, err := s.repos.Product.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > product.Stock {
			return nil, &errors.ErrInsufficientStock{
				ProductID: productID.String(),
				Requested: quantity,
				Available: product.Stock,
			}
		}
		cart.Items[idx].Quantity = quantity
	}

	if err := s.repos.GuestCart.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.guestView(cart), nil
}

// RemoveGuestItem deletes a session cart line. Idempotent.
func (s *CartService) RemoveGuestItem(ctx context.Context, sessionToken string, productID uuid.UUID) (*CartView, error) {
	cart, err := s.repos.GuestCart.Get(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return s.guestView(&domain.GuestCart{SessionToken: sessionToken}), nil
	}

	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}

	if err := s.repos.GuestCart.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.guestView(cart), nil
}

// ClearGuestCart drops the session cart. Idempotent.
func (s *CartService) ClearGuestCart(ctx context.Context, sessionToken string) (*CartView, error) {
	if err := s.repos.GuestCart.Delete(ctx, sessionToken); err != nil {
		return nil, err
	}
	return s.guestView(&domain.GuestCart{SessionToken: sessionToken}), nil
}

// MergeGuestCart folds a session cart into the customer's persistent cart,
// called on login. Quantities accumulate onto existing lines; the session cart
// is deleted afterwards. Lines whose product has gone inactive or out of
// stock are skipped rather than failing the merge.
func (s *CartService) MergeGuestCart(ctx context.Context, sessionToken string, customerID uuid.UUID) (*domain.Cart, error) {
	guest, err := s.repos.GuestCart.Get(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if guest != nil {
		for _, item := range guest.Items {
			if _, err := s.AddItem(ctx, customerID, item.ProductID, item.Quantity); err != nil {
				switch err.(type) {
				case *errors.ErrNotFound, *errors.ErrInsufficientStock:
					s.logger.Warn("Skipping unmergeable guest cart line",
						zap.String("product_id", item.ProductID.String()),
						zap.Error(err),
					)
					continue
				}
				return nil, err
			}
		}
		if err := s.repos.GuestCart.Delete(ctx, sessionToken); err != nil {
			return nil, err
		}
	}

	return s.GetCart(ctx, customerID)
}

func (s *CartService) guestView(cart *domain.GuestCart) *CartView {
	lines := make([]domain.CartLine, 0, len(cart.Items))
	view := &CartView{Items: make([]CartItemView, 0, len(cart.Items))}
	for _, item := range cart.Items {
		lines = append(lines, domain.CartLine{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
		view.Items = append(view.Items, CartItemView{
			ID:        item.ProductID, // guest lines have no row identity
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: domain.Round2(item.UnitPrice * float64(item.Quantity)),
		})
	}
	view.Subtotal, view.Tax, view.Shipping, view.Total = domain.ComputeTotals(lines, s.totals)
	return view
}
