package service_test

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/gateway"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/internal/repository/inmem"
	"github.com/greenshop/storefront/internal/service"
)

var testTotals = domain.TotalsConfig{
	TaxRate:               0.15,
	FreeShippingThreshold: 100,
	ShippingFee:           10,
}

func newFixture() (*repository.Repositories, *inmem.Store, *zap.Logger) {
	repos, store := inmem.NewRepositories()
	return repos, store, newLogger()
}

func newLogger() *zap.Logger { return zap.NewNop() }

func seedProduct(store *inmem.Store, name string, price float64, stock int) *domain.Product {
	p := &domain.Product{
		ID:       uuid.New(),
		Name:     name,
		SKU:      fmt.Sprintf("SKU-%s", uuid.New().String()[:8]),
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	store.SeedProduct(p)
	return p
}

// checkoutFixture wires the full checkout/payment stack over the in-memory
// store with a scripted gateway.
func checkoutFixture(gw gateway.PaymentGateway) (*service.CheckoutService, *service.PaymentService, *service.CartService, *repository.Repositories, *inmem.Store) {
	repos, store, logger := newFixture()
	discounts := service.NewDiscountService(repos, logger)
	payments := service.NewPaymentService(repos, gw, 0, logger)
	carts := service.NewCartService(repos, testTotals, logger)
	checkout := service.NewCheckoutService(repos, discounts, payments, testTotals, logger)
	return checkout, payments, carts, repos, store
}

func addToCart(t interface {
	Fatalf(format string, args ...interface{})
}, carts *service.CartService, customerID, productID uuid.UUID, qty int) {
	if _, err := carts.AddItem(context.Background(), customerID, productID, qty); err != nil {
		t.Fatalf("failed to add product to cart: %v", err)
	}
}

// scriptedGateway returns queued results in order, repeating the last one
type scriptedGateway struct {
	authorizeResults []authorizeOutcome
	authorizeCalls   int
	refundResult     *gateway.RefundResult
	refundErr        error
	refundCalls      int
}

type authorizeOutcome struct {
	result *gateway.AuthorizeResult
	err    error
}

func (g *scriptedGateway) Name() string { return "scripted" }

func (g *scriptedGateway) Authorize(ctx context.Context, req gateway.AuthorizeRequest) (*gateway.AuthorizeResult, error) {
	idx := g.authorizeCalls
	if idx >= len(g.authorizeResults) {
		idx = len(g.authorizeResults) - 1
	}
	g.authorizeCalls++
	out := g.authorizeResults[idx]
	return out.result, out.err
}

func (g *scriptedGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refundResult != nil {
		return g.refundResult, nil
	}
	return &gateway.RefundResult{RefundID: "RF-TEST"}, nil
}

func approveAll() *scriptedGateway {
	return &scriptedGateway{authorizeResults: []authorizeOutcome{
		{result: &gateway.AuthorizeResult{TransactionID: "TXN-OK"}},
	}}
}
