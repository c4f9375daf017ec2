package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenshop/storefront/pkg/errors"
)

// Card numbers with fixed outcomes, for deterministic testing. Any other
// number succeeds with probability successRate.
const (
	// MockCardDeclined always produces a decline
	MockCardDeclined = "4000000000000002"
	// MockCardTransientError always produces a transient gateway error
	MockCardTransientError = "4000000000000119"
)

// MockGateway simulates a payment provider: a short latency, a ~90% success
// rate, and fixed test card numbers for deterministic outcomes.
type MockGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	latency     time.Duration
	successRate float64
}

// NewMockGateway creates a mock gateway with the given seed. The default
// success rate is 0.9 with 50ms simulated latency.
func NewMockGateway(seed int64) *MockGateway {
	return &MockGateway{
		rng:         rand.New(rand.NewSource(seed)),
		latency:     50 * time.Millisecond,
		successRate: 0.9,
	}
}

// WithLatency overrides the simulated latency (0 disables it, for tests)
func (g *MockGateway) WithLatency(d time.Duration) *MockGateway {
	g.latency = d
	return g
}

// WithSuccessRate overrides the random success rate
func (g *MockGateway) WithSuccessRate(rate float64) *MockGateway {
	g.successRate = rate
	return g
}

func (g *MockGateway) Name() string {
	return "mock"
}

func (g *MockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, &errors.ErrGatewayUnavailable{Cause: err}
	}

	number := strings.ReplaceAll(req.Card.Number, " ", "")
	switch number {
	case MockCardDeclined:
		return nil, &errors.ErrGatewayDeclined{Code: "card_declined", Message: "card was declined"}
	case MockCardTransientError:
		return nil, &errors.ErrGatewayUnavailable{Cause: fmt.Errorf("simulated processing error")}
	}

	if !g.roll() {
		return nil, &errors.ErrGatewayDeclined{Code: "card_declined", Message: "card was declined"}
	}

	txnID := "MOCK-" + uuid.New().String()
	return &AuthorizeResult{
		TransactionID: txnID,
		Response: map[string]interface{}{
			"gateway":        "mock",
			"transaction_id": txnID,
			"order_number":   req.OrderNumber,
			"amount":         req.Amount,
			"currency":       req.Currency,
			"outcome":        "approved",
		},
	}, nil
}

func (g *MockGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, &errors.ErrGatewayUnavailable{Cause: err}
	}

	refundID := "MOCK-RF-" + uuid.New().String()
	return &RefundResult{
		RefundID: refundID,
		Response: map[string]interface{}{
			"gateway":        "mock",
			"refund_id":      refundID,
			"transaction_id": req.TransactionID,
			"amount":         req.Amount,
			"reason":         req.Reason,
		},
	}, nil
}

func (g *MockGateway) simulateLatency(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *MockGateway) roll() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.successRate
}
