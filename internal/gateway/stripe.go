package gateway

import (
	"context"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"

	"github.com/greenshop/storefront/pkg/errors"
)

// StripeGateway charges cards through Stripe PaymentIntents. Card input must
// be tokenized client-side (CardDetails.Token); raw numbers are never sent.
type StripeGateway struct {
	currency string
}

// NewStripeGateway configures the global stripe client and returns the gateway
func NewStripeGateway(secretKey, currency string) *StripeGateway {
	stripe.Key = secretKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{currency: currency}
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.Card.Token == "" {
		return nil, &errors.ErrGatewayDeclined{Code: "invalid_request", Message: "missing payment method token"}
	}

	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toCents(req.Amount)),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(req.Card.Token),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String("order " + req.OrderNumber),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	return &AuthorizeResult{
		TransactionID: pi.ID,
		Response: map[string]interface{}{
			"gateway":        "stripe",
			"payment_intent": pi.ID,
			"status":         string(pi.Status),
			"amount":         pi.Amount,
			"currency":       string(pi.Currency),
		},
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(toCents(req.Amount)),
	}
	params.Context = ctx

	rf, err := refund.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	return &RefundResult{
		RefundID: rf.ID,
		Response: map[string]interface{}{
			"gateway":   "stripe",
			"refund_id": rf.ID,
			"status":    string(rf.Status),
			"amount":    rf.Amount,
		},
	}, nil
}

// mapStripeError sorts provider errors into declines (terminal) and
// transport failures (transient)
func mapStripeError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return &errors.ErrGatewayDeclined{Code: string(stripeErr.Code), Message: stripeErr.Msg}
		}
	}
	return &errors.ErrGatewayUnavailable{Cause: err}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
