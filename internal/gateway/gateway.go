// Package gateway abstracts the external payment provider behind a fixed
// interface so the ledger logic stays gateway-agnostic and testable without
// network calls.
package gateway

import "context"

// CardDetails is the card input for an authorization. Token, when set, is a
// provider-side tokenized payment method and takes precedence over the raw
// number (required for the stripe implementation).
type CardDetails struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVC        string `json:"cvc"`
	HolderName string `json:"holder_name"`
	Token      string `json:"token,omitempty"`
}

// AuthorizeRequest asks the provider to authorize and capture a charge
type AuthorizeRequest struct {
	OrderNumber string
	Amount      float64
	Currency    string
	Card        CardDetails
}

// AuthorizeResult is a successful charge
type AuthorizeResult struct {
	TransactionID string
	Response      map[string]interface{}
}

// RefundRequest asks the provider to return funds for a prior charge
type RefundRequest struct {
	TransactionID string
	Amount        float64
	Reason        string
}

// RefundResult is a successful refund
type RefundResult struct {
	RefundID string
	Response map[string]interface{}
}

// PaymentGateway is the provider contract. Implementations return
// *errors.ErrGatewayDeclined for refusals (terminal, never retried) and
// *errors.ErrGatewayUnavailable for transport/timeout failures (the caller
// may retry once).
type PaymentGateway interface {
	Name() string
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
