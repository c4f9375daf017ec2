package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/gateway"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// PaymentService owns the payment ledger. Payment rows are append-only:
// a failed attempt is retried with a new row, a refund is a negative-amount
// row, and the original is never mutated by either.
type PaymentService struct {
	repos   *repository.Repositories
	gateway gateway.PaymentGateway
	timeout time.Duration
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, gw gateway.PaymentGateway, timeout time.Duration, logger *zap.Logger) *PaymentService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PaymentService{
		repos:   repos,
		gateway: gw,
		timeout: timeout,
		logger:  logger,
	}
}

// Process collects funds for an order. Card payments go through the gateway
// synchronously; COD and bank transfer create a pending payment awaiting
// manual confirmation and advance the order to confirmed immediately.
// customerID nil means an admin/internal caller (no ownership check).
//
// On a gateway decline the failed payment row is returned together with the
// decline error; the order stays pending and can be retried with a new payment.
func (s *PaymentService) Process(ctx context.Context, customerID *uuid.UUID, req ProcessPaymentRequest) (*domain.Payment, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown payment method",
			Fields:  map[string]string{"payment_method": "must be card, cash_on_delivery or bank_transfer"},
		}
	}

	order, err := s.repos.Order.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if customerID != nil && order.CustomerID != *customerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: req.OrderID.String()}
	}

	completed, err := s.repos.Payment.GetCompletedByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if completed != nil {
		return nil, &errors.ErrAlreadyPaid{OrderID: order.ID.String()}
	}

	if order.Status != domain.OrderStatusPending {
		return nil, &errors.ErrBusinessRule{Message: "order is not awaiting payment"}
	}

	if req.PaymentMethod.RequiresGateway() {
		return s.processCard(ctx, order, req)
	}
	return s.processManual(ctx, order, req.PaymentMethod)
}

func (s *PaymentService) processCard(ctx context.Context, order *domain.Order, req ProcessPaymentRequest) (*domain.Payment, error) {
	if req.Card == nil {
		return nil, &errors.ErrValidation{
			Message: "card details are required",
			Fields:  map[string]string{"card_details": "required for card payments"},
		}
	}

	gatewayName := s.gateway.Name()
	payment := &domain.Payment{
		OrderID: order.ID,
		Amount:  order.Total,
		Method:  domain.PaymentMethodCard,
		Status:  domain.PaymentStatusPending,
		Gateway: &gatewayName,
	}
	if err := s.repos.Payment.Create(ctx, payment); err != nil {
		return nil, err
	}

	result, err := s.authorize(ctx, order, *req.Card)
	if err != nil {
		reason := err.Error()
		if markErr := s.repos.Payment.MarkFailed(ctx, payment.ID, reason, nil); markErr != nil {
			s.logger.Error("Failed to mark payment failed", zap.Error(markErr))
		}
		s.recordEvent(ctx, order.ID, "payment_failed", map[string]interface{}{
			"payment_id": payment.ID.String(),
			"reason":     reason,
		})

		failed, getErr := s.repos.Payment.GetByID(ctx, payment.ID)
		if getErr != nil {
			failed = payment
		}
		return failed, err
	}

	if err := s.repos.Payment.CompleteAndConfirmOrder(ctx, payment.ID, result.TransactionID, result.Response); err != nil {
		return nil, err
	}

	s.logger.Info("Payment completed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("transaction_id", result.TransactionID),
	)
	s.recordEvent(ctx, order.ID, "payment_completed", map[string]interface{}{
		"payment_id":     payment.ID.String(),
		"transaction_id": result.TransactionID,
		"amount":         order.Total,
	})

	return s.repos.Payment.GetByID(ctx, payment.ID)
}

func (s *PaymentService) processManual(ctx context.Context, order *domain.Order, method domain.PaymentMethod) (*domain.Payment, error) {
	prefix := "BT-"
	if method == domain.PaymentMethodCashOnDelivery {
		prefix = "COD-"
	}
	transactionID := prefix + strings.ToUpper(uuid.New().String()[:8])

	payment := &domain.Payment{
		OrderID:       order.ID,
		Amount:        order.Total,
		Method:        method,
		Status:        domain.PaymentStatusPending,
		TransactionID: &transactionID,
	}
	if err := s.repos.Payment.Create(ctx, payment); err != nil {
		return nil, err
	}

	// Pending manual collection; the order itself is confirmed right away
	if !order.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: domain.OrderStatusConfirmed}
	}
	if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed, nil); err != nil {
		return nil, err
	}

	s.logger.Info("Manual payment initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("method", string(method)),
		zap.String("transaction_id", transactionID),
	)
	s.recordEvent(ctx, order.ID, "payment_initiated", map[string]interface{}{
		"payment_id":     payment.ID.String(),
		"method":         string(method),
		"transaction_id": transactionID,
	})

	return payment, nil
}

// authorize calls the gateway with a bounded timeout and retries exactly once
// on transient errors. Declines are terminal and never retried.
func (s *PaymentService) authorize(ctx context.Context, order *domain.Order, card gateway.CardDetails) (*gateway.AuthorizeResult, error) {
	req := gateway.AuthorizeRequest{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Currency:    "usd",
		Card:        card,
	}

	result, err := s.authorizeOnce(ctx, req)
	if err == nil {
		return result, nil
	}
	if _, transient := err.(*errors.ErrGatewayUnavailable); !transient {
		return nil, err
	}

	s.logger.Warn("Gateway unavailable, retrying once",
		zap.String("order_number", order.OrderNumber),
		zap.Error(err),
	)
	return s.authorizeOnce(ctx, req)
}

func (s *PaymentService) authorizeOnce(ctx context.Context, req gateway.AuthorizeRequest) (*gateway.AuthorizeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gateway.Authorize(callCtx, req)
}

// MarkCompleted confirms a pending payment (gateway callback or staff
// confirming a COD/bank-transfer collection) and advances the order.
func (s *PaymentService) MarkCompleted(ctx context.Context, paymentID uuid.UUID, transactionID string, gatewayResponse map[string]interface{}) (*domain.Payment, error) {
	payment, err := s.repos.Payment.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil, &errors.ErrBusinessRule{Message: "payment is not pending"}
	}

	if transactionID == "" && payment.TransactionID != nil {
		transactionID = *payment.TransactionID
	}

	if err := s.repos.Payment.CompleteAndConfirmOrder(ctx, paymentID, transactionID, gatewayResponse); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, payment.OrderID, "payment_completed", map[string]interface{}{
		"payment_id":     paymentID.String(),
		"transaction_id": transactionID,
	})

	return s.repos.Payment.GetByID(ctx, paymentID)
}

// MarkFailed fails a pending payment. The order stays pending; a new payment
// row can be attempted.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID uuid.UUID, reason string, gatewayResponse map[string]interface{}) (*domain.Payment, error) {
	payment, err := s.repos.Payment.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil, &errors.ErrBusinessRule{Message: "payment is not pending"}
	}

	if err := s.repos.Payment.MarkFailed(ctx, paymentID, reason, gatewayResponse); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, payment.OrderID, "payment_failed", map[string]interface{}{
		"payment_id": paymentID.String(),
		"reason":     reason,
	})

	return s.repos.Payment.GetByID(ctx, paymentID)
}

// Refund returns funds against a completed payment as a negative-amount
// ledger row. A nil amount refunds the remaining balance. When the refunded
// total covers the full order total the order transitions to refunded.
func (s *PaymentService) Refund(ctx context.Context, paymentID uuid.UUID, req RefundRequest) (*domain.Payment, error) {
	payment, err := s.repos.Payment.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusCompleted || payment.Amount <= 0 {
		return nil, &errors.ErrNotRefundable{PaymentID: paymentID.String()}
	}

	refunded, err := s.repos.Payment.SumRefunds(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	remaining := domain.Round2(payment.Amount - refunded)

	amount := remaining
	if req.Amount != nil {
		amount = domain.Round2(*req.Amount)
	}
	if amount <= 0 {
		return nil, &errors.ErrInvalidAmount{Message: "refund amount must be positive"}
	}
	if amount > remaining {
		return nil, &errors.ErrInvalidAmount{Message: "refund amount exceeds remaining balance"}
	}

	order, err := s.repos.Order.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	refund := &domain.Payment{
		OrderID:         payment.OrderID,
		ParentPaymentID: &payment.ID,
		Amount:          -amount,
		Method:          payment.Method,
		Status:          domain.PaymentStatusRefunded,
		Gateway:         payment.Gateway,
	}
	if req.Reason != "" {
		refund.RefundReason = &req.Reason
	}

	// Card refunds go back through the gateway; COD/bank-transfer refunds are
	// settled manually and only recorded here
	if payment.Method == domain.PaymentMethodCard && payment.TransactionID != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		result, err := s.gateway.Refund(callCtx, gateway.RefundRequest{
			TransactionID: *payment.TransactionID,
			Amount:        amount,
			Reason:        req.Reason,
		})
		cancel()
		if err != nil {
			return nil, err
		}
		refund.TransactionID = &result.RefundID
		refund.GatewayResponse = result.Response
	}

	now := time.Now()
	refund.ProcessedAt = &now

	fullyRefunded := domain.Round2(refunded+amount) >= order.Total
	if err := s.repos.Payment.CreateRefund(ctx, refund, fullyRefunded); err != nil {
		return nil, err
	}

	s.logger.Info("Refund recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Float64("amount", amount),
		zap.Bool("full_refund", fullyRefunded),
	)
	s.recordEvent(ctx, order.ID, "payment_refunded", map[string]interface{}{
		"payment_id":  payment.ID.String(),
		"refund_id":   refund.ID.String(),
		"amount":      amount,
		"full_refund": fullyRefunded,
	})

	return refund, nil
}

// Status reports the order's payment history. customerID nil means an
// admin/internal caller.
func (s *PaymentService) Status(ctx context.Context, customerID *uuid.UUID, orderID uuid.UUID) (*PaymentStatusView, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if customerID != nil && order.CustomerID != *customerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID.String()}
	}

	payments, err := s.repos.Payment.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &PaymentStatusView{
		OrderID:     orderID,
		OrderStatus: order.Status,
		History:     payments,
	}
	if len(payments) > 0 {
		view.Latest = payments[len(payments)-1]
	}
	return view, nil
}

func (s *PaymentService) recordEvent(ctx context.Context, orderID uuid.UUID, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	if err := s.repos.OrderEvent.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record order event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
