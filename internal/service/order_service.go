package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// OrderService reads orders and drives their status lifecycle. Every status
// change goes through the transition table; there is no generic setter.
type OrderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, logger *zap.Logger) *OrderService {
	return &OrderService{
		repos:  repos,
		logger: logger,
	}
}

// GetOrder returns one of the customer's orders with its items
func (s *OrderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, []*domain.OrderItem, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.CustomerID != customerID {
		// Never reveal other customers' orders
		return nil, nil, &errors.ErrNotFound{Resource: "order", ID: orderID.String()}
	}

	items, err := s.repos.Order.GetItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListOrders returns the customer's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repos.Order.ListByCustomerID(ctx, customerID, limit, offset)
}

// ListByStatus returns orders in a given status, for the admin panel
func (s *OrderService) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	if !status.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown order status",
			Fields:  map[string]string{"status": "invalid"},
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repos.Order.ListByStatus(ctx, status, limit, offset)
}

// Cancel cancels the customer's order and restores product stock.
// Allowed any time before shipment.
func (s *OrderService) Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID.String()}
	}

	if !order.Status.CanBeCancelled() {
		return nil, &errors.ErrBusinessRule{Message: "order can no longer be cancelled"}
	}

	if err := s.repos.Order.CancelAndRestock(ctx, orderID); err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("from_status", string(order.Status)),
	)
	s.recordStatusChange(ctx, orderID, order.Status, domain.OrderStatusCancelled, nil)

	return s.repos.Order.GetByID(ctx, orderID)
}

// Track is the public tracking lookup by order number
func (s *OrderService) Track(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.repos.Order.GetByOrderNumber(ctx, orderNumber)
}

// UpdateStatus is the admin-driven transition. Invalid transitions are
// rejected with a typed error; shipping may carry a tracking number.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus domain.OrderStatus, trackingNumber *string) (*domain.Order, error) {
	if !newStatus.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown order status",
			Fields:  map[string]string{"status": "invalid"},
		}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		// Idempotent: setting the current status again is a no-op success
		return order, nil
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, &errors.ErrInvalidStateTransition{From: order.Status, To: newStatus}
	}

	if newStatus == domain.OrderStatusCancelled {
		if err := s.repos.Order.CancelAndRestock(ctx, orderID); err != nil {
			return nil, err
		}
	} else {
		if err := s.repos.Order.UpdateStatus(ctx, orderID, newStatus, trackingNumber); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(newStatus)),
	)
	s.recordStatusChange(ctx, orderID, order.Status, newStatus, trackingNumber)

	return s.repos.Order.GetByID(ctx, orderID)
}

func (s *OrderService) recordStatusChange(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, trackingNumber *string) {
	data := map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	}
	if trackingNumber != nil {
		data["tracking_number"] = *trackingNumber
	}
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: "status_change",
		EventData: data,
	}
	if err := s.repos.OrderEvent.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record status_change event", zap.Error(err))
	}
}
