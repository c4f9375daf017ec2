package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

// respondError maps the typed error taxonomy onto HTTP statuses.
// Unrecognized errors are logged and reported as 500 without leaking detail.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": e.Message,
			"errors":  e.Fields,
		})
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": e.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": e.Error()})
	case *errors.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": e.Error()})
	case *errors.ErrAlreadyPaid:
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": e.Error()})
	case *errors.ErrEmptyCart,
		*errors.ErrBusinessRule,
		*errors.ErrInvalidStateTransition,
		*errors.ErrInsufficientStock,
		*errors.ErrInvalidAmount,
		*errors.ErrNotRefundable:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case *errors.ErrGatewayDeclined:
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"message": e.Error(),
			"code":    e.Code,
		})
	case *errors.ErrGatewayUnavailable:
		logger.Error("Payment gateway unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "payment gateway unavailable, try again later",
		})
	default:
		logger.Error("Unhandled error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}

// OrderResponse is the order as presented to clients
type OrderResponse struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	Status          domain.OrderStatus     `json:"status"`
	Subtotal        float64                `json:"subtotal"`
	Tax             float64                `json:"tax"`
	Shipping        float64                `json:"shipping"`
	Discount        float64                `json:"discount"`
	Total           float64                `json:"total"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
	DiscountCode    *string                `json:"discount_code,omitempty"`
	ShippingAddress map[string]interface{} `json:"shipping_address,omitempty"`
	TrackingNumber  *string                `json:"tracking_number,omitempty"`
	Notes           *string                `json:"notes,omitempty"`
	Items           []OrderItemResponse    `json:"items,omitempty"`
	ShippedAt       *string                `json:"shipped_at,omitempty"`
	DeliveredAt     *string                `json:"delivered_at,omitempty"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

// OrderItemResponse is one snapshot line of an order
type OrderItemResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// PaymentResponse is one payment ledger row as presented to clients
type PaymentResponse struct {
	ID              string               `json:"id"`
	OrderID         string               `json:"order_id"`
	ParentPaymentID *string              `json:"parent_payment_id,omitempty"`
	Amount          float64              `json:"amount"`
	Method          domain.PaymentMethod `json:"method"`
	Status          domain.PaymentStatus `json:"status"`
	TransactionID   *string              `json:"transaction_id,omitempty"`
	FailureReason   *string              `json:"failure_reason,omitempty"`
	RefundReason    *string              `json:"refund_reason,omitempty"`
	ProcessedAt     *string              `json:"processed_at,omitempty"`
	CreatedAt       string               `json:"created_at"`
}

func toOrderResponse(order *domain.Order, items []*domain.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Shipping:        order.Shipping,
		Discount:        order.Discount,
		Total:           order.Total,
		PaymentMethod:   order.PaymentMethod,
		DiscountCode:    order.DiscountCode,
		ShippingAddress: order.ShippingAddress,
		TrackingNumber:  order.TrackingNumber,
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339),
	}
	if order.ShippedAt != nil {
		s := order.ShippedAt.Format(time.RFC3339)
		resp.ShippedAt = &s
	}
	if order.DeliveredAt != nil {
		s := order.DeliveredAt.Format(time.RFC3339)
		resp.DeliveredAt = &s
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return resp
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID.String(),
		OrderID:       p.OrderID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		FailureReason: p.FailureReason,
		RefundReason:  p.RefundReason,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.ParentPaymentID != nil {
		s := p.ParentPaymentID.String()
		resp.ParentPaymentID = &s
	}
	if p.ProcessedAt != nil {
		s := p.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
