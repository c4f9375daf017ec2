package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/api/middleware"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// HandleProcessPayment handles POST /api/payments/process.
// A gateway decline returns 402 together with the failed payment row so the
// client can retry with another card.
func HandleProcessPayment(payments *service.PaymentService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		var req service.ProcessPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid payment payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		payment, err := payments.Process(c.Request.Context(), &customerID, req)
		if err != nil {
			if declined, ok := err.(*errors.ErrGatewayDeclined); ok && payment != nil {
				c.JSON(http.StatusPaymentRequired, gin.H{
					"success": false,
					"message": declined.Error(),
					"code":    declined.Code,
					"payment": toPaymentResponse(payment),
				})
				return
			}
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "payment": toPaymentResponse(payment)})
	}
}

// HandlePaymentStatus handles GET /api/payments/status/:order_id
func HandlePaymentStatus(payments *service.PaymentService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("order_id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid order id",
				Fields:  map[string]string{"order_id": "must be a UUID"},
			})
			return
		}

		status, err := payments.Status(c.Request.Context(), &customerID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		history := make([]PaymentResponse, 0, len(status.History))
		for _, p := range status.History {
			history = append(history, toPaymentResponse(p))
		}
		resp := gin.H{
			"success":      true,
			"order_id":     status.OrderID.String(),
			"order_status": status.OrderStatus,
			"history":      history,
		}
		if status.Latest != nil {
			resp["latest_payment"] = toPaymentResponse(status.Latest)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleRefundPayment handles POST /api/payments/:id/refund (admin)
func HandleRefundPayment(payments *service.PaymentService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid payment id",
				Fields:  map[string]string{"id": "must be a UUID"},
			})
			return
		}

		var req service.RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid refund payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		refund, err := payments.Refund(c.Request.Context(), paymentID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "refund": toPaymentResponse(refund)})
	}
}
