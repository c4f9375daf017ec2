package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/api/middleware"
	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// HandleCreateOrder handles POST /api/orders. The Idempotency-Key header is
// honored: a repeated key returns the order created the first time.
func HandleCreateOrder(checkout *service.CheckoutService, orders *service.OrderService, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		if _, _, existingOrderID, isExisting := middleware.GetIdempotencyInfo(c); isExisting {
			orderID, err := uuid.Parse(existingOrderID)
			if err == nil {
				order, items, err := orders.GetOrder(c.Request.Context(), customerID, orderID)
				if err == nil {
					c.JSON(http.StatusOK, gin.H{
						"success":    true,
						"order":      toOrderResponse(order, items),
						"idempotent": true,
					})
					return
				}
			}
			logger.Warn("Idempotency key points at unreadable order", zap.String("order_id", existingOrderID))
		}

		var req service.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid order payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		order, err := checkout.CreateFromCart(c.Request.Context(), customerID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if key, requestHash, _, _ := middleware.GetIdempotencyInfo(c); key != "" {
			if err := repos.IdempotencyKey.Create(c.Request.Context(), &domain.IdempotencyKey{
				Key:         key,
				CustomerID:  customerID,
				OrderID:     order.ID,
				RequestHash: requestHash,
			}); err != nil {
				logger.Warn("Failed to store idempotency key", zap.Error(err))
			}
		}

		items, err := repos.Order.GetItems(c.Request.Context(), order.ID)
		if err != nil {
			logger.Warn("Failed to load order items for response", zap.Error(err))
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "order": toOrderResponse(order, items)})
	}
}

// HandleListOrders handles GET /api/orders
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := orders.ListOrders(c.Request.Context(), customerID, limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		out := make([]OrderResponse, 0, len(list))
		for _, order := range list {
			out = append(out, toOrderResponse(order, nil))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": out})
	}
}

// HandleGetOrder handles GET /api/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid order id",
				Fields:  map[string]string{"id": "must be a UUID"},
			})
			return
		}

		order, items, err := orders.GetOrder(c.Request.Context(), customerID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order, items)})
	}
}

// HandleCancelOrder handles POST /api/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid order id",
				Fields:  map[string]string{"id": "must be a UUID"},
			})
			return
		}

		order, err := orders.Cancel(c.Request.Context(), customerID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order, nil)})
	}
}

// HandleTrackOrder handles GET /api/orders/tracking/:order_number (public).
// Exposes only the delivery-facing fields, not the financial breakdown.
func HandleTrackOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Param("order_number")
		if orderNumber == "" {
			respondError(c, logger, &errors.ErrValidation{
				Message: "order number required",
				Fields:  map[string]string{"order_number": "required"},
			})
			return
		}

		order, err := orders.Track(c.Request.Context(), orderNumber)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		tracking := gin.H{
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"created_at":   order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if order.TrackingNumber != nil {
			tracking["tracking_number"] = *order.TrackingNumber
		}
		if order.ShippedAt != nil {
			tracking["shipped_at"] = order.ShippedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		if order.DeliveredAt != nil {
			tracking["delivered_at"] = order.DeliveredAt.Format("2006-01-02T15:04:05Z07:00")
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "tracking": tracking})
	}
}
