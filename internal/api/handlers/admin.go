package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// HandleAdminListOrders handles GET /api/admin/orders?status=...
func HandleAdminListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.OrderStatus(c.DefaultQuery("status", string(domain.OrderStatusPending)))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := orders.ListByStatus(c.Request.Context(), status, limit, offset)
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

type updateOrderStatusRequest struct {
	Status         domain.OrderStatus `json:"status" binding:"required"`
	TrackingNumber *string            `json:"tracking_number"`
}

// HandleAdminUpdateOrderStatus handles POST /api/admin/orders/:id/status
func HandleAdminUpdateOrderStatus(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid order id",
				Fields:  map[string]string{"id": "must be a UUID"},
			})
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid status payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		order, err := orders.UpdateStatus(c.Request.Context(), orderID, req.Status, req.TrackingNumber)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(order, nil)})
	}
}

// HandleAdminCreateDiscount handles POST /api/admin/discounts
func HandleAdminCreateDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid discount payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		discount, err := discounts.Create(c.Request.Context(), &req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "discount": toDiscountResponse(discount)})
	}
}

// HandleAdminListDiscounts handles GET /api/admin/discounts
func HandleAdminListDiscounts(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := discounts.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		out := make([]gin.H, 0, len(list))
		for _, d := range list {
			out = append(out, toDiscountResponse(d))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "discounts": out})
	}
}

// HandleAdminDeactivateDiscount handles POST /api/admin/discounts/:code/deactivate
func HandleAdminDeactivateDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		if err := discounts.Deactivate(c.Request.Context(), code); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func toDiscountResponse(d *domain.Discount) gin.H {
	resp := gin.H{
		"id":               d.ID.String(),
		"code":             d.Code,
		"type":             d.Type,
		"value":            d.Value,
		"min_order_amount": d.MinOrderAmount,
		"used_count":       d.UsedCount,
		"is_active":        d.IsActive,
	}
	if d.MaximumDiscount != nil {
		resp["maximum_discount"] = *d.MaximumDiscount
	}
	if d.UsageLimit != nil {
		resp["usage_limit"] = *d.UsageLimit
	}
	if d.PerCustomerLimit != nil {
		resp["per_customer_limit"] = *d.PerCustomerLimit
	}
	if d.StartsAt != nil {
		resp["starts_at"] = d.StartsAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if d.ExpiresAt != nil {
		resp["expires_at"] = d.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
