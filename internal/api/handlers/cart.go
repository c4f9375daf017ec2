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

type addToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	// ItemID identifies the line for customer carts; guest carts are keyed by
	// product, so ProductID is used there instead.
	ItemID    *uuid.UUID `json:"item_id"`
	ProductID *uuid.UUID `json:"product_id"`
	Quantity  int        `json:"quantity"`
}

type removeCartItemRequest struct {
	ItemID    *uuid.UUID `json:"item_id"`
	ProductID *uuid.UUID `json:"product_id"`
}

// HandleGetCart handles GET /api/cart for both customers and guests
func HandleGetCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if customerID, ok := middleware.GetCustomerID(c); ok {
			cart, err := carts.GetCart(c.Request.Context(), customerID)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
			return
		}

		session, ok := middleware.GetSessionToken(c)
		if !ok {
			respondSessionRequired(c)
			return
		}
		view, err := carts.GetGuestCart(c.Request.Context(), session)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
	}
}

// HandleAddToCart handles POST /api/cart/add
func HandleAddToCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid cart payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		if customerID, ok := middleware.GetCustomerID(c); ok {
			cart, err := carts.AddItem(c.Request.Context(), customerID, req.ProductID, req.Quantity)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
			return
		}

		session, ok := middleware.GetSessionToken(c)
		if !ok {
			respondSessionRequired(c)
			return
		}
		view, err := carts.AddGuestItem(c.Request.Context(), session, req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
	}
}

// HandleUpdateCartItem handles POST /api/cart/update
func HandleUpdateCartItem(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid cart payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		if customerID, ok := middleware.GetCustomerID(c); ok {
			if req.ItemID == nil {
				respondError(c, logger, &errors.ErrValidation{
					Message: "item_id is required",
					Fields:  map[string]string{"item_id": "required"},
				})
				return
			}
			cart, err := carts.UpdateItem(c.Request.Context(), customerID, *req.ItemID, req.Quantity)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
			return
		}

		session, ok := middleware.GetSessionToken(c)
		if !ok {
			respondSessionRequired(c)
			return
		}
		if req.ProductID == nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "product_id is required",
				Fields:  map[string]string{"product_id": "required"},
			})
			return
		}
		view, err := carts.UpdateGuestItem(c.Request.Context(), session, *req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
	}
}

// HandleRemoveCartItem handles POST /api/cart/remove
func HandleRemoveCartItem(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req removeCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid cart payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		if customerID, ok := middleware.GetCustomerID(c); ok {
			if req.ItemID == nil {
				respondError(c, logger, &errors.ErrValidation{
					Message: "item_id is required",
					Fields:  map[string]string{"item_id": "required"},
				})
				return
			}
			cart, err := carts.RemoveItem(c.Request.Context(), customerID, *req.ItemID)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
			return
		}

		session, ok := middleware.GetSessionToken(c)
		if !ok {
			respondSessionRequired(c)
			return
		}
		if req.ProductID == nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "product_id is required",
				Fields:  map[string]string{"product_id": "required"},
			})
			return
		}
		view, err := carts.RemoveGuestItem(c.Request.Context(), session, *req.ProductID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
	}
}

// HandleClearCart handles POST /api/cart/clear
func HandleClearCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if customerID, ok := middleware.GetCustomerID(c); ok {
			cart, err := carts.Clear(c.Request.Context(), customerID)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
			return
		}

		session, ok := middleware.GetSessionToken(c)
		if !ok {
			respondSessionRequired(c)
			return
		}
		view, err := carts.ClearGuestCart(c.Request.Context(), session)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": view})
	}
}

type mergeCartRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// HandleMergeCart handles POST /api/cart/merge. Requires authentication: the
// guest session cart folds into the customer's persistent cart.
func HandleMergeCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		var req mergeCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid merge payload",
				Fields:  map[string]string{"session_token": "required"},
			})
			return
		}

		cart, err := carts.MergeGuestCart(c.Request.Context(), req.SessionToken, customerID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "cart": carts.View(cart)})
	}
}

func respondSessionRequired(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "authenticate or provide a " + middleware.SessionTokenHeader + " header",
	})
}
