package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/api/middleware"
	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// HandleRegister handles POST /api/auth/register
func HandleRegister(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid registration payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		resp, err := customers.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"token":    resp.Token,
			"customer": toCustomerResponse(resp.Customer),
		})
	}
}

// HandleLogin handles POST /api/auth/login
func HandleLogin(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid login payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		resp, err := customers.Login(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"token":    resp.Token,
			"customer": toCustomerResponse(resp.Customer),
		})
	}
}

// HandleGetProfile handles GET /api/auth/me
func HandleGetProfile(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		customer, err := customers.GetProfile(c.Request.Context(), customerID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "customer": toCustomerResponse(customer)})
	}
}

type addAddressRequest struct {
	Label      *string `json:"label"`
	Street     string  `json:"street" binding:"required"`
	City       string  `json:"city" binding:"required"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    string  `json:"country" binding:"required"`
	IsDefault  bool    `json:"is_default"`
}

// HandleAddAddress handles POST /api/auth/addresses
func HandleAddAddress(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		var req addAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid address payload",
				Fields:  map[string]string{"body": err.Error()},
			})
			return
		}

		address, err := customers.AddAddress(c.Request.Context(), customerID, &domain.Address{
			Label:      req.Label,
			Street:     req.Street,
			City:       req.City,
			State:      req.State,
			PostalCode: req.PostalCode,
			Country:    req.Country,
			IsDefault:  req.IsDefault,
		})
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "address": toAddressResponse(address)})
	}
}

// HandleListAddresses handles GET /api/auth/addresses
func HandleListAddresses(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, ok := middleware.GetCustomerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}

		addresses, err := customers.ListAddresses(c.Request.Context(), customerID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		out := make([]gin.H, 0, len(addresses))
		for _, a := range addresses {
			out = append(out, toAddressResponse(a))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "addresses": out})
	}
}

func toCustomerResponse(customer *domain.Customer) gin.H {
	resp := gin.H{
		"id":         customer.ID.String(),
		"name":       customer.Name,
		"phone":      customer.Phone,
		"created_at": customer.CreatedAt.Format(time.RFC3339),
	}
	if customer.Email != nil {
		resp["email"] = *customer.Email
	}
	return resp
}

func toAddressResponse(address *domain.Address) gin.H {
	resp := gin.H{
		"id":         address.ID.String(),
		"street":     address.Street,
		"city":       address.City,
		"country":    address.Country,
		"is_default": address.IsDefault,
	}
	if address.Label != nil {
		resp["label"] = *address.Label
	}
	if address.State != nil {
		resp["state"] = *address.State
	}
	if address.PostalCode != nil {
		resp["postal_code"] = *address.PostalCode
	}
	return resp
}
