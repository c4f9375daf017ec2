package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenshop/storefront/internal/service"
)

const (
	CustomerIDContextKey   = "customer_id"
	SessionTokenContextKey = "session_token"

	// SessionTokenHeader carries the anonymous cart session token
	SessionTokenHeader = "X-Session-Token"
)

// CustomerAuth authenticates requests with a Bearer JWT and puts the customer
// ID in the context. Requests without a valid token are rejected.
func CustomerAuth(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing or malformed authorization header"})
			c.Abort()
			return
		}

		customerID, err := customers.ParseToken(token)
		if err != nil {
			logger.Warn("Rejected token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CustomerIDContextKey, customerID)
		c.Next()
	}
}

// OptionalCustomerAuth authenticates the Bearer JWT when present but lets
// anonymous requests through, capturing the guest session token instead.
// Cart routes use this: authenticated shoppers get the persistent cart,
// guests the session cart.
func OptionalCustomerAuth(customers *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			customerID, err := customers.ParseToken(token)
			if err != nil {
				// A present but invalid token is an error, not an anonymous request
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
				c.Abort()
				return
			}
			c.Set(CustomerIDContextKey, customerID)
			c.Next()
			return
		}

		if session := strings.TrimSpace(c.GetHeader(SessionTokenHeader)); session != "" {
			c.Set(SessionTokenContextKey, session)
		}
		c.Next()
	}
}

// AdminAuth authenticates staff requests with a Bearer API key verified
// against the configured bcrypt hash.
func AdminAuth(adminKeyHash string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "admin access not configured"})
			c.Abort()
			return
		}

		key, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing or malformed authorization header"})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
			logger.Warn("Rejected admin key", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetCustomerID retrieves the authenticated customer ID from the Gin context
func GetCustomerID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(CustomerIDContextKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

// GetSessionToken retrieves the guest session token from the Gin context
func GetSessionToken(c *gin.Context) (string, bool) {
	val, exists := c.Get(SessionTokenContextKey)
	if !exists {
		return "", false
	}
	token, ok := val.(string)
	return token, ok && token != ""
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
