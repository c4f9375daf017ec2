package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/repository"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// Idempotency makes checkout safe to retry. A repeated key with the same
// payload short-circuits to the order created the first time; the same key
// with a different payload is a conflict.
func Idempotency(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to process request"})
			c.Abort()
			return
		}
		// Restore body for the handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		existing, err := repos.IdempotencyKey.GetByKey(c.Request.Context(), idempotencyKey)
		if err != nil {
			// Lookup failure must not block checkout; the key just won't dedupe
			logger.Error("Failed to check idempotency key", zap.Error(err))
			c.Next()
			return
		}

		if existing != nil {
			if existing.RequestHash != requestHash {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"message": "idempotency key reused with a different payload",
				})
				c.Abort()
				return
			}
			c.Set("idempotency_existing_order_id", existing.OrderID.String())
		} else {
			c.Set("idempotency_key", idempotencyKey)
			c.Set("idempotency_request_hash", requestHash)
		}

		c.Next()
	}
}

// GetIdempotencyInfo retrieves idempotency state from the context.
// isExisting true means the key was already used and existingOrderID holds
// the order it produced.
func GetIdempotencyInfo(c *gin.Context) (key string, requestHash string, existingOrderID string, isExisting bool) {
	if existingID, exists := c.Get("idempotency_existing_order_id"); exists {
		if id, ok := existingID.(string); ok {
			return "", "", id, true
		}
	}

	keyVal, _ := c.Get("idempotency_key")
	hashVal, _ := c.Get("idempotency_request_hash")

	key, _ = keyVal.(string)
	requestHash, _ = hashVal.(string)

	return key, requestHash, "", false
}
