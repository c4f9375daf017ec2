package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles per client, keyed by customer ID when authenticated and
// by client IP otherwise. Intended for the checkout and payment routes where
// retried submissions hammer the gateway and the order-number generator.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	limiters := make(map[string]*clientLimiter)
	var mu sync.Mutex

	// Idle entries are dropped so the map does not grow without bound
	go func() {
		for range time.Tick(5 * time.Minute) {
			mu.Lock()
			for key, cl := range limiters {
				if time.Since(cl.lastSeen) > 10*time.Minute {
					delete(limiters, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		key := c.ClientIP()
		if customerID, ok := GetCustomerID(c); ok {
			key = customerID.String()
		}

		mu.Lock()
		cl, exists := limiters[key]
		if !exists {
			cl = &clientLimiter{limiter: rate.NewLimiter(rps, burst)}
			limiters[key] = cl
		}
		cl.lastSeen = time.Now()
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "too many requests, slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}
