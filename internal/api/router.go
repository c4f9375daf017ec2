package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/greenshop/storefront/internal/api/handlers"
	"github.com/greenshop/storefront/internal/api/middleware"
	"github.com/greenshop/storefront/internal/config"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/internal/service"
)

// Services aggregates the service layer for route wiring
type Services struct {
	Customers *service.CustomerService
	Catalog   *service.CatalogService
	Carts     *service.CartService
	Checkout  *service.CheckoutService
	Orders    *service.OrderService
	Payments  *service.PaymentService
	Discounts *service.DiscountService
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, svcs *Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Public: registration, login, catalog, order tracking
		api.POST("/auth/register", handlers.HandleRegister(svcs.Customers, logger))
		api.POST("/auth/login", handlers.HandleLogin(svcs.Customers, logger))

		api.GET("/catalog/products", handlers.HandleListProducts(svcs.Catalog, logger))
		api.GET("/catalog/products/:id", handlers.HandleGetProduct(svcs.Catalog, logger))
		api.GET("/catalog/categories", handlers.HandleListCategories(svcs.Catalog, logger))

		api.GET("/orders/tracking/:order_number", handlers.HandleTrackOrder(svcs.Orders, logger))

		// Profile and address book (authenticated)
		account := api.Group("/auth")
		account.Use(middleware.CustomerAuth(svcs.Customers, logger))
		{
			account.GET("/me", handlers.HandleGetProfile(svcs.Customers, logger))
			account.POST("/addresses", handlers.HandleAddAddress(svcs.Customers, logger))
			account.GET("/addresses", handlers.HandleListAddresses(svcs.Customers, logger))
		}

		// Cart: works for authenticated customers and X-Session-Token guests
		cart := api.Group("/cart")
		cart.Use(middleware.OptionalCustomerAuth(svcs.Customers, logger))
		{
			cart.GET("", handlers.HandleGetCart(svcs.Carts, logger))
			cart.POST("/add", handlers.HandleAddToCart(svcs.Carts, logger))
			cart.POST("/update", handlers.HandleUpdateCartItem(svcs.Carts, logger))
			cart.POST("/remove", handlers.HandleRemoveCartItem(svcs.Carts, logger))
			cart.POST("/clear", handlers.HandleClearCart(svcs.Carts, logger))
			cart.POST("/merge", handlers.HandleMergeCart(svcs.Carts, logger))
		}

		// Orders (authenticated); checkout honors Idempotency-Key and is
		// rate limited per customer
		orders := api.Group("/orders")
		orders.Use(middleware.CustomerAuth(svcs.Customers, logger))
		{
			orders.POST("",
				middleware.RateLimit(rate.Limit(2), 5),
				middleware.Idempotency(repos, logger),
				handlers.HandleCreateOrder(svcs.Checkout, svcs.Orders, repos, logger),
			)
			orders.GET("", handlers.HandleListOrders(svcs.Orders, logger))
			orders.GET("/:id", handlers.HandleGetOrder(svcs.Orders, logger))
			orders.POST("/:id/cancel", handlers.HandleCancelOrder(svcs.Orders, logger))
		}

		// Payments (authenticated), rate limited to keep retried submissions
		// off the gateway
		payments := api.Group("/payments")
		payments.Use(middleware.CustomerAuth(svcs.Customers, logger))
		{
			payments.POST("/process",
				middleware.RateLimit(rate.Limit(2), 5),
				handlers.HandleProcessPayment(svcs.Payments, logger),
			)
			payments.GET("/status/:order_id", handlers.HandlePaymentStatus(svcs.Payments, logger))
		}

		// Refunds are staff-only
		api.POST("/payments/:id/refund",
			middleware.AdminAuth(cfg.Auth.AdminKeyHash, logger),
			handlers.HandleRefundPayment(svcs.Payments, logger),
		)

		// Admin (API key)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(cfg.Auth.AdminKeyHash, logger))
		{
			admin.GET("/orders", handlers.HandleAdminListOrders(svcs.Orders, logger))
			admin.POST("/orders/:id/status", handlers.HandleAdminUpdateOrderStatus(svcs.Orders, logger))
			admin.POST("/discounts", handlers.HandleAdminCreateDiscount(svcs.Discounts, logger))
			admin.GET("/discounts", handlers.HandleAdminListDiscounts(svcs.Discounts, logger))
			admin.POST("/discounts/:code/deactivate", handlers.HandleAdminDeactivateDiscount(svcs.Discounts, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("internal server error: %v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
