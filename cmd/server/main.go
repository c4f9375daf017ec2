package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/api"
	"github.com/greenshop/storefront/internal/config"
	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/gateway"
	"github.com/greenshop/storefront/internal/repository/postgres"
	"github.com/greenshop/storefront/internal/repository/redisstore"
	"github.com/greenshop/storefront/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting storefront API server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("gateway", cfg.Gateway.Provider),
	)

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis (guest carts)
	redisClient, err := redisstore.NewClient(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	repos := postgres.NewRepositories(db, logger)
	repos.GuestCart = redisstore.NewGuestCartRepository(redisClient, cfg.Redis.GuestCartTTL, logger)

	// Select the payment gateway
	var gw gateway.PaymentGateway
	switch cfg.Gateway.Provider {
	case "stripe":
		gw = gateway.NewStripeGateway(cfg.Gateway.StripeSecretKey, "usd")
	default:
		gw = gateway.NewMockGateway(time.Now().UnixNano())
	}

	totals := domain.TotalsConfig{
		TaxRate:               cfg.Checkout.TaxRate,
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		ShippingFee:           cfg.Checkout.ShippingFee,
	}

	// Initialize services
	customers := service.NewCustomerService(repos, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	catalog := service.NewCatalogService(repos, logger)
	carts := service.NewCartService(repos, totals, logger)
	discounts := service.NewDiscountService(repos, logger)
	payments := service.NewPaymentService(repos, gw, cfg.Gateway.Timeout, logger)
	orders := service.NewOrderService(repos, logger)
	checkout := service.NewCheckoutService(repos, discounts, payments, totals, logger)

	// Initialize router
	router := api.NewRouter(cfg, repos, &api.Services{
		Customers: customers,
		Catalog:   catalog,
		Carts:     carts,
		Checkout:  checkout,
		Orders:    orders,
		Payments:  payments,
		Discounts: discounts,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
