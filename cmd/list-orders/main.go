package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/config"
	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository/postgres"
)

func main() {
	statusFlag := flag.String("status", "", "Filter by order status (pending, confirmed, processing, shipped, delivered, cancelled, refunded)")
	limitFlag := flag.Int("limit", 50, "Maximum number of orders to list")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	var orders []*domain.Order
	if *statusFlag != "" {
		status := domain.OrderStatus(*statusFlag)
		if !status.IsValid() {
			fmt.Fprintf(os.Stderr, "Unknown status %q\n", *statusFlag)
			os.Exit(1)
		}
		orders, err = repos.Order.ListByStatus(ctx, status, *limitFlag, 0)
	} else {
		// No filter: walk every status
		for _, status := range []domain.OrderStatus{
			domain.OrderStatusPending, domain.OrderStatusConfirmed,
			domain.OrderStatusProcessing, domain.OrderStatusShipped,
			domain.OrderStatusDelivered, domain.OrderStatusCancelled,
			domain.OrderStatusRefunded,
		} {
			batch, listErr := repos.Order.ListByStatus(ctx, status, *limitFlag, 0)
			if listErr != nil {
				err = listErr
				break
			}
			orders = append(orders, batch...)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list orders: %v\n", err)
		os.Exit(1)
	}

	if len(orders) == 0 {
		fmt.Println("No orders found.")
		return
	}

	for i, order := range orders {
		fmt.Printf("Order #%d:\n", i+1)
		fmt.Printf("  ID: %s\n", order.ID)
		fmt.Printf("  Number: %s\n", order.OrderNumber)
		fmt.Printf("  Customer: %s\n", order.CustomerID)
		fmt.Printf("  Status: %s\n", order.Status)
		fmt.Printf("  Total: %.2f (subtotal %.2f, tax %.2f, shipping %.2f, discount %.2f)\n",
			order.Total, order.Subtotal, order.Tax, order.Shipping, order.Discount)
		fmt.Printf("  Payment method: %s\n", order.PaymentMethod)
		if order.DiscountCode != nil {
			fmt.Printf("  Discount code: %s\n", *order.DiscountCode)
		}
		if order.TrackingNumber != nil {
			fmt.Printf("  Tracking: %s\n", *order.TrackingNumber)
		}
		fmt.Printf("  Created: %s\n", order.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	fmt.Printf("Found %d order(s)\n", len(orders))
}
