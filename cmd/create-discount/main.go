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
	"github.com/greenshop/storefront/internal/service"
)

func main() {
	codeFlag := flag.String("code", "", "Discount code (stored uppercase)")
	typeFlag := flag.String("type", "percentage", "Discount type: percentage or fixed")
	valueFlag := flag.Float64("value", 0, "Discount value (percent or fixed amount)")
	minOrderFlag := flag.Float64("min-order", 0, "Minimum order amount")
	maxDiscountFlag := flag.Float64("max-discount", 0, "Cap for percentage discounts (0 = uncapped)")
	usageLimitFlag := flag.Int("usage-limit", 0, "Global redemption cap (0 = unlimited)")
	perCustomerFlag := flag.Int("per-customer", 0, "Per-customer redemption cap (0 = unlimited)")
	startsFlag := flag.String("starts-at", "", "Validity start, RFC3339 (optional)")
	expiresFlag := flag.String("expires-at", "", "Validity end, RFC3339 (optional)")
	flag.Parse()

	if *codeFlag == "" || *valueFlag <= 0 {
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/create-discount/main.go --code SUMMER20 --type percentage --value 20 --min-order 50 --max-discount 30")
		fmt.Println("  go run cmd/create-discount/main.go --code WELCOME10 --type fixed --value 10 --per-customer 1")
		os.Exit(1)
	}

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
	discounts := service.NewDiscountService(repos, logger)

	req := &service.CreateDiscountRequest{
		Code:           *codeFlag,
		Type:           domain.DiscountType(*typeFlag),
		Value:          *valueFlag,
		MinOrderAmount: *minOrderFlag,
	}
	if *maxDiscountFlag > 0 {
		req.MaximumDiscount = maxDiscountFlag
	}
	if *usageLimitFlag > 0 {
		req.UsageLimit = usageLimitFlag
	}
	if *perCustomerFlag > 0 {
		req.PerCustomerLimit = perCustomerFlag
	}
	if *startsFlag != "" {
		req.StartsAt = startsFlag
	}
	if *expiresFlag != "" {
		req.ExpiresAt = expiresFlag
	}

	discount, err := discounts.Create(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create discount: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created discount %s (%s)\n", discount.Code, discount.ID)
	fmt.Printf("  Type: %s, value: %.2f, min order: %.2f\n", discount.Type, discount.Value, discount.MinOrderAmount)
	if discount.UsageLimit != nil {
		fmt.Printf("  Usage limit: %d\n", *discount.UsageLimit)
	}
	if discount.PerCustomerLimit != nil {
		fmt.Printf("  Per-customer limit: %d\n", *discount.PerCustomerLimit)
	}
}
