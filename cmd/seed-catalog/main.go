package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/config"
	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository/postgres"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// Demo catalog for local development. Running twice is safe: duplicate slugs
// and SKUs are skipped.
func main() {
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
	catalog := service.NewCatalogService(repos, logger)
	ctx := context.Background()

	categories := []*domain.Category{
		{Name: "Apparel", Slug: "apparel"},
		{Name: "Footwear", Slug: "footwear"},
		{Name: "Accessories", Slug: "accessories"},
	}
	bySlug := make(map[string]*domain.Category)
	for _, cat := range categories {
		if err := catalog.CreateCategory(ctx, cat); err != nil {
			if _, dup := err.(*errors.ErrConflict); dup {
				fmt.Printf("Category %q already exists, skipping\n", cat.Slug)
				continue
			}
			fmt.Fprintf(os.Stderr, "Failed to create category %q: %v\n", cat.Slug, err)
			os.Exit(1)
		}
		bySlug[cat.Slug] = cat
		fmt.Printf("Created category %s (%s)\n", cat.Name, cat.ID)
	}

	type seedProduct struct {
		slug    string
		product domain.Product
	}
	products := []seedProduct{
		{"apparel", domain.Product{Name: "Classic Tee", SKU: "TEE-001", Price: 25, Stock: 100, IsActive: true}},
		{"apparel", domain.Product{Name: "Zip Hoodie", SKU: "HOOD-001", Price: 65, Stock: 40, IsActive: true}},
		{"footwear", domain.Product{Name: "Canvas Sneakers", SKU: "SNKR-001", Price: 80, Stock: 25, IsActive: true}},
		{"footwear", domain.Product{Name: "Trail Runners", SKU: "SNKR-002", Price: 120, Stock: 15, IsActive: true}},
		{"accessories", domain.Product{Name: "Canvas Tote", SKU: "TOTE-001", Price: 18, Stock: 200, IsActive: true}},
		{"accessories", domain.Product{Name: "Wool Beanie", SKU: "BEAN-001", Price: 15, Stock: 75, IsActive: true}},
	}

	created := 0
	for _, sp := range products {
		p := sp.product
		if cat, ok := bySlug[sp.slug]; ok {
			p.CategoryID = &cat.ID
		}
		if err := catalog.CreateProduct(ctx, &p); err != nil {
			if _, dup := err.(*errors.ErrConflict); dup {
				fmt.Printf("Product %q already exists, skipping\n", p.SKU)
				continue
			}
			fmt.Fprintf(os.Stderr, "Failed to create product %q: %v\n", p.SKU, err)
			os.Exit(1)
		}
		created++
		fmt.Printf("Created product %s (%s) at %.2f, stock %d\n", p.Name, p.SKU, p.Price, p.Stock)
	}

	fmt.Printf("Seed complete: %d product(s) created\n", created)
}
