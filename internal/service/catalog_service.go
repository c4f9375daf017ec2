package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// CatalogService is the read/seed surface over products and categories
type CatalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repos *repository.Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repos:  repos,
		logger: logger,
	}
}

// ListProducts returns active products, newest first
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repos.Product.List(ctx, limit, offset)
}

// GetProduct returns one product with its variants
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, []*domain.ProductVariant, error) {
	product, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	variants, err := s.repos.Product.ListVariants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return product, variants, nil
}

// ListCategories returns all categories
func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.repos.Category.List(ctx)
}

// CreateProduct registers a catalog entry (seeding and admin tooling)
func (s *CatalogService) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.Name == "" || product.SKU == "" {
		return &errors.ErrValidation{
			Message: "incomplete product",
			Fields:  map[string]string{"product": "name and sku are required"},
		}
	}
	if product.Price < 0 {
		return &errors.ErrValidation{
			Message: "price cannot be negative",
			Fields:  map[string]string{"price": "must be >= 0"},
		}
	}
	if err := s.repos.Product.Create(ctx, product); err != nil {
		return err
	}
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	return nil
}

// CreateCategory registers a category (seeding and admin tooling)
func (s *CatalogService) CreateCategory(ctx context.Context, category *domain.Category) error {
	if category.Name == "" || category.Slug == "" {
		return &errors.ErrValidation{
			Message: "incomplete category",
			Fields:  map[string]string{"category": "name and slug are required"},
		}
	}
	return s.repos.Category.Create(ctx, category)
}
