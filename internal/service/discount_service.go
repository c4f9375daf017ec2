package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

// DiscountService validates and applies discount codes. The used_count
// increment is NOT done here: it rides inside the checkout transaction so
// concurrent checkouts cannot over-redeem.
type DiscountService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewDiscountService creates a new discount service
func NewDiscountService(repos *repository.Repositories, logger *zap.Logger) *DiscountService {
	return &DiscountService{
		repos:  repos,
		logger: logger,
	}
}

// Validate checks a code against an order amount and customer and returns the
// discount with the amount it would take off. Returns ErrBusinessRule with a
// customer-facing message when the code cannot be applied.
func (s *DiscountService) Validate(ctx context.Context, code string, customerID uuid.UUID, orderAmount float64) (*domain.Discount, float64, error) {
	discount, err := s.repos.Discount.GetByCode(ctx, code)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	if !discount.IsActive {
		return nil, 0, &errors.ErrBusinessRule{Message: "discount code is not active"}
	}
	if discount.StartsAt != nil && now.Before(*discount.StartsAt) {
		return nil, 0, &errors.ErrBusinessRule{Message: "discount code is not yet valid"}
	}
	if discount.ExpiresAt != nil && now.After(*discount.ExpiresAt) {
		return nil, 0, &errors.ErrBusinessRule{Message: "discount code has expired"}
	}
	if discount.UsageLimit != nil && discount.UsedCount >= *discount.UsageLimit {
		return nil, 0, &errors.ErrBusinessRule{Message: "discount code usage limit reached"}
	}
	if orderAmount < discount.MinOrderAmount {
		return nil, 0, &errors.ErrBusinessRule{
			Message: fmt.Sprintf("minimum order amount of %.2f required", discount.MinOrderAmount),
		}
	}

	if discount.PerCustomerLimit != nil {
		used, err := s.repos.Discount.CountCustomerRedemptions(ctx, discount.Code, customerID)
		if err != nil {
			return nil, 0, err
		}
		if used >= *discount.PerCustomerLimit {
			return nil, 0, &errors.ErrBusinessRule{Message: "discount code already used"}
		}
	}

	return discount, discount.Apply(orderAmount), nil
}

// Create registers a new discount code
func (s *DiscountService) Create(ctx context.Context, req *CreateDiscountRequest) (*domain.Discount, error) {
	if !req.Type.IsValid() {
		return nil, &errors.ErrValidation{
			Message: "unknown discount type",
			Fields:  map[string]string{"type": "must be percentage or fixed"},
		}
	}
	if req.Type == domain.DiscountTypePercentage && req.Value > 100 {
		return nil, &errors.ErrValidation{
			Message: "percentage discount cannot exceed 100",
			Fields:  map[string]string{"value": "cannot exceed 100"},
		}
	}

	discount := &domain.Discount{
		Code:             strings.ToUpper(req.Code),
		Type:             req.Type,
		Value:            req.Value,
		MinOrderAmount:   req.MinOrderAmount,
		MaximumDiscount:  req.MaximumDiscount,
		UsageLimit:       req.UsageLimit,
		PerCustomerLimit: req.PerCustomerLimit,
		IsActive:         true,
	}

	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return nil, &errors.ErrValidation{
				Message: "invalid starts_at",
				Fields:  map[string]string{"starts_at": "must be RFC3339"},
			}
		}
		discount.StartsAt = &t
	}
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, &errors.ErrValidation{
				Message: "invalid expires_at",
				Fields:  map[string]string{"expires_at": "must be RFC3339"},
			}
		}
		discount.ExpiresAt = &t
	}

	if err := s.repos.Discount.Create(ctx, discount); err != nil {
		return nil, err
	}

	s.logger.Info("Discount created",
		zap.String("code", discount.Code),
		zap.String("type", string(discount.Type)),
		zap.Float64("value", discount.Value),
	)
	return discount, nil
}

// Deactivate turns a code off
func (s *DiscountService) Deactivate(ctx context.Context, code string) error {
	if err := s.repos.Discount.Deactivate(ctx, code); err != nil {
		return err
	}
	s.logger.Info("Discount deactivated", zap.String("code", strings.ToUpper(code)))
	return nil
}

// List returns discounts, newest first
func (s *DiscountService) List(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repos.Discount.List(ctx, limit, offset)
}
