package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

type discountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db *sql.DB, logger *zap.Logger) *discountRepository {
	return &discountRepository{
		db:     db,
		logger: logger,
	}
}

const discountColumns = `
	id, code, type, value, min_order_amount, maximum_discount, usage_limit,
	per_customer_limit, used_count, starts_at, expires_at, is_active, created_at, updated_at
`

func (r *discountRepository) Create(ctx context.Context, discount *domain.Discount) error {
	query := `
		INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	now := time.Now()
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	discount.Code = strings.ToUpper(discount.Code)
	if discount.CreatedAt.IsZero() {
		discount.CreatedAt = now
	}
	if discount.UpdatedAt.IsZero() {
		discount.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		discount.ID,
		discount.Code,
		discount.Type,
		discount.Value,
		discount.MinOrderAmount,
		discount.MaximumDiscount,
		discount.UsageLimit,
		discount.PerCustomerLimit,
		discount.UsedCount,
		discount.StartsAt,
		discount.ExpiresAt,
		discount.IsActive,
		discount.CreatedAt,
		discount.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "discounts_code_key") {
			return &errors.ErrConflict{Message: "discount code already exists"}
		}
		r.logger.Error("Failed to create discount", zap.Error(err))
		return err
	}

	return nil
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`

	code = strings.ToUpper(code)
	discount, err := scanDiscount(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "discount", ID: code}
	}
	if err != nil {
		r.logger.Error("Failed to get discount by code", zap.Error(err))
		return nil, err
	}

	return discount, nil
}

func (r *discountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	query := `SELECT ` + discountColumns + `
		FROM discounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list discounts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var discounts []*domain.Discount
	for rows.Next() {
		discount, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, discount)
	}

	return discounts, rows.Err()
}

func (r *discountRepository) Deactivate(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE discounts SET is_active = false, updated_at = $2 WHERE code = $1`,
		strings.ToUpper(code), time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to deactivate discount", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "discount", ID: code}
	}

	return nil
}

func (r *discountRepository) CountCustomerRedemptions(ctx context.Context, code string, customerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE customer_id = $1 AND discount_code = $2 AND status NOT IN ($3, $4)
	`

	var count int
	err := r.db.QueryRowContext(ctx, query,
		customerID, strings.ToUpper(code),
		domain.OrderStatusCancelled, domain.OrderStatusRefunded,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count customer redemptions", zap.Error(err))
		return 0, err
	}

	return count, nil
}

func scanDiscount(row rowScanner) (*domain.Discount, error) {
	var discount domain.Discount
	var maximumDiscount sql.NullFloat64
	var usageLimit sql.NullInt64
	var perCustomerLimit sql.NullInt64
	var startsAt sql.NullTime
	var expiresAt sql.NullTime

	err := row.Scan(
		&discount.ID,
		&discount.Code,
		&discount.Type,
		&discount.Value,
		&discount.MinOrderAmount,
		&maximumDiscount,
		&usageLimit,
		&perCustomerLimit,
		&discount.UsedCount,
		&startsAt,
		&expiresAt,
		&discount.IsActive,
		&discount.CreatedAt,
		&discount.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if maximumDiscount.Valid {
		discount.MaximumDiscount = &maximumDiscount.Float64
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		discount.UsageLimit = &limit
	}
	if perCustomerLimit.Valid {
		limit := int(perCustomerLimit.Int64)
		discount.PerCustomerLimit = &limit
	}
	if startsAt.Valid {
		discount.StartsAt = &startsAt.Time
	}
	if expiresAt.Valid {
		discount.ExpiresAt = &expiresAt.Time
	}

	return &discount, nil
}
