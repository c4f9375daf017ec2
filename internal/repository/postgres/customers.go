package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

type customerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB, logger *zap.Logger) *customerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, email, password_hash, verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.PasswordHash,
		customer.VerifiedAt,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "customers_phone_key") {
			return &errors.ErrConflict{Message: "phone already registered"}
		}
		r.logger.Error("Failed to create customer", zap.Error(err))
		return err
	}

	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.getOne(ctx, `WHERE phone = $1`, phone)
}

func (r *customerRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Customer, error) {
	query := `
		SELECT id, name, phone, email, password_hash, verified_at, created_at, updated_at
		FROM customers ` + where

	var customer domain.Customer
	var email sql.NullString
	var passwordHash sql.NullString
	var verifiedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&email,
		&passwordHash,
		&verifiedAt,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "customer", ID: fmt.Sprint(arg)}
	}
	if err != nil {
		r.logger.Error("Failed to get customer", zap.Error(err))
		return nil, err
	}

	if email.Valid {
		customer.Email = &email.String
	}
	if passwordHash.Valid {
		customer.PasswordHash = &passwordHash.String
	}
	if verifiedAt.Valid {
		customer.VerifiedAt = &verifiedAt.Time
	}

	return &customer, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, password_hash = $5, verified_at = $6, updated_at = $7
		WHERE id = $1
	`

	customer.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.PasswordHash,
		customer.VerifiedAt,
		customer.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "customers_phone_key") {
			return &errors.ErrConflict{Message: "phone already registered"}
		}
		r.logger.Error("Failed to update customer", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "customer", ID: customer.ID.String()}
	}

	return nil
}
