package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

type addressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *sql.DB, logger *zap.Logger) *addressRepository {
	return &addressRepository{
		db:     db,
		logger: logger,
	}
}

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	query := `
		INSERT INTO addresses (id, customer_id, label, street, city, state, postal_code, country, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	if address.CreatedAt.IsZero() {
		address.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		address.ID,
		address.CustomerID,
		address.Label,
		address.Street,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
		address.IsDefault,
		address.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create address", zap.Error(err))
		return err
	}

	return nil
}

func (r *addressRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	query := `
		SELECT id, customer_id, label, street, city, state, postal_code, country, is_default, created_at
		FROM addresses
		WHERE id = $1
	`

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "address", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get address by ID", zap.Error(err))
		return nil, err
	}

	return address, nil
}

func (r *addressRepository) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.Address, error) {
	query := `
		SELECT id, customer_id, label, street, city, state, postal_code, country, is_default, created_at
		FROM addresses
		WHERE customer_id = $1
		ORDER BY is_default DESC, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		r.logger.Error("Failed to list addresses", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var addresses []*domain.Address
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}

	return addresses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	var address domain.Address
	var label sql.NullString
	var state sql.NullString
	var postalCode sql.NullString

	err := row.Scan(
		&address.ID,
		&address.CustomerID,
		&label,
		&address.Street,
		&address.City,
		&state,
		&postalCode,
		&address.Country,
		&address.IsDefault,
		&address.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if label.Valid {
		address.Label = &label.String
	}
	if state.Valid {
		address.State = &state.String
	}
	if postalCode.Valid {
		address.PostalCode = &postalCode.String
	}

	return &address, nil
}
