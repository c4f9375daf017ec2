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

type cartRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB, logger *zap.Logger) *cartRepository {
	return &cartRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, customer_id, subtotal, tax, shipping, total, created_at, updated_at
		FROM carts
		WHERE customer_id = $1
	`

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, query, customerID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.Subtotal,
		&cart.Tax,
		&cart.Shipping,
		&cart.Total,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		// Lazily created on first use
		now := time.Now()
		cart = domain.Cart{
			ID:         uuid.New(),
			CustomerID: customerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		insert := `
			INSERT INTO carts (id, customer_id, subtotal, tax, shipping, total, created_at, updated_at)
			VALUES ($1, $2, 0, 0, 0, 0, $3, $4)
			ON CONFLICT (customer_id) DO NOTHING
		`
		if _, err := r.db.ExecContext(ctx, insert, cart.ID, customerID, now, now); err != nil {
			r.logger.Error("Failed to create cart", zap.Error(err))
			return nil, err
		}
		// A concurrent request may have created the row first; re-read to be sure
		if err := r.db.QueryRowContext(ctx, query, customerID).Scan(
			&cart.ID, &cart.CustomerID, &cart.Subtotal, &cart.Tax,
			&cart.Shipping, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to re-read cart after create", zap.Error(err))
			return nil, err
		}
	} else if err != nil {
		r.logger.Error("Failed to get cart", zap.Error(err))
		return nil, err
	}

	items, err := r.listItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

func (r *cartRepository) listItems(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		r.logger.Error("Failed to list cart items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *cartRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
		FROM cart_items
		WHERE id = $1
	`

	var item domain.CartItem
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.UnitPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get cart item", zap.Error(err))
		return nil, err
	}

	return &item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create cart item", zap.Error(err))
		return err
	}

	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, itemID, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to update cart item quantity", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "cart_item", ID: itemID.String()}
	}

	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	// Idempotent: deleting an already-removed item is a no-op success
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.logger.Error("Failed to delete cart item", zap.Error(err))
		return err
	}
	return nil
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	// Idempotent: clearing an already-empty cart is a no-op success
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error("Failed to clear cart items", zap.Error(err))
		return err
	}
	return nil
}

func (r *cartRepository) UpdateTotals(ctx context.Context, cart *domain.Cart) error {
	query := `
		UPDATE carts
		SET subtotal = $2, tax = $3, shipping = $4, total = $5, updated_at = $6
		WHERE id = $1
	`

	cart.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		cart.ID,
		cart.Subtotal,
		cart.Tax,
		cart.Shipping,
		cart.Total,
		cart.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to update cart totals", zap.Error(err))
		return err
	}

	return nil
}
