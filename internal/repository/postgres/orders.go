package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/repository"
	"github.com/greenshop/storefront/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

// CreateCheckout writes the order snapshot and all its side effects in one
// transaction: order + items, stock decrements (guarded, so concurrent
// checkouts cannot oversell), cart clearing and discount redemption (guarded
// against over-redemption). Any failure rolls the whole thing back.
func (r *orderRepository) CreateCheckout(ctx context.Context, order *domain.Order, items []*domain.OrderItem, effects repository.CheckoutEffects) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin checkout transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	shippingAddressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}

	insertOrder := `
		INSERT INTO orders (
			id, order_number, customer_id, status, subtotal, tax, shipping, discount, total,
			payment_method, discount_code, shipping_address_id, shipping_address,
			tracking_number, notes, shipped_at, delivered_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = tx.ExecContext(ctx, insertOrder,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Status,
		order.Subtotal,
		order.Tax,
		order.Shipping,
		order.Discount,
		order.Total,
		order.PaymentMethod,
		order.DiscountCode,
		order.ShippingAddressID,
		shippingAddressJSON,
		order.TrackingNumber,
		order.Notes,
		order.ShippedAt,
		order.DeliveredAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return &errors.ErrConflict{Message: "order_number collision"}
		}
		r.logger.Error("Failed to insert order", zap.Error(err))
		return err
	}

	insertItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, sku, unit_price, quantity, line_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if _, err := tx.ExecContext(ctx, insertItem,
			item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.SKU, item.UnitPrice, item.Quantity, item.LineTotal, item.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to insert order item", zap.Error(err))
			return err
		}
	}

	// Guarded decrement: zero rows affected means another checkout got the
	// stock first
	decrementStock := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`
	for productID, qty := range effects.StockDecrements {
		result, err := tx.ExecContext(ctx, decrementStock, productID, qty, now)
		if err != nil {
			r.logger.Error("Failed to decrement stock", zap.Error(err))
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return &errors.ErrInsufficientStock{ProductID: productID.String(), Requested: qty}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, effects.ClearCartID); err != nil {
		r.logger.Error("Failed to clear cart", zap.Error(err))
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET subtotal = 0, tax = 0, shipping = 0, total = 0, updated_at = $2 WHERE id = $1`,
		effects.ClearCartID, now,
	); err != nil {
		r.logger.Error("Failed to reset cart totals", zap.Error(err))
		return err
	}

	if effects.DiscountCode != nil {
		// Guarded increment: the usage_limit check rides in the WHERE clause so
		// concurrent checkouts cannot over-redeem
		redeem := `
			UPDATE discounts
			SET used_count = used_count + 1, updated_at = $2
			WHERE code = $1 AND is_active = true
			  AND (usage_limit IS NULL OR used_count < usage_limit)
		`
		result, err := tx.ExecContext(ctx, redeem, *effects.DiscountCode, now)
		if err != nil {
			r.logger.Error("Failed to redeem discount", zap.Error(err))
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return &errors.ErrBusinessRule{Message: "discount code is no longer available"}
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit checkout transaction", zap.Error(err))
		return err
	}

	return nil
}

const orderColumns = `
	id, order_number, customer_id, status, subtotal, tax, shipping, discount, total,
	payment_method, discount_code, shipping_address_id, shipping_address,
	tracking_number, notes, shipped_at, delivered_at, created_at, updated_at
`

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderNumber))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderNumber}
	}
	if err != nil {
		r.logger.Error("Failed to get order by order number", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, sku, unit_price, quantity, line_total, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.SKU, &item.UnitPrice, &item.Quantity, &item.LineTotal, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *orderRepository) ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, customerID, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, query, status, limit, offset)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// UpdateStatus sets the status and its timestamp side effects. Shipping sets
// shipped_at (and the tracking number when provided), delivery sets delivered_at.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) error {
	now := time.Now()

	query := `UPDATE orders SET status = $2, updated_at = $3`
	args := []interface{}{id, status, now}

	switch status {
	case domain.OrderStatusShipped:
		query += fmt.Sprintf(", shipped_at = $%d", len(args)+1)
		args = append(args, now)
		if trackingNumber != nil {
			query += fmt.Sprintf(", tracking_number = $%d", len(args)+1)
			args = append(args, *trackingNumber)
		}
	case domain.OrderStatusDelivered:
		query += fmt.Sprintf(", delivered_at = $%d", len(args)+1)
		args = append(args, now)
	}

	query += ` WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	return nil
}

// CancelAndRestock marks the order cancelled and returns its item quantities
// to product stock, in one transaction.
func (r *orderRepository) CancelAndRestock(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin cancel transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, domain.OrderStatusCancelled, now,
	)
	if err != nil {
		r.logger.Error("Failed to cancel order", zap.Error(err))
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	restock := `
		UPDATE products p
		SET stock = p.stock + oi.quantity, updated_at = $2
		FROM order_items oi
		WHERE oi.order_id = $1 AND oi.product_id = p.id
	`
	if _, err := tx.ExecContext(ctx, restock, id, now); err != nil {
		r.logger.Error("Failed to restore stock on cancel", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit cancel transaction", zap.Error(err))
		return err
	}

	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var discountCode sql.NullString
	var shippingAddressID uuid.NullUUID
	var shippingAddressJSON []byte
	var trackingNumber sql.NullString
	var notes sql.NullString
	var shippedAt sql.NullTime
	var deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.Status,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Discount,
		&order.Total,
		&order.PaymentMethod,
		&discountCode,
		&shippingAddressID,
		&shippingAddressJSON,
		&trackingNumber,
		&notes,
		&shippedAt,
		&deliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if discountCode.Valid {
		order.DiscountCode = &discountCode.String
	}
	if shippingAddressID.Valid {
		order.ShippingAddressID = &shippingAddressID.UUID
	}
	if trackingNumber.Valid {
		order.TrackingNumber = &trackingNumber.String
	}
	if notes.Valid {
		order.Notes = &notes.String
	}
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	if len(shippingAddressJSON) > 0 {
		if err := json.Unmarshal(shippingAddressJSON, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}

	return &order, nil
}
