package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

type paymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) *paymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `
	id, order_id, parent_payment_id, amount, method, status, transaction_id, gateway,
	gateway_response, failure_reason, refund_reason, processed_at, created_at, updated_at
`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	now := time.Now()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = now
	}

	gatewayResponseJSON, err := marshalGatewayResponse(payment.GatewayResponse)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.ParentPaymentID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.TransactionID,
		payment.Gateway,
		gatewayResponseJSON,
		payment.FailureReason,
		payment.RefundReason,
		payment.ProcessedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create payment", zap.Error(err))
		return err
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "payment", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get payment by ID", zap.Error(err))
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) GetCompletedByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1 AND status = $2 AND amount > 0
		ORDER BY created_at DESC
		LIMIT 1`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, orderID, domain.PaymentStatusCompleted))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get completed payment", zap.Error(err))
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) SumRefunds(ctx context.Context, parentPaymentID uuid.UUID) (float64, error) {
	query := `
		SELECT COALESCE(SUM(-amount), 0)
		FROM payments
		WHERE parent_payment_id = $1 AND amount < 0
	`

	var sum float64
	if err := r.db.QueryRowContext(ctx, query, parentPaymentID).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum refunds", zap.Error(err))
		return 0, err
	}

	return sum, nil
}

// CompleteAndConfirmOrder marks the payment completed and its order confirmed
// in one transaction, so a crash cannot leave a paid order stuck in pending.
func (r *paymentRepository) CompleteAndConfirmOrder(ctx context.Context, paymentID uuid.UUID, transactionID string, gatewayResponse map[string]interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin payment transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	gatewayResponseJSON, err := marshalGatewayResponse(gatewayResponse)
	if err != nil {
		return err
	}

	var orderID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $2, transaction_id = $3, gateway_response = $4, processed_at = $5, updated_at = $5
		WHERE id = $1
		RETURNING order_id
	`, paymentID, domain.PaymentStatusCompleted, transactionID, gatewayResponseJSON, now).Scan(&orderID)
	if err == sql.ErrNoRows {
		return &errors.ErrNotFound{Resource: "payment", ID: paymentID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to complete payment", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`, orderID, domain.OrderStatusConfirmed, now, domain.OrderStatusPending); err != nil {
		r.logger.Error("Failed to confirm order", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit payment transaction", zap.Error(err))
		return err
	}

	return nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, paymentID uuid.UUID, reason string, gatewayResponse map[string]interface{}) error {
	now := time.Now()
	gatewayResponseJSON, err := marshalGatewayResponse(gatewayResponse)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, failure_reason = $3, gateway_response = $4, processed_at = $5, updated_at = $5
		WHERE id = $1
	`, paymentID, domain.PaymentStatusFailed, reason, gatewayResponseJSON, now)
	if err != nil {
		r.logger.Error("Failed to mark payment failed", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "payment", ID: paymentID.String()}
	}

	return nil
}

// CreateRefund inserts the negative-amount ledger row and, when the refund
// covers the full order total, transitions the order to refunded. One
// transaction: the ledger entry and the status change commit together.
func (r *paymentRepository) CreateRefund(ctx context.Context, refund *domain.Payment, markOrderRefunded bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin refund transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = now
	}
	refund.UpdatedAt = now

	gatewayResponseJSON, err := marshalGatewayResponse(refund.GatewayResponse)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		refund.ID,
		refund.OrderID,
		refund.ParentPaymentID,
		refund.Amount,
		refund.Method,
		refund.Status,
		refund.TransactionID,
		refund.Gateway,
		gatewayResponseJSON,
		refund.FailureReason,
		refund.RefundReason,
		refund.ProcessedAt,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert refund", zap.Error(err))
		return err
	}

	if markOrderRefunded {
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1
		`, refund.OrderID, domain.OrderStatusRefunded, now); err != nil {
			r.logger.Error("Failed to mark order refunded", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit refund transaction", zap.Error(err))
		return err
	}

	return nil
}

func marshalGatewayResponse(response map[string]interface{}) ([]byte, error) {
	if response == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(response)
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var parentPaymentID uuid.NullUUID
	var transactionID sql.NullString
	var gateway sql.NullString
	var gatewayResponseJSON []byte
	var failureReason sql.NullString
	var refundReason sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&parentPaymentID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&transactionID,
		&gateway,
		&gatewayResponseJSON,
		&failureReason,
		&refundReason,
		&processedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentPaymentID.Valid {
		payment.ParentPaymentID = &parentPaymentID.UUID
	}
	if transactionID.Valid {
		payment.TransactionID = &transactionID.String
	}
	if gateway.Valid {
		payment.Gateway = &gateway.String
	}
	if failureReason.Valid {
		payment.FailureReason = &failureReason.String
	}
	if refundReason.Valid {
		payment.RefundReason = &refundReason.String
	}
	if processedAt.Valid {
		payment.ProcessedAt = &processedAt.Time
	}

	if len(gatewayResponseJSON) > 0 {
		if err := json.Unmarshal(gatewayResponseJSON, &payment.GatewayResponse); err != nil {
			return nil, err
		}
	}

	return &payment, nil
}
