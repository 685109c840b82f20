package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

type PaymentStorage interface {
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	// LockByGatewayOrderIDTx блокирует попытку оплаты, к которой относится вебхук
	LockByGatewayOrderIDTx(ctx context.Context, tx *sql.Tx, gatewayOrderID string) (*models.Payment, error)
	MarkSuccessTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error
	MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	query := `INSERT INTO order_payments (order_id, gateway_order_id, amount, currency, status)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.OrderID, p.GatewayOrderID, p.Amount, p.Currency, p.Status).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) LockByGatewayOrderIDTx(ctx context.Context, tx *sql.Tx, gatewayOrderID string) (*models.Payment, error) {
	query := `SELECT id, order_id, gateway_order_id, gateway_payment_id, amount, currency, status, created_at
	          FROM order_payments WHERE gateway_order_id = $1 FOR UPDATE`
	p := &models.Payment{}
	err := tx.QueryRowContext(ctx, query, gatewayOrderID).Scan(&p.ID, &p.OrderID, &p.GatewayOrderID,
		&p.GatewayPaymentID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// MarkSuccessTx принимает и повторную попытку после failed: захват — окончательное списание денег
func (r *paymentRepository) MarkSuccessTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error {
	query := `UPDATE order_payments SET status = $1, gateway_payment_id = $2, raw_payload = $3, updated_at = NOW()
	          WHERE id = $4 AND status IN ('created', 'failed')`
	return r.mark(ctx, tx, query, id, models.PaymentSuccess, gatewayPaymentID, raw)
}

// MarkFailedTx меняет только ещё не завершённую попытку
func (r *paymentRepository) MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error {
	query := `UPDATE order_payments SET status = $1, gateway_payment_id = $2, raw_payload = $3, updated_at = NOW()
	          WHERE id = $4 AND status = 'created'`
	return r.mark(ctx, tx, query, id, models.PaymentFailed, gatewayPaymentID, raw)
}

func (r *paymentRepository) mark(ctx context.Context, tx *sql.Tx, query string, id int64, status models.PaymentStatus, gatewayPaymentID string, raw []byte) error {
	res, err := tx.ExecContext(ctx, query, status, gatewayPaymentID, string(raw), id)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return expectAffected(res, ErrStatusChanged)
}
