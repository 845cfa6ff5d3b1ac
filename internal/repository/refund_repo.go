package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

type RefundRepo struct {
	pool *pgxpool.Pool
}

func NewRefundRepo(pool *pgxpool.Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

// Create inserts the refund row. It must exist before a transaction can reference it.
func (r *RefundRepo) Create(ctx context.Context, tx pgx.Tx, ref *models.Refund) error {
	return tx.QueryRow(ctx, `
		INSERT INTO refunds (id, order_id, value_cents, is_credit)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, ref.ID, ref.OrderID, ref.ValueCents, ref.IsCredit).Scan(&ref.CreatedAt)
}

// SumByOrderID totals the value of every refund already issued for the order.
func (r *RefundRepo) SumByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(value_cents), 0)::BIGINT FROM refunds WHERE order_id = $1
	`, orderID).Scan(&total)
	return total, err
}

func (r *RefundRepo) LinkTransaction(ctx context.Context, tx pgx.Tx, refundID, transactionID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE refunds SET transaction_id = $2 WHERE id = $1`, refundID, transactionID)
	return err
}

func (r *RefundRepo) LinkPayment(ctx context.Context, tx pgx.Tx, refundID, paymentID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE refunds SET payment_id = $2 WHERE id = $1`, refundID, paymentID)
	return err
}

// FindPaymentByOrderID returns the order's most recent payment, or nil when it has none.
func (r *RefundRepo) FindPaymentByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := tx.QueryRow(ctx, `
		SELECT id, order_id, amount_cents, created_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, orderID).Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
