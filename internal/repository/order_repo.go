package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const selectOrder = `
	SELECT id, buyer_id, influencer_id, total_cents, total_with_discount_cents, discount_tx_id, created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.InfluencerID, &o.TotalCents, &o.TotalWithDiscountCents, &o.DiscountTxID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
}

// GetByIDForUpdate locks the order row. Call within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Order, error) {
	return scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
}

// UpdateDiscount links the discounting credit transaction and stores the discounted total.
func (r *OrderRepo) UpdateDiscount(ctx context.Context, tx pgx.Tx, orderID, transactionID uuid.UUID, totalWithDiscountCents int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET discount_tx_id = $2, total_with_discount_cents = $3, updated_at = now()
		WHERE id = $1
	`, orderID, transactionID, totalWithDiscountCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DiscountedOrder pairs an order with the amount and direction of its discount transaction.
type DiscountedOrder struct {
	Order             models.Order
	DiscountAmount    int64
	DiscountDirection string
}

// ListDiscounted returns every order carrying a discount, joined with its transaction.
func (r *OrderRepo) ListDiscounted(ctx context.Context) ([]*DiscountedOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.buyer_id, o.influencer_id, o.total_cents, o.total_with_discount_cents, o.discount_tx_id, o.created_at, o.updated_at,
		       ct.amount_cents, ct.direction
		FROM orders o
		INNER JOIN credit_transactions ct ON ct.id = o.discount_tx_id
		ORDER BY o.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*DiscountedOrder
	for rows.Next() {
		var d DiscountedOrder
		o := &d.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.InfluencerID, &o.TotalCents, &o.TotalWithDiscountCents, &o.DiscountTxID, &o.CreatedAt, &o.UpdatedAt,
			&d.DiscountAmount, &d.DiscountDirection); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
