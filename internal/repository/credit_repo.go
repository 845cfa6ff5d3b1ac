package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

const selectCreditTransaction = `
	SELECT id, account_id, amount_cents, direction, refund_id, order_id, reason, created_at
	FROM credit_transactions`

// CreateAccountTx opens a credit account for a freshly created profile.
func (r *CreditRepo) CreateAccountTx(ctx context.Context, tx pgx.Tx, profileID uuid.UUID) (*models.CreditAccount, error) {
	a := models.CreditAccount{ProfileID: profileID}
	err := tx.QueryRow(ctx, `
		INSERT INTO credit_accounts (profile_id) VALUES ($1)
		RETURNING id, created_at
	`, profileID).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByOwnerID resolves the credit account of the user's profile.
func (r *CreditRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := r.pool.QueryRow(ctx, `
		SELECT ca.id, ca.profile_id, ca.created_at
		FROM credit_accounts ca
		INNER JOIN profiles p ON p.id = ca.profile_id
		WHERE p.owner_id = $1
	`, ownerID).Scan(&a.ID, &a.ProfileID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByOwnerIDForUpdate locks the account row. Call within a transaction.
func (r *CreditRepo) GetByOwnerIDForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := tx.QueryRow(ctx, `
		SELECT ca.id, ca.profile_id, ca.created_at
		FROM credit_accounts ca
		INNER JOIN profiles p ON p.id = ca.profile_id
		WHERE p.owner_id = $1
		FOR UPDATE OF ca
	`, ownerID).Scan(&a.ID, &a.ProfileID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByProfileIDForUpdate locks the account row of a profile. Call within a transaction.
func (r *CreditRepo) GetByProfileIDForUpdate(ctx context.Context, tx pgx.Tx, profileID uuid.UUID) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := tx.QueryRow(ctx, `
		SELECT id, profile_id, created_at FROM credit_accounts WHERE profile_id = $1 FOR UPDATE
	`, profileID).Scan(&a.ID, &a.ProfileID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AppendTransaction inserts a ledger row inside the given transaction.
func (r *CreditRepo) AppendTransaction(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, account_id, amount_cents, direction, refund_id, order_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.AccountID, t.AmountCents, t.Direction, t.RefundID, t.OrderID, t.Reason).Scan(&t.CreatedAt)
}

// ListTransactions returns the account's transactions newest first. limit <= 0 returns all.
func (r *CreditRepo) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, selectCreditTransaction+`
			WHERE account_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3
		`, accountID, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, selectCreditTransaction+`
			WHERE account_id = $1 ORDER BY created_at DESC, id
		`, accountID)
	}
	if err != nil {
		return nil, err
	}
	return scanCreditTransactions(rows)
}

// ListTransactionsTx reads every transaction of an account inside a transaction.
func (r *CreditRepo) ListTransactionsTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := tx.Query(ctx, selectCreditTransaction+`
		WHERE account_id = $1 ORDER BY created_at DESC, id
	`, accountID)
	if err != nil {
		return nil, err
	}
	return scanCreditTransactions(rows)
}

func scanCreditTransactions(rows pgx.Rows) ([]*models.CreditTransaction, error) {
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.AmountCents, &t.Direction, &t.RefundID, &t.OrderID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
