package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction directions.
const (
	CreditGrant      = "grant"
	CreditWithdrawal = "withdrawal"
)

type CreditAccount struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreditTransaction is one append-only ledger row. AmountCents is a non-negative
// magnitude; Direction carries the sign.
type CreditTransaction struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	AmountCents int64      `json:"amount_cents"`
	Direction   string     `json:"direction"`
	RefundID    *uuid.UUID `json:"refund_id,omitempty"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Signed returns +amount for grants and -amount for withdrawals.
func (t *CreditTransaction) Signed() int64 {
	if t.Direction == CreditWithdrawal {
		return -t.AmountCents
	}
	return t.AmountCents
}
