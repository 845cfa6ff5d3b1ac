package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID                     uuid.UUID  `json:"id"`
	BuyerID                uuid.UUID  `json:"buyer_id"`
	InfluencerID           uuid.UUID  `json:"influencer_id"`
	TotalCents             int64      `json:"total_cents"`
	TotalWithDiscountCents int64      `json:"total_with_discount_cents"`
	DiscountTxID           *uuid.UUID `json:"discount_tx_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

type Refund struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	ValueCents    int64      `json:"value_cents"`
	IsCredit      bool       `json:"is_credit"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Payment is kept only so refunds can be linked to it for audit.
type Payment struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}
