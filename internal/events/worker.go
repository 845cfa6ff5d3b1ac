package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

// Ledger event types double as RabbitMQ routing keys.
const (
	TypeCreditsSpent    = "credits.spent"
	TypeCreditsRefunded = "credits.refunded"
	TypeCreditsGranted  = "credits.granted"
)

type LedgerEventArgs struct {
	Type          string     `json:"type"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	AccountID     uuid.UUID  `json:"account_id"`
	AmountCents   int64      `json:"amount_cents"`
	Direction     string     `json:"direction"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	RefundID      *uuid.UUID `json:"refund_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func (LedgerEventArgs) Kind() string { return "ledger_event" }

func NewLedgerEvent(eventType string, t *models.CreditTransaction) LedgerEventArgs {
	return LedgerEventArgs{
		Type:          eventType,
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		AmountCents:   t.AmountCents,
		Direction:     t.Direction,
		OrderID:       t.OrderID,
		RefundID:      t.RefundID,
		Reason:        t.Reason,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher defines the contract the worker needs to push an event out.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
}

type LedgerEventWorker struct {
	river.WorkerDefaults[LedgerEventArgs]
	publisher Publisher
	exchange  string
	log       *slog.Logger
}

func NewLedgerEventWorker(p Publisher, exchange string, log *slog.Logger) *LedgerEventWorker {
	if log == nil {
		log = slog.Default()
	}
	return &LedgerEventWorker{publisher: p, exchange: exchange, log: log}
}

// Work publishes the event. A publish error is returned so River retries the job.
func (w *LedgerEventWorker) Work(ctx context.Context, job *river.Job[LedgerEventArgs]) error {
	args := job.Args
	if args.Type == "" {
		w.log.Error("dropping ledger event without type", "job_id", job.ID, "transaction_id", args.TransactionID)
		return nil
	}
	if err := w.publisher.Publish(ctx, w.exchange, args.Type, args); err != nil {
		return fmt.Errorf("publish %s for transaction %s: %w", args.Type, args.TransactionID, err)
	}
	w.log.Debug("ledger event published", "type", args.Type, "transaction_id", args.TransactionID)
	return nil
}
