package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relense/influencer-markt-sub003/internal/events"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrForbidden           = errors.New("forbidden")
	ErrAlreadyDiscounted   = errors.New("order already discounted")
)

// Ledger transaction reasons.
const (
	ReasonOrderDiscount = "order_discount"
	ReasonRefund        = "refund"
	ReasonSignupBonus   = "signup_bonus"
)

// TxBeginner starts the unit of work every multi-write operation runs in.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepo is the credit account and transaction store.
type AccountRepo interface {
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.CreditAccount, error)
	GetByOwnerIDForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.CreditAccount, error)
	GetByProfileIDForUpdate(ctx context.Context, tx pgx.Tx, profileID uuid.UUID) (*models.CreditAccount, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error)
	ListTransactionsTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) ([]*models.CreditTransaction, error)
	AppendTransaction(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error
}

// OrderRepo is the minimal order interface the ledger needs.
type OrderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Order, error)
	UpdateDiscount(ctx context.Context, tx pgx.Tx, orderID, transactionID uuid.UUID, totalWithDiscountCents int64) error
}

// RefundRepo is the minimal refund interface the ledger needs.
type RefundRepo interface {
	Create(ctx context.Context, tx pgx.Tx, r *models.Refund) error
	SumByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error)
	LinkTransaction(ctx context.Context, tx pgx.Tx, refundID, transactionID uuid.UUID) error
	FindPaymentByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*models.Payment, error)
	LinkPayment(ctx context.Context, tx pgx.Tx, refundID, paymentID uuid.UUID) error
}

// EnqueueEventTxFunc enqueues a ledger event within the given transaction.
// Provided by main using river.Client.InsertTx.
type EnqueueEventTxFunc func(ctx context.Context, tx pgx.Tx, args events.LedgerEventArgs) error

type Service interface {
	Balance(ctx context.Context, ownerID uuid.UUID) (int64, error)
	History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error)
	SpendCredits(ctx context.Context, ownerID, orderID uuid.UUID, amountCents int64) (*models.CreditTransaction, error)
	Refund(ctx context.Context, orderID uuid.UUID, valueCents int64, isCredit bool) (*models.Refund, error)
	AuthorizeRefund(ctx context.Context, ownerID, orderID uuid.UUID) error
	GrantCredits(ctx context.Context, profileID uuid.UUID, amountCents int64, reason string) (*models.CreditTransaction, error)
}

type service struct {
	db       TxBeginner
	accounts AccountRepo
	orders   OrderRepo
	refunds  RefundRepo
	enqueue  EnqueueEventTxFunc
	log      *slog.Logger
}

func NewService(db TxBeginner, accounts AccountRepo, orders OrderRepo, refunds RefundRepo, enqueue EnqueueEventTxFunc, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{db: db, accounts: accounts, orders: orders, refunds: refunds, enqueue: enqueue, log: log}
}

var _ Service = (*service)(nil)

// Balance folds every transaction: +amount for grants, -amount for withdrawals.
// The sum is independent of ordering.
func Balance(txns []*models.CreditTransaction) int64 {
	var total int64
	for _, t := range txns {
		total += t.Signed()
	}
	return total
}

func notFound(what string, id uuid.UUID, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func (s *service) Balance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	acc, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return 0, notFound("credit account for owner", ownerID, err)
	}
	txns, err := s.accounts.ListTransactions(ctx, acc.ID, 0, 0)
	if err != nil {
		return 0, err
	}
	return Balance(txns), nil
}

func (s *service) History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	acc, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, notFound("credit account for owner", ownerID, err)
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.ListTransactions(ctx, acc.ID, limit, offset)
}

// SpendCredits withdraws amountCents from the owner's account and applies it as
// the order's discount. The withdrawal and the order update commit together.
func (s *service) SpendCredits(ctx context.Context, ownerID, orderID uuid.UUID, amountCents int64) (*models.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: spend must be positive, got %d", ErrInvalidAmount, amountCents)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.accounts.GetByOwnerIDForUpdate(ctx, tx, ownerID)
	if err != nil {
		return nil, notFound("credit account for owner", ownerID, err)
	}
	order, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, notFound("order", orderID, err)
	}
	if order.BuyerID != acc.ProfileID {
		return nil, fmt.Errorf("%w: order %s does not belong to the caller", ErrForbidden, orderID)
	}
	if order.DiscountTxID != nil {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyDiscounted, orderID)
	}
	if amountCents > order.TotalCents {
		return nil, fmt.Errorf("%w: spend %d exceeds order total %d", ErrInvalidAmount, amountCents, order.TotalCents)
	}
	txns, err := s.accounts.ListTransactionsTx(ctx, tx, acc.ID)
	if err != nil {
		return nil, err
	}
	if bal := Balance(txns); bal < amountCents {
		return nil, fmt.Errorf("%w: balance %d, spend %d", ErrInsufficientCredits, bal, amountCents)
	}

	entry := &models.CreditTransaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		AmountCents: amountCents,
		Direction:   models.CreditWithdrawal,
		OrderID:     &orderID,
		Reason:      ReasonOrderDiscount,
	}
	if err := s.accounts.AppendTransaction(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append withdrawal: %w", err)
	}
	if err := s.orders.UpdateDiscount(ctx, tx, orderID, entry.ID, order.TotalCents-amountCents); err != nil {
		return nil, fmt.Errorf("update order discount: %w", err)
	}
	if err := s.emit(ctx, tx, events.TypeCreditsSpent, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("credits spent", "account_id", acc.ID, "order_id", orderID, "amount_cents", amountCents)
	return entry, nil
}

// Refund records a refund for an order. Only credit refunds are supported: the
// buyer receives a grant that back-references the refund. Non-credit refunds
// are not implemented and return (nil, nil) without writing anything.
func (s *service) Refund(ctx context.Context, orderID uuid.UUID, valueCents int64, isCredit bool) (*models.Refund, error) {
	if !isCredit {
		s.log.Warn("non-credit refund requested; not implemented", "order_id", orderID, "value_cents", valueCents)
		return nil, nil
	}
	if valueCents <= 0 {
		return nil, fmt.Errorf("%w: refund must be positive, got %d", ErrInvalidAmount, valueCents)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, notFound("order", orderID, err)
	}
	refunded, err := s.refunds.SumByOrderID(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sum refunds: %w", err)
	}
	if refunded+valueCents > order.TotalCents {
		return nil, fmt.Errorf("%w: refund %d exceeds remaining order total %d (total %d, refunded %d)",
			ErrInvalidAmount, valueCents, order.TotalCents-refunded, order.TotalCents, refunded)
	}
	acc, err := s.accounts.GetByProfileIDForUpdate(ctx, tx, order.BuyerID)
	if err != nil {
		return nil, notFound("credit account for profile", order.BuyerID, err)
	}

	refund := &models.Refund{
		ID:         uuid.New(),
		OrderID:    orderID,
		ValueCents: valueCents,
		IsCredit:   true,
	}
	if err := s.refunds.Create(ctx, tx, refund); err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	grant := &models.CreditTransaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		AmountCents: valueCents,
		Direction:   models.CreditGrant,
		RefundID:    &refund.ID,
		OrderID:     &orderID,
		Reason:      ReasonRefund,
	}
	if err := s.accounts.AppendTransaction(ctx, tx, grant); err != nil {
		return nil, fmt.Errorf("append refund grant: %w", err)
	}
	if err := s.refunds.LinkTransaction(ctx, tx, refund.ID, grant.ID); err != nil {
		return nil, fmt.Errorf("link refund transaction: %w", err)
	}
	refund.TransactionID = &grant.ID

	payment, err := s.refunds.FindPaymentByOrderID(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		if err := s.refunds.LinkPayment(ctx, tx, refund.ID, payment.ID); err != nil {
			return nil, fmt.Errorf("link refund payment: %w", err)
		}
		refund.PaymentID = &payment.ID
	}
	if err := s.emit(ctx, tx, events.TypeCreditsRefunded, grant); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("credit refund issued", "refund_id", refund.ID, "order_id", orderID, "value_cents", valueCents)
	return refund, nil
}

// AuthorizeRefund allows only the order's influencer to refund it.
func (s *service) AuthorizeRefund(ctx context.Context, ownerID, orderID uuid.UUID) error {
	acc, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return notFound("credit account for owner", ownerID, err)
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return notFound("order", orderID, err)
	}
	if order.InfluencerID != acc.ProfileID {
		return fmt.Errorf("%w: only the order's influencer can refund it", ErrForbidden)
	}
	return nil
}

// GrantCredits adds a standalone grant (e.g. a signup bonus) to a profile's account.
func (s *service) GrantCredits(ctx context.Context, profileID uuid.UUID, amountCents int64, reason string) (*models.CreditTransaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: grant must be positive, got %d", ErrInvalidAmount, amountCents)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	acc, err := s.accounts.GetByProfileIDForUpdate(ctx, tx, profileID)
	if err != nil {
		return nil, notFound("credit account for profile", profileID, err)
	}
	grant := &models.CreditTransaction{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		AmountCents: amountCents,
		Direction:   models.CreditGrant,
		Reason:      reason,
	}
	if err := s.accounts.AppendTransaction(ctx, tx, grant); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, events.TypeCreditsGranted, grant); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *service) emit(ctx context.Context, tx pgx.Tx, eventType string, t *models.CreditTransaction) error {
	if s.enqueue == nil {
		return nil
	}
	if err := s.enqueue(ctx, tx, events.NewLedgerEvent(eventType, t)); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}
