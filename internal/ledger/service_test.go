package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relense/influencer-markt-sub003/internal/events"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- recordingTx satisfies pgx.Tx; only Commit/Rollback are observed. ---

type recordingTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *recordingTx) Commit(context.Context) error {
	t.committed = true
	return nil
}
func (t *recordingTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *recordingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *recordingTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *recordingTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *recordingTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *recordingTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *recordingTx) Conn() *pgx.Conn { return nil }

type mockDB struct {
	txs []*recordingTx
}

func (m *mockDB) Begin(context.Context) (pgx.Tx, error) {
	tx := &recordingTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *mockDB) last() *recordingTx { return m.txs[len(m.txs)-1] }

// --- in-memory store shared by the repo mocks. Writes made inside a tx are
// staged and only applied on commit, so rollback leaves the store untouched. ---

type store struct {
	accounts map[uuid.UUID]*models.CreditAccount // keyed by owner id
	txns     []*models.CreditTransaction
	orders   map[uuid.UUID]*models.Order
	refunds  []*models.Refund
	payments map[uuid.UUID]*models.Payment // keyed by order id

	failUpdateDiscount bool
}

func newStore() *store {
	return &store{
		accounts: make(map[uuid.UUID]*models.CreditAccount),
		orders:   make(map[uuid.UUID]*models.Order),
		payments: make(map[uuid.UUID]*models.Payment),
	}
}

type accountRepo struct {
	s       *store
	pending []*models.CreditTransaction
}

func (r *accountRepo) GetByOwnerID(_ context.Context, ownerID uuid.UUID) (*models.CreditAccount, error) {
	a, ok := r.s.accounts[ownerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}
func (r *accountRepo) GetByOwnerIDForUpdate(ctx context.Context, _ pgx.Tx, ownerID uuid.UUID) (*models.CreditAccount, error) {
	return r.GetByOwnerID(ctx, ownerID)
}
func (r *accountRepo) GetByProfileIDForUpdate(_ context.Context, _ pgx.Tx, profileID uuid.UUID) (*models.CreditAccount, error) {
	for _, a := range r.s.accounts {
		if a.ProfileID == profileID {
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}
func (r *accountRepo) ListTransactions(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*models.CreditTransaction, error) {
	var out []*models.CreditTransaction
	for i := len(r.s.txns) - 1; i >= 0; i-- {
		if r.s.txns[i].AccountID == accountID {
			out = append(out, r.s.txns[i])
		}
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
func (r *accountRepo) ListTransactionsTx(ctx context.Context, _ pgx.Tx, accountID uuid.UUID) ([]*models.CreditTransaction, error) {
	return r.ListTransactions(ctx, accountID, 0, 0)
}
func (r *accountRepo) AppendTransaction(_ context.Context, _ pgx.Tx, t *models.CreditTransaction) error {
	r.pending = append(r.pending, t)
	return nil
}

type orderRepo struct {
	s       *store
	pending map[uuid.UUID]models.Order
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return o, nil
}
func (r *orderRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}
func (r *orderRepo) UpdateDiscount(_ context.Context, _ pgx.Tx, orderID, txID uuid.UUID, total int64) error {
	if r.s.failUpdateDiscount {
		return errors.New("connection reset")
	}
	o := *r.s.orders[orderID]
	o.DiscountTxID = &txID
	o.TotalWithDiscountCents = total
	r.pending[orderID] = o
	return nil
}

type refundRepo struct {
	s       *store
	pending []*models.Refund
}

func (r *refundRepo) Create(_ context.Context, _ pgx.Tx, rf *models.Refund) error {
	r.pending = append(r.pending, rf)
	return nil
}
func (r *refundRepo) SumByOrderID(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (int64, error) {
	var total int64
	for _, rf := range r.s.refunds {
		if rf.OrderID == orderID {
			total += rf.ValueCents
		}
	}
	return total, nil
}
func (r *refundRepo) find(id uuid.UUID) *models.Refund {
	for _, rf := range r.pending {
		if rf.ID == id {
			return rf
		}
	}
	return nil
}
func (r *refundRepo) LinkTransaction(_ context.Context, _ pgx.Tx, refundID, txID uuid.UUID) error {
	rf := r.find(refundID)
	if rf == nil {
		return pgx.ErrNoRows
	}
	id := txID
	rf.TransactionID = &id
	return nil
}
func (r *refundRepo) FindPaymentByOrderID(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (*models.Payment, error) {
	return r.s.payments[orderID], nil
}
func (r *refundRepo) LinkPayment(_ context.Context, _ pgx.Tx, refundID, paymentID uuid.UUID) error {
	rf := r.find(refundID)
	if rf == nil {
		return pgx.ErrNoRows
	}
	id := paymentID
	rf.PaymentID = &id
	return nil
}

type harness struct {
	svc    Service
	db     *mockDB
	store  *store
	acc    *accountRepo
	ord    *orderRepo
	ref    *refundRepo
	events []events.LedgerEventArgs
}

func newHarness() *harness {
	h := &harness{db: &mockDB{}, store: newStore()}
	h.acc = &accountRepo{s: h.store}
	h.ord = &orderRepo{s: h.store, pending: make(map[uuid.UUID]models.Order)}
	h.ref = &refundRepo{s: h.store}
	enqueue := func(_ context.Context, _ pgx.Tx, args events.LedgerEventArgs) error {
		h.events = append(h.events, args)
		return nil
	}
	h.svc = NewService(h.db, h.acc, h.ord, h.ref, enqueue, nil)
	return h
}

// flush applies staged writes if the last tx committed, else discards them.
func (h *harness) flush() {
	if len(h.db.txs) > 0 && h.db.last().committed {
		h.store.txns = append(h.store.txns, h.acc.pending...)
		for id, o := range h.ord.pending {
			cp := o
			h.store.orders[id] = &cp
		}
		h.store.refunds = append(h.store.refunds, h.ref.pending...)
	}
	h.acc.pending = nil
	h.ord.pending = make(map[uuid.UUID]models.Order)
	h.ref.pending = nil
}

// seedAccount creates an account for a new owner/profile with the given grants.
func (h *harness) seedAccount(grants ...int64) (ownerID, profileID uuid.UUID, acc *models.CreditAccount) {
	ownerID, profileID = uuid.New(), uuid.New()
	acc = &models.CreditAccount{ID: uuid.New(), ProfileID: profileID}
	h.store.accounts[ownerID] = acc
	for _, g := range grants {
		h.store.txns = append(h.store.txns, &models.CreditTransaction{
			ID: uuid.New(), AccountID: acc.ID, AmountCents: g, Direction: models.CreditGrant,
		})
	}
	return ownerID, profileID, acc
}

func (h *harness) seedOrder(buyer, influencer uuid.UUID, total int64) *models.Order {
	o := &models.Order{ID: uuid.New(), BuyerID: buyer, InfluencerID: influencer, TotalCents: total, TotalWithDiscountCents: total}
	h.store.orders[o.ID] = o
	return o
}

// ---------------------------------------------------------------------------
// Balance
// ---------------------------------------------------------------------------

func TestBalance_GrantsMinusWithdrawals(t *testing.T) {
	txns := []*models.CreditTransaction{
		{AmountCents: 1000, Direction: models.CreditGrant},
		{AmountCents: 300, Direction: models.CreditWithdrawal},
		{AmountCents: 250, Direction: models.CreditGrant},
	}
	if got := Balance(txns); got != 950 {
		t.Errorf("Balance = %d, want 950", got)
	}
	if got := Balance(nil); got != 0 {
		t.Errorf("Balance(nil) = %d, want 0", got)
	}
}

func TestBalance_OrderIndependent(t *testing.T) {
	a := &models.CreditTransaction{AmountCents: 700, Direction: models.CreditGrant}
	b := &models.CreditTransaction{AmountCents: 200, Direction: models.CreditWithdrawal}
	c := &models.CreditTransaction{AmountCents: 50, Direction: models.CreditWithdrawal}

	perms := [][]*models.CreditTransaction{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, p := range perms {
		if got := Balance(p); got != 450 {
			t.Errorf("Balance(%v) = %d, want 450", p, got)
		}
	}
}

func TestServiceBalance_UnknownOwner(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Balance(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistory_NewestFirstWithPaging(t *testing.T) {
	h := newHarness()
	owner, _, _ := h.seedAccount(100, 200, 300)

	got, err := h.svc.History(context.Background(), owner, 2, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 || got[0].AmountCents != 300 || got[1].AmountCents != 200 {
		t.Fatalf("unexpected page: %+v", got)
	}
	got, _ = h.svc.History(context.Background(), owner, 2, 2)
	if len(got) != 1 || got[0].AmountCents != 100 {
		t.Fatalf("unexpected second page: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// SpendCredits
// ---------------------------------------------------------------------------

func TestSpendCredits_WithdrawsAndDiscounts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount(5000)
	order := h.seedOrder(profile, uuid.New(), 10000)

	before, _ := h.svc.Balance(ctx, owner)
	entry, err := h.svc.SpendCredits(ctx, owner, order.ID, 1500)
	if err != nil {
		t.Fatalf("SpendCredits: %v", err)
	}
	h.flush()

	if !h.db.last().committed {
		t.Fatal("expected commit")
	}
	after, _ := h.svc.Balance(ctx, owner)
	if before-after != 1500 {
		t.Errorf("balance moved by %d, want 1500", before-after)
	}
	if entry.Direction != models.CreditWithdrawal || entry.AmountCents != 1500 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	got := h.store.orders[order.ID]
	if got.TotalWithDiscountCents != 8500 {
		t.Errorf("TotalWithDiscount = %d, want 8500", got.TotalWithDiscountCents)
	}
	if got.DiscountTxID == nil || *got.DiscountTxID != entry.ID {
		t.Error("order does not reference the withdrawal")
	}
	if len(h.events) != 1 || h.events[0].Type != events.TypeCreditsSpent {
		t.Errorf("expected one credits.spent event, got %+v", h.events)
	}
}

func TestSpendCredits_FullTotal(t *testing.T) {
	h := newHarness()
	owner, profile, _ := h.seedAccount(2000)
	order := h.seedOrder(profile, uuid.New(), 2000)

	if _, err := h.svc.SpendCredits(context.Background(), owner, order.ID, 2000); err != nil {
		t.Fatalf("SpendCredits: %v", err)
	}
	h.flush()
	if h.store.orders[order.ID].TotalWithDiscountCents != 0 {
		t.Errorf("TotalWithDiscount = %d, want 0", h.store.orders[order.ID].TotalWithDiscountCents)
	}
}

func TestSpendCredits_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		grant   int64
		total   int64
		amount  int64
		wantErr error
	}{
		{"zero amount", 1000, 1000, 0, ErrInvalidAmount},
		{"negative amount", 1000, 1000, -5, ErrInvalidAmount},
		{"exceeds order total", 5000, 1000, 1001, ErrInvalidAmount},
		{"exceeds balance", 500, 1000, 501, ErrInsufficientCredits},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			owner, profile, _ := h.seedAccount(tc.grant)
			order := h.seedOrder(profile, uuid.New(), tc.total)

			_, err := h.svc.SpendCredits(context.Background(), owner, order.ID, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			h.flush()
			if len(h.store.txns) != 1 {
				t.Errorf("ledger changed: %d transactions", len(h.store.txns))
			}
			if h.store.orders[order.ID].DiscountTxID != nil {
				t.Error("order changed")
			}
			if len(h.events) != 0 {
				t.Error("event enqueued for rejected spend")
			}
		})
	}
}

func TestSpendCredits_NotFound(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount(1000)
	order := h.seedOrder(profile, uuid.New(), 1000)

	if _, err := h.svc.SpendCredits(ctx, uuid.New(), order.ID, 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown owner: expected ErrNotFound, got %v", err)
	}
	if _, err := h.svc.SpendCredits(ctx, owner, uuid.New(), 100); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown order: expected ErrNotFound, got %v", err)
	}
}

func TestSpendCredits_OtherBuyersOrder(t *testing.T) {
	h := newHarness()
	owner, _, _ := h.seedAccount(1000)
	order := h.seedOrder(uuid.New(), uuid.New(), 1000)

	_, err := h.svc.SpendCredits(context.Background(), owner, order.ID, 100)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSpendCredits_AlreadyDiscounted(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount(5000)
	order := h.seedOrder(profile, uuid.New(), 3000)

	if _, err := h.svc.SpendCredits(ctx, owner, order.ID, 1000); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	h.flush()
	if _, err := h.svc.SpendCredits(ctx, owner, order.ID, 500); !errors.Is(err, ErrAlreadyDiscounted) {
		t.Fatalf("expected ErrAlreadyDiscounted, got %v", err)
	}
}

func TestSpendCredits_OrderUpdateFailureRollsBack(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount(5000)
	order := h.seedOrder(profile, uuid.New(), 10000)
	h.store.failUpdateDiscount = true

	if _, err := h.svc.SpendCredits(ctx, owner, order.ID, 1000); err == nil {
		t.Fatal("expected error")
	}
	tx := h.db.last()
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback without commit, got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	h.flush()
	if bal, _ := h.svc.Balance(ctx, owner); bal != 5000 {
		t.Errorf("balance = %d, want 5000", bal)
	}
	if h.store.orders[order.ID].TotalWithDiscountCents != 10000 {
		t.Error("order total changed")
	}
}

// ---------------------------------------------------------------------------
// Refund
// ---------------------------------------------------------------------------

func TestRefund_CreditGrantsBuyer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, acc := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 4000)
	payment := &models.Payment{ID: uuid.New(), OrderID: order.ID, AmountCents: 4000}
	h.store.payments[order.ID] = payment

	refund, err := h.svc.Refund(ctx, order.ID, 1200, true)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	h.flush()

	if len(h.store.refunds) != 1 {
		t.Fatalf("expected 1 refund, got %d", len(h.store.refunds))
	}
	if len(h.store.txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(h.store.txns))
	}
	grant := h.store.txns[0]
	if grant.Direction != models.CreditGrant || grant.AmountCents != 1200 || grant.AccountID != acc.ID {
		t.Errorf("unexpected grant: %+v", grant)
	}
	if grant.RefundID == nil || *grant.RefundID != refund.ID {
		t.Error("grant does not reference the refund")
	}
	stored := h.store.refunds[0]
	if stored.TransactionID == nil || *stored.TransactionID != grant.ID {
		t.Error("refund does not reference the grant")
	}
	if stored.PaymentID == nil || *stored.PaymentID != payment.ID {
		t.Error("refund does not reference the payment")
	}
	if !stored.IsCredit || stored.ValueCents != 1200 || stored.OrderID != order.ID {
		t.Errorf("unexpected refund: %+v", stored)
	}
	if bal, _ := h.svc.Balance(ctx, owner); bal != 1200 {
		t.Errorf("buyer balance = %d, want 1200", bal)
	}
	if len(h.events) != 1 || h.events[0].Type != events.TypeCreditsRefunded {
		t.Errorf("expected one credits.refunded event, got %+v", h.events)
	}
}

func TestRefund_WithoutPayment(t *testing.T) {
	h := newHarness()
	_, profile, _ := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 4000)

	refund, err := h.svc.Refund(context.Background(), order.ID, 4000, true)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refund.PaymentID != nil {
		t.Error("expected no payment link")
	}
}

func TestRefund_NonCreditWritesNothing(t *testing.T) {
	h := newHarness()
	_, profile, _ := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 4000)

	refund, err := h.svc.Refund(context.Background(), order.ID, 1000, false)
	if err != nil || refund != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", refund, err)
	}
	if len(h.db.txs) != 0 {
		t.Error("non-credit refund opened a transaction")
	}
	if len(h.store.txns) != 0 || len(h.store.refunds) != 0 || len(h.events) != 0 {
		t.Error("non-credit refund wrote state")
	}
}

func TestRefund_Rejections(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, profile, _ := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 1000)

	if _, err := h.svc.Refund(ctx, order.ID, 0, true); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero value: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := h.svc.Refund(ctx, order.ID, 1001, true); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("above total: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := h.svc.Refund(ctx, uuid.New(), 100, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown order: expected ErrNotFound, got %v", err)
	}
	orphan := h.seedOrder(uuid.New(), uuid.New(), 1000)
	if _, err := h.svc.Refund(ctx, orphan.ID, 100, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("buyer without account: expected ErrNotFound, got %v", err)
	}
	h.flush()
	if len(h.store.refunds) != 0 || len(h.store.txns) != 0 {
		t.Error("rejected refund wrote state")
	}
}

func TestRefund_CumulativeBoundedByOrderTotal(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 4000)

	if _, err := h.svc.Refund(ctx, order.ID, 4000, true); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	h.flush()
	for i := 0; i < 2; i++ {
		if _, err := h.svc.Refund(ctx, order.ID, 4000, true); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("repeat refund %d: expected ErrInvalidAmount, got %v", i+1, err)
		}
		h.flush()
	}
	if _, err := h.svc.Refund(ctx, order.ID, 1, true); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("fully refunded order: expected ErrInvalidAmount, got %v", err)
	}
	h.flush()

	if len(h.store.refunds) != 1 {
		t.Errorf("refunds = %d, want 1", len(h.store.refunds))
	}
	if bal, _ := h.svc.Balance(ctx, owner); bal != 4000 {
		t.Errorf("buyer balance = %d, want 4000", bal)
	}
}

func TestRefund_PartialRefundsUpToTotal(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount()
	order := h.seedOrder(profile, uuid.New(), 4000)

	for _, v := range []int64{1500, 2500} {
		if _, err := h.svc.Refund(ctx, order.ID, v, true); err != nil {
			t.Fatalf("refund %d: %v", v, err)
		}
		h.flush()
	}
	if _, err := h.svc.Refund(ctx, order.ID, 1, true); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("over remaining: expected ErrInvalidAmount, got %v", err)
	}
	h.flush()
	if bal, _ := h.svc.Balance(ctx, owner); bal != 4000 {
		t.Errorf("buyer balance = %d, want 4000", bal)
	}
}

func TestAuthorizeRefund_OnlyInfluencer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	buyerOwner, buyerProfile, _ := h.seedAccount()
	infOwner, infProfile, _ := h.seedAccount()
	order := h.seedOrder(buyerProfile, infProfile, 1000)

	if err := h.svc.AuthorizeRefund(ctx, infOwner, order.ID); err != nil {
		t.Errorf("influencer: %v", err)
	}
	if err := h.svc.AuthorizeRefund(ctx, buyerOwner, order.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("buyer: expected ErrForbidden, got %v", err)
	}
	if err := h.svc.AuthorizeRefund(ctx, infOwner, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown order: expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GrantCredits
// ---------------------------------------------------------------------------

func TestGrantCredits(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner, profile, _ := h.seedAccount(100)

	grant, err := h.svc.GrantCredits(ctx, profile, 900, ReasonSignupBonus)
	if err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}
	h.flush()
	if grant.Reason != ReasonSignupBonus || grant.Direction != models.CreditGrant {
		t.Errorf("unexpected grant: %+v", grant)
	}
	if bal, _ := h.svc.Balance(ctx, owner); bal != 1000 {
		t.Errorf("balance = %d, want 1000", bal)
	}
	if _, err := h.svc.GrantCredits(ctx, profile, 0, ReasonSignupBonus); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero grant: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := h.svc.GrantCredits(ctx, uuid.New(), 10, ReasonSignupBonus); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown profile: expected ErrNotFound, got %v", err)
	}
}
