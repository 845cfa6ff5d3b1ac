package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relense/influencer-markt-sub003/internal/ledger"
	"github.com/relense/influencer-markt-sub003/internal/middleware"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubLedger struct {
	balance      int64
	spendErr     error
	authErr      error
	refundErr    error
	nonCredit    bool
	spentAmount  int64
	historyLimit int
	refundCalls  int
}

func (s *stubLedger) Balance(context.Context, uuid.UUID) (int64, error) { return s.balance, nil }
func (s *stubLedger) History(_ context.Context, _ uuid.UUID, limit, _ int) ([]*models.CreditTransaction, error) {
	s.historyLimit = limit
	return []*models.CreditTransaction{{ID: uuid.New(), AmountCents: 10, Direction: models.CreditGrant}}, nil
}
func (s *stubLedger) SpendCredits(_ context.Context, _, orderID uuid.UUID, amount int64) (*models.CreditTransaction, error) {
	if s.spendErr != nil {
		return nil, s.spendErr
	}
	s.spentAmount = amount
	return &models.CreditTransaction{ID: uuid.New(), AmountCents: amount, Direction: models.CreditWithdrawal, OrderID: &orderID}, nil
}
func (s *stubLedger) Refund(_ context.Context, orderID uuid.UUID, value int64, isCredit bool) (*models.Refund, error) {
	s.refundCalls++
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	if !isCredit {
		return nil, nil
	}
	txID := uuid.New()
	return &models.Refund{ID: uuid.New(), OrderID: orderID, ValueCents: value, IsCredit: true, TransactionID: &txID}, nil
}
func (s *stubLedger) AuthorizeRefund(context.Context, uuid.UUID, uuid.UUID) error { return s.authErr }
func (s *stubLedger) GrantCredits(context.Context, uuid.UUID, int64, string) (*models.CreditTransaction, error) {
	return nil, nil
}

var _ ledger.Service = (*stubLedger)(nil)

func newRouter(l ledger.Service, ownerID uuid.UUID) http.Handler {
	h := NewHandler(l, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithOwnerID(req.Context(), ownerID)))
		})
	})
	r.Get("/credits/balance", h.GetBalance)
	r.Get("/credits/transactions", h.ListTransactions)
	r.With(middleware.SpendCheck()).Post("/orders/{id}/spend-credits", h.SpendCredits)
	r.Post("/orders/{id}/refunds", h.CreateRefund)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetBalance(t *testing.T) {
	r := newRouter(&stubLedger{balance: 4200}, uuid.New())

	rec := do(r, http.MethodGet, "/credits/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int64
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["balance_cents"] != 4200 {
		t.Errorf("balance_cents = %d, want 4200", body["balance_cents"])
	}
}

func TestListTransactions_Paging(t *testing.T) {
	l := &stubLedger{}
	r := newRouter(l, uuid.New())

	if rec := do(r, http.MethodGet, "/credits/transactions?limit=1000", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if l.historyLimit != maxPageSize {
		t.Errorf("limit = %d, want capped at %d", l.historyLimit, maxPageSize)
	}
	if rec := do(r, http.MethodGet, "/credits/transactions?offset=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset: expected 400, got %d", rec.Code)
	}
}

func TestSpendCredits_UsesCheckedAmount(t *testing.T) {
	l := &stubLedger{}
	r := newRouter(l, uuid.New())

	rec := do(r, http.MethodPost, "/orders/"+uuid.NewString()+"/spend-credits", `{"amount_cents":1500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if l.spentAmount != 1500 {
		t.Errorf("spent %d, want 1500", l.spentAmount)
	}
}

func TestSpendCredits_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: order x", ledger.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: too much", ledger.ErrInvalidAmount), http.StatusBadRequest},
		{ledger.ErrForbidden, http.StatusForbidden},
		{ledger.ErrInsufficientCredits, http.StatusConflict},
		{ledger.ErrAlreadyDiscounted, http.StatusConflict},
		{fmt.Errorf("update order discount: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newRouter(&stubLedger{spendErr: tc.err}, uuid.New())
			rec := do(r, http.MethodPost, "/orders/"+uuid.NewString()+"/spend-credits", `{"amount_cents":100}`)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestSpendCredits_RejectedBeforeLedger(t *testing.T) {
	l := &stubLedger{}
	r := newRouter(l, uuid.New())

	rec := do(r, http.MethodPost, "/orders/"+uuid.NewString()+"/spend-credits", `{"amount_cents":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if l.spentAmount != 0 {
		t.Error("ledger was called")
	}
}

func TestCreateRefund(t *testing.T) {
	l := &stubLedger{}
	r := newRouter(l, uuid.New())
	path := "/orders/" + uuid.NewString() + "/refunds"

	rec := do(r, http.MethodPost, path, `{"value_cents":700,"is_credit":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit refund: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp RefundResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TransactionID == nil || resp.ValueCents != 700 {
		t.Errorf("unexpected refund: %+v", resp)
	}

	rec = do(r, http.MethodPost, path, `{"value_cents":700,"is_credit":false}`)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("non-credit refund: expected 501, got %d", rec.Code)
	}
}

func TestCreateRefund_OnlyInfluencer(t *testing.T) {
	l := &stubLedger{authErr: ledger.ErrForbidden}
	r := newRouter(l, uuid.New())

	rec := do(r, http.MethodPost, "/orders/"+uuid.NewString()+"/refunds", `{"value_cents":700,"is_credit":true}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if l.refundCalls != 0 {
		t.Error("refund executed without authorization")
	}
}
