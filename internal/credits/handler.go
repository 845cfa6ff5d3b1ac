// Package credits exposes the credit ledger over HTTP.
package credits

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relense/influencer-markt-sub003/internal/ledger"
	"github.com/relense/influencer-markt-sub003/internal/middleware"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type TransactionResponse struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Direction   string    `json:"direction"`
	OrderID     *string   `json:"order_id,omitempty"`
	RefundID    *string   `json:"refund_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type RefundRequest struct {
	ValueCents int64 `json:"value_cents"`
	IsCredit   bool  `json:"is_credit"`
}

type RefundResponse struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	ValueCents    int64   `json:"value_cents"`
	IsCredit      bool    `json:"is_credit"`
	TransactionID *string `json:"transaction_id,omitempty"`
	PaymentID     *string `json:"payment_id,omitempty"`
}

type Handler struct {
	ledger ledger.Service
	log    *slog.Logger
}

func NewHandler(l ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: l, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps ledger errors to status codes. Failures are not
// retried; the caller sees the outcome directly.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientCredits), errors.Is(err, ledger.ErrAlreadyDiscounted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("credit request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// GET /api/v1/credits/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bal, err := h.ledger.Balance(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": bal})
}

// GET /api/v1/credits/transactions?limit=&offset=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPageSize)
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	txns, err := h.ledger.History(r.Context(), ownerID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionToResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out, "limit": limit, "offset": offset})
}

// POST /api/v1/orders/{id}/spend-credits
// The amount is parsed and checked by middleware.SpendCheck.
func (h *Handler) SpendCredits(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	amount, ok := middleware.SpendAmountFromCtx(r.Context())
	if !ok {
		var body struct {
			AmountCents int64 `json:"amount_cents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		amount = body.AmountCents
	}
	entry, err := h.ledger.SpendCredits(r.Context(), ownerID, orderID, amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionToResponse(entry))
}

// POST /api/v1/orders/{id}/refunds
// Only the order's influencer may refund. Non-credit refunds are not
// implemented and answer 501 without writing anything.
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.ledger.AuthorizeRefund(r.Context(), ownerID, orderID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	refund, err := h.ledger.Refund(r.Context(), orderID, req.ValueCents, req.IsCredit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if refund == nil {
		writeError(w, http.StatusNotImplemented, "non-credit refunds are not supported")
		return
	}
	writeJSON(w, http.StatusCreated, RefundResponse{
		ID:            refund.ID.String(),
		OrderID:       refund.OrderID.String(),
		ValueCents:    refund.ValueCents,
		IsCredit:      refund.IsCredit,
		TransactionID: idString(refund.TransactionID),
		PaymentID:     idString(refund.PaymentID),
	})
}

func transactionToResponse(t *models.CreditTransaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID.String(),
		AmountCents: t.AmountCents,
		Direction:   t.Direction,
		OrderID:     idString(t.OrderID),
		RefundID:    idString(t.RefundID),
		Reason:      t.Reason,
		CreatedAt:   t.CreatedAt,
	}
}
