package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const ctxSpendKey contextKey = "parsed_spend"

// maxSpendBody caps the body SpendCheck will buffer.
const maxSpendBody = 1 << 16

type parsedSpend struct {
	AmountCents int64 `json:"amount_cents"`
}

// SpendAmountFromCtx returns the amount parsed by SpendCheck; ok is false if unset.
func SpendAmountFromCtx(ctx context.Context) (int64, bool) {
	if s, ok := ctx.Value(ctxSpendKey).(*parsedSpend); ok {
		return s.AmountCents, true
	}
	return 0, false
}

// SpendCheck rejects credit spends without an owner or with a non-positive
// amount before they reach the ledger. It reads the body to extract
// "amount_cents", then replaces r.Body so downstream handlers can re-read it.
func SpendCheck() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := OwnerIDFromCtx(r.Context()); !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxSpendBody+1))
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			if len(bodyBytes) > maxSpendBody {
				http.Error(w, `{"error":"body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedSpend
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if peek.AmountCents <= 0 {
				http.Error(w, `{"error":"amount_cents must be > 0"}`, http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), ctxSpendKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
