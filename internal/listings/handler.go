package listings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relense/influencer-markt-sub003/internal/eligibility"
	"github.com/relense/influencer-markt-sub003/internal/middleware"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

const maxListingBody = 1 << 20

type ListingResponse struct {
	ID                 string      `json:"id"`
	Kind               string      `json:"kind"`
	CreatorID          string      `json:"creator_id"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	Platform           string      `json:"platform"`
	TierID             *int        `json:"tier_id,omitempty"`
	MinFollowers       *int64      `json:"min_followers,omitempty"`
	MaxFollowers       *int64      `json:"max_followers,omitempty"`
	TargetGender       *string     `json:"target_gender"`
	Country            string      `json:"country"`
	Categories         []string    `json:"categories"`
	Status             string      `json:"status"`
	PriceCents         int64       `json:"price_cents"`
	Applicants         []uuid.UUID `json:"applicants,omitempty"`
	AcceptedApplicants []uuid.UUID `json:"accepted_applicants,omitempty"`
	RejectedApplicants []uuid.UUID `json:"rejected_applicants,omitempty"`
	Eligible           *bool       `json:"eligible,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

type Handler struct {
	svc       Service
	validator *Validator
	log       *slog.Logger
}

func NewHandler(svc Service, validator *Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes. Unknown errors are
// logged and reported as a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidListing):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrAlreadyApplied),
		errors.Is(err, ErrNotPending), errors.Is(err, ErrListingClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("listing request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// POST /api/v1/listings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxListingBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	in, err := h.validator.Validate(raw)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	l, err := h.svc.Create(r.Context(), ownerID, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listingToResponse(l))
}

// GET /api/v1/listings?kind=job|offer
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = models.ListingKindJob
	}
	annotated, err := h.svc.List(r.Context(), ownerID, kind)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": annotatedToResponse(annotated)})
}

// GET /api/v1/listings/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listingToResponse(l))
}

// POST /api/v1/listings/{id}/apply
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := h.svc.Apply(r.Context(), ownerID, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": models.ApplicationPending})
}

// POST /api/v1/listings/{id}/applications/{profileID}/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.svc.Accept, models.ApplicationAccepted)
}

// POST /api/v1/listings/{id}/applications/{profileID}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.svc.Reject, models.ApplicationRejected)
}

type resolveFunc func(ctx context.Context, ownerID, listingID, applicantID uuid.UUID) error

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, fn resolveFunc, state string) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	listingID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	applicantID, ok := pathID(r, "profileID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}
	if err := fn(r.Context(), ownerID, listingID, applicantID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": state})
}

// POST /api/v1/listings/{id}/close
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := h.svc.Close(r.Context(), ownerID, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.ListingStatusClosed})
}

func listingToResponse(l *models.Listing) ListingResponse {
	return ListingResponse{
		ID:                 l.ID.String(),
		Kind:               l.Kind,
		CreatorID:          l.CreatorID.String(),
		Title:              l.Title,
		Description:        l.Description,
		Platform:           l.Platform,
		TierID:             l.TierID,
		MinFollowers:       l.MinFollowers,
		MaxFollowers:       l.MaxFollowers,
		TargetGender:       l.TargetGender,
		Country:            l.Country,
		Categories:         l.Categories,
		Status:             l.Status,
		PriceCents:         l.PriceCents,
		Applicants:         l.Applicants,
		AcceptedApplicants: l.AcceptedApplicants,
		RejectedApplicants: l.RejectedApplicants,
		CreatedAt:          l.CreatedAt,
	}
}

func annotatedToResponse(list []eligibility.Annotated) []ListingResponse {
	out := make([]ListingResponse, 0, len(list))
	for _, a := range list {
		resp := listingToResponse(a.Listing)
		eligible := a.Eligible
		resp.Eligible = &eligible
		out = append(out, resp)
	}
	return out
}
