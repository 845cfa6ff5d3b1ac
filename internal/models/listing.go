package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing kinds. Jobs are posted by brands, offers are published by influencers.
const (
	ListingKindJob   = "job"
	ListingKindOffer = "offer"
)

// Listing status enums.
const (
	ListingStatusOpen   = "open"
	ListingStatusFilled = "filled"
	ListingStatusClosed = "closed"
)

// Application states. A (profile, listing) pair has at most one.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

type Listing struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Platform     string    `json:"platform"`
	TierID       *int      `json:"tier_id,omitempty"`
	MinFollowers *int64    `json:"min_followers,omitempty"`
	MaxFollowers *int64    `json:"max_followers,omitempty"`
	TargetGender *string   `json:"target_gender,omitempty"`
	Country      string    `json:"country"`
	Categories   []string  `json:"categories"`
	Status       string    `json:"status"`
	PriceCents   int64     `json:"price_cents"`

	Applicants         []uuid.UUID `json:"applicants"`
	AcceptedApplicants []uuid.UUID `json:"accepted_applicants"`
	RejectedApplicants []uuid.UUID `json:"rejected_applicants"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Listing) IsJob() bool   { return l.Kind == ListingKindJob }
func (l *Listing) IsOffer() bool { return l.Kind == ListingKindOffer }

// ApplicationState reports which of the three application sets holds profileID,
// or "" when the profile never applied.
func (l *Listing) ApplicationState(profileID uuid.UUID) string {
	switch {
	case containsID(l.Applicants, profileID):
		return ApplicationPending
	case containsID(l.AcceptedApplicants, profileID):
		return ApplicationAccepted
	case containsID(l.RejectedApplicants, profileID):
		return ApplicationRejected
	}
	return ""
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
