package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relense/influencer-markt-sub003/internal/eligibility"
	"github.com/relense/influencer-markt-sub003/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrNotEligible    = errors.New("profile is not eligible for this listing")
	ErrAlreadyApplied = errors.New("profile already applied")
	ErrListingClosed  = errors.New("listing is not open")
	ErrNotPending     = errors.New("application is not pending")
	ErrInvalidListing = errors.New("invalid listing")
)

// CreateInput is the validated create-listing payload.
type CreateInput struct {
	Kind         string   `json:"kind"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Platform     string   `json:"platform"`
	TierID       *int     `json:"tier_id"`
	MinFollowers *int64   `json:"min_followers"`
	MaxFollowers *int64   `json:"max_followers"`
	TargetGender *string  `json:"target_gender"`
	Country      string   `json:"country"`
	Categories   []string `json:"categories"`
	PriceCents   int64    `json:"price_cents"`
}

// Store is the listing persistence the service needs.
type Store interface {
	Create(ctx context.Context, l *models.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListByStatus(ctx context.Context, kind, status string) ([]*models.Listing, error)
	AddApplicant(ctx context.Context, listingID, profileID uuid.UUID) (bool, error)
	ResolveApplicant(ctx context.Context, listingID, profileID uuid.UUID, state string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ProfileLookup resolves the caller's profile.
type ProfileLookup interface {
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error)
}

// Matcher decides eligibility; *eligibility.CachedMatcher satisfies it.
type Matcher interface {
	IsEligible(ctx context.Context, profile *models.Profile, listing *models.Listing) bool
	Annotate(ctx context.Context, profile *models.Profile, listings []*models.Listing) []eligibility.Annotated
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, in *CreateInput) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	List(ctx context.Context, ownerID uuid.UUID, kind string) ([]eligibility.Annotated, error)
	Apply(ctx context.Context, ownerID, listingID uuid.UUID) error
	Accept(ctx context.Context, ownerID, listingID, applicantID uuid.UUID) error
	Reject(ctx context.Context, ownerID, listingID, applicantID uuid.UUID) error
	Close(ctx context.Context, ownerID, listingID uuid.UUID) error
}

type service struct {
	store    Store
	profiles ProfileLookup
	matcher  Matcher
	log      *slog.Logger
}

func NewService(store Store, profiles ProfileLookup, matcher Matcher, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, profiles: profiles, matcher: matcher, log: log}
}

var _ Service = (*service)(nil)

func notFound(what string, id uuid.UUID, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func (s *service) profileFor(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, notFound("profile for owner", ownerID, err)
	}
	return p, nil
}

// normalizeCategories lowercases each category so overlap is case-insensitive.
func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, in *CreateInput) (*models.Listing, error) {
	if in == nil {
		return nil, ErrInvalidListing
	}
	creator, err := s.profileFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	l := &models.Listing{
		Kind:         in.Kind,
		CreatorID:    creator.ID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Platform:     in.Platform,
		TargetGender: in.TargetGender,
		Country:      strings.ToUpper(in.Country),
		Categories:   normalizeCategories(in.Categories),
		Status:       models.ListingStatusOpen,
		PriceCents:   in.PriceCents,
	}
	switch in.Kind {
	case models.ListingKindJob:
		if in.TierID == nil {
			return nil, fmt.Errorf("%w: jobs need a tier_id", ErrInvalidListing)
		}
		l.TierID = in.TierID
	case models.ListingKindOffer:
		l.MinFollowers, l.MaxFollowers = in.MinFollowers, in.MaxFollowers
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, in.Kind)
	}
	if err := s.store.Create(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("listing created", "listing_id", l.ID, "kind", l.Kind, "creator_id", creator.ID)
	return l, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("listing", id, err)
	}
	return l, nil
}

// List returns open listings of kind, each flagged with the caller's eligibility.
func (s *service) List(ctx context.Context, ownerID uuid.UUID, kind string) ([]eligibility.Annotated, error) {
	if kind != models.ListingKindJob && kind != models.ListingKindOffer {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidListing, kind)
	}
	profile, err := s.profileFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByStatus(ctx, kind, models.ListingStatusOpen)
	if err != nil {
		return nil, err
	}
	return s.matcher.Annotate(ctx, profile, list), nil
}

func (s *service) Apply(ctx context.Context, ownerID, listingID uuid.UUID) error {
	profile, err := s.profileFor(ctx, ownerID)
	if err != nil {
		return err
	}
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if l.Status != models.ListingStatusOpen {
		return ErrListingClosed
	}
	if l.ApplicationState(profile.ID) != "" {
		return ErrAlreadyApplied
	}
	if !s.matcher.IsEligible(ctx, profile, l) {
		return fmt.Errorf("%w: failed %s", ErrNotEligible, strings.Join(eligibility.Check(profile, l).Failed(), ", "))
	}
	added, err := s.store.AddApplicant(ctx, listingID, profile.ID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyApplied
	}
	s.log.Info("application submitted", "listing_id", listingID, "profile_id", profile.ID)
	return nil
}

func (s *service) Accept(ctx context.Context, ownerID, listingID, applicantID uuid.UUID) error {
	return s.resolve(ctx, ownerID, listingID, applicantID, models.ApplicationAccepted)
}

func (s *service) Reject(ctx context.Context, ownerID, listingID, applicantID uuid.UUID) error {
	return s.resolve(ctx, ownerID, listingID, applicantID, models.ApplicationRejected)
}

// resolve moves a pending applicant to state. Only the listing's creator may do it.
func (s *service) resolve(ctx context.Context, ownerID, listingID, applicantID uuid.UUID, state string) error {
	l, err := s.ownedListing(ctx, ownerID, listingID)
	if err != nil {
		return err
	}
	if l.ApplicationState(applicantID) != models.ApplicationPending {
		return ErrNotPending
	}
	ok, err := s.store.ResolveApplicant(ctx, listingID, applicantID, state)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}
	s.log.Info("application resolved", "listing_id", listingID, "profile_id", applicantID, "state", state)
	return nil
}

func (s *service) Close(ctx context.Context, ownerID, listingID uuid.UUID) error {
	l, err := s.ownedListing(ctx, ownerID, listingID)
	if err != nil {
		return err
	}
	if l.Status == models.ListingStatusClosed {
		return nil
	}
	if err := s.store.UpdateStatus(ctx, listingID, models.ListingStatusClosed); err != nil {
		return notFound("listing", listingID, err)
	}
	return nil
}

func (s *service) ownedListing(ctx context.Context, ownerID, listingID uuid.UUID) (*models.Listing, error) {
	profile, err := s.profileFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	l, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.CreatorID != profile.ID {
		return nil, ErrForbidden
	}
	return l, nil
}
