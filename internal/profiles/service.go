package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrInvalidProfile = errors.New("invalid profile")
)

var (
	knownPlatforms = map[string]bool{
		models.PlatformInstagram: true,
		models.PlatformTikTok:    true,
		models.PlatformYouTube:   true,
		models.PlatformTwitter:   true,
		models.PlatformFacebook:  true,
	}
	knownGenders = map[string]bool{
		models.GenderFemale: true,
		models.GenderMale:   true,
		models.GenderOther:  true,
	}
	countryCode = regexp.MustCompile(`^[A-Z]{2}$`)
)

type LinkInput struct {
	Platform  string `json:"platform"`
	Handle    string `json:"handle"`
	TierID    *int   `json:"tier_id"`
	Followers int64  `json:"followers"`
}

type UpdateInput struct {
	DisplayName string      `json:"display_name"`
	Gender      *string     `json:"gender"`
	Country     string      `json:"country"`
	Categories  []string    `json:"categories"`
	SocialLinks []LinkInput `json:"social_links"`
}

// Store is the profile persistence the service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error
}

type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, ownerID uuid.UUID, in *UpdateInput) (*models.Profile, error)
}

type service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, log: log}
}

var _ Service = (*service)(nil)

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update replaces the editable fields and the full set of social links in one
// transaction. The new updated_at becomes the profile version, which
// invalidates cached eligibility answers.
func (s *service) Update(ctx context.Context, ownerID uuid.UUID, in *UpdateInput) (*models.Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	p.DisplayName = strings.TrimSpace(in.DisplayName)
	p.Gender = in.Gender
	p.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	p.Categories = normalizeCategories(in.Categories)
	p.SocialLinks = make([]models.SocialMediaLink, 0, len(in.SocialLinks))
	for _, l := range in.SocialLinks {
		p.SocialLinks = append(p.SocialLinks, models.SocialMediaLink{
			ProfileID: p.ID,
			Platform:  l.Platform,
			Handle:    strings.TrimSpace(l.Handle),
			TierID:    l.TierID,
			Followers: l.Followers,
		})
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.store.UpdateTx(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("profile updated", "profile_id", p.ID, "links", len(p.SocialLinks))
	return p, nil
}

func validate(in *UpdateInput) error {
	if in == nil {
		return ErrInvalidProfile
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return fmt.Errorf("%w: display_name is required", ErrInvalidProfile)
	}
	if in.Gender != nil && !knownGenders[*in.Gender] {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidProfile, *in.Gender)
	}
	if c := strings.ToUpper(strings.TrimSpace(in.Country)); c != "" && !countryCode.MatchString(c) {
		return fmt.Errorf("%w: country must be a two-letter code", ErrInvalidProfile)
	}
	seen := make(map[string]bool, len(in.SocialLinks))
	for _, l := range in.SocialLinks {
		if !knownPlatforms[l.Platform] {
			return fmt.Errorf("%w: unknown platform %q", ErrInvalidProfile, l.Platform)
		}
		if seen[l.Platform] {
			return fmt.Errorf("%w: duplicate link for %s", ErrInvalidProfile, l.Platform)
		}
		seen[l.Platform] = true
		if l.Followers < 0 {
			return fmt.Errorf("%w: followers must not be negative", ErrInvalidProfile)
		}
		if l.TierID != nil && *l.TierID < 1 {
			return fmt.Errorf("%w: tier_id must be positive", ErrInvalidProfile)
		}
	}
	return nil
}

func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
