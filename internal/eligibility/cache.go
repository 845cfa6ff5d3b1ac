package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

// CachedMatcher memoizes IsEligible per (profile id, profile version, listing id).
// Listing criteria are immutable once created, so the profile version is the
// only thing that can invalidate an entry. A nil client or a non-positive TTL
// disables caching.
type CachedMatcher struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

func NewCachedMatcher(client redis.UniversalClient, ttl time.Duration, log *slog.Logger) *CachedMatcher {
	if ttl <= 0 {
		client = nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedMatcher{client: client, prefix: "eligibility", ttl: ttl, log: log}
}

func (m *CachedMatcher) key(profile *models.Profile, listing *models.Listing) string {
	return fmt.Sprintf("%s:%s:%d:%s", m.prefix, profile.ID, profile.Version(), listing.ID)
}

// IsEligible returns the cached answer when present, otherwise computes and stores it.
// Redis errors degrade to a direct computation.
func (m *CachedMatcher) IsEligible(ctx context.Context, profile *models.Profile, listing *models.Listing) bool {
	if m == nil || m.client == nil || profile == nil || listing == nil {
		return IsEligible(profile, listing)
	}
	key := m.key(profile, listing)
	v, err := m.client.Get(ctx, key).Result()
	if err == nil {
		return v == "1"
	}
	if err != redis.Nil {
		m.log.Warn("eligibility cache read failed", "key", key, "error", err)
	}
	ok := IsEligible(profile, listing)
	val := "0"
	if ok {
		val = "1"
	}
	if err := m.client.Set(ctx, key, val, m.ttl).Err(); err != nil {
		m.log.Warn("eligibility cache write failed", "key", key, "error", err)
	}
	return ok
}

// Annotate is the cached counterpart of the package-level Annotate.
func (m *CachedMatcher) Annotate(ctx context.Context, profile *models.Profile, listings []*models.Listing) []Annotated {
	out := make([]Annotated, 0, len(listings))
	for _, l := range listings {
		out = append(out, Annotated{Listing: l, Eligible: m.IsEligible(ctx, profile, l)})
	}
	return out
}
