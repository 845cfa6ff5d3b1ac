package eligibility

import (
	"github.com/relense/influencer-markt-sub003/internal/models"
)

// Result holds the outcome of each targeting criterion for one (profile, listing) pair.
type Result struct {
	Platform   bool `json:"platform"`
	Gender     bool `json:"gender"`
	Country    bool `json:"country"`
	Categories bool `json:"categories"`
	NotAuthor  bool `json:"not_author"`
}

// Eligible is true only when every criterion holds.
func (r Result) Eligible() bool {
	return r.Platform && r.Gender && r.Country && r.Categories && r.NotAuthor
}

// Failed names the criteria that did not hold, in a fixed order.
func (r Result) Failed() []string {
	var out []string
	if !r.Platform {
		out = append(out, "platform")
	}
	if !r.Gender {
		out = append(out, "gender")
	}
	if !r.Country {
		out = append(out, "country")
	}
	if !r.Categories {
		out = append(out, "categories")
	}
	if !r.NotAuthor {
		out = append(out, "not_author")
	}
	return out
}

// IsEligible reports whether profile satisfies listing's targeting criteria.
// Missing data never errors; it simply does not match.
func IsEligible(profile *models.Profile, listing *models.Listing) bool {
	return Check(profile, listing).Eligible()
}

// Check evaluates every criterion independently so callers can explain a refusal.
func Check(profile *models.Profile, listing *models.Listing) Result {
	if profile == nil || listing == nil {
		return Result{}
	}
	return Result{
		Platform:   matchesPlatform(profile, listing),
		Gender:     listing.TargetGender == nil || (profile.Gender != nil && *profile.Gender == *listing.TargetGender),
		Country:    listing.Country != "" && profile.Country == listing.Country,
		Categories: overlaps(profile.Categories, listing.Categories),
		NotAuthor:  !listing.IsJob() || listing.CreatorID != profile.ID,
	}
}

// matchesPlatform needs a link on the target platform. Jobs compare follower
// tiers exactly; offers accept followers inside [min, max] or above max.
func matchesPlatform(profile *models.Profile, listing *models.Listing) bool {
	link := profile.LinkFor(listing.Platform)
	if link == nil {
		return false
	}
	switch listing.Kind {
	case models.ListingKindJob:
		return link.TierID != nil && listing.TierID != nil && *link.TierID == *listing.TierID
	case models.ListingKindOffer:
		return withinFollowerRange(link.Followers, listing.MinFollowers, listing.MaxFollowers)
	}
	return false
}

// withinFollowerRange reports followers in [lo, hi] or above hi. A nil bound is open.
func withinFollowerRange(followers int64, lo, hi *int64) bool {
	if hi != nil && followers > *hi {
		return true
	}
	return (lo == nil || followers >= *lo) && (hi == nil || followers <= *hi)
}

func overlaps(have, want []string) bool {
	if len(have) == 0 || len(want) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(want))
	for _, c := range want {
		set[c] = struct{}{}
	}
	for _, c := range have {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// Annotated pairs a listing with the caller's eligibility for the list view badge.
type Annotated struct {
	Listing  *models.Listing
	Eligible bool
}

// Annotate flags every listing for the given profile, keeping input order.
func Annotate(profile *models.Profile, listings []*models.Listing) []Annotated {
	out := make([]Annotated, 0, len(listings))
	for _, l := range listings {
		out = append(out, Annotated{Listing: l, Eligible: IsEligible(profile, l)})
	}
	return out
}
