package models

import (
	"time"

	"github.com/google/uuid"
)

// Social platforms a profile can link and a listing can target.
const (
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
)

// Gender reference codes.
const (
	GenderFemale = "female"
	GenderMale   = "male"
	GenderOther  = "other"
)

type Profile struct {
	ID          uuid.UUID         `json:"id"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	DisplayName string            `json:"display_name"`
	Gender      *string           `json:"gender,omitempty"`
	Country     string            `json:"country"`
	Categories  []string          `json:"categories"`
	SocialLinks []SocialMediaLink `json:"social_links"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Version identifies a profile revision. Any profile edit bumps UpdatedAt.
func (p *Profile) Version() int64 {
	return p.UpdatedAt.UnixNano()
}

// LinkFor returns the profile's link on the given platform, or nil.
// At most one link per platform is assumed; the first one wins.
func (p *Profile) LinkFor(platform string) *SocialMediaLink {
	for i := range p.SocialLinks {
		if p.SocialLinks[i].Platform == platform {
			return &p.SocialLinks[i]
		}
	}
	return nil
}

type SocialMediaLink struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Platform  string    `json:"platform"`
	Handle    string    `json:"handle"`
	TierID    *int      `json:"tier_id,omitempty"`
	Followers int64     `json:"followers"`
}

// User is the login identity owning exactly one profile.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
