package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts an empty profile for a new user.
func (r *ProfileRepo) CreateTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, displayName string) (*models.Profile, error) {
	p := models.Profile{OwnerID: ownerID, DisplayName: displayName, Categories: []string{}}
	err := tx.QueryRow(ctx, `
		INSERT INTO profiles (owner_id, display_name) VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, ownerID, displayName).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByOwnerID loads the user's profile with its social-media links.
func (r *ProfileRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, display_name, gender, country, categories, created_at, updated_at
		FROM profiles WHERE owner_id = $1
	`, ownerID).Scan(&p.ID, &p.OwnerID, &p.DisplayName, &p.Gender, &p.Country, &p.Categories, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	links, err := r.listLinks(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.SocialLinks = links
	return &p, nil
}

func (r *ProfileRepo) listLinks(ctx context.Context, profileID uuid.UUID) ([]models.SocialMediaLink, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, profile_id, platform, handle, tier_id, followers
		FROM social_media_links WHERE profile_id = $1 ORDER BY created_at, id
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := []models.SocialMediaLink{}
	for rows.Next() {
		var l models.SocialMediaLink
		if err := rows.Scan(&l.ID, &l.ProfileID, &l.Platform, &l.Handle, &l.TierID, &l.Followers); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// UpdateTx rewrites the editable profile fields and replaces its social links,
// bumping updated_at (the profile version).
func (r *ProfileRepo) UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Profile) error {
	err := tx.QueryRow(ctx, `
		UPDATE profiles SET display_name = $2, gender = $3, country = $4, categories = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.DisplayName, p.Gender, p.Country, p.Categories).Scan(&p.UpdatedAt)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM social_media_links WHERE profile_id = $1`, p.ID); err != nil {
		return err
	}
	for i := range p.SocialLinks {
		l := &p.SocialLinks[i]
		l.ProfileID = p.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO social_media_links (profile_id, platform, handle, tier_id, followers)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, p.ID, l.Platform, l.Handle, l.TierID, l.Followers).Scan(&l.ID)
		if err != nil {
			return err
		}
	}
	return nil
}
