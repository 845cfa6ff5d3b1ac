package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

const selectListing = `
	SELECT id, kind, creator_id, title, description, platform, tier_id, min_followers, max_followers,
	       target_gender, country, categories, status, price_cents, created_at, updated_at
	FROM listings`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.Kind, &l.CreatorID, &l.Title, &l.Description, &l.Platform, &l.TierID, &l.MinFollowers, &l.MaxFollowers,
		&l.TargetGender, &l.Country, &l.Categories, &l.Status, &l.PriceCents, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Applicants = []uuid.UUID{}
	l.AcceptedApplicants = []uuid.UUID{}
	l.RejectedApplicants = []uuid.UUID{}
	return &l, nil
}

func (r *ListingRepo) Create(ctx context.Context, l *models.Listing) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO listings (kind, creator_id, title, description, platform, tier_id, min_followers, max_followers,
		                      target_gender, country, categories, status, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, l.Kind, l.CreatorID, l.Title, l.Description, l.Platform, l.TierID, l.MinFollowers, l.MaxFollowers,
		l.TargetGender, l.Country, l.Categories, l.Status, l.PriceCents).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// GetByID loads a listing with its three application sets.
func (r *ListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, selectListing+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT profile_id, state FROM listing_applications WHERE listing_id = $1 ORDER BY created_at
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			profileID uuid.UUID
			state     string
		)
		if err := rows.Scan(&profileID, &state); err != nil {
			return nil, err
		}
		switch state {
		case models.ApplicationPending:
			l.Applicants = append(l.Applicants, profileID)
		case models.ApplicationAccepted:
			l.AcceptedApplicants = append(l.AcceptedApplicants, profileID)
		case models.ApplicationRejected:
			l.RejectedApplicants = append(l.RejectedApplicants, profileID)
		}
	}
	return l, rows.Err()
}

// ListByStatus returns listings of a kind in the given status, newest first.
// Application sets are not populated.
func (r *ListingRepo) ListByStatus(ctx context.Context, kind, status string) ([]*models.Listing, error) {
	rows, err := r.pool.Query(ctx, selectListing+`
		WHERE kind = $1 AND status = $2 ORDER BY created_at DESC
	`, kind, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// AddApplicant inserts a pending application. It reports false when the
// profile already has an application in any state.
func (r *ListingRepo) AddApplicant(ctx context.Context, listingID, profileID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO listing_applications (listing_id, profile_id, state)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (listing_id, profile_id) DO NOTHING
	`, listingID, profileID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResolveApplicant moves a pending application to accepted or rejected.
// It reports false when no pending application exists.
func (r *ListingRepo) ResolveApplicant(ctx context.Context, listingID, profileID uuid.UUID, state string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listing_applications SET state = $3, updated_at = now()
		WHERE listing_id = $1 AND profile_id = $2 AND state = 'pending'
	`, listingID, profileID, state)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ListingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listings SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
