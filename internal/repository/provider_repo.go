package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localpro/backend/internal/models"
)

type ProviderRepo struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) *ProviderRepo {
	return &ProviderRepo{pool: pool}
}

const providerColumns = `id, account_id, category_id, hourly_rate_cents, latitude, longitude, verification_status, rating, completed_jobs, created_at, updated_at`

func scanProvider(row pgx.Row) (*models.Provider, error) {
	var p models.Provider
	err := row.Scan(&p.ID, &p.AccountID, &p.CategoryID, &p.HourlyRateCents, &p.Latitude, &p.Longitude, &p.VerificationStatus, &p.Rating, &p.CompletedJobs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProviderRepo) Create(ctx context.Context, p *models.Provider) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, account_id, category_id, hourly_rate_cents, latitude, longitude, verification_status, rating, completed_jobs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.AccountID, p.CategoryID, p.HourlyRateCents, p.Latitude, p.Longitude, p.VerificationStatus, p.Rating, p.CompletedJobs).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `
		SELECT `+providerColumns+` FROM providers WHERE id = $1
	`, id))
}

func (r *ProviderRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `
		SELECT `+providerColumns+` FROM providers WHERE account_id = $1
	`, accountID))
}

func (r *ProviderRepo) Update(ctx context.Context, p *models.Provider) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE providers SET category_id = $2, hourly_rate_cents = $3, latitude = $4, longitude = $5, rating = $6, completed_jobs = $7, updated_at = now()
		WHERE id = $1
	`, p.ID, p.CategoryID, p.HourlyRateCents, p.Latitude, p.Longitude, p.Rating, p.CompletedJobs)
	return err
}

// ListVerifiedByCategory returns matching candidates for the geo matcher.
// The derived verification_status column makes this a cheap filter.
func (r *ProviderRepo) ListVerifiedByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+providerColumns+` FROM providers
		WHERE category_id = $1 AND verification_status = $2
	`, categoryID, models.VerificationVerified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SetVerificationStatus writes the status derived by the verification gate.
func (r *ProviderRepo) SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE providers SET verification_status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// IncrementCompletedJobs bumps the completed counter after an engagement
// finishes. Runs within the completion transaction.
func (r *ProviderRepo) IncrementCompletedJobs(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE providers SET completed_jobs = completed_jobs + 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}
