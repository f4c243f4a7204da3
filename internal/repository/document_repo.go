package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localpro/backend/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `id, provider_id, doc_type, storage_ref, status, reviewer_id, reviewed_at, notes, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.ProviderID, &d.Type, &d.StorageRef, &d.Status, &d.ReviewerID, &d.ReviewedAt, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, provider_id, doc_type, storage_ref, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, d.ID, d.ProviderID, d.Type, d.StorageRef, d.Status).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = $1
	`, id))
}

func (r *DocumentRepo) ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.Document, error) {
	return r.list(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE provider_id = $1 ORDER BY created_at DESC
	`, providerID)
}

// ListPendingReview is the verifier work queue, oldest upload first.
func (r *DocumentRepo) ListPendingReview(ctx context.Context, limit int) ([]*models.Document, error) {
	return r.list(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE status = ANY($1) ORDER BY created_at ASC LIMIT $2
	`, []string{string(models.DocumentPending), string(models.DocumentUnderReview)}, limit)
}

// Review resolves a document conditionally: the write only lands if the row
// is still in one of the expected statuses. Returns false on a lost race.
func (r *DocumentRepo) Review(ctx context.Context, id, reviewerID uuid.UUID, next models.DocumentStatus, notes string, expected ...models.DocumentStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $2, reviewer_id = $3, reviewed_at = now(), notes = $4, updated_at = now()
		WHERE id = $1 AND status = ANY($5)
	`, id, next, reviewerID, notes, statusStrings(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApprovedTypes returns the distinct approved document types of a provider,
// the input to the verification gate's class-coverage check.
func (r *DocumentRepo) ApprovedTypes(ctx context.Context, providerID uuid.UUID) ([]models.DocumentType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT doc_type FROM documents
		WHERE provider_id = $1 AND status = $2
	`, providerID, models.DocumentApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []models.DocumentType
	for rows.Next() {
		var t models.DocumentType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *DocumentRepo) list(ctx context.Context, sql string, args ...any) ([]*models.Document, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
