package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localpro/backend/internal/models"
)

// Partial unique index names; violations surface as pgconn.PgError 23505 and
// are mapped to domain errors by the engagement service.
const (
	ConstraintActiveEngagement    = "uq_engagements_active_pair"
	ConstraintCommittedEngagement = "uq_engagements_task_committed"
)

type EngagementRepo struct {
	pool *pgxpool.Pool
}

func NewEngagementRepo(pool *pgxpool.Pool) *EngagementRepo {
	return &EngagementRepo{pool: pool}
}

const engagementColumns = `id, task_id, provider_id, client_id, status, message, notes, approver_id, approved_at, completed_at, created_at, updated_at`

func scanEngagement(row pgx.Row) (*models.Engagement, error) {
	var e models.Engagement
	err := row.Scan(&e.ID, &e.TaskID, &e.ProviderID, &e.ClientID, &e.Status, &e.Message, &e.Notes, &e.ApproverID, &e.ApprovedAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new pending engagement. The uq_engagements_active_pair
// partial index rejects a second non-terminal engagement for the same
// (task, provider) pair.
func (r *EngagementRepo) Create(ctx context.Context, e *models.Engagement) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO engagements (id, task_id, provider_id, client_id, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, e.ID, e.TaskID, e.ProviderID, e.ClientID, e.Status, e.Message).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *EngagementRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error) {
	return scanEngagement(r.pool.QueryRow(ctx, `
		SELECT `+engagementColumns+` FROM engagements WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the engagement row. Call within a transaction.
func (r *EngagementRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Engagement, error) {
	return scanEngagement(tx.QueryRow(ctx, `
		SELECT `+engagementColumns+` FROM engagements WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *EngagementRepo) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Engagement, error) {
	return r.list(ctx, `
		SELECT `+engagementColumns+` FROM engagements
		WHERE task_id = $1 ORDER BY created_at ASC
	`, taskID)
}

// FindActiveForPair returns the non-terminal engagement for a (task, provider)
// pair, or pgx.ErrNoRows.
func (r *EngagementRepo) FindActiveForPair(ctx context.Context, taskID, providerID uuid.UUID) (*models.Engagement, error) {
	return scanEngagement(r.pool.QueryRow(ctx, `
		SELECT `+engagementColumns+` FROM engagements
		WHERE task_id = $1 AND provider_id = $2
		  AND status NOT IN ('rejected', 'cancelled', 'completed')
	`, taskID, providerID))
}

// ListPendingReview is the call-center queue: pending engagements, oldest first.
func (r *EngagementRepo) ListPendingReview(ctx context.Context, limit int) ([]*models.Engagement, error) {
	return r.list(ctx, `
		SELECT `+engagementColumns+` FROM engagements
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2
	`, models.EngagementPending, limit)
}

// Approve moves pending → approved, stamping the call-center approver. The
// conditional WHERE is the optimistic-concurrency check; the committed-task
// partial index turns a double-approval race into a 23505 for the loser.
func (r *EngagementRepo) Approve(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE engagements SET status = $2, approver_id = $3, approved_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.EngagementApproved, approverID, models.EngagementPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Reject moves pending → rejected with the reviewer's notes.
func (r *EngagementRepo) Reject(ctx context.Context, tx pgx.Tx, id uuid.UUID, notes string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE engagements SET status = $2, notes = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.EngagementRejected, notes, models.EngagementPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatusIf moves the engagement to next only from an expected status.
func (r *EngagementRepo) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, next models.EngagementStatus, expected ...models.EngagementStatus) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE engagements SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
	`, id, next, statusStrings(expected))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted moves in_progress → completed and stamps the completion time.
func (r *EngagementRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE engagements SET status = $2, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.EngagementCompleted, models.EngagementInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EngagementRepo) list(ctx context.Context, sql string, args ...any) ([]*models.Engagement, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Engagement
	for rows.Next() {
		e, err := scanEngagement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
