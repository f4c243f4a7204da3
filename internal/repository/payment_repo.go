package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localpro/backend/internal/models"
)

// ConstraintOnePaymentPerEngagement guards the exactly-once payment record.
const ConstraintOnePaymentPerEngagement = "uq_payments_engagement"

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, engagement_id, gross_cents, fee_cents, tax_cents, payout_cents, status, approver_id, resolved_at, released_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := row.Scan(&p.ID, &p.EngagementID, &p.GrossCents, &p.FeeCents, &p.TaxCents, &p.PayoutCents, &p.Status, &p.ApproverID, &p.ResolvedAt, &p.ReleasedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateTx inserts the payment record inside the completion transaction.
// uq_payments_engagement makes the insert exactly-once per engagement.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.PaymentRecord) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payments (id, engagement_id, gross_cents, fee_cents, tax_cents, payout_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.EngagementID, p.GrossCents, p.FeeCents, p.TaxCents, p.PayoutCents, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id))
}

func (r *PaymentRepo) GetByEngagementID(ctx context.Context, engagementID uuid.UUID) (*models.PaymentRecord, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE engagement_id = $1
	`, engagementID))
}

// ListPendingApproval is the payment-approver queue, oldest first.
func (r *PaymentRepo) ListPendingApproval(ctx context.Context, limit int) ([]*models.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2
	`, models.PaymentPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Resolve moves pending → approved|rejected, stamping the approver. The
// conditional WHERE makes concurrent decisions race safely.
func (r *PaymentRepo) Resolve(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID, next models.PaymentStatus) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payments SET status = $2, approver_id = $3, resolved_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, next, approverID, models.PaymentPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Release moves approved → released and freezes the final amounts.
func (r *PaymentRepo) Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, feeCents, taxCents, payoutCents int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payments SET status = $2, fee_cents = $3, tax_cents = $4, payout_cents = $5, released_at = now(), updated_at = now()
		WHERE id = $1 AND status = $6
	`, id, models.PaymentReleased, feeCents, taxCents, payoutCents, models.PaymentApproved)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
