package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localpro/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendTx inserts an entry inside the caller's transaction. Entries are
// append-only; there is no update or delete path.
func (r *Repository) AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, payment_id, account_id, entry_type, amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.PaymentID, e.AccountID, e.EntryType, e.AmountCents).Scan(&e.CreatedAt)
}

func (r *Repository) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payment_id, account_id, entry_type, amount_cents, created_at
		FROM ledger_entries WHERE payment_id = $1 ORDER BY created_at ASC
	`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.AccountID, &e.EntryType, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
