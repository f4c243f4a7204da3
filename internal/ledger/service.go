package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/models"
)

// Service records financial movements tied to payment records. Entries are
// written inside the transaction that moves the payment, so books and state
// never diverge.
type Service interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*models.LedgerEntry, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) AppendTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return s.repo.AppendTx(ctx, tx, e)
}

func (s *service) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*models.LedgerEntry, error) {
	return s.repo.ListByPaymentID(ctx, paymentID)
}
