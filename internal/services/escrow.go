package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/ledger"
	"github.com/localpro/backend/internal/models"
)

// Payment lifecycle events.
const (
	EventPaymentPending  = "payment.pending"
	EventPaymentApproved = "payment.approved"
	EventPaymentRejected = "payment.rejected"
	EventPaymentReleased = "payment.released"
)

// EscrowPaymentRepo is the payment repository surface used by the sub-machine.
type EscrowPaymentRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
	GetByEngagementID(ctx context.Context, engagementID uuid.UUID) (*models.PaymentRecord, error)
	Resolve(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID, next models.PaymentStatus) (bool, error)
	Release(ctx context.Context, tx pgx.Tx, id uuid.UUID, feeCents, taxCents, payoutCents int64) (bool, error)
}

// EscrowEngagementLookup resolves the engagement a payment belongs to.
type EscrowEngagementLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
}

// EscrowProviderLookup resolves the provider account behind an engagement.
type EscrowProviderLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

// EscrowService is the payment approval sub-machine:
// pending → approved → released, or pending → rejected. Created exactly once
// when an engagement completes; resolved only by a payment approver; a
// record is immutable once released or rejected. Rejecting a payment never
// reverts the engagement: the financial decision is separate from the work.
type EscrowService struct {
	Pool        TxBeginner
	Payments    EscrowPaymentRepo
	Engagements EscrowEngagementLookup
	Providers   EscrowProviderLookup
	Ledger      ledger.Service
	Notifier    Notifier
	Logger      *slog.Logger
}

func NewEscrowService(pool TxBeginner, payments EscrowPaymentRepo, engagements EscrowEngagementLookup, providers EscrowProviderLookup, ledgerSvc ledger.Service, notifier Notifier, logger *slog.Logger) *EscrowService {
	return &EscrowService{Pool: pool, Payments: payments, Engagements: engagements, Providers: providers, Ledger: ledgerSvc, Notifier: notifier, Logger: logger}
}

// CreateForEngagementTx inserts the pending payment record inside the
// completion transaction and books the escrow hold. The platform fee is
// computed up front; tax and payout are finalized at release.
func (s *EscrowService) CreateForEngagementTx(ctx context.Context, tx pgx.Tx, e *models.Engagement, grossCents int64) (*models.PaymentRecord, error) {
	p := &models.PaymentRecord{
		ID:           uuid.New(),
		EngagementID: e.ID,
		GrossCents:   grossCents,
		FeeCents:     grossCents * models.PlatformFeePercent / 100,
		Status:       models.PaymentPending,
	}
	if err := s.Payments.CreateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
		ID:          uuid.New(),
		PaymentID:   p.ID,
		AccountID:   &e.ClientID,
		EntryType:   models.LedgerEntryEscrowHold,
		AmountCents: grossCents,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Decide moves a pending payment to approved or rejected. Payment-approver
// only; idempotent when re-applying the same decision; a concurrent loser
// gets ErrConflict.
func (s *EscrowService) Decide(ctx context.Context, paymentID, approverID uuid.UUID, approverRole string, approve bool) (*models.PaymentRecord, error) {
	if approverRole != models.RolePaymentApprover && approverRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %s cannot decide payments", ErrUnauthorized, approverRole)
	}

	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	next := models.PaymentRejected
	if approve {
		next = models.PaymentApproved
	}
	if p.Status == next {
		return p, nil
	}
	if p.Status != models.PaymentPending {
		return nil, fmt.Errorf("%w: payment is %s", ErrGuardViolation, p.Status)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.Payments.Resolve(ctx, tx, paymentID, approverID, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if next == models.PaymentRejected {
		// The held amount flows back to the client's side of the books.
		if err := s.Ledger.AppendTx(ctx, tx, &models.LedgerEntry{
			ID:          uuid.New(),
			PaymentID:   p.ID,
			EntryType:   models.LedgerEntryRefund,
			AmountCents: p.GrossCents,
		}); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	event := EventPaymentRejected
	if approve {
		event = EventPaymentApproved
	}
	s.Logger.Info("payment resolved", "payment_id", paymentID, "status", next, "approver_id", approverID)
	s.notifyParties(ctx, p, event)
	return s.Payments.GetByID(ctx, paymentID)
}

// Release disburses an approved payment. This is where the payout amount
// (gross minus platform fee minus tax) is finalized and made immutable.
func (s *EscrowService) Release(ctx context.Context, paymentID, approverID uuid.UUID, approverRole string) (*models.PaymentRecord, error) {
	if approverRole != models.RolePaymentApprover && approverRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %s cannot release payments", ErrUnauthorized, approverRole)
	}

	p, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Status == models.PaymentReleased {
		return p, nil
	}
	if p.Status != models.PaymentApproved {
		return nil, fmt.Errorf("%w: payment is %s", ErrGuardViolation, p.Status)
	}

	fee := p.GrossCents * models.PlatformFeePercent / 100
	tax := p.GrossCents * models.TaxPercent / 100
	payout := p.GrossCents - fee - tax

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ok, err := s.Payments.Release(ctx, tx, paymentID, fee, tax, payout)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	for _, entry := range []*models.LedgerEntry{
		{ID: uuid.New(), PaymentID: p.ID, EntryType: models.LedgerEntryPlatformFee, AmountCents: fee},
		{ID: uuid.New(), PaymentID: p.ID, EntryType: models.LedgerEntryTax, AmountCents: tax},
		{ID: uuid.New(), PaymentID: p.ID, EntryType: models.LedgerEntryPayout, AmountCents: payout},
	} {
		if err := s.Ledger.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Logger.Info("payment released", "payment_id", paymentID, "payout_cents", payout, "approver_id", approverID)
	s.notifyParties(ctx, p, EventPaymentReleased)
	return s.Payments.GetByID(ctx, paymentID)
}

// notifyParties addresses payment events to the engagement's client and
// provider accounts. A failed lookup loses the notification, never the write.
func (s *EscrowService) notifyParties(ctx context.Context, p *models.PaymentRecord, event string) {
	if s.Notifier == nil {
		return
	}
	e, err := s.Engagements.GetByID(ctx, p.EngagementID)
	if err != nil {
		s.Logger.Error("resolve payment parties", "payment_id", p.ID, "error", err)
		return
	}
	payload := map[string]any{
		"payment_id":    p.ID,
		"engagement_id": p.EngagementID,
		"at":            time.Now().UTC(),
	}
	s.Notifier.Notify(ctx, e.ClientID, event, payload)
	if provider, err := s.Providers.GetByID(ctx, e.ProviderID); err == nil {
		s.Notifier.Notify(ctx, provider.AccountID, event, payload)
	}
}
