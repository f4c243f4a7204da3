package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/repository"
)

// Engagement lifecycle events sent to the notification dispatcher.
const (
	EventEngagementSubmitted = "engagement.submitted"
	EventEngagementApproved  = "engagement.approved"
	EventEngagementRejected  = "engagement.rejected"
	EventEngagementStarted   = "engagement.started"
	EventEngagementCompleted = "engagement.completed"
	EventEngagementCancelled = "engagement.cancelled"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EngagementRepoAPI is the engagement repository surface used by the engine.
type EngagementRepoAPI interface {
	Create(ctx context.Context, e *models.Engagement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Engagement, error)
	FindActiveForPair(ctx context.Context, taskID, providerID uuid.UUID) (*models.Engagement, error)
	Approve(ctx context.Context, tx pgx.Tx, id, approverID uuid.UUID) (bool, error)
	Reject(ctx context.Context, tx pgx.Tx, id uuid.UUID, notes string) (bool, error)
	UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, next models.EngagementStatus, expected ...models.EngagementStatus) (bool, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// EngagementTaskRepo is the task repository surface used by the engine.
type EngagementTaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uuid.UUID, next models.TaskStatus, expected ...models.TaskStatus) (bool, error)
}

// EngagementProviderRepo resolves and mutates the provider side.
type EngagementProviderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error)
	IncrementCompletedJobs(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// PaymentCreator creates the escrow record inside the completion transaction.
type PaymentCreator interface {
	CreateForEngagementTx(ctx context.Context, tx pgx.Tx, e *models.Engagement, grossCents int64) (*models.PaymentRecord, error)
}

// PaymentLookup lets cancel() check that no payout has been released.
type PaymentLookup interface {
	GetByEngagementID(ctx context.Context, engagementID uuid.UUID) (*models.PaymentRecord, error)
}

// EngagementService owns the lifecycle of a client-provider pairing around
// one task. Every transition is a single transaction: read current state,
// validate the guard, write the new state. Transitions are idempotent under
// retry: re-applying an already-applied transition returns the current
// entity, not an error.
type EngagementService struct {
	Pool        TxBeginner
	Engagements EngagementRepoAPI
	Tasks       EngagementTaskRepo
	Providers   EngagementProviderRepo
	Payments    PaymentCreator
	PaymentRead PaymentLookup
	Notifier    Notifier
	Logger      *slog.Logger
}

func NewEngagementService(
	pool TxBeginner,
	engagements EngagementRepoAPI,
	tasks EngagementTaskRepo,
	providers EngagementProviderRepo,
	payments PaymentCreator,
	paymentRead PaymentLookup,
	notifier Notifier,
	logger *slog.Logger,
) *EngagementService {
	return &EngagementService{
		Pool:        pool,
		Engagements: engagements,
		Tasks:       tasks,
		Providers:   providers,
		Payments:    payments,
		PaymentRead: paymentRead,
		Notifier:    notifier,
		Logger:      logger,
	}
}

// SubmitInterest creates a pending engagement for (task, provider). Guards:
// the task is open, the provider is verified at submission time, and no
// non-terminal engagement exists for the pair. The new pending row is also
// the call-center queue entry.
func (s *EngagementService) SubmitInterest(ctx context.Context, taskID uuid.UUID, actorAccountID uuid.UUID, message string) (*models.Engagement, error) {
	provider, err := s.Providers.GetByAccountID(ctx, actorAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account has no provider profile", ErrUnauthorized)
		}
		return nil, err
	}
	if provider.VerificationStatus != models.VerificationVerified {
		return nil, fmt.Errorf("%w: provider is not verified", ErrGuardViolation)
	}

	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.Status != models.TaskStatusOpen {
		return nil, fmt.Errorf("%w: task is %s", ErrGuardViolation, task.Status)
	}

	// Retry no-op: an interest already on file is returned unchanged.
	if existing, err := s.Engagements.FindActiveForPair(ctx, taskID, provider.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	e := &models.Engagement{
		ID:         uuid.New(),
		TaskID:     taskID,
		ProviderID: provider.ID,
		ClientID:   task.ClientID,
		Status:     models.EngagementPending,
		Message:    message,
	}
	if err := s.Engagements.Create(ctx, e); err != nil {
		if isUniqueViolation(err, repository.ConstraintActiveEngagement) {
			// Concurrent duplicate submission; hand back the winner's row.
			if existing, ferr := s.Engagements.FindActiveForPair(ctx, taskID, provider.ID); ferr == nil {
				return existing, nil
			}
			return nil, ErrConflict
		}
		return nil, err
	}

	s.Logger.Info("engagement submitted", "engagement_id", e.ID, "task_id", taskID, "provider_id", provider.ID)
	s.Notifier.Notify(ctx, task.ClientID, EventEngagementSubmitted, eventPayload(e))
	return e, nil
}

// CallCenterDecision approves or rejects a pending engagement. Approval
// re-checks provider verification at decision time, commits the task to this
// single provider (a concurrent second approval loses with ErrConflict), and
// unlocks disclosure by reaching the approved status.
func (s *EngagementService) CallCenterDecision(ctx context.Context, engagementID, approverID uuid.UUID, approverRole string, approve bool, notes string) (*models.Engagement, error) {
	if approverRole != models.RoleCallCenter && approverRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %s cannot decide engagements", ErrUnauthorized, approverRole)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	e, err := s.Engagements.GetByIDForUpdate(ctx, tx, engagementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Idempotent retries.
	if approve && e.Status == models.EngagementApproved {
		return e, nil
	}
	if !approve && e.Status == models.EngagementRejected {
		return e, nil
	}
	if e.Status != models.EngagementPending {
		return nil, fmt.Errorf("%w: engagement is %s", ErrGuardViolation, e.Status)
	}

	if !approve {
		if _, err := s.Engagements.Reject(ctx, tx, engagementID, notes); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		s.Logger.Info("engagement rejected", "engagement_id", engagementID, "approver_id", approverID)
		s.notifyParties(ctx, e, EventEngagementRejected)
		return s.Engagements.GetByID(ctx, engagementID)
	}

	// Invariant: approval requires the provider to still be verified.
	provider, err := s.Providers.GetByID(ctx, e.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider.VerificationStatus != models.VerificationVerified {
		return nil, fmt.Errorf("%w: provider verification has lapsed", ErrGuardViolation)
	}

	ok, err := s.Engagements.Approve(ctx, tx, engagementID, approverID)
	if err != nil {
		if isUniqueViolation(err, repository.ConstraintCommittedEngagement) {
			return nil, fmt.Errorf("%w: task already committed to another provider", ErrConflict)
		}
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: engagement is no longer pending", ErrConflict)
	}

	ok, err = s.Tasks.UpdateStatusIf(ctx, tx, e.TaskID, models.TaskStatusInProgress, models.TaskStatusOpen)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: task is no longer open", ErrGuardViolation)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("engagement approved", "engagement_id", engagementID, "approver_id", approverID)
	s.notifyParties(ctx, e, EventEngagementApproved)
	return s.Engagements.GetByID(ctx, engagementID)
}

// Start marks work begun. Provider-side action, guarded by status approved.
func (s *EngagementService) Start(ctx context.Context, engagementID, actorAccountID uuid.UUID) (*models.Engagement, error) {
	return s.advance(ctx, engagementID, actorAccountID, advanceSpec{
		next:         models.EngagementInProgress,
		from:         models.EngagementApproved,
		providerOnly: true,
		event:        EventEngagementStarted,
	})
}

// Complete marks the work done. Either party may complete. Exactly one
// payment record is created, pending approval, with the gross amount taken
// from the task budget or the provider's negotiated rate.
func (s *EngagementService) Complete(ctx context.Context, engagementID, actorAccountID uuid.UUID) (*models.Engagement, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	e, err := s.Engagements.GetByIDForUpdate(ctx, tx, engagementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if e.Status == models.EngagementCompleted {
		return e, nil
	}
	if err := s.requireParty(ctx, e, actorAccountID); err != nil {
		return nil, err
	}
	if e.Status != models.EngagementInProgress {
		return nil, fmt.Errorf("%w: engagement is %s", ErrGuardViolation, e.Status)
	}

	ok, err := s.Engagements.MarkCompleted(ctx, tx, engagementID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	if _, err := s.Tasks.UpdateStatusIf(ctx, tx, e.TaskID, models.TaskStatusCompleted, models.TaskStatusInProgress); err != nil {
		return nil, err
	}
	if err := s.Providers.IncrementCompletedJobs(ctx, tx, e.ProviderID); err != nil {
		return nil, err
	}

	gross, err := s.grossAmount(ctx, e)
	if err != nil {
		return nil, err
	}
	if _, err := s.Payments.CreateForEngagementTx(ctx, tx, e, gross); err != nil {
		if isUniqueViolation(err, repository.ConstraintOnePaymentPerEngagement) {
			// A concurrent complete already created the record; keep going.
			s.Logger.Warn("payment record already exists", "engagement_id", engagementID)
		} else {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("engagement completed", "engagement_id", engagementID)
	s.notifyParties(ctx, e, EventEngagementCompleted)
	return s.Engagements.GetByID(ctx, engagementID)
}

// Cancel is a client-only transition, legal from any non-terminal state as
// long as no payout has been released. A cancelled committed engagement
// releases the task back to open.
func (s *EngagementService) Cancel(ctx context.Context, engagementID, actorAccountID uuid.UUID) (*models.Engagement, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	e, err := s.Engagements.GetByIDForUpdate(ctx, tx, engagementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if e.Status == models.EngagementCancelled {
		return e, nil
	}
	if e.ClientID != actorAccountID {
		return nil, fmt.Errorf("%w: only the client may cancel", ErrUnauthorized)
	}
	if e.Status.Terminal() {
		return nil, fmt.Errorf("%w: engagement is %s", ErrGuardViolation, e.Status)
	}

	if payment, err := s.PaymentRead.GetByEngagementID(ctx, engagementID); err == nil {
		if payment.Status == models.PaymentReleased {
			return nil, fmt.Errorf("%w: payout already released", ErrGuardViolation)
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	wasCommitted := e.Status.Committed()
	ok, err := s.Engagements.UpdateStatusIf(ctx, tx, engagementID, models.EngagementCancelled,
		models.EngagementPending, models.EngagementApproved, models.EngagementInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if wasCommitted {
		if _, err := s.Tasks.UpdateStatusIf(ctx, tx, e.TaskID, models.TaskStatusOpen, models.TaskStatusInProgress); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("engagement cancelled", "engagement_id", engagementID)
	s.notifyParties(ctx, e, EventEngagementCancelled)
	return s.Engagements.GetByID(ctx, engagementID)
}

// --- helpers ---

type advanceSpec struct {
	next         models.EngagementStatus
	from         models.EngagementStatus
	providerOnly bool
	event        string
}

// advance applies a simple one-step transition with party authorization.
func (s *EngagementService) advance(ctx context.Context, engagementID, actorAccountID uuid.UUID, spec advanceSpec) (*models.Engagement, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	e, err := s.Engagements.GetByIDForUpdate(ctx, tx, engagementID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if e.Status == spec.next {
		return e, nil
	}

	if spec.providerOnly {
		provider, err := s.Providers.GetByID(ctx, e.ProviderID)
		if err != nil {
			return nil, err
		}
		if provider.AccountID != actorAccountID {
			return nil, fmt.Errorf("%w: only the engaged provider may do this", ErrUnauthorized)
		}
	} else if err := s.requireParty(ctx, e, actorAccountID); err != nil {
		return nil, err
	}

	if e.Status != spec.from {
		return nil, fmt.Errorf("%w: engagement is %s", ErrGuardViolation, e.Status)
	}
	ok, err := s.Engagements.UpdateStatusIf(ctx, tx, engagementID, spec.next, spec.from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.notifyParties(ctx, e, spec.event)
	return s.Engagements.GetByID(ctx, engagementID)
}

// requireParty checks the actor is the client or the engaged provider.
func (s *EngagementService) requireParty(ctx context.Context, e *models.Engagement, actorAccountID uuid.UUID) error {
	if e.ClientID == actorAccountID {
		return nil
	}
	provider, err := s.Providers.GetByID(ctx, e.ProviderID)
	if err != nil {
		return err
	}
	if provider.AccountID == actorAccountID {
		return nil
	}
	return fmt.Errorf("%w: actor is not a party to this engagement", ErrUnauthorized)
}

// grossAmount resolves the payable amount: the task budget when set,
// otherwise the provider's hourly rate as the agreed price.
func (s *EngagementService) grossAmount(ctx context.Context, e *models.Engagement) (int64, error) {
	task, err := s.Tasks.GetByID(ctx, e.TaskID)
	if err != nil {
		return 0, err
	}
	if task.BudgetCents != nil && *task.BudgetCents > 0 {
		return *task.BudgetCents, nil
	}
	provider, err := s.Providers.GetByID(ctx, e.ProviderID)
	if err != nil {
		return 0, err
	}
	return provider.HourlyRateCents, nil
}

// notifyParties fans the event out to both sides after the transaction has
// committed. Enqueue failures never roll back the transition.
func (s *EngagementService) notifyParties(ctx context.Context, e *models.Engagement, event string) {
	s.Notifier.Notify(ctx, e.ClientID, event, eventPayload(e))
	if provider, err := s.Providers.GetByID(ctx, e.ProviderID); err == nil {
		s.Notifier.Notify(ctx, provider.AccountID, event, eventPayload(e))
	}
}

func eventPayload(e *models.Engagement) map[string]any {
	return map[string]any{
		"engagement_id": e.ID,
		"task_id":       e.TaskID,
	}
}

// isUniqueViolation reports whether err is a 23505 on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
