package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// DocumentRepo is the document persistence surface for the workflow.
type DocumentRepo interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.Document, error)
	ListPendingReview(ctx context.Context, limit int) ([]*models.Document, error)
	Review(ctx context.Context, id, reviewerID uuid.UUID, next models.DocumentStatus, notes string, expected ...models.DocumentStatus) (bool, error)
}

// ProviderLookup resolves the submitting account's provider profile.
type ProviderLookup interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error)
}

// Recomputer re-derives provider verification after a document decision.
type Recomputer interface {
	Recompute(ctx context.Context, providerID uuid.UUID) (models.VerificationStatus, error)
}

type Service interface {
	Submit(ctx context.Context, accountID uuid.UUID, docType models.DocumentType, storageRef string) (*models.Document, error)
	ListMine(ctx context.Context, accountID uuid.UUID) ([]*models.Document, error)
	ListPendingReview(ctx context.Context, limit int) ([]*models.Document, error)
	Review(ctx context.Context, reviewerID uuid.UUID, reviewerRole string, docID uuid.UUID, approve bool, notes string) (*models.Document, error)
}

type service struct {
	repo      DocumentRepo
	providers ProviderLookup
	gate      Recomputer
}

func NewService(repo DocumentRepo, providers ProviderLookup, gate Recomputer) *service {
	return &service{repo: repo, providers: providers, gate: gate}
}

var _ Service = (*service)(nil)

// Submit records an uploaded document as pending review. Resubmitting a
// document type is allowed at any time; the latest decision on each upload
// feeds the verification gate.
func (s *service) Submit(ctx context.Context, accountID uuid.UUID, docType models.DocumentType, storageRef string) (*models.Document, error) {
	if docType.Class() == models.ClassOther && docType != models.DocumentOther {
		return nil, fmt.Errorf("%w: unknown document type %q", services.ErrValidation, docType)
	}
	if storageRef == "" {
		return nil, fmt.Errorf("%w: storage_ref is required", services.ErrValidation)
	}
	provider, err := s.providers.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account has no provider profile", services.ErrNotFound)
		}
		return nil, err
	}

	d := &models.Document{
		ID:         uuid.New(),
		ProviderID: provider.ID,
		Type:       docType,
		StorageRef: storageRef,
		Status:     models.DocumentPending,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if _, err := s.gate.Recompute(ctx, provider.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) ListMine(ctx context.Context, accountID uuid.UUID) ([]*models.Document, error) {
	provider, err := s.providers.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return s.repo.ListByProviderID(ctx, provider.ID)
}

func (s *service) ListPendingReview(ctx context.Context, limit int) ([]*models.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListPendingReview(ctx, limit)
}

// Review approves or rejects a document and re-derives the provider's
// verification status. Re-applying the same decision returns the document
// unchanged; a different decision on a resolved document is a guard
// violation since decisions are final.
func (s *service) Review(ctx context.Context, reviewerID uuid.UUID, reviewerRole string, docID uuid.UUID, approve bool, notes string) (*models.Document, error) {
	if reviewerRole != models.RoleVerifier && reviewerRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %s cannot review documents", services.ErrUnauthorized, reviewerRole)
	}

	d, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}

	next := models.DocumentRejected
	if approve {
		next = models.DocumentApproved
	}
	if d.Status == next {
		return d, nil
	}
	if !d.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: document is %s", services.ErrGuardViolation, d.Status)
	}

	ok, err := s.repo.Review(ctx, docID, reviewerID, next, notes, models.DocumentPending, models.DocumentUnderReview)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrConflict
	}

	if _, err := s.gate.Recompute(ctx, d.ProviderID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, docID)
}
