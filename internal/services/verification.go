package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/models"
)

// GateDocumentRepo is the document repository interface for the gate.
type GateDocumentRepo interface {
	ListByProviderID(ctx context.Context, providerID uuid.UUID) ([]*models.Document, error)
	ApprovedTypes(ctx context.Context, providerID uuid.UUID) ([]models.DocumentType, error)
}

// GateProviderRepo writes the derived verification status back onto the
// provider row.
type GateProviderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	SetVerificationStatus(ctx context.Context, id uuid.UUID, status models.VerificationStatus) error
}

// VerificationGate derives per-provider verification state from document
// records. It is recomputed on every document decision, never trusted from a
// stale cache. Engagements already at approved or later are not revoked when
// a provider's verification regresses.
type VerificationGate struct {
	Documents GateDocumentRepo
	Providers GateProviderRepo
	Notifier  Notifier
	Logger    *slog.Logger
}

func NewVerificationGate(documents GateDocumentRepo, providers GateProviderRepo, notifier Notifier, logger *slog.Logger) *VerificationGate {
	return &VerificationGate{Documents: documents, Providers: providers, Notifier: notifier, Logger: logger}
}

// IsFullyVerified reports whether the approved document types cover every
// required class. Types within a class form an OR-group.
func IsFullyVerified(approved []models.DocumentType) bool {
	covered := make(map[models.DocumentClass]bool, len(approved))
	for _, t := range approved {
		covered[t.Class()] = true
	}
	for _, class := range models.RequiredDocumentClasses {
		if !covered[class] {
			return false
		}
	}
	return true
}

// Recompute derives the provider's verification status from its current
// document set and persists it. A regression (a previously approved document
// rejected on resubmission) demotes matching eligibility immediately.
func (g *VerificationGate) Recompute(ctx context.Context, providerID uuid.UUID) (models.VerificationStatus, error) {
	prev, err := g.Providers.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	docs, err := g.Documents.ListByProviderID(ctx, providerID)
	if err != nil {
		return "", err
	}
	approved, err := g.Documents.ApprovedTypes(ctx, providerID)
	if err != nil {
		return "", err
	}
	status := deriveStatus(docs, approved)

	if status == prev.VerificationStatus {
		return status, nil
	}
	if err := g.Providers.SetVerificationStatus(ctx, providerID, status); err != nil {
		return "", err
	}
	g.Logger.Info("provider verification status changed",
		"provider_id", providerID, "from", prev.VerificationStatus, "to", status)

	if g.Notifier != nil {
		g.Notifier.Notify(ctx, prev.AccountID, "provider.verification_changed", map[string]any{
			"provider_id": providerID,
			"status":      status,
		})
	}
	return status, nil
}

// deriveStatus computes the profile status from the full document set and
// the distinct approved types. Approved coverage of every class wins;
// otherwise the provider is pending while anything is still reviewable,
// rejected when everything was rejected, and unverified with no documents
// at all.
func deriveStatus(docs []*models.Document, approved []models.DocumentType) models.VerificationStatus {
	if len(docs) == 0 {
		return models.VerificationUnverified
	}
	if IsFullyVerified(approved) {
		return models.VerificationVerified
	}
	for _, d := range docs {
		if d.Status != models.DocumentRejected {
			return models.VerificationPending
		}
	}
	return models.VerificationRejected
}
