package documents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// ---------------------------------------------------------------------------
// In-memory mocks
// ---------------------------------------------------------------------------

type mockDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[uuid.UUID]*models.Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *mockDocumentRepo) ListByProviderID(_ context.Context, providerID uuid.UUID) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if d.ProviderID == providerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) ListPendingReview(_ context.Context, limit int) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if d.Status == models.DocumentPending || d.Status == models.DocumentUnderReview {
			cp := *d
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockDocumentRepo) Review(_ context.Context, id, reviewerID uuid.UUID, next models.DocumentStatus, notes string, expected ...models.DocumentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return false, nil
	}
	for _, want := range expected {
		if d.Status == want {
			d.Status = next
			d.ReviewerID = &reviewerID
			d.Notes = notes
			return true, nil
		}
	}
	return false, nil
}

// ---

type mockProviderLookup struct {
	provider *models.Provider
}

func (m *mockProviderLookup) GetByAccountID(_ context.Context, accountID uuid.UUID) (*models.Provider, error) {
	if m.provider != nil && m.provider.AccountID == accountID {
		return m.provider, nil
	}
	return nil, pgx.ErrNoRows
}

// ---

type mockGate struct {
	mu    sync.Mutex
	calls int
}

func (m *mockGate) Recompute(context.Context, uuid.UUID) (models.VerificationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return models.VerificationPending, nil
}

func (m *mockGate) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

func newFixture() (Service, *mockDocumentRepo, *mockGate, *models.Provider) {
	provider := &models.Provider{ID: uuid.New(), AccountID: uuid.New()}
	repo := newMockDocumentRepo()
	gate := &mockGate{}
	svc := NewService(repo, &mockProviderLookup{provider: provider}, gate)
	return svc, repo, gate, provider
}

// ---------------------------------------------------------------------------
// 1. TestSubmit
// ---------------------------------------------------------------------------

func TestSubmit(t *testing.T) {
	svc, _, gate, provider := newFixture()
	ctx := context.Background()

	d, err := svc.Submit(ctx, provider.AccountID, models.DocumentNationalID, "s3://docs/id-front")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if d.Status != models.DocumentPending {
		t.Errorf("status: got %s, want pending", d.Status)
	}
	if d.ProviderID != provider.ID {
		t.Error("document should belong to the submitting provider")
	}
	if gate.count() != 1 {
		t.Errorf("gate recompute calls: got %d, want 1", gate.count())
	}

	// Resubmitting the same type creates a second row; the gate decides what
	// the combination means.
	if _, err := svc.Submit(ctx, provider.AccountID, models.DocumentNationalID, "s3://docs/id-front-v2"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	docs, err := svc.ListMine(ctx, provider.AccountID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("documents on file: got %d, want 2", len(docs))
	}
}

// ---------------------------------------------------------------------------
// 2. TestSubmit_Validation
// ---------------------------------------------------------------------------

func TestSubmit_Validation(t *testing.T) {
	svc, _, _, provider := newFixture()
	ctx := context.Background()

	if _, err := svc.Submit(ctx, provider.AccountID, "passport_scan", "s3://docs/x"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("unknown type: expected ErrValidation, got: %v", err)
	}
	if _, err := svc.Submit(ctx, provider.AccountID, models.DocumentNationalID, ""); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty storage_ref: expected ErrValidation, got: %v", err)
	}
	if _, err := svc.Submit(ctx, uuid.New(), models.DocumentNationalID, "s3://docs/x"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("no provider profile: expected ErrNotFound, got: %v", err)
	}

	// "other" is an explicitly allowed type, not a rejection.
	if _, err := svc.Submit(ctx, provider.AccountID, models.DocumentOther, "s3://docs/extra"); err != nil {
		t.Errorf("other type: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. TestReview
// ---------------------------------------------------------------------------

func TestReview(t *testing.T) {
	svc, _, gate, provider := newFixture()
	ctx := context.Background()
	verifier := uuid.New()

	d, err := svc.Submit(ctx, provider.AccountID, models.DocumentBankingDetails, "s3://docs/iban")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Only verifier and admin may review.
	if _, err := svc.Review(ctx, uuid.New(), models.RoleCallCenter, d.ID, true, ""); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("call center reviewing: expected ErrUnauthorized, got: %v", err)
	}

	got, err := svc.Review(ctx, verifier, models.RoleVerifier, d.ID, true, "matches bank statement")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != models.DocumentApproved {
		t.Errorf("status: got %s, want approved", got.Status)
	}
	if got.ReviewerID == nil || *got.ReviewerID != verifier {
		t.Error("reviewer should be recorded")
	}
	if gate.count() != 2 {
		t.Errorf("gate recompute calls: got %d, want 2 (submit + review)", gate.count())
	}

	// Re-applying the same decision is a no-op.
	if again, err := svc.Review(ctx, verifier, models.RoleVerifier, d.ID, true, ""); err != nil || again.Status != models.DocumentApproved {
		t.Errorf("repeat review: status=%v err=%v", again.Status, err)
	}

	// Flipping a final decision violates the guard.
	if _, err := svc.Review(ctx, verifier, models.RoleVerifier, d.ID, false, ""); !errors.Is(err, services.ErrGuardViolation) {
		t.Errorf("flip decision: expected ErrGuardViolation, got: %v", err)
	}

	if _, err := svc.Review(ctx, verifier, models.RoleVerifier, uuid.New(), true, ""); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("unknown document: expected ErrNotFound, got: %v", err)
	}
}
