package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/localpro/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks for the document and provider sides of the gate.
// ---------------------------------------------------------------------------

type mockGateDocs struct {
	mu              sync.Mutex
	docs            map[uuid.UUID][]*models.Document
	approvedQueries int
}

func (m *mockGateDocs) ListByProviderID(_ context.Context, providerID uuid.UUID) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[providerID], nil
}

// ApprovedTypes mirrors the repository's DISTINCT query over approved rows.
func (m *mockGateDocs) ApprovedTypes(_ context.Context, providerID uuid.UUID) ([]models.DocumentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvedQueries++
	seen := make(map[models.DocumentType]bool)
	var types []models.DocumentType
	for _, d := range m.docs[providerID] {
		if d.Status == models.DocumentApproved && !seen[d.Type] {
			seen[d.Type] = true
			types = append(types, d.Type)
		}
	}
	return types, nil
}

func (m *mockGateDocs) set(providerID uuid.UUID, docs ...*models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[providerID] = docs
}

type mockGateProviders struct {
	mu        sync.Mutex
	providers map[uuid.UUID]*models.Provider
	writes    int
}

func (m *mockGateProviders) GetByID(_ context.Context, id uuid.UUID) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockGateProviders) SetVerificationStatus(_ context.Context, id uuid.UUID, status models.VerificationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[id].VerificationStatus = status
	m.writes++
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func doc(t models.DocumentType, status models.DocumentStatus) *models.Document {
	return &models.Document{ID: uuid.New(), Type: t, Status: status}
}

func newGateFixture() (*VerificationGate, *mockGateDocs, *mockGateProviders, *mockNotifier, uuid.UUID) {
	providerID := uuid.New()
	docs := &mockGateDocs{docs: make(map[uuid.UUID][]*models.Document)}
	providers := &mockGateProviders{providers: map[uuid.UUID]*models.Provider{
		providerID: {ID: providerID, AccountID: uuid.New(), VerificationStatus: models.VerificationUnverified},
	}}
	notifier := &mockNotifier{}
	gate := NewVerificationGate(docs, providers, notifier, testLogger())
	return gate, docs, providers, notifier, providerID
}

// ---------------------------------------------------------------------------
// 1. TestIsFullyVerified
// ---------------------------------------------------------------------------

func TestIsFullyVerified(t *testing.T) {
	tests := []struct {
		name     string
		approved []models.DocumentType
		want     bool
	}{
		{"all three classes", []models.DocumentType{models.DocumentNationalID, models.DocumentBankingDetails, models.DocumentTradeLicense}, true},
		{"alternate types per class", []models.DocumentType{models.DocumentDriversLicense, models.DocumentBankingDetails, models.DocumentCertificate}, true},
		{"missing banking", []models.DocumentType{models.DocumentNationalID, models.DocumentTradeLicense}, false},
		{"missing license", []models.DocumentType{models.DocumentNationalID, models.DocumentBankingDetails}, false},
		{"other does not satisfy any class", []models.DocumentType{models.DocumentOther, models.DocumentBankingDetails, models.DocumentTradeLicense}, false},
		{"duplicates in one class do not cover another", []models.DocumentType{models.DocumentNationalID, models.DocumentDriversLicense, models.DocumentBankingDetails}, false},
		{"empty", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFullyVerified(tc.approved); got != tc.want {
				t.Errorf("IsFullyVerified(%v): got %v, want %v", tc.approved, got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 2. TestRecompute_Progression
// ---------------------------------------------------------------------------

func TestRecompute_Progression(t *testing.T) {
	gate, docs, providers, notifier, providerID := newGateFixture()
	ctx := context.Background()

	// No documents: unverified, and no write since nothing changed.
	status, err := gate.Recompute(ctx, providerID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != models.VerificationUnverified {
		t.Errorf("status: got %s, want unverified", status)
	}
	if providers.writes != 0 {
		t.Errorf("writes: got %d, want 0", providers.writes)
	}

	// A pending upload moves the profile to pending.
	docs.set(providerID, doc(models.DocumentNationalID, models.DocumentPending))
	if status, _ = gate.Recompute(ctx, providerID); status != models.VerificationPending {
		t.Errorf("status: got %s, want pending", status)
	}

	// Partial approval is still pending.
	docs.set(providerID,
		doc(models.DocumentNationalID, models.DocumentApproved),
		doc(models.DocumentBankingDetails, models.DocumentPending),
	)
	if status, _ = gate.Recompute(ctx, providerID); status != models.VerificationPending {
		t.Errorf("status: got %s, want pending", status)
	}

	// Full class coverage flips to verified and notifies the provider.
	docs.set(providerID,
		doc(models.DocumentNationalID, models.DocumentApproved),
		doc(models.DocumentBankingDetails, models.DocumentApproved),
		doc(models.DocumentTradeLicense, models.DocumentApproved),
	)
	if status, _ = gate.Recompute(ctx, providerID); status != models.VerificationVerified {
		t.Errorf("status: got %s, want verified", status)
	}
	p, _ := providers.GetByID(ctx, providerID)
	if p.VerificationStatus != models.VerificationVerified {
		t.Error("verified status should be persisted on the provider row")
	}
	if n := notifier.count("provider.verification_changed"); n != 3 {
		t.Errorf("change notifications: got %d, want 3", n)
	}

	// The approved-set input comes from the dedicated distinct query, once
	// per recompute.
	if docs.approvedQueries != 4 {
		t.Errorf("approved-type queries: got %d, want 4", docs.approvedQueries)
	}
}

// ---------------------------------------------------------------------------
// 3. TestRecompute_Regression
// ---------------------------------------------------------------------------

// A rejected resubmission demotes a verified provider immediately.
func TestRecompute_Regression(t *testing.T) {
	gate, docs, providers, _, providerID := newGateFixture()
	ctx := context.Background()

	docs.set(providerID,
		doc(models.DocumentNationalID, models.DocumentApproved),
		doc(models.DocumentBankingDetails, models.DocumentApproved),
		doc(models.DocumentTradeLicense, models.DocumentApproved),
	)
	if status, _ := gate.Recompute(ctx, providerID); status != models.VerificationVerified {
		t.Fatalf("precondition: got %s, want verified", status)
	}

	// Banking document rejected on review of a resubmission.
	docs.set(providerID,
		doc(models.DocumentNationalID, models.DocumentApproved),
		doc(models.DocumentBankingDetails, models.DocumentRejected),
		doc(models.DocumentTradeLicense, models.DocumentApproved),
	)
	status, err := gate.Recompute(ctx, providerID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != models.VerificationPending {
		t.Errorf("status: got %s, want pending", status)
	}
	p, _ := providers.GetByID(ctx, providerID)
	if p.VerificationStatus != models.VerificationPending {
		t.Error("demotion should be persisted")
	}
}

// ---------------------------------------------------------------------------
// 4. TestRecompute_AllRejected
// ---------------------------------------------------------------------------

func TestRecompute_AllRejected(t *testing.T) {
	gate, docs, _, _, providerID := newGateFixture()

	docs.set(providerID,
		doc(models.DocumentNationalID, models.DocumentRejected),
		doc(models.DocumentBankingDetails, models.DocumentRejected),
	)
	status, err := gate.Recompute(context.Background(), providerID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != models.VerificationRejected {
		t.Errorf("status: got %s, want rejected", status)
	}
}
