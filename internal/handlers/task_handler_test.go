package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- TaskRepo mock ---

type mockTaskRepo struct {
	tasks map[uuid.UUID]*models.Task
}

func newMockTaskRepo() *mockTaskRepo { return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)} }

func (m *mockTaskRepo) Create(_ context.Context, t *models.Task) error {
	m.tasks[t.ID] = t
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (m *mockTaskRepo) ListByClientID(_ context.Context, clientID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if t.ClientID == clientID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(m.tasks, id)
	return nil
}

// --- Matcher mock: returns a canned result and records the call ---

type mockMatcher struct {
	called  bool
	matches []services.Match
}

func (m *mockMatcher) MatchTask(context.Context, *models.Task) ([]services.Match, error) {
	m.called = true
	return m.matches, nil
}

// --- Notifier mock ---

type sentNotification struct {
	UserID uuid.UUID
	Event  string
}

type mockNotifier struct {
	sent []sentNotification
}

func (m *mockNotifier) Notify(_ context.Context, userID uuid.UUID, event string, _ any) {
	m.sent = append(m.sent, sentNotification{UserID: userID, Event: event})
}

// --- Provider source honoring the verified-only contract of the real query ---

type mockProviderSource struct {
	providers []*models.Provider
}

func (m *mockProviderSource) ListVerifiedByCategory(_ context.Context, categoryID uuid.UUID) ([]*models.Provider, error) {
	var out []*models.Provider
	for _, p := range m.providers {
		if p.CategoryID == categoryID && p.VerificationStatus == models.VerificationVerified {
			out = append(out, p)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func schemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestValidator(t *testing.T) *services.Validator {
	t.Helper()
	v, err := services.NewValidator(context.Background(), schemasDir(t))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func newTestHandler(t *testing.T) (*TaskHandler, *mockTaskRepo, *mockMatcher) {
	t.Helper()
	tr := newMockTaskRepo()
	matcher := &mockMatcher{}
	h := &TaskHandler{
		TaskRepo:  tr,
		Matcher:   matcher,
		Validator: newTestValidator(t),
		Logger:    slog.Default(),
	}
	return h, tr, matcher
}

// injectAccount sets the authenticated account into the request context.
func injectAccount(r *http.Request, acc *models.Account) *http.Request {
	return r.WithContext(middleware.WithAccount(r.Context(), acc))
}

// =====================================================================
// POST /v1/tasks
// =====================================================================

func TestCreateTask_ValidPayload(t *testing.T) {
	h, tr, _ := newTestHandler(t)
	acc := &models.Account{ID: uuid.New(), Role: models.RoleClient}

	body := fmt.Sprintf(`{
		"category_id": %q,
		"description": "replace a leaking kitchen tap",
		"latitude": 40.0,
		"longitude": -74.0,
		"budget_cents": 10000
	}`, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	req = injectAccount(req, acc)
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != models.TaskStatusOpen {
		t.Errorf("status: got %s, want open", resp.Status)
	}
	if resp.ClientID != acc.ID {
		t.Error("task should belong to the authenticated account")
	}
	if _, err := tr.GetByID(context.Background(), resp.ID); err != nil {
		t.Error("task should be persisted")
	}
}

// A new task fans out to matched verified providers; unverified providers in
// the same area hear nothing.
func TestCreateTask_NotifiesCandidates(t *testing.T) {
	h, _, _ := newTestHandler(t)
	acc := &models.Account{ID: uuid.New(), Role: models.RoleClient}
	categoryID := uuid.New()

	f64 := func(v float64) *float64 { return &v }
	verified := &models.Provider{
		ID: uuid.New(), AccountID: uuid.New(), CategoryID: categoryID,
		Latitude: f64(40.01), Longitude: f64(-74.0),
		VerificationStatus: models.VerificationVerified,
	}
	unverified := &models.Provider{
		ID: uuid.New(), AccountID: uuid.New(), CategoryID: categoryID,
		Latitude: f64(40.01), Longitude: f64(-74.01),
		VerificationStatus: models.VerificationPending,
	}
	h.Matcher = services.NewMatcher(&mockProviderSource{providers: []*models.Provider{verified, unverified}})
	notifier := &mockNotifier{}
	h.Notifier = notifier

	body := fmt.Sprintf(`{
		"category_id": %q,
		"description": "replace a leaking kitchen tap",
		"latitude": 40.0,
		"longitude": -74.0,
		"budget_cents": 10000
	}`, categoryID)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	req = injectAccount(req, acc)
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.sent))
	}
	if got := notifier.sent[0]; got.UserID != verified.AccountID || got.Event != services.EventTaskCreated {
		t.Errorf("notification: got %s to %s, want %s to the verified provider's account",
			got.Event, got.UserID, services.EventTaskCreated)
	}
	for _, s := range notifier.sent {
		if s.UserID == unverified.AccountID {
			t.Error("unverified provider must not receive task notifications")
		}
	}
}

func TestCreateTask_InvalidSchema(t *testing.T) {
	h, _, _ := newTestHandler(t)
	acc := &models.Account{ID: uuid.New()}

	// Description below the schema's minimum length.
	body := fmt.Sprintf(`{"category_id": %q, "description": "short"}`, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	req = injectAccount(req, acc)
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTask_Unauthorized(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// =====================================================================
// GET /v1/tasks/{id}/matches
// =====================================================================

func TestListMatches_OwnerOnly(t *testing.T) {
	h, tr, matcher := newTestHandler(t)
	owner := &models.Account{ID: uuid.New()}
	task := &models.Task{ID: uuid.New(), ClientID: owner.ID, Status: models.TaskStatusOpen}
	tr.tasks[task.ID] = task
	matcher.matches = []services.Match{{Provider: &models.Provider{ID: uuid.New()}, DistanceMeters: 1200}}

	// A stranger is refused.
	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/"+task.ID.String()+"/matches", nil)
	req.SetPathValue("id", task.ID.String())
	req = injectAccount(req, &models.Account{ID: uuid.New()})
	rec := httptest.NewRecorder()

	h.ListMatches(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d", rec.Code)
	}
	if matcher.called {
		t.Error("matcher should not run for a non-owner")
	}

	// The owner gets the ranked candidates.
	req = httptest.NewRequest(http.MethodGet, "/v1/tasks/"+task.ID.String()+"/matches", nil)
	req.SetPathValue("id", task.ID.String())
	req = injectAccount(req, owner)
	rec = httptest.NewRecorder()

	h.ListMatches(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var matches []services.Match
	if err := json.Unmarshal(rec.Body.Bytes(), &matches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches: got %d, want 1", len(matches))
	}
}

// =====================================================================
// DELETE /v1/tasks/{id}
// =====================================================================

func TestDeleteTask(t *testing.T) {
	h, tr, _ := newTestHandler(t)
	owner := &models.Account{ID: uuid.New()}

	// A committed task cannot be deleted.
	busy := &models.Task{ID: uuid.New(), ClientID: owner.ID, Status: models.TaskStatusInProgress}
	tr.tasks[busy.ID] = busy

	req := httptest.NewRequest(http.MethodDelete, "/v1/tasks/"+busy.ID.String(), nil)
	req.SetPathValue("id", busy.ID.String())
	req = injectAccount(req, owner)
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("committed task: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	// An open task is soft-deleted.
	open := &models.Task{ID: uuid.New(), ClientID: owner.ID, Status: models.TaskStatusOpen}
	tr.tasks[open.ID] = open

	req = httptest.NewRequest(http.MethodDelete, "/v1/tasks/"+open.ID.String(), nil)
	req.SetPathValue("id", open.ID.String())
	req = injectAccount(req, owner)
	rec = httptest.NewRecorder()

	h.DeleteTask(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("open task: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := tr.GetByID(context.Background(), open.ID); err == nil {
		t.Error("task should be gone after deletion")
	}
}
