package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// EngagementReader is the read surface used to build disclosure views.
type EngagementReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Engagement, error)
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Engagement, error)
	ListPendingReview(ctx context.Context, limit int) ([]*models.Engagement, error)
}

// AccountReader resolves accounts for disclosure.
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// ProviderReader resolves provider profiles for disclosure.
type ProviderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

// TaskReader resolves tasks for disclosure.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

// EngagementHandler serves /v1/interests and /v1/engagements endpoints, plus
// the call-center decision endpoint on the staff surface.
type EngagementHandler struct {
	Svc         *services.EngagementService
	Engagements EngagementReader
	Accounts    AccountReader
	Providers   ProviderReader
	Tasks       TaskReader
	Validator   *services.Validator
	Logger      *slog.Logger
}

// --- POST /v1/interests ---

type submitInterestRequest struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// SubmitInterest handles POST /v1/interests. The caller must be a verified
// provider; re-submitting against the same task returns the existing
// engagement.
func (h *EngagementHandler) SubmitInterest(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validator.Validate(r.Context(), services.OpSubmitInterest, body); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}

	var req submitInterestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		http.Error(w, `{"error":"invalid task_id"}`, http.StatusBadRequest)
		return
	}

	e, err := h.Svc.SubmitInterest(r.Context(), taskID, acc.ID, req.Message)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	h.writeView(w, r, http.StatusCreated, e, acc.Role)
}

// --- GET /v1/engagements?task_id=... ---

// ListByTask handles GET /v1/engagements. Clients see the interest queue of
// their own task, with provider fields filtered by disclosure state.
func (h *EngagementHandler) ListByTask(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	taskID, err := uuid.Parse(r.URL.Query().Get("task_id"))
	if err != nil {
		http.Error(w, `{"error":"task_id query parameter is required"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found", "code": "not_found"})
		return
	}
	if task.ClientID != acc.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task", "code": "forbidden"})
		return
	}

	list, err := h.Engagements.ListByTaskID(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	views := make([]services.EngagementView, 0, len(list))
	for _, e := range list {
		parties, err := h.loadParties(r.Context(), e)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		views = append(views, services.DiscloseEngagement(e, acc.Role, parties))
	}
	writeJSON(w, http.StatusOK, views)
}

// --- GET /v1/engagements/{id} ---

func (h *EngagementHandler) GetEngagement(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	e, ok := h.engagementFromPath(w, r)
	if !ok {
		return
	}
	viewerRole, ok := h.viewerRole(r.Context(), e, acc)
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a party to this engagement", "code": "forbidden"})
		return
	}
	h.writeView(w, r, http.StatusOK, e, viewerRole)
}

// --- POST /v1/engagements/{id}/start|complete|cancel ---

func (h *EngagementHandler) StartEngagement(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Start)
}

func (h *EngagementHandler) CompleteEngagement(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Complete)
}

func (h *EngagementHandler) CancelEngagement(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Cancel)
}

func (h *EngagementHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID, uuid.UUID) (*models.Engagement, error)) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	engagementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid engagement id"}`, http.StatusBadRequest)
		return
	}
	e, err := apply(r.Context(), engagementID, acc.ID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	h.writeView(w, r, http.StatusOK, e, acc.Role)
}

// --- staff surface ---

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Decide handles POST /api/v1/engagements/{id}/decision (call center).
func (h *EngagementHandler) Decide(w http.ResponseWriter, r *http.Request) {
	staff := middleware.StaffFromCtx(r.Context())
	if staff == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	engagementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid engagement id"}`, http.StatusBadRequest)
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	e, err := h.Svc.CallCenterDecision(r.Context(), engagementID, staff.AccountID, staff.Role, req.Approve, req.Notes)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	h.writeView(w, r, http.StatusOK, e, staff.Role)
}

// ListPendingReview handles GET /api/v1/engagements/pending (call center queue).
func (h *EngagementHandler) ListPendingReview(w http.ResponseWriter, r *http.Request) {
	staff := middleware.StaffFromCtx(r.Context())
	if staff == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.Engagements.ListPendingReview(r.Context(), 100)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	views := make([]services.EngagementView, 0, len(list))
	for _, e := range list {
		parties, err := h.loadParties(r.Context(), e)
		if err != nil {
			writeServiceError(w, h.Logger, err)
			return
		}
		views = append(views, services.DiscloseEngagement(e, staff.Role, parties))
	}
	writeJSON(w, http.StatusOK, views)
}

// --- helpers ---

func (h *EngagementHandler) engagementFromPath(w http.ResponseWriter, r *http.Request) (*models.Engagement, bool) {
	engagementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid engagement id"}`, http.StatusBadRequest)
		return nil, false
	}
	e, err := h.Engagements.GetByID(r.Context(), engagementID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "engagement not found", "code": "not_found"})
		return nil, false
	}
	return e, true
}

// viewerRole decides which side of the disclosure filter the caller is on.
// Staff keep their staff role; parties get their marketplace role; everyone
// else is denied.
func (h *EngagementHandler) viewerRole(ctx context.Context, e *models.Engagement, acc *models.Account) (string, bool) {
	if models.IsStaff(acc.Role) {
		return acc.Role, true
	}
	if e.ClientID == acc.ID {
		return models.RoleClient, true
	}
	provider, err := h.Providers.GetByID(ctx, e.ProviderID)
	if err == nil && provider.AccountID == acc.ID {
		return models.RoleProvider, true
	}
	return "", false
}

func (h *EngagementHandler) loadParties(ctx context.Context, e *models.Engagement) (services.DisclosureParties, error) {
	var p services.DisclosureParties
	var err error
	if p.Task, err = h.Tasks.GetByID(ctx, e.TaskID); err != nil {
		return p, err
	}
	if p.ClientAccount, err = h.Accounts.GetByID(ctx, e.ClientID); err != nil {
		return p, err
	}
	if p.Provider, err = h.Providers.GetByID(ctx, e.ProviderID); err != nil {
		return p, err
	}
	if p.ProviderAccount, err = h.Accounts.GetByID(ctx, p.Provider.AccountID); err != nil {
		return p, err
	}
	return p, nil
}

func (h *EngagementHandler) writeView(w http.ResponseWriter, r *http.Request, status int, e *models.Engagement, viewerRole string) {
	parties, err := h.loadParties(r.Context(), e)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, status, services.DiscloseEngagement(e, viewerRole, parties))
}
