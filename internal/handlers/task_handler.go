package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// TaskRepoForHandler is the subset of task repository needed by the handler.
type TaskRepoForHandler interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.Task, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// TaskMatcher runs geo matching for a task.
type TaskMatcher interface {
	MatchTask(ctx context.Context, task *models.Task) ([]services.Match, error)
}

// TaskHandler serves /v1/tasks endpoints.
type TaskHandler struct {
	TaskRepo  TaskRepoForHandler
	Matcher   TaskMatcher
	Notifier  services.Notifier
	Validator *services.Validator
	Logger    *slog.Logger
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	CategoryID  string   `json:"category_id"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	BudgetCents *int64   `json:"budget_cents"`
}

// CreateTask handles POST /v1/tasks.
// Auth (via middleware) -> Validate -> Persist as open -> 201.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Validator.Validate(r.Context(), services.OpCreateTask, body); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "code": "validation"})
			return
		}
		h.Logger.Error("validate create task", "error", err)
		http.Error(w, `{"error":"validation failed"}`, http.StatusBadRequest)
		return
	}

	var req createTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		http.Error(w, `{"error":"invalid category_id"}`, http.StatusBadRequest)
		return
	}

	task := &models.Task{
		ID:          uuid.New(),
		ClientID:    acc.ID,
		CategoryID:  categoryID,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		BudgetCents: req.BudgetCents,
		Status:      models.TaskStatusOpen,
	}
	if err := h.TaskRepo.Create(r.Context(), task); err != nil {
		h.Logger.Error("create task", "error", err)
		http.Error(w, `{"error":"failed to create task"}`, http.StatusInternalServerError)
		return
	}

	h.notifyCandidates(r.Context(), task)
	writeJSON(w, http.StatusCreated, task)
}

// notifyCandidates fans the new task out to its matched providers. Only
// verified providers surface from matching, so nobody else is told the task
// exists. Matching or delivery failures never fail the creation itself.
func (h *TaskHandler) notifyCandidates(ctx context.Context, task *models.Task) {
	if h.Notifier == nil {
		return
	}
	matches, err := h.Matcher.MatchTask(ctx, task)
	if err != nil {
		h.Logger.Error("match task for fan-out", "task_id", task.ID, "error", err)
		return
	}
	for _, m := range matches {
		h.Notifier.Notify(ctx, m.Provider.AccountID, services.EventTaskCreated, map[string]any{
			"task_id":         task.ID,
			"category_id":     task.CategoryID,
			"distance_meters": m.DistanceMeters,
		})
	}
}

// --- GET /v1/tasks ---

// ListTasks handles GET /v1/tasks, scoped to the caller's own tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	tasks, err := h.TaskRepo.ListByClientID(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/tasks/{id}/matches ---

// ListMatches handles GET /v1/tasks/{id}/matches: verified providers in the
// task's category ordered by distance, radius widening until candidates exist.
func (h *TaskHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	task, ok := h.taskFromPath(w, r)
	if !ok {
		return
	}
	if task.ClientID != acc.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task", "code": "forbidden"})
		return
	}
	matches, err := h.Matcher.MatchTask(r.Context(), task)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if matches == nil {
		matches = []services.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// --- DELETE /v1/tasks/{id} ---

// DeleteTask soft-deletes an open task. Tasks with a committed engagement
// must go through engagement cancellation first.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	task, ok := h.taskFromPath(w, r)
	if !ok {
		return
	}
	if task.ClientID != acc.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task", "code": "forbidden"})
		return
	}
	if task.Status != models.TaskStatusOpen {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "only open tasks can be deleted", "code": "guard_violation"})
		return
	}
	if err := h.TaskRepo.SoftDelete(r.Context(), task.ID); err != nil {
		h.Logger.Error("delete task", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (h *TaskHandler) taskFromPath(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return nil, false
	}
	task, err := h.TaskRepo.GetByID(r.Context(), taskID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found", "code": "not_found"})
		return nil, false
	}
	return task, true
}
