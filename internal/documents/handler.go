package documents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/auth"
	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// Request/response structs use snake_case JSON.

type SubmitDocumentRequest struct {
	DocType    string `json:"doc_type"`
	StorageRef string `json:"storage_ref"`
}

type ReviewDocumentRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	DocType    string `json:"doc_type"`
	Status     string `json:"status"`
	StorageRef string `json:"storage_ref"`
	Notes      string `json:"notes,omitempty"`
}

type Handler struct {
	svc     Service
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(svc Service, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, authSvc: authSvc, log: log}
}

// POST /api/v1/documents
func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := h.identityFromRequest(r)
	if err != nil || accountID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req SubmitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	d, err := h.svc.Submit(r.Context(), accountID, models.DocumentType(req.DocType), req.StorageRef)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "no provider profile", http.StatusNotFound)
		default:
			h.log.Error("submit document failed", "error", err)
			http.Error(w, "submit document failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, documentToResponse(d))
}

// GET /api/v1/documents
func (h *Handler) ListMyDocuments(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := h.identityFromRequest(r)
	if err != nil || accountID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListMine(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "no provider profile", http.StatusNotFound)
			return
		}
		h.log.Error("list documents failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := make([]DocumentResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, documentToResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/documents/review-queue (verifier)
func (h *Handler) ListReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.ListPendingReview(r.Context(), limit)
	if err != nil {
		h.log.Error("list review queue failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := make([]DocumentResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, documentToResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/documents/{id}/review (verifier)
func (h *Handler) ReviewDocument(w http.ResponseWriter, r *http.Request) {
	staff := middleware.StaffFromCtx(r.Context())
	if staff == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	docID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid document ID", http.StatusBadRequest)
		return
	}
	var req ReviewDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	d, err := h.svc.Review(r.Context(), staff.AccountID, staff.Role, docID, req.Approve, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "document not found", http.StatusNotFound)
		case errors.Is(err, services.ErrGuardViolation), errors.Is(err, services.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("review document failed", "error", err)
			http.Error(w, "review failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(d))
}

func (h *Handler) identityFromRequest(r *http.Request) (uuid.UUID, string, error) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, "", nil
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, "", nil
	}
	return h.authSvc.ValidateToken(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func documentToResponse(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID.String(),
		DocType:    string(d.Type),
		Status:     string(d.Status),
		StorageRef: d.StorageRef,
		Notes:      d.Notes,
	}
}
