package registry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/auth"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// Request/response structs use snake_case JSON.

type RegisterProviderRequest struct {
	CategoryID      string   `json:"category_id"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

type ProviderResponse struct {
	ID                 string   `json:"id"`
	CategoryID         string   `json:"category_id"`
	HourlyRateCents    int64    `json:"hourly_rate_cents"`
	VerificationStatus string   `json:"verification_status"`
	Rating             *float32 `json:"rating,omitempty"`
	CompletedJobs      int      `json:"completed_jobs"`
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

// POST /api/v1/providers
func (h *Handler) RegisterProvider(w http.ResponseWriter, r *http.Request) {
	accountID, role, err := h.identityFromRequest(r)
	if err != nil || accountID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if role != models.RoleProvider {
		http.Error(w, "only provider accounts can register a profile", http.StatusForbidden)
		return
	}
	var req RegisterProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		http.Error(w, "invalid category_id", http.StatusBadRequest)
		return
	}
	provider, err := h.svc.Register(r.Context(), accountID, RegisterParams{
		CategoryID:      categoryID,
		HourlyRateCents: req.HourlyRateCents,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrConflict):
			http.Error(w, "provider profile already exists", http.StatusConflict)
		default:
			h.log.Error("register provider failed", "error", err)
			http.Error(w, "register provider failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, providerToResponse(provider))
}

// GET /api/v1/providers/me
func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := h.identityFromRequest(r)
	if err != nil || accountID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	provider, err := h.svc.GetByAccountID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "no provider profile", http.StatusNotFound)
			return
		}
		h.log.Error("get provider profile failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, providerToResponse(provider))
}

// PATCH /api/v1/providers/me
func (h *Handler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	accountID, role, err := h.identityFromRequest(r)
	if err != nil || accountID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if role != models.RoleProvider {
		http.Error(w, "only provider accounts have a profile", http.StatusForbidden)
		return
	}
	var req RegisterProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	params := RegisterParams{
		HourlyRateCents: req.HourlyRateCents,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			http.Error(w, "invalid category_id", http.StatusBadRequest)
			return
		}
		params.CategoryID = categoryID
	}
	provider, err := h.svc.UpdateProfile(r.Context(), accountID, params)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "no provider profile", http.StatusNotFound)
			return
		}
		h.log.Error("update provider profile failed", "error", err)
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, providerToResponse(provider))
}

// GET /api/v1/providers?category_id=...
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(r.URL.Query().Get("category_id"))
	if err != nil {
		http.Error(w, "category_id query parameter is required", http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListVerified(r.Context(), categoryID)
	if err != nil {
		h.log.Error("list providers failed", "error", err)
		http.Error(w, "list providers failed", http.StatusInternalServerError)
		return
	}
	resp := make([]ProviderResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, providerToResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
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

func providerToResponse(p *models.Provider) ProviderResponse {
	return ProviderResponse{
		ID:                 p.ID.String(),
		CategoryID:         p.CategoryID.String(),
		HourlyRateCents:    p.HourlyRateCents,
		VerificationStatus: string(p.VerificationStatus),
		Rating:             p.Rating,
		CompletedJobs:      p.CompletedJobs,
	}
}
