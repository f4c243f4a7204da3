package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/ledger"
	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// PaymentReader is the payment read surface for the handler.
type PaymentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
	GetByEngagementID(ctx context.Context, engagementID uuid.UUID) (*models.PaymentRecord, error)
	ListPendingApproval(ctx context.Context, limit int) ([]*models.PaymentRecord, error)
}

// PaymentHandler serves escrow payment endpoints on both surfaces: parties
// read their payment through /v1, payment approvers resolve and release
// through /api/v1.
type PaymentHandler struct {
	Escrow      *services.EscrowService
	Payments    PaymentReader
	Engagements EngagementReader
	Providers   ProviderReader
	Ledger      ledger.Service
	Logger      *slog.Logger
}

// --- GET /v1/engagements/{id}/payment ---

// GetEngagementPayment returns the payment record of an engagement to its
// client or provider.
func (h *PaymentHandler) GetEngagementPayment(w http.ResponseWriter, r *http.Request) {
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
	e, err := h.Engagements.GetByID(r.Context(), engagementID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "engagement not found", "code": "not_found"})
		return
	}
	if !h.isParty(r.Context(), e, acc.ID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a party to this engagement", "code": "forbidden"})
		return
	}
	p, err := h.Payments.GetByEngagementID(r.Context(), engagementID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no payment for engagement", "code": "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- staff surface ---

// ListPending handles GET /api/v1/payments/pending (approver queue).
func (h *PaymentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.Payments.ListPendingApproval(r.Context(), 100)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []*models.PaymentRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

type paymentDecisionRequest struct {
	Approve bool `json:"approve"`
}

// Decide handles POST /api/v1/payments/{id}/decision.
func (h *PaymentHandler) Decide(w http.ResponseWriter, r *http.Request) {
	staff := middleware.StaffFromCtx(r.Context())
	if staff == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid payment id"}`, http.StatusBadRequest)
		return
	}
	var req paymentDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	p, err := h.Escrow.Decide(r.Context(), paymentID, staff.AccountID, staff.Role, req.Approve)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Release handles POST /api/v1/payments/{id}/release.
func (h *PaymentHandler) Release(w http.ResponseWriter, r *http.Request) {
	staff := middleware.StaffFromCtx(r.Context())
	if staff == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid payment id"}`, http.StatusBadRequest)
		return
	}
	p, err := h.Escrow.Release(r.Context(), paymentID, staff.AccountID, staff.Role)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListLedger handles GET /api/v1/payments/{id}/ledger.
func (h *PaymentHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid payment id"}`, http.StatusBadRequest)
		return
	}
	entries, err := h.Ledger.ListByPaymentID(r.Context(), paymentID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- helpers ---

func (h *PaymentHandler) isParty(ctx context.Context, e *models.Engagement, accountID uuid.UUID) bool {
	if e.ClientID == accountID {
		return true
	}
	provider, err := h.Providers.GetByID(ctx, e.ProviderID)
	return err == nil && provider.AccountID == accountID
}
