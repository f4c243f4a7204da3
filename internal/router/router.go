package router

import (
	"net/http"

	"github.com/localpro/backend/internal/auth"
	"github.com/localpro/backend/internal/dashboard"
	"github.com/localpro/backend/internal/documents"
	"github.com/localpro/backend/internal/handlers"
	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/registry"
)

// New returns an http.Handler serving the web and staff API under /api/v1.
// Staff queues are gated per role; account-facing endpoints validate the
// session token inside their handlers.
func New(
	authHandler *auth.Handler,
	registryHandler *registry.Handler,
	documentsHandler *documents.Handler,
	dashHandler *dashboard.Handler,
	engagementHandler *handlers.EngagementHandler,
	paymentHandler *handlers.PaymentHandler,
	authSvc auth.Service,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.HandleFunc("GET "+base+"/account/me", dashHandler.GetMe)
	mux.HandleFunc("PATCH "+base+"/account/settings", dashHandler.UpdateSettings)
	mux.HandleFunc("GET "+base+"/api-keys", dashHandler.ListAPIKeys)
	mux.HandleFunc("POST "+base+"/api-keys", dashHandler.CreateAPIKey)
	mux.HandleFunc("DELETE "+base+"/api-keys/{id}", dashHandler.DeleteAPIKey)

	mux.HandleFunc("POST "+base+"/providers", registryHandler.RegisterProvider)
	mux.HandleFunc("GET "+base+"/providers", registryHandler.ListProviders)
	mux.HandleFunc("GET "+base+"/providers/me", registryHandler.GetMyProfile)
	mux.HandleFunc("PATCH "+base+"/providers/me", registryHandler.UpdateMyProfile)

	mux.HandleFunc("POST "+base+"/documents", documentsHandler.SubmitDocument)
	mux.HandleFunc("GET "+base+"/documents", documentsHandler.ListMyDocuments)

	jwtAuth := middleware.JWTAuth(authSvc)
	verifierOnly := middleware.RequireRole(models.RoleVerifier, models.RoleAdmin)
	callCenterOnly := middleware.RequireRole(models.RoleCallCenter, models.RoleAdmin)
	approverOnly := middleware.RequireRole(models.RolePaymentApprover, models.RoleAdmin)

	staff := func(gate func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		return jwtAuth(gate(h))
	}

	mux.Handle("GET "+base+"/documents/review-queue", staff(verifierOnly, documentsHandler.ListReviewQueue))
	mux.Handle("POST "+base+"/documents/{id}/review", staff(verifierOnly, documentsHandler.ReviewDocument))

	mux.Handle("GET "+base+"/engagements/pending", staff(callCenterOnly, engagementHandler.ListPendingReview))
	mux.Handle("POST "+base+"/engagements/{id}/decision", staff(callCenterOnly, engagementHandler.Decide))

	mux.Handle("GET "+base+"/payments/pending", staff(approverOnly, paymentHandler.ListPending))
	mux.Handle("POST "+base+"/payments/{id}/decision", staff(approverOnly, paymentHandler.Decide))
	mux.Handle("POST "+base+"/payments/{id}/release", staff(approverOnly, paymentHandler.Release))
	mux.Handle("GET "+base+"/payments/{id}/ledger", staff(approverOnly, paymentHandler.ListLedger))

	return mux
}
