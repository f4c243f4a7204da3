package main

import (
	"log/slog"
	"net/http"

	"github.com/localpro/backend/internal/handlers"
	"github.com/localpro/backend/internal/ledger"
	"github.com/localpro/backend/internal/middleware"
	"github.com/localpro/backend/internal/repository"
	"github.com/localpro/backend/internal/services"
)

// RegisterV1Routes adds the /v1/ marketplace API endpoints to the given mux.
// Middleware chain: APIKeyAuth -> handler. Returns the engagement and payment
// handlers so the staff router can mount their queue endpoints too.
func RegisterV1Routes(
	mux *http.ServeMux,
	apiKeyRepo *repository.APIKeyRepo,
	taskRepo *repository.TaskRepo,
	providerRepo *repository.ProviderRepo,
	accountRepo *repository.AccountRepo,
	engagementSvc *services.EngagementService,
	engagementRepo *repository.EngagementRepo,
	escrow *services.EscrowService,
	paymentRepo *repository.PaymentRepo,
	ledgerSvc ledger.Service,
	notifier services.Notifier,
	validator *services.Validator,
	logger *slog.Logger,
) (*handlers.EngagementHandler, *handlers.PaymentHandler) {
	matcher := services.NewMatcher(providerRepo)

	th := &handlers.TaskHandler{
		TaskRepo:  taskRepo,
		Matcher:   matcher,
		Notifier:  notifier,
		Validator: validator,
		Logger:    logger,
	}
	eh := &handlers.EngagementHandler{
		Svc:         engagementSvc,
		Engagements: engagementRepo,
		Accounts:    accountRepo,
		Providers:   providerRepo,
		Tasks:       taskRepo,
		Validator:   validator,
		Logger:      logger,
	}
	ph := &handlers.PaymentHandler{
		Escrow:      escrow,
		Payments:    paymentRepo,
		Engagements: engagementRepo,
		Providers:   providerRepo,
		Ledger:      ledgerSvc,
		Logger:      logger,
	}

	auth := middleware.APIKeyAuth(apiKeyRepo, providerRepo)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	handle("POST /v1/tasks", th.CreateTask)
	handle("GET /v1/tasks", th.ListTasks)
	handle("GET /v1/tasks/{id}", th.GetTask)
	handle("GET /v1/tasks/{id}/matches", th.ListMatches)
	handle("DELETE /v1/tasks/{id}", th.DeleteTask)

	handle("POST /v1/interests", eh.SubmitInterest)
	handle("GET /v1/engagements", eh.ListByTask)
	handle("GET /v1/engagements/{id}", eh.GetEngagement)
	handle("POST /v1/engagements/{id}/start", eh.StartEngagement)
	handle("POST /v1/engagements/{id}/complete", eh.CompleteEngagement)
	handle("POST /v1/engagements/{id}/cancel", eh.CancelEngagement)

	handle("GET /v1/engagements/{id}/payment", ph.GetEngagementPayment)

	return eh, ph
}
