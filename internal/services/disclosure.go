package services

import (
	"github.com/google/uuid"

	"github.com/localpro/backend/internal/models"
)

// Disclosure is a pure function of (engagement status, viewer role): it
// decides which counterparty fields a viewer may see. It is stateless and
// must be re-evaluated on every read; nothing here is cached. Contact fields
// unlock only at "approved" and later, never earlier.

// ClientInfo is the client as seen by a viewer.
type ClientInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// ProviderInfo is the provider as seen by a viewer. Providers never expose a
// home address, regardless of state.
type ProviderInfo struct {
	Name            string    `json:"name"`
	CategoryID      uuid.UUID `json:"category_id"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	Rating          *float32  `json:"rating,omitempty"`
	CompletedJobs   int       `json:"completed_jobs"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
}

// EngagementView is an engagement filtered for one viewer.
type EngagementView struct {
	ID              uuid.UUID               `json:"id"`
	TaskID          uuid.UUID               `json:"task_id"`
	Status          models.EngagementStatus `json:"status"`
	Message         string                  `json:"message,omitempty"`
	TaskDescription string                  `json:"task_description"`
	TaskCategoryID  uuid.UUID               `json:"task_category_id"`
	TaskBudgetCents *int64                  `json:"task_budget_cents,omitempty"`
	Client          *ClientInfo             `json:"client,omitempty"`
	Provider        *ProviderInfo           `json:"provider,omitempty"`
}

// DisclosureParties carries the raw records the view is built from.
type DisclosureParties struct {
	Task            *models.Task
	ClientAccount   *models.Account
	Provider        *models.Provider
	ProviderAccount *models.Account
}

// DiscloseEngagement builds the field-visibility-filtered view of an
// engagement for the given viewer role. Staff roles see everything.
func DiscloseEngagement(e *models.Engagement, viewerRole string, p DisclosureParties) EngagementView {
	v := EngagementView{
		ID:              e.ID,
		TaskID:          e.TaskID,
		Status:          e.Status,
		Message:         e.Message,
		TaskDescription: p.Task.Description,
		TaskCategoryID:  p.Task.CategoryID,
		TaskBudgetCents: p.Task.BudgetCents,
	}

	disclosed := e.Status.Disclosed() || models.IsStaff(viewerRole)

	switch {
	case models.IsStaff(viewerRole):
		v.Client = clientInfo(p.ClientAccount, true)
		v.Provider = providerInfo(p.Provider, p.ProviderAccount, true)
	case viewerRole == models.RoleProvider:
		// Before approval the provider sees only the task itself.
		if disclosed {
			v.Client = clientInfo(p.ClientAccount, true)
		}
		v.Provider = providerInfo(p.Provider, p.ProviderAccount, true)
	default:
		// The client always sees the provider's public card; contact fields
		// only once disclosed.
		v.Provider = providerInfo(p.Provider, p.ProviderAccount, disclosed)
		v.Client = clientInfo(p.ClientAccount, true)
	}
	return v
}

func clientInfo(acc *models.Account, withContact bool) *ClientInfo {
	if acc == nil {
		return nil
	}
	info := &ClientInfo{}
	if withContact {
		info.Name = acc.Name
		info.Email = acc.Email
		info.Phone = acc.Phone
		info.Address = acc.Address
	}
	return info
}

func providerInfo(p *models.Provider, acc *models.Account, withContact bool) *ProviderInfo {
	if p == nil || acc == nil {
		return nil
	}
	info := &ProviderInfo{
		Name:            acc.Name,
		CategoryID:      p.CategoryID,
		HourlyRateCents: p.HourlyRateCents,
		Rating:          p.Rating,
		CompletedJobs:   p.CompletedJobs,
	}
	if withContact {
		info.Email = acc.Email
		info.Phone = acc.Phone
	}
	return info
}
