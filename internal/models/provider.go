package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the derived trust state of a provider profile. It is
// recomputed by the verification gate on every document decision and written
// back onto the provider row so matching can filter cheaply.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

type Provider struct {
	ID                 uuid.UUID          `json:"id"`
	AccountID          uuid.UUID          `json:"account_id"`
	CategoryID         uuid.UUID          `json:"category_id"`
	HourlyRateCents    int64              `json:"hourly_rate_cents"`
	Latitude           *float64           `json:"latitude,omitempty"`
	Longitude          *float64           `json:"longitude,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Rating             *float32           `json:"rating,omitempty"`
	CompletedJobs      int                `json:"completed_jobs"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// HasCoordinates reports whether the provider can participate in geo matching.
func (p *Provider) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}
