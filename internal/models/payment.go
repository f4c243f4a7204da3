package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus transitions are monotonic:
// pending → approved → released, or pending → rejected. No reversal.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
	PaymentReleased PaymentStatus = "released"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentApproved, PaymentRejected},
	PaymentApproved: {PaymentReleased},
	PaymentRejected: {},
	PaymentReleased: {},
}

func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the payment record is immutable.
func (s PaymentStatus) Terminal() bool {
	return len(paymentTransitions[s]) == 0
}

// PlatformFeePercent is the platform's cut of the gross amount.
const PlatformFeePercent = 10

// TaxPercent is withheld from the provider payout on release.
const TaxPercent = 5

// PaymentRecord is created exactly once when an engagement completes, in
// "pending", and resolved only by a payment approver.
type PaymentRecord struct {
	ID           uuid.UUID     `json:"id"`
	EngagementID uuid.UUID     `json:"engagement_id"`
	GrossCents   int64         `json:"gross_cents"`
	FeeCents     int64         `json:"fee_cents"`
	TaxCents     int64         `json:"tax_cents"`
	PayoutCents  int64         `json:"payout_cents"`
	Status       PaymentStatus `json:"status"`
	ApproverID   *uuid.UUID    `json:"approver_id,omitempty"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
	ReleasedAt   *time.Time    `json:"released_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
