package models

import (
	"time"

	"github.com/google/uuid"
)

// EngagementStatus is the closed set of engagement lifecycle states.
//
// A newly submitted interest lands in "pending", which is also the
// call-center work queue: there is no separate assigned state. Disclosure of
// contact fields is gated on reaching "approved" and is never granted from
// any earlier state.
type EngagementStatus string

const (
	EngagementPending    EngagementStatus = "pending"
	EngagementApproved   EngagementStatus = "approved"
	EngagementRejected   EngagementStatus = "rejected"
	EngagementInProgress EngagementStatus = "in_progress"
	EngagementCompleted  EngagementStatus = "completed"
	EngagementCancelled  EngagementStatus = "cancelled"
)

// engagementTransitions is the explicit legality table. "cancelled" is
// reachable from every non-terminal state (client action).
var engagementTransitions = map[EngagementStatus][]EngagementStatus{
	EngagementPending:    {EngagementApproved, EngagementRejected, EngagementCancelled},
	EngagementApproved:   {EngagementInProgress, EngagementCancelled},
	EngagementInProgress: {EngagementCompleted, EngagementCancelled},
	EngagementCompleted:  {},
	EngagementRejected:   {},
	EngagementCancelled:  {},
}

func (s EngagementStatus) CanTransition(next EngagementStatus) bool {
	for _, allowed := range engagementTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the engagement can no longer move.
func (s EngagementStatus) Terminal() bool {
	return len(engagementTransitions[s]) == 0
}

// Committed reports whether the engagement holds the task: at most one
// engagement per task may be in a committed state at a time.
func (s EngagementStatus) Committed() bool {
	switch s {
	case EngagementApproved, EngagementInProgress, EngagementCompleted:
		return true
	}
	return false
}

// Disclosed reports whether counterparty contact fields are visible. One-way:
// an engagement never returns to an undisclosed state once approved.
func (s EngagementStatus) Disclosed() bool {
	return s.Committed()
}

// Engagement pairs one provider with one task. Rows are never hard-deleted;
// terminal rows remain as the audit trail.
type Engagement struct {
	ID          uuid.UUID        `json:"id"`
	TaskID      uuid.UUID        `json:"task_id"`
	ProviderID  uuid.UUID        `json:"provider_id"`
	ClientID    uuid.UUID        `json:"client_id"`
	Status      EngagementStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	ApproverID  *uuid.UUID       `json:"approver_id,omitempty"`
	ApprovedAt  *time.Time       `json:"approved_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
