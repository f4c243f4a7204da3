package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles. Marketplace actors (client, provider) authenticate with API
// keys; staff roles log in with email/password and act through the staff API.
const (
	RoleClient          = "client"
	RoleProvider        = "provider"
	RoleCallCenter      = "call_center"
	RolePaymentApprover = "payment_approver"
	RoleVerifier        = "verifier"
	RoleAdmin           = "admin"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the role belongs to back-office personnel.
func IsStaff(role string) bool {
	switch role {
	case RoleCallCenter, RolePaymentApprover, RoleVerifier, RoleAdmin:
		return true
	}
	return false
}
