package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry types written on payment transitions.
const (
	LedgerEntryEscrowHold  = "escrow_hold"
	LedgerEntryPlatformFee = "platform_fee"
	LedgerEntryTax         = "tax"
	LedgerEntryPayout      = "payout"
	LedgerEntryRefund      = "refund"
)

// LedgerEntry is an append-only bookkeeping row tied to a payment record.
type LedgerEntry struct {
	ID          uuid.UUID  `json:"id"`
	PaymentID   uuid.UUID  `json:"payment_id"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	EntryType   string     `json:"entry_type"`
	AmountCents int64      `json:"amount_cents"`
	CreatedAt   time.Time  `json:"created_at"`
}
