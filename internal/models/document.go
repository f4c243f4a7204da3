package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies what a provider uploaded. Each type belongs to one
// of three classes; full verification needs an approved document per class.
type DocumentType string

const (
	DocumentNationalID     DocumentType = "national_id"
	DocumentDriversLicense DocumentType = "drivers_license"
	DocumentBankingDetails DocumentType = "banking_details"
	DocumentTradeLicense   DocumentType = "trade_license"
	DocumentCertificate    DocumentType = "certificate"
	DocumentOther          DocumentType = "other"
)

// DocumentClass groups types into the required verification categories.
type DocumentClass string

const (
	ClassIdentity DocumentClass = "identity"
	ClassBanking  DocumentClass = "banking"
	ClassLicense  DocumentClass = "license"
	ClassOther    DocumentClass = "other"
)

// Class maps a document type to its verification class. Types within a class
// form an OR-group: any one approved document of the class satisfies it.
func (t DocumentType) Class() DocumentClass {
	switch t {
	case DocumentNationalID, DocumentDriversLicense:
		return ClassIdentity
	case DocumentBankingDetails:
		return ClassBanking
	case DocumentTradeLicense, DocumentCertificate:
		return ClassLicense
	}
	return ClassOther
}

// RequiredDocumentClasses is the set a provider must cover to be verified.
var RequiredDocumentClasses = []DocumentClass{ClassIdentity, ClassBanking, ClassLicense}

type DocumentStatus string

const (
	DocumentPending     DocumentStatus = "pending"
	DocumentUnderReview DocumentStatus = "under_review"
	DocumentApproved    DocumentStatus = "approved"
	DocumentRejected    DocumentStatus = "rejected"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentPending:     {DocumentUnderReview, DocumentApproved, DocumentRejected},
	DocumentUnderReview: {DocumentApproved, DocumentRejected},
	DocumentApproved:    {},
	DocumentRejected:    {},
}

func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Document is a provider-uploaded verification artifact. Rows are never
// deleted; a resubmission creates a new row superseding the old one.
type Document struct {
	ID         uuid.UUID      `json:"id"`
	ProviderID uuid.UUID      `json:"provider_id"`
	Type       DocumentType   `json:"type"`
	StorageRef string         `json:"storage_ref"`
	Status     DocumentStatus `json:"status"`
	ReviewerID *uuid.UUID     `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
