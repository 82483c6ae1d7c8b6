package models

import (
	"fmt"
	"time"
)

// ConsentState is the lifecycle position of a consent record.
type ConsentState string

const (
	ConsentAbsent   ConsentState = "absent"
	ConsentPending  ConsentState = "pending"
	ConsentApproved ConsentState = "approved"
)

// ConsentRecord tracks the authorization state for one (bank, user) pair.
// Invariant: while a RequestID is stored the record reads as pending even
// if a ConsentID is also cached, so the resolver polls the outstanding
// request before trusting the cache.
type ConsentRecord struct {
	Bank   string `json:"bank"`
	UserID string `json:"user_id"`

	ConsentID string `json:"consent_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Resolved lazily once consent is approved, cached thereafter.
	AccountID     string `json:"account_id,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`

	// Payment consent, negotiated separately and single-use in practice.
	PaymentConsentID string `json:"payment_consent_id,omitempty"`
	PaymentRequestID string `json:"payment_request_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// State derives the lifecycle state from the stored fields. A stored
// RequestID outranks a cached ConsentID: an unresolved approval request
// must be polled before the cache may be served, otherwise a silent
// revocation goes unnoticed.
func (r *ConsentRecord) State() ConsentState {
	switch {
	case r == nil:
		return ConsentAbsent
	case r.RequestID != "":
		return ConsentPending
	case r.ConsentID != "":
		return ConsentApproved
	default:
		return ConsentAbsent
	}
}

// ConsentStatus is the tri-state outcome of a consent negotiation after the
// upstream's shape variance has been normalized away.
type ConsentStatus string

const (
	StatusApproved ConsentStatus = "approved"
	StatusPending  ConsentStatus = "pending"
	StatusRejected ConsentStatus = "rejected"
)

// ConsentResult is the normalized negotiation outcome. Exactly one of
// ConsentID (approved) or RequestID (pending) is populated; rejected
// carries neither.
type ConsentResult struct {
	Status    ConsentStatus
	ConsentID string
	RequestID string
}

// Approved reports whether the negotiation yielded a usable consent id.
func (r ConsentResult) Approved() bool {
	return r.Status == StatusApproved && r.ConsentID != ""
}

// Pending reports whether the negotiation is awaiting end-user approval.
func (r ConsentResult) Pending() bool {
	return r.Status == StatusPending
}

func (r ConsentResult) String() string {
	switch r.Status {
	case StatusApproved:
		return fmt.Sprintf("approved(%s)", r.ConsentID)
	case StatusPending:
		return fmt.Sprintf("pending(%s)", r.RequestID)
	default:
		return string(r.Status)
	}
}

// PollStatus is the normalized outcome of polling a pending consent request.
type PollStatus string

const (
	PollAuthorized PollStatus = "authorized"
	PollPending    PollStatus = "pending"
	PollRevoked    PollStatus = "revoked"
)

// PollResult carries the poll outcome; ConsentID is set only for
// PollAuthorized.
type PollResult struct {
	Status    PollStatus
	ConsentID string
}
