package models

import "fmt"

// TransferStatus is the outcome of a transfer attempt.
type TransferStatus string

const (
	TransferSuccess        TransferStatus = "success"
	TransferPendingConsent TransferStatus = "pending_consent"
	TransferError          TransferStatus = "error"
)

// TransferResult is the normalized outcome returned to facade callers.
type TransferResult struct {
	Status    TransferStatus `json:"status"`
	PaymentID string         `json:"payment_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Account is a normalized upstream account listing entry. Upstream listings
// arrive under varying keys and shapes; the fetcher flattens them into this.
type Account struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Validate checks the minimal fields the integration relies on.
func (a *Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account id is required")
	}
	return nil
}
