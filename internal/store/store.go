package store

import "github.com/avotaangi/multibank/internal/models"

// Store is the credential store: the single writer for bank registrations,
// access tokens, and consent records. All updates are narrow, single-field
// writes addressed by (bank, user); recovery logic tolerates a stale read
// (it costs one extra poll or negotiation, never corruption).
type Store interface {
	// Bank registry
	RegisterBank(bank models.Bank) error
	GetBank(name string) (*models.Bank, bool)
	ListBanks() []models.Bank

	// Access tokens, keyed by (bank, user)
	GetAccessToken(bank, userID string) (*models.AccessToken, bool)
	SetAccessToken(token *models.AccessToken) error
	// InvalidateAccessToken rewrites issued_at to the zero time so the next
	// lookup treats the token as expired. Used after a 401.
	InvalidateAccessToken(bank, userID string) error

	// Consent records, keyed by (bank, user)
	GetConsent(bank, userID string) (*models.ConsentRecord, bool)
	UpsertConsent(record *models.ConsentRecord) error
	// SetConsentID adopts an approved consent and clears any pending
	// request id in the same write.
	SetConsentID(bank, userID, consentID string) error
	SetRequestID(bank, userID, requestID string) error
	// ClearConsent drops both consent id and request id, forcing a full
	// renegotiation on the next resolution.
	ClearConsent(bank, userID string) error
	SetAccountRef(bank, userID, accountID, accountNumber string) error
	SetPaymentConsent(bank, userID, consentID, requestID string) error

	// User-bank index (append-only)
	AddUserBank(userID, bank string) error
	GetUserBanks(userID string) []string
	ListUsers() []string

	Close() error
}

func tokenKey(bank, userID string) string {
	return bank + "\x00" + userID
}
