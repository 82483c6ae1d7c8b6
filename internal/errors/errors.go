package errors

import "fmt"

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseMigration struct {
	Version int
	Err     error
}

func (e *ErrDatabaseMigration) Error() string {
	return fmt.Sprintf("database migration %d failed: %v", e.Version, e.Err)
}

func (e *ErrDatabaseMigration) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrDirectoryCreate struct {
	Path string
	Err  error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *ErrDirectoryCreate) Unwrap() error {
	return e.Err
}

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}

// Bank integration errors

// ErrUnknownBank means the bank name is not registered and not present in
// configuration. Fatal immediately, never retried.
type ErrUnknownBank struct {
	Bank string
}

func (e *ErrUnknownBank) Error() string {
	return fmt.Sprintf("unknown bank: %s", e.Bank)
}

// ErrTokenUnavailable means the bank's token endpoint did not yield an
// access token after the cache was exhausted.
type ErrTokenUnavailable struct {
	Bank string
}

func (e *ErrTokenUnavailable) Error() string {
	return fmt.Sprintf("no access token available for bank %s", e.Bank)
}

// ErrConsentPending signals that a negotiation is awaiting manual approval
// at the bank's side. It is a normal, displayable condition for callers
// that cannot degrade to an empty result (payments).
type ErrConsentPending struct {
	Bank      string
	RequestID string
}

func (e *ErrConsentPending) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("consent for bank %s awaiting approval (request %s)", e.Bank, e.RequestID)
	}
	return fmt.Sprintf("consent for bank %s awaiting approval", e.Bank)
}

// ErrConsentRejected means the bank (or the end user) declined a consent
// request outright. Retrying without operator involvement will not help.
type ErrConsentRejected struct {
	Bank string
}

func (e *ErrConsentRejected) Error() string {
	return fmt.Sprintf("consent for bank %s was rejected", e.Bank)
}

// ErrUpstream carries a non-2xx upstream response after all recovery
// attempts. Status and Body come straight from the bank; nothing above the
// bank package ever re-parses the raw payload.
type ErrUpstream struct {
	Bank     string
	Endpoint string
	Status   int
	Body     string
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("bank %s: %s returned %d: %s", e.Bank, e.Endpoint, e.Status, e.Body)
}

// ErrNoAccounts means a 200 listing contained no accounts where at least
// one was required (e.g. before a payment).
type ErrNoAccounts struct {
	Bank   string
	UserID string
}

func (e *ErrNoAccounts) Error() string {
	return fmt.Sprintf("no accounts for user %s at bank %s", e.UserID, e.Bank)
}
