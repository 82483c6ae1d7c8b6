package models

import "time"

// TokenTTL is how long a bank access token stays usable after issuance.
const TokenTTL = 24 * time.Hour

// TokenSafetyMargin is subtracted from TokenTTL when judging freshness so a
// token is never handed out moments before the upstream rejects it.
const TokenSafetyMargin = 5 * time.Minute

// AccessToken is the integrator credential for one (bank, user) pair.
// Tokens are scoped per user to prevent cross-user credential reuse.
type AccessToken struct {
	Bank     string    `json:"bank"`
	UserID   string    `json:"user_id"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Fresh reports whether the token may still be served from cache at the
// given instant.
func (t *AccessToken) Fresh(now time.Time) bool {
	if t == nil || t.Token == "" {
		return false
	}
	return now.Sub(t.IssuedAt) < TokenTTL-TokenSafetyMargin
}
