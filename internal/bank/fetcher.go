package bank

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/avotaangi/multibank/internal/errors"
)

// fetchResource performs a consented read against an upstream bank with the
// standard recovery ladder:
//
//	401                      -> invalidate token, reacquire, retry once
//	403 + CONSENT_REQUIRED   -> clear consent, renegotiate, retry once
//
// Each recovery fires at most once per call; a second failure surfaces as
// ErrUpstream. A renegotiation that lands in pending surfaces as
// ErrConsentPending, which read paths translate to their empty sentinel.
func (s *Service) fetchResource(ctx context.Context, bank, userID, method, path string, query url.Values) ([]byte, error) {
	consentID, err := s.ResolveAccountConsent(ctx, bank, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.Token(ctx, bank, userID)
	if err != nil {
		return nil, err
	}

	status, body, err := s.client.do(ctx, bank, method, path, query, withConsent(token, consentID), nil)
	if err != nil {
		return nil, err
	}
	if ok(status) {
		return body, nil
	}

	switch {
	case status == http.StatusUnauthorized:
		s.recordRecovery(bank, "token")
		s.logger.InfoWithContext(ctx, "upstream 401, refreshing token",
			"bank", bank, "user", userID, "endpoint", path)
		s.InvalidateToken(bank, userID)
		token, err = s.Token(ctx, bank, userID)
		if err != nil {
			return nil, err
		}
		status, body, err = s.client.do(ctx, bank, method, path, query, withConsent(token, consentID), nil)

	case status == http.StatusForbidden && strings.Contains(string(body), "CONSENT_REQUIRED"):
		s.recordRecovery(bank, "consent")
		s.logger.InfoWithContext(ctx, "upstream consent rejected, renegotiating",
			"bank", bank, "user", userID, "endpoint", path)
		if err := s.store.ClearConsent(bank, userID); err != nil {
			return nil, err
		}
		consentID, err = s.ResolveAccountConsent(ctx, bank, userID)
		if err != nil {
			return nil, err
		}
		status, body, err = s.client.do(ctx, bank, method, path, query, withConsent(token, consentID), nil)

	default:
		return nil, &apperrors.ErrUpstream{Bank: bank, Endpoint: path, Status: status, Body: string(body)}
	}

	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, &apperrors.ErrUpstream{Bank: bank, Endpoint: path, Status: status, Body: string(body)}
	}
	return body, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func (s *Service) recordRecovery(bank, kind string) {
	if s.metrics != nil {
		s.metrics.RecordRecoveryRetry(bank, kind)
	}
}

// pending reports whether err is the awaiting-approval condition.
func pending(err error) bool {
	var p *apperrors.ErrConsentPending
	return errors.As(err, &p)
}
