package bank

import (
	"context"
	"net/http"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

// accountConsentPermissions is the maximal read scope. Requesting everything
// up front keeps one consent usable for accounts, balances, transactions and
// cards alike.
var accountConsentPermissions = []string{
	"ReadAccountsDetail",
	"ReadBalances",
	"ReadTransactionsDetail",
	"ReadCards",
}

// negotiateAccountConsent creates a consent request upstream and returns the
// normalized outcome. If a negotiation for this (bank, user) is already
// pending, the stored request id is returned without issuing a second
// request.
func (s *Service) negotiateAccountConsent(ctx context.Context, bank, userID, token string) (models.ConsentResult, error) {
	if rec, ok := s.store.GetConsent(bank, userID); ok && rec.RequestID != "" {
		s.logger.DebugWithContext(ctx, "consent negotiation already pending",
			"bank", bank, "user", userID, "request_id", rec.RequestID)
		return models.ConsentResult{Status: models.StatusPending, RequestID: rec.RequestID}, nil
	}

	reqBody := map[string]any{
		"client_id":            s.client.clientRef(userID),
		"permissions":          accountConsentPermissions,
		"reason":               "Account aggregation",
		"requesting_bank":      s.client.clientID,
		"requesting_bank_name": s.client.clientID + " App",
	}

	status, body, err := s.client.do(ctx, bank, http.MethodPost, "/account-consents/request", nil, bearer(token), reqBody)
	if err != nil {
		s.recordNegotiation(bank, "error")
		return models.ConsentResult{}, err
	}
	if status != http.StatusOK {
		s.recordNegotiation(bank, "upstream_error")
		return models.ConsentResult{}, &errors.ErrUpstream{
			Bank: bank, Endpoint: "/account-consents/request", Status: status, Body: string(body),
		}
	}

	result := parseConsentResponse(body)
	s.recordNegotiation(bank, string(result.Status))
	s.logger.InfoWithContext(ctx, "consent negotiated",
		"bank", bank, "user", userID, "result", result.String())
	return result, nil
}

// pollConsentRequest checks a pending consent request. A 404 means the bank
// no longer knows the request: the consent is treated as revoked so the
// resolver can start over. Transient upstream errors read as still pending.
func (s *Service) pollConsentRequest(ctx context.Context, bank, token, requestID string) (models.PollResult, error) {
	status, body, err := s.client.do(ctx, bank, http.MethodGet, "/account-consents/"+requestID, nil, bearer(token), nil)
	if err != nil {
		return models.PollResult{}, err
	}

	switch {
	case status == http.StatusOK:
		result := parsePollResponse(body)
		s.recordPoll(bank, string(result.Status))
		return result, nil
	case status == http.StatusNotFound:
		s.recordPoll(bank, string(models.PollRevoked))
		return models.PollResult{Status: models.PollRevoked}, nil
	default:
		s.logger.WarnWithContext(ctx, "consent poll failed, treating as pending",
			"bank", bank, "request_id", requestID, "status", status)
		s.recordPoll(bank, "error")
		return models.PollResult{Status: models.PollPending}, nil
	}
}

func (s *Service) recordNegotiation(bank, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordConsentNegotiation(bank, outcome)
	}
}

func (s *Service) recordPoll(bank, result string) {
	if s.metrics != nil {
		s.metrics.RecordConsentPoll(bank, result)
	}
}
