package bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

// Accounts lists the user's accounts at a bank, normalized across the
// upstream shape variants. A pending consent yields an empty list, never an
// error.
func (s *Service) Accounts(ctx context.Context, bank, userID string) ([]models.Account, error) {
	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/accounts", s.clientQuery(userID))
	if err != nil {
		if pending(err) {
			return []models.Account{}, nil
		}
		return nil, err
	}
	return normalizeAccounts(body), nil
}

// AccountBalance returns the available balance for the user's primary
// account at a bank. While consent approval is outstanding the balance reads
// as "0"; callers render it, they do not branch on it.
func (s *Service) AccountBalance(ctx context.Context, bank, userID string) (string, error) {
	accountID, err := s.accountID(ctx, bank, userID)
	if err != nil {
		if pending(err) {
			return "0", nil
		}
		return "0", err
	}

	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/accounts/"+accountID+"/balances", nil)
	if err != nil {
		if pending(err) {
			return "0", nil
		}
		return "0", err
	}
	return extractBalance(body), nil
}

// Transactions returns the raw transaction listing for the user's primary
// account. The payload is passed through untouched; a pending consent reads
// as an empty object.
func (s *Service) Transactions(ctx context.Context, bank, userID string) (json.RawMessage, error) {
	accountID, err := s.accountID(ctx, bank, userID)
	if err != nil {
		if pending(err) {
			return json.RawMessage(`{}`), nil
		}
		return nil, err
	}

	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/accounts/"+accountID+"/transactions", nil)
	if err != nil {
		if pending(err) {
			return json.RawMessage(`{}`), nil
		}
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Cards returns the raw card listing for the user at a bank.
func (s *Service) Cards(ctx context.Context, bank, userID string) (json.RawMessage, error) {
	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/cards", s.clientQuery(userID))
	if err != nil {
		if pending(err) {
			return json.RawMessage(`{}`), nil
		}
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Card returns the raw details of one card.
func (s *Service) Card(ctx context.Context, bank, userID, cardID string) (json.RawMessage, error) {
	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/cards/"+cardID, s.clientQuery(userID))
	if err != nil {
		if pending(err) {
			return json.RawMessage(`{}`), nil
		}
		return nil, err
	}
	return json.RawMessage(body), nil
}

// accountID returns the user's primary account id at a bank, resolving and
// caching it from the live listing on first use.
func (s *Service) accountID(ctx context.Context, bank, userID string) (string, error) {
	if rec, ok := s.store.GetConsent(bank, userID); ok && rec.AccountID != "" {
		return rec.AccountID, nil
	}

	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/accounts", s.clientQuery(userID))
	if err != nil {
		return "", err
	}
	accounts := normalizeAccounts(body)
	if len(accounts) == 0 {
		return "", &errors.ErrNoAccounts{Bank: bank, UserID: userID}
	}

	if err := s.store.SetAccountRef(bank, userID, accounts[0].ID, accounts[0].Number); err != nil {
		return "", err
	}
	return accounts[0].ID, nil
}

// accountNumber returns the user's primary account number. With force set
// the cache is bypassed and rewritten from the live listing; transfers do
// this so payment bodies never carry stale numbers.
func (s *Service) accountNumber(ctx context.Context, bank, userID string, force bool) (string, error) {
	if !force {
		if rec, ok := s.store.GetConsent(bank, userID); ok && rec.AccountNumber != "" && rec.AccountNumber != "0000" {
			return rec.AccountNumber, nil
		}
	}

	body, err := s.fetchResource(ctx, bank, userID, http.MethodGet, "/accounts", s.clientQuery(userID))
	if err != nil {
		return "", err
	}
	accounts := normalizeAccounts(body)
	if len(accounts) == 0 {
		return "", &errors.ErrNoAccounts{Bank: bank, UserID: userID}
	}
	if accounts[0].Number == "" {
		return "", &errors.ErrNoAccounts{Bank: bank, UserID: userID}
	}

	if err := s.store.SetAccountRef(bank, userID, accounts[0].ID, accounts[0].Number); err != nil {
		return "", err
	}
	return accounts[0].Number, nil
}

// refreshAccountRefs rewrites the cached account id and number from a live
// listing, called right after a consent is adopted. It bypasses the recovery
// ladder on purpose: it already runs inside consent resolution.
func (s *Service) refreshAccountRefs(ctx context.Context, bank, userID, token, consentID string) error {
	status, body, err := s.client.do(ctx, bank, http.MethodGet, "/accounts", s.clientQuery(userID), withConsent(token, consentID), nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		return &errors.ErrUpstream{Bank: bank, Endpoint: "/accounts", Status: status, Body: string(body)}
	}

	accounts := normalizeAccounts(body)
	if len(accounts) == 0 {
		return &errors.ErrNoAccounts{Bank: bank, UserID: userID}
	}
	return s.store.SetAccountRef(bank, userID, accounts[0].ID, accounts[0].Number)
}

func (s *Service) clientQuery(userID string) url.Values {
	q := url.Values{}
	q.Set("client_id", s.client.clientRef(userID))
	return q
}
