package bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

// Token returns a usable access token for (bank, user). A cached token
// younger than the freshness window is reused; otherwise a new one is
// acquired from the bank's token endpoint and cached.
func (s *Service) Token(ctx context.Context, bank, userID string) (string, error) {
	if cached, ok := s.store.GetAccessToken(bank, userID); ok && cached.Fresh(time.Now()) {
		return cached.Token, nil
	}
	return s.acquireToken(ctx, bank, userID)
}

// InvalidateToken forces the next Token call to hit the bank. Used after an
// upstream 401.
func (s *Service) InvalidateToken(bank, userID string) {
	if err := s.store.InvalidateAccessToken(bank, userID); err != nil {
		s.logger.Error("failed to invalidate access token", "bank", bank, "user", userID, "error", err.Error())
	}
}

func (s *Service) acquireToken(ctx context.Context, bank, userID string) (string, error) {
	query := url.Values{}
	query.Set("client_id", s.client.clientID)
	query.Set("client_secret", s.client.clientSecret)

	status, body, err := s.client.do(ctx, bank, http.MethodPost, "/auth/bank-token", query, nil, nil)
	if err != nil {
		s.recordTokenRefresh(bank, "error")
		return "", err
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if status != http.StatusOK || json.Unmarshal(body, &parsed) != nil || parsed.AccessToken == "" {
		s.logger.WarnWithContext(ctx, "token acquisition failed",
			"bank", bank, "status", status)
		s.recordTokenRefresh(bank, "failure")
		return "", &errors.ErrTokenUnavailable{Bank: bank}
	}

	token := &models.AccessToken{
		Bank:     bank,
		UserID:   userID,
		Token:    parsed.AccessToken,
		IssuedAt: time.Now(),
	}
	if err := s.store.SetAccessToken(token); err != nil {
		return "", err
	}

	s.recordTokenRefresh(bank, "success")
	s.logger.InfoWithContext(ctx, "access token acquired", "bank", bank, "user", userID)
	return parsed.AccessToken, nil
}

func (s *Service) recordTokenRefresh(bank, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTokenRefresh(bank, outcome)
	}
}
