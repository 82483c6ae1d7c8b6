package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/metrics"
	"github.com/avotaangi/multibank/internal/store"
)

const (
	headerRequestingBank   = "X-Requesting-Bank"
	headerConsentID        = "X-Consent-Id"
	headerPaymentConsentID = "X-Payment-Consent-Id"
	headerFAPIInteraction  = "X-FAPI-Interaction-Id"
)

// Client issues requests against upstream bank APIs. Base URLs come from the
// bank registry; every call is bounded by the configured timeout and tagged
// with a fresh interaction id.
type Client struct {
	http         *http.Client
	store        store.Store
	clientID     string
	clientSecret string
	timeout      time.Duration
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewClient creates an upstream client for the given integrator credentials.
func NewClient(st store.Store, clientID, clientSecret string, timeout time.Duration, logger *logging.Logger, m *metrics.Metrics) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		store:        st,
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      timeout,
		logger:       logger,
		metrics:      m,
	}
}

// clientRef is the upstream client identifier for one of our users.
func (c *Client) clientRef(userID string) string {
	return c.clientID + "-" + userID
}

// do performs one upstream call and returns the raw status and body. A
// non-2xx status is not an error here; recovery decisions belong to callers.
func (c *Client) do(ctx context.Context, bank, method, path string, query url.Values, headers map[string]string, body any) (int, []byte, error) {
	b, ok := c.store.GetBank(bank)
	if !ok {
		return 0, nil, &errors.ErrUnknownBank{Bank: bank}
	}

	endpoint := b.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set(headerRequestingBank, c.clientID)
	req.Header.Set(headerFAPIInteraction, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnWithContext(ctx, "upstream call failed",
			"bank", bank, "endpoint", path, "error", err.Error())
		if c.metrics != nil {
			c.metrics.RecordUpstreamRequest(bank, path, "error", time.Since(start).Seconds())
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(bank, path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	}
	c.logger.DebugWithContext(ctx, "upstream call",
		"bank", bank, "method", method, "endpoint", path, "status", resp.StatusCode)

	return resp.StatusCode, data, nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func withConsent(token, consentID string) map[string]string {
	h := bearer(token)
	h[headerConsentID] = consentID
	return h
}
