package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/metrics"
	"github.com/avotaangi/multibank/internal/models"
	"github.com/avotaangi/multibank/internal/store"
)

// upstreamStub answers every bank endpoint with a happy-path response.
func upstreamStub(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/bank-token":
			fmt.Fprint(w, `{"access_token":"tok-1"}`)
		case r.URL.Path == "/account-consents/request":
			fmt.Fprint(w, `{"status":"approved","consent_id":"consent-1"}`)
		case r.URL.Path == "/accounts":
			fmt.Fprint(w, `{"data":{"account":[{"accountId":"acc-1","account":[{"identification":"40817810000000000001"}]}]}}`)
		case strings.HasSuffix(r.URL.Path, "/balances"):
			fmt.Fprint(w, `{"data":{"balance":[{"amount":{"amount":"777.00"}}]}}`)
		case r.URL.Path == "/payments":
			fmt.Fprint(w, `{"data":{"status":"AcceptedSettlementCompleted","paymentId":"pay-1"}}`)
		case r.URL.Path == "/payment-consents/request":
			fmt.Fprint(w, `{"status":"approved","consent_id":"pc-1"}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, apiKeys []string) *Server {
	upstream := upstreamStub(t)

	st := store.NewMemoryStore()
	require.NoError(t, st.RegisterBank(models.Bank{Name: "vbank", BaseURL: upstream.URL}))
	require.NoError(t, st.RegisterBank(models.Bank{Name: "sbank", BaseURL: upstream.URL}))

	logger := logging.NewLogger(logging.WithOutput(io.Discard))
	client := bank.NewClient(st, "team42", "s3cret", 2*time.Second, logger, nil)
	svc := bank.NewService(st, client, logger, nil)

	cfg := config.ServerConfig{Host: "127.0.0.1", HTTPPort: 0}
	apiCfg := config.APIConfig{Enabled: true}
	apiCfg.Auth.APIKeys = apiKeys
	apiCfg.Auth.HeaderName = DefaultAPIKeyHeader

	return NewServer(cfg, apiCfg, st, svc, metrics.NewMetrics("test"), logger)
}

func doRequest(srv *Server, method, path, body, apiKey string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set(DefaultAPIKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t, []string{"key-1"})
	w := doRequest(srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsNoAuth(t *testing.T) {
	srv := newTestServer(t, []string{"key-1"})
	w := doRequest(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, []string{"key-1"})

	w := doRequest(srv, http.MethodGet, "/banks", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/banks", "", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/banks", "", "key-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "vbank")
}

func TestAuthBypassedWithoutKeys(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doRequest(srv, http.MethodGet, "/banks", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProvisionAndBalances(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doRequest(srv, http.MethodPost, "/users/alice/banks/vbank", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.ProvisionAdded))

	w = doRequest(srv, http.MethodGet, "/users/alice/banks", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "vbank")

	w = doRequest(srv, http.MethodGet, "/users/alice/balances", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "777.00")
}

func TestProvisionUnknownBank(t *testing.T) {
	srv := newTestServer(t, nil)
	w := doRequest(srv, http.MethodPost, "/users/alice/banks/nosuch", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "unknown_bank")
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doRequest(srv, http.MethodPost, "/transfers",
		`{"from_bank":"vbank","from_user":"alice","to_bank":"sbank","to_user":"bob","amount":50}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.TransferSuccess))
	require.Contains(t, w.Body.String(), "pay-1")
}

func TestTransferValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	cases := []string{
		`{}`,
		`{"from_bank":"vbank"}`,
		`{"from_bank":"vbank","from_user":"a","to_bank":"sbank","to_user":"b","amount":-5}`,
		`not json`,
	}
	for _, body := range cases {
		w := doRequest(srv, http.MethodPost, "/transfers", body, "")
		require.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}
