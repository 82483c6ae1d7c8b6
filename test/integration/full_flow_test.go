package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avotaangi/multibank/test/mocks"
)

// respondOnce answers with first for the initial call, then with rest.
func respondOnce(firstStatus int, first string, restStatus int, rest string) http.HandlerFunc {
	var mu sync.Mutex
	var n int
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n++
		current := n
		mu.Unlock()
		if current == 1 {
			w.WriteHeader(firstStatus)
			fmt.Fprint(w, first)
			return
		}
		w.WriteHeader(restStatus)
		fmt.Fprint(w, rest)
	}
}

func TestProvisionAndAggregateBalances(t *testing.T) {
	ts := setupTestServer(t, "vbank", "sbank")
	ts.Upstream.SetBalance("345.67")

	require.Equal(t, "added", provision(t, ts, "alice", "vbank"))
	require.Equal(t, "added", provision(t, ts, "alice", "sbank"))
	require.Equal(t, "already_exists", provision(t, ts, "alice", "vbank"))

	w := doRequest(t, ts.Router, http.MethodGet, "/users/alice/banks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.ElementsMatch(t, []any{"vbank", "sbank"}, decode(t, w)["banks"])

	w = doRequest(t, ts.Router, http.MethodGet, "/users/alice/balances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	balances := decode(t, w)["balances"].(map[string]any)
	require.Equal(t, "345.67", balances["vbank"])
	require.Equal(t, "345.67", balances["sbank"])
}

func TestProvisionUnknownBank(t *testing.T) {
	ts := setupTestServer(t, "vbank")

	w := doRequest(t, ts.Router, http.MethodPost, "/users/alice/banks/nosuch", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "unknown_bank", decode(t, w)["error"])
}

// A bank that requires customer approval: balances read 0 while the request
// is pending, then the real balance appears once the customer approves.
func TestPendingApprovalThenApproved(t *testing.T) {
	ts := setupTestServer(t, "vbank")
	ts.Upstream.RequireApproval("req-7")

	require.Equal(t, "pending_approval", provision(t, ts, "alice", "vbank"))

	w := doRequest(t, ts.Router, http.MethodGet, "/users/alice/balances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "0", decode(t, w)["balances"].(map[string]any)["vbank"])

	// Customer approves in the bank app.
	ts.Upstream.Approve("consent-7")

	w = doRequest(t, ts.Router, http.MethodGet, "/users/alice/banks/vbank/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1000.00", decode(t, w)["balance"])

	// The promotion happened by polling, never by renegotiating.
	require.Equal(t, 1, ts.Upstream.Calls(mocks.RouteConsent))
}

// The bank forgets a pending request: the next read renegotiates from
// scratch within the same call.
func TestForgottenRequestRenegotiates(t *testing.T) {
	ts := setupTestServer(t, "vbank")
	ts.Upstream.RequireApproval("req-gone")

	require.Equal(t, "pending_approval", provision(t, ts, "alice", "vbank"))

	ts.Upstream.Revoke()
	ts.Upstream.Handle(mocks.RouteConsent, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"approved","consent_id":"consent-new"}`)
	})

	w := doRequest(t, ts.Router, http.MethodGet, "/users/alice/banks/vbank/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1000.00", decode(t, w)["balance"])
	require.Equal(t, 2, ts.Upstream.Calls(mocks.RouteConsent))
}

// The bank stops honoring an approved consent: the fetch recovers by
// renegotiating and retrying once.
func TestStaleConsentRecovery(t *testing.T) {
	ts := setupTestServer(t, "vbank")

	require.Equal(t, "added", provision(t, ts, "alice", "vbank"))

	ts.Upstream.Handle(mocks.RouteAccounts, respondOnce(
		http.StatusForbidden, `{"error":"CONSENT_REQUIRED"}`,
		http.StatusOK, `{"data":{"account":[{"accountId":"acc-2"}]}}`,
	))

	w := doRequest(t, ts.Router, http.MethodGet, "/users/alice/banks/vbank/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	accounts := decode(t, w)["accounts"].([]any)
	require.Len(t, accounts, 1)
	require.Equal(t, "acc-2", accounts[0].(map[string]any)["id"])
	require.Equal(t, 2, ts.Upstream.Calls(mocks.RouteConsent))
}

func TestTransferEndToEnd(t *testing.T) {
	ts := setupTestServer(t, "vbank", "sbank")

	require.Equal(t, "added", provision(t, ts, "alice", "vbank"))
	require.Equal(t, "added", provision(t, ts, "bob", "sbank"))

	w := doRequest(t, ts.Router, http.MethodPost, "/transfers", map[string]any{
		"from_bank": "vbank",
		"from_user": "alice",
		"to_bank":   "sbank",
		"to_user":   "bob",
		"amount":    99.5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	result := decode(t, w)
	require.Equal(t, "success", result["status"])
	require.Equal(t, "pay-1", result["payment_id"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(ts.Upstream.LastPaymentBody(), &body))
	initiation := body["data"].(map[string]any)["initiation"].(map[string]any)
	require.Equal(t, "99.50", initiation["instructedAmount"].(map[string]any)["amount"])
	require.Equal(t, "sbank", initiation["creditorAccount"].(map[string]any)["bank_code"])
}

func TestTransferValidation(t *testing.T) {
	ts := setupTestServer(t, "vbank")

	w := doRequest(t, ts.Router, http.MethodPost, "/transfers", map[string]any{
		"from_bank": "vbank",
		"from_user": "alice",
		"to_bank":   "vbank",
		"to_user":   "bob",
		"amount":    -5,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 0, ts.Upstream.Calls(mocks.RoutePayments))
}

func TestHealthAndBankListing(t *testing.T) {
	ts := setupTestServer(t, "vbank", "sbank")

	w := doRequest(t, ts.Router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", decode(t, w)["status"])

	w = doRequest(t, ts.Router, http.MethodGet, "/banks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode(t, w)["banks"], 2)
}
