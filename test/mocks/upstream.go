package mocks

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// UpstreamBank simulates an upstream Open Banking API for testing. Every
// route is overridable and counts its calls; the default handlers answer
// with a happy path (token issued, consent approved, one account).
type UpstreamBank struct {
	server   *httptest.Server
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc

	lastPaymentBody    []byte
	lastPaymentHeaders http.Header
}

// Route names understood by Handle and Calls.
const (
	RouteToken          = "token"
	RouteConsent        = "consent"
	RoutePoll           = "poll"
	RoutePaymentConsent = "payment-consent"
	RoutePayments       = "payments"
	RouteAccounts       = "accounts"
	RouteBalances       = "balances"
	RouteTransactions   = "transactions"
	RouteCards          = "cards"
	RouteCard           = "card"
)

// NewUpstreamBank creates a running mock bank. Callers must Close it.
func NewUpstreamBank() *UpstreamBank {
	u := &UpstreamBank{
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	u.server = httptest.NewServer(http.HandlerFunc(u.serve))

	u.handlers[RouteToken] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, u.Calls(RouteToken))
	}
	u.handlers[RouteConsent] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"approved","consent_id":"consent-1"}`)
	}
	u.handlers[RoutePoll] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"pending"}`)
	}
	u.handlers[RouteAccounts] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"account":[{"accountId":"acc-1","account":[{"identification":"40817810000000000001"}]}]}}`)
	}
	u.handlers[RouteBalances] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"balance":[{"amount":{"amount":"1000.00","currency":"RUB"}}]}}`)
	}
	u.handlers[RouteTransactions] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"transaction":[]}}`)
	}
	u.handlers[RouteCards] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"card":[]}}`)
	}
	u.handlers[RouteCard] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"cardId":"card-1","status":"Active"}}`)
	}
	u.handlers[RoutePaymentConsent] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"approved","consent_id":"pay-consent-1"}`)
	}
	u.handlers[RoutePayments] = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"status":"AcceptedSettlementCompleted","paymentId":"pay-1"}}`)
	}
	return u
}

// URL returns the base URL banks should be registered with.
func (u *UpstreamBank) URL() string {
	return u.server.URL
}

// Close shuts down the underlying test server.
func (u *UpstreamBank) Close() {
	u.server.Close()
}

// Handle overrides the handler for a route.
func (u *UpstreamBank) Handle(route string, h http.HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers[route] = h
}

// Calls returns how many requests a route has received.
func (u *UpstreamBank) Calls(route string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[route]
}

// LastPaymentBody returns the body of the most recent payment submission.
func (u *UpstreamBank) LastPaymentBody() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastPaymentBody
}

// LastPaymentHeaders returns the headers of the most recent payment
// submission.
func (u *UpstreamBank) LastPaymentHeaders() http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastPaymentHeaders
}

// SetBalance makes the balance route report the given amount.
func (u *UpstreamBank) SetBalance(amount string) {
	u.Handle(RouteBalances, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"balance":[{"amount":{"amount":"%s","currency":"RUB"}}]}}`, amount)
	})
}

// RequireApproval makes consent negotiation answer pending with the given
// request id, simulating a bank that waits for the customer to approve.
func (u *UpstreamBank) RequireApproval(requestID string) {
	u.Handle(RouteConsent, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"pending","request_id":"%s"}`, requestID)
	})
}

// Approve makes consent polling report the request as authorized with the
// given consent id, simulating the customer approving in the bank app.
func (u *UpstreamBank) Approve(consentID string) {
	u.Handle(RoutePoll, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"status":"Authorized","consentId":"%s"}}`, consentID)
	})
}

// Revoke makes consent polling answer 404, simulating a request the bank no
// longer knows about.
func (u *UpstreamBank) Revoke() {
	u.Handle(RoutePoll, http.NotFound)
}

func (u *UpstreamBank) serve(w http.ResponseWriter, r *http.Request) {
	route := classify(r)

	u.mu.Lock()
	u.calls[route]++
	if route == RoutePayments {
		u.lastPaymentBody, _ = io.ReadAll(r.Body)
		u.lastPaymentHeaders = r.Header.Clone()
	}
	handler := u.handlers[route]
	u.mu.Unlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func classify(r *http.Request) string {
	p := r.URL.Path
	switch {
	case p == "/auth/bank-token":
		return RouteToken
	case p == "/account-consents/request":
		return RouteConsent
	case strings.HasPrefix(p, "/account-consents/"):
		return RoutePoll
	case p == "/payment-consents/request":
		return RoutePaymentConsent
	case p == "/payments":
		return RoutePayments
	case p == "/accounts":
		return RouteAccounts
	case strings.HasSuffix(p, "/balances"):
		return RouteBalances
	case strings.HasSuffix(p, "/transactions"):
		return RouteTransactions
	case p == "/cards":
		return RouteCards
	case strings.HasPrefix(p, "/cards/"):
		return RouteCard
	}
	return "unknown"
}
