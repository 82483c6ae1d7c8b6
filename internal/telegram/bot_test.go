package telegram

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/models"
	"github.com/avotaangi/multibank/internal/store"
)

// mockBotAPI captures outgoing messages and serves queued updates.
type mockBotAPI struct {
	mu      sync.Mutex
	sent    []Message
	updates []Message
}

func (m *mockBotAPI) SendMessage(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Message{ChatID: chatID, Text: text})
	return nil
}

func (m *mockBotAPI) GetUpdates() ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updates := m.updates
	m.updates = nil
	return updates, nil
}

func (m *mockBotAPI) lastSent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func newBotWithStubBank(t *testing.T) (*Bot, *mockBotAPI) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/bank-token":
			fmt.Fprint(w, `{"access_token":"tok-1"}`)
		case r.URL.Path == "/account-consents/request":
			fmt.Fprint(w, `{"status":"approved","consent_id":"consent-1"}`)
		case r.URL.Path == "/accounts":
			fmt.Fprint(w, `{"data":{"account":[{"accountId":"acc-1","account":[{"identification":"40817810000000000001"}]}]}}`)
		case strings.HasSuffix(r.URL.Path, "/balances"):
			fmt.Fprint(w, `{"data":{"balance":[{"amount":{"amount":"321.00"}}]}}`)
		case r.URL.Path == "/payment-consents/request":
			fmt.Fprint(w, `{"status":"approved","consent_id":"pc-1"}`)
		case r.URL.Path == "/payments":
			fmt.Fprint(w, `{"data":{"status":"AcceptedSettlementCompleted","paymentId":"pay-5"}}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(upstream.Close)

	st := store.NewMemoryStore()
	require.NoError(t, st.RegisterBank(models.Bank{Name: "vbank", BaseURL: upstream.URL}))

	logger := logging.NewLogger(logging.WithOutput(io.Discard))
	client := bank.NewClient(st, "team42", "s3cret", 2*time.Second, logger, nil)
	svc := bank.NewService(st, client, logger, nil)

	api := &mockBotAPI{}
	return NewBot(api, svc, logger), api
}

func TestHandleStartAndHelp(t *testing.T) {
	bot, api := newBotWithStubBank(t)

	bot.handleMessage(Message{ChatID: 10, Text: "/start"})
	require.Contains(t, api.lastSent(), "Multibank")

	bot.handleMessage(Message{ChatID: 10, Text: "/help"})
	require.Contains(t, api.lastSent(), "/transfer")
}

func TestHandleUnknownCommand(t *testing.T) {
	bot, api := newBotWithStubBank(t)
	bot.handleMessage(Message{ChatID: 10, Text: "/bogus"})
	require.Contains(t, api.lastSent(), "Unknown command")
}

func TestHandleBanksMarksLinked(t *testing.T) {
	bot, api := newBotWithStubBank(t)

	bot.handleMessage(Message{ChatID: 10, Text: "/link vbank"})
	require.Contains(t, api.lastSent(), "vbank linked")

	bot.handleMessage(Message{ChatID: 10, Text: "/banks"})
	require.Contains(t, api.lastSent(), "vbank (linked)")
}

func TestHandleLinkUsage(t *testing.T) {
	bot, api := newBotWithStubBank(t)
	bot.handleMessage(Message{ChatID: 10, Text: "/link"})
	require.Contains(t, api.lastSent(), "Usage: /link")
}

func TestHandleBalanceWithoutBanks(t *testing.T) {
	bot, api := newBotWithStubBank(t)
	bot.handleMessage(Message{ChatID: 10, Text: "/balance"})
	require.Contains(t, api.lastSent(), "No banks linked")
}

func TestHandleBalance(t *testing.T) {
	bot, api := newBotWithStubBank(t)

	bot.handleMessage(Message{ChatID: 10, Text: "/link vbank"})
	bot.handleMessage(Message{ChatID: 10, Text: "/balance"})

	last := api.lastSent()
	require.Contains(t, last, "vbank")
	require.Contains(t, last, "321.00")
}

func TestHandleTransfer(t *testing.T) {
	bot, api := newBotWithStubBank(t)

	bot.handleMessage(Message{ChatID: 10, Text: "/link vbank"})
	bot.handleMessage(Message{ChatID: 10, Text: "/transfer vbank vbank 20 150.00"})

	require.Contains(t, api.lastSent(), "pay-5")
}

func TestHandleTransferValidation(t *testing.T) {
	bot, api := newBotWithStubBank(t)

	bot.handleMessage(Message{ChatID: 10, Text: "/transfer vbank vbank 20"})
	require.Contains(t, api.lastSent(), "Usage: /transfer")

	bot.handleMessage(Message{ChatID: 10, Text: "/transfer vbank vbank 20 -3"})
	require.Contains(t, api.lastSent(), "positive number")
}

func TestPollDispatchesUpdates(t *testing.T) {
	bot, api := newBotWithStubBank(t)
	api.updates = []Message{{ChatID: 10, Text: "/start"}}

	bot.poll()
	require.Contains(t, api.lastSent(), "Multibank")
}
