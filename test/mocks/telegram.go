package mocks

import (
	"sync"
	"time"

	"github.com/avotaangi/multibank/internal/telegram"
)

// MockTelegramAPI implements the bot API for testing without Telegram.
type MockTelegramAPI struct {
	mu      sync.Mutex
	sent    []SentMessage
	pending []telegram.Message
}

// SentMessage records one outgoing message.
type SentMessage struct {
	ChatID int64
	Text   string
	Time   time.Time
}

// NewMockTelegramAPI creates an empty mock.
func NewMockTelegramAPI() *MockTelegramAPI {
	return &MockTelegramAPI{}
}

// SendMessage records the outgoing message.
func (m *MockTelegramAPI) SendMessage(chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text, Time: time.Now()})
	return nil
}

// GetUpdates drains the queued incoming messages.
func (m *MockTelegramAPI) GetUpdates() ([]telegram.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updates := m.pending
	m.pending = nil
	return updates, nil
}

// QueueUpdate enqueues an incoming message for the next GetUpdates call.
func (m *MockTelegramAPI) QueueUpdate(chatID int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, telegram.Message{
		ID:        int64(len(m.pending) + 1),
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Sent returns a copy of all recorded outgoing messages.
func (m *MockTelegramAPI) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ telegram.BotAPI = (*MockTelegramAPI)(nil)
