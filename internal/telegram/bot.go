package telegram

import (
	"strconv"
	"sync"
	"time"

	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/logging"
)

// Message represents a message received or sent by the bot
type Message struct {
	ID        int64
	ChatID    int64
	Text      string
	Timestamp time.Time
}

// BotAPI interface for Telegram bot operations (allows mocking in tests)
type BotAPI interface {
	SendMessage(chatID int64, text string) error
	GetUpdates() ([]Message, error)
}

// Bot is the Telegram front-end over the bank integration service. Each chat
// maps to one user: the chat id doubles as the user id for provisioning and
// transfers.
type Bot struct {
	api     BotAPI
	service *bank.Service
	logger  *logging.Logger

	pollInterval time.Duration
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewBot creates a bot over the given API client and integration service.
func NewBot(api BotAPI, service *bank.Service, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Bot{
		api:          api,
		service:      service,
		logger:       logger,
		pollInterval: 2 * time.Second,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling for updates in a background goroutine.
func (b *Bot) Start() {
	b.wg.Add(1)
	go b.run()
	b.logger.Info("telegram bot started")
}

// Stop halts polling and waits for in-flight handling to finish.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.wg.Wait()
	b.logger.Info("telegram bot stopped")
}

func (b *Bot) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.poll()
		}
	}
}

func (b *Bot) poll() {
	messages, err := b.api.GetUpdates()
	if err != nil {
		b.logger.Warn("failed to fetch telegram updates", "error", err.Error())
		return
	}
	for _, msg := range messages {
		b.handleMessage(msg)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if err := b.api.SendMessage(chatID, text); err != nil {
		b.logger.Error("failed to send telegram message", "chat_id", chatID, "error", err.Error())
	}
}

// userID maps a chat to the integration user identifier.
func userID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
