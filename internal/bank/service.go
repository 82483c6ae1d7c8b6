package bank

import (
	"sync"

	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/metrics"
	"github.com/avotaangi/multibank/internal/models"
	"github.com/avotaangi/multibank/internal/store"
)

// Service is the integration facade: token lifecycle, consent lifecycle and
// resource fetching for every registered bank, backed by a single credential
// store. All methods are safe for concurrent use.
type Service struct {
	store   store.Store
	client  *Client
	logger  *logging.Logger
	metrics *metrics.Metrics

	// consentMu serializes consent resolution per (bank, user) so that
	// concurrent callers cannot fire duplicate negotiations.
	consentMu keyedMutex
}

// NewService creates the integration service.
func NewService(st store.Store, client *Client, logger *logging.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Service{
		store:   st,
		client:  client,
		logger:  logger,
		metrics: m,
	}
}

// Banks returns all registered banks.
func (s *Service) Banks() []models.Bank {
	return s.store.ListBanks()
}

// UserBanks returns the banks a user has linked.
func (s *Service) UserBanks(userID string) []string {
	return s.store.GetUserBanks(userID)
}

// Users returns every user that has linked at least one bank.
func (s *Service) Users() []string {
	return s.store.ListUsers()
}

// keyedMutex hands out one mutex per key. Keys are never evicted; the key
// space is bounded by (banks x users) actually seen by this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
