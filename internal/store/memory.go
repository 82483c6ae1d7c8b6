package store

import (
	"sort"
	"sync"
	"time"

	"github.com/avotaangi/multibank/internal/models"
)

// MemoryStore provides an in-memory credential store. It is thread-safe and
// used by tests and ephemeral setups; the SQLite store is the durable one.
type MemoryStore struct {
	mu        sync.RWMutex
	banks     map[string]models.Bank
	tokens    map[string]*models.AccessToken   // key: (bank, user)
	consents  map[string]*models.ConsentRecord // key: (bank, user)
	userBanks map[string][]string              // key: user
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		banks:     make(map[string]models.Bank),
		tokens:    make(map[string]*models.AccessToken),
		consents:  make(map[string]*models.ConsentRecord),
		userBanks: make(map[string][]string),
	}
}

// Bank registry

func (s *MemoryStore) RegisterBank(bank models.Bank) error {
	if err := bank.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[bank.Name]; ok {
		return nil
	}
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = time.Now()
	}
	s.banks[bank.Name] = bank
	return nil
}

func (s *MemoryStore) GetBank(name string) (*models.Bank, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bank, ok := s.banks[name]
	if !ok {
		return nil, false
	}
	return &bank, true
}

func (s *MemoryStore) ListBanks() []models.Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Access tokens

func (s *MemoryStore) GetAccessToken(bank, userID string) (*models.AccessToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[tokenKey(bank, userID)]
	if !ok {
		return nil, false
	}
	copied := *token
	return &copied, true
}

func (s *MemoryStore) SetAccessToken(token *models.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *token
	s.tokens[tokenKey(token.Bank, token.UserID)] = &copied
	return nil
}

func (s *MemoryStore) InvalidateAccessToken(bank, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.tokens[tokenKey(bank, userID)]; ok {
		token.IssuedAt = time.Time{}
	}
	return nil
}

// Consent records

func (s *MemoryStore) GetConsent(bank, userID string) (*models.ConsentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.consents[tokenKey(bank, userID)]
	if !ok {
		return nil, false
	}
	copied := *record
	return &copied, true
}

func (s *MemoryStore) UpsertConsent(record *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	copied.UpdatedAt = time.Now()
	s.consents[tokenKey(record.Bank, record.UserID)] = &copied
	return nil
}

func (s *MemoryStore) SetConsentID(bank, userID, consentID string) error {
	return s.updateConsent(bank, userID, func(r *models.ConsentRecord) {
		r.ConsentID = consentID
		r.RequestID = ""
	})
}

func (s *MemoryStore) SetRequestID(bank, userID, requestID string) error {
	return s.updateConsent(bank, userID, func(r *models.ConsentRecord) {
		r.RequestID = requestID
	})
}

func (s *MemoryStore) ClearConsent(bank, userID string) error {
	return s.updateConsent(bank, userID, func(r *models.ConsentRecord) {
		r.ConsentID = ""
		r.RequestID = ""
	})
}

func (s *MemoryStore) SetAccountRef(bank, userID, accountID, accountNumber string) error {
	return s.updateConsent(bank, userID, func(r *models.ConsentRecord) {
		r.AccountID = accountID
		r.AccountNumber = accountNumber
	})
}

func (s *MemoryStore) SetPaymentConsent(bank, userID, consentID, requestID string) error {
	return s.updateConsent(bank, userID, func(r *models.ConsentRecord) {
		r.PaymentConsentID = consentID
		r.PaymentRequestID = requestID
	})
}

func (s *MemoryStore) updateConsent(bank, userID string, apply func(*models.ConsentRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(bank, userID)
	record, ok := s.consents[key]
	if !ok {
		record = &models.ConsentRecord{Bank: bank, UserID: userID}
		s.consents[key] = record
	}
	apply(record)
	record.UpdatedAt = time.Now()
	return nil
}

// User-bank index

func (s *MemoryStore) AddUserBank(userID, bank string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.userBanks[userID] {
		if b == bank {
			return nil
		}
	}
	s.userBanks[userID] = append(s.userBanks[userID], bank)
	return nil
}

func (s *MemoryStore) GetUserBanks(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banks := make([]string, len(s.userBanks[userID]))
	copy(banks, s.userBanks[userID])
	return banks
}

func (s *MemoryStore) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.userBanks))
	for u := range s.userBanks {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Close implements Store Close (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)
