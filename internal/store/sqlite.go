package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/models"
)

// SQLiteStore is the durable credential store, WAL mode enabled. It is
// thread-safe and supports concurrent access.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore creates a new SQLite store with WAL mode enabled.
func NewSQLiteStore(dbPath string, logger *logging.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = logging.NewLogger()
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "create migrations table", Err: err}
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "get current migration version", Err: err}
	}

	migrations := []struct {
		version int
		up      string
	}{
		{
			version: 1,
			up: `
				CREATE TABLE IF NOT EXISTS banks (
					name TEXT PRIMARY KEY,
					base_url TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE TABLE IF NOT EXISTS access_tokens (
					bank TEXT NOT NULL,
					user_id TEXT NOT NULL,
					token TEXT NOT NULL,
					issued_at DATETIME NOT NULL,
					PRIMARY KEY (bank, user_id)
				);

				CREATE TABLE IF NOT EXISTS consents (
					bank TEXT NOT NULL,
					user_id TEXT NOT NULL,
					consent_id TEXT NOT NULL DEFAULT '',
					request_id TEXT NOT NULL DEFAULT '',
					account_id TEXT NOT NULL DEFAULT '',
					account_number TEXT NOT NULL DEFAULT '',
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (bank, user_id)
				);

				CREATE TABLE IF NOT EXISTS user_banks (
					user_id TEXT NOT NULL,
					bank TEXT NOT NULL,
					PRIMARY KEY (user_id, bank)
				);

				CREATE INDEX IF NOT EXISTS idx_consents_request_id ON consents(request_id);
				CREATE INDEX IF NOT EXISTS idx_user_banks_user ON user_banks(user_id);
			`,
		},
		{
			version: 2,
			up: `
				ALTER TABLE consents ADD COLUMN payment_consent_id TEXT NOT NULL DEFAULT '';
				ALTER TABLE consents ADD COLUMN payment_request_id TEXT NOT NULL DEFAULT '';
			`,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "begin transaction", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range migrations {
		if m.version > currentVersion {
			if _, err := tx.Exec(m.up); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "commit migrations", Err: err}
	}

	return nil
}

// Bank registry

func (s *SQLiteStore) RegisterBank(bank models.Bank) error {
	if err := bank.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO banks (name, base_url) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, bank.Name, bank.BaseURL)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "register bank", Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetBank(name string) (*models.Bank, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bank models.Bank
	err := s.db.QueryRow(`
		SELECT name, base_url, created_at FROM banks WHERE name = ?
	`, name).Scan(&bank.Name, &bank.BaseURL, &bank.CreatedAt)
	if err != nil {
		return nil, false
	}
	return &bank, true
}

func (s *SQLiteStore) ListBanks() []models.Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT name, base_url, created_at FROM banks ORDER BY name`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var banks []models.Bank
	for rows.Next() {
		var bank models.Bank
		if err := rows.Scan(&bank.Name, &bank.BaseURL, &bank.CreatedAt); err != nil {
			continue
		}
		banks = append(banks, bank)
	}
	return banks
}

// Access tokens

func (s *SQLiteStore) GetAccessToken(bank, userID string) (*models.AccessToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var token models.AccessToken
	err := s.db.QueryRow(`
		SELECT bank, user_id, token, issued_at FROM access_tokens WHERE bank = ? AND user_id = ?
	`, bank, userID).Scan(&token.Bank, &token.UserID, &token.Token, &token.IssuedAt)
	if err != nil {
		return nil, false
	}
	return &token, true
}

func (s *SQLiteStore) SetAccessToken(token *models.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO access_tokens (bank, user_id, token, issued_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bank, user_id) DO UPDATE SET
			token = excluded.token,
			issued_at = excluded.issued_at
	`, token.Bank, token.UserID, token.Token, token.IssuedAt)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set access token", Err: err}
	}
	return nil
}

func (s *SQLiteStore) InvalidateAccessToken(bank, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE access_tokens SET issued_at = ? WHERE bank = ? AND user_id = ?
	`, time.Time{}, bank, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "invalidate access token", Err: err}
	}
	return nil
}

// Consent records

func (s *SQLiteStore) GetConsent(bank, userID string) (*models.ConsentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var record models.ConsentRecord
	err := s.db.QueryRow(`
		SELECT bank, user_id, consent_id, request_id, account_id, account_number,
		       payment_consent_id, payment_request_id, updated_at
		FROM consents WHERE bank = ? AND user_id = ?
	`, bank, userID).Scan(
		&record.Bank, &record.UserID, &record.ConsentID, &record.RequestID,
		&record.AccountID, &record.AccountNumber,
		&record.PaymentConsentID, &record.PaymentRequestID, &record.UpdatedAt,
	)
	if err != nil {
		return nil, false
	}
	return &record, true
}

func (s *SQLiteStore) UpsertConsent(record *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO consents (bank, user_id, consent_id, request_id, account_id, account_number,
		                      payment_consent_id, payment_request_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bank, user_id) DO UPDATE SET
			consent_id = excluded.consent_id,
			request_id = excluded.request_id,
			account_id = excluded.account_id,
			account_number = excluded.account_number,
			payment_consent_id = excluded.payment_consent_id,
			payment_request_id = excluded.payment_request_id,
			updated_at = excluded.updated_at
	`, record.Bank, record.UserID, record.ConsentID, record.RequestID,
		record.AccountID, record.AccountNumber,
		record.PaymentConsentID, record.PaymentRequestID, time.Now())
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "upsert consent", Err: err}
	}
	return nil
}

func (s *SQLiteStore) SetConsentID(bank, userID, consentID string) error {
	return s.updateConsent("set consent id", bank, userID, `
		UPDATE consents SET consent_id = ?, request_id = '', updated_at = ?
		WHERE bank = ? AND user_id = ?
	`, consentID)
}

func (s *SQLiteStore) SetRequestID(bank, userID, requestID string) error {
	return s.updateConsent("set request id", bank, userID, `
		UPDATE consents SET request_id = ?, updated_at = ?
		WHERE bank = ? AND user_id = ?
	`, requestID)
}

func (s *SQLiteStore) ClearConsent(bank, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE consents SET consent_id = '', request_id = '', updated_at = ?
		WHERE bank = ? AND user_id = ?
	`, time.Now(), bank, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "clear consent", Err: err}
	}
	return nil
}

func (s *SQLiteStore) SetAccountRef(bank, userID, accountID, accountNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConsentRow(bank, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE consents SET account_id = ?, account_number = ?, updated_at = ?
		WHERE bank = ? AND user_id = ?
	`, accountID, accountNumber, time.Now(), bank, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set account ref", Err: err}
	}
	return nil
}

func (s *SQLiteStore) SetPaymentConsent(bank, userID, consentID, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConsentRow(bank, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		UPDATE consents SET payment_consent_id = ?, payment_request_id = ?, updated_at = ?
		WHERE bank = ? AND user_id = ?
	`, consentID, requestID, time.Now(), bank, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "set payment consent", Err: err}
	}
	return nil
}

func (s *SQLiteStore) updateConsent(operation, bank, userID, query string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConsentRow(bank, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(query, value, time.Now(), bank, userID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: operation, Err: err}
	}
	return nil
}

// ensureConsentRow creates an empty record so narrow updates always land.
// Callers must hold the write lock.
func (s *SQLiteStore) ensureConsentRow(bank, userID string) error {
	_, err := s.db.Exec(`
		INSERT INTO consents (bank, user_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(bank, user_id) DO NOTHING
	`, bank, userID, time.Now())
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "ensure consent row", Err: err}
	}
	return nil
}

// User-bank index

func (s *SQLiteStore) AddUserBank(userID, bank string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO user_banks (user_id, bank) VALUES (?, ?)
		ON CONFLICT(user_id, bank) DO NOTHING
	`, userID, bank)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "add user bank", Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetUserBanks(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT bank FROM user_banks WHERE user_id = ? ORDER BY bank`, userID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var banks []string
	for rows.Next() {
		var bank string
		if err := rows.Scan(&bank); err != nil {
			continue
		}
		banks = append(banks, bank)
	}
	return banks
}

func (s *SQLiteStore) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM user_banks ORDER BY user_id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			continue
		}
		users = append(users, user)
	}
	return users
}

// Close gracefully shuts down the store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLiteStore implements the Store interface
var _ Store = (*SQLiteStore)(nil)
