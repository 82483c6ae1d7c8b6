package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avotaangi/multibank/internal/models"
)

// runStoreTests exercises both implementations against the same behavior.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("bank registry", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.RegisterBank(models.Bank{Name: "vbank", BaseURL: "https://vbank.example.test"}))
		require.NoError(t, s.RegisterBank(models.Bank{Name: "abank", BaseURL: "https://abank.example.test"}))

		// Re-registering is a no-op, not an error.
		require.NoError(t, s.RegisterBank(models.Bank{Name: "vbank", BaseURL: "https://other.example.test"}))

		bank, ok := s.GetBank("vbank")
		require.True(t, ok)
		require.Equal(t, "https://vbank.example.test", bank.BaseURL)

		_, ok = s.GetBank("nope")
		require.False(t, ok)

		banks := s.ListBanks()
		require.Len(t, banks, 2)
		require.Equal(t, "abank", banks[0].Name)
		require.Equal(t, "vbank", banks[1].Name)
	})

	t.Run("rejects invalid bank", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.Error(t, s.RegisterBank(models.Bank{Name: "", BaseURL: "https://x"}))
		require.Error(t, s.RegisterBank(models.Bank{Name: "v bank", BaseURL: "https://x"}))
	})

	t.Run("access tokens scoped by bank and user", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		issued := time.Now().Truncate(time.Second)
		require.NoError(t, s.SetAccessToken(&models.AccessToken{
			Bank: "vbank", UserID: "alice", Token: "tok-a", IssuedAt: issued,
		}))
		require.NoError(t, s.SetAccessToken(&models.AccessToken{
			Bank: "vbank", UserID: "bob", Token: "tok-b", IssuedAt: issued,
		}))

		token, ok := s.GetAccessToken("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, "tok-a", token.Token)
		require.True(t, token.Fresh(time.Now()))

		_, ok = s.GetAccessToken("sbank", "alice")
		require.False(t, ok)
	})

	t.Run("invalidate forces expiry", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.SetAccessToken(&models.AccessToken{
			Bank: "vbank", UserID: "alice", Token: "tok", IssuedAt: time.Now(),
		}))
		require.NoError(t, s.InvalidateAccessToken("vbank", "alice"))

		token, ok := s.GetAccessToken("vbank", "alice")
		require.True(t, ok)
		require.False(t, token.Fresh(time.Now()))

		// Invalidating an absent token is harmless.
		require.NoError(t, s.InvalidateAccessToken("vbank", "ghost"))
	})

	t.Run("consent lifecycle fields", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, ok := s.GetConsent("vbank", "alice")
		require.False(t, ok)

		require.NoError(t, s.SetRequestID("vbank", "alice", "req-1"))
		record, ok := s.GetConsent("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, models.ConsentPending, record.State())
		require.Equal(t, "req-1", record.RequestID)

		// Adopting a consent clears the pending request in the same write.
		require.NoError(t, s.SetConsentID("vbank", "alice", "consent-1"))
		record, ok = s.GetConsent("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, models.ConsentApproved, record.State())
		require.Equal(t, "consent-1", record.ConsentID)
		require.Empty(t, record.RequestID)

		require.NoError(t, s.ClearConsent("vbank", "alice"))
		record, ok = s.GetConsent("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, models.ConsentAbsent, record.State())
	})

	t.Run("account ref and payment consent", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.SetAccountRef("vbank", "alice", "acc-1", "40817810000000000001"))
		require.NoError(t, s.SetPaymentConsent("vbank", "alice", "pc-1", "preq-1"))

		record, ok := s.GetConsent("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, "acc-1", record.AccountID)
		require.Equal(t, "40817810000000000001", record.AccountNumber)
		require.Equal(t, "pc-1", record.PaymentConsentID)
		require.Equal(t, "preq-1", record.PaymentRequestID)
	})

	t.Run("upsert consent replaces record", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.UpsertConsent(&models.ConsentRecord{
			Bank: "vbank", UserID: "alice", ConsentID: "c-1", AccountID: "acc-1",
		}))
		require.NoError(t, s.UpsertConsent(&models.ConsentRecord{
			Bank: "vbank", UserID: "alice", ConsentID: "c-2",
		}))

		record, ok := s.GetConsent("vbank", "alice")
		require.True(t, ok)
		require.Equal(t, "c-2", record.ConsentID)
		require.Empty(t, record.AccountID)
	})

	t.Run("user bank index", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		require.NoError(t, s.AddUserBank("alice", "vbank"))
		require.NoError(t, s.AddUserBank("alice", "sbank"))
		require.NoError(t, s.AddUserBank("alice", "vbank"))
		require.NoError(t, s.AddUserBank("bob", "vbank"))

		banks := s.GetUserBanks("alice")
		require.Len(t, banks, 2)
		require.Contains(t, banks, "vbank")
		require.Contains(t, banks, "sbank")

		require.Empty(t, s.GetUserBanks("ghost"))
		require.Equal(t, []string{"alice", "bob"}, s.ListUsers())
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "multibank.db"), nil)
		require.NoError(t, err)
		return s
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multibank.db")

	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.RegisterBank(models.Bank{Name: "vbank", BaseURL: "https://vbank.example.test"}))
	require.NoError(t, s.SetConsentID("vbank", "alice", "consent-1"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.GetBank("vbank")
	require.True(t, ok)
	record, ok := s.GetConsent("vbank", "alice")
	require.True(t, ok)
	require.Equal(t, "consent-1", record.ConsentID)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SetAccessToken(&models.AccessToken{
		Bank: "vbank", UserID: "alice", Token: "tok", IssuedAt: time.Now(),
	}))

	token, ok := s.GetAccessToken("vbank", "alice")
	require.True(t, ok)
	token.Token = "mutated"

	again, ok := s.GetAccessToken("vbank", "alice")
	require.True(t, ok)
	require.Equal(t, "tok", again.Token)
}
