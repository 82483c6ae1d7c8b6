package bank

import (
	"context"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

// ResolveAccountConsent drives the consent state machine for (bank, user)
// and returns an approved consent id, or ErrConsentPending while end-user
// approval is outstanding.
//
// States, derived from the stored record:
//
//	absent   -> negotiate; approved adopts the id, pending stores request id
//	pending  -> poll the bank; the live answer always wins over the cache,
//	            even when a consent id is cached alongside the request id
//	approved -> return the cached id
//
// A revoked poll clears the record and renegotiates within the same call.
// Resolution is serialized per (bank, user) so concurrent callers observe
// at most one negotiation in flight.
func (s *Service) ResolveAccountConsent(ctx context.Context, bank, userID string) (string, error) {
	unlock := s.consentMu.lock(bank + "\x00" + userID)
	defer unlock()

	token, err := s.Token(ctx, bank, userID)
	if err != nil {
		return "", err
	}

	rec, existed := s.store.GetConsent(bank, userID)

	if rec.State() == models.ConsentPending {
		poll, err := s.pollConsentRequest(ctx, bank, token, rec.RequestID)
		if err != nil {
			return "", err
		}
		switch poll.Status {
		case models.PollAuthorized:
			if err := s.adoptConsent(ctx, bank, userID, token, poll.ConsentID); err != nil {
				return "", err
			}
			return poll.ConsentID, nil
		case models.PollRevoked:
			s.logger.InfoWithContext(ctx, "pending consent revoked upstream, renegotiating",
				"bank", bank, "user", userID, "request_id", rec.RequestID)
			if err := s.store.ClearConsent(bank, userID); err != nil {
				return "", err
			}
			rec = nil
		default:
			return "", &errors.ErrConsentPending{Bank: bank, RequestID: rec.RequestID}
		}
	}

	if rec.State() == models.ConsentApproved {
		return rec.ConsentID, nil
	}

	result, err := s.negotiateAccountConsent(ctx, bank, userID, token)
	if err != nil {
		return "", err
	}
	// First contact for this pair: record the linkage so user-level
	// listings see the bank even when resolution started from a fetch.
	if !existed && (result.Approved() || result.Pending()) {
		if err := s.store.AddUserBank(userID, bank); err != nil {
			return "", err
		}
	}
	switch {
	case result.Approved():
		if err := s.adoptConsent(ctx, bank, userID, token, result.ConsentID); err != nil {
			return "", err
		}
		return result.ConsentID, nil
	case result.Pending():
		if err := s.store.SetRequestID(bank, userID, result.RequestID); err != nil {
			return "", err
		}
		return "", &errors.ErrConsentPending{Bank: bank, RequestID: result.RequestID}
	default:
		return "", &errors.ErrConsentRejected{Bank: bank}
	}
}

// adoptConsent persists an approved consent id and refreshes the cached
// account references under it. The refresh is best effort: a failure costs
// a later listing, not the consent.
func (s *Service) adoptConsent(ctx context.Context, bank, userID, token, consentID string) error {
	if err := s.store.SetConsentID(bank, userID, consentID); err != nil {
		return err
	}
	if err := s.refreshAccountRefs(ctx, bank, userID, token, consentID); err != nil {
		s.logger.WarnWithContext(ctx, "account refresh after consent approval failed",
			"bank", bank, "user", userID, "error", err.Error())
	}
	return nil
}
