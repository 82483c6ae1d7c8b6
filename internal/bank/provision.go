package bank

import (
	"context"

	"github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

// ProvisionAccount links a user to a bank and drives consent resolution to
// a decision. Outcomes:
//
//	added            the link is new and the consent is approved
//	already_exists   the link existed with an approved consent
//	pending_approval consent negotiation awaits end-user approval
//
// Re-provisioning while pending re-polls instead of renegotiating, so the
// call is safe to repeat.
func (s *Service) ProvisionAccount(ctx context.Context, bank, userID string) (models.ProvisionStatus, error) {
	if _, ok := s.store.GetBank(bank); !ok {
		return "", &errors.ErrUnknownBank{Bank: bank}
	}

	linked := false
	for _, b := range s.store.GetUserBanks(userID) {
		if b == bank {
			linked = true
			break
		}
	}

	rec, _ := s.store.GetConsent(bank, userID)
	if linked && rec.State() == models.ConsentApproved {
		return models.ProvisionAlreadyExists, nil
	}

	if !linked {
		if err := s.store.AddUserBank(userID, bank); err != nil {
			return "", err
		}
	}

	_, err := s.ResolveAccountConsent(ctx, bank, userID)
	switch {
	case err == nil:
		if linked {
			return models.ProvisionAlreadyExists, nil
		}
		s.logger.InfoWithContext(ctx, "account provisioned", "bank", bank, "user", userID)
		return models.ProvisionAdded, nil
	case pending(err):
		s.logger.InfoWithContext(ctx, "account provisioned, consent awaiting approval",
			"bank", bank, "user", userID)
		return models.ProvisionPendingApproval, nil
	default:
		return "", err
	}
}
