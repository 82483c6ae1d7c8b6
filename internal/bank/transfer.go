package bank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/avotaangi/multibank/internal/errors"
	"github.com/avotaangi/multibank/internal/models"
)

const settlementCompleted = "AcceptedSettlementCompleted"

// ExecuteTransfer moves money between two linked accounts, possibly across
// banks. The debtor bank authorizes the payment under a single_use payment
// consent; if the first attempt bounces with 403 a consent without a fixed
// creditor is negotiated and the payment is retried once. A payment consent
// stuck in pending ends the transfer with pending_consent, not an error.
func (s *Service) ExecuteTransfer(ctx context.Context, fromBank, fromUser, toBank, toUser string, amount float64) (models.TransferResult, error) {
	if _, err := s.ResolveAccountConsent(ctx, fromBank, fromUser); err != nil {
		return transferBlocked(err)
	}
	if _, err := s.ResolveAccountConsent(ctx, toBank, toUser); err != nil {
		return transferBlocked(err)
	}

	// Account numbers are re-read from the live listings so the payment body
	// never carries stale identifiers.
	debtor, err := s.accountNumber(ctx, fromBank, fromUser, true)
	if err != nil {
		return transferBlocked(err)
	}
	creditor, err := s.accountNumber(ctx, toBank, toUser, true)
	if err != nil {
		return transferBlocked(err)
	}

	token, err := s.Token(ctx, fromBank, fromUser)
	if err != nil {
		return models.TransferResult{}, err
	}

	// Best effort: a single_use consent naming the creditor usually gets
	// auto-approved. Failure here is not fatal; the payment attempt itself
	// reports whether a consent was actually required.
	paymentConsent, err := s.negotiatePaymentConsent(ctx, fromBank, fromUser, token, debtor, creditor, amount)
	if err != nil {
		s.logger.WarnWithContext(ctx, "payment consent negotiation failed, attempting payment without it",
			"bank", fromBank, "user", fromUser, "error", err.Error())
		paymentConsent = ""
	}

	result, err := s.submitPayment(ctx, fromBank, fromUser, toBank, token, paymentConsent, debtor, creditor, amount)
	if err != nil {
		return models.TransferResult{}, err
	}
	s.recordTransfer(string(result.Status))
	return result, nil
}

// negotiatePaymentConsent asks the debtor bank for a single_use payment
// consent. creditor may be empty; the bank then grants one payment to any
// destination, which is the fallback used after a 403.
func (s *Service) negotiatePaymentConsent(ctx context.Context, bank, userID, token, debtor, creditor string, amount float64) (string, error) {
	reqBody := map[string]any{
		"requesting_bank": s.client.clientID,
		"client_id":       s.client.clientRef(userID),
		"consent_type":    "single_use",
		"amount":          amount,
		"currency":        "RUB",
		"debtor_account":  debtor,
		"reference":       "Multibank transfer",
	}
	if creditor != "" {
		reqBody["creditor_account"] = creditor
	}

	status, body, err := s.client.do(ctx, bank, http.MethodPost, "/payment-consents/request", nil, bearer(token), reqBody)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &apperrors.ErrUpstream{Bank: bank, Endpoint: "/payment-consents/request", Status: status, Body: string(body)}
	}

	result := parseConsentResponse(body)
	switch {
	case result.Approved():
		if err := s.store.SetPaymentConsent(bank, userID, result.ConsentID, ""); err != nil {
			return "", err
		}
		return result.ConsentID, nil
	case result.Pending():
		if err := s.store.SetPaymentConsent(bank, userID, "", result.RequestID); err != nil {
			return "", err
		}
		return "", &apperrors.ErrConsentPending{Bank: bank, RequestID: result.RequestID}
	default:
		return "", &apperrors.ErrUpstream{Bank: bank, Endpoint: "/payment-consents/request", Status: status, Body: string(body)}
	}
}

func (s *Service) submitPayment(ctx context.Context, fromBank, fromUser, toBank, token, paymentConsent, debtor, creditor string, amount float64) (models.TransferResult, error) {
	body := paymentBody(fromBank, toBank, debtor, creditor, amount)

	headers := bearer(token)
	if paymentConsent != "" {
		headers[headerPaymentConsentID] = paymentConsent
	}

	status, respBody, err := s.client.do(ctx, fromBank, http.MethodPost, "/payments", s.clientQuery(fromUser), headers, body)
	if err != nil {
		return models.TransferResult{}, err
	}

	if status == http.StatusForbidden {
		// The bank wants a payment consent it did not see. Negotiate one
		// without a fixed creditor and retry exactly once.
		s.recordRecovery(fromBank, "payment_consent")
		s.logger.InfoWithContext(ctx, "payment rejected with 403, negotiating payment consent",
			"bank", fromBank, "user", fromUser)

		consentID, err := s.negotiatePaymentConsent(ctx, fromBank, fromUser, token, debtor, "", amount)
		if err != nil {
			if pending(err) {
				var p *apperrors.ErrConsentPending
				errors.As(err, &p)
				return models.TransferResult{
					Status:    models.TransferPendingConsent,
					RequestID: p.RequestID,
					Message:   "payment consent awaiting approval",
				}, nil
			}
			return models.TransferResult{}, err
		}

		headers[headerPaymentConsentID] = consentID
		status, respBody, err = s.client.do(ctx, fromBank, http.MethodPost, "/payments", s.clientQuery(fromUser), headers, body)
		if err != nil {
			return models.TransferResult{}, err
		}
	}

	if !ok(status) {
		return models.TransferResult{}, &apperrors.ErrUpstream{
			Bank: fromBank, Endpoint: "/payments", Status: status, Body: string(respBody),
		}
	}

	var parsed struct {
		Data struct {
			Status    string `json:"status"`
			PaymentID string `json:"paymentId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.Data.Status != settlementCompleted {
		s.logger.WarnWithContext(ctx, "transfer not confirmed by bank",
			"bank", fromBank, "status", parsed.Data.Status)
		return models.TransferResult{
			Status:  models.TransferError,
			Message: "transfer not confirmed, status: " + parsed.Data.Status,
		}, nil
	}

	s.logger.InfoWithContext(ctx, "transfer completed",
		"from_bank", fromBank, "to_bank", toBank, "payment_id", parsed.Data.PaymentID)
	return models.TransferResult{
		Status:    models.TransferSuccess,
		PaymentID: parsed.Data.PaymentID,
		Message:   "transfer completed",
	}, nil
}

// paymentBody builds the initiation payload. Intra-bank transfers name both
// accounts under the RU.CBR.PAN scheme; cross-bank transfers identify the
// creditor by bare account number plus bank code, without a scheme.
func paymentBody(fromBank, toBank, debtor, creditor string, amount float64) map[string]any {
	creditorAccount := map[string]any{
		"identification": creditor,
	}
	if fromBank == toBank {
		creditorAccount["schemeName"] = "RU.CBR.PAN"
	} else {
		creditorAccount["bank_code"] = toBank
	}

	return map[string]any{
		"data": map[string]any{
			"initiation": map[string]any{
				"instructedAmount": map[string]any{
					"amount":   strconv.FormatFloat(amount, 'f', 2, 64),
					"currency": "RUB",
				},
				"debtorAccount": map[string]any{
					"schemeName":     "RU.CBR.PAN",
					"identification": debtor,
				},
				"creditorAccount": creditorAccount,
			},
		},
	}
}

// transferBlocked maps a consent/account resolution failure to the transfer
// outcome: pending consent is a displayable state, everything else an error.
func transferBlocked(err error) (models.TransferResult, error) {
	if pending(err) {
		var p *apperrors.ErrConsentPending
		errors.As(err, &p)
		return models.TransferResult{
			Status:    models.TransferPendingConsent,
			RequestID: p.RequestID,
			Message:   err.Error(),
		}, nil
	}
	return models.TransferResult{}, err
}

func (s *Service) recordTransfer(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTransfer(outcome)
	}
}
