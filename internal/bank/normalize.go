package bank

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/avotaangi/multibank/internal/models"
)

// Upstream banks disagree on response shapes: a consent can arrive as a bare
// string, a flat object or nested under "data" with camelCase keys; account
// listings hide under four different keys. Everything is flattened here so
// the rest of the package works with normalized values only.

// parseConsentResponse normalizes a consent negotiation response into the
// tri-state result.
func parseConsentResponse(body []byte) models.ConsentResult {
	// A bare JSON string is a consent id granted outright.
	var plain string
	if err := json.Unmarshal(body, &plain); err == nil && plain != "" {
		return models.ConsentResult{Status: models.StatusApproved, ConsentID: plain}
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return models.ConsentResult{Status: models.StatusRejected}
	}

	consentID := firstString(m, "consent_id", "consentId")
	if consentID == "" {
		consentID = nestedString(m, "data", "consentId")
	}
	requestID := firstString(m, "request_id", "requestId")
	if requestID == "" {
		requestID = nestedString(m, "data", "requestId")
	}

	switch strings.ToLower(firstString(m, "status")) {
	case "approved", "authorized":
		if consentID != "" {
			return models.ConsentResult{Status: models.StatusApproved, ConsentID: consentID}
		}
		return models.ConsentResult{Status: models.StatusRejected}
	case "pending":
		return models.ConsentResult{Status: models.StatusPending, RequestID: requestID, ConsentID: consentID}
	default:
		// No recognizable status: a present consent id still counts.
		if consentID != "" {
			return models.ConsentResult{Status: models.StatusApproved, ConsentID: consentID}
		}
		return models.ConsentResult{Status: models.StatusRejected}
	}
}

// parsePollResponse normalizes a consent status poll response.
func parsePollResponse(body []byte) models.PollResult {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return models.PollResult{Status: models.PollPending}
	}

	status := firstString(m, "status")
	if status == "" {
		status = nestedString(m, "data", "status")
	}
	consentID := nestedString(m, "data", "consentId")
	if consentID == "" {
		consentID = firstString(m, "consent_id", "consentId")
	}

	switch strings.ToLower(status) {
	case "authorized", "approved":
		if consentID != "" {
			return models.PollResult{Status: models.PollAuthorized, ConsentID: consentID}
		}
		return models.PollResult{Status: models.PollPending}
	case "revoked", "rejected":
		return models.PollResult{Status: models.PollRevoked}
	default:
		return models.PollResult{Status: models.PollPending}
	}
}

// normalizeAccounts flattens an account listing response into models.Account.
// An empty listing is a valid result, not an error.
func normalizeAccounts(body []byte) []models.Account {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}

	var raw []any
	if data, ok := m["data"].(map[string]any); ok {
		if list, ok := data["account"].([]any); ok {
			raw = list
		} else if list, ok := data["accounts"].([]any); ok {
			raw = list
		}
	} else if list, ok := m["data"].([]any); ok {
		raw = list
	}
	if raw == nil {
		if list, ok := m["accounts"].([]any); ok {
			raw = list
		} else if list, ok := m["account"].([]any); ok {
			raw = list
		}
	}

	accounts := make([]models.Account, 0, len(raw))
	for _, entry := range raw {
		e, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		acc := models.Account{
			ID:     firstString(e, "accountId", "account_id", "id"),
			Number: accountIdentification(e),
			Name:   firstString(e, "nickname", "name"),
		}
		if acc.ID == "" && acc.Number == "" {
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts
}

// accountIdentification digs the account number out of either the nested
// account[0].identification form or the flat identification field.
func accountIdentification(entry map[string]any) string {
	if nested, ok := entry["account"].([]any); ok && len(nested) > 0 {
		if first, ok := nested[0].(map[string]any); ok {
			if id := firstString(first, "identification"); id != "" {
				return id
			}
		}
	}
	return firstString(entry, "identification")
}

// extractBalance pulls the available amount out of a balances response.
// Anything unrecognizable degrades to "0".
func extractBalance(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return "0"
	}

	data, ok := m["data"].(map[string]any)
	if !ok {
		if amount := firstString(m, "amount"); amount != "" {
			return amount
		}
		return "0"
	}

	list, ok := data["balance"].([]any)
	if !ok || len(list) == 0 {
		if amount := firstString(data, "amount"); amount != "" {
			return amount
		}
		return "0"
	}

	first, ok := list[0].(map[string]any)
	if !ok {
		return "0"
	}
	switch amount := first["amount"].(type) {
	case map[string]any:
		if v := firstString(amount, "amount"); v != "" {
			return v
		}
	case string:
		if amount != "" {
			return amount
		}
	case float64:
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}
	return "0"
}

// firstString returns the first non-empty string value among the given keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// nestedString reads m[outer][inner] as a string.
func nestedString(m map[string]any, outer, inner string) string {
	if n, ok := m[outer].(map[string]any); ok {
		return firstString(n, inner)
	}
	return ""
}
