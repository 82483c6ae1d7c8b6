package telegram

import (
	"fmt"
	"strings"

	"github.com/avotaangi/multibank/internal/models"
)

func startMessage() string {
	return `Multibank bot

I aggregate your accounts across banks: balances, accounts and transfers in one place.

Type /help to see available commands.`
}

func helpMessage() string {
	return `Available commands

/banks - list supported banks
/link <bank> - connect a bank account
/balance - balances across your linked banks
/accounts - your accounts at linked banks
/transfer <from_bank> <to_bank> <to_user> <amount> - send money`
}

func banksMessage(banks []models.Bank, linked []string) string {
	if len(banks) == 0 {
		return "No banks are configured yet."
	}

	linkedSet := make(map[string]bool, len(linked))
	for _, name := range linked {
		linkedSet[name] = true
	}

	var sb strings.Builder
	sb.WriteString("Supported banks:\n")
	for _, b := range banks {
		if linkedSet[b.Name] {
			fmt.Fprintf(&sb, "- %s (linked)\n", b.Name)
		} else {
			fmt.Fprintf(&sb, "- %s\n", b.Name)
		}
	}
	return sb.String()
}

func provisionMessage(bank string, status models.ProvisionStatus) string {
	switch status {
	case models.ProvisionAdded:
		return fmt.Sprintf("%s linked. Your account is ready.", bank)
	case models.ProvisionAlreadyExists:
		return fmt.Sprintf("%s is already linked.", bank)
	case models.ProvisionPendingApproval:
		return fmt.Sprintf("%s link requested. The bank is awaiting your approval; balances will show 0 until then.", bank)
	default:
		return fmt.Sprintf("%s: %s", bank, status)
	}
}

func balancesMessage(banks []string, balances map[string]string) string {
	var sb strings.Builder
	sb.WriteString("Your balances:\n")
	for _, bank := range banks {
		fmt.Fprintf(&sb, "- %s: %s RUB\n", bank, balances[bank])
	}
	return sb.String()
}

func accountsSection(bank string, accounts []models.Account) string {
	if len(accounts) == 0 {
		return fmt.Sprintf("- %s: no accounts available yet\n", bank)
	}
	var sb strings.Builder
	for _, acc := range accounts {
		if acc.Number != "" {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", bank, acc.ID, acc.Number)
		} else {
			fmt.Fprintf(&sb, "- %s: %s\n", bank, acc.ID)
		}
	}
	return sb.String()
}

func transferMessage(result models.TransferResult) string {
	switch result.Status {
	case models.TransferSuccess:
		return fmt.Sprintf("Transfer completed. Payment id: %s", result.PaymentID)
	case models.TransferPendingConsent:
		return "The bank is awaiting your approval for this transfer. Try again once approved."
	default:
		if result.Message != "" {
			return "Transfer failed: " + result.Message
		}
		return "Transfer failed."
	}
}
