package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// handleMessage dispatches an incoming message to its command handler.
func (b *Bot) handleMessage(msg Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	parts := strings.Fields(text)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/start":
		b.handleStart(msg.ChatID)
	case "/help":
		b.handleHelp(msg.ChatID)
	case "/banks":
		b.handleBanks(msg.ChatID)
	case "/link":
		b.handleLink(msg.ChatID, args)
	case "/balance":
		b.handleBalance(msg.ChatID)
	case "/accounts":
		b.handleAccounts(msg.ChatID)
	case "/transfer":
		b.handleTransfer(msg.ChatID, args)
	default:
		b.sendMessage(msg.ChatID, fmt.Sprintf("Unknown command: %s. Type /help for available commands.", command))
	}
}

func (b *Bot) handleStart(chatID int64) {
	b.sendMessage(chatID, startMessage())
}

func (b *Bot) handleHelp(chatID int64) {
	b.sendMessage(chatID, helpMessage())
}

// handleBanks lists all registered banks and marks the linked ones.
func (b *Bot) handleBanks(chatID int64) {
	banks := b.service.Banks()
	linked := b.service.UserBanks(userID(chatID))
	b.sendMessage(chatID, banksMessage(banks, linked))
}

// handleLink provisions the user at a bank: /link <bank>
func (b *Bot) handleLink(chatID int64, args []string) {
	if len(args) != 1 {
		b.sendMessage(chatID, "Usage: /link <bank>")
		return
	}
	bankName := args[0]

	status, err := b.service.ProvisionAccount(context.Background(), bankName, userID(chatID))
	if err != nil {
		b.logger.Warn("link failed", "bank", bankName, "chat_id", chatID, "error", err.Error())
		b.sendMessage(chatID, fmt.Sprintf("Could not link %s: %v", bankName, err))
		return
	}
	b.sendMessage(chatID, provisionMessage(bankName, status))
}

// handleBalance shows the balance at every linked bank.
func (b *Bot) handleBalance(chatID int64) {
	user := userID(chatID)
	banks := b.service.UserBanks(user)
	if len(banks) == 0 {
		b.sendMessage(chatID, "No banks linked yet. Use /link <bank> first.")
		return
	}

	ctx := context.Background()
	balances := make(map[string]string, len(banks))
	for _, bankName := range banks {
		balance, err := b.service.AccountBalance(ctx, bankName, user)
		if err != nil {
			b.logger.Warn("balance fetch failed", "bank", bankName, "user", user, "error", err.Error())
			balance = "0"
		}
		balances[bankName] = balance
	}
	b.sendMessage(chatID, balancesMessage(banks, balances))
}

// handleAccounts lists the user's accounts across linked banks.
func (b *Bot) handleAccounts(chatID int64) {
	user := userID(chatID)
	banks := b.service.UserBanks(user)
	if len(banks) == 0 {
		b.sendMessage(chatID, "No banks linked yet. Use /link <bank> first.")
		return
	}

	ctx := context.Background()
	var sb strings.Builder
	sb.WriteString("Your accounts:\n")
	for _, bankName := range banks {
		accounts, err := b.service.Accounts(ctx, bankName, user)
		if err != nil {
			b.logger.Warn("accounts fetch failed", "bank", bankName, "user", user, "error", err.Error())
			continue
		}
		sb.WriteString(accountsSection(bankName, accounts))
	}
	b.sendMessage(chatID, sb.String())
}

// handleTransfer executes a transfer: /transfer <from_bank> <to_bank> <to_user> <amount>
func (b *Bot) handleTransfer(chatID int64, args []string) {
	if len(args) != 4 {
		b.sendMessage(chatID, "Usage: /transfer <from_bank> <to_bank> <to_user> <amount>")
		return
	}
	fromBank, toBank, toUser := args[0], args[1], args[2]
	amount, err := strconv.ParseFloat(args[3], 64)
	if err != nil || amount <= 0 {
		b.sendMessage(chatID, "Amount must be a positive number.")
		return
	}

	result, err := b.service.ExecuteTransfer(context.Background(), fromBank, userID(chatID), toBank, toUser, amount)
	if err != nil {
		b.logger.Warn("transfer failed", "from_bank", fromBank, "to_bank", toBank, "error", err.Error())
		b.sendMessage(chatID, fmt.Sprintf("Transfer failed: %v", err))
		return
	}
	b.sendMessage(chatID, transferMessage(result))
}
