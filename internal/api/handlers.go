package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/avotaangi/multibank/internal/errors"
)

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"banks":     len(s.service.Banks()),
	})
}

// handleListBanks returns all registered banks
func (s *Server) handleListBanks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"banks": s.service.Banks()})
}

// handleUserBanks returns the banks a user has linked
func (s *Server) handleUserBanks(c *gin.Context) {
	userID := c.Param("user_id")
	banks := s.service.UserBanks(userID)
	if banks == nil {
		banks = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "banks": banks})
}

// handleProvisionAccount links a user to a bank and resolves consent
func (s *Server) handleProvisionAccount(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")

	status, err := s.service.ProvisionAccount(c.Request.Context(), bankName, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"bank":    bankName,
		"status":  status,
	})
}

// handleUserBalances returns the balance at every linked bank. Banks with a
// pending consent report "0"; a failing bank reports an error marker instead
// of failing the whole aggregation.
func (s *Server) handleUserBalances(c *gin.Context) {
	userID := c.Param("user_id")
	ctx := c.Request.Context()

	balances := make(map[string]string)
	for _, bankName := range s.service.UserBanks(userID) {
		balance, err := s.service.AccountBalance(ctx, bankName, userID)
		if err != nil {
			s.logger.WarnWithContext(ctx, "balance fetch failed",
				"bank", bankName, "user", userID, "error", err.Error())
			balances[bankName] = "0"
			continue
		}
		balances[bankName] = balance
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balances": balances})
}

// handleBankBalance returns the balance at one bank
func (s *Server) handleBankBalance(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")

	balance, err := s.service.AccountBalance(c.Request.Context(), bankName, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "bank": bankName, "balance": balance})
}

// handleBankAccounts returns the normalized account listing at one bank
func (s *Server) handleBankAccounts(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")

	accounts, err := s.service.Accounts(c.Request.Context(), bankName, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "bank": bankName, "accounts": accounts})
}

// handleBankTransactions passes through the raw transaction listing
func (s *Server) handleBankTransactions(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")

	payload, err := s.service.Transactions(c.Request.Context(), bankName, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// handleBankCards passes through the raw card listing
func (s *Server) handleBankCards(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")

	payload, err := s.service.Cards(c.Request.Context(), bankName, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// handleBankCard passes through the raw details of one card
func (s *Server) handleBankCard(c *gin.Context) {
	userID := c.Param("user_id")
	bankName := c.Param("bank")
	cardID := c.Param("card_id")

	payload, err := s.service.Card(c.Request.Context(), bankName, userID, cardID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// TransferRequest is the payload for POST /transfers
type TransferRequest struct {
	FromBank string  `json:"from_bank" binding:"required"`
	FromUser string  `json:"from_user" binding:"required"`
	ToBank   string  `json:"to_bank" binding:"required"`
	ToUser   string  `json:"to_user" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

// handleTransfer executes a transfer between two linked accounts
func (s *Server) handleTransfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	result, err := s.service.ExecuteTransfer(c.Request.Context(),
		req.FromBank, req.FromUser, req.ToBank, req.ToUser, req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError maps domain errors onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		unknownBank *apperrors.ErrUnknownBank
		pending     *apperrors.ErrConsentPending
		rejected    *apperrors.ErrConsentRejected
		upstream    *apperrors.ErrUpstream
		noToken     *apperrors.ErrTokenUnavailable
		noAccounts  *apperrors.ErrNoAccounts
	)

	switch {
	case errors.As(err, &unknownBank):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown_bank", Message: err.Error(), Code: http.StatusNotFound,
		})
	case errors.As(err, &pending):
		c.JSON(http.StatusAccepted, gin.H{
			"status":     "pending_approval",
			"request_id": pending.RequestID,
			"message":    err.Error(),
		})
	case errors.As(err, &rejected):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "consent_rejected", Message: err.Error(), Code: http.StatusForbidden,
		})
	case errors.As(err, &noAccounts):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no_accounts", Message: err.Error(), Code: http.StatusNotFound,
		})
	case errors.As(err, &upstream), errors.As(err, &noToken):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "upstream_error", Message: err.Error(), Code: http.StatusBadGateway,
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: err.Error(), Code: http.StatusInternalServerError,
		})
	}
	_ = c.Error(err)
}
