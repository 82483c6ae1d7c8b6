package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/metrics"
	"github.com/avotaangi/multibank/internal/store"
)

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	config     config.ServerConfig
	apiConfig  config.APIConfig
	store      store.Store
	service    *bank.Service
	metrics    *metrics.Metrics
	logger     *logging.Logger
	httpServer *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, apiCfg config.APIConfig, st store.Store, svc *bank.Service, m *metrics.Metrics, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if m == nil {
		m = metrics.NewMetrics("multibank")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	server := &Server{
		router:    gin.New(),
		config:    cfg,
		apiConfig: apiCfg,
		store:     st,
		service:   svc,
		metrics:   m,
		logger:    logger,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(metrics.Middleware(m, logger))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}
		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", time.Since(start).Seconds(),
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Metrics and health checks skip authentication
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/health", s.handleHealth)

	authMiddleware := APIKeyAuth(s.apiConfig.Auth.APIKeys, s.apiConfig.Auth.HeaderName, s.logger)

	banksGroup := s.router.Group("")
	banksGroup.Use(authMiddleware)
	{
		banksGroup.GET("/banks", s.handleListBanks)
	}

	usersGroup := s.router.Group("/users/:user_id")
	usersGroup.Use(authMiddleware)
	{
		usersGroup.GET("/banks", s.handleUserBanks)
		usersGroup.POST("/banks/:bank", s.handleProvisionAccount)
		usersGroup.GET("/balances", s.handleUserBalances)
		usersGroup.GET("/banks/:bank/balance", s.handleBankBalance)
		usersGroup.GET("/banks/:bank/accounts", s.handleBankAccounts)
		usersGroup.GET("/banks/:bank/transactions", s.handleBankTransactions)
		usersGroup.GET("/banks/:bank/cards", s.handleBankCards)
		usersGroup.GET("/banks/:bank/cards/:card_id", s.handleBankCard)
	}

	transfersGroup := s.router.Group("")
	transfersGroup.Use(authMiddleware)
	{
		transfersGroup.POST("/transfers", s.handleTransfer)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err.Error())
			return err
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("store close: %w", err)
		}
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}
