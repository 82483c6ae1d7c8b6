package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/avotaangi/multibank/internal/api"
	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/metrics"
	"github.com/avotaangi/multibank/internal/store"
	"github.com/avotaangi/multibank/internal/telegram"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the Multibank server",
	Long: `Start the Multibank server: the HTTP API for bank aggregation and,
when configured, the Telegram bot front-end.

Example:
  multibank serve --config config.yaml --db ./data/multibank.db`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 30*time.Second, "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))
	m := metrics.NewMetrics("multibank")

	sqliteStore, err := store.NewSQLiteStore(globalFlags.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create SQLite store: %w", err)
	}

	if err := seedBanksFromConfig(sqliteStore, cfg); err != nil {
		sqliteStore.Close()
		return err
	}

	client := bank.NewClient(sqliteStore,
		cfg.Integrator.ClientID, cfg.Integrator.ClientSecret,
		cfg.Upstream.Timeout, logger, m)
	service := bank.NewService(sqliteStore, client, logger, m)

	// Re-seed banks when the config file changes on disk.
	loader.SetOnChange(func(updated *config.Config) {
		if err := seedBanksFromConfig(sqliteStore, updated); err != nil {
			logger.Error("failed to apply reloaded bank list", "error", err.Error())
		}
	})
	if err := loader.StartWatcher(); err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
	}
	defer loader.StopWatcher()

	var bot *telegram.Bot
	if cfg.Telegram.Enabled {
		tgClient, err := telegram.NewTGBotAPIClient(cfg.Telegram.Token)
		if err != nil {
			sqliteStore.Close()
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
		bot = telegram.NewBot(tgClient, service, logger)
		bot.Start()
		defer bot.Stop()
	}

	server := api.NewServer(cfg.Server, cfg.API, sqliteStore, service, m, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if serveFlags.Timeout > 0 {
		shutdownTimeout = serveFlags.Timeout
	}

	done := make(chan error, 1)
	go func() {
		done <- server.WaitForShutdown(shutdownTimeout)
	}()

	select {
	case err := <-errChan:
		return err
	case err := <-done:
		return err
	}
}

// seedBanksFromConfig registers every configured bank in the store.
// Registration is idempotent; banks removed from the config stay registered
// until the database is rebuilt.
func seedBanksFromConfig(st store.Store, cfg *config.Config) error {
	for _, bc := range cfg.Banks {
		if err := st.RegisterBank(bc.Bank(cfg.Upstream.BaseDomain)); err != nil {
			return fmt.Errorf("failed to register bank %s: %w", bc.Name, err)
		}
		if globalFlags.Verbose {
			log.Printf("registered bank: %s", bc.Name)
		}
	}
	return nil
}
