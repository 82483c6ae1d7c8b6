package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/store"
)

// provisionCmd links a user to a bank and drives consent to a decision,
// without going through the HTTP API.
var provisionCmd = &cobra.Command{
	Use:   "provision <user> <bank>",
	Short: "Link a user to a bank and resolve consent",
	Args:  cobra.ExactArgs(2),
	RunE:  runProvision,
}

func init() {
	RootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	userID, bankName := args[0], args[1]

	cfg, err := config.NewLoader(globalFlags.Config).Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))
	st, err := store.NewSQLiteStore(globalFlags.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := seedBanksFromConfig(st, cfg); err != nil {
		return err
	}

	client := bank.NewClient(st,
		cfg.Integrator.ClientID, cfg.Integrator.ClientSecret,
		cfg.Upstream.Timeout, logger, nil)
	service := bank.NewService(st, client, logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := service.ProvisionAccount(ctx, bankName, userID)
	if err != nil {
		return err
	}
	fmt.Printf("%s @ %s: %s\n", userID, bankName, status)
	return nil
}
