package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/models"
	"github.com/avotaangi/multibank/internal/store"
)

// banksCmd shows the registered banks and which users linked them.
var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "Show registered banks and linked users",
	RunE:  runBanks,
}

var banksAddFlags struct {
	BaseURL string
}

// banksAddCmd registers a bank directly in the store.
var banksAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a bank",
	Args:  cobra.ExactArgs(1),
	RunE:  runBanksAdd,
}

func init() {
	banksAddCmd.Flags().StringVar(&banksAddFlags.BaseURL, "base-url", "",
		"Bank base URL (default: https://<name>.<base_domain> from config)")
	banksCmd.AddCommand(banksAddCmd)
	RootCmd.AddCommand(banksCmd)
}

func runBanks(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.WithOutput(os.Stderr))
	st, err := store.NewSQLiteStore(globalFlags.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	banks := st.ListBanks()
	if len(banks) == 0 {
		fmt.Println("No banks registered. Add banks to the config file and run serve.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BANK\tBASE URL\tLINKED USERS")
	for _, b := range banks {
		linked := 0
		for _, user := range st.ListUsers() {
			for _, name := range st.GetUserBanks(user) {
				if name == b.Name {
					linked++
				}
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", b.Name, b.BaseURL, linked)
	}
	return w.Flush()
}

func runBanksAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	baseURL := banksAddFlags.BaseURL
	if baseURL == "" {
		cfg, err := config.NewLoader(globalFlags.Config).Load()
		if err != nil {
			return fmt.Errorf("no --base-url given and configuration unavailable: %w", err)
		}
		baseURL = config.BankConfig{Name: name}.Bank(cfg.Upstream.BaseDomain).BaseURL
	}

	logger := logging.NewLogger(logging.WithOutput(os.Stderr))
	st, err := store.NewSQLiteStore(globalFlags.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.RegisterBank(models.Bank{Name: name, BaseURL: baseURL}); err != nil {
		return err
	}
	fmt.Printf("registered %s -> %s\n", name, baseURL)
	return nil
}
