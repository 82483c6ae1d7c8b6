package cli

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	Config  string
	DBPath  string
	Verbose bool
}

var globalFlags GlobalFlags

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "multibank",
	Short: "Multibank - Open Banking aggregation and consent lifecycle",
	Long: `Multibank connects to multiple Open Banking APIs under one roof:
it manages per-bank access tokens and customer consents, aggregates
accounts and balances, and executes transfers between banks.

Usage:
  multibank [command] [flags]

Available Commands:
  serve      Start the Multibank server (API + optional Telegram bot)
  banks      Show registered banks and linked users
  provision  Link a user to a bank and resolve consent
  version    Print version information

Use "multibank [command] --help" for more information about a command.`,
}

// InitRoot initializes the root command with global flags
func InitRoot() {
	configPath := os.Getenv("MULTIBANK_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	dbPath := os.Getenv("MULTIBANK_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/multibank.db"
	}

	RootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", configPath, "Path to configuration file")
	RootCmd.PersistentFlags().StringVar(&globalFlags.DBPath, "db", dbPath, "Path to SQLite database")
	RootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")

	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	InitRoot()
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Version is set at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Multibank",
	Run: func(cmd *cobra.Command, args []string) {
		println("Multibank Version:", Version)
		println("Go Version:", runtime.Version())
		println("OS/Arch:", runtime.GOOS+"/"+runtime.GOARCH)
	},
}
