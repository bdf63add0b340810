package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	apiURL     string
	verbose    bool
	reqTimeout time.Duration
	assumeYes  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Value screener - fundamental stock screening client",
	Long: `Value Screener CLI

Client for the value-screening service: screens an index against
fundamental thresholds (P/E, P/B, D/E, ROE), runs DCF valuations and
manages the screening history and the watchlist.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener indices
  go run ./cmd/screener screen --index "CAC 40 (France)" --pe-max 15
  go run ./cmd/screener dcf AI.PA
  go run ./cmd/screener serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(rootCmd.ErrOrStderr(), err.Error())
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "CLI profile (default ./screener.yaml or ~/.config/screener/screener.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "screening service base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&reqTimeout, "timeout", 0, "per-request timeout (0 = none)")
}
