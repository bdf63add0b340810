package commands

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescreener/internal/watchlist"
)

// financialsCmd represents the financials command
var financialsCmd = &cobra.Command{
	Use:   "financials [ticker]",
	Short: "Show the financial statements of a ticker",
	Long: `Fetches the income statement, balance sheet and cash flow of a ticker.

Example:
  go run ./cmd/screener financials MC.PA
  go run ./cmd/screener financials MC.PA --periods 2
  go run ./cmd/screener financials MC.PA --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFinancials,
}

var (
	financialsJSON    bool
	financialsPeriods int
)

func init() {
	rootCmd.AddCommand(financialsCmd)

	financialsCmd.Flags().BoolVar(&financialsJSON, "json", false, "print JSON")
	financialsCmd.Flags().IntVar(&financialsPeriods, "periods", 4, "latest periods per statement (0 = all)")
}

func runFinancials(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	if err := watchlist.ValidateTicker(ticker); err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	statements, err := a.gw.FetchFinancials(ctx, ticker)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if financialsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statements)
	}

	if statements.Empty() {
		PrintWarning(out, "Aucune donnée financière pour "+ticker)
		return nil
	}
	RenderFinancials(out, statements, financialsPeriods)
	return nil
}
