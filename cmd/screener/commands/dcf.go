package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/watchlist"
)

// dcfCmd represents the dcf command
var dcfCmd = &cobra.Command{
	Use:   "dcf [ticker...]",
	Short: "Two-scenario DCF valuation of one or more tickers",
	Long: `Runs the discounted cash-flow valuation of each ticker.

Scenario 1 uses prospective growth assumptions, scenario 2 the
historical FCF CAGR. Several tickers are fetched concurrently; a
failed ticker is reported and does not stop the others.

Example:
  go run ./cmd/screener dcf AI.PA
  go run ./cmd/screener dcf AI.PA MC.PA OR.PA --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDCF,
}

var (
	dcfJSON        bool
	dcfConcurrency int
)

func init() {
	rootCmd.AddCommand(dcfCmd)

	dcfCmd.Flags().BoolVar(&dcfJSON, "json", false, "print JSON")
	dcfCmd.Flags().IntVar(&dcfConcurrency, "concurrency", 4, "parallel requests")
}

// dcfOutcome is the valuation or the error of one ticker
type dcfOutcome struct {
	Ticker    string                  `json:"ticker"`
	Valuation *contracts.DCFValuation `json:"valuation,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// DCFFetcher is the gateway call used by the dcf command
type DCFFetcher interface {
	FetchDCFValuation(ctx context.Context, ticker string) (*contracts.DCFValuation, error)
}

func runDCF(cmd *cobra.Command, args []string) error {
	tickers := make([]string, len(args))
	for i, arg := range args {
		tickers[i] = strings.ToUpper(strings.TrimSpace(arg))
		if err := watchlist.ValidateTicker(tickers[i]); err != nil {
			return err
		}
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	outcomes := fetchDCFs(ctx, a.gw, tickers, dcfConcurrency)

	out := cmd.OutOrStdout()
	if dcfJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Valuation == nil {
			failed++
			if !dcfJSON {
				PrintError(cmd.ErrOrStderr(), o.Error)
			}
			continue
		}
		if !dcfJSON {
			RenderDCF(out, o.Valuation)
		}
	}

	if failed == len(outcomes) {
		return fmt.Errorf("DCF valuation failed for %d ticker(s)", failed)
	}
	return nil
}

// fetchDCFs fetches every ticker, at most limit at a time.
// Outcomes keep the order of tickers; per-ticker errors are not fatal.
func fetchDCFs(ctx context.Context, gw DCFFetcher, tickers []string, limit int) []dcfOutcome {
	outcomes := make([]dcfOutcome, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, ticker := range tickers {
		g.Go(func() error {
			outcomes[i].Ticker = ticker
			dcf, err := gw.FetchDCFValuation(gctx, ticker)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}
			outcomes[i].Valuation = dcf
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
