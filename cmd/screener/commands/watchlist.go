package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/watchlist"
)

// watchlistCmd represents the watchlist command
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Tracked tickers",
	Long: `Lists, adds and removes watchlist tickers.

Subcommands:
  list            - entries, newest first (--filter, --oldest)
  add [ticker]    - add a ticker (--notes)
  remove [id]     - remove an entry (asks for confirmation unless --yes)

Example:
  go run ./cmd/screener watchlist list --filter .PA
  go run ./cmd/screener watchlist add AI.PA --notes "gaz industriels"
  go run ./cmd/screener watchlist remove 7 --yes`,
}

var (
	watchlistListCmd = &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE:  runWatchlistList,
	}

	watchlistAddCmd = &cobra.Command{
		Use:   "add [ticker]",
		Short: "Add a ticker",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchlistAdd,
	}

	watchlistRemoveCmd = &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchlistRemove,
	}
)

var (
	watchlistFilter string
	watchlistOldest bool
	watchlistNotes  string
	watchlistJSON   bool
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)

	watchlistListCmd.Flags().StringVar(&watchlistFilter, "filter", "", "case-insensitive ticker filter")
	watchlistListCmd.Flags().BoolVar(&watchlistOldest, "oldest", false, "oldest first")
	watchlistListCmd.Flags().BoolVar(&watchlistJSON, "json", false, "print JSON")
	watchlistAddCmd.Flags().StringVar(&watchlistNotes, "notes", "", "free-form notes")
	watchlistRemoveCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store := watchlist.NewStore(a.gw, a.log)
	if err := store.Refresh(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	items := store.View(watchlistFilter, watchlistOldest)
	if watchlistJSON {
		return json.NewEncoder(out).Encode(items)
	}
	if len(items) == 0 {
		PrintInfo(out, "Watchlist is empty")
		return nil
	}

	RenderWatchlist(out, items)
	return nil
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
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

	var notes *string
	if watchlistNotes != "" {
		notes = &watchlistNotes
	}

	store := watchlist.NewStore(a.gw, a.log)
	msg, err := store.Add(ctx, ticker, notes)
	if msg == "" && err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintSuccess(out, msg)
	if err != nil {
		PrintWarning(cmd.ErrOrStderr(), "Watchlist refresh failed: "+err.Error())
		return nil
	}
	RenderWatchlist(out, store.Items())
	return nil
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store := watchlist.NewStore(a.gw, a.log)
	if err := store.Refresh(ctx); err != nil {
		a.log.WithError(err).Warn("Watchlist unavailable before remove")
	}

	confirm := func(e contracts.WatchlistEntry) bool {
		if assumeYes {
			return true
		}
		label := fmt.Sprintf("#%d", e.ID)
		if e.Ticker != "" {
			label = fmt.Sprintf("%s (#%d)", e.Ticker, e.ID)
		}
		return Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Remove "+label+" from the watchlist?")
	}

	if err := store.Remove(ctx, id, confirm); err != nil {
		return err
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Entry #%d removed", id))
	return nil
}
