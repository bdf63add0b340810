package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/history"
	"github.com/wonny/valuescreener/internal/results"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Past screening runs",
	Long: `Lists, shows and deletes past screening runs.

Subcommands:
  list          - runs, newest first
  show [id]     - one run with its results
  delete [id]   - delete a run (asks for confirmation unless --yes)

Example:
  go run ./cmd/screener history list
  go run ./cmd/screener history show 42
  go run ./cmd/screener history delete 42 --yes`,
}

var (
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}

	historyShowCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "Show one run with its results",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	historyDeleteCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	}
)

var historyJSON bool

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "print JSON")
	historyDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store := history.NewStore(a.gw, a.log)
	if err := store.Refresh(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	records := store.Records()
	if historyJSON {
		return json.NewEncoder(out).Encode(records)
	}
	if len(records) == 0 {
		PrintInfo(out, "No screening history")
		return nil
	}

	RenderHistory(out, records)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
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

	record, err := history.NewStore(a.gw, a.log).Details(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	RenderHistory(out, []contracts.HistoryRecord{*record})
	fmt.Fprintln(out)
	if len(record.Results) == 0 {
		PrintInfo(out, "Aucune action ne correspond aux critères.")
		return nil
	}
	results.RenderSummary(out, results.Summarize(record.Results))
	fmt.Fprintln(out)
	results.RenderTable(out, record.Results, results.TableOptions{Color: isTerminal(out)})
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
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

	store := history.NewStore(a.gw, a.log)
	// 확인 프롬프트에 인덱스명을 보여주기 위해 먼저 조회
	if err := store.Refresh(ctx); err != nil {
		a.log.WithError(err).Warn("History unavailable before delete")
	}

	confirm := history.ConfirmFunc(func(r contracts.HistoryRecord) bool {
		if assumeYes {
			return true
		}
		label := fmt.Sprintf("#%d", r.ID)
		if r.IndexName != "" {
			label = fmt.Sprintf("#%d (%s, %s)", r.ID, r.IndexName, formatTimestamp(r.Timestamp))
		}
		return Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete screening "+label+"?")
	})

	if err := store.Delete(ctx, id, confirm); err != nil {
		return err
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Screening #%d deleted", id))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
