package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/internal/results"
	"github.com/wonny/valuescreener/internal/session"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen an index against fundamental thresholds",
	Long: `Runs one screening request and prints the qualifying securities.

Criteria start from the defaults (CAC 40, P/E ≤ 15, P/B ≤ 1.5,
D/E ≤ 100, ROE ≥ 12%), are overridden by --preset and then by the
individual flags. Out-of-range values are rejected before any request
is sent.

Output:
  default     summary + one page of the results table
  --json      criteria, summary and all results as JSON
  --csv PATH  CSV export (PATH "-" = stdout, a directory = dated file name)

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --index "DAX (Allemagne)" --pe-max 20 --roe-min 0.1
  go run ./cmd/screener screen --preset value.yaml --sort-score --page 2
  go run ./cmd/screener screen --csv ./exports/`,
	Args: cobra.NoArgs,
	RunE: runScreen,
}

var (
	screenIndex      string
	screenPEMax      float64
	screenPBMax      float64
	screenDEMax      float64
	screenROEMin     float64
	screenPreset     string
	screenSavePreset string
	screenPage       int
	screenPageSize   int
	screenSortScore  bool
	screenCSV        string
	screenJSON       bool
	screenNoColor    bool
)

// criteriaFlags maps CLI flags to criteria fields
var criteriaFlags = []struct {
	flag  string
	field string
}{
	{"index", criteria.FieldIndexName},
	{"pe-max", criteria.FieldPEMax},
	{"pb-max", criteria.FieldPBMax},
	{"de-max", criteria.FieldDEMax},
	{"roe-min", criteria.FieldROEMin},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	defaults := criteria.Default()

	// Criteria
	screenCmd.Flags().StringVar(&screenIndex, "index", defaults.IndexName, "index to screen")
	screenCmd.Flags().Float64Var(&screenPEMax, "pe-max", defaults.PEMax, "maximum P/E ratio [0-1000]")
	screenCmd.Flags().Float64Var(&screenPBMax, "pb-max", defaults.PBMax, "maximum P/B ratio [0-100]")
	screenCmd.Flags().Float64Var(&screenDEMax, "de-max", defaults.DEMax, "maximum debt-to-equity [0-10000]")
	screenCmd.Flags().Float64Var(&screenROEMin, "roe-min", defaults.ROEMin, "minimum ROE, decimal (0.12 = 12%) [-1-10]")
	screenCmd.Flags().StringVar(&screenPreset, "preset", "", "YAML criteria preset")
	screenCmd.Flags().StringVar(&screenSavePreset, "save-preset", "", "write the submitted criteria to a YAML preset")

	// Output
	screenCmd.Flags().IntVar(&screenPage, "page", 1, "result page (1-based)")
	screenCmd.Flags().IntVar(&screenPageSize, "page-size", 0, "results per page (default PAGE_SIZE)")
	screenCmd.Flags().BoolVar(&screenSortScore, "sort-score", false, "sort by score, highest first")
	screenCmd.Flags().StringVar(&screenCSV, "csv", "", "export results as CSV to PATH (- for stdout)")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print JSON")
	screenCmd.Flags().BoolVar(&screenNoColor, "no-color", false, "disable colors")
}

func runScreen(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	preset := screenPreset
	if preset == "" {
		preset = a.profile.Preset
	}

	start := criteria.Default()
	if preset != "" {
		if start, err = criteria.LoadPreset(preset); err != nil {
			return err
		}
	}

	store := criteria.NewStore(start, a.log)
	applyCriteriaFlags(cmd, store)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// 인덱스를 직접 지정한 경우에만 목록 조회 (실패 시 목록 검증 생략)
	if cmd.Flags().Changed("index") && !store.HasErrors() {
		if indices, err := a.gw.FetchIndices(ctx); err == nil {
			store.SetIndexDomain(indices)
		} else {
			a.log.WithError(err).Warn("Index list unavailable, index name not checked")
		}
	}

	ctrl := session.NewController("cli", a.gw, store, session.DefaultOptions(), a.log)
	state, err := ctrl.Submit(ctx)
	if err != nil {
		for _, verr := range criteria.ValidationErrors(err) {
			PrintWarning(cmd.ErrOrStderr(), verr.Error())
		}
		return err
	}

	if screenSavePreset != "" {
		if err := savePreset(screenSavePreset, *state.Criteria); err != nil {
			return err
		}
	}

	rows := state.Results
	if screenSortScore {
		rows = results.SortByScoreDescending(rows)
	}

	out := cmd.OutOrStdout()
	switch {
	case screenCSV != "":
		return exportCSV(out, cmd.ErrOrStderr(), screenCSV, rows, time.Now())
	case screenJSON:
		return printScreenJSON(out, state, rows)
	}

	pageSize := screenPageSize
	if pageSize <= 0 {
		pageSize = a.cfg.Session.PageSize
	}
	color := !screenNoColor && !a.profile.NoColor && isTerminal(out)
	printScreen(out, state, rows, screenPage, pageSize, color)
	return nil
}

// applyCriteriaFlags routes every explicitly set flag through the store.
// Rejected values stay recorded in the store and fail the submit.
func applyCriteriaFlags(cmd *cobra.Command, store *criteria.Store) {
	for _, f := range criteriaFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}

		var value interface{}
		if f.field == criteria.FieldIndexName {
			value = screenIndex
		} else {
			value, _ = cmd.Flags().GetFloat64(f.flag)
		}
		_ = store.Set(f.field, value)
	}
}

func printScreen(out io.Writer, state session.Session, rows []contracts.StockResult, page, pageSize int, color bool) {
	PrintHeader(out, "Screening: "+state.Criteria.IndexName)
	PrintCriteria(out, *state.Criteria)
	PrintSeparator(out)

	if len(rows) == 0 {
		PrintInfo(out, "Aucune action ne correspond aux critères.")
		return
	}

	results.RenderSummary(out, results.Summarize(rows))
	fmt.Fprintln(out)

	pages := results.PageCount(len(rows), pageSize)
	results.RenderTable(out, results.Paginate(rows, pageSize, page), results.TableOptions{
		Color:  color,
		Offset: (page - 1) * pageSize,
	})
	fmt.Fprintf(out, "\nPage %d/%d (%d results)\n", page, pages, len(rows))
}

type screenJSONOutput struct {
	Criteria criteria.Criteria       `json:"criteria"`
	Summary  results.Summary         `json:"summary"`
	Results  []contracts.StockResult `json:"results"`
}

func printScreenJSON(out io.Writer, state session.Session, rows []contracts.StockResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(screenJSONOutput{
		Criteria: *state.Criteria,
		Summary:  results.Summarize(rows),
		Results:  rows,
	})
}

// exportCSV writes to stdout for "-", to a dated file inside a directory, or to path
func exportCSV(out, status io.Writer, path string, rows []contracts.StockResult, now time.Time) error {
	if path == "-" {
		return results.ToCSV(out, rows)
	}

	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		path = filepath.Join(path, results.ExportFilename(now))
	}

	if err := os.WriteFile(path, results.CSVBytes(rows), 0o644); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	PrintSuccess(status, fmt.Sprintf("%d results exported to %s", len(rows), path))
	return nil
}

func savePreset(path string, c criteria.Criteria) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preset: %w", err)
	}
	defer f.Close()

	return criteria.WritePreset(f, c)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
