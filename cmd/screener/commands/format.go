package commands

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/internal/results"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintHeader prints a titled block header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintCriteria prints a criteria snapshot
func PrintCriteria(w io.Writer, c criteria.Criteria) {
	PrintKeyValue(w, "Index", c.IndexName, 10)
	PrintKeyValue(w, "P/E max", fmt.Sprintf("%g", c.PEMax), 10)
	PrintKeyValue(w, "P/B max", fmt.Sprintf("%g", c.PBMax), 10)
	PrintKeyValue(w, "D/E max", fmt.Sprintf("%g", c.DEMax), 10)
	PrintKeyValue(w, "ROE min", results.FormatPercent(&c.ROEMin), 10)
}

// Confirm asks a yes/no question; anything but y/yes/o/oui is a no
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "o", "oui":
		return true
	default:
		return false
	}
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	return tw
}

// RenderIndices prints the screenable indices
func RenderIndices(w io.Writer, indices []string) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"#", "INDEX"})
	for i, name := range indices {
		tw.AppendRow(table.Row{i + 1, name})
	}
	tw.Render()
}

// RenderHistory prints history records, newest first
func RenderHistory(w io.Writer, records []contracts.HistoryRecord) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "DATE", "INDEX", "RESULTS", "TIME", "P/E", "P/B", "D/E", "ROE"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, r := range records {
		tw.AppendRow(table.Row{
			r.ID,
			formatTimestamp(r.Timestamp),
			r.IndexName,
			r.TotalResults,
			fmt.Sprintf("%.1fs", r.ExecutionTime),
			fmt.Sprintf("%g", r.Criteria.PEMax),
			fmt.Sprintf("%g", r.Criteria.PBMax),
			fmt.Sprintf("%g", r.Criteria.DEMax),
			results.FormatPercent(&r.Criteria.ROEMin),
		})
	}
	tw.Render()
}

// RenderWatchlist prints watchlist entries
func RenderWatchlist(w io.Writer, items []contracts.WatchlistEntry) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "TICKER", "ADDED", "NOTES"})
	for _, e := range items {
		notes := ""
		if e.Notes != nil {
			notes = *e.Notes
		}
		tw.AppendRow(table.Row{e.ID, e.Ticker, formatTimestamp(e.AddedDate), notes})
	}
	tw.Render()
}

// RenderDCF prints both valuation scenarios
func RenderDCF(w io.Writer, d *contracts.DCFValuation) {
	PrintHeader(w, "DCF valuation: "+d.Ticker)
	PrintKeyValue(w, "Price", fmt.Sprintf("%.2f", d.CurrentPrice), 14)
	PrintKeyValue(w, "Base FCF", fmt.Sprintf("%.0f (%d)", d.BaseData.BaseFCF, d.BaseData.LatestYear), 14)
	PrintKeyValue(w, "Debt / Cash", fmt.Sprintf("%.0f / %.0f", d.BaseData.TotalDebt, d.BaseData.Cash), 14)
	PrintSeparator(w)

	tw := newTable(w)
	tw.AppendHeader(table.Row{"SCENARIO", "FCF GROWTH", "PERP GROWTH", "INTRINSIC", "UPSIDE"})
	for _, row := range []struct {
		name string
		s    contracts.DCFScenario
	}{
		{"Prospective", d.Scenario1},
		{"Historical CAGR", d.Scenario2},
	} {
		tw.AppendRow(table.Row{
			row.name,
			results.FormatPercent(&row.s.Assumptions.FCFGrowth),
			results.FormatPercent(&row.s.Assumptions.PerpGrowth),
			fmt.Sprintf("%.2f", row.s.IntrinsicValue),
			results.FormatPercent(d.Upside(row.s)),
		})
	}
	tw.Render()
}

// RenderFinancials prints one table per statement, latest periods first
func RenderFinancials(w io.Writer, f *contracts.FinancialStatements, periods int) {
	PrintHeader(w, "Financial statements: "+f.Ticker)

	for _, st := range []struct {
		title string
		s     contracts.Statement
	}{
		{"Income statement", f.Financials},
		{"Balance sheet", f.BalanceSheet},
		{"Cash flow", f.CashFlow},
	} {
		if len(st.s) == 0 {
			continue
		}

		cols := st.s.Periods()
		if periods > 0 && len(cols) > periods {
			cols = cols[:periods]
		}

		fmt.Fprintf(w, "\n%s\n", st.title)
		tw := newTable(w)
		header := table.Row{"ITEM"}
		for _, p := range cols {
			header = append(header, formatPeriod(p))
		}
		tw.AppendHeader(header)

		for _, item := range st.s.Items() {
			row := table.Row{item}
			for _, p := range cols {
				row = append(row, formatAmount(st.s.Value(p, item)))
			}
			tw.AppendRow(row)
		}
		tw.Render()
	}
}

// formatAmount renders large statement values with a K/M/B suffix
func formatAmount(v *float64) string {
	if v == nil {
		return "N/A"
	}
	abs := math.Abs(*v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", *v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", *v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", *v/1e3)
	default:
		return fmt.Sprintf("%.2f", *v)
	}
}

func formatPeriod(s string) string {
	t, ok := contracts.ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02")
}

func formatTimestamp(s string) string {
	t, ok := contracts.ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02 15:04")
}
