package results

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/wonny/valuescreener/internal/contracts"
)

// TableOptions controls terminal rendering
type TableOptions struct {
	Color       bool
	MaxColWidth int
	// Offset numbers rows from Offset+1 (page views)
	Offset int
}

// RenderTable writes the results table (company, score, valuation, ratios)
func RenderTable(w io.Writer, results []contracts.StockResult, opts TableOptions) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleColoredDark)
	if !opts.Color {
		tw.SetStyle(table.StyleLight)
	}
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false

	tw.AppendHeader(table.Row{
		"#", "SYMBOL", "COMPANY", "SCORE", "PRICE", "INTRINSIC", "MARGIN",
		"P/E", "P/B", "D/E", "ROE", "DIVIDEND",
	})

	maxWidth := opts.MaxColWidth
	if maxWidth <= 0 {
		maxWidth = 32
	}
	cfgs := []table.ColumnConfig{
		{Number: 3, WidthMax: maxWidth},
	}
	for col := 4; col <= 12; col++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(cfgs)

	for i, r := range results {
		margin := FormatPercent(r.MarginOfSafety())
		if opts.Color {
			margin = colorizeSigned(r.MarginOfSafety(), margin)
		}

		tw.AppendRow(table.Row{
			opts.Offset + i + 1,
			r.Symbol,
			r.CompanyName,
			fmt.Sprintf("%.0f", r.Score),
			FormatMoney(r.CurrentPrice, r.Currency),
			formatMoneyOptional(r.IntrinsicValue, r.Currency),
			margin,
			FormatRatio(r.PERatio),
			FormatRatio(r.PBRatio),
			FormatRatio(r.DebtToEquity),
			FormatPercent(r.ROE),
			FormatPercent(r.DividendYield),
		})
	}

	tw.Render()
}

// RenderSummary writes the headline figures as a key/value block
func RenderSummary(w io.Writer, s Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false

	tw.AppendRow(table.Row{"Results", s.Count})
	tw.AppendRow(table.Row{"Undervalued", s.UndervaluedCount})
	tw.AppendRow(table.Row{"Average score", fmt.Sprintf("%.1f", s.AverageScore)})
	tw.Render()
}

// FormatPercent renders a decimal ratio as a percentage, "N/A" when unknown
func FormatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// FormatRatio renders a ratio with two decimals, "N/A" when unknown
func FormatRatio(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatMoney renders a price in its currency
func FormatMoney(v float64, currency string) string {
	if strings.TrimSpace(currency) == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, currency)
}

func formatMoneyOptional(v *float64, currency string) string {
	if v == nil {
		return "N/A"
	}
	return FormatMoney(*v, currency)
}

func colorizeSigned(v *float64, s string) string {
	switch {
	case v == nil:
		return s
	case *v > 0:
		return text.Colors{text.FgGreen}.Sprint(s)
	case *v < 0:
		return text.Colors{text.FgRed}.Sprint(s)
	default:
		return s
	}
}
