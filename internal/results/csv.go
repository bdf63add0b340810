package results

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/valuescreener/internal/contracts"
)

// CSVContentType is the MIME type of an export
const CSVContentType = "text/csv; charset=utf-8"

// csvColumns is the export layout, in StockResult field order
var csvColumns = []struct {
	name  string
	value func(contracts.StockResult) string
}{
	{"symbol", func(s contracts.StockResult) string { return s.Symbol }},
	{"company_name", func(s contracts.StockResult) string { return s.CompanyName }},
	{"currency", func(s contracts.StockResult) string { return s.Currency }},
	{"current_price", func(s contracts.StockResult) string { return formatFloat(s.CurrentPrice) }},
	{"market_cap", func(s contracts.StockResult) string { return formatFloat(s.MarketCap) }},
	{"pe_ratio", func(s contracts.StockResult) string { return formatOptional(s.PERatio) }},
	{"pb_ratio", func(s contracts.StockResult) string { return formatOptional(s.PBRatio) }},
	{"debt_to_equity", func(s contracts.StockResult) string { return formatOptional(s.DebtToEquity) }},
	{"roe", func(s contracts.StockResult) string { return formatOptional(s.ROE) }},
	{"dividend_yield", func(s contracts.StockResult) string { return formatOptional(s.DividendYield) }},
	{"eps", func(s contracts.StockResult) string { return formatOptional(s.EPS) }},
	{"bvps", func(s contracts.StockResult) string { return formatOptional(s.BVPS) }},
	{"score", func(s contracts.StockResult) string { return formatFloat(s.Score) }},
	{"intrinsic_value", func(s contracts.StockResult) string { return formatOptional(s.IntrinsicValue) }},
}

// CSVHeader returns the export column names
func CSVHeader() []string {
	names := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		names[i] = c.name
	}
	return names
}

// ToCSV writes a header line then one line per result.
// Every value is quoted with internal quotes doubled; nulls are empty.
// An empty result set writes nothing.
func ToCSV(w io.Writer, results []contracts.StockResult) error {
	if len(results) == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(CSVHeader(), ",")); err != nil {
		return err
	}

	for _, r := range results {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		for i, c := range csvColumns {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(quote(c.value(r))); err != nil {
				return err
			}
		}
	}

	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// CSVBytes renders the export in memory
func CSVBytes(results []contracts.StockResult) []byte {
	var buf bytes.Buffer
	_ = ToCSV(&buf, results)
	return buf.Bytes()
}

// ExportFilename returns screening_results_YYYY-MM-DD.csv for now's date
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("screening_results_%s.csv", now.Format("2006-01-02"))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
