package contracts

import "sort"

// Statement is one financial statement keyed by period then line item.
// Periods are the backend's column labels (report dates); missing values are null.
type Statement map[string]map[string]*float64

// FinancialStatements is the payload of GET /financials/{ticker}
type FinancialStatements struct {
	Ticker       string    `json:"ticker,omitempty"`
	Financials   Statement `json:"financials"`
	BalanceSheet Statement `json:"balance_sheet"`
	CashFlow     Statement `json:"cash_flow"`
}

// Empty reports whether no statement carries any period
func (f FinancialStatements) Empty() bool {
	return len(f.Financials) == 0 && len(f.BalanceSheet) == 0 && len(f.CashFlow) == 0
}

// Periods returns the period labels, most recent first
func (s Statement) Periods() []string {
	periods := make([]string, 0, len(s))
	for p := range s {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return TimestampAfter(periods[i], periods[j])
	})
	return periods
}

// Items returns every line item present in any period, sorted by name
func (s Statement) Items() []string {
	seen := make(map[string]struct{})
	for _, values := range s {
		for item := range values {
			seen[item] = struct{}{}
		}
	}
	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Value returns the line item for a period, nil when absent or null
func (s Statement) Value(period, item string) *float64 {
	values, ok := s[period]
	if !ok {
		return nil
	}
	return values[item]
}
