// Package results turns a screening result set into views: pages, score
// ordering, summary figures and CSV export. Every function is pure and
// leaves its input untouched.
package results

import (
	"sort"

	"github.com/wonny/valuescreener/internal/contracts"
)

// DefaultPageSize is the number of rows shown per page
const DefaultPageSize = 10

// PageCount returns ceil(total / pageSize), 0 when pageSize <= 0
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Paginate returns page pageNumber (1-based) of size pageSize.
// Out-of-range pages yield an empty, non-nil slice.
func Paginate(results []contracts.StockResult, pageSize, pageNumber int) []contracts.StockResult {
	if pageSize <= 0 || pageNumber < 1 || pageNumber > PageCount(len(results), pageSize) {
		return []contracts.StockResult{}
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}

	page := make([]contracts.StockResult, end-start)
	copy(page, results[start:end])
	return page
}

// SortByScoreDescending returns a copy ordered by score, ties in original order
func SortByScoreDescending(results []contracts.StockResult) []contracts.StockResult {
	sorted := make([]contracts.StockResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// Summary holds the headline figures of a result set
type Summary struct {
	Count            int     `json:"count"`
	UndervaluedCount int     `json:"undervalued_count"`
	AverageScore     float64 `json:"average_score"`
}

// Summarize computes the summary; AverageScore is 0 for an empty set
func Summarize(results []contracts.StockResult) Summary {
	s := Summary{Count: len(results)}
	if len(results) == 0 {
		return s
	}

	var total float64
	for _, r := range results {
		total += r.Score
		if r.IsUndervalued() {
			s.UndervaluedCount++
		}
	}
	s.AverageScore = total / float64(len(results))
	return s
}

// CountScoreAtLeast counts results with score >= threshold
func CountScoreAtLeast(results []contracts.StockResult, threshold float64) int {
	n := 0
	for _, r := range results {
		if r.Score >= threshold {
			n++
		}
	}
	return n
}

// Top returns the n best-scored results (chart data)
func Top(results []contracts.StockResult, n int) []contracts.StockResult {
	sorted := SortByScoreDescending(results)
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
