package contracts

import "time"

// WatchlistEntry is one tracked ticker
type WatchlistEntry struct {
	ID        int64   `json:"id"`
	Ticker    string  `json:"ticker"`
	AddedDate string  `json:"added_date"`
	Notes     *string `json:"notes,omitempty"`
}

// AddToWatchlistRequest is the POST /watchlist body
type AddToWatchlistRequest struct {
	Ticker string  `json:"ticker"`
	Notes  *string `json:"notes,omitempty"`
}

// MessageResponse is the generic acknowledgement payload
type MessageResponse struct {
	Message string `json:"message"`
}

// HistoryRecord is a read-only snapshot of a past screening run.
// Results is only populated by the detail endpoint.
type HistoryRecord struct {
	ID            int64            `json:"id"`
	IndexName     string           `json:"index_name"`
	Timestamp     string           `json:"timestamp"`
	TotalResults  int              `json:"total_results"`
	ExecutionTime float64          `json:"execution_time"`
	Criteria      ScreeningRequest `json:"criteria"`
	Results       []StockResult    `json:"results,omitempty"`
}

// HistoryResponse is the success payload of GET /screening/history
type HistoryResponse struct {
	History []HistoryRecord `json:"history"`
}

// timestampLayouts covers the backend's ISO-8601 variants (with or without zone)
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend date string
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimestampAfter reports a > b for backend date strings; unparsable values sort last
func TimestampAfter(a, b string) bool {
	ta, okA := ParseTimestamp(a)
	tb, okB := ParseTimestamp(b)
	switch {
	case okA && okB:
		return ta.After(tb)
	case okA != okB:
		return okA
	default:
		return a > b
	}
}
