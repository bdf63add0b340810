// Package watchlist keeps the locally displayed copy of the backend watchlist.
//
// Every mutation goes to the backend first and is followed by a full refresh;
// the local collection is never updated optimistically.
package watchlist

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/pkg/errs"
	"github.com/wonny/valuescreener/pkg/logger"
)

// MaxTickerLen matches the backend's ticker schema
const MaxTickerLen = 10

// ErrNotConfirmed is returned when a removal was not confirmed
var ErrNotConfirmed = errs.New(errs.KindNotConfirmed, "removal not confirmed")

// Gateway is the part of the screening service the store needs
type Gateway interface {
	GetWatchlist(ctx context.Context) ([]contracts.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, ticker string, notes *string) (string, error)
	RemoveFromWatchlist(ctx context.Context, id int64) error
}

// Confirmer approves a destructive action on an entry
type Confirmer func(contracts.WatchlistEntry) bool

// AlwaysConfirm approves every removal (--yes, confirmed API calls)
func AlwaysConfirm(contracts.WatchlistEntry) bool { return true }

// Store is the watchlist side-store
type Store struct {
	mu          sync.RWMutex
	gw          Gateway
	items       []contracts.WatchlistEntry
	lastErr     error
	refreshedAt time.Time
	listeners   []func([]contracts.WatchlistEntry)
	logger      *logger.Logger
}

// NewStore creates an empty store
func NewStore(gw Gateway, log *logger.Logger) *Store {
	return &Store{
		gw:     gw,
		items:  []contracts.WatchlistEntry{},
		logger: log.WithComponent("watchlist"),
	}
}

// OnChange registers fn for every successful refresh
func (s *Store) OnChange(fn func([]contracts.WatchlistEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh replaces the whole collection, newest first.
// On failure the previous collection is kept and the error recorded.
func (s *Store) Refresh(ctx context.Context) error {
	items, err := s.gw.GetWatchlist(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}

	sorted := append([]contracts.WatchlistEntry(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return contracts.TimestampAfter(sorted[i].AddedDate, sorted[j].AddedDate)
	})

	s.mu.Lock()
	s.items = sorted
	s.lastErr = nil
	s.refreshedAt = time.Now()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s.Items())
	}

	s.logger.WithField("items", len(sorted)).Debug("Watchlist refreshed")
	return nil
}

// Add validates and adds a ticker, then refreshes.
// Returns the backend's acknowledgement message.
func (s *Store) Add(ctx context.Context, ticker string, notes *string) (string, error) {
	ticker = strings.TrimSpace(ticker)
	if err := ValidateTicker(ticker); err != nil {
		return "", err
	}

	msg, err := s.gw.AddToWatchlist(ctx, ticker, notes)
	if err != nil {
		s.setErr(err)
		return "", err
	}

	s.logger.WithField("ticker", ticker).Info("Ticker added to watchlist")

	if err := s.Refresh(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

// Remove deletes an entry after confirmation, then refreshes.
// A nil confirm is treated as confirmed.
func (s *Store) Remove(ctx context.Context, id int64, confirm Confirmer) error {
	entry, ok := s.find(id)
	if !ok {
		entry = contracts.WatchlistEntry{ID: id}
	}

	if confirm != nil && !confirm(entry) {
		return ErrNotConfirmed
	}

	if err := s.gw.RemoveFromWatchlist(ctx, id); err != nil {
		s.setErr(err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"id":     id,
		"ticker": entry.Ticker,
	}).Info("Ticker removed from watchlist")

	return s.Refresh(ctx)
}

// Items returns a copy of the collection, newest first
func (s *Store) Items() []contracts.WatchlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contracts.WatchlistEntry{}, s.items...)
}

// View filters by ticker substring (case-insensitive) and orders by added date
func (s *Store) View(filter string, oldestFirst bool) []contracts.WatchlistEntry {
	items := s.Filter(filter)
	if oldestFirst {
		sort.SliceStable(items, func(i, j int) bool {
			return contracts.TimestampAfter(items[j].AddedDate, items[i].AddedDate)
		})
	}
	return items
}

// Filter returns entries whose ticker contains substr, case-insensitive
func (s *Store) Filter(substr string) []contracts.WatchlistEntry {
	needle := strings.ToLower(strings.TrimSpace(substr))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []contracts.WatchlistEntry{}
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Ticker), needle) {
			out = append(out, it)
		}
	}
	return out
}

// Err returns the last operation error, nil after a successful refresh
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// RefreshedAt returns the time of the last successful refresh
func (s *Store) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Contains reports whether ticker is watched
func (s *Store) Contains(ticker string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if strings.EqualFold(it.Ticker, ticker) {
			return true
		}
	}
	return false
}

func (s *Store) find(id int64) (contracts.WatchlistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return contracts.WatchlistEntry{}, false
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.WithError(err).Warn("Watchlist operation failed")
}

// TickerError is a rejected ticker
type TickerError struct {
	Ticker  string
	Message string
}

func (e *TickerError) Error() string {
	return fmt.Sprintf("ticker %q: %s", e.Ticker, e.Message)
}

// Kind classifies the error for presentation
func (e *TickerError) Kind() errs.Kind {
	return errs.KindValidation
}

// ValidateTicker checks the 1-10 character rule
func ValidateTicker(ticker string) error {
	if strings.TrimSpace(ticker) == "" {
		return &TickerError{Ticker: ticker, Message: "is required"}
	}
	if len(ticker) > MaxTickerLen {
		return &TickerError{Ticker: ticker, Message: fmt.Sprintf("must be at most %d characters", MaxTickerLen)}
	}
	return nil
}
