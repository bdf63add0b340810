// Package history keeps the displayed list of past screening runs.
// Records are read-only snapshots; the only mutation is a confirmed delete.
package history

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/pkg/errs"
	"github.com/wonny/valuescreener/pkg/logger"
)

// ErrNotConfirmed is returned when a delete was not confirmed
var ErrNotConfirmed = errs.New(errs.KindNotConfirmed, "deletion not confirmed")

// Gateway is the part of the screening service the store needs
type Gateway interface {
	FetchScreeningHistory(ctx context.Context) ([]contracts.HistoryRecord, error)
	FetchScreeningDetails(ctx context.Context, id int64) (*contracts.HistoryRecord, error)
	DeleteScreening(ctx context.Context, id int64) error
}

// Confirmer approves the deletion of a record
type Confirmer interface {
	Confirm(record contracts.HistoryRecord) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(contracts.HistoryRecord) bool

// Confirm calls f
func (f ConfirmFunc) Confirm(record contracts.HistoryRecord) bool {
	return f(record)
}

// Confirmed approves every deletion
var Confirmed Confirmer = ConfirmFunc(func(contracts.HistoryRecord) bool { return true })

// Store is the history side-store
type Store struct {
	mu          sync.RWMutex
	gw          Gateway
	records     []contracts.HistoryRecord
	lastErr     error
	refreshedAt time.Time
	listeners   []func([]contracts.HistoryRecord)
	logger      *logger.Logger
}

// NewStore creates an empty store
func NewStore(gw Gateway, log *logger.Logger) *Store {
	return &Store{
		gw:      gw,
		records: []contracts.HistoryRecord{},
		logger:  log.WithComponent("history"),
	}
}

// OnChange registers fn for every change of the displayed collection
func (s *Store) OnChange(fn func([]contracts.HistoryRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh replaces the collection, newest first.
// On failure the previous collection is kept and the error recorded.
func (s *Store) Refresh(ctx context.Context) error {
	records, err := s.gw.FetchScreeningHistory(ctx)
	if err != nil {
		s.setErr(err)
		return err
	}

	sorted := append([]contracts.HistoryRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return contracts.TimestampAfter(sorted[i].Timestamp, sorted[j].Timestamp)
	})

	s.replace(sorted)
	s.logger.WithField("records", len(sorted)).Debug("History refreshed")
	return nil
}

// Records returns a copy of the displayed collection
func (s *Store) Records() []contracts.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contracts.HistoryRecord{}, s.records...)
}

// Details fetches one record with its results
func (s *Store) Details(ctx context.Context, id int64) (*contracts.HistoryRecord, error) {
	record, err := s.gw.FetchScreeningDetails(ctx, id)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	return record, nil
}

// Delete removes a record after confirmation.
// Without confirmation no request is issued. On success the record is
// removed from the displayed collection without a refetch.
func (s *Store) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	record, ok := s.find(id)
	if !ok {
		record = contracts.HistoryRecord{ID: id}
	}

	if confirm == nil || !confirm.Confirm(record) {
		return ErrNotConfirmed
	}

	if err := s.gw.DeleteScreening(ctx, id); err != nil {
		s.setErr(err)
		return err
	}

	s.remove(id)

	s.logger.WithFields(map[string]interface{}{
		"id":    id,
		"index": record.IndexName,
	}).Info("Screening deleted from history")
	return nil
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

func (s *Store) replace(records []contracts.HistoryRecord) {
	s.mu.Lock()
	s.records = records
	s.lastErr = nil
	s.refreshedAt = time.Now()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s.Records())
	}
}

// remove filters id out and swaps the collection under one write lock,
// so a concurrent Refresh is never overwritten by an older copy
func (s *Store) remove(id int64) {
	s.mu.Lock()
	kept := make([]contracts.HistoryRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.lastErr = nil
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s.Records())
	}
}

func (s *Store) find(id int64) (contracts.HistoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return contracts.HistoryRecord{}, false
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.WithError(err).Warn("History operation failed")
}
