package criteria

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/valuescreener/pkg/logger"
)

// Change describes one edit attempt.
// Err is set when the edit was rejected; Old == New in that case.
type Change struct {
	Field string
	Old   interface{}
	New   interface{}
	Err   *ValidationError
}

// Store owns the current criteria and the active per-field failures
type Store struct {
	mu          sync.RWMutex
	current     Criteria
	failures    map[string]*ValidationError
	domain      []string
	subscribers map[int]func(Change)
	nextSubID   int
	logger      *logger.Logger
}

// NewStore creates a store holding initial
func NewStore(initial Criteria, log *logger.Logger) *Store {
	return &Store{
		current:     initial,
		failures:    make(map[string]*ValidationError),
		subscribers: make(map[int]func(Change)),
		logger:      log.WithComponent("criteria"),
	}
}

// Get returns a copy of the current criteria
func (s *Store) Get() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces one field after validating the value.
// On failure the prior value is kept and the failure is recorded for the field.
func (s *Store) Set(field string, value interface{}) error {
	field = CanonicalField(field)

	s.mu.Lock()
	change, err := s.apply(field, value)
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	if change != nil {
		for _, fn := range subs {
			fn(*change)
		}
	}
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"field": field,
			"value": value,
		}).Debug(err.Error())
		return err
	}
	return nil
}

// apply must be called with the write lock held
func (s *Store) apply(field string, value interface{}) (*Change, error) {
	if field == FieldIndexName {
		name, ok := value.(string)
		if !ok {
			return s.reject(field, s.current.IndexName, &ValidationError{Field: field, Value: value, Message: "must be a string"})
		}
		if verr := checkIndexName(name, s.domain); verr != nil {
			return s.reject(field, s.current.IndexName, verr)
		}
		old := s.current.IndexName
		s.current.IndexName = name
		delete(s.failures, field)
		return &Change{Field: field, Old: old, New: name}, nil
	}

	f, ok := lookupNumeric(field)
	if !ok {
		// 알 수 없는 필드는 상태 변경 없이 거부
		return nil, &ValidationError{Field: field, Value: value, Message: "unknown field"}
	}

	v, verr := parseNumeric(field, value)
	if verr == nil {
		verr = checkNumeric(f, v)
	}
	if verr != nil {
		return s.reject(field, f.get(&s.current), verr)
	}

	old := f.get(&s.current)
	f.set(&s.current, v)
	delete(s.failures, field)
	return &Change{Field: field, Old: old, New: v}, nil
}

func (s *Store) reject(field string, kept interface{}, verr *ValidationError) (*Change, error) {
	s.failures[field] = verr
	return &Change{Field: field, Old: kept, New: kept, Err: verr}, verr
}

// Replace validates a full snapshot and swaps it in atomically (presets, history replay).
// All failures are returned joined; nothing changes unless every field is valid.
func (s *Store) Replace(c Criteria) error {
	s.mu.Lock()
	if err := Validate(c, s.domain); err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.current
	s.current = c
	s.failures = make(map[string]*ValidationError)
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(Change{Field: "*", Old: old, New: c})
	}
	return nil
}

// Errors returns the currently signaled failures keyed by field
func (s *Store) Errors() map[string]*ValidationError {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*ValidationError, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}

// HasErrors reports whether any field currently signals a failure
func (s *Store) HasErrors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.failures) > 0
}

// SetIndexDomain restricts index_name to the backend's list.
// An empty domain accepts any non-blank name.
func (s *Store) SetIndexDomain(indices []string) {
	domain := append([]string(nil), indices...)
	sort.Strings(domain)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.domain = domain
}

// IndexDomain returns the allowed index names
func (s *Store) IndexDomain() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.domain...)
}

// Snapshot validates the current criteria as a whole and returns a copy.
// Pending rejected edits count as failures: the form still shows them.
func (s *Store) Snapshot() (Criteria, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.failures) > 0 {
		fields := make([]string, 0, len(s.failures))
		for f := range s.failures {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		pending := make([]error, 0, len(fields))
		for _, f := range fields {
			pending = append(pending, s.failures[f])
		}
		return s.current, fmt.Errorf("invalid criteria: %w", errors.Join(pending...))
	}

	if err := Validate(s.current, s.domain); err != nil {
		return s.current, fmt.Errorf("invalid criteria: %w", err)
	}
	return s.current, nil
}

// Subscribe registers fn for every edit attempt and returns an unsubscribe func
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotSubscribers() []func(Change) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subs := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subscribers[id])
	}
	return subs
}
