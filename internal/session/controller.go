// Package session drives one screening page: criteria snapshot, a single
// in-flight request identified by a token, and the resulting state.
//
// Responses are applied only when their token is still the latest one, so a
// late response can never overwrite a newer run or a reset.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/pkg/logger"
)

// Screener is the part of the gateway the controller needs
type Screener interface {
	RunScreening(ctx context.Context, req contracts.ScreeningRequest) ([]contracts.StockResult, error)
}

// Options configures a controller
type Options struct {
	Policy                   Policy
	PreserveResultsOnFailure bool
	Clock                    func() time.Time
}

// DefaultOptions rejects concurrent submits and keeps results on failure
func DefaultOptions() Options {
	return Options{
		Policy:                   PolicyRejectWhileRunning,
		PreserveResultsOnFailure: true,
		Clock:                    time.Now,
	}
}

// Controller is the screening session state machine
// ⭐ SSOT: 세션 상태 전이는 이 컨트롤러에서만
type Controller struct {
	// notifyMu serializes transitions with their delivery so subscribers
	// see states in the order they were applied. Subscribers must not
	// call Submit, SubmitAsync or Reset.
	notifyMu    sync.Mutex
	mu          sync.Mutex
	state       Session
	latest      uint64
	screener    Screener
	criteria    *criteria.Store
	opts        Options
	subscribers map[int]func(Session)
	nextSubID   int
	logger      *logger.Logger
}

// NewController creates an Idle controller
func NewController(id string, screener Screener, store *criteria.Store, opts Options, log *logger.Logger) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		state:       Session{ID: id, Status: StatusIdle},
		screener:    screener,
		criteria:    store,
		opts:        opts,
		subscribers: make(map[int]func(Session)),
		logger:      log.WithComponent("session").WithField("session_id", id),
	}
}

// Criteria returns the store edited by this session's page
func (c *Controller) Criteria() *criteria.Store {
	return c.criteria
}

// State returns the current snapshot
func (c *Controller) State() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates the current criteria and runs one screening request.
// It blocks until the request resolves; the returned Session is the state
// after this submit was applied (or the current state when it was not).
func (c *Controller) Submit(ctx context.Context) (Session, error) {
	token, snapshot, state, err := c.begin()
	if err != nil {
		return state, err
	}
	return c.run(ctx, token, snapshot)
}

// SubmitAsync starts a run and returns the Running state without waiting.
// Busy and validation failures are returned synchronously; the outcome of
// the request is only visible through State and Subscribe.
func (c *Controller) SubmitAsync(ctx context.Context) (Session, error) {
	token, snapshot, state, err := c.begin()
	if err != nil {
		return state, err
	}
	go func() {
		_, _ = c.run(ctx, token, snapshot)
	}()
	return state, nil
}

// begin performs the synchronous part of a submit: busy check, validation,
// token issue and the transition to Running
func (c *Controller) begin() (uint64, criteria.Criteria, Session, error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()

	if c.state.Status == StatusRunning && c.opts.Policy == PolicyRejectWhileRunning {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("Submit rejected: screening already running")
		return 0, criteria.Criteria{}, state, ErrBusy
	}

	snapshot, err := c.criteria.Snapshot()
	if err != nil {
		// 검증 실패: 네트워크 요청 없음
		c.latest++
		c.state.Token = c.latest
		c.fail(err)
		state, subs := c.publishLocked()
		c.mu.Unlock()
		notify(subs, state)

		c.logger.WithError(err).Info("Screening not submitted: invalid criteria")
		return 0, criteria.Criteria{}, state, err
	}

	c.latest++
	token := c.latest
	c.state.Status = StatusRunning
	c.state.Token = token
	c.state.Criteria = &snapshot
	c.state.Err = nil
	c.state.StartedAt = c.opts.Clock()
	c.state.CompletedAt = time.Time{}
	state, subs := c.publishLocked()
	c.mu.Unlock()
	notify(subs, state)

	c.logger.WithFields(map[string]interface{}{
		"token":         token,
		"index":         snapshot.IndexName,
		"criteria_hash": snapshot.Hash(),
	}).Info("Screening submitted")

	return token, snapshot, state, nil
}

// run issues the request outside the lock and applies the outcome
func (c *Controller) run(ctx context.Context, token uint64, snapshot criteria.Criteria) (Session, error) {
	results, runErr := c.screener.RunScreening(ctx, snapshot.Request())
	return c.resolve(token, results, runErr)
}

// resolve applies a response if its token is still current
func (c *Controller) resolve(token uint64, results []contracts.StockResult, runErr error) (Session, error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()

	if token != c.latest {
		state := c.state
		c.mu.Unlock()
		c.logger.WithFields(map[string]interface{}{
			"token":  token,
			"latest": state.Token,
		}).Info("Discarding stale screening response")
		return state, ErrStale
	}

	if runErr != nil {
		c.fail(runErr)
	} else {
		if results == nil {
			results = []contracts.StockResult{}
		}
		c.state.Status = StatusSucceeded
		c.state.Results = results
		c.state.Err = nil
		c.state.CompletedAt = c.opts.Clock()
	}
	state, subs := c.publishLocked()
	c.mu.Unlock()
	notify(subs, state)

	if runErr != nil {
		c.logger.WithError(runErr).WithField("token", token).Warn("Screening failed")
		return state, runErr
	}

	c.logger.WithFields(map[string]interface{}{
		"token":    token,
		"results":  len(results),
		"duration": state.CompletedAt.Sub(state.StartedAt),
	}).Info("Screening completed")
	return state, nil
}

// fail must be called with the lock held
func (c *Controller) fail(err error) {
	c.state.Status = StatusFailed
	c.state.Err = newErrorInfo(err)
	c.state.CompletedAt = c.opts.Clock()
	if !c.opts.PreserveResultsOnFailure {
		c.state.Results = nil
	}
}

// Reset returns to Idle and drops results.
// Any in-flight response becomes stale.
func (c *Controller) Reset() Session {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.latest++
	c.state = Session{ID: c.state.ID, Status: StatusIdle, Token: c.latest}
	state, subs := c.publishLocked()
	c.mu.Unlock()
	notify(subs, state)
	return state
}

// Subscribe registers fn for every state transition
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// publishLocked returns the state and subscriber list to notify after unlocking
func (c *Controller) publishLocked() (Session, []func(Session)) {
	ids := make([]int, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subs := make([]func(Session), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, c.subscribers[id])
	}
	return c.state, subs
}

func notify(subs []func(Session), state Session) {
	for _, fn := range subs {
		fn(state)
	}
}
