package session

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/pkg/logger"
)

// Page is one open screening page: its criteria and its controller
type Page struct {
	ID         string
	Controller *Controller
	CreatedAt  time.Time

	lastSeen time.Time
}

// Criteria returns the page's criteria store
func (p *Page) Criteria() *criteria.Store {
	return p.Controller.Criteria()
}

// Event is a state transition of one page session
type Event struct {
	PageID  string  `json:"page_id"`
	Session Session `json:"session"`
}

// Registry owns one controller per open page
type Registry struct {
	mu        sync.Mutex
	pages     map[string]*Page
	screener  Screener
	opts      Options
	domain    []string
	listeners []func(Event)
	logger    *logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(screener Screener, opts Options, log *logger.Logger) *Registry {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		pages:    make(map[string]*Page),
		screener: screener,
		opts:     opts,
		logger:   log,
	}
}

// OnEvent registers fn for transitions of every page created afterwards
func (r *Registry) OnEvent(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// SetIndexDomain applies the backend index list to new and open pages
func (r *Registry) SetIndexDomain(indices []string) {
	r.mu.Lock()
	r.domain = append([]string(nil), indices...)
	pages := make([]*Page, 0, len(r.pages))
	for _, p := range r.pages {
		pages = append(pages, p)
	}
	r.mu.Unlock()

	for _, p := range pages {
		p.Criteria().SetIndexDomain(indices)
	}
}

// Create opens a page with default criteria
func (r *Registry) Create() *Page {
	id := uuid.NewString()
	now := r.opts.Clock()

	store := criteria.NewStore(criteria.Default(), r.logger)

	r.mu.Lock()
	if len(r.domain) > 0 {
		store.SetIndexDomain(r.domain)
	}
	ctrl := NewController(id, r.screener, store, r.opts, r.logger)
	page := &Page{ID: id, Controller: ctrl, CreatedAt: now, lastSeen: now}
	r.pages[id] = page
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	if len(listeners) > 0 {
		ctrl.Subscribe(func(s Session) {
			for _, fn := range listeners {
				fn(Event{PageID: id, Session: s})
			}
		})
	}

	r.logger.WithFields(map[string]interface{}{
		"component":  "session",
		"session_id": id,
	}).Debug("Page session created")

	return page
}

// Get returns a page and marks it as seen
func (r *Registry) Get(id string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	page.lastSeen = r.opts.Clock()
	return page, nil
}

// Delete closes a page. Any in-flight response is discarded.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	page, ok := r.pages[id]
	delete(r.pages, id)
	r.mu.Unlock()

	if ok {
		page.Controller.Reset()
	}
	return ok
}

// IDs lists open pages, oldest first
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	pages := make([]*Page, 0, len(r.pages))
	for _, p := range r.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].CreatedAt.Before(pages[j].CreatedAt)
	})

	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of open pages
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep closes pages not seen for maxIdle. Running pages are kept.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.opts.Clock().Add(-maxIdle)

	r.mu.Lock()
	var expired []*Page
	for id, p := range r.pages {
		if p.lastSeen.Before(cutoff) && !p.Controller.State().Running() {
			expired = append(expired, p)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, p := range expired {
		p.Controller.Reset()
	}

	if len(expired) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"component": "session",
			"expired":   len(expired),
		}).Info("Idle page sessions swept")
	}
	return len(expired)
}
