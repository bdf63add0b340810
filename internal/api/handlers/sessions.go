package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/criteria"
	"github.com/wonny/valuescreener/internal/results"
	"github.com/wonny/valuescreener/internal/session"
	"github.com/wonny/valuescreener/pkg/logger"
)

// SessionHandler serves page sessions: criteria edits, submits and result views
// ⭐ SSOT: 스크리닝 세션 API 핸들러는 이 구조체에서만
type SessionHandler struct {
	registry *session.Registry
	pageSize int
	now      func() time.Time
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *session.Registry, pageSize int, log *logger.Logger) *SessionHandler {
	if pageSize <= 0 {
		pageSize = results.DefaultPageSize
	}
	return &SessionHandler{
		registry: registry,
		pageSize: pageSize,
		now:      time.Now,
		logger:   log,
	}
}

// PageView is the full state of a page session
type PageView struct {
	ID       string                              `json:"id"`
	Session  session.Session                     `json:"session"`
	Criteria criteria.Criteria                   `json:"criteria"`
	Errors   map[string]*criteria.ValidationError `json:"errors"`
	Summary  *results.Summary                    `json:"summary,omitempty"`
}

func newPageView(p *session.Page) PageView {
	state := p.Controller.State()
	// 결과는 /results 에서 페이지 단위로 제공
	view := PageView{
		ID:       p.ID,
		Criteria: p.Criteria().Get(),
		Errors:   p.Criteria().Errors(),
	}
	if state.HasResults() {
		summary := results.Summarize(state.Results)
		view.Summary = &summary
	}
	state.Results = nil
	view.Session = state
	return view
}

// Create opens a page session
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	page := h.registry.Create()
	respondData(w, http.StatusCreated, newPageView(page))
}

// Get returns a page session
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, newPageView(page))
}

// Delete closes a page session
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Delete(mux.Vars(r)["id"]) {
		respondErr(w, session.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// CriteriaEditRequest is a single-field edit
type CriteriaEditRequest struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// EditCriteria applies one field edit
// PATCH /api/sessions/{id}/criteria
func (h *SessionHandler) EditCriteria(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	var req CriteriaEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Field == "" {
		respondError(w, http.StatusBadRequest, "field is required")
		return
	}

	if err := page.Criteria().Set(req.Field, req.Value); err != nil {
		respondErr(w, err)
		return
	}

	respondData(w, http.StatusOK, newPageView(page))
}

// ReplaceCriteria swaps the whole criteria (presets, history replay)
// PUT /api/sessions/{id}/criteria
func (h *SessionHandler) ReplaceCriteria(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	var c criteria.Criteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := page.Criteria().Replace(c); err != nil {
		respondErr(w, err)
		return
	}

	respondData(w, http.StatusOK, newPageView(page))
}

// Submit starts a screening run.
// Default: 202 with the Running state; ?wait=true blocks until the run resolves.
// POST /api/sessions/{id}/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	if queryBool(r, "wait") {
		state, err := page.Controller.Submit(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		state.Results = nil
		respondData(w, http.StatusOK, state)
		return
	}

	// 요청 종료 후에도 실행 유지
	state, err := page.Controller.SubmitAsync(context.WithoutCancel(r.Context()))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusAccepted, state)
}

// Reset returns the page session to Idle
// POST /api/sessions/{id}/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, page.Controller.Reset())
}

// ResultsPage is one page of the current result set
type ResultsPage struct {
	Status     session.Status          `json:"status"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
	Total      int                     `json:"total"`
	Summary    results.Summary         `json:"summary"`
	Results    []contracts.StockResult `json:"results"`
}

// Results returns one page of results
// GET /api/sessions/{id}/results?page=&page_size=&sort=score
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	pageNumber, okPage := queryInt(r, "page", 1)
	pageSize, okSize := queryInt(r, "page_size", h.pageSize)
	if !okPage || !okSize {
		respondError(w, http.StatusBadRequest, "page and page_size must be integers")
		return
	}

	state := page.Controller.State()
	rows := state.Results
	if r.URL.Query().Get("sort") == "score" {
		rows = results.SortByScoreDescending(rows)
	}

	respondData(w, http.StatusOK, ResultsPage{
		Status:     state.Status,
		Page:       pageNumber,
		PageSize:   pageSize,
		TotalPages: results.PageCount(len(rows), pageSize),
		Total:      len(rows),
		Summary:    results.Summarize(rows),
		Results:    results.Paginate(rows, pageSize, pageNumber),
	})
}

// ExportCSV downloads the current result set; an empty set gives an empty body
// GET /api/sessions/{id}/export.csv
func (h *SessionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	// 결과가 없으면 빈 CSV (헤더 없음)
	body := results.CSVBytes(page.Controller.State().Results)
	w.Header().Set("Content-Type", results.CSVContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+results.ExportFilename(h.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// List returns the open page session ids
// GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.registry.IDs())
}

func (h *SessionHandler) page(w http.ResponseWriter, r *http.Request) (*session.Page, bool) {
	page, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return nil, false
	}
	return page, true
}
