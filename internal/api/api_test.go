package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescreener/internal/api/handlers"
	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/gateway"
	"github.com/wonny/valuescreener/internal/history"
	"github.com/wonny/valuescreener/internal/session"
	"github.com/wonny/valuescreener/internal/watchlist"
	"github.com/wonny/valuescreener/pkg/httputil"
	"github.com/wonny/valuescreener/pkg/logger"
)

// fakeUpstream plays the screening service
type fakeUpstream struct {
	mu        sync.Mutex
	watchlist []contracts.WatchlistEntry
	history   []contracts.HistoryRecord
	nextID    int64

	screenCalls int32
	deleteCalls int32
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/indices":
		writeJSON(w, http.StatusOK, contracts.IndicesResponse{Indices: []string{"CAC 40 (France)", "DAX (Allemagne)"}})

	case r.Method == http.MethodPost && r.URL.Path == "/screening":
		atomic.AddInt32(&f.screenCalls, 1)
		var req contracts.ScreeningRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.IndexName == "DAX (Allemagne)" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Erreur lors du screening"})
			return
		}
		f.nextID++
		f.history = append(f.history, contracts.HistoryRecord{ID: f.nextID, IndexName: req.IndexName, Timestamp: "2024-05-01T10:00:00", TotalResults: 2})
		writeJSON(w, http.StatusOK, contracts.ScreeningResponse{Results: []contracts.StockResult{
			{Symbol: "OR.PA", CompanyName: "L'Oréal", Score: 60, CurrentPrice: 400, IntrinsicValue: contracts.Float(380)},
			{Symbol: "MC.PA", CompanyName: "LVMH", Score: 85, CurrentPrice: 700, IntrinsicValue: contracts.Float(820)},
		}})

	case r.Method == http.MethodGet && r.URL.Path == "/screening/history":
		writeJSON(w, http.StatusOK, contracts.HistoryResponse{History: f.history})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/screening/history/"):
		atomic.AddInt32(&f.deleteCalls, 1)
		f.history = nil
		writeJSON(w, http.StatusOK, contracts.MessageResponse{Message: "deleted"})

	case r.Method == http.MethodGet && r.URL.Path == "/watchlist":
		writeJSON(w, http.StatusOK, f.watchlist)

	case r.Method == http.MethodPost && r.URL.Path == "/watchlist":
		var req contracts.AddToWatchlistRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.nextID++
		f.watchlist = append(f.watchlist, contracts.WatchlistEntry{ID: f.nextID, Ticker: req.Ticker, AddedDate: "2024-05-01T10:00:00"})
		writeJSON(w, http.StatusOK, contracts.MessageResponse{Message: req.Ticker + " added to watchlist"})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/watchlist/"):
		f.watchlist = nil
		writeJSON(w, http.StatusOK, contracts.MessageResponse{Message: "removed"})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/dcf-valuation/"):
		writeJSON(w, http.StatusOK, contracts.DCFValuation{CurrentPrice: 100, Scenario1: contracts.DCFScenario{IntrinsicValue: 120}})

	case r.Method == http.MethodGet && r.URL.Path == "/financials/ZZZ.PA":
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Données financières non trouvées pour le ticker ZZZ.PA."})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/financials/"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"financials":{"2024-12-31 00:00:00":{"Total Revenue":1200}},"balance_sheet":{},"cash_flow":{}}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testAPI struct {
	router   http.Handler
	upstream *fakeUpstream
	hub      *Hub
	registry *session.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	upstream := &fakeUpstream{}
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	log := logger.Nop()
	gw := gateway.NewClient(httputil.New(log), server.URL, log)
	registry := session.NewRegistry(gw, session.DefaultOptions(), log)
	hist := history.NewStore(gw, log)
	wl := watchlist.NewStore(gw, log)
	hub := NewHub(log)

	registry.OnEvent(hub.PublishSession)
	wl.OnChange(hub.PublishWatchlist)
	hist.OnChange(hub.PublishHistory)

	router := NewRouter(Handlers{
		Sessions:  handlers.NewSessionHandler(registry, 20, log),
		Catalog:   handlers.NewCatalogHandler(gw, registry, log),
		History:   handlers.NewHistoryHandler(hist, log),
		Watchlist: handlers.NewWatchlistHandler(wl, log),
		WS:        hub,
	}, log)

	return &testAPI{router: router, upstream: upstream, hub: hub, registry: registry}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  string          `json:"detail"`
	Kind    string          `json:"kind"`
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (a *testAPI) createSession(t *testing.T) string {
	t.Helper()
	rec, env := a.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var view handlers.PageView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec, _ := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestIndices(t *testing.T) {
	a := newTestAPI(t)
	rec, env := a.do(t, http.MethodGet, "/api/indices", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out contracts.IndicesResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Len(t, out.Indices, 2)

	id := a.createSession(t)
	rec, env = a.do(t, http.MethodPatch, "/api/sessions/"+id+"/criteria", handlers.CriteriaEditRequest{Field: "index_name", Value: "Nikkei 225"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", env.Kind)
}

func TestSessionLifecycle(t *testing.T) {
	a := newTestAPI(t)
	id := a.createSession(t)

	rec, env := a.do(t, http.MethodPatch, "/api/sessions/"+id+"/criteria", handlers.CriteriaEditRequest{Field: "pe_max", Value: -5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Detail, "pe_max")

	rec, _ = a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit?wait=true", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&a.upstream.screenCalls))

	rec, _ = a.do(t, http.MethodPatch, "/api/sessions/"+id+"/criteria", handlers.CriteriaEditRequest{Field: "pe_max", Value: "18"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "succeeded", stateStatus(t, env.Data))
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.upstream.screenCalls))

	rec, env = a.do(t, http.MethodGet, "/api/sessions/"+id+"/results?page=1&page_size=1&sort=score", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		TotalPages int                     `json:"total_pages"`
		Total      int                     `json:"total"`
		Results    []contracts.StockResult `json:"results"`
		Summary    struct {
			UndervaluedCount int     `json:"undervalued_count"`
			AverageScore     float64 `json:"average_score"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "MC.PA", page.Results[0].Symbol)
	assert.Equal(t, 1, page.Summary.UndervaluedCount)
	assert.InDelta(t, 72.5, page.Summary.AverageScore, 1e-9)

	rec, _ = a.do(t, http.MethodGet, "/api/sessions/"+id+"/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "screening_results_")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	rec, _ = a.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = a.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func stateStatus(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &s))
	return s.Status
}

func TestExportCSV_EmptyResultSet(t *testing.T) {
	a := newTestAPI(t)
	id := a.createSession(t)

	rec, _ := a.do(t, http.MethodGet, "/api/sessions/"+id+"/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "screening_results_")
	assert.Equal(t, "0", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestSubmit_UpstreamDetailVerbatim(t *testing.T) {
	a := newTestAPI(t)
	id := a.createSession(t)

	rec, _ := a.do(t, http.MethodPatch, "/api/sessions/"+id+"/criteria", handlers.CriteriaEditRequest{Field: "index_name", Value: "DAX (Allemagne)"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit?wait=true", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Erreur lors du screening", env.Detail)
	assert.Equal(t, "network", env.Kind)

	rec, env = a.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view handlers.PageView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Session.Err)
	assert.Equal(t, "Erreur lors du screening", view.Session.Err.Message)
}

func TestSubmit_Async(t *testing.T) {
	a := newTestAPI(t)
	id := a.createSession(t)

	rec, env := a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "running", stateStatus(t, env.Data))

	page, err := a.registry.Get(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return page.Controller.State().Status == session.StatusSucceeded
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHistory_DeleteRequiresConfirmation(t *testing.T) {
	a := newTestAPI(t)
	id := a.createSession(t)
	rec, _ := a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := a.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist contracts.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	require.Len(t, hist.History, 1)

	rec, env = a.do(t, http.MethodDelete, "/api/history/1", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, "not_confirmed", env.Kind)
	assert.Zero(t, atomic.LoadInt32(&a.upstream.deleteCalls))

	rec, _ = a.do(t, http.MethodDelete, "/api/history/1?confirm=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.upstream.deleteCalls))

	rec, _ = a.do(t, http.MethodDelete, "/api/history/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchlist(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodPost, "/api/watchlist", contracts.AddToWatchlistRequest{Ticker: "AI.PA"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var items []contracts.WatchlistEntry
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "AI.PA", items[0].Ticker)

	rec, env = a.do(t, http.MethodPost, "/api/watchlist", contracts.AddToWatchlistRequest{Ticker: "WAYTOOLONGTICKER"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", env.Kind)

	rec, env = a.do(t, http.MethodGet, "/api/watchlist?filter=ai", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)

	rec, _ = a.do(t, http.MethodDelete, "/api/watchlist/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDCF(t *testing.T) {
	a := newTestAPI(t)
	rec, env := a.do(t, http.MethodGet, "/api/dcf/AI.PA", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Ticker          string   `json:"ticker"`
		Scenario1Upside *float64 `json:"scenario1_upside"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "AI.PA", view.Ticker)
	require.NotNil(t, view.Scenario1Upside)
	assert.InDelta(t, 0.2, *view.Scenario1Upside, 1e-9)
}

func TestFinancials(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodGet, "/api/financials/MC.PA", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var f contracts.FinancialStatements
	require.NoError(t, json.Unmarshal(env.Data, &f))
	assert.Equal(t, "MC.PA", f.Ticker)
	require.NotNil(t, f.Financials.Value("2024-12-31 00:00:00", "Total Revenue"))
	assert.InDelta(t, 1200, *f.Financials.Value("2024-12-31 00:00:00", "Total Revenue"), 1e-9)

	rec, env = a.do(t, http.MethodGet, "/api/financials/ZZZ.PA", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Données financières non trouvées pour le ticker ZZZ.PA.", env.Detail)

	rec, _ = a.do(t, http.MethodGet, "/api/financials/WAYTOOLONGTICKER", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebSocketPushesSessionEvents(t *testing.T) {
	a := newTestAPI(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.hub.Run(ctx)

	server := httptest.NewServer(a.router)
	defer server.Close()

	id := a.createSession(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	rec, _ := a.do(t, http.MethodPost, "/api/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(statuses) < 2 {
		var msg struct {
			Type      string          `json:"type"`
			SessionID string          `json:"session_id"`
			Data      json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MessageSession, msg.Type)
		assert.Equal(t, id, msg.SessionID)
		statuses = append(statuses, stateStatus(t, msg.Data))
	}
	assert.Equal(t, []string{"running", "succeeded"}, statuses)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusConflict, handlers.StatusForKind(session.ErrBusy.Kind()))
	assert.Equal(t, http.StatusNotFound, handlers.StatusForKind(session.ErrNotFound.Kind()))
}
