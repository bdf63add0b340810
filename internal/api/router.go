package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescreener/internal/api/handlers"
	"github.com/wonny/valuescreener/pkg/logger"
)

// Handlers groups the route handlers
type Handlers struct {
	Sessions  *handlers.SessionHandler
	Catalog   *handlers.CatalogHandler
	History   *handlers.HistoryHandler
	Watchlist *handlers.WatchlistHandler
	Jobs      *handlers.JobsHandler
	WS        http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if h.WS != nil {
		r.Handle("/ws", h.WS).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/indices", h.Catalog.GetIndices).Methods("GET")
	api.HandleFunc("/dcf/{ticker}", h.Catalog.GetDCF).Methods("GET")
	api.HandleFunc("/financials/{ticker}", h.Catalog.GetFinancials).Methods("GET")

	// Page sessions
	api.HandleFunc("/sessions", h.Sessions.List).Methods("GET")
	api.HandleFunc("/sessions", h.Sessions.Create).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.Sessions.Get).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.Sessions.Delete).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/criteria", h.Sessions.EditCriteria).Methods("PATCH")
	api.HandleFunc("/sessions/{id}/criteria", h.Sessions.ReplaceCriteria).Methods("PUT")
	api.HandleFunc("/sessions/{id}/submit", h.Sessions.Submit).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", h.Sessions.Reset).Methods("POST")
	api.HandleFunc("/sessions/{id}/results", h.Sessions.Results).Methods("GET")
	api.HandleFunc("/sessions/{id}/export.csv", h.Sessions.ExportCSV).Methods("GET")

	// History
	api.HandleFunc("/history", h.History.List).Methods("GET")
	api.HandleFunc("/history/{id:[0-9]+}", h.History.Get).Methods("GET")
	api.HandleFunc("/history/{id:[0-9]+}", h.History.Delete).Methods("DELETE")

	// Watchlist
	api.HandleFunc("/watchlist", h.Watchlist.List).Methods("GET")
	api.HandleFunc("/watchlist", h.Watchlist.Add).Methods("POST")
	api.HandleFunc("/watchlist/{id:[0-9]+}", h.Watchlist.Remove).Methods("DELETE")

	// Scheduler
	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.Stats).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", h.Jobs.Run).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "valuescreener-bff",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer (websocket hijack)
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for WebSocket upgrades
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"detail": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
