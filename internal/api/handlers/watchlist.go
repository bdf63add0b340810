package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/watchlist"
	"github.com/wonny/valuescreener/pkg/logger"
)

// WatchlistHandler serves the watchlist side-store
type WatchlistHandler struct {
	store  *watchlist.Store
	logger *logger.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(store *watchlist.Store, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{store: store, logger: log}
}

// List refreshes and returns the watchlist
// GET /api/watchlist?filter=&order=oldest
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		respondErr(w, err)
		return
	}

	q := r.URL.Query()
	respondData(w, http.StatusOK, h.store.View(q.Get("filter"), q.Get("order") == "oldest"))
}

// Add adds a ticker
// POST /api/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req contracts.AddToWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.store.Add(r.Context(), req.Ticker, req.Notes)
	if err != nil && msg == "" {
		respondErr(w, err)
		return
	}

	// 추가는 성공, 새로고침만 실패한 경우도 201
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
		"data":    h.store.Items(),
	})
}

// Remove deletes a watchlist entry
// DELETE /api/watchlist/{id}
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := h.store.Remove(r.Context(), id, watchlist.AlwaysConfirm); err != nil {
		respondErr(w, err)
		return
	}

	respondData(w, http.StatusOK, h.store.Items())
}
