package handlers

import (
	"net/http"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/internal/history"
	"github.com/wonny/valuescreener/pkg/logger"
)

// HistoryHandler serves past screening runs
type HistoryHandler struct {
	store  *history.Store
	logger *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store *history.Store, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: log}
}

// List refreshes and returns the history, newest first
// GET /api/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, contracts.HistoryResponse{History: h.store.Records()})
}

// Get returns one run with its results
// GET /api/history/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	record, err := h.store.Details(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, record)
}

// Delete removes one run; the caller confirms with ?confirm=true
// DELETE /api/history/{id}
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	confirmed := queryBool(r, "confirm")
	err := h.store.Delete(r.Context(), id, history.ConfirmFunc(func(contracts.HistoryRecord) bool {
		return confirmed
	}))
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
