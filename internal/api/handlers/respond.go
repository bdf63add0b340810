package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescreener/pkg/errs"
)

// ErrorResponse mirrors the screening service error shape
type ErrorResponse struct {
	Detail string    `json:"detail"`
	Kind   errs.Kind `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Detail: message})
}

// respondErr maps an error kind to its HTTP status; the message is passed through unchanged
func respondErr(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	respondJSON(w, StatusForKind(kind), ErrorResponse{Detail: err.Error(), Kind: kind})
}

// StatusForKind returns the HTTP status used for an error kind
func StatusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusUnprocessableEntity
	case errs.KindBusy, errs.KindStale:
		return http.StatusConflict
	case errs.KindNotConfirmed:
		return http.StatusPreconditionRequired
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
