package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescreener/internal/scheduler"
	"github.com/wonny/valuescreener/pkg/logger"
)

// JobRunner is the scheduler surface exposed over HTTP
type JobRunner interface {
	GetJobStats() map[string]scheduler.JobStats
	RunJob(jobName string) error
}

// JobsHandler exposes scheduler stats and manual runs
type JobsHandler struct {
	runner JobRunner
	logger *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(runner JobRunner, log *logger.Logger) *JobsHandler {
	return &JobsHandler{runner: runner, logger: log}
}

// Stats returns per-job statistics
// GET /api/jobs
func (h *JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.runner.GetJobStats())
}

// Run triggers a job outside its schedule
// POST /api/jobs/{name}/run
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.runner.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered manually")
	respondJSON(w, http.StatusAccepted, map[string]interface{}{"success": true})
}
