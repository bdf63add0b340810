package jobs

import (
	"context"

	"github.com/wonny/valuescreener/pkg/logger"
)

// Refresher is a side-store that reloads from the screening service
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshJob reloads a side-store on schedule
type RefreshJob struct {
	name     string
	schedule string
	store    Refresher
	logger   *logger.Logger
}

// NewWatchlistRefreshJob reloads the watchlist store
func NewWatchlistRefreshJob(store Refresher, schedule string, log *logger.Logger) *RefreshJob {
	return &RefreshJob{name: "watchlist_refresh", schedule: schedule, store: store, logger: log}
}

// NewHistoryRefreshJob reloads the history store
func NewHistoryRefreshJob(store Refresher, schedule string, log *logger.Logger) *RefreshJob {
	return &RefreshJob{name: "history_refresh", schedule: schedule, store: store, logger: log}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	j.logger.WithField("job", j.name).Debug("Starting scheduled refresh")
	return j.store.Refresh(ctx)
}
