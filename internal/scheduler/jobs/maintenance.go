package jobs

import (
	"context"
	"time"

	"github.com/wonny/valuescreener/pkg/logger"
)

// Sweeper closes idle page sessions
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// SessionSweepJob expires page sessions not seen for maxIdle
type SessionSweepJob struct {
	sweeper  Sweeper
	maxIdle  time.Duration
	schedule string
	logger   *logger.Logger
}

// NewSessionSweepJob creates a new session sweep job
func NewSessionSweepJob(sweeper Sweeper, maxIdle time.Duration, schedule string, log *logger.Logger) *SessionSweepJob {
	return &SessionSweepJob{
		sweeper:  sweeper,
		maxIdle:  maxIdle,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

// Schedule returns the cron schedule
func (j *SessionSweepJob) Schedule() string {
	return j.schedule
}

// Run executes the sweep
func (j *SessionSweepJob) Run(ctx context.Context) error {
	count := j.sweeper.Sweep(j.maxIdle)
	if count > 0 {
		j.logger.WithField("removed", count).Info("Session sweep completed")
	}
	return nil
}
