package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescreener/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	err      error
	calls    int32
	block    chan struct{}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.calls, 1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 */5 * * * *"}))
	require.NoError(t, s.AddJob(&countingJob{name: "manual"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))

	assert.Equal(t, []string{"a", "manual"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJob_NoRetryOnFailure(t *testing.T) {
	s := New(logger.Nop())
	job := &countingJob{name: "flaky", err: errors.New("backend down")}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("flaky"))
	s.wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "backend down", history.Results[0].Error)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJob_SkipsOverlap(t *testing.T) {
	s := New(logger.Nop())
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("slow"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.calls) == 1 }, time.Second, time.Millisecond)

	// returns immediately while the first run holds the slot
	s.runJob(job)

	close(job.block)
	s.wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))
}

func TestRunJob_Unknown(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.RunJob("missing"))
	_, err := s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
	assert.Len(t, h.GetLatestResults(3), 3)
}
