package jobs

import (
	"context"

	"github.com/wonny/valuescreener/pkg/logger"
)

// IndexSource lists the indices the backend can screen
type IndexSource interface {
	FetchIndices(ctx context.Context) ([]string, error)
}

// IndexDomainSetter receives the allowed index names
type IndexDomainSetter interface {
	SetIndexDomain(indices []string)
}

// IndexDomainJob keeps the criteria index domain in sync with the backend
type IndexDomainJob struct {
	source   IndexSource
	target   IndexDomainSetter
	schedule string
	logger   *logger.Logger
}

// NewIndexDomainJob creates a new index domain job
func NewIndexDomainJob(source IndexSource, target IndexDomainSetter, schedule string, log *logger.Logger) *IndexDomainJob {
	return &IndexDomainJob{source: source, target: target, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *IndexDomainJob) Name() string {
	return "index_domain_refresh"
}

// Schedule returns the cron schedule
func (j *IndexDomainJob) Schedule() string {
	return j.schedule
}

// Run fetches the index list; an empty list leaves the domain unchanged
func (j *IndexDomainJob) Run(ctx context.Context) error {
	indices, err := j.source.FetchIndices(ctx)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return nil
	}

	j.target.SetIndexDomain(indices)
	j.logger.WithField("indices", len(indices)).Debug("Index domain updated")
	return nil
}
