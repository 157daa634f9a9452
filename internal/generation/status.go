package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// ErrJobNotFound is returned when a status lookup references an unknown
// or already purged job id.
var ErrJobNotFound = errors.New("job not found")

// Status is the polling view of a job. Result is set only for completed
// jobs, Error only for failed ones. A job waiting out a retry backoff
// reports as queued.
type Status struct {
	State    string  `json:"state"`
	Progress int     `json:"progress"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// StatusReporter answers job status polls.
type StatusReporter struct {
	store repository.JobStore
}

func NewStatusReporter(store repository.JobStore) *StatusReporter {
	return &StatusReporter{store: store}
}

func (r *StatusReporter) GetStatus(ctx context.Context, publicID string) (*Status, error) {
	job, err := r.store.GetJobByPublicID(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	st := &Status{State: job.Status, Progress: job.Progress}
	switch job.Status {
	case models.JobStatusCompleted:
		if job.TopicID != nil {
			st.Result = &Result{TopicID: *job.TopicID, Slug: job.ResultSlug}
		}
	case models.JobStatusFailed:
		st.Error = job.LastError
	}
	return st, nil
}
