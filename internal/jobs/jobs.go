// Package jobs runs the durable generation queue: claiming, retry with
// exponential backoff, terminal failure after the attempt cap, and the
// completed-job retention sweep.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
)

// Handler processes one claimed job. A nil return means the handler
// brought the job to its terminal success state itself; an error sends
// the job through retry or, once attempts are exhausted, terminal failure.
type Handler func(ctx context.Context, j *models.GenerationJob) error

// ErrMaxAttempts indicates the job reached max attempts.
var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns the exponential backoff before attempt n+1:
// 1s after the first failure, doubling per attempt, capped.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
