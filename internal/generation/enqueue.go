package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/internal/slug"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

var (
	ErrEmptyTitle    = errors.New("title must not be empty")
	ErrQuotaExceeded = errors.New("free generation quota exceeded")
)

// Enqueuer handles the synchronous half of a generation request: derive
// the slug, short-circuit if the content already exists, enforce the
// free-tier quota, and put a job on the queue.
type Enqueuer struct {
	store       repository.JobStore
	topics      repository.TopicRepo
	learners    repository.LearnerRepo
	freeLimit   int64
	maxAttempts int
	logger      *slog.Logger
}

func NewEnqueuer(store repository.JobStore, topics repository.TopicRepo, learners repository.LearnerRepo, freeLimit int64, maxAttempts int, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{
		store:       store,
		topics:      topics,
		learners:    learners,
		freeLimit:   freeLimit,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// RequestOutcome is either an existing topic (nothing enqueued) or the
// public id of a freshly queued job, never both.
type RequestOutcome struct {
	Existing *models.Topic
	JobID    string
}

// Request validates a generation request and enqueues it. The existence
// check runs here, in the request path, so the common duplicate case is
// answered without a job; the concurrent case is caught later by the
// slug uniqueness constraint.
func (e *Enqueuer) Request(ctx context.Context, learnerID *int64, title string) (*RequestOutcome, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	s := slug.Make(title)
	if s == "" {
		return nil, ErrEmptyTitle
	}

	existing, err := e.topics.GetTopicBySlug(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("check existing topic: %w", err)
	}
	if existing != nil {
		return &RequestOutcome{Existing: existing}, nil
	}

	if learnerID != nil && e.freeLimit > 0 {
		learner, err := e.learners.GetByID(ctx, *learnerID)
		if err != nil {
			return nil, fmt.Errorf("load learner: %w", err)
		}
		if learner != nil && learner.GenerationCount >= e.freeLimit {
			return nil, ErrQuotaExceeded
		}
	}

	job := &models.GenerationJob{
		PublicID:    uuid.NewString(),
		LearnerID:   learnerID,
		Title:       title,
		Slug:        s,
		Status:      models.JobStatusQueued,
		MaxAttempts: e.maxAttempts,
	}
	if err := e.store.EnqueueJob(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	e.logger.Info("generation job queued", "job", job.PublicID, "slug", s)
	return &RequestOutcome{JobID: job.PublicID}, nil
}
