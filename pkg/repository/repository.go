package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// ErrDuplicateSlug is returned when a topic insert loses the race on the
// unique slug constraint. Callers treat this as "the content already
// exists", not as a failure.
var ErrDuplicateSlug = errors.New("topic slug already exists")

type LearnerRepo interface {
	CreateLearner(ctx context.Context, l *models.Learner) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Learner, error)
	GetByEmail(ctx context.Context, email string) (*models.Learner, error)
	// IncrementGenerationCount bumps the usage counter atomically at the
	// persistence layer; concurrent completions must not lose increments.
	IncrementGenerationCount(ctx context.Context, id int64) error
}

type TopicRepo interface {
	// CreateTopicWithPrinciples inserts the topic row and its principle
	// rows as one transaction. Returns ErrDuplicateSlug if the slug is
	// already taken.
	CreateTopicWithPrinciples(ctx context.Context, t *models.Topic, principles []models.Principle) (int64, error)
	GetTopicBySlug(ctx context.Context, slug string) (*models.Topic, error)
	ListPrinciples(ctx context.Context, topicID int64) ([]models.Principle, error)
}

// JobStore is the durable queue contract. ClaimNext must be safe under
// concurrent workers: no two callers may receive the same job.
type JobStore interface {
	EnqueueJob(ctx context.Context, j *models.GenerationJob) error
	ClaimNext(ctx context.Context) (*models.GenerationJob, error)
	GetJobByPublicID(ctx context.Context, publicID string) (*models.GenerationJob, error)
	// UpdateProgress never moves progress backward.
	UpdateProgress(ctx context.Context, jobID int64, progress int) error
	CompleteJob(ctx context.Context, jobID int64, topicID int64, slug string) error
	FailJob(ctx context.Context, jobID int64, lastError string) error
	RetryJob(ctx context.Context, jobID int64, lastError string, nextTryAt time.Time) error
	// PurgeCompletedBefore removes completed jobs older than the cutoff.
	// Failed jobs are retained for inspection.
	PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type MasteryRepo interface {
	GetMastery(ctx context.Context, learnerID, principleID int64) (*models.PrincipleMastery, error)
	UpsertMastery(ctx context.Context, m *models.PrincipleMastery) error
	ListMasteryByLearner(ctx context.Context, learnerID int64) ([]models.PrincipleMastery, error)
}

type ScheduleRepo interface {
	GetSchedule(ctx context.Context, id int64) (*models.ReviewSchedule, error)
	GetScheduleByPair(ctx context.Context, learnerID, principleID int64) (*models.ReviewSchedule, error)
	UpsertSchedule(ctx context.Context, s *models.ReviewSchedule) error
	ListDue(ctx context.Context, learnerID int64, now time.Time, limit int) ([]models.ReviewSchedule, error)
}
