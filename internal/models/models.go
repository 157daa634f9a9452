package models

import (
	"encoding/json"
	"time"
)

// Job lifecycle states. A job waiting out a retry backoff keeps
// StatusQueued with NextTryAt set; completed and failed are terminal.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Review schedule status. The model has no separate "mastered" status;
// mastery is tracked by PrincipleMastery.
const ScheduleStatusPending = "pending"

type Learner struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Email           string `json:"email" db:"email"`
	GenerationCount int64  `json:"generation_count" db:"generation_count"`
	Updated         int64  `json:"updated" db:"updated"`
	PasswordHash    string `json:"password_hash,omitempty" db:"password_hash"`
}

// GenerationJob is one content-generation request moving through the queue.
// PublicID is an opaque UUID handed to polling clients. Exactly one of
// result (TopicID+ResultSlug) and LastError is set once the job is
// terminal; Progress is 100 iff Status is completed.
type GenerationJob struct {
	ID          int64           `json:"-"`
	PublicID    string          `json:"id"`
	LearnerID   *int64          `json:"learner_id,omitempty"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	TopicID     *int64          `json:"topic_id,omitempty"`
	ResultSlug  string          `json:"result_slug,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
	Finished    *time.Time      `json:"finished,omitempty"`
	Payload     json.RawMessage `json:"-"`
}

// Terminal reports whether the job reached a final state.
func (j *GenerationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Topic is the durable output of a successful generation job. Slug is
// unique and serves as the idempotency key for the whole pipeline.
type Topic struct {
	ID               int64   `json:"id" db:"id"`
	Title            string  `json:"title" db:"title"`
	Slug             string  `json:"slug" db:"slug"`
	Confidence       *int    `json:"confidence,omitempty" db:"confidence"`
	ValidationReport *string `json:"validation_report,omitempty" db:"validation_report"`
	Created          int64   `json:"created" db:"created"`
}

type Principle struct {
	ID       int64  `json:"id" db:"id"`
	TopicID  int64  `json:"topic_id" db:"topic_id"`
	Position int    `json:"position" db:"position"`
	Title    string `json:"title" db:"title"`
	Body     string `json:"body" db:"body"`
}

// PrincipleMastery tracks correct/attempted per (learner, principle).
// MasteryScore is always round(TimesCorrect/TimesReviewed*100).
type PrincipleMastery struct {
	ID             int64  `json:"id" db:"id"`
	LearnerID      int64  `json:"learner_id" db:"learner_id"`
	PrincipleID    int64  `json:"principle_id" db:"principle_id"`
	TimesReviewed  int    `json:"times_reviewed" db:"times_reviewed"`
	TimesCorrect   int    `json:"times_correct" db:"times_correct"`
	MasteryScore   int    `json:"mastery_score" db:"mastery_score"`
	LastReviewedAt int64  `json:"last_reviewed_at" db:"last_reviewed_at"`
	Level          string `json:"level,omitempty" db:"-"`
}

// ReviewSchedule is the SM-2 state for a (learner, principle) pair.
// EaseFactor is fixed-point with scale x100: 250 means a 2.50 multiplier.
// It never drops below 130. IntervalDays is always >= 1.
type ReviewSchedule struct {
	ID           int64     `json:"id" db:"id"`
	LearnerID    int64     `json:"learner_id" db:"learner_id"`
	PrincipleID  int64     `json:"principle_id" db:"principle_id"`
	DueAt        time.Time `json:"due_at" db:"due_at"`
	EaseFactor   int       `json:"ease_factor" db:"ease_factor"`
	IntervalDays int       `json:"interval_days" db:"interval_days"`
	Repetitions  int       `json:"repetitions" db:"repetitions"`
	Status       string    `json:"status" db:"status"`
}

// TopicDraft is the structured content returned by the generative service
// before it is persisted as a Topic with Principles.
type TopicDraft struct {
	Title      string           `json:"title"`
	Summary    string           `json:"summary,omitempty"`
	Principles []PrincipleDraft `json:"principles"`

	// Raw keeps the original model output for auditing.
	Raw string `json:"-"`
}

type PrincipleDraft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ValidationReport is the second-stage output: a confidence score (0-100)
// plus per-principle findings. The pipeline treats this stage as
// best-effort.
type ValidationReport struct {
	Confidence int                 `json:"confidence"`
	Findings   []ValidationFinding `json:"findings,omitempty"`

	Raw string `json:"-"`
}

type ValidationFinding struct {
	Principle string `json:"principle"`
	Verdict   string `json:"verdict"`
	Note      string `json:"note,omitempty"`
}
