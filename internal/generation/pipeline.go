// Package generation drives the two-stage content pipeline: synthesize a
// topic draft, fact-check it (best-effort), persist the result, and
// credit the requester's usage. The stages are an explicit ordered list
// so the best-effort rule is structural, not a try/catch convention.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lessonforge/lessonforge/internal/jobs"
	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// ContentService is the generative collaborator contract: Generate
// synthesizes structured content for a subject, Validate fact-checks it.
type ContentService interface {
	Generate(ctx context.Context, title string) (*models.TopicDraft, error)
	Validate(ctx context.Context, title string, draft *models.TopicDraft) (*models.ValidationReport, error)
}

// ProgressReporter receives progress percentages as a job advances.
// Production writes them to the job record; tests capture them.
type ProgressReporter interface {
	Report(ctx context.Context, progress int) error
}

// Result identifies the durable content a finished job produced.
type Result struct {
	TopicID int64  `json:"topic_id"`
	Slug    string `json:"slug"`
}

// Pipeline runs one generation job end to end.
type Pipeline struct {
	engine   ContentService
	topics   repository.TopicRepo
	learners repository.LearnerRepo
	logger   *slog.Logger
}

func NewPipeline(engine ContentService, topics repository.TopicRepo, learners repository.LearnerRepo, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{engine: engine, topics: topics, learners: learners, logger: logger}
}

type runState struct {
	job    *models.GenerationJob
	draft  *models.TopicDraft
	report *models.ValidationReport
	result Result
}

// step is one named pipeline stage. A bestEffort step may fail without
// failing the job; a step with a nonzero progress mark reports it once
// the step finishes.
type step struct {
	name       string
	progress   int
	bestEffort bool
	run        func(ctx context.Context, st *runState) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{name: "generate", progress: 50, run: p.generate},
		{name: "validate", progress: 70, bestEffort: true, run: p.validate},
		{name: "persist", progress: 90, run: p.persist},
		{name: "credit usage", run: p.creditUsage},
	}
}

// Run executes the stages in order and returns the persisted content
// reference. Each marked stage reports its progress even when a
// best-effort stage failed, so pollers observe the full sequence.
func (p *Pipeline) Run(ctx context.Context, job *models.GenerationJob, reporter ProgressReporter) (Result, error) {
	st := &runState{job: job}

	if err := reporter.Report(ctx, 0); err != nil {
		p.logger.Warn("report progress", "job", job.PublicID, "err", err)
	}

	for _, s := range p.steps() {
		if err := s.run(ctx, st); err != nil {
			if !s.bestEffort {
				return Result{}, fmt.Errorf("%s: %w", s.name, err)
			}
			p.logger.Warn("best-effort step failed, continuing", "step", s.name, "job", job.PublicID, "err", err)
		}
		if s.progress > 0 {
			if err := reporter.Report(ctx, s.progress); err != nil {
				p.logger.Warn("report progress", "job", job.PublicID, "step", s.name, "err", err)
			}
		}
	}

	return st.result, nil
}

// Handler adapts the pipeline to the job queue. On success it records
// the terminal state itself: result set, progress 100, status completed.
func (p *Pipeline) Handler(store repository.JobStore) jobs.Handler {
	return func(ctx context.Context, job *models.GenerationJob) error {
		res, err := p.Run(ctx, job, &jobProgress{store: store, jobID: job.ID})
		if err != nil {
			return err
		}
		return store.CompleteJob(ctx, job.ID, res.TopicID, res.Slug)
	}
}

func (p *Pipeline) generate(ctx context.Context, st *runState) error {
	draft, err := p.engine.Generate(ctx, st.job.Title)
	if err != nil {
		return err
	}
	if len(draft.Principles) == 0 {
		return errors.New("service returned no principles")
	}
	st.draft = draft
	return nil
}

func (p *Pipeline) validate(ctx context.Context, st *runState) error {
	report, err := p.engine.Validate(ctx, st.job.Title, st.draft)
	if err != nil {
		return err
	}
	st.report = report
	return nil
}

// persist writes the topic and its principles. Losing the slug race is a
// success: the desired end state already exists, so the winning topic is
// adopted as this job's result.
func (p *Pipeline) persist(ctx context.Context, st *runState) error {
	topic := &models.Topic{Title: st.draft.Title, Slug: st.job.Slug}
	if st.report != nil {
		conf := clampConfidence(st.report.Confidence)
		topic.Confidence = &conf
		if b, err := json.Marshal(st.report); err == nil {
			s := string(b)
			topic.ValidationReport = &s
		}
	}

	principles := make([]models.Principle, len(st.draft.Principles))
	for i, d := range st.draft.Principles {
		principles[i] = models.Principle{Position: i + 1, Title: d.Title, Body: d.Body}
	}

	topicID, err := p.topics.CreateTopicWithPrinciples(ctx, topic, principles)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			existing, getErr := p.topics.GetTopicBySlug(ctx, st.job.Slug)
			if getErr != nil {
				return fmt.Errorf("load winning topic: %w", getErr)
			}
			if existing == nil {
				return fmt.Errorf("slug %q taken but topic not found", st.job.Slug)
			}
			p.logger.Info("slug race lost, adopting existing topic", "slug", st.job.Slug, "topic", existing.ID)
			st.result = Result{TopicID: existing.ID, Slug: existing.Slug}
			return nil
		}
		return err
	}

	st.result = Result{TopicID: topicID, Slug: st.job.Slug}
	return nil
}

func (p *Pipeline) creditUsage(ctx context.Context, st *runState) error {
	if st.job.LearnerID == nil {
		return nil
	}
	return p.learners.IncrementGenerationCount(ctx, *st.job.LearnerID)
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// jobProgress is the production ProgressReporter: it writes the
// percentage to the job record, where the store guarantees monotonicity.
type jobProgress struct {
	store repository.JobStore
	jobID int64
}

func (r *jobProgress) Report(ctx context.Context, progress int) error {
	return r.store.UpdateProgress(ctx, r.jobID, progress)
}
