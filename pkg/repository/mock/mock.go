// Package mock provides in-memory repository fakes for tests, so the
// queue, pipeline, and handlers can run without a live database.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

type Mocks struct {
	Learners  *LearnerRepo
	Topics    *TopicRepo
	Jobs      *JobStore
	Mastery   *MasteryRepo
	Schedules *ScheduleRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Learners:  &LearnerRepo{byID: map[int64]*models.Learner{}},
		Topics:    &TopicRepo{bySlug: map[int64]*models.Topic{}},
		Jobs:      &JobStore{},
		Mastery:   &MasteryRepo{},
		Schedules: &ScheduleRepo{},
	}
}

// LearnerRepo

type LearnerRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Learner

	CreateErr error
}

var _ repository.LearnerRepo = (*LearnerRepo)(nil)

func (m *LearnerRepo) CreateLearner(ctx context.Context, l *models.Learner) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *l
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *LearnerRepo) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *LearnerRepo) GetByEmail(ctx context.Context, email string) (*models.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.byID {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *LearnerRepo) IncrementGenerationCount(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.byID[id]; ok {
		l.GenerationCount++
	}
	return nil
}

// TopicRepo

type TopicRepo struct {
	mu         sync.Mutex
	nextID     int64
	bySlug     map[int64]*models.Topic
	principles map[int64][]models.Principle

	CreateErr error
}

var _ repository.TopicRepo = (*TopicRepo)(nil)

func (m *TopicRepo) CreateTopicWithPrinciples(ctx context.Context, t *models.Topic, principles []models.Principle) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bySlug {
		if existing.Slug == t.Slug {
			return 0, repository.ErrDuplicateSlug
		}
	}
	m.nextID++
	cp := *t
	cp.ID = m.nextID
	m.bySlug[cp.ID] = &cp
	if m.principles == nil {
		m.principles = map[int64][]models.Principle{}
	}
	ps := make([]models.Principle, len(principles))
	for i, p := range principles {
		p.ID = int64(i + 1)
		p.TopicID = cp.ID
		p.Position = i + 1
		ps[i] = p
	}
	m.principles[cp.ID] = ps
	return cp.ID, nil
}

func (m *TopicRepo) GetTopicBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.bySlug {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *TopicRepo) ListPrinciples(ctx context.Context, topicID int64) ([]models.Principle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Principle(nil), m.principles[topicID]...), nil
}

// JobStore

type JobStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   []*models.GenerationJob

	EnqueueErr error
}

var _ repository.JobStore = (*JobStore)(nil)

func (m *JobStore) EnqueueJob(ctx context.Context, j *models.GenerationJob) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	j.ID = m.nextID
	j.Status = models.JobStatusQueued
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 3
	}
	j.Created = time.Now()
	cp := *j
	m.jobs = append(m.jobs, &cp)
	return nil
}

func (m *JobStore) ClaimNext(ctx context.Context) (*models.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, j := range m.jobs {
		if j.Status != models.JobStatusQueued {
			continue
		}
		if j.NextTryAt != nil && j.NextTryAt.After(now) {
			continue
		}
		j.Status = models.JobStatusRunning
		j.Attempts++
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (m *JobStore) GetJobByPublicID(ctx context.Context, publicID string) (*models.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.find(publicID); j != nil {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (m *JobStore) UpdateProgress(ctx context.Context, jobID int64, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.findID(jobID); j != nil && progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

func (m *JobStore) CompleteJob(ctx context.Context, jobID int64, topicID int64, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.findID(jobID); j != nil {
		now := time.Now()
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.TopicID = &topicID
		j.ResultSlug = slug
		j.LastError = ""
		j.Finished = &now
	}
	return nil
}

func (m *JobStore) FailJob(ctx context.Context, jobID int64, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.findID(jobID); j != nil {
		now := time.Now()
		j.Status = models.JobStatusFailed
		j.LastError = lastError
		j.Finished = &now
	}
	return nil
}

func (m *JobStore) RetryJob(ctx context.Context, jobID int64, lastError string, nextTryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.findID(jobID); j != nil {
		j.Status = models.JobStatusQueued
		j.LastError = lastError
		t := nextTryAt
		j.NextTryAt = &t
	}
	return nil
}

func (m *JobStore) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*models.GenerationJob
	var n int64
	for _, j := range m.jobs {
		if j.Status == models.JobStatusCompleted && j.Finished != nil && j.Finished.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, j)
	}
	m.jobs = kept
	return n, nil
}

func (m *JobStore) find(publicID string) *models.GenerationJob {
	for _, j := range m.jobs {
		if j.PublicID == publicID {
			return j
		}
	}
	return nil
}

func (m *JobStore) findID(id int64) *models.GenerationJob {
	for _, j := range m.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// MasteryRepo

type MasteryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.PrincipleMastery
}

var _ repository.MasteryRepo = (*MasteryRepo)(nil)

func (m *MasteryRepo) GetMastery(ctx context.Context, learnerID, principleID int64) (*models.PrincipleMastery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.LearnerID == learnerID && rec.PrincipleID == principleID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MasteryRepo) UpsertMastery(ctx context.Context, rec *models.PrincipleMastery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.LearnerID == rec.LearnerID && existing.PrincipleID == rec.PrincipleID {
			id := existing.ID
			*existing = *rec
			existing.ID = id
			return nil
		}
	}
	m.nextID++
	cp := *rec
	cp.ID = m.nextID
	m.records = append(m.records, &cp)
	return nil
}

func (m *MasteryRepo) ListMasteryByLearner(ctx context.Context, learnerID int64) ([]models.PrincipleMastery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PrincipleMastery
	for _, rec := range m.records {
		if rec.LearnerID == learnerID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// ScheduleRepo

type ScheduleRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.ReviewSchedule
}

var _ repository.ScheduleRepo = (*ScheduleRepo)(nil)

func (m *ScheduleRepo) GetSchedule(ctx context.Context, id int64) (*models.ReviewSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.records {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *ScheduleRepo) GetScheduleByPair(ctx context.Context, learnerID, principleID int64) (*models.ReviewSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.records {
		if s.LearnerID == learnerID && s.PrincipleID == principleID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *ScheduleRepo) UpsertSchedule(ctx context.Context, s *models.ReviewSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.LearnerID == s.LearnerID && existing.PrincipleID == s.PrincipleID {
			id := existing.ID
			*existing = *s
			existing.ID = id
			s.ID = id
			return nil
		}
	}
	m.nextID++
	cp := *s
	cp.ID = m.nextID
	s.ID = cp.ID
	m.records = append(m.records, &cp)
	return nil
}

func (m *ScheduleRepo) ListDue(ctx context.Context, learnerID int64, at time.Time, limit int) ([]models.ReviewSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewSchedule
	for _, s := range m.records {
		if s.LearnerID == learnerID && !s.DueAt.After(at) {
			out = append(out, *s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
