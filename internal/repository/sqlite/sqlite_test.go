package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	migrations "github.com/lessonforge/lessonforge/db"
	"github.com/lessonforge/lessonforge/internal/db"
	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/internal/repository/sqlite"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

var memCounter int

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	// distinct shared-cache name per test so parallel tests don't collide
	memCounter++
	dsn := fmt.Sprintf("file:repo%d?mode=memory&cache=shared", memCounter)
	d, err := db.New(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.Migrate(ctx, d, migrations.Migrations); err != nil {
		d.Close()
		t.Fatalf("migrate: %v", err)
	}

	return sqlite.New(d, nil), func() { d.Close() }
}

func TestLearnerCRUDAndCounter(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	id, err := repo.CreateLearner(ctx, &models.Learner{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateLearner: %v", err)
	}

	l, err := repo.GetByEmail(ctx, "ada@example.com")
	if err != nil || l == nil {
		t.Fatalf("GetByEmail: %v, %v", l, err)
	}
	if l.ID != id || l.GenerationCount != 0 {
		t.Fatalf("unexpected learner: %+v", l)
	}

	// concurrent increments must not lose counts
	var wg sync.WaitGroup
	const n = 20
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.IncrementGenerationCount(ctx, id); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	l, err = repo.GetByID(ctx, id)
	if err != nil || l == nil {
		t.Fatalf("GetByID: %v, %v", l, err)
	}
	if l.GenerationCount != n {
		t.Fatalf("expected generation_count %d, got %d", n, l.GenerationCount)
	}
}

func TestTopicUniqueSlug(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	principles := []models.Principle{{Title: "First"}, {Title: "Second"}}
	id, err := repo.CreateTopicWithPrinciples(ctx, &models.Topic{Title: "Logic", Slug: "logic"}, principles)
	if err != nil {
		t.Fatalf("CreateTopicWithPrinciples: %v", err)
	}

	if _, err := repo.CreateTopicWithPrinciples(ctx, &models.Topic{Title: "Logic again", Slug: "logic"}, nil); err != repository.ErrDuplicateSlug {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	got, err := repo.GetTopicBySlug(ctx, "logic")
	if err != nil || got == nil {
		t.Fatalf("GetTopicBySlug: %v, %v", got, err)
	}
	if got.ID != id {
		t.Fatalf("expected topic id %d, got %d", id, got.ID)
	}

	ps, err := repo.ListPrinciples(ctx, id)
	if err != nil {
		t.Fatalf("ListPrinciples: %v", err)
	}
	if len(ps) != 2 || ps[0].Position != 1 || ps[1].Position != 2 {
		t.Fatalf("unexpected principles: %+v", ps)
	}
}

func TestJobClaimLifecycle(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	j := &models.GenerationJob{PublicID: "job-1", Title: "Logic", Slug: "logic", MaxAttempts: 3}
	if err := repo.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := repo.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil || claimed.PublicID != "job-1" {
		t.Fatalf("expected claimed job, got %+v", claimed)
	}
	if claimed.Status != models.JobStatusRunning || claimed.Attempts != 1 {
		t.Fatalf("claim must set running/attempts=1, got %q/%d", claimed.Status, claimed.Attempts)
	}

	// queue is now empty: running jobs are not claimable
	again, err := repo.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if again != nil {
		t.Fatalf("running job was claimed twice: %+v", again)
	}

	// progress never moves backward
	for _, p := range []int{50, 70, 30, 90} {
		if err := repo.UpdateProgress(ctx, claimed.ID, p); err != nil {
			t.Fatalf("UpdateProgress(%d): %v", p, err)
		}
	}
	got, err := repo.GetJobByPublicID(ctx, "job-1")
	if err != nil || got == nil {
		t.Fatalf("GetJobByPublicID: %v, %v", got, err)
	}
	if got.Progress != 90 {
		t.Fatalf("expected progress 90, got %d", got.Progress)
	}

	if err := repo.CompleteJob(ctx, claimed.ID, 7, "logic"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	got, _ = repo.GetJobByPublicID(ctx, "job-1")
	if got.Status != models.JobStatusCompleted || got.Progress != 100 {
		t.Fatalf("expected completed/100, got %q/%d", got.Status, got.Progress)
	}
	if got.TopicID == nil || *got.TopicID != 7 || got.ResultSlug != "logic" {
		t.Fatalf("result not recorded: %+v", got)
	}
	if got.LastError != "" {
		t.Fatalf("completed job must not carry an error, got %q", got.LastError)
	}
	if got.Finished == nil {
		t.Fatalf("completed job must have finished timestamp")
	}
}

func TestJobRetryAndFail(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	j := &models.GenerationJob{PublicID: "job-2", Title: "Sets", Slug: "sets"}
	if err := repo.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, _ := repo.ClaimNext(ctx)
	if claimed == nil {
		t.Fatalf("expected claim")
	}

	// retry parked in the future is not claimable yet
	if err := repo.RetryJob(ctx, claimed.ID, "boom", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if c, _ := repo.ClaimNext(ctx); c != nil {
		t.Fatalf("job with future next_try_at was claimed: %+v", c)
	}

	// retry due now is claimable and keeps the attempt count
	if err := repo.RetryJob(ctx, claimed.ID, "boom", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	claimed2, _ := repo.ClaimNext(ctx)
	if claimed2 == nil || claimed2.Attempts != 2 {
		t.Fatalf("expected second attempt, got %+v", claimed2)
	}

	if err := repo.FailJob(ctx, claimed2.ID, "exhausted"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	got, _ := repo.GetJobByPublicID(ctx, "job-2")
	if got.Status != models.JobStatusFailed || got.LastError != "exhausted" {
		t.Fatalf("expected terminal failed with error retained, got %+v", got)
	}

	// failed jobs survive the completed-job purge
	n, err := repo.PurgeCompletedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeCompletedBefore: %v", err)
	}
	if n != 0 {
		t.Fatalf("purge removed %d rows, expected 0", n)
	}
	if got, _ = repo.GetJobByPublicID(ctx, "job-2"); got == nil {
		t.Fatalf("failed job was purged")
	}
}

func TestPurgeCompleted(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	j := &models.GenerationJob{PublicID: "job-3", Title: "Graphs", Slug: "graphs"}
	if err := repo.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	claimed, _ := repo.ClaimNext(ctx)
	if err := repo.CompleteJob(ctx, claimed.ID, 1, "graphs"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	n, err := repo.PurgeCompletedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeCompletedBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if got, _ := repo.GetJobByPublicID(ctx, "job-3"); got != nil {
		t.Fatalf("completed job still present after purge")
	}
}

func TestMasteryUpsert(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	m := &models.PrincipleMastery{LearnerID: 1, PrincipleID: 2, TimesReviewed: 1, TimesCorrect: 1, MasteryScore: 100, LastReviewedAt: 1000}
	if err := repo.UpsertMastery(ctx, m); err != nil {
		t.Fatalf("UpsertMastery: %v", err)
	}

	m.TimesReviewed = 2
	m.MasteryScore = 50
	if err := repo.UpsertMastery(ctx, m); err != nil {
		t.Fatalf("UpsertMastery update: %v", err)
	}

	got, err := repo.GetMastery(ctx, 1, 2)
	if err != nil || got == nil {
		t.Fatalf("GetMastery: %v, %v", got, err)
	}
	if got.TimesReviewed != 2 || got.MasteryScore != 50 {
		t.Fatalf("upsert did not replace values: %+v", got)
	}

	list, err := repo.ListMasteryByLearner(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListMasteryByLearner: %v, %v", list, err)
	}
}

func TestScheduleUpsertAndListDue(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()
	nowT := time.Now()

	due := &models.ReviewSchedule{LearnerID: 1, PrincipleID: 1, DueAt: nowT.Add(-time.Hour), EaseFactor: 250, IntervalDays: 1, Repetitions: 1, Status: models.ScheduleStatusPending}
	future := &models.ReviewSchedule{LearnerID: 1, PrincipleID: 2, DueAt: nowT.Add(48 * time.Hour), EaseFactor: 250, IntervalDays: 6, Repetitions: 2, Status: models.ScheduleStatusPending}
	for _, s := range []*models.ReviewSchedule{due, future} {
		if err := repo.UpsertSchedule(ctx, s); err != nil {
			t.Fatalf("UpsertSchedule: %v", err)
		}
	}

	dueList, err := repo.ListDue(ctx, 1, nowT, 10)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(dueList) != 1 || dueList[0].PrincipleID != 1 {
		t.Fatalf("expected only principle 1 due, got %+v", dueList)
	}

	// upsert by pair replaces the row
	due.IntervalDays = 6
	due.Repetitions = 2
	if err := repo.UpsertSchedule(ctx, due); err != nil {
		t.Fatalf("UpsertSchedule update: %v", err)
	}
	got, err := repo.GetScheduleByPair(ctx, 1, 1)
	if err != nil || got == nil {
		t.Fatalf("GetScheduleByPair: %v, %v", got, err)
	}
	if got.IntervalDays != 6 || got.Repetitions != 2 {
		t.Fatalf("upsert did not replace schedule: %+v", got)
	}

	byID, err := repo.GetSchedule(ctx, got.ID)
	if err != nil || byID == nil || byID.PrincipleID != 1 {
		t.Fatalf("GetSchedule: %+v, %v", byID, err)
	}
}
