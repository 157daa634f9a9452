package mastery_test

import (
	"context"
	"testing"

	"github.com/lessonforge/lessonforge/internal/mastery"
	"github.com/lessonforge/lessonforge/pkg/repository/mock"
)

func TestScore(t *testing.T) {
	cases := []struct {
		correct, reviewed, want int
	}{
		{0, 0, 0},
		{0, 1, 0},
		{1, 1, 100},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{5, 6, 83},
		{1, 6, 17},
	}
	for _, c := range cases {
		if got := mastery.Score(c.correct, c.reviewed); got != c.want {
			t.Errorf("Score(%d, %d) = %d, want %d", c.correct, c.reviewed, got, c.want)
		}
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, mastery.LevelWeak},
		{59, mastery.LevelWeak},
		{60, mastery.LevelLearning},
		{79, mastery.LevelLearning},
		{80, mastery.LevelMastered},
		{100, mastery.LevelMastered},
	}
	for _, c := range cases {
		if got := mastery.Level(c.score); got != c.want {
			t.Errorf("Level(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestRecordOutcome(t *testing.T) {
	ctx := context.Background()
	mocks := mock.NewMocks()
	agg := mastery.New(mocks.Mastery)

	// first contact creates the record
	rec, err := agg.RecordOutcome(ctx, 1, 7, true)
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if rec.TimesReviewed != 1 || rec.TimesCorrect != 1 || rec.MasteryScore != 100 {
		t.Fatalf("unexpected first record: %+v", rec)
	}
	if rec.LastReviewedAt == 0 {
		t.Fatalf("LastReviewedAt not stamped")
	}
	if rec.Level != mastery.LevelMastered {
		t.Fatalf("level %q, want mastered", rec.Level)
	}

	// wrong answer halves the ratio
	rec, err = agg.RecordOutcome(ctx, 1, 7, false)
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if rec.TimesReviewed != 2 || rec.TimesCorrect != 1 || rec.MasteryScore != 50 {
		t.Fatalf("unexpected second record: %+v", rec)
	}
	if rec.Level != mastery.LevelWeak {
		t.Fatalf("level %q, want weak", rec.Level)
	}

	// score stays bounded and correct <= reviewed over a long run
	for i := 0; i < 50; i++ {
		rec, err = agg.RecordOutcome(ctx, 1, 7, i%3 == 0)
		if err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
		if rec.MasteryScore < 0 || rec.MasteryScore > 100 {
			t.Fatalf("score out of bounds: %d", rec.MasteryScore)
		}
		if rec.TimesCorrect > rec.TimesReviewed {
			t.Fatalf("correct %d > reviewed %d", rec.TimesCorrect, rec.TimesReviewed)
		}
	}

	// other pairs are independent
	other, err := agg.RecordOutcome(ctx, 2, 7, true)
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if other.TimesReviewed != 1 {
		t.Fatalf("records not keyed by learner: %+v", other)
	}
}
