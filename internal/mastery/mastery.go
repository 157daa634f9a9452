// Package mastery derives per-learner, per-principle mastery scores from
// graded interactions (quiz answers and scheduled reviews).
package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// Analytics thresholds: a principle is "weak" below 60 and "mastered" at
// or above 80. The scheduler does not consume these.
const (
	WeakThreshold     = 60
	MasteredThreshold = 80
)

const (
	LevelWeak     = "weak"
	LevelLearning = "learning"
	LevelMastered = "mastered"
)

// Level maps a mastery score to its analytics label.
func Level(score int) string {
	switch {
	case score >= MasteredThreshold:
		return LevelMastered
	case score < WeakThreshold:
		return LevelWeak
	default:
		return LevelLearning
	}
}

// Score computes round(correct/reviewed*100). Zero reviews score zero.
func Score(correct, reviewed int) int {
	if reviewed <= 0 {
		return 0
	}
	return (correct*100 + reviewed/2) / reviewed
}

// Aggregator updates mastery records on every graded interaction.
type Aggregator struct {
	repo repository.MasteryRepo

	// nowFn is swappable for tests
	nowFn func() time.Time
}

func New(repo repository.MasteryRepo) *Aggregator {
	return &Aggregator{repo: repo, nowFn: time.Now}
}

// RecordOutcome increments the review counters for one graded interaction
// and recomputes the score. The record is created on first contact with a
// principle and updated in place afterwards.
func (a *Aggregator) RecordOutcome(ctx context.Context, learnerID, principleID int64, correct bool) (*models.PrincipleMastery, error) {
	rec, err := a.repo.GetMastery(ctx, learnerID, principleID)
	if err != nil {
		return nil, fmt.Errorf("load mastery: %w", err)
	}
	if rec == nil {
		rec = &models.PrincipleMastery{LearnerID: learnerID, PrincipleID: principleID}
	}

	rec.TimesReviewed++
	if correct {
		rec.TimesCorrect++
	}
	rec.MasteryScore = Score(rec.TimesCorrect, rec.TimesReviewed)
	rec.LastReviewedAt = a.nowFn().UTC().Unix()

	if err := a.repo.UpsertMastery(ctx, rec); err != nil {
		return nil, fmt.Errorf("store mastery: %w", err)
	}

	rec.Level = Level(rec.MasteryScore)
	return rec, nil
}
