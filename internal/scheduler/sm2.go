// Package scheduler implements the SM-2 spaced-repetition algorithm over
// review schedule records. All functions are pure; persistence is the
// caller's responsibility.
package scheduler

import (
	"errors"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
)

// ErrInvalidQuality is returned when a grade is outside 0..5.
var ErrInvalidQuality = errors.New("quality must be an integer between 0 and 5")

const (
	// EaseFactor values are fixed-point with scale x100 (250 = x2.50),
	// so integer arithmetic keeps scheduling deterministic.
	DefaultEaseFactor = 250
	MinEaseFactor     = 130

	// PassThreshold is the lowest quality counting as successful recall.
	PassThreshold = 3
)

// Grade applies one quality grade (0..5) to a schedule record and returns
// the next record. Failed recall (quality < 3) restarts the forgetting
// curve: repetitions and interval reset, ease factor is left untouched.
// Successful recall grows the interval through the fixed 1 and 6 day
// steps, then multiplies by the ease factor; the ease adjustment kicks in
// once the multiplicative phase starts, computed from the pre-update ease
// and floored at MinEaseFactor.
func Grade(rec models.ReviewSchedule, quality int, now time.Time) (models.ReviewSchedule, error) {
	if quality < 0 || quality > 5 {
		return rec, ErrInvalidQuality
	}

	next := rec

	if quality < PassThreshold {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			ef := easeOrDefault(rec.EaseFactor)
			// round(interval * ease/100) in integer arithmetic
			next.IntervalDays = (rec.IntervalDays*ef + 50) / 100

			// rewards quality 5 the most, penalizes a hesitant 3
			q := 5 - quality
			ef += 10 - q*(8+q*2)
			if ef < MinEaseFactor {
				ef = MinEaseFactor
			}
			next.EaseFactor = ef
		}
	}

	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	next.Status = models.ScheduleStatusPending

	return next, nil
}

// Bootstrap creates the schedule for a concept's very first graded
// interaction: due tomorrow, default ease, one repetition already counted.
func Bootstrap(learnerID, principleID int64, now time.Time) models.ReviewSchedule {
	return models.ReviewSchedule{
		LearnerID:    learnerID,
		PrincipleID:  principleID,
		DueAt:        now.AddDate(0, 0, 1),
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 1,
		Repetitions:  1,
		Status:       models.ScheduleStatusPending,
	}
}

func easeOrDefault(ef int) int {
	if ef == 0 {
		return DefaultEaseFactor
	}
	return ef
}
