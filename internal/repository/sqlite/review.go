package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
)

// Mastery methods

func (r *SQLiteRepo) GetMastery(ctx context.Context, learnerID, principleID int64) (*models.PrincipleMastery, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, learner_id, principle_id, times_reviewed, times_correct, mastery_score, last_reviewed_at FROM principle_mastery WHERE learner_id = ? AND principle_id = ?`, learnerID, principleID)
	var m models.PrincipleMastery
	if err := row.Scan(&m.ID, &m.LearnerID, &m.PrincipleID, &m.TimesReviewed, &m.TimesCorrect, &m.MasteryScore, &m.LastReviewedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &m, nil
}

// UpsertMastery writes the record keyed by (learner, principle).
func (r *SQLiteRepo) UpsertMastery(ctx context.Context, m *models.PrincipleMastery) error {
	if m == nil {
		return fmt.Errorf("mastery is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO principle_mastery (learner_id, principle_id, times_reviewed, times_correct, mastery_score, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(learner_id, principle_id) DO UPDATE SET
			times_reviewed = excluded.times_reviewed,
			times_correct = excluded.times_correct,
			mastery_score = excluded.mastery_score,
			last_reviewed_at = excluded.last_reviewed_at`,
		m.LearnerID, m.PrincipleID, m.TimesReviewed, m.TimesCorrect, m.MasteryScore, m.LastReviewedAt)
	return err
}

func (r *SQLiteRepo) ListMasteryByLearner(ctx context.Context, learnerID int64) ([]models.PrincipleMastery, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, learner_id, principle_id, times_reviewed, times_correct, mastery_score, last_reviewed_at FROM principle_mastery WHERE learner_id = ? ORDER BY mastery_score ASC`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PrincipleMastery
	for rows.Next() {
		var m models.PrincipleMastery
		if err := rows.Scan(&m.ID, &m.LearnerID, &m.PrincipleID, &m.TimesReviewed, &m.TimesCorrect, &m.MasteryScore, &m.LastReviewedAt); err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

// Schedule methods

func (r *SQLiteRepo) GetSchedule(ctx context.Context, id int64) (*models.ReviewSchedule, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, learner_id, principle_id, due_at, ease_factor, interval_days, repetitions, status FROM review_schedules WHERE id = ?`, id)
	return scanSchedule(row)
}

func (r *SQLiteRepo) GetScheduleByPair(ctx context.Context, learnerID, principleID int64) (*models.ReviewSchedule, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, learner_id, principle_id, due_at, ease_factor, interval_days, repetitions, status FROM review_schedules WHERE learner_id = ? AND principle_id = ?`, learnerID, principleID)
	return scanSchedule(row)
}

func (r *SQLiteRepo) UpsertSchedule(ctx context.Context, s *models.ReviewSchedule) error {
	if s == nil {
		return fmt.Errorf("schedule is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO review_schedules (learner_id, principle_id, due_at, ease_factor, interval_days, repetitions, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(learner_id, principle_id) DO UPDATE SET
			due_at = excluded.due_at,
			ease_factor = excluded.ease_factor,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			status = excluded.status`,
		s.LearnerID, s.PrincipleID, s.DueAt.UTC().Unix(), s.EaseFactor, s.IntervalDays, s.Repetitions, s.Status)
	return err
}

func (r *SQLiteRepo) ListDue(ctx context.Context, learnerID int64, at time.Time, limit int) ([]models.ReviewSchedule, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT id, learner_id, principle_id, due_at, ease_factor, interval_days, repetitions, status FROM review_schedules WHERE learner_id = ? AND due_at <= ? ORDER BY due_at ASC LIMIT ?`,
		learnerID, at.UTC().Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReviewSchedule
	for rows.Next() {
		var s models.ReviewSchedule
		var due int64
		if err := rows.Scan(&s.ID, &s.LearnerID, &s.PrincipleID, &due, &s.EaseFactor, &s.IntervalDays, &s.Repetitions, &s.Status); err != nil {
			return nil, err
		}

		s.DueAt = time.Unix(due, 0)
		out = append(out, s)
	}

	return out, rows.Err()
}

func scanSchedule(row *sql.Row) (*models.ReviewSchedule, error) {
	var s models.ReviewSchedule
	var due int64
	if err := row.Scan(&s.ID, &s.LearnerID, &s.PrincipleID, &due, &s.EaseFactor, &s.IntervalDays, &s.Repetitions, &s.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	s.DueAt = time.Unix(due, 0)
	return &s, nil
}
