package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lessonforge/lessonforge/internal/models"
)

const jobColumns = `id, public_id, learner_id, title, slug, status, progress, attempts, max_attempts, topic_id, result_slug, last_error, next_try_at, created, updated, finished`

// EnqueueJob inserts a queued job and fills in its row id.
func (r *SQLiteRepo) EnqueueJob(ctx context.Context, j *models.GenerationJob) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 3
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO generation_jobs (public_id, learner_id, title, slug, status, progress, attempts, max_attempts, created, updated) VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`,
		j.PublicID, j.LearnerID, j.Title, j.Slug, models.JobStatusQueued, j.MaxAttempts, ts, ts)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	j.ID = id
	j.Status = models.JobStatusQueued

	return nil
}

// ClaimNext atomically claims the oldest runnable job: status moves to
// running and the attempt counter is bumped in the same statement, so two
// workers can never claim the same row. Returns (nil, nil) when the queue
// is empty.
func (r *SQLiteRepo) ClaimNext(ctx context.Context) (*models.GenerationJob, error) {
	ts := now()
	q := `UPDATE generation_jobs
	      SET status = ?, attempts = attempts + 1, updated = ?
	      WHERE id = (
	          SELECT id FROM generation_jobs
	          WHERE status = ? AND (next_try_at IS NULL OR next_try_at <= ?)
	          ORDER BY created ASC LIMIT 1
	      )
	      RETURNING ` + jobColumns
	row := r.conn.QueryRow(ctx, q, models.JobStatusRunning, ts, models.JobStatusQueued, ts)

	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("claim next job: %w", err)
	}

	return j, nil
}

func (r *SQLiteRepo) GetJobByPublicID(ctx context.Context, publicID string) (*models.GenerationJob, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE public_id = ?`, publicID)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return j, nil
}

// UpdateProgress uses MAX so a stale writer can never move progress
// backward; pollers always observe a non-decreasing sequence.
func (r *SQLiteRepo) UpdateProgress(ctx context.Context, jobID int64, progress int) error {
	_, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET progress = MAX(progress, ?), updated = ? WHERE id = ?`, progress, now(), jobID)
	return err
}

// CompleteJob records the terminal success state: progress exactly 100,
// result set, error cleared.
func (r *SQLiteRepo) CompleteJob(ctx context.Context, jobID int64, topicID int64, slug string) error {
	ts := now()
	_, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET status = ?, progress = 100, topic_id = ?, result_slug = ?, last_error = NULL, updated = ?, finished = ? WHERE id = ?`,
		models.JobStatusCompleted, topicID, slug, ts, ts, jobID)
	return err
}

// FailJob records the terminal failure state. The row is retained for
// operator inspection.
func (r *SQLiteRepo) FailJob(ctx context.Context, jobID int64, lastError string) error {
	ts := now()
	_, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET status = ?, last_error = ?, updated = ?, finished = ? WHERE id = ?`,
		models.JobStatusFailed, lastError, ts, ts, jobID)
	return err
}

// RetryJob parks the job back in the queue with a backoff deadline.
func (r *SQLiteRepo) RetryJob(ctx context.Context, jobID int64, lastError string, nextTryAt time.Time) error {
	_, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET status = ?, last_error = ?, next_try_at = ?, updated = ? WHERE id = ?`,
		models.JobStatusQueued, lastError, nextTryAt.UTC().Unix(), now(), jobID)
	return err
}

// PurgeCompletedBefore deletes completed jobs older than the cutoff. Their
// effect is durably recorded as topic content, so the rows are disposable.
func (r *SQLiteRepo) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM generation_jobs WHERE status = ? AND finished IS NOT NULL AND finished < ?`,
		models.JobStatusCompleted, cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func scanJob(row *sql.Row) (*models.GenerationJob, error) {
	var (
		j          models.GenerationJob
		learnerID  sql.NullInt64
		topicID    sql.NullInt64
		resultSlug sql.NullString
		lastError  sql.NullString
		nextTry    sql.NullInt64
		created    int64
		updated    int64
		finished   sql.NullInt64
	)
	if err := row.Scan(&j.ID, &j.PublicID, &learnerID, &j.Title, &j.Slug, &j.Status, &j.Progress, &j.Attempts, &j.MaxAttempts, &topicID, &resultSlug, &lastError, &nextTry, &created, &updated, &finished); err != nil {
		return nil, err
	}

	if learnerID.Valid {
		v := learnerID.Int64
		j.LearnerID = &v
	}
	if topicID.Valid {
		v := topicID.Int64
		j.TopicID = &v
	}
	if resultSlug.Valid {
		j.ResultSlug = resultSlug.String
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0)
		j.NextTryAt = &t
	}
	j.Created = time.Unix(created, 0)
	j.Updated = time.Unix(updated, 0)
	if finished.Valid {
		t := time.Unix(finished.Int64, 0)
		j.Finished = &t
	}

	return &j, nil
}
