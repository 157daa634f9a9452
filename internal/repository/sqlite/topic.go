package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// CreateTopicWithPrinciples inserts the topic row and its principles in one
// transaction. The unique slug index is the idempotency backstop: a
// conflict is reported as repository.ErrDuplicateSlug so callers can adopt
// the existing topic instead of failing.
func (r *SQLiteRepo) CreateTopicWithPrinciples(ctx context.Context, t *models.Topic, principles []models.Principle) (int64, error) {
	if t == nil {
		return 0, fmt.Errorf("topic is nil")
	}

	tx, err := r.conn.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO topics (title, slug, confidence, validation_report, created) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Slug, t.Confidence, t.ValidationReport, now())
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicateSlug
		}
		return 0, fmt.Errorf("insert topic: %w", err)
	}

	topicID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for i, p := range principles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO principles (topic_id, position, title, body) VALUES (?, ?, ?, ?)`,
			topicID, i+1, p.Title, p.Body); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert principle %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return topicID, nil
}

func (r *SQLiteRepo) GetTopicBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, title, slug, confidence, validation_report, created FROM topics WHERE slug = ?`, slug)
	var t models.Topic
	var confidence sql.NullInt64
	var report sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &t.Slug, &confidence, &report, &t.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if confidence.Valid {
		v := int(confidence.Int64)
		t.Confidence = &v
	}
	if report.Valid {
		t.ValidationReport = &report.String
	}

	return &t, nil
}

func (r *SQLiteRepo) ListPrinciples(ctx context.Context, topicID int64) ([]models.Principle, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, topic_id, position, title, body FROM principles WHERE topic_id = ? ORDER BY position ASC`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Principle
	for rows.Next() {
		var p models.Principle
		if err := rows.Scan(&p.ID, &p.TopicID, &p.Position, &p.Title, &p.Body); err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}
