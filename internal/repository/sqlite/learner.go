package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lessonforge/lessonforge/internal/models"
)

func (r *SQLiteRepo) CreateLearner(ctx context.Context, l *models.Learner) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("learner is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO learners (name, email, password_hash, updated) VALUES (?, ?, ?, ?)`, l.Name, l.Email, l.PasswordHash, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	return r.scanLearner(ctx, `SELECT id, name, email, generation_count, updated, password_hash FROM learners WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetByEmail(ctx context.Context, email string) (*models.Learner, error) {
	return r.scanLearner(ctx, `SELECT id, name, email, generation_count, updated, password_hash FROM learners WHERE email = ?`, email)
}

func (r *SQLiteRepo) scanLearner(ctx context.Context, query string, arg any) (*models.Learner, error) {
	row := r.conn.QueryRow(ctx, query, arg)
	var l models.Learner
	var pw sql.NullString
	if err := row.Scan(&l.ID, &l.Name, &l.Email, &l.GenerationCount, &l.Updated, &pw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if pw.Valid {
		l.PasswordHash = pw.String
	}

	return &l, nil
}

// IncrementGenerationCount is a single-statement atomic increment so
// concurrent job completions for the same learner never lose counts.
func (r *SQLiteRepo) IncrementGenerationCount(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE learners SET generation_count = generation_count + 1, updated = ? WHERE id = ?`, now(), id)
	return err
}
