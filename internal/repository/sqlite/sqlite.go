package sqlite

import (
	"strings"
	"time"

	"log/slog"

	"github.com/lessonforge/lessonforge/internal/db"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

// SQLiteRepo implements the repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.LearnerRepo = (*SQLiteRepo)(nil)
var _ repository.TopicRepo = (*SQLiteRepo)(nil)
var _ repository.JobStore = (*SQLiteRepo)(nil)
var _ repository.MasteryRepo = (*SQLiteRepo)(nil)
var _ repository.ScheduleRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().Unix()
}

// isUniqueViolation recognizes sqlite unique-constraint failures. The
// modernc driver surfaces them as plain errors, so match on the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
