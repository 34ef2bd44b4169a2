package repository

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var applicationRowColumns = []string{"id", "full_name", "email", "phone_number", "specialization", "years_of_experience",
	"linkedin_url", "bio", "current_position", "company", "status", "test_attempts", "final_score", "retry_allowed_at",
	"cooldown_notified", "user_id", "created_at", "updated_at"}

func applicationRows(id string, status models.ApplicationStatus, attempts int, retry *time.Time) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var retryValue interface{}
	if retry != nil {
		retryValue = *retry
	}
	return sqlmock.NewRows(applicationRowColumns).
		AddRow(id, "Ada Lovelace", "ada@example.com", nil, "Software Engineering", 7, nil, "bio", nil, nil,
			string(status), attempts, nil, retryValue, false, nil, now, now)
}

var sessionRowColumns = []string{"id", "application_id", "token_id", "question_ids", "time_limit_minutes", "started_at",
	"must_submit_by", "status", "completed_at", "total_questions", "correct_answers", "score", "passed"}
