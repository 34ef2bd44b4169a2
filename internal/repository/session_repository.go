package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/pkg/database"
)

// ErrSessionFinalized reports that the finalize guard found the session no longer ACTIVE.
var ErrSessionFinalized = errors.New("session already finalized")

const sessionColumns = `s.id, s.application_id, s.token_id, s.question_ids, s.time_limit_minutes, s.started_at,
       s.must_submit_by, s.status, s.completed_at, s.total_questions, s.correct_answers, s.score, s.passed`

// SessionRepository persists test sessions and submissions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// QuestionPicker chooses the question ids for an application inside the start transaction.
type QuestionPicker func(ctx context.Context, app *models.MentorApplication) ([]int64, error)

// StartSessionParams describes a session start.
type StartSessionParams struct {
	TokenHash string
	Now       time.Time
	TimeLimit time.Duration
	Pick      QuestionPicker
}

// StartSession consumes the token, picks questions, inserts the session and
// moves the application to TEST_IN_PROGRESS in one transaction. Any failure
// rolls back all of it, leaving the token unconsumed.
func (r *SessionRepository) StartSession(ctx context.Context, params StartSessionParams) (*models.TestSession, *models.MentorApplication, error) {
	var (
		session models.TestSession
		app     *models.MentorApplication
	)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		token, err := consumeToken(ctx, tx, params.TokenHash, params.Now)
		if err != nil {
			return err
		}
		app, err = lockApplication(ctx, tx, token.ApplicationID)
		if err != nil {
			return err
		}
		ids, err := params.Pick(ctx, app)
		if err != nil {
			return err
		}

		session = models.TestSession{
			ID:               uuid.NewString(),
			ApplicationID:    app.ID,
			TokenID:          token.ID,
			QuestionIDs:      pq.Int64Array(ids),
			TimeLimitMinutes: int(params.TimeLimit / time.Minute),
			StartedAt:        params.Now,
			MustSubmitBy:     params.Now.Add(params.TimeLimit),
			Status:           models.SessionStatusActive,
			TotalQuestions:   len(ids),
		}
		const insert = `INSERT INTO test_sessions
		(id, application_id, token_id, question_ids, time_limit_minutes, started_at, must_submit_by, status, total_questions)
		VALUES (:id, :application_id, :token_id, :question_ids, :time_limit_minutes, :started_at, :must_submit_by, :status, :total_questions)`
		if _, err := tx.NamedExecContext(ctx, insert, &session); err != nil {
			return fmt.Errorf("insert test session: %w", err)
		}

		const update = `UPDATE mentor_applications SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
		result, err := tx.ExecContext(ctx, update, app.ID, models.ApplicationStatusTestInProgress, params.Now, models.ApplicationStatusTestIssued)
		if err != nil {
			return fmt.Errorf("mark application test in progress: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check application update rows: %w", err)
		}
		if rows == 0 {
			return ErrStatusMismatch
		}
		if err := insertEvent(ctx, tx, models.ApplicationEvent{
			ApplicationID: app.ID,
			FromStatus:    models.ApplicationStatusTestIssued,
			ToStatus:      models.ApplicationStatusTestInProgress,
			Reason:        "test started",
			CreatedAt:     params.Now,
		}); err != nil {
			return err
		}
		app.Status = models.ApplicationStatusTestInProgress
		app.UpdatedAt = params.Now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &session, app, nil
}

// GetByID fetches a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM test_sessions s WHERE s.id = $1`
	var session models.TestSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByTokenHash resolves the session started with the given token.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.TestSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM test_sessions s
	JOIN test_tokens t ON t.id = s.token_id WHERE t.token_hash = $1`
	var session models.TestSession
	if err := r.db.GetContext(ctx, &session, query, tokenHash); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByApplication returns all sessions of an application, newest first.
func (r *SessionRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.TestSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM test_sessions s WHERE s.application_id = $1 ORDER BY s.started_at DESC`
	var sessions []models.TestSession
	if err := r.db.SelectContext(ctx, &sessions, query, applicationID); err != nil {
		return nil, fmt.Errorf("list test sessions: %w", err)
	}
	return sessions, nil
}

// ListOverdue returns ACTIVE sessions whose deadline passed, oldest first.
func (r *SessionRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.TestSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + sessionColumns + ` FROM test_sessions s
	WHERE s.status = $1 AND s.must_submit_by < $2 ORDER BY s.must_submit_by ASC LIMIT $3`
	var sessions []models.TestSession
	if err := r.db.SelectContext(ctx, &sessions, query, models.SessionStatusActive, now, limit); err != nil {
		return nil, fmt.Errorf("list overdue sessions: %w", err)
	}
	return sessions, nil
}

// GetSubmission returns the stored answers for a session.
func (r *SessionRepository) GetSubmission(ctx context.Context, sessionID string) (*models.Submission, error) {
	const query = `SELECT id, session_id, answers, submitted_at FROM test_submissions WHERE session_id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, sessionID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetResult returns the result recorded when the session was finalized. The
// application outcome is read from the session row so later changes to the
// application do not alter a replayed result.
func (r *SessionRepository) GetResult(ctx context.Context, sessionID string) (*models.SessionResult, error) {
	const query = `SELECT id, status, total_questions, COALESCE(correct_answers, 0) AS correct_answers,
       COALESCE(score, 0) AS score, COALESCE(passed, FALSE) AS passed, completed_at,
       COALESCE(outcome_status, '') AS application_status, COALESCE(outcome_attempts, 0) AS test_attempts,
       outcome_retry_allowed_at AS retry_allowed_at
	FROM test_sessions
	WHERE id = $1 AND status <> $2`
	var row struct {
		ID                string                   `db:"id"`
		Status            models.SessionStatus     `db:"status"`
		TotalQuestions    int                      `db:"total_questions"`
		CorrectAnswers    int                      `db:"correct_answers"`
		Score             float64                  `db:"score"`
		Passed            bool                     `db:"passed"`
		CompletedAt       *time.Time               `db:"completed_at"`
		ApplicationStatus models.ApplicationStatus `db:"application_status"`
		TestAttempts      int                      `db:"test_attempts"`
		RetryAllowedAt    *time.Time               `db:"retry_allowed_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, sessionID, models.SessionStatusActive); err != nil {
		return nil, err
	}
	result := &models.SessionResult{
		SessionID:         row.ID,
		SessionStatus:     row.Status,
		TotalQuestions:    row.TotalQuestions,
		CorrectAnswers:    row.CorrectAnswers,
		Score:             row.Score,
		Passed:            row.Passed,
		ApplicationStatus: row.ApplicationStatus,
		TestAttempts:      row.TestAttempts,
		RetryAllowedAt:    row.RetryAllowedAt,
	}
	if row.CompletedAt != nil {
		result.CompletedAt = *row.CompletedAt
	}
	return result, nil
}

// ApplicationOutcome is the application state a finalization settles on.
type ApplicationOutcome struct {
	Status         models.ApplicationStatus
	TestAttempts   int
	RetryAllowedAt *time.Time
	Reason         string
}

// OutcomeFunc decides the application outcome from the locked application row.
type OutcomeFunc func(app *models.MentorApplication, passed bool) ApplicationOutcome

// FinalizeParams describes a session finalization.
type FinalizeParams struct {
	SessionID string
	Status    models.SessionStatus
	Now       time.Time
	Correct   int
	Score     float64
	Passed    bool
	// Answers is nil for expired sessions; no submission row is written then.
	Answers []byte
	Decide  OutcomeFunc
}

// Finalize closes an ACTIVE session, stores the submission and settles the
// application, all in one transaction. It returns ErrSessionFinalized when the
// session was already closed by a concurrent caller.
func (r *SessionRepository) Finalize(ctx context.Context, params FinalizeParams) (*models.SessionResult, *models.MentorApplication, error) {
	var (
		result  *models.SessionResult
		updated *models.MentorApplication
	)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const closeSession = `UPDATE test_sessions
		SET status = $2, completed_at = $3, correct_answers = $4, score = $5, passed = $6
		WHERE id = $1 AND status = $7
		RETURNING application_id, total_questions`
		var closed struct {
			ApplicationID  string `db:"application_id"`
			TotalQuestions int    `db:"total_questions"`
		}
		if err := tx.GetContext(ctx, &closed, closeSession, params.SessionID, params.Status, params.Now,
			params.Correct, params.Score, params.Passed, models.SessionStatusActive); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionFinalized
			}
			return fmt.Errorf("close test session: %w", err)
		}

		if params.Answers != nil {
			const insert = `INSERT INTO test_submissions (id, session_id, answers, submitted_at) VALUES ($1, $2, $3, $4)`
			if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), params.SessionID, params.Answers, params.Now); err != nil {
				return fmt.Errorf("insert test submission: %w", err)
			}
		}

		app, err := lockApplication(ctx, tx, closed.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != models.ApplicationStatusTestInProgress {
			return ErrStatusMismatch
		}
		outcome := params.Decide(app, params.Passed)

		const update = `UPDATE mentor_applications
		SET status = $2, test_attempts = $3, final_score = $4, retry_allowed_at = $5, cooldown_notified = FALSE, updated_at = $6
		WHERE id = $1 AND status = $7`
		if _, err := tx.ExecContext(ctx, update, app.ID, outcome.Status, outcome.TestAttempts, params.Score,
			outcome.RetryAllowedAt, params.Now, models.ApplicationStatusTestInProgress); err != nil {
			return fmt.Errorf("settle mentor application: %w", err)
		}

		const record = `UPDATE test_sessions
		SET outcome_status = $2, outcome_attempts = $3, outcome_retry_allowed_at = $4
		WHERE id = $1`
		if _, err := tx.ExecContext(ctx, record, params.SessionID, outcome.Status, outcome.TestAttempts,
			outcome.RetryAllowedAt); err != nil {
			return fmt.Errorf("record session outcome: %w", err)
		}
		if err := insertEvent(ctx, tx, models.ApplicationEvent{
			ApplicationID: app.ID,
			FromStatus:    models.ApplicationStatusTestInProgress,
			ToStatus:      models.ApplicationStatusScored,
			Reason:        fmt.Sprintf("session %s %s with score %.2f", params.SessionID, params.Status, params.Score),
			CreatedAt:     params.Now,
		}); err != nil {
			return err
		}
		if err := insertEvent(ctx, tx, models.ApplicationEvent{
			ApplicationID: app.ID,
			FromStatus:    models.ApplicationStatusScored,
			ToStatus:      outcome.Status,
			Reason:        outcome.Reason,
			CreatedAt:     params.Now,
		}); err != nil {
			return err
		}

		score := params.Score
		app.Status = outcome.Status
		app.TestAttempts = outcome.TestAttempts
		app.RetryAllowedAt = outcome.RetryAllowedAt
		app.FinalScore = &score
		app.CooldownNotified = false
		app.UpdatedAt = params.Now
		updated = app
		result = &models.SessionResult{
			SessionID:         params.SessionID,
			SessionStatus:     params.Status,
			TotalQuestions:    closed.TotalQuestions,
			CorrectAnswers:    params.Correct,
			Score:             params.Score,
			Passed:            params.Passed,
			ApplicationStatus: outcome.Status,
			TestAttempts:      outcome.TestAttempts,
			RetryAllowedAt:    outcome.RetryAllowedAt,
			CompletedAt:       params.Now,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, updated, nil
}
