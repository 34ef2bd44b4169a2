package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionStatus captures the lifecycle of a test session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusExpired   SessionStatus = "EXPIRED"
)

// TestSession is one sitting of the test. QuestionIDs is fixed at start and
// kept in presentation order.
type TestSession struct {
	ID               string        `db:"id" json:"id"`
	ApplicationID    string        `db:"application_id" json:"applicationId"`
	TokenID          string        `db:"token_id" json:"-"`
	QuestionIDs      pq.Int64Array `db:"question_ids" json:"questionIds"`
	TimeLimitMinutes int           `db:"time_limit_minutes" json:"timeLimitMinutes"`
	StartedAt        time.Time     `db:"started_at" json:"startedAt"`
	MustSubmitBy     time.Time     `db:"must_submit_by" json:"mustSubmitBy"`
	Status           SessionStatus `db:"status" json:"status"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	TotalQuestions   int           `db:"total_questions" json:"totalQuestions"`
	CorrectAnswers   *int          `db:"correct_answers" json:"correctAnswers,omitempty"`
	Score            *float64      `db:"score" json:"score,omitempty"`
	Passed           *bool         `db:"passed" json:"passed,omitempty"`
}

// Finalized reports whether the session already carries a result.
func (s TestSession) Finalized() bool {
	return s.Status == SessionStatusSubmitted || s.Status == SessionStatusExpired
}

// Overdue reports whether an active session is past its deadline at now.
// A submission landing exactly on the deadline is still on time.
func (s TestSession) Overdue(now time.Time) bool {
	return s.Status == SessionStatusActive && now.After(s.MustSubmitBy)
}

// Answers maps question id to the chosen option letter.
type Answers map[int64]string

// Submission is the immutable record of answers given for a session.
type Submission struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	Answers     []byte    `db:"answers" json:"answers"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
}

// SessionResult is what finalization decided for a session and its application.
type SessionResult struct {
	SessionID         string            `json:"sessionId"`
	SessionStatus     SessionStatus     `json:"sessionStatus"`
	TotalQuestions    int               `json:"totalQuestions"`
	CorrectAnswers    int               `json:"correctAnswers"`
	Score             float64           `json:"score"`
	Passed            bool              `json:"passed"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	TestAttempts      int               `json:"testAttempts"`
	RetryAllowedAt    *time.Time        `json:"retryAllowedAt,omitempty"`
	CompletedAt       time.Time         `json:"completedAt"`
}
