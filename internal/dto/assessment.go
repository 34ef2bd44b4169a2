package dto

import (
	"time"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

// TokenRequest carries a test token for verify, start and resume.
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyTokenResponse is the read-only token check result.
type VerifyTokenResponse struct {
	Valid            bool                `json:"valid"`
	Reason           models.TokenFailure `json:"reason,omitempty"`
	ApplicantName    string              `json:"applicantName,omitempty"`
	Specialization   string              `json:"specialization,omitempty"`
	TimeLimitMinutes int                 `json:"timeLimitMinutes,omitempty"`
	TotalQuestions   int                 `json:"totalQuestions,omitempty"`
	ExpiresAt        *time.Time          `json:"expiresAt,omitempty"`
}

// TestQuestion is a question as shown to an applicant. It never carries the
// correct option or the explanation.
type TestQuestion struct {
	ID           int64             `json:"id"`
	Category     string            `json:"category"`
	Difficulty   models.Difficulty `json:"difficulty"`
	QuestionText string            `json:"questionText"`
	OptionA      string            `json:"optionA"`
	OptionB      string            `json:"optionB"`
	OptionC      string            `json:"optionC"`
	OptionD      string            `json:"optionD"`
}

// SessionView is returned by start-test and resume-test.
type SessionView struct {
	SessionID        string         `json:"sessionId"`
	Questions        []TestQuestion `json:"questions"`
	TimeLimitMinutes int            `json:"timeLimitMinutes"`
	StartedAt        time.Time      `json:"startedAt"`
	MustSubmitBy     time.Time      `json:"mustSubmitBy"`
}

// QuestionAnswer is a single chosen option. Malformed entries are scored as
// wrong rather than rejected, so a retried submit always reaches the session.
type QuestionAnswer struct {
	QuestionID int64  `json:"questionId"`
	Answer     string `json:"answer"`
}

// SubmitTestRequest carries the applicant's answers.
type SubmitTestRequest struct {
	Token   string           `json:"token" validate:"required"`
	Answers []QuestionAnswer `json:"answers"`
}

// TestResultResponse reports a finalized session.
type TestResultResponse struct {
	SessionID         string                   `json:"sessionId"`
	SessionStatus     models.SessionStatus     `json:"sessionStatus"`
	TotalQuestions    int                      `json:"totalQuestions"`
	CorrectAnswers    int                      `json:"correctAnswers"`
	Score             float64                  `json:"score"`
	Passed            bool                     `json:"passed"`
	ApplicationStatus models.ApplicationStatus `json:"applicationStatus"`
	RetryAllowedAt    *time.Time               `json:"retryAllowedAt,omitempty"`
	Message           string                   `json:"message"`
}

// AnswerReview is one reviewer-facing breakdown line.
type AnswerReview struct {
	QuestionID    int64             `json:"questionId"`
	Difficulty    models.Difficulty `json:"difficulty"`
	QuestionText  string            `json:"questionText"`
	Given         string            `json:"given"`
	CorrectAnswer string            `json:"correctAnswer"`
	Correct       bool              `json:"correct"`
	Explanation   *string           `json:"explanation,omitempty"`
}

// SessionReview is the reviewer view of a finalized session.
type SessionReview struct {
	Session   models.TestSession `json:"session"`
	Breakdown []AnswerReview     `json:"breakdown"`
}
