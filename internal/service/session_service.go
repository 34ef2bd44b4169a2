package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
	"github.com/noah-isme/mentor-assessment-api/pkg/tracing"
)

// DefaultTimeLimit is how long an applicant has once a session starts.
const DefaultTimeLimit = 30 * time.Minute

type sessionStore interface {
	StartSession(ctx context.Context, params repository.StartSessionParams) (*models.TestSession, *models.MentorApplication, error)
	GetByID(ctx context.Context, id string) (*models.TestSession, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.TestSession, error)
	GetResult(ctx context.Context, sessionID string) (*models.SessionResult, error)
	GetSubmission(ctx context.Context, sessionID string) (*models.Submission, error)
	Finalize(ctx context.Context, params repository.FinalizeParams) (*models.SessionResult, *models.MentorApplication, error)
}

type questionLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error)
}

type questionPicker interface {
	Select(ctx context.Context, specialization string) ([]int64, error)
}

type tokenClassifier interface {
	Failure(ctx context.Context, raw string) (models.TokenFailure, error)
}

// SessionConfig tunes the test sitting.
type SessionConfig struct {
	TimeLimit time.Duration
}

// SessionService runs the start, resume, submit and expiry flows.
type SessionService struct {
	store     sessionStore
	questions questionLoader
	selector  questionPicker
	tokens    tokenClassifier
	scorer    *Scorer
	policy    *CooldownPolicy
	notifier  Notifier
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SessionConfig
	now       func() time.Time
}

// SessionServiceOption customises the service.
type SessionServiceOption func(*SessionService)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionNotifier attaches the event publisher.
func WithSessionNotifier(n Notifier) SessionServiceOption {
	return func(s *SessionService) {
		s.notifier = n
	}
}

// WithSessionMetrics attaches Prometheus counters.
func WithSessionMetrics(m *MetricsService) SessionServiceOption {
	return func(s *SessionService) {
		s.metrics = m
	}
}

// NewSessionService constructs the service.
func NewSessionService(store sessionStore, questions questionLoader, selector questionPicker, tokens tokenClassifier,
	scorer *Scorer, policy *CooldownPolicy, logger *zap.Logger, cfg SessionConfig, opts ...SessionServiceOption) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultTimeLimit
	}
	s := &SessionService{
		store:     store,
		questions: questions,
		selector:  selector,
		tokens:    tokens,
		scorer:    scorer,
		policy:    policy,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start consumes the token and opens a session with a freshly selected question set.
func (s *SessionService) Start(ctx context.Context, raw string) (_ *dto.SessionView, err error) {
	ctx, span := tracing.Start(ctx, "session.start")
	defer func() { tracing.End(span, err) }()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.ErrTokenNotFound
	}
	now := s.now().UTC()
	session, app, err := s.store.StartSession(ctx, repository.StartSessionParams{
		TokenHash: HashToken(raw),
		Now:       now,
		TimeLimit: s.cfg.TimeLimit,
		Pick: func(ctx context.Context, app *models.MentorApplication) ([]int64, error) {
			return s.selector.Select(ctx, app.Specialization)
		},
	})
	if err != nil {
		return nil, s.startError(ctx, raw, err)
	}

	view, err := s.view(ctx, session)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", session.ID))
	s.metrics.SessionStarted()
	s.logger.Info("test session started",
		zap.String("session_id", session.ID),
		zap.String("application_id", app.ID),
		zap.Int("questions", len(session.QuestionIDs)),
		zap.Time("must_submit_by", session.MustSubmitBy))
	return view, nil
}

func (s *SessionService) startError(ctx context.Context, raw string, err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.Is(err, repository.ErrTokenNotConsumable):
		failure, lookupErr := s.tokens.Failure(ctx, raw)
		if lookupErr != nil {
			return lookupErr
		}
		if failure == models.TokenFailureNone {
			// Lost the consume race to a transaction that committed in between.
			failure = models.TokenFailureAlreadyConsumed
		}
		s.metrics.TokenRejected(string(failure))
		return TokenFailureError(failure)
	case errors.Is(err, appErrors.ErrInsufficientQuestions):
		s.metrics.InsufficientQuestions()
		return err
	case errors.Is(err, repository.ErrStatusMismatch):
		return appErrors.Clone(appErrors.ErrInvalidApplicationState, "the application is not awaiting a test")
	case errors.As(err, &appErr):
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start test session")
}

// Resume returns the active session behind raw with its original question order.
func (s *SessionService) Resume(ctx context.Context, raw string) (*dto.SessionView, error) {
	session, err := s.sessionByToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	switch {
	case session.Status == models.SessionStatusExpired:
		return nil, appErrors.ErrSessionExpired
	case session.Status == models.SessionStatusSubmitted:
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "this test has already been submitted")
	case session.Overdue(s.now()):
		if _, err := s.Expire(ctx, *session); err != nil {
			return nil, err
		}
		return nil, appErrors.ErrSessionExpired
	}
	return s.view(ctx, session)
}

// SubmitByToken submits answers for the session started with raw.
func (s *SessionService) SubmitByToken(ctx context.Context, raw string, answers []dto.QuestionAnswer) (*dto.TestResultResponse, error) {
	session, err := s.sessionByToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, session, answers)
}

// Submit scores and finalizes a session. Replays return the stored result
// and an overdue session is finalized as expired regardless of answers.
func (s *SessionService) Submit(ctx context.Context, sessionID string, answers []dto.QuestionAnswer) (*dto.TestResultResponse, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test session")
	}
	return s.submit(ctx, session, answers)
}

func (s *SessionService) submit(ctx context.Context, session *models.TestSession, answers []dto.QuestionAnswer) (_ *dto.TestResultResponse, err error) {
	ctx, span := tracing.Start(ctx, "session.submit", attribute.String("session.id", session.ID))
	defer func() { tracing.End(span, err) }()

	if session.Finalized() {
		result, err := s.storedResult(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return resultResponse(result), nil
	}

	now := s.now().UTC()
	if session.Overdue(now) {
		result, err := s.Expire(ctx, *session)
		if err != nil {
			return nil, err
		}
		return resultResponse(result), nil
	}

	ids := []int64(session.QuestionIDs)
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answer key")
	}
	key := make(map[int64]string, len(questions))
	for _, q := range questions {
		key[q.ID] = q.CorrectAnswer
	}
	given := normalizeAnswers(ids, answers)
	score := s.scorer.Score(ids, key, given)

	payload, err := json.Marshal(given)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode answers")
	}
	result, err := s.finalize(ctx, repository.FinalizeParams{
		SessionID: session.ID,
		Status:    models.SessionStatusSubmitted,
		Now:       now,
		Correct:   score.Correct,
		Score:     score.Percent,
		Passed:    score.Passed,
		Answers:   payload,
	})
	if err != nil {
		return nil, err
	}
	return resultResponse(result), nil
}

// Expire finalizes an overdue session with a zero score. It is shared by
// lazy expiry on access and the background reaper.
func (s *SessionService) Expire(ctx context.Context, session models.TestSession) (*models.SessionResult, error) {
	return s.finalize(ctx, repository.FinalizeParams{
		SessionID: session.ID,
		Status:    models.SessionStatusExpired,
		Now:       s.now().UTC(),
	})
}

// finalize is the single path closing a session. The status guard in the
// store lets exactly one caller win; losers return the stored result.
func (s *SessionService) finalize(ctx context.Context, params repository.FinalizeParams) (_ *models.SessionResult, err error) {
	ctx, span := tracing.Start(ctx, "session.finalize",
		attribute.String("session.id", params.SessionID),
		attribute.String("session.status", string(params.Status)))
	defer func() { tracing.End(span, err) }()

	params.Decide = s.decide(params.Now)
	result, app, err := s.store.Finalize(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrSessionFinalized) {
			return s.storedResult(ctx, params.SessionID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize test session")
	}

	s.metrics.SessionFinalized(string(result.SessionStatus), string(result.ApplicationStatus))
	s.logger.Info("test session finalized",
		zap.String("session_id", result.SessionID),
		zap.String("application_id", app.ID),
		zap.String("session_status", string(result.SessionStatus)),
		zap.Float64("score", result.Score),
		zap.String("application_status", string(result.ApplicationStatus)),
		zap.Int("attempts", result.TestAttempts))
	s.announce(ctx, app, result)
	return result, nil
}

func (s *SessionService) decide(now time.Time) repository.OutcomeFunc {
	return func(app *models.MentorApplication, passed bool) repository.ApplicationOutcome {
		attempts := app.TestAttempts + 1
		if passed {
			return repository.ApplicationOutcome{
				Status:       models.ApplicationStatusApproved,
				TestAttempts: attempts,
				Reason:       "passed assessment",
			}
		}
		decision := s.policy.Decide(attempts)
		if decision.Status == models.ApplicationStatusRejected {
			return repository.ApplicationOutcome{
				Status:       models.ApplicationStatusRejected,
				TestAttempts: attempts,
				Reason:       fmt.Sprintf("failed attempt %d of %d, no retries left", attempts, s.policy.MaxAttempts()),
			}
		}
		retry := now.Add(decision.Wait)
		return repository.ApplicationOutcome{
			Status:         models.ApplicationStatusCooldownActive,
			TestAttempts:   attempts,
			RetryAllowedAt: &retry,
			Reason:         fmt.Sprintf("failed attempt %d, retry after %s", attempts, decision.Wait),
		}
	}
}

func (s *SessionService) announce(ctx context.Context, app *models.MentorApplication, result *models.SessionResult) {
	if s.notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"sessionId":         result.SessionID,
		"sessionStatus":     result.SessionStatus,
		"score":             result.Score,
		"passed":            result.Passed,
		"applicationStatus": result.ApplicationStatus,
		"testAttempts":      result.TestAttempts,
	}
	if result.RetryAllowedAt != nil {
		payload["retryAllowedAt"] = *result.RetryAllowedAt
	}
	s.notifier.Publish(ctx, models.Event{
		Type:          models.EventResultAvailable,
		ApplicationID: app.ID,
		Email:         app.Email,
		FullName:      app.FullName,
		Payload:       payload,
	})
	if result.ApplicationStatus == models.ApplicationStatusApproved {
		s.notifier.Publish(ctx, models.Event{
			Type:          models.EventMentorApproved,
			ApplicationID: app.ID,
			Email:         app.Email,
			FullName:      app.FullName,
			Payload: map[string]interface{}{
				"specialization": app.Specialization,
				"score":          result.Score,
			},
		})
	}
}

// Review returns the reviewer breakdown of a session, including answer keys.
func (s *SessionService) Review(ctx context.Context, sessionID string) (*dto.SessionReview, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "test session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test session")
	}

	given := models.Answers{}
	submission, err := s.store.GetSubmission(ctx, sessionID)
	switch {
	case err == nil:
		if err := json.Unmarshal(submission.Answers, &given); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode submission")
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	ids := []int64(session.QuestionIDs)
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &dto.SessionReview{Session: *session, Breakdown: s.scorer.Breakdown(ids, byID, given)}, nil
}

func (s *SessionService) storedResult(ctx context.Context, sessionID string) (*models.SessionResult, error) {
	result, err := s.store.GetResult(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test result")
	}
	return result, nil
}

func (s *SessionService) sessionByToken(ctx context.Context, raw string) (*models.TestSession, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.ErrTokenNotFound
	}
	session, err := s.store.GetByTokenHash(ctx, HashToken(raw))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test session")
	}
	failure, lookupErr := s.tokens.Failure(ctx, raw)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if failure == models.TokenFailureNone {
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "this test has not been started yet")
	}
	return nil, TokenFailureError(failure)
}

// view renders the session for the applicant in stored order without answer keys.
func (s *SessionService) view(ctx context.Context, session *models.TestSession) (*dto.SessionView, error) {
	ids := []int64(session.QuestionIDs)
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	items := make([]dto.TestQuestion, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("question %d is missing from the bank", id))
		}
		items = append(items, dto.TestQuestion{
			ID:           q.ID,
			Category:     q.Category,
			Difficulty:   q.Difficulty,
			QuestionText: q.QuestionText,
			OptionA:      q.OptionA,
			OptionB:      q.OptionB,
			OptionC:      q.OptionC,
			OptionD:      q.OptionD,
		})
	}
	return &dto.SessionView{
		SessionID:        session.ID,
		Questions:        items,
		TimeLimitMinutes: session.TimeLimitMinutes,
		StartedAt:        session.StartedAt,
		MustSubmitBy:     session.MustSubmitBy,
	}, nil
}

// normalizeAnswers keeps the first answer per question that belongs to the
// session, upper-cased.
func normalizeAnswers(ids []int64, answers []dto.QuestionAnswer) models.Answers {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	out := make(models.Answers, len(answers))
	for _, a := range answers {
		if _, ok := allowed[a.QuestionID]; !ok {
			continue
		}
		if _, seen := out[a.QuestionID]; seen {
			continue
		}
		out[a.QuestionID] = strings.ToUpper(strings.TrimSpace(a.Answer))
	}
	return out
}

func resultResponse(result *models.SessionResult) *dto.TestResultResponse {
	return &dto.TestResultResponse{
		SessionID:         result.SessionID,
		SessionStatus:     result.SessionStatus,
		TotalQuestions:    result.TotalQuestions,
		CorrectAnswers:    result.CorrectAnswers,
		Score:             result.Score,
		Passed:            result.Passed,
		ApplicationStatus: result.ApplicationStatus,
		RetryAllowedAt:    result.RetryAllowedAt,
		Message:           resultMessage(result),
	}
}

func resultMessage(result *models.SessionResult) string {
	switch {
	case result.ApplicationStatus == models.ApplicationStatusApproved:
		return "Congratulations, you passed the assessment and are now a mentor."
	case result.SessionStatus == models.SessionStatusExpired && result.ApplicationStatus == models.ApplicationStatusCooldownActive:
		return "Time expired before the test was submitted. You can reapply after the cooldown period."
	case result.ApplicationStatus == models.ApplicationStatusCooldownActive:
		return "You did not reach the passing score. You can reapply after the cooldown period."
	case result.ApplicationStatus == models.ApplicationStatusRejected:
		return "You did not reach the passing score and have no attempts left."
	}
	return "Your test has been recorded."
}
