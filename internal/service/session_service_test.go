package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryAssessmentStore mirrors the transactional guarantees of the SQL
// repositories: the token consume and the session close are compare-and-set.
type memoryAssessmentStore struct {
	mu          sync.Mutex
	seq         int
	apps        map[string]*models.MentorApplication
	tokens      map[string]*models.TestToken
	sessions    map[string]*models.TestSession
	submissions map[string]*models.Submission
	results     map[string]models.SessionResult
	finalized   int
}

func newMemoryAssessmentStore() *memoryAssessmentStore {
	return &memoryAssessmentStore{
		apps:        make(map[string]*models.MentorApplication),
		tokens:      make(map[string]*models.TestToken),
		sessions:    make(map[string]*models.TestSession),
		submissions: make(map[string]*models.Submission),
		results:     make(map[string]models.SessionResult),
	}
}

func (m *memoryAssessmentStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryAssessmentStore) addApplication(app models.MentorApplication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := app
	m.apps[app.ID] = &copied
}

func (m *memoryAssessmentStore) application(id string) models.MentorApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.apps[id]
}

func (m *memoryAssessmentStore) Issue(ctx context.Context, params repository.IssueTokenParams) (*models.MentorApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[params.Token.ApplicationID]
	if !ok {
		return nil, errors.New("unknown application")
	}
	if params.Transition {
		if app.Status != models.ApplicationStatusPending {
			return nil, repository.ErrStatusMismatch
		}
		app.Status = models.ApplicationStatusTestIssued
		for _, earlier := range m.tokens {
			if earlier.ApplicationID == app.ID && !earlier.Consumed && earlier.ExpiresAt.After(params.Token.IssuedAt) {
				earlier.ExpiresAt = params.Token.IssuedAt
			}
		}
	} else if app.Status != models.ApplicationStatusTestIssued {
		return nil, repository.ErrStatusMismatch
	}
	token := *params.Token
	token.ID = m.nextID("tok")
	m.tokens[token.TokenHash] = &token
	copied := *app
	return &copied, nil
}

func (m *memoryAssessmentStore) FindState(ctx context.Context, tokenHash string) (*models.TokenState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	app := m.apps[token.ApplicationID]
	return &models.TokenState{
		TestToken:         *token,
		ApplicationStatus: app.Status,
		ApplicantName:     app.FullName,
		Specialization:    app.Specialization,
	}, nil
}

func (m *memoryAssessmentStore) StartSession(ctx context.Context, params repository.StartSessionParams) (*models.TestSession, *models.MentorApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[params.TokenHash]
	if !ok || token.Consumed || !token.ExpiresAt.After(params.Now) {
		return nil, nil, repository.ErrTokenNotConsumable
	}
	app := m.apps[token.ApplicationID]
	if app.Status != models.ApplicationStatusTestIssued {
		return nil, nil, repository.ErrTokenNotConsumable
	}
	ids, err := params.Pick(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	consumedAt := params.Now
	token.Consumed = true
	token.ConsumedAt = &consumedAt
	app.Status = models.ApplicationStatusTestInProgress

	session := &models.TestSession{
		ID:               m.nextID("sess"),
		ApplicationID:    app.ID,
		TokenID:          token.ID,
		QuestionIDs:      ids,
		TimeLimitMinutes: int(params.TimeLimit / time.Minute),
		StartedAt:        params.Now,
		MustSubmitBy:     params.Now.Add(params.TimeLimit),
		Status:           models.SessionStatusActive,
		TotalQuestions:   len(ids),
	}
	m.sessions[session.ID] = session
	copied := *session
	appCopy := *app
	return &copied, &appCopy, nil
}

func (m *memoryAssessmentStore) GetByID(ctx context.Context, id string) (*models.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *memoryAssessmentStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for _, session := range m.sessions {
		if session.TokenID == token.ID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryAssessmentStore) GetResult(ctx context.Context, sessionID string) (*models.SessionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &result, nil
}

func (m *memoryAssessmentStore) GetSubmission(ctx context.Context, sessionID string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return submission, nil
}

func (m *memoryAssessmentStore) Finalize(ctx context.Context, params repository.FinalizeParams) (*models.SessionResult, *models.MentorApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[params.SessionID]
	if !ok || session.Status != models.SessionStatusActive {
		return nil, nil, repository.ErrSessionFinalized
	}
	app := m.apps[session.ApplicationID]
	if app.Status != models.ApplicationStatusTestInProgress {
		return nil, nil, repository.ErrStatusMismatch
	}
	completed, correct, score, passed := params.Now, params.Correct, params.Score, params.Passed
	session.Status = params.Status
	session.CompletedAt = &completed
	session.CorrectAnswers = &correct
	session.Score = &score
	session.Passed = &passed
	if params.Answers != nil {
		m.submissions[session.ID] = &models.Submission{ID: m.nextID("sub"), SessionID: session.ID, Answers: params.Answers, SubmittedAt: params.Now}
	}

	outcome := params.Decide(app, params.Passed)
	app.Status = outcome.Status
	app.TestAttempts = outcome.TestAttempts
	app.RetryAllowedAt = outcome.RetryAllowedAt
	app.FinalScore = &score
	m.finalized++

	result := models.SessionResult{
		SessionID:         session.ID,
		SessionStatus:     session.Status,
		TotalQuestions:    session.TotalQuestions,
		CorrectAnswers:    correct,
		Score:             score,
		Passed:            passed,
		ApplicationStatus: outcome.Status,
		TestAttempts:      outcome.TestAttempts,
		RetryAllowedAt:    outcome.RetryAllowedAt,
		CompletedAt:       completed,
	}
	m.results[session.ID] = result
	appCopy := *app
	return &result, &appCopy, nil
}

type memoryQuestionBank struct {
	questions map[int64]models.Question
}

func (b *memoryQuestionBank) GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := b.questions[id]; ok {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fixedPicker struct {
	ids []int64
	err error
}

func (p fixedPicker) Select(ctx context.Context, specialization string) ([]int64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]int64, len(p.ids))
	copy(out, p.ids)
	return out, nil
}

type sessionFixture struct {
	store    *memoryAssessmentStore
	clock    *testClock
	tokens   *TokenService
	sessions *SessionService
	notifier *recordingNotifier
	key      map[int64]string
}

func newSessionFixture(t *testing.T, picker questionPicker) *sessionFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := newMemoryAssessmentStore()
	bank := &memoryQuestionBank{questions: make(map[int64]models.Question)}
	key := make(map[int64]string)
	letters := []string{"A", "B", "C", "D"}
	for id := int64(1); id <= 10; id++ {
		answer := letters[id%4]
		key[id] = answer
		bank.questions[id] = models.Question{
			ID:            id,
			Category:      "DevOps",
			Difficulty:    models.DifficultyMedium,
			QuestionText:  fmt.Sprintf("question %d", id),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: answer,
		}
	}
	notifier := &recordingNotifier{}
	tokens := newTestTokenService(&stubTokenStore{}, nil, clock.now)
	tokens.store = store
	tokens.notifier = notifier
	tokens.now = clock.Now

	policy, err := NewCooldownPolicy(nil, 3)
	require.NoError(t, err)
	if picker == nil {
		picker = fixedPicker{ids: []int64{7, 3, 9, 1, 5, 2, 10, 4, 8, 6}}
	}
	sessions := NewSessionService(store, bank, picker, tokens, NewScorer(70), policy, zap.NewNop(),
		SessionConfig{TimeLimit: 30 * time.Minute},
		WithSessionClock(clock.Now), WithSessionNotifier(notifier))
	return &sessionFixture{store: store, clock: clock, tokens: tokens, sessions: sessions, notifier: notifier, key: key}
}

// issue registers an application with the given prior attempts and returns a live raw token.
func (f *sessionFixture) issue(t *testing.T, id string, attempts int) string {
	t.Helper()
	f.store.addApplication(models.MentorApplication{
		ID:             id,
		FullName:       "Ada Lovelace",
		Email:          id + "@example.com",
		Specialization: "DevOps",
		Status:         models.ApplicationStatusPending,
		TestAttempts:   attempts,
	})
	issued, err := f.tokens.Issue(context.Background(), id, "")
	require.NoError(t, err)
	return issued.Raw
}

func (f *sessionFixture) answers(ids []int64, correct int) []dto.QuestionAnswer {
	out := make([]dto.QuestionAnswer, 0, len(ids))
	for i, id := range ids {
		answer := f.key[id]
		if i >= correct {
			answer = "X"
		}
		out = append(out, dto.QuestionAnswer{QuestionID: id, Answer: answer})
	}
	return out
}

func TestSessionServiceStartAndPass(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)

	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, view.Questions, 10)
	order := make([]int64, len(view.Questions))
	for i, q := range view.Questions {
		order[i] = q.ID
	}
	assert.Equal(t, []int64{7, 3, 9, 1, 5, 2, 10, 4, 8, 6}, order)
	assert.Equal(t, 30, view.TimeLimitMinutes)
	assert.Equal(t, view.StartedAt.Add(30*time.Minute), view.MustSubmitBy)
	assert.Equal(t, models.ApplicationStatusTestInProgress, f.store.application("app-1").Status)

	ids := order
	result, err := f.sessions.SubmitByToken(context.Background(), raw, f.answers(ids, 8))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSubmitted, result.SessionStatus)
	assert.Equal(t, 8, result.CorrectAnswers)
	assert.Equal(t, 80.0, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, models.ApplicationStatusApproved, result.ApplicationStatus)

	app := f.store.application("app-1")
	assert.Equal(t, 1, app.TestAttempts)
	assert.Equal(t, models.ApplicationStatusApproved, app.Status)
	assert.Equal(t, []models.EventType{models.EventTokenIssued, models.EventResultAvailable, models.EventMentorApproved}, f.notifier.types())
}

func TestSessionServiceConcurrentStartConsumesOnce(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		consumed  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sessions.Start(context.Background(), raw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, appErrors.ErrTokenAlreadyConsumed):
				consumed++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, consumed)
	assert.Len(t, f.store.sessions, 1)
}

func TestSessionServiceStartRejectsUnusableTokens(t *testing.T) {
	f := newSessionFixture(t, nil)

	_, err := f.sessions.Start(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrTokenNotFound))

	_, err = f.sessions.Start(context.Background(), "never-issued")
	assert.True(t, errors.Is(err, appErrors.ErrTokenNotFound))

	expired := f.issue(t, "app-expired", 0)
	f.clock.Advance(49 * time.Hour)
	_, err = f.sessions.Start(context.Background(), expired)
	assert.True(t, errors.Is(err, appErrors.ErrTokenExpired))

	withdrawn := f.issue(t, "app-withdrawn", 0)
	f.store.mu.Lock()
	f.store.apps["app-withdrawn"].Status = models.ApplicationStatusRejected
	f.store.mu.Unlock()
	_, err = f.sessions.Start(context.Background(), withdrawn)
	assert.True(t, errors.Is(err, appErrors.ErrApplicationWithdrawn))
}

func TestSessionServiceReissueAfterReinstateRetiresOldToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	old := f.issue(t, "app-1", 0)

	f.store.mu.Lock()
	f.store.apps["app-1"].Status = models.ApplicationStatusPending
	f.store.mu.Unlock()
	f.clock.Advance(time.Hour)
	issued, err := f.tokens.Issue(context.Background(), "app-1", "")
	require.NoError(t, err)

	_, err = f.sessions.Start(context.Background(), old)
	assert.True(t, errors.Is(err, appErrors.ErrTokenExpired))

	view, err := f.sessions.Start(context.Background(), issued.Raw)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 10)
}

func TestSessionServiceStartInsufficientQuestionsKeepsToken(t *testing.T) {
	insufficient := appErrors.WithMeta(appErrors.ErrInsufficientQuestions, map[string]interface{}{"required": 20, "available": 4})
	f := newSessionFixture(t, fixedPicker{err: insufficient})
	raw := f.issue(t, "app-1", 0)

	_, err := f.sessions.Start(context.Background(), raw)
	require.True(t, errors.Is(err, appErrors.ErrInsufficientQuestions))

	state, err := f.store.FindState(context.Background(), HashToken(raw))
	require.NoError(t, err)
	assert.False(t, state.Consumed)
	assert.Equal(t, models.ApplicationStatusTestIssued, state.ApplicationStatus)
}

func TestSessionServiceSubmitIsIdempotent(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	ids := make([]int64, len(view.Questions))
	for i, q := range view.Questions {
		ids[i] = q.ID
	}
	first, err := f.sessions.Submit(context.Background(), view.SessionID, f.answers(ids, 5))
	require.NoError(t, err)
	assert.False(t, first.Passed)
	assert.Equal(t, models.ApplicationStatusCooldownActive, first.ApplicationStatus)
	require.NotNil(t, first.RetryAllowedAt)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), *first.RetryAllowedAt)

	second, err := f.sessions.Submit(context.Background(), view.SessionID, f.answers(ids, 10))
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.ApplicationStatus, second.ApplicationStatus)
	assert.Equal(t, 1, f.store.application("app-1").TestAttempts)
	assert.Equal(t, 1, f.store.finalized)
}

func TestSessionServiceReplayIgnoresLaterApplicationChanges(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	ids := make([]int64, len(view.Questions))
	for i, q := range view.Questions {
		ids[i] = q.ID
	}
	first, err := f.sessions.SubmitByToken(context.Background(), raw, f.answers(ids, 5))
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCooldownActive, first.ApplicationStatus)

	f.store.mu.Lock()
	f.store.apps["app-1"].Status = models.ApplicationStatusPending
	f.store.apps["app-1"].RetryAllowedAt = nil
	f.store.mu.Unlock()

	replay, err := f.sessions.SubmitByToken(context.Background(), raw, f.answers(ids, 10))
	require.NoError(t, err)
	assert.Equal(t, first, replay)
}

func TestSessionServiceSubmitOnDeadlineIsScored(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	ids := make([]int64, len(view.Questions))
	for i, q := range view.Questions {
		ids[i] = q.ID
	}
	result, err := f.sessions.SubmitByToken(context.Background(), raw, f.answers(ids, 10))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSubmitted, result.SessionStatus)
	assert.Equal(t, 100.0, result.Score)
}

func TestSessionServiceSubmitAfterDeadlineExpires(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	ids := make([]int64, len(view.Questions))
	for i, q := range view.Questions {
		ids[i] = q.ID
	}
	result, err := f.sessions.SubmitByToken(context.Background(), raw, f.answers(ids, 10))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, result.SessionStatus)
	assert.Zero(t, result.Score)
	assert.False(t, result.Passed)
	assert.Equal(t, models.ApplicationStatusCooldownActive, result.ApplicationStatus)

	_, err = f.store.GetSubmission(context.Background(), view.SessionID)
	assert.Error(t, err, "expired sessions keep no submission")
}

func TestSessionServiceFinalAttemptRejects(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 2)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	result, err := f.sessions.SubmitByToken(context.Background(), raw, nil)
	require.NoError(t, err)
	assert.Equal(t, view.SessionID, result.SessionID)
	assert.Equal(t, models.ApplicationStatusRejected, result.ApplicationStatus)
	assert.Nil(t, result.RetryAllowedAt)
	assert.Equal(t, 3, f.store.application("app-1").TestAttempts)
}

func TestSessionServiceResume(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)

	_, err := f.sessions.Resume(context.Background(), raw)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidApplicationState), "resume before start")

	started, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	resumed, err := f.sessions.Resume(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, started, resumed)

	f.clock.Advance(30 * time.Minute)
	_, err = f.sessions.Resume(context.Background(), raw)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
	session, err := f.store.GetByID(context.Background(), started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusExpired, session.Status)

	_, err = f.sessions.Resume(context.Background(), raw)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
}

func TestSessionServiceSubmitRacesReaper(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)
	session, err := f.store.GetByID(context.Background(), view.SessionID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*models.SessionResult, 2)
	var submitted *dto.TestResultResponse
	wg.Add(2)
	go func() {
		defer wg.Done()
		submitted, _ = f.sessions.Submit(context.Background(), view.SessionID, nil)
	}()
	go func() {
		defer wg.Done()
		results[0], _ = f.sessions.Expire(context.Background(), *session)
	}()
	wg.Wait()

	require.NotNil(t, submitted)
	require.NotNil(t, results[0])
	assert.Equal(t, 1, f.store.finalized)
	assert.Equal(t, submitted.SessionStatus, results[0].SessionStatus)
	assert.Equal(t, 1, f.store.application("app-1").TestAttempts)
}

func TestSessionServiceReview(t *testing.T) {
	f := newSessionFixture(t, nil)
	raw := f.issue(t, "app-1", 0)
	view, err := f.sessions.Start(context.Background(), raw)
	require.NoError(t, err)

	first := view.Questions[0].ID
	_, err = f.sessions.Submit(context.Background(), view.SessionID, []dto.QuestionAnswer{
		{QuestionID: first, Answer: f.key[first]},
		{QuestionID: first, Answer: "X"},
		{QuestionID: 999, Answer: "A"},
	})
	require.NoError(t, err)

	submission, err := f.store.GetSubmission(context.Background(), view.SessionID)
	require.NoError(t, err)
	var stored models.Answers
	require.NoError(t, json.Unmarshal(submission.Answers, &stored))
	assert.Equal(t, models.Answers{first: f.key[first]}, stored)

	review, err := f.sessions.Review(context.Background(), view.SessionID)
	require.NoError(t, err)
	require.Len(t, review.Breakdown, 10)
	assert.Equal(t, first, review.Breakdown[0].QuestionID)
	assert.True(t, review.Breakdown[0].Correct)
	assert.False(t, review.Breakdown[1].Correct)

	_, err = f.sessions.Review(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestNormalizeAnswersKeepsMalformedEntriesAsWrong(t *testing.T) {
	given := normalizeAnswers([]int64{1, 2, 3}, []dto.QuestionAnswer{
		{QuestionID: 1, Answer: " b "},
		{QuestionID: 2, Answer: "AB"},
		{QuestionID: 2, Answer: "A"},
		{QuestionID: 99, Answer: "C"},
		{QuestionID: 0, Answer: ""},
	})
	assert.Equal(t, models.Answers{1: "B", 2: "AB"}, given)

	score := NewScorer(70).Score([]int64{1, 2, 3}, map[int64]string{1: "B", 2: "A", 3: "C"}, given)
	assert.Equal(t, 1, score.Correct)
}
