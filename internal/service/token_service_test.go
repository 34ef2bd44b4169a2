package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, event models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []models.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type stubTokenStore struct {
	issued  []repository.IssueTokenParams
	states  map[string]*models.TokenState
	app     *models.MentorApplication
	err     error
	findErr error
}

func (s *stubTokenStore) Issue(ctx context.Context, params repository.IssueTokenParams) (*models.MentorApplication, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.issued = append(s.issued, params)
	app := *s.app
	if params.Transition {
		app.Status = models.ApplicationStatusTestIssued
	}
	return &app, nil
}

func (s *stubTokenStore) FindState(ctx context.Context, tokenHash string) (*models.TokenState, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	state, ok := s.states[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return state, nil
}

func newTestTokenService(store *stubTokenStore, notifier Notifier, now time.Time) *TokenService {
	svc := NewTokenService(store, notifier, nil, zap.NewNop(), TokenConfig{
		TTL:       48 * time.Hour,
		TestURL:   "https://mentors.example.com/test",
		TimeLimit: 30 * time.Minute,
		Questions: 20,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func TestTokenServiceIssue(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := &stubTokenStore{app: &models.MentorApplication{ID: "app-1", Email: "ada@example.com", FullName: "Ada", Status: models.ApplicationStatusPending}}
	notifier := &recordingNotifier{}
	svc := newTestTokenService(store, notifier, now)

	issued, err := svc.Issue(context.Background(), "app-1", "reviewer-1")
	require.NoError(t, err)
	require.Len(t, store.issued, 1)
	params := store.issued[0]
	assert.True(t, params.Transition)
	assert.Equal(t, "reviewer-1", params.Actor)
	assert.Equal(t, HashToken(issued.Raw), params.Token.TokenHash)
	assert.NotEqual(t, issued.Raw, params.Token.TokenHash)
	assert.Equal(t, issued.Raw[len(issued.Raw)-4:], params.Token.TokenHint)
	assert.Equal(t, now.Add(48*time.Hour), params.Token.ExpiresAt)
	assert.Equal(t, models.ApplicationStatusTestIssued, issued.Applicant.Status)

	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.Equal(t, models.EventTokenIssued, event.Type)
	assert.Equal(t, "ada@example.com", event.Email)
	assert.Equal(t, issued.Raw, event.Payload["token"])
	assert.Equal(t, "https://mentors.example.com/test?token="+issued.Raw, event.Payload["testUrl"])
	assert.Equal(t, 30, event.Payload["timeLimitMinutes"])
}

func TestTokenServiceIssueGeneratesUniqueTokens(t *testing.T) {
	store := &stubTokenStore{app: &models.MentorApplication{ID: "app-1"}}
	svc := newTestTokenService(store, nil, time.Now())

	first, err := svc.Issue(context.Background(), "app-1", "")
	require.NoError(t, err)
	second, err := svc.Reissue(context.Background(), "app-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Raw, second.Raw)
	assert.False(t, store.issued[1].Transition)
}

func TestTokenServiceIssueErrors(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		first bool
		want  *appErrors.Error
	}{
		{name: "unknown application", err: sql.ErrNoRows, first: true, want: appErrors.ErrNotFound},
		{name: "wrong status", err: repository.ErrStatusMismatch, first: true, want: appErrors.ErrInvalidApplicationState},
		{name: "live token", err: repository.ErrLiveTokenExists, want: appErrors.ErrInvalidApplicationState},
		{name: "database", err: errors.New("boom"), want: appErrors.ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestTokenService(&stubTokenStore{err: tc.err}, nil, time.Now())
			var err error
			if tc.first {
				_, err = svc.Issue(context.Background(), "app-1", "")
			} else {
				_, err = svc.Reissue(context.Background(), "app-1", "")
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestTokenServiceVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	live := &models.TokenState{
		TestToken:         models.TestToken{ID: "t1", ExpiresAt: now.Add(time.Hour)},
		ApplicationStatus: models.ApplicationStatusTestIssued,
		ApplicantName:     "Ada",
		Specialization:    "DevOps",
	}
	expired := &models.TokenState{
		TestToken:         models.TestToken{ID: "t2", ExpiresAt: now.Add(-time.Minute)},
		ApplicationStatus: models.ApplicationStatusTestIssued,
	}
	store := &stubTokenStore{states: map[string]*models.TokenState{
		HashToken("live"):    live,
		HashToken("expired"): expired,
	}}
	svc := newTestTokenService(store, nil, now)

	resp, err := svc.Verify(context.Background(), "live")
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "Ada", resp.ApplicantName)
	assert.Equal(t, 20, resp.TotalQuestions)
	assert.Equal(t, 30, resp.TimeLimitMinutes)

	resp, err = svc.Verify(context.Background(), "expired")
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, models.TokenFailureExpired, resp.Reason)

	resp, err = svc.Verify(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, models.TokenFailureNotFound, resp.Reason)

	resp, err = svc.Verify(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, models.TokenFailureNotFound, resp.Reason)
}

func TestTokenServiceVerifyStoreFailure(t *testing.T) {
	svc := newTestTokenService(&stubTokenStore{findErr: errors.New("db down")}, nil, time.Now())
	_, err := svc.Verify(context.Background(), "live")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestClassifyTokenOrder(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	state := func(consumed bool, expires time.Time, status models.ApplicationStatus) *models.TokenState {
		return &models.TokenState{TestToken: models.TestToken{Consumed: consumed, ExpiresAt: expires}, ApplicationStatus: status}
	}
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	assert.Equal(t, models.TokenFailureNotFound, ClassifyToken(nil, now))
	assert.Equal(t, models.TokenFailureAlreadyConsumed, ClassifyToken(state(true, earlier, models.ApplicationStatusRejected), now))
	assert.Equal(t, models.TokenFailureExpired, ClassifyToken(state(false, earlier, models.ApplicationStatusRejected), now))
	assert.Equal(t, models.TokenFailureExpired, ClassifyToken(state(false, now, models.ApplicationStatusTestIssued), now))
	assert.Equal(t, models.TokenFailureApplicationWithdrawn, ClassifyToken(state(false, later, models.ApplicationStatusRejected), now))
	assert.Equal(t, models.TokenFailureNone, ClassifyToken(state(false, later, models.ApplicationStatusTestIssued), now))
}

func TestTokenFailureError(t *testing.T) {
	assert.Equal(t, appErrors.ErrTokenExpired, TokenFailureError(models.TokenFailureExpired))
	assert.Equal(t, appErrors.ErrTokenAlreadyConsumed, TokenFailureError(models.TokenFailureAlreadyConsumed))
	assert.Equal(t, appErrors.ErrApplicationWithdrawn, TokenFailureError(models.TokenFailureApplicationWithdrawn))
	assert.Equal(t, appErrors.ErrTokenNotFound, TokenFailureError(models.TokenFailureNotFound))
}

func TestHashToken(t *testing.T) {
	digest := HashToken("abc")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashToken("  abc\n"))
	assert.NotEqual(t, digest, HashToken("abd"))
}
