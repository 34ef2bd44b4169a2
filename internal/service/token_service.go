package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

const tokenBytes = 32

type tokenStore interface {
	Issue(ctx context.Context, params repository.IssueTokenParams) (*models.MentorApplication, error)
	FindState(ctx context.Context, tokenHash string) (*models.TokenState, error)
}

// TokenConfig tunes token issuance.
type TokenConfig struct {
	TTL       time.Duration
	TestURL   string
	TimeLimit time.Duration
	Questions int
}

// IssuedToken is the result of an issuance. Raw is handed to the notifier only.
type IssuedToken struct {
	Raw       string
	Token     models.TestToken
	Applicant models.MentorApplication
}

// TokenService issues and verifies single-use test tokens.
type TokenService struct {
	store    tokenStore
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      TokenConfig
	now      func() time.Time
}

// NewTokenService constructs the service.
func NewTokenService(store tokenStore, notifier Notifier, metrics *MetricsService, logger *zap.Logger, cfg TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &TokenService{store: store, notifier: notifier, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// Issue creates the first token for a PENDING application and moves it to TEST_ISSUED.
func (s *TokenService) Issue(ctx context.Context, applicationID, actor string) (*IssuedToken, error) {
	return s.issue(ctx, applicationID, actor, true)
}

// Reissue creates a replacement token for a TEST_ISSUED application whose
// previous token expired unused. The application status does not change.
func (s *TokenService) Reissue(ctx context.Context, applicationID, actor string) (*IssuedToken, error) {
	return s.issue(ctx, applicationID, actor, false)
}

func (s *TokenService) issue(ctx context.Context, applicationID, actor string, first bool) (*IssuedToken, error) {
	raw, err := generateToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate test token")
	}
	now := s.now().UTC()
	token := models.TestToken{
		ApplicationID: applicationID,
		TokenHash:     HashToken(raw),
		TokenHint:     tokenHint(raw),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.cfg.TTL),
	}
	reason := "test token issued"
	if !first {
		reason = "test token reissued"
	}
	app, err := s.store.Issue(ctx, repository.IssueTokenParams{Token: &token, Transition: first, Actor: actor, Reason: reason})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		case errors.Is(err, repository.ErrStatusMismatch):
			if first {
				return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "a test can only be issued to a pending application")
			}
			return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "a test can only be reissued while the application awaits its test")
		case errors.Is(err, repository.ErrLiveTokenExists):
			return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "the applicant still holds a valid test link")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue test token")
	}

	s.metrics.TokenIssued()
	s.logger.Info("test token issued",
		zap.String("application_id", applicationID),
		zap.String("token_hint", token.TokenHint),
		zap.Time("expires_at", token.ExpiresAt),
		zap.Bool("reissue", !first))

	if s.notifier != nil {
		s.notifier.Publish(ctx, models.Event{
			Type:          models.EventTokenIssued,
			ApplicationID: app.ID,
			Email:         app.Email,
			FullName:      app.FullName,
			Payload: map[string]interface{}{
				"token":            raw,
				"testUrl":          s.testURL(raw),
				"expiresAt":        token.ExpiresAt,
				"timeLimitMinutes": int(s.cfg.TimeLimit / time.Minute),
				"totalQuestions":   s.cfg.Questions,
			},
		})
	}
	return &IssuedToken{Raw: raw, Token: token, Applicant: *app}, nil
}

// Verify checks a token without consuming it.
func (s *TokenService) Verify(ctx context.Context, raw string) (*dto.VerifyTokenResponse, error) {
	state, err := s.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	failure := ClassifyToken(state, s.now())
	if failure != models.TokenFailureNone {
		s.metrics.TokenRejected(string(failure))
		return &dto.VerifyTokenResponse{Valid: false, Reason: failure}, nil
	}
	expires := state.ExpiresAt
	resp := &dto.VerifyTokenResponse{
		Valid:            true,
		ApplicantName:    state.ApplicantName,
		Specialization:   state.Specialization,
		TimeLimitMinutes: int(s.cfg.TimeLimit / time.Minute),
		TotalQuestions:   s.cfg.Questions,
		ExpiresAt:        &expires,
	}
	return resp, nil
}

// Failure explains why raw can no longer be consumed. It is used after a
// consume attempt matched no row.
func (s *TokenService) Failure(ctx context.Context, raw string) (models.TokenFailure, error) {
	state, err := s.lookup(ctx, raw)
	if err != nil {
		return models.TokenFailureNone, err
	}
	return ClassifyToken(state, s.now()), nil
}

func (s *TokenService) lookup(ctx context.Context, raw string) (*models.TokenState, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	state, err := s.store.FindState(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test token")
	}
	return state, nil
}

func (s *TokenService) testURL(raw string) string {
	if s.cfg.TestURL == "" {
		return ""
	}
	u, err := url.Parse(s.cfg.TestURL)
	if err != nil {
		return s.cfg.TestURL + "?token=" + url.QueryEscape(raw)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String()
}

// ClassifyToken decides why a token cannot start a session at now. A nil state means unknown.
func ClassifyToken(state *models.TokenState, now time.Time) models.TokenFailure {
	switch {
	case state == nil:
		return models.TokenFailureNotFound
	case state.Consumed:
		return models.TokenFailureAlreadyConsumed
	case !state.ExpiresAt.After(now):
		return models.TokenFailureExpired
	case state.ApplicationStatus != models.ApplicationStatusTestIssued:
		return models.TokenFailureApplicationWithdrawn
	}
	return models.TokenFailureNone
}

// TokenFailureError maps a failure reason to its API error.
func TokenFailureError(failure models.TokenFailure) *appErrors.Error {
	switch failure {
	case models.TokenFailureExpired:
		return appErrors.ErrTokenExpired
	case models.TokenFailureAlreadyConsumed:
		return appErrors.ErrTokenAlreadyConsumed
	case models.TokenFailureApplicationWithdrawn:
		return appErrors.ErrApplicationWithdrawn
	default:
		return appErrors.ErrTokenNotFound
	}
}

// HashToken returns the hex BLAKE2b-256 digest stored in place of the raw token.
func HashToken(raw string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func tokenHint(raw string) string {
	if len(raw) <= 4 {
		return raw
	}
	return raw[len(raw)-4:]
}
