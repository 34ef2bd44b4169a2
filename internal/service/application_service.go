package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/dto"
	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

// ApplicantActor marks transitions requested by the applicant.
const ApplicantActor = "applicant"

type applicationStore interface {
	Create(ctx context.Context, app *models.MentorApplication, actor string) error
	GetByID(ctx context.Context, id string) (*models.MentorApplication, error)
	GetByEmail(ctx context.Context, email string) (*models.MentorApplication, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.MentorApplication, int, error)
	ListEvents(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error)
	Transition(ctx context.Context, params repository.TransitionParams) (*models.MentorApplication, error)
}

type sessionHistory interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.TestSession, error)
}

type tokenIssuer interface {
	Issue(ctx context.Context, applicationID, actor string) (*IssuedToken, error)
	Reissue(ctx context.Context, applicationID, actor string) (*IssuedToken, error)
}

// ApplicationConfig tunes the application workflow.
type ApplicationConfig struct {
	AutoIssueToken bool
}

// ApplicationService drives the application state machine outside of test sittings.
type ApplicationService struct {
	repo      applicationStore
	sessions  sessionHistory
	tokens    tokenIssuer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ApplicationConfig
	now       func() time.Time
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationStore, sessions sessionHistory, tokens tokenIssuer, validate *validator.Validate, logger *zap.Logger, cfg ApplicationConfig) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApplicationService{repo: repo, sessions: sessions, tokens: tokens, validator: validate, logger: logger, cfg: cfg, now: time.Now}
	svc.validator.RegisterValidation("specialization", func(fl validator.FieldLevel) bool {
		return models.IsSpecialization(fl.Field().String())
	})
	return svc
}

// ListSpecializations returns the accepted specializations.
func (s *ApplicationService) ListSpecializations() []string {
	out := make([]string, len(models.Specializations))
	copy(out, models.Specializations)
	return out
}

// Apply registers a new application, or routes a known email to reapplication.
func (s *ApplicationService) Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return s.reapply(ctx, existing, req)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	app := &models.MentorApplication{
		FullName:          req.FullName,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		Specialization:    req.Specialization,
		YearsOfExperience: req.YearsOfExperience,
		LinkedInURL:       req.LinkedInURL,
		Bio:               req.Bio,
		CurrentPosition:   req.CurrentPosition,
		Company:           req.Company,
		Status:            models.ApplicationStatusPending,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.repo.Create(ctx, app, ApplicantActor); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an application with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.logger.Info("mentor application received",
		zap.String("application_id", app.ID),
		zap.String("specialization", app.Specialization))
	return s.afterApply(ctx, app, "Your application has been received."), nil
}

func (s *ApplicationService) reapply(ctx context.Context, existing *models.MentorApplication, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	now := s.now().UTC()
	switch existing.Status {
	case models.ApplicationStatusCooldownActive:
		if existing.RetryAllowedAt != nil && now.Before(*existing.RetryAllowedAt) {
			return nil, cooldownError(*existing.RetryAllowedAt, now)
		}
	case models.ApplicationStatusApproved:
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "this email already belongs to an approved mentor")
	case models.ApplicationStatusRejected:
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "this application is closed and cannot be resubmitted")
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, "an application with this email is already in progress")
	}

	app, err := s.transition(ctx, repository.TransitionParams{
		ID:                  existing.ID,
		From:                []models.ApplicationStatus{models.ApplicationStatusCooldownActive},
		To:                  models.ApplicationStatusPending,
		Reason:              "reapplied after cooldown",
		Actor:               ApplicantActor,
		Now:                 now,
		ClearRetry:          true,
		RequireRetryElapsed: true,
		Profile: &repository.ProfileUpdate{
			FullName:          req.FullName,
			PhoneNumber:       req.PhoneNumber,
			Specialization:    req.Specialization,
			YearsOfExperience: req.YearsOfExperience,
			LinkedInURL:       req.LinkedInURL,
			Bio:               req.Bio,
			CurrentPosition:   req.CurrentPosition,
			Company:           req.Company,
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrRetryNotElapsed) && existing.RetryAllowedAt != nil {
			return nil, cooldownError(*existing.RetryAllowedAt, now)
		}
		return nil, err
	}
	s.logger.Info("mentor application resubmitted",
		zap.String("application_id", app.ID),
		zap.Int("attempts", app.TestAttempts))
	return s.afterApply(ctx, app, "Your application has been resubmitted."), nil
}

// afterApply issues the first token when configured. A failed issuance leaves
// the application PENDING for a reviewer to retry.
func (s *ApplicationService) afterApply(ctx context.Context, app *models.MentorApplication, message string) *dto.ApplyResponse {
	resp := &dto.ApplyResponse{
		ApplicationID: app.ID,
		Status:        app.Status,
		TestAttempts:  app.TestAttempts,
		Message:       message,
	}
	if !s.cfg.AutoIssueToken || s.tokens == nil {
		return resp
	}
	issued, err := s.tokens.Issue(ctx, app.ID, models.SystemActor)
	if err != nil {
		s.logger.Warn("automatic token issuance failed", zap.String("application_id", app.ID), zap.Error(err))
		return resp
	}
	resp.Status = issued.Applicant.Status
	resp.Message = message + " A test link has been sent to your email."
	return resp
}

// Status returns the applicant view for email.
func (s *ApplicationService) Status(ctx context.Context, email string) (*dto.ApplicationStatusResponse, error) {
	app, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	now := s.now()
	canReapply := app.Status == models.ApplicationStatusCooldownActive &&
		(app.RetryAllowedAt == nil || !now.Before(*app.RetryAllowedAt))
	return &dto.ApplicationStatusResponse{
		ApplicationID:  app.ID,
		FullName:       app.FullName,
		Specialization: app.Specialization,
		Status:         app.Status,
		TestAttempts:   app.TestAttempts,
		FinalScore:     app.FinalScore,
		RetryAllowedAt: app.RetryAllowedAt,
		CanReapply:     canReapply,
		CreatedAt:      app.CreatedAt,
	}, nil
}

// List returns applications and pagination metadata.
func (s *ApplicationService) List(ctx context.Context, query dto.ApplicationQuery) ([]models.MentorApplication, *models.Pagination, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}
	filter := models.ApplicationFilter{
		Status:         query.Status,
		Specialization: query.Specialization,
		Search:         strings.TrimSpace(query.Search),
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the reviewer detail of one application.
func (s *ApplicationService) Get(ctx context.Context, id string) (*dto.ApplicationDetail, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application history")
	}
	sessions, err := s.sessions.ListByApplication(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load test sessions")
	}
	if events == nil {
		events = []models.ApplicationEvent{}
	}
	if sessions == nil {
		sessions = []models.TestSession{}
	}
	return &dto.ApplicationDetail{Application: *app, Events: events, Sessions: sessions}, nil
}

// IssueToken sends a test link: the first one for a PENDING application, a
// replacement for a TEST_ISSUED one whose link lapsed.
func (s *ApplicationService) IssueToken(ctx context.Context, id, actor string) (*dto.IssueTokenResponse, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	var issued *IssuedToken
	if app.Status == models.ApplicationStatusTestIssued {
		issued, err = s.tokens.Reissue(ctx, id, actor)
	} else {
		issued, err = s.tokens.Issue(ctx, id, actor)
	}
	if err != nil {
		return nil, err
	}
	return &dto.IssueTokenResponse{
		ApplicationID: id,
		TokenHint:     issued.Token.TokenHint,
		ExpiresAt:     issued.Token.ExpiresAt,
	}, nil
}

// Reinstate reopens a rejected application. Attempts are kept, so a further
// failure blocks again.
func (s *ApplicationService) Reinstate(ctx context.Context, id, actor string, req dto.OverrideRequest) (*models.MentorApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	app, err := s.transition(ctx, repository.TransitionParams{
		ID:         id,
		From:       []models.ApplicationStatus{models.ApplicationStatusRejected},
		To:         models.ApplicationStatusPending,
		Reason:     req.Reason,
		Actor:      actor,
		Now:        s.now().UTC(),
		ClearRetry: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mentor application reinstated", zap.String("application_id", id), zap.String("actor", actor))
	return app, nil
}

// Withdraw closes an application that has not started its test. Outstanding
// tokens then verify as withdrawn.
func (s *ApplicationService) Withdraw(ctx context.Context, id, actor string, req dto.OverrideRequest) (*models.MentorApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	app, err := s.transition(ctx, repository.TransitionParams{
		ID: id,
		From: []models.ApplicationStatus{
			models.ApplicationStatusPending,
			models.ApplicationStatusTestIssued,
			models.ApplicationStatusCooldownActive,
		},
		To:     models.ApplicationStatusRejected,
		Reason: req.Reason,
		Actor:  actor,
		Now:    s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mentor application withdrawn", zap.String("application_id", id), zap.String("actor", actor))
	return app, nil
}

// transition keeps only source statuses the state machine allows and maps store errors.
func (s *ApplicationService) transition(ctx context.Context, params repository.TransitionParams) (*models.MentorApplication, error) {
	allowed := make([]models.ApplicationStatus, 0, len(params.From))
	for _, from := range params.From {
		if models.CanTransition(from, params.To) {
			allowed = append(allowed, from)
		}
	}
	if len(allowed) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState, fmt.Sprintf("transition to %s is not allowed", params.To))
	}
	params.From = allowed

	app, err := s.repo.Transition(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		case errors.Is(err, repository.ErrStatusMismatch):
			return nil, appErrors.Clone(appErrors.ErrInvalidApplicationState,
				fmt.Sprintf("the application cannot move to %s from its current status", params.To))
		case errors.Is(err, repository.ErrRetryNotElapsed):
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}
	return app, nil
}

func cooldownError(retryAt, now time.Time) *appErrors.Error {
	remaining := int64(math.Ceil(retryAt.Sub(now).Seconds()))
	if remaining < 0 {
		remaining = 0
	}
	err := appErrors.Clone(appErrors.ErrCooldownActive,
		fmt.Sprintf("you can reapply after %s", retryAt.UTC().Format(time.RFC3339)))
	return appErrors.WithMeta(err, map[string]interface{}{
		"remainingSeconds": remaining,
		"retryAllowedAt":   retryAt.UTC(),
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
