package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	"github.com/noah-isme/mentor-assessment-api/pkg/database"
)

var (
	// ErrStatusMismatch reports that a guarded transition found the row in another status.
	ErrStatusMismatch = errors.New("application status mismatch")
	// ErrRetryNotElapsed reports that a reapplication arrived before retry_allowed_at.
	ErrRetryNotElapsed = errors.New("application retry window not elapsed")
)

const applicationColumns = `id, full_name, email, phone_number, specialization, years_of_experience, linkedin_url, bio,
       current_position, company, status, test_attempts, final_score, retry_allowed_at, cooldown_notified,
       user_id, created_at, updated_at`

// ApplicationRepository persists mentor applications and their transition trail.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application together with its initial event.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.MentorApplication, actor string) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusPending
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt
	app.Email = strings.ToLower(strings.TrimSpace(app.Email))

	const query = `INSERT INTO mentor_applications
	(id, full_name, email, phone_number, specialization, years_of_experience, linkedin_url, bio, current_position,
	 company, status, test_attempts, final_score, retry_allowed_at, cooldown_notified, user_id, created_at, updated_at)
	VALUES (:id, :full_name, :email, :phone_number, :specialization, :years_of_experience, :linkedin_url, :bio,
	 :current_position, :company, :status, :test_attempts, :final_score, :retry_allowed_at, :cooldown_notified,
	 :user_id, :created_at, :updated_at)`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, app); err != nil {
			return fmt.Errorf("create mentor application: %w", err)
		}
		return insertEvent(ctx, tx, models.ApplicationEvent{
			ApplicationID: app.ID,
			ToStatus:      app.Status,
			Reason:        "application submitted",
			Actor:         actor,
			CreatedAt:     app.CreatedAt,
		})
	})
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.MentorApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM mentor_applications WHERE id = $1`
	var app models.MentorApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByEmail fetches an application by case-insensitive email.
func (r *ApplicationRepository) GetByEmail(ctx context.Context, email string) (*models.MentorApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM mentor_applications WHERE email = $1`
	var app models.MentorApplication
	if err := r.db.GetContext(ctx, &app, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications matching the filter, newest first, with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.MentorApplication, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Specialization != "" {
		args = append(args, filter.Specialization)
		conditions = append(conditions, fmt.Sprintf("specialization = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR email LIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM mentor_applications`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count mentor applications: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM mentor_applications%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		applicationColumns, where, pageSize, (page-1)*pageSize)

	var apps []models.MentorApplication
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mentor applications: %w", err)
	}
	return apps, total, nil
}

// ListEvents returns the transition trail of an application in order.
func (r *ApplicationRepository) ListEvents(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error) {
	const query = `SELECT id, application_id, from_status, to_status, reason, actor, created_at
	FROM application_events WHERE application_id = $1 ORDER BY created_at ASC, id ASC`
	var events []models.ApplicationEvent
	if err := r.db.SelectContext(ctx, &events, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application events: %w", err)
	}
	return events, nil
}

// ProfileUpdate replaces applicant-provided fields on reapplication.
type ProfileUpdate struct {
	FullName          string
	PhoneNumber       *string
	Specialization    string
	YearsOfExperience int
	LinkedInURL       *string
	Bio               string
	CurrentPosition   *string
	Company           *string
}

// TransitionParams describes a guarded status change.
type TransitionParams struct {
	ID     string
	From   []models.ApplicationStatus
	To     models.ApplicationStatus
	Reason string
	Actor  string
	Now    time.Time
	// ClearRetry resets retry_allowed_at and the cooldown notification flag.
	ClearRetry bool
	// RequireRetryElapsed rejects the change while retry_allowed_at is in the future.
	RequireRetryElapsed bool
	Profile             *ProfileUpdate
}

// Transition moves an application between statuses under a row lock and
// appends the matching event. It returns sql.ErrNoRows for unknown ids and
// ErrStatusMismatch when the current status is not in params.From.
func (r *ApplicationRepository) Transition(ctx context.Context, params TransitionParams) (*models.MentorApplication, error) {
	if params.Now.IsZero() {
		params.Now = time.Now().UTC()
	}
	var updated models.MentorApplication
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := lockApplication(ctx, tx, params.ID)
		if err != nil {
			return err
		}
		if !statusIn(current.Status, params.From) {
			return ErrStatusMismatch
		}
		if params.RequireRetryElapsed && current.RetryAllowedAt != nil && params.Now.Before(*current.RetryAllowedAt) {
			return ErrRetryNotElapsed
		}

		sets := []string{"status = :to", "updated_at = :now"}
		values := map[string]interface{}{"id": params.ID, "to": params.To, "now": params.Now}
		if params.ClearRetry {
			sets = append(sets, "retry_allowed_at = NULL", "cooldown_notified = FALSE")
		}
		if p := params.Profile; p != nil {
			sets = append(sets,
				"full_name = :full_name", "phone_number = :phone_number", "specialization = :specialization",
				"years_of_experience = :years_of_experience", "linkedin_url = :linkedin_url", "bio = :bio",
				"current_position = :current_position", "company = :company")
			values["full_name"] = p.FullName
			values["phone_number"] = p.PhoneNumber
			values["specialization"] = p.Specialization
			values["years_of_experience"] = p.YearsOfExperience
			values["linkedin_url"] = p.LinkedInURL
			values["bio"] = p.Bio
			values["current_position"] = p.CurrentPosition
			values["company"] = p.Company
		}
		query := fmt.Sprintf("UPDATE mentor_applications SET %s WHERE id = :id", strings.Join(sets, ", "))
		if _, err := tx.NamedExecContext(ctx, query, values); err != nil {
			return fmt.Errorf("update mentor application status: %w", err)
		}
		if err := insertEvent(ctx, tx, models.ApplicationEvent{
			ApplicationID: params.ID,
			FromStatus:    current.Status,
			ToStatus:      params.To,
			Reason:        params.Reason,
			Actor:         params.Actor,
			CreatedAt:     params.Now,
		}); err != nil {
			return err
		}
		reloaded, err := getApplication(ctx, tx, params.ID)
		if err != nil {
			return fmt.Errorf("reload mentor application: %w", err)
		}
		updated = *reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListCooldownElapsed returns applications whose cooldown ended but were not yet notified.
func (r *ApplicationRepository) ListCooldownElapsed(ctx context.Context, now time.Time, limit int) ([]models.MentorApplication, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + applicationColumns + ` FROM mentor_applications
	WHERE status = $1 AND retry_allowed_at <= $2 AND cooldown_notified = FALSE
	ORDER BY retry_allowed_at ASC LIMIT $3`
	var apps []models.MentorApplication
	if err := r.db.SelectContext(ctx, &apps, query, models.ApplicationStatusCooldownActive, now, limit); err != nil {
		return nil, fmt.Errorf("list elapsed cooldowns: %w", err)
	}
	return apps, nil
}

// MarkCooldownNotified flags the application so the elapsed event fires once.
// It returns false when another sweep already claimed it.
func (r *ApplicationRepository) MarkCooldownNotified(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE mentor_applications SET cooldown_notified = TRUE
	WHERE id = $1 AND cooldown_notified = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark cooldown notified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check cooldown notified rows: %w", err)
	}
	return rows == 1, nil
}

func lockApplication(ctx context.Context, tx *sqlx.Tx, id string) (*models.MentorApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM mentor_applications WHERE id = $1 FOR UPDATE`
	var app models.MentorApplication
	if err := tx.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock mentor application: %w", err)
	}
	return &app, nil
}

func getApplication(ctx context.Context, q sqlx.QueryerContext, id string) (*models.MentorApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM mentor_applications WHERE id = $1`
	var app models.MentorApplication
	if err := sqlx.GetContext(ctx, q, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, event models.ApplicationEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Actor == "" {
		event.Actor = models.SystemActor
	}
	const query = `INSERT INTO application_events (id, application_id, from_status, to_status, reason, actor, created_at)
	VALUES (:id, :application_id, :from_status, :to_status, :reason, :actor, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert application event: %w", err)
	}
	return nil
}

func statusIn(status models.ApplicationStatus, set []models.ApplicationStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
