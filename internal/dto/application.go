package dto

import (
	"time"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

// ApplyRequest is the public mentor application form.
type ApplyRequest struct {
	FullName          string  `json:"fullName" validate:"required,min=2,max=100"`
	Email             string  `json:"email" validate:"required,email,max=255"`
	PhoneNumber       *string `json:"phoneNumber" validate:"omitempty,e164"`
	Specialization    string  `json:"specialization" validate:"required,specialization"`
	YearsOfExperience int     `json:"yearsOfExperience" validate:"gte=0,lte=50"`
	LinkedInURL       *string `json:"linkedinUrl" validate:"omitempty,url,max=500"`
	Bio               string  `json:"bio" validate:"max=2000"`
	CurrentPosition   *string `json:"currentPosition" validate:"omitempty,max=500"`
	Company           *string `json:"company" validate:"omitempty,max=500"`
}

// ApplyResponse is returned after an application is accepted.
type ApplyResponse struct {
	ApplicationID string                   `json:"applicationId"`
	Status        models.ApplicationStatus `json:"status"`
	TestAttempts  int                      `json:"testAttempts"`
	Message       string                   `json:"message"`
}

// ApplicationStatusResponse is the applicant-facing status view.
type ApplicationStatusResponse struct {
	ApplicationID  string                   `json:"applicationId"`
	FullName       string                   `json:"fullName"`
	Specialization string                   `json:"specialization"`
	Status         models.ApplicationStatus `json:"status"`
	TestAttempts   int                      `json:"testAttempts"`
	FinalScore     *float64                 `json:"finalScore,omitempty"`
	RetryAllowedAt *time.Time               `json:"retryAllowedAt,omitempty"`
	CanReapply     bool                     `json:"canReapply"`
	CreatedAt      time.Time                `json:"createdAt"`
}

// ApplicationQuery mirrors reviewer listing filters.
type ApplicationQuery struct {
	Status         []models.ApplicationStatus
	Specialization string
	Search         string
	Page           int
	PageSize       int
}

// ApplicationDetail is the reviewer view of one application.
type ApplicationDetail struct {
	Application models.MentorApplication  `json:"application"`
	Events      []models.ApplicationEvent `json:"events"`
	Sessions    []models.TestSession      `json:"sessions"`
}

// OverrideRequest carries the justification for a reviewer override.
type OverrideRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// IssueTokenResponse reports a freshly issued token without the raw secret.
type IssueTokenResponse struct {
	ApplicationID string    `json:"applicationId"`
	TokenHint     string    `json:"tokenHint"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
