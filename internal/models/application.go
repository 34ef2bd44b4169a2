package models

import "time"

// ApplicationStatus tracks a mentor application through the assessment lifecycle.
type ApplicationStatus string

const (
	ApplicationStatusPending        ApplicationStatus = "PENDING"
	ApplicationStatusTestIssued     ApplicationStatus = "TEST_ISSUED"
	ApplicationStatusTestInProgress ApplicationStatus = "TEST_IN_PROGRESS"
	// ApplicationStatusScored is transient: finalization records it in the
	// event trail and moves the row on to the outcome in the same transaction.
	ApplicationStatusScored         ApplicationStatus = "SCORED"
	ApplicationStatusApproved       ApplicationStatus = "APPROVED"
	ApplicationStatusRejected       ApplicationStatus = "REJECTED"
	ApplicationStatusCooldownActive ApplicationStatus = "COOLDOWN_ACTIVE"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:        {ApplicationStatusTestIssued, ApplicationStatusRejected},
	ApplicationStatusTestIssued:     {ApplicationStatusTestInProgress, ApplicationStatusRejected},
	ApplicationStatusTestInProgress: {ApplicationStatusScored},
	ApplicationStatusScored:         {ApplicationStatusApproved, ApplicationStatusCooldownActive, ApplicationStatusRejected},
	ApplicationStatusCooldownActive: {ApplicationStatusPending, ApplicationStatusRejected},
	ApplicationStatusRejected:       {ApplicationStatusPending},
}

// CanTransition reports whether the state machine allows moving from one status to another.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusTestIssued, ApplicationStatusTestInProgress,
		ApplicationStatusScored, ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusCooldownActive:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transitions exist.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusApproved
}

// MentorApplication is the persisted applicant profile and assessment state.
type MentorApplication struct {
	ID                string            `db:"id" json:"id"`
	FullName          string            `db:"full_name" json:"fullName"`
	Email             string            `db:"email" json:"email"`
	PhoneNumber       *string           `db:"phone_number" json:"phoneNumber,omitempty"`
	Specialization    string            `db:"specialization" json:"specialization"`
	YearsOfExperience int               `db:"years_of_experience" json:"yearsOfExperience"`
	LinkedInURL       *string           `db:"linkedin_url" json:"linkedinUrl,omitempty"`
	Bio               string            `db:"bio" json:"bio"`
	CurrentPosition   *string           `db:"current_position" json:"currentPosition,omitempty"`
	Company           *string           `db:"company" json:"company,omitempty"`
	Status            ApplicationStatus `db:"status" json:"status"`
	TestAttempts      int               `db:"test_attempts" json:"testAttempts"`
	FinalScore        *float64          `db:"final_score" json:"finalScore,omitempty"`
	RetryAllowedAt    *time.Time        `db:"retry_allowed_at" json:"retryAllowedAt,omitempty"`
	CooldownNotified  bool              `db:"cooldown_notified" json:"-"`
	UserID            *string           `db:"user_id" json:"userId,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
}

// ApplicationEvent is one row of the append-only transition trail.
type ApplicationEvent struct {
	ID            string            `db:"id" json:"id"`
	ApplicationID string            `db:"application_id" json:"applicationId"`
	FromStatus    ApplicationStatus `db:"from_status" json:"fromStatus"`
	ToStatus      ApplicationStatus `db:"to_status" json:"toStatus"`
	Reason        string            `db:"reason" json:"reason"`
	Actor         string            `db:"actor" json:"actor"`
	CreatedAt     time.Time         `db:"created_at" json:"createdAt"`
}

// ApplicationFilter constrains reviewer listing queries.
type ApplicationFilter struct {
	Status         []ApplicationStatus
	Specialization string
	Search         string
	Page           int
	PageSize       int
}

// Pagination describes paging metadata in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// SystemActor marks transitions made by the engine itself.
const SystemActor = "system"

// Specializations lists the accepted mentor specializations.
var Specializations = []string{
	"Software Engineering",
	"Data Science",
	"Machine Learning",
	"Web Development",
	"Mobile Development",
	"UI/UX Design",
	"DevOps",
	"Cybersecurity",
	"Cloud Computing",
	"Project Management",
	"Product Management",
	"Business Analysis",
	"Digital Marketing",
	"Other",
}

// IsSpecialization reports whether name is one of Specializations.
func IsSpecialization(name string) bool {
	for _, s := range Specializations {
		if s == name {
			return true
		}
	}
	return false
}
