package models

import "time"

// TestToken is a single-use credential granting access to one test session.
// Only the digest of the raw token is persisted.
type TestToken struct {
	ID            string     `db:"id" json:"id"`
	ApplicationID string     `db:"application_id" json:"applicationId"`
	TokenHash     string     `db:"token_hash" json:"-"`
	TokenHint     string     `db:"token_hint" json:"tokenHint"`
	IssuedAt      time.Time  `db:"issued_at" json:"issuedAt"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expiresAt"`
	Consumed      bool       `db:"consumed" json:"consumed"`
	ConsumedAt    *time.Time `db:"consumed_at" json:"consumedAt,omitempty"`
}

// TokenState is a token row joined with the owning application's status,
// used to classify verify and consume failures.
type TokenState struct {
	TestToken
	ApplicationStatus ApplicationStatus `db:"application_status"`
	ApplicantName     string            `db:"full_name"`
	Specialization    string            `db:"specialization"`
}

// Live reports whether the token could still start a session at now.
func (t TestToken) Live(now time.Time) bool {
	return !t.Consumed && t.ExpiresAt.After(now)
}

// TokenFailure classifies why a token cannot be used.
type TokenFailure string

const (
	TokenFailureNone                 TokenFailure = ""
	TokenFailureNotFound             TokenFailure = "NotFound"
	TokenFailureExpired              TokenFailure = "Expired"
	TokenFailureAlreadyConsumed      TokenFailure = "AlreadyConsumed"
	TokenFailureApplicationWithdrawn TokenFailure = "ApplicationWithdrawn"
)
