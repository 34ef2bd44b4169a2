package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
)

// DefaultCooldownSchedule waits one week after the first failure and thirty days after the second.
var DefaultCooldownSchedule = []time.Duration{7 * 24 * time.Hour, 30 * 24 * time.Hour}

// DefaultMaxAttempts blocks the applicant after the third failed attempt.
const DefaultMaxAttempts = 3

// CooldownDecision is what happens to an application after a failed attempt.
type CooldownDecision struct {
	Status models.ApplicationStatus
	// Wait is zero for a permanent block.
	Wait time.Duration
}

// CooldownPolicy maps the number of failed attempts to a wait or a block.
type CooldownPolicy struct {
	schedule    []time.Duration
	maxAttempts int
}

// NewCooldownPolicy validates the schedule. Waits must be positive and
// non-decreasing so retryAllowedAt never moves backwards between attempts.
func NewCooldownPolicy(schedule []time.Duration, maxAttempts int) (*CooldownPolicy, error) {
	if len(schedule) == 0 {
		schedule = DefaultCooldownSchedule
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for i, wait := range schedule {
		if wait <= 0 {
			return nil, fmt.Errorf("cooldown schedule entry %d must be positive", i+1)
		}
		if i > 0 && wait < schedule[i-1] {
			return nil, fmt.Errorf("cooldown schedule must be non-decreasing: entry %d (%s) < entry %d (%s)", i+1, wait, i, schedule[i-1])
		}
	}
	copied := make([]time.Duration, len(schedule))
	copy(copied, schedule)
	return &CooldownPolicy{schedule: copied, maxAttempts: maxAttempts}, nil
}

// Decide returns the decision after the given number of failed attempts (k >= 1).
// Attempts beyond the schedule but below the limit reuse the last wait.
func (p *CooldownPolicy) Decide(attempts int) CooldownDecision {
	if attempts >= p.maxAttempts {
		return CooldownDecision{Status: models.ApplicationStatusRejected}
	}
	if attempts < 1 {
		attempts = 1
	}
	idx := attempts - 1
	if idx >= len(p.schedule) {
		idx = len(p.schedule) - 1
	}
	return CooldownDecision{Status: models.ApplicationStatusCooldownActive, Wait: p.schedule[idx]}
}

// MaxAttempts returns the attempt count that triggers a permanent block.
func (p *CooldownPolicy) MaxAttempts() int {
	return p.maxAttempts
}
