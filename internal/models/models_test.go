package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ApplicationStatus
		allowed  bool
	}{
		{ApplicationStatusPending, ApplicationStatusTestIssued, true},
		{ApplicationStatusTestIssued, ApplicationStatusTestInProgress, true},
		{ApplicationStatusTestInProgress, ApplicationStatusScored, true},
		{ApplicationStatusScored, ApplicationStatusApproved, true},
		{ApplicationStatusScored, ApplicationStatusCooldownActive, true},
		{ApplicationStatusCooldownActive, ApplicationStatusPending, true},
		{ApplicationStatusRejected, ApplicationStatusPending, true},
		{ApplicationStatusPending, ApplicationStatusApproved, false},
		{ApplicationStatusTestInProgress, ApplicationStatusRejected, false},
		{ApplicationStatusApproved, ApplicationStatusPending, false},
		{ApplicationStatusApproved, ApplicationStatusRejected, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestApplicationStatusValid(t *testing.T) {
	assert.True(t, ApplicationStatusCooldownActive.Valid())
	assert.False(t, ApplicationStatus("WITHDRAWN").Valid())
	assert.True(t, ApplicationStatusApproved.Terminal())
	assert.False(t, ApplicationStatusRejected.Terminal())
}

func TestIsSpecialization(t *testing.T) {
	assert.True(t, IsSpecialization("DevOps"))
	assert.False(t, IsSpecialization("devops"))
	assert.False(t, IsSpecialization(""))
}

func TestTestSessionDeadline(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	session := TestSession{Status: SessionStatusActive, StartedAt: start, MustSubmitBy: start.Add(30 * time.Minute)}

	assert.False(t, session.Overdue(start.Add(29*time.Minute)))
	assert.False(t, session.Overdue(start.Add(30*time.Minute)), "deadline itself is on time")
	assert.True(t, session.Overdue(start.Add(30*time.Minute+time.Nanosecond)))
	assert.False(t, session.Finalized())

	session.Status = SessionStatusExpired
	assert.True(t, session.Finalized())
	assert.False(t, session.Overdue(start.Add(time.Hour)))
}
