package models

import "time"

// EventType names outbound notification events.
type EventType string

const (
	EventTokenIssued     EventType = "TokenIssued"
	EventResultAvailable EventType = "ResultAvailable"
	EventMentorApproved  EventType = "MentorApproved"
	EventCooldownElapsed EventType = "CooldownElapsed"
)

// Event is published to the outbox for external delivery.
type Event struct {
	ID            string                 `json:"id"`
	Type          EventType              `json:"type"`
	ApplicationID string                 `json:"applicationId"`
	Email         string                 `json:"email"`
	FullName      string                 `json:"fullName"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
}
