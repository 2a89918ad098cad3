package events

import (
	"time"

	"github.com/spec-kit/member-registry/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMemberRegistered EventType = "member_registered"
	EventSessionCompleted EventType = "ussd_session_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MemberRegisteredPayload payload.
type MemberRegisteredPayload struct {
	MemberID int64                      `json:"member_id"`
	FullName string                     `json:"full_name"`
	Phone    string                     `json:"phone"`
	WardID   int64                      `json:"ward_id"`
	Channel  domain.RegistrationChannel `json:"channel"`
}

// SessionCompletedPayload payload.
type SessionCompletedPayload struct {
	SessionID string `json:"session_id"`
	Phone     string `json:"phone"`
}
