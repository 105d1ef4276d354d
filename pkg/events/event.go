package events

import (
	"time"

	"vas-training-be/pkg/store"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeSessionCompleted = "SESSION_COMPLETED"
	TypeSessionExpired   = "SESSION_EXPIRED"
	TypeSOPIngested      = "SOP_INGESTED"
)

// NewSessionCompleted builds the event emitted when a session reaches a
// terminal state, whether by the trainee finishing or the operator ending it.
func NewSessionCompleted(completed *store.CompletedSession) BaseEvent {
	data := map[string]interface{}{
		"session_id":   completed.ID,
		"owner_id":     completed.OwnerID,
		"duration_ms":  completed.DurationMs,
		"completed_at": completed.CompletedAt,
	}
	if completed.Feedback != nil {
		data["overall_score"] = completed.Feedback.OverallScore
		data["grade"] = completed.Feedback.Grade
	}
	return BaseEvent{
		Type:       TypeSessionCompleted,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

// NewSessionExpired marks a session force-completed by the stale sweep.
func NewSessionExpired(sessionID, ownerID string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionExpired,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"owner_id":   ownerID,
		},
		OccurredAt: time.Now(),
	}
}

func NewSOPIngested(source, category string, chunks int) BaseEvent {
	return BaseEvent{
		Type: TypeSOPIngested,
		Data: map[string]interface{}{
			"source":   source,
			"category": category,
			"chunks":   chunks,
		},
		OccurredAt: time.Now(),
	}
}
