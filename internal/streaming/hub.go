package streaming

import (
	"context"
	"time"
)

// StreamEvent is a real-time event emitted while a learner works through a lesson.
type StreamEvent struct {
	LearnerID string    `json:"learner_id"`
	SessionID string    `json:"session_id,omitempty"`
	LessonID  string    `json:"lesson_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	EventType string    `json:"event_type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	LearnerID  string   `json:"learner_id,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for real-time learner events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
