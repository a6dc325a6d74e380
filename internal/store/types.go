package store

import (
	"encoding/json"
	"time"

	"github.com/axiometa/academy/pkg/schema"
)

// Learner is a registered learner identity.
type Learner struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Role       string          `json:"role"` // student, mentor, guest
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastSeenAt *time.Time      `json:"last_seen_at,omitempty"`
}

// Progress is a learner's persisted level state.
type Progress struct {
	LearnerID string `json:"learner_id"`
	schema.UserProgress
	SelectedKit string    `json:"selected_kit,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CompletedLesson records the first completion of a lesson by a learner.
type CompletedLesson struct {
	LearnerID   string    `json:"learner_id"`
	LessonID    string    `json:"lesson_id"`
	XPAwarded   int       `json:"xp_awarded"`
	CompletedAt time.Time `json:"completed_at"`
}

// LessonSession is one attempt at a lesson: the step cursor and revealed hints.
type LessonSession struct {
	ID            string               `json:"id"`
	LearnerID     string               `json:"learner_id"`
	LessonID      string               `json:"lesson_id"`
	Status        schema.SessionStatus `json:"status"`
	StepIndex     int                  `json:"step_index"`
	RevealedHints map[string]int       `json:"revealed_hints,omitempty"` // step id -> hints shown
	StartedAt     time.Time            `json:"started_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// ChallengeRating is the star score a learner gave themselves on a challenge step.
type ChallengeRating struct {
	LearnerID string    `json:"learner_id"`
	LessonID  string    `json:"lesson_id"`
	StepID    string    `json:"step_id"`
	Stars     int       `json:"stars"`
	RatedAt   time.Time `json:"rated_at"`
}

// Event is an immutable entry in a learner's event log.
type Event struct {
	ID        int64           `json:"id"`
	LearnerID string          `json:"learner_id"`
	SessionID string          `json:"session_id,omitempty"`
	LessonID  string          `json:"lesson_id,omitempty"`
	StepID    string          `json:"step_id,omitempty"`
	Type      string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
}

// --- Filter and update types ---

// SessionUpdate specifies mutable fields of a session.
type SessionUpdate struct {
	Status        *schema.SessionStatus `json:"status,omitempty"`
	StepIndex     *int                  `json:"step_index,omitempty"`
	RevealedHints map[string]int        `json:"revealed_hints,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	LearnerID string                `json:"learner_id,omitempty"`
	LessonID  string                `json:"lesson_id,omitempty"`
	Status    *schema.SessionStatus `json:"status,omitempty"`
	Limit     int                   `json:"limit,omitempty"`
}

// EventFilter specifies criteria for listing events.
type EventFilter struct {
	LearnerID string     `json:"learner_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}
