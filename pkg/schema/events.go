package schema

// Event type constants for the learner event log.
const (
	EventLearnerRegistered = "learner_registered"

	EventLessonStarted   = "lesson_started"
	EventLessonCompleted = "lesson_completed"
	EventStepAdvanced    = "step_advanced"
	EventStepBack        = "step_back"
	EventHintRevealed    = "hint_revealed"
	EventHintsReset      = "hints_reset"
	EventChallengeRated  = "challenge_rated"

	EventXPAwarded = "xp_awarded"
	EventLevelUp   = "level_up"

	EventSessionAbandoned = "session_abandoned"
	EventSessionResumed   = "session_resumed"
)

// SessionStatus represents the lifecycle state of a lesson session.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// IsTerminal reports whether no further step navigation is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}
