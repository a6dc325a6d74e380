package lesson

import (
	"context"
	"slices"
	"sync"

	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/pkg/schema"
)

// TransitionHook is called before or after a state transition.
type TransitionHook func(from, to schema.SessionStatus) error

// EventAppender is satisfied by the Store and EventLog; used by the FSM to emit events on transitions.
type EventAppender interface {
	AppendEvent(ctx context.Context, event *store.Event) error
}

// SessionRef identifies the session a transition applies to.
type SessionRef struct {
	LearnerID string
	SessionID string
	LessonID  string
}

type sessionHookKey struct {
	from, to schema.SessionStatus
}

// SessionFSM manages lesson session lifecycle state transitions.
type SessionFSM struct {
	mu       sync.Mutex
	appender EventAppender
	before   map[sessionHookKey][]TransitionHook
	after    map[sessionHookKey][]TransitionHook
}

// NewSessionFSM creates a SessionFSM that emits events via the given appender.
func NewSessionFSM(appender EventAppender) *SessionFSM {
	return &SessionFSM{
		appender: appender,
		before:   make(map[sessionHookKey][]TransitionHook),
		after:    make(map[sessionHookKey][]TransitionHook),
	}
}

// OnBefore registers a hook called before a transition. A hook error aborts it.
func (f *SessionFSM) OnBefore(from, to schema.SessionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionHookKey{from, to}
	f.before[key] = append(f.before[key], hook)
}

// OnAfter registers a hook called after a transition's event is recorded.
func (f *SessionFSM) OnAfter(from, to schema.SessionStatus, hook TransitionHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sessionHookKey{from, to}
	f.after[key] = append(f.after[key], hook)
}

// Transition validates and executes a session state transition and emits its event.
// The caller is responsible for persisting the new status to the store.
func (f *SessionFSM) Transition(ctx context.Context, ref SessionRef, from, to schema.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !CanTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid session transition: %s -> %s", from, to).
			WithDetails(map[string]any{"session_id": ref.SessionID, "from": string(from), "to": string(to)})
	}

	key := sessionHookKey{from, to}
	for _, hook := range f.before[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}

	event := &store.Event{
		LearnerID: ref.LearnerID,
		SessionID: ref.SessionID,
		LessonID:  ref.LessonID,
		Type:      sessionEventType(from, to),
	}
	if err := f.appender.AppendEvent(ctx, event); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "emit session event: %s", err.Error()).WithCause(err)
	}

	for _, hook := range f.after[key] {
		if err := hook(from, to); err != nil {
			return err
		}
	}
	return nil
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to schema.SessionStatus) bool {
	return slices.Contains(ValidSessionTransitions[from], to)
}

// sessionEventType names the event for a transition. Replaying a completed
// lesson starts it over; leaving abandonment resumes where the learner stopped.
func sessionEventType(from, to schema.SessionStatus) string {
	switch to {
	case schema.SessionCompleted:
		return schema.EventLessonCompleted
	case schema.SessionAbandoned:
		return schema.EventSessionAbandoned
	}
	if from == schema.SessionCompleted {
		return schema.EventLessonStarted
	}
	return schema.EventSessionResumed
}

// ValidSessionTransitions defines the allowed state transitions for lesson sessions.
var ValidSessionTransitions = map[schema.SessionStatus][]schema.SessionStatus{
	schema.SessionInProgress: {schema.SessionCompleted, schema.SessionAbandoned},
	schema.SessionAbandoned:  {schema.SessionInProgress},
	schema.SessionCompleted:  {schema.SessionInProgress},
}
