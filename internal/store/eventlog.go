package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/axiometa/academy/pkg/schema"
)

// EventLog provides event-sourcing operations on top of a LibSQLStore.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide event-sourcing operations.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// NavigationPayload is carried by lesson_started, step_advanced and step_back events.
type NavigationPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// HintPayload is carried by hint_revealed events.
type HintPayload struct {
	Revealed int `json:"revealed"`
	Total    int `json:"total"`
}

// SessionState is a lesson session reconstructed from its events.
type SessionState struct {
	SessionID     string
	LessonID      string
	Status        schema.SessionStatus
	StepIndex     int
	RevealedHints map[string]int
	StartedAt     *time.Time
	CompletedAt   *time.Time
	LastSequence  int64
}

// AppendEvent appends an event with a monotonically increasing per-learner sequence.
func (el *EventLog) AppendEvent(ctx context.Context, event *Event) error {
	return el.AppendEvents(ctx, event)
}

// AppendEvents appends events atomically, in order, under a single write lock.
func (el *EventLog) AppendEvents(ctx context.Context, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	return el.store.retry.run(ctx, func() error { return el.appendTx(ctx, events) })
}

func (el *EventLog) appendTx(ctx context.Context, events []*Event) error {
	tx, err := el.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin immediate tx: %w", err)
	}
	defer tx.Rollback()

	// BeginTx in WAL mode starts a deferred transaction; a write forces the lock
	// before the sequence is read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	for _, e := range events {
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetEvents returns events for a learner with sequence > since, ordered by sequence ASC.
func (el *EventLog) GetEvents(ctx context.Context, learnerID string, since int64) ([]*Event, error) {
	return el.store.GetEvents(ctx, learnerID, since)
}

// GetEventsByType returns events of a specific type matching the filter.
func (el *EventLog) GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error) {
	return el.store.GetEventsByType(ctx, eventType, filter)
}

// SessionEvents returns the events recorded for one session in sequence order.
func (el *EventLog) SessionEvents(ctx context.Context, sessionID string) ([]*Event, error) {
	rows, err := el.store.DB().QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE session_id = ? ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ReplaySession rebuilds a session's cursor and hint counts from its events.
// Sequences must be strictly increasing; a session's events interleave with
// the learner's other events so gaps are expected.
func (el *EventLog) ReplaySession(ctx context.Context, sessionID string) (*SessionState, error) {
	events, err := el.SessionEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get events for replay: %w", err)
	}
	if len(events) == 0 {
		return nil, storeNotFound("session events", sessionID)
	}

	st := &SessionState{
		SessionID:     sessionID,
		LessonID:      events[0].LessonID,
		Status:        schema.SessionInProgress,
		RevealedHints: make(map[string]int),
	}

	for i, e := range events {
		if i > 0 && e.Sequence <= events[i-1].Sequence {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence out of order in session %s: %d after %d", sessionID, e.Sequence, events[i-1].Sequence)
		}
		st.LastSequence = e.Sequence
		ts := e.Timestamp

		switch e.Type {
		case schema.EventLessonStarted:
			st.Status = schema.SessionInProgress
			st.StepIndex = 0
			st.StartedAt = &ts

		case schema.EventStepAdvanced, schema.EventStepBack:
			var p NavigationPayload
			if err := decodePayload(e, &p); err != nil {
				return nil, err
			}
			st.StepIndex = p.To

		case schema.EventHintRevealed:
			var p HintPayload
			if err := decodePayload(e, &p); err != nil {
				return nil, err
			}
			if p.Revealed > st.RevealedHints[e.StepID] {
				st.RevealedHints[e.StepID] = p.Revealed
			}

		case schema.EventHintsReset:
			delete(st.RevealedHints, e.StepID)

		case schema.EventLessonCompleted:
			st.Status = schema.SessionCompleted
			st.CompletedAt = &ts

		case schema.EventSessionAbandoned:
			st.Status = schema.SessionAbandoned

		case schema.EventSessionResumed:
			st.Status = schema.SessionInProgress
			st.CompletedAt = nil
		}
	}
	return st, nil
}

func decodePayload(e *Event, v any) error {
	if len(e.Payload) == 0 {
		return schema.NewErrorf(schema.ErrCodeStore, "event %d (%s) has no payload", e.Sequence, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "event %d (%s): bad payload", e.Sequence, e.Type).WithCause(err)
	}
	return nil
}
