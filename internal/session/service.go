// Package session moves learners through lessons. Every mutation is persisted
// to the store, appended to the event log and published on the event hub.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/lesson"
	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/internal/streaming"
	"github.com/axiometa/academy/pkg/schema"
)

// Service is the learner-facing lesson session coordinator.
type Service interface {
	// Start opens a lesson for a learner. An in-progress session is resumed,
	// an abandoned one reopened at its step and a completed one replayed from
	// the first step. Locked lessons fail with LOCKED.
	Start(ctx context.Context, learnerID, lessonID string) (*State, error)

	// Get returns a session and the view of its current step.
	Get(ctx context.Context, sessionID string) (*State, error)

	Next(ctx context.Context, sessionID string) (*State, error)
	Back(ctx context.Context, sessionID string) (*State, error)

	// RevealHint shows one more hint of the current challenge step.
	RevealHint(ctx context.Context, sessionID string) (*State, error)
	ResetHints(ctx context.Context, sessionID string) (*State, error)

	// RateChallenge records a 1..3 star self-rating. An empty stepID rates the current step.
	RateChallenge(ctx context.Context, sessionID, stepID string, stars int) error

	// Complete finishes a session on its last step. XP is awarded on the
	// first completion of a lesson only.
	Complete(ctx context.Context, sessionID string) (*Completion, error)

	Abandon(ctx context.Context, sessionID string) (*State, error)

	// AbandonIdle abandons in-progress sessions untouched for longer than idle.
	AbandonIdle(ctx context.Context, idle time.Duration) (int, error)

	// Dashboard builds the learner's home view for kitID, or for the
	// learner's selected kit when kitID is empty.
	Dashboard(ctx context.Context, learnerID, kitID string) (*progress.Dashboard, error)
	SelectKit(ctx context.Context, learnerID, kitID string) error
	Progress(ctx context.Context, learnerID string) (*store.Progress, error)
}

// EventLogger is the slice of the event log the service writes to.
// Satisfied by *store.EventLog.
type EventLogger interface {
	AppendEvent(ctx context.Context, event *store.Event) error
	AppendEvents(ctx context.Context, events ...*store.Event) error
}

// State is a session with the rendered view of its current step.
type State struct {
	Session *store.LessonSession `json:"session"`
	View    *lesson.View         `json:"view"`
}

// Completion is the outcome of finishing a lesson.
type Completion struct {
	Session         *store.LessonSession  `json:"session"`
	FirstCompletion bool                  `json:"first_completion"`
	XPAwarded       int                   `json:"xp_awarded"`
	LevelsGained    int                   `json:"levels_gained"`
	Progress        schema.UserProgress   `json:"progress"`
	XPPercentage    float64               `json:"xp_percentage"`
	NextLesson      *schema.LessonSummary `json:"next_lesson,omitempty"`
}

// XPPayload is carried by xp_awarded events.
type XPPayload struct {
	Awarded int `json:"awarded"`
	Total   int `json:"total"`
}

// LevelPayload is carried by level_up events.
type LevelPayload struct {
	Level       int `json:"level"`
	Gained      int `json:"gained"`
	NextLevelXP int `json:"next_level_xp"`
}

// RatingPayload is carried by challenge_rated events.
type RatingPayload struct {
	Stars int `json:"stars"`
}

// AbandonPayload is carried by session_abandoned events written by idle cleanup.
type AbandonPayload struct {
	Reason string `json:"reason"`
}

// Star bounds for challenge self-ratings.
const (
	MinStars = 1
	MaxStars = 3
)

// Config holds the service's collaborators. Hub and Logger are optional.
type Config struct {
	Store    store.Store
	Events   EventLogger
	Catalog  *catalog.Catalog
	Curve    *progress.LevelCurve
	Unlocker *progress.Unlocker
	Hub      streaming.EventHub
	Logger   *slog.Logger
}

type serviceImpl struct {
	store    store.Store
	events   EventLogger
	catalog  *catalog.Catalog
	curve    *progress.LevelCurve
	unlocker *progress.Unlocker
	renderer *lesson.Renderer
	fsm      *lesson.SessionFSM
	hub      streaming.EventHub
	logger   *slog.Logger
	now      func() time.Time

	sessions keyedMutex
	learners keyedMutex
}

// NewService creates a Service. Events defaults to the store itself.
func NewService(cfg Config) (Service, error) {
	if cfg.Store == nil || cfg.Catalog == nil {
		return nil, fmt.Errorf("session: store and catalog are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(logging.NewCorrelationHandler(slog.NewTextHandler(os.Stderr, nil)))
	}
	if cfg.Events == nil {
		cfg.Events = storeEvents{cfg.Store}
	}
	if cfg.Curve == nil {
		c, err := progress.NewLevelCurve("")
		if err != nil {
			return nil, err
		}
		cfg.Curve = c
	}
	if cfg.Unlocker == nil {
		u, err := progress.NewUnlocker(cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Unlocker = u
	}

	s := &serviceImpl{
		store:    cfg.Store,
		events:   cfg.Events,
		catalog:  cfg.Catalog,
		curve:    cfg.Curve,
		unlocker: cfg.Unlocker,
		renderer: lesson.NewRenderer(cfg.Catalog, cfg.Logger),
		hub:      cfg.Hub,
		logger:   cfg.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.fsm = lesson.NewSessionFSM(publishingAppender{s})
	return s, nil
}

func (s *serviceImpl) Start(ctx context.Context, learnerID, lessonID string) (*State, error) {
	ctx = logging.WithIDs(ctx, learnerID, lessonID, "")
	unlock := s.learners.lock(learnerID)
	defer unlock()

	if _, err := s.store.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	l, ok := s.catalog.Lesson(lessonID)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "lesson %q not found", lessonID)
	}

	completed, err := s.completedIDs(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	p, err := s.progressOf(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if open, st := s.unlocker.IsUnlocked(ctx, s.catalog.LessonsByBoard(l.Board), l.ID, completed, p.UserProgress); !open {
		details := map[string]any{"lesson_id": l.ID}
		if st.Prerequisite != "" {
			details["prerequisite"] = st.Prerequisite
		}
		if st.RuleError != "" {
			details["rule_error"] = st.RuleError
		}
		return nil, schema.NewErrorf(schema.ErrCodeLocked, "lesson %q is locked", l.ID).WithDetails(details)
	}

	latest, err := s.store.ListSessions(ctx, store.SessionFilter{LearnerID: learnerID, LessonID: l.ID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return s.create(ctx, learnerID, l)
	}

	sess := latest[0]
	ctx = logging.WithSessionID(ctx, sess.ID)
	switch sess.Status {
	case schema.SessionInProgress:
		return s.view(sess, l)
	case schema.SessionCompleted:
		// Replays start over at the first step; revealed hints stay.
		if err := s.transition(ctx, sess, schema.SessionInProgress); err != nil {
			return nil, err
		}
		zero := 0
		if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{StepIndex: &zero}); err != nil {
			return nil, err
		}
		sess.StepIndex = 0
	default:
		if err := s.transition(ctx, sess, schema.SessionInProgress); err != nil {
			return nil, err
		}
	}
	logging.LogWith(ctx, s.logger).Info("lesson session reopened", "step_index", sess.StepIndex)
	return s.view(sess, l)
}

func (s *serviceImpl) create(ctx context.Context, learnerID string, l *schema.Lesson) (*State, error) {
	now := s.now()
	sess := &store.LessonSession{
		ID:            uuid.NewString(),
		LearnerID:     learnerID,
		LessonID:      l.ID,
		Status:        schema.SessionInProgress,
		RevealedHints: map[string]int{},
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	ctx = logging.WithSessionID(ctx, sess.ID)
	if err := s.record(ctx, sess, l.Steps[0].ID, schema.EventLessonStarted, store.NavigationPayload{}); err != nil {
		return nil, err
	}
	logging.LogWith(ctx, s.logger).Info("lesson session started")
	return s.view(sess, l)
}

func (s *serviceImpl) Get(ctx context.Context, sessionID string) (*State, error) {
	sess, cur, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) Next(ctx context.Context, sessionID string) (*State, error) {
	return s.navigate(ctx, sessionID, schema.EventStepAdvanced, (*lesson.Cursor).Next)
}

func (s *serviceImpl) Back(ctx context.Context, sessionID string) (*State, error) {
	return s.navigate(ctx, sessionID, schema.EventStepBack, (*lesson.Cursor).Back)
}

func (s *serviceImpl) navigate(ctx context.Context, sessionID, eventType string, move func(*lesson.Cursor) error) (*State, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	sess, cur, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := cur.Index()
	if err := move(cur); err != nil {
		return nil, err
	}
	to := cur.Index()
	if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{StepIndex: &to}); err != nil {
		return nil, err
	}
	sess.StepIndex = to
	if err := s.record(ctx, sess, cur.Step().ID, eventType, store.NavigationPayload{From: from, To: to}); err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) RevealHint(ctx context.Context, sessionID string) (*State, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	sess, cur, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	step := cur.Step()
	before := cur.HintsRevealed(step.ID)
	n, err := cur.RevealHint()
	if err != nil {
		return nil, err
	}
	if n == before {
		return s.stateOf(sess, cur)
	}
	sess.RevealedHints = cur.Revealed()
	if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{RevealedHints: sess.RevealedHints}); err != nil {
		return nil, err
	}
	total := len(step.Body.(*schema.ChallengeStep).Hints)
	if err := s.record(ctx, sess, step.ID, schema.EventHintRevealed, store.HintPayload{Revealed: n, Total: total}); err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) ResetHints(ctx context.Context, sessionID string) (*State, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	sess, cur, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stepID := cur.Step().ID
	if cur.HintsRevealed(stepID) == 0 {
		return s.stateOf(sess, cur)
	}
	cur.ResetHints()
	sess.RevealedHints = cur.Revealed()
	if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{RevealedHints: sess.RevealedHints}); err != nil {
		return nil, err
	}
	if err := s.record(ctx, sess, stepID, schema.EventHintsReset, nil); err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) RateChallenge(ctx context.Context, sessionID, stepID string, stars int) error {
	if stars < MinStars || stars > MaxStars {
		return schema.NewErrorf(schema.ErrCodeValidation, "stars must be between %d and %d, got %d", MinStars, MaxStars, stars)
	}
	sess, cur, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	l := cur.Lesson()
	step := cur.Step()
	if stepID != "" {
		i := l.StepIndex(stepID)
		if i < 0 {
			return schema.NewErrorf(schema.ErrCodeNotFound, "lesson %q has no step %q", l.ID, stepID)
		}
		step = l.Steps[i]
	}
	if step.Type != schema.StepChallenge {
		return schema.NewErrorf(schema.ErrCodeValidation, "step %q is a %s step and cannot be rated", step.ID, step.Type).
			WithStep(step.ID)
	}

	if err := s.store.RateChallenge(ctx, &store.ChallengeRating{
		LearnerID: sess.LearnerID,
		LessonID:  l.ID,
		StepID:    step.ID,
		Stars:     stars,
		RatedAt:   s.now(),
	}); err != nil {
		return err
	}
	return s.record(ctx, sess, step.ID, schema.EventChallengeRated, RatingPayload{Stars: stars})
}

func (s *serviceImpl) Complete(ctx context.Context, sessionID string) (*Completion, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	sess, cur, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	l := cur.Lesson()
	if !lesson.IsLast(l, cur.Index()) {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"lesson %q can only be completed from its last step (at %d of %d)", l.ID, cur.Index()+1, len(l.Steps)).
			WithStep(cur.Step().ID)
	}
	ctx = logging.WithStepID(ctx, cur.Step().ID)

	unlockLearner := s.learners.lock(sess.LearnerID)
	defer unlockLearner()

	p, err := s.progressOf(ctx, sess.LearnerID)
	if err != nil {
		return nil, err
	}
	awarded, gained, err := s.curve.Award(ctx, p.UserProgress, l.XPReward)
	if err != nil {
		return nil, err
	}

	now := s.now()
	saved := *p
	saved.UserProgress = awarded
	first, err := s.store.CompleteLesson(ctx, &store.CompletedLesson{
		LearnerID:   sess.LearnerID,
		LessonID:    l.ID,
		XPAwarded:   l.XPReward,
		CompletedAt: now,
	}, &saved)
	if err != nil {
		return nil, err
	}

	out := &Completion{Session: sess, FirstCompletion: first, Progress: p.UserProgress}
	if first && l.XPReward > 0 {
		out.XPAwarded = l.XPReward
		out.LevelsGained = gained
		out.Progress = awarded

		events := []*store.Event{newEvent(sess, "", schema.EventXPAwarded)}
		if gained > 0 {
			events = append(events, newEvent(sess, "", schema.EventLevelUp))
		}
		payloads := []any{
			XPPayload{Awarded: l.XPReward, Total: awarded.XP},
			LevelPayload{Level: awarded.Level, Gained: gained, NextLevelXP: awarded.NextLevelXP},
		}
		for i, ev := range events {
			if err := setPayload(ev, payloads[i]); err != nil {
				return nil, err
			}
		}
		if err := s.appendAll(ctx, events...); err != nil {
			return nil, err
		}
	}

	if err := s.transition(ctx, sess, schema.SessionCompleted); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{CompletedAt: &now}); err != nil {
		return nil, err
	}
	sess.CompletedAt = &now

	out.XPPercentage = progress.Percentage(out.Progress)
	if next, ok := s.catalog.NextLesson(l); ok {
		sum := next.Summary()
		out.NextLesson = &sum
	}
	logging.LogWith(ctx, s.logger).Info("lesson completed",
		"first", first, "xp_awarded", out.XPAwarded, "levels_gained", out.LevelsGained)
	return out, nil
}

func (s *serviceImpl) Abandon(ctx context.Context, sessionID string) (*State, error) {
	unlock := s.sessions.lock(sessionID)
	defer unlock()

	sess, cur, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, sess, schema.SessionAbandoned); err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) AbandonIdle(ctx context.Context, idle time.Duration) (int, error) {
	if idle <= 0 {
		return 0, schema.NewErrorf(schema.ErrCodeValidation, "idle timeout must be positive, got %s", idle)
	}
	abandoned, err := s.store.AbandonIdleSessions(ctx, s.now().Add(-idle))
	if err != nil {
		return 0, err
	}
	events := make([]*store.Event, 0, len(abandoned))
	for _, sess := range abandoned {
		ev := newEvent(sess, "", schema.EventSessionAbandoned)
		if err := setPayload(ev, AbandonPayload{Reason: "idle"}); err != nil {
			return 0, err
		}
		events = append(events, ev)
	}
	if err := s.appendAll(ctx, events...); err != nil {
		return 0, err
	}
	if len(abandoned) > 0 {
		s.logger.InfoContext(ctx, "abandoned idle sessions", "count", len(abandoned), "idle", idle.String())
	}
	return len(abandoned), nil
}

func (s *serviceImpl) Dashboard(ctx context.Context, learnerID, kitID string) (*progress.Dashboard, error) {
	if _, err := s.store.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	p, err := s.progressOf(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	kit, err := s.pickKit(kitID, p.SelectedKit)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedIDs(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	in := progress.DashboardInput{LearnerID: learnerID, Progress: p.UserProgress, Completed: completed}
	if kit != nil {
		in.Kit = kit
		in.KitLessons, _ = s.catalog.KitLessons(kit.ID)
	}
	return s.unlocker.BuildDashboard(ctx, in), nil
}

// pickKit resolves the dashboard kit: the requested one, then the selected
// one, then the first featured kit. No kit at all is not an error.
func (s *serviceImpl) pickKit(requested, selected string) (*schema.Kit, error) {
	if requested != "" {
		k, ok := s.catalog.KitByID(requested)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "kit %q not found", requested)
		}
		return &k, nil
	}
	if k, ok := s.catalog.KitByID(selected); ok && selected != "" {
		return &k, nil
	}
	if featured := s.catalog.FeaturedKits(); len(featured) > 0 {
		return &featured[0], nil
	}
	return nil, nil
}

func (s *serviceImpl) SelectKit(ctx context.Context, learnerID, kitID string) error {
	if _, ok := s.catalog.KitByID(kitID); !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "kit %q not found", kitID)
	}
	if _, err := s.store.GetLearner(ctx, learnerID); err != nil {
		return err
	}
	unlock := s.learners.lock(learnerID)
	defer unlock()

	p, err := s.progressOf(ctx, learnerID)
	if err != nil {
		return err
	}
	p.SelectedKit = kitID
	return s.store.SaveProgress(ctx, p)
}

func (s *serviceImpl) Progress(ctx context.Context, learnerID string) (*store.Progress, error) {
	if _, err := s.store.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	return s.progressOf(ctx, learnerID)
}

// --- helpers ---

// progressOf returns stored progress, or the initial state for a learner who
// has none yet.
func (s *serviceImpl) progressOf(ctx context.Context, learnerID string) (*store.Progress, error) {
	p, err := s.store.GetProgress(ctx, learnerID)
	if err == nil {
		return p, nil
	}
	if schema.IsCode(err, schema.ErrCodeNotFound) {
		return &store.Progress{LearnerID: learnerID, UserProgress: schema.InitialProgress()}, nil
	}
	return nil, err
}

func (s *serviceImpl) completedIDs(ctx context.Context, learnerID string) ([]string, error) {
	done, err := s.store.ListCompletedLessons(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(done))
	for i, c := range done {
		ids[i] = c.LessonID
	}
	return ids, nil
}

// load fetches a session and restores its cursor. A step index left out of
// range by edited content is clamped to the last step.
func (s *serviceImpl) load(ctx context.Context, sessionID string) (*store.LessonSession, *lesson.Cursor, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	l, ok := s.catalog.Lesson(sess.LessonID)
	if !ok {
		return nil, nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"lesson %q of session %s is no longer in the catalog", sess.LessonID, sess.ID)
	}
	if len(l.Steps) == 0 {
		return nil, nil, schema.NewErrorf(schema.ErrCodeMalformedContent, "lesson %q has no steps", l.ID)
	}
	idx := min(max(sess.StepIndex, 0), len(l.Steps)-1)
	cur, err := lesson.RestoreCursor(l, idx, sess.RevealedHints)
	if err != nil {
		return nil, nil, err
	}
	sess.StepIndex = idx
	return sess, cur, nil
}

func (s *serviceImpl) loadActive(ctx context.Context, sessionID string) (*store.LessonSession, *lesson.Cursor, error) {
	sess, cur, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != schema.SessionInProgress {
		return nil, nil, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"session %s is %s", sess.ID, sess.Status).
			WithDetails(map[string]any{"session_id": sess.ID, "status": string(sess.Status)})
	}
	return sess, cur, nil
}

// transition moves sess to status through the FSM and persists it.
func (s *serviceImpl) transition(ctx context.Context, sess *store.LessonSession, to schema.SessionStatus) error {
	ref := lesson.SessionRef{LearnerID: sess.LearnerID, SessionID: sess.ID, LessonID: sess.LessonID}
	if err := s.fsm.Transition(ctx, ref, sess.Status, to); err != nil {
		return err
	}
	if err := s.store.UpdateSession(ctx, sess.ID, store.SessionUpdate{Status: &to}); err != nil {
		return err
	}
	sess.Status = to
	return nil
}

func (s *serviceImpl) view(sess *store.LessonSession, l *schema.Lesson) (*State, error) {
	cur, err := lesson.RestoreCursor(l, sess.StepIndex, sess.RevealedHints)
	if err != nil {
		return nil, err
	}
	return s.stateOf(sess, cur)
}

func (s *serviceImpl) stateOf(sess *store.LessonSession, cur *lesson.Cursor) (*State, error) {
	v, err := s.renderer.Render(cur.Lesson(), cur.Index(), cur)
	if err != nil {
		return nil, err
	}
	return &State{Session: sess, View: v}, nil
}

// record appends an event for sess and publishes it.
func (s *serviceImpl) record(ctx context.Context, sess *store.LessonSession, stepID, eventType string, payload any) error {
	ev := newEvent(sess, stepID, eventType)
	if err := setPayload(ev, payload); err != nil {
		return err
	}
	return publishingAppender{s}.AppendEvent(ctx, ev)
}

// appendAll appends events atomically and publishes them once stored.
func (s *serviceImpl) appendAll(ctx context.Context, events ...*store.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.events.AppendEvents(ctx, events...); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "append %d events: %s", len(events), err.Error()).WithCause(err)
	}
	for _, ev := range events {
		s.publish(ctx, ev)
	}
	return nil
}

func newEvent(sess *store.LessonSession, stepID, eventType string) *store.Event {
	return &store.Event{
		LearnerID: sess.LearnerID,
		SessionID: sess.ID,
		LessonID:  sess.LessonID,
		StepID:    stepID,
		Type:      eventType,
	}
}

func setPayload(ev *store.Event, payload any) error {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", ev.Type, err)
	}
	ev.Payload = raw
	return nil
}

func (s *serviceImpl) publish(ctx context.Context, ev *store.Event) {
	if s.hub == nil {
		return
	}
	se := streaming.StreamEvent{
		LearnerID: ev.LearnerID,
		SessionID: ev.SessionID,
		LessonID:  ev.LessonID,
		StepID:    ev.StepID,
		EventType: ev.Type,
		Timestamp: ev.Timestamp,
	}
	if len(ev.Payload) > 0 {
		se.Payload = ev.Payload
	}
	if err := s.hub.Publish(ctx, se); err != nil {
		s.logger.WarnContext(ctx, "publish stream event", "event_type", ev.Type, "error", err)
	}
}

// publishingAppender appends to the event log, then publishes to the hub.
type publishingAppender struct{ s *serviceImpl }

func (a publishingAppender) AppendEvent(ctx context.Context, ev *store.Event) error {
	if err := a.s.events.AppendEvent(ctx, ev); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "append %s event: %s", ev.Type, err.Error()).WithCause(err)
	}
	a.s.publish(ctx, ev)
	return nil
}

// storeEvents adapts a Store to EventLogger by appending one event at a time.
type storeEvents struct{ store.Store }

func (e storeEvents) AppendEvents(ctx context.Context, events ...*store.Event) error {
	for _, ev := range events {
		if err := e.Store.AppendEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	m sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
