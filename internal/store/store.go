package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Learners
	CreateLearner(ctx context.Context, l *Learner) error
	GetLearner(ctx context.Context, id string) (*Learner, error)
	TouchLearner(ctx context.Context, id string) error
	ListLearners(ctx context.Context) ([]*Learner, error)

	// Progress
	GetProgress(ctx context.Context, learnerID string) (*Progress, error)
	SaveProgress(ctx context.Context, p *Progress) error

	// Completions. MarkLessonCompleted reports false when the lesson was already completed.
	MarkLessonCompleted(ctx context.Context, c *CompletedLesson) (bool, error)
	// CompleteLesson is MarkLessonCompleted plus saving p, atomically; p is only
	// written on the first completion.
	CompleteLesson(ctx context.Context, c *CompletedLesson, p *Progress) (bool, error)
	ListCompletedLessons(ctx context.Context, learnerID string) ([]*CompletedLesson, error)

	// Lesson sessions
	CreateSession(ctx context.Context, s *LessonSession) error
	GetSession(ctx context.Context, id string) (*LessonSession, error)
	UpdateSession(ctx context.Context, id string, update SessionUpdate) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]*LessonSession, error)
	// AbandonIdleSessions marks in-progress sessions untouched since before as abandoned and returns them.
	AbandonIdleSessions(ctx context.Context, before time.Time) ([]*LessonSession, error)

	// Challenge ratings (latest rating wins)
	RateChallenge(ctx context.Context, r *ChallengeRating) error
	ListChallengeRatings(ctx context.Context, learnerID string) ([]*ChallengeRating, error)

	// Event log (append-only)
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, learnerID string, since int64) ([]*Event, error)
	GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
