package progress

import (
	"context"
	"log/slog"
	"os"

	"github.com/axiometa/academy/internal/expressions"
	"github.com/axiometa/academy/pkg/schema"
)

// LessonState is where a lesson stands for one learner.
type LessonState string

const (
	StateLocked    LessonState = "locked"
	StateUnlocked  LessonState = "unlocked"
	StateCompleted LessonState = "completed"
)

// LessonStatus is a kit lesson with its state. Prerequisite names the lesson
// that must be completed first when the default rule locks it.
type LessonStatus struct {
	Lesson       schema.LessonSummary `json:"lesson"`
	Ordinal      int                  `json:"ordinal"`
	State        LessonState          `json:"state"`
	Prerequisite string               `json:"prerequisite,omitempty"`
	RuleError    string               `json:"rule_error,omitempty"`
}

// Unlocker decides which lessons of a kit a learner may start.
type Unlocker struct {
	cel    *expressions.CELEngine
	logger *slog.Logger
}

// NewUnlocker creates an Unlocker. A nil logger writes to stderr.
func NewUnlocker(logger *slog.Logger) (*Unlocker, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	eng, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Unlocker{cel: eng, logger: logger}, nil
}

// CheckRule compiles a lesson's unlock rule without evaluating it.
func (u *Unlocker) CheckRule(rule string) error {
	return u.cel.Compile(rule)
}

// Statuses returns the state of each kit lesson in order. The first lesson is
// always open; lesson i opens once lesson i-1 is completed unless the lesson
// carries its own unlock rule. A rule that fails to compile or evaluate keeps
// the lesson locked.
func (u *Unlocker) Statuses(ctx context.Context, lessons []*schema.Lesson, completed []string, p schema.UserProgress) []LessonStatus {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	out := make([]LessonStatus, 0, len(lessons))
	for i, l := range lessons {
		st := LessonStatus{Lesson: l.Summary(), Ordinal: i + 1}
		switch {
		case done[l.ID]:
			st.State = StateCompleted
		case l.Unlock != "":
			open, err := u.evalRule(ctx, l, i+1, completed, p)
			if err != nil {
				u.logger.Warn("unlock rule failed", "lesson_id", l.ID, "rule", l.Unlock, "error", err)
				st.RuleError = err.Error()
			}
			st.State = lockedUnless(open)
		case i == 0:
			st.State = StateUnlocked
		default:
			st.State = lockedUnless(done[lessons[i-1].ID])
			if st.State == StateLocked {
				st.Prerequisite = lessons[i-1].Title
			}
		}
		out = append(out, st)
	}
	return out
}

// IsUnlocked reports whether lesson id may be started. Lessons outside the list
// are treated as open.
func (u *Unlocker) IsUnlocked(ctx context.Context, lessons []*schema.Lesson, id string, completed []string, p schema.UserProgress) (bool, LessonStatus) {
	for _, st := range u.Statuses(ctx, lessons, completed, p) {
		if st.Lesson.ID == id {
			return st.State != StateLocked, st
		}
	}
	return true, LessonStatus{}
}

func (u *Unlocker) evalRule(ctx context.Context, l *schema.Lesson, ordinal int, completed []string, p schema.UserProgress) (bool, error) {
	scope := expressions.UnlockScope{
		Completed: completed,
		Level:     p.Level,
		XP:        p.XP,
		Lesson: map[string]any{
			"id":        l.ID,
			"board":     l.Board,
			"type":      string(l.Type),
			"ordinal":   int64(ordinal),
			"xp_reward": int64(l.XPReward),
		},
	}
	return u.cel.EvaluateBool(ctx, l.Unlock, scope.Vars())
}

func lockedUnless(open bool) LessonState {
	if open {
		return StateUnlocked
	}
	return StateLocked
}
