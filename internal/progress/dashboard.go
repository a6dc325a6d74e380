package progress

import (
	"context"

	"github.com/axiometa/academy/pkg/schema"
)

// KitProgressSummary counts completed lessons of a kit.
type KitProgressSummary struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// KitProgress counts how many of lessons appear in completed. An empty kit is 0%.
func KitProgress(lessons []*schema.Lesson, completed []string) KitProgressSummary {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	s := KitProgressSummary{Total: len(lessons)}
	for _, l := range lessons {
		if done[l.ID] {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Percent = float64(s.Completed) / float64(s.Total) * 100
	}
	return s
}

// Dashboard is the learner's home view.
type Dashboard struct {
	LearnerID    string                `json:"learner_id"`
	Level        int                   `json:"level"`
	XP           int                   `json:"xp"`
	NextLevelXP  int                   `json:"next_level_xp"`
	XPPercentage float64               `json:"xp_percentage"`
	Kit          *schema.Kit           `json:"kit,omitempty"`
	KitProgress  KitProgressSummary    `json:"kit_progress"`
	Lessons      []LessonStatus        `json:"lessons"`
	NextLesson   *schema.LessonSummary `json:"next_lesson,omitempty"`
	// StartLesson is where the host posts to begin NextLesson.
	StartLesson string `json:"start_lesson,omitempty"`
}

// DashboardInput is everything a dashboard is built from.
type DashboardInput struct {
	LearnerID  string
	Progress   schema.UserProgress
	Kit        *schema.Kit
	KitLessons []*schema.Lesson
	Completed  []string
}

// BuildDashboard assembles the dashboard. The next lesson is the first
// unlocked lesson of the kit not yet completed.
func (u *Unlocker) BuildDashboard(ctx context.Context, in DashboardInput) *Dashboard {
	d := &Dashboard{
		LearnerID:    in.LearnerID,
		Level:        in.Progress.Level,
		XP:           in.Progress.XP,
		NextLevelXP:  in.Progress.NextLevelXP,
		XPPercentage: Percentage(in.Progress),
		Kit:          in.Kit,
		KitProgress:  KitProgress(in.KitLessons, in.Completed),
		Lessons:      u.Statuses(ctx, in.KitLessons, in.Completed, in.Progress),
	}
	for _, st := range d.Lessons {
		if st.State == StateUnlocked {
			sum := st.Lesson
			d.NextLesson = &sum
			d.StartLesson = "/api/learners/" + in.LearnerID + "/sessions?lesson=" + sum.ID
			break
		}
	}
	return d
}
