package progress

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/pkg/schema"
)

func TestXPPercentage(t *testing.T) {
	tests := []struct {
		xp, next int
		want     float64
	}{
		{50, 200, 25},
		{250, 200, 100},
		{0, 0, 100},
		{0, 500, 0},
		{-10, 500, 0},
		{10, -1, 100},
		{499, 500, 99.8},
	}
	for _, tt := range tests {
		got := XPPercentage(tt.xp, tt.next)
		assert.InDelta(t, tt.want, got, 1e-9, "XPPercentage(%d, %d)", tt.xp, tt.next)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
	assert.Equal(t, 0.0, Percentage(schema.InitialProgress()))
}

// --- Level curve ---

func TestAward_DefaultCurve(t *testing.T) {
	c, err := NewLevelCurve("")
	require.NoError(t, err)
	assert.Equal(t, "next + 500", c.Expression())

	p, gained, err := c.Award(context.Background(), schema.InitialProgress(), 600)
	require.NoError(t, err)
	assert.Equal(t, 1, gained)
	assert.Equal(t, schema.UserProgress{Level: 2, XP: 600, NextLevelXP: 1000}, p)
}

func TestAward_NoLevelUp(t *testing.T) {
	c, err := NewLevelCurve("")
	require.NoError(t, err)
	p, gained, err := c.Award(context.Background(), schema.InitialProgress(), 100)
	require.NoError(t, err)
	assert.Zero(t, gained)
	assert.Equal(t, schema.UserProgress{Level: 1, XP: 100, NextLevelXP: 500}, p)
}

func TestAward_ExactThreshold(t *testing.T) {
	c, _ := NewLevelCurve("")
	p, gained, err := c.Award(context.Background(), schema.UserProgress{Level: 1, XP: 400, NextLevelXP: 500}, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, gained)
	assert.Equal(t, 2, p.Level)
}

func TestAward_MultipleLevels(t *testing.T) {
	c, _ := NewLevelCurve("")
	p, gained, err := c.Award(context.Background(), schema.InitialProgress(), 1600)
	require.NoError(t, err)
	assert.Equal(t, 3, gained)
	assert.Equal(t, schema.UserProgress{Level: 4, XP: 1600, NextLevelXP: 2000}, p)
}

func TestAward_CustomCurve(t *testing.T) {
	c, err := NewLevelCurve("next * 2")
	require.NoError(t, err)
	p, gained, err := c.Award(context.Background(), schema.InitialProgress(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, gained)
	assert.Equal(t, 2000, p.NextLevelXP)
}

func TestNewLevelCurve_Rejects(t *testing.T) {
	_, err := NewLevelCurve("next")
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression), "flat curve")

	_, err = NewLevelCurve("next - 10")
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression), "shrinking curve")

	_, err = NewLevelCurve("next +")
	assert.Error(t, err)
}

func TestAward_InvalidInput(t *testing.T) {
	c, _ := NewLevelCurve("")
	_, _, err := c.Award(context.Background(), schema.InitialProgress(), -1)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	_, _, err = c.Award(context.Background(), schema.UserProgress{Level: 0, NextLevelXP: 500}, 10)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestAward_CurveFailsLater(t *testing.T) {
	c, err := NewLevelCurve("level < 3 ? next + 500 : next")
	require.NoError(t, err)
	in := schema.InitialProgress()
	_, _, err = c.Award(context.Background(), in, 5000)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

// --- Kit progress ---

func TestKitProgress(t *testing.T) {
	lessons := []*schema.Lesson{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	s := KitProgress(lessons, []string{"a", "c", "elsewhere"})
	assert.Equal(t, KitProgressSummary{Completed: 2, Total: 4, Percent: 50}, s)

	assert.Equal(t, KitProgressSummary{}, KitProgress(nil, []string{"a"}))
}

// --- Unlocks ---

func newTestUnlocker(t *testing.T) (*Unlocker, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	u, err := NewUnlocker(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	return u, &buf
}

func kitLessons(t *testing.T) []*schema.Lesson {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	ls, ok := c.KitLessons("pixie-m1-beginners")
	require.True(t, ok)
	return ls
}

func states(sts []LessonStatus) []LessonState {
	out := make([]LessonState, len(sts))
	for i, s := range sts {
		out[i] = s.State
	}
	return out
}

func TestStatuses_DefaultRule(t *testing.T) {
	u, _ := newTestUnlocker(t)
	ls := kitLessons(t)
	ctx := context.Background()

	sts := u.Statuses(ctx, ls, nil, schema.InitialProgress())
	assert.Equal(t, []LessonState{StateUnlocked, StateLocked, StateLocked, StateLocked}, states(sts))
	assert.Equal(t, ls[0].Title, sts[1].Prerequisite)
	assert.Equal(t, 2, sts[1].Ordinal)

	sts = u.Statuses(ctx, ls, []string{"electronics-introduction"}, schema.InitialProgress())
	assert.Equal(t, []LessonState{StateCompleted, StateUnlocked, StateLocked, StateLocked}, states(sts))
	assert.Empty(t, sts[1].Prerequisite)
}

func TestStatuses_CustomRule(t *testing.T) {
	u, _ := newTestUnlocker(t)
	ls := []*schema.Lesson{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "c", Title: "C", Unlock: `level >= 2 || "a" in completed`},
	}
	ctx := context.Background()

	sts := u.Statuses(ctx, ls, nil, schema.InitialProgress())
	assert.Equal(t, StateLocked, sts[2].State)

	sts = u.Statuses(ctx, ls, []string{"a"}, schema.InitialProgress())
	assert.Equal(t, StateUnlocked, sts[2].State, "rule overrides the previous-lesson default")

	sts = u.Statuses(ctx, ls, nil, schema.UserProgress{Level: 2, XP: 600, NextLevelXP: 1000})
	assert.Equal(t, StateUnlocked, sts[2].State)
}

func TestStatuses_BrokenRuleStaysLocked(t *testing.T) {
	u, buf := newTestUnlocker(t)
	ls := []*schema.Lesson{{ID: "a", Title: "A", Unlock: `level >=`}}
	sts := u.Statuses(context.Background(), ls, nil, schema.InitialProgress())
	assert.Equal(t, StateLocked, sts[0].State)
	assert.NotEmpty(t, sts[0].RuleError)
	assert.Contains(t, buf.String(), "unlock rule failed")

	assert.Error(t, u.CheckRule(`level >=`))
	assert.NoError(t, u.CheckRule(`lesson.ordinal <= size(completed) + 1`))
}

func TestIsUnlocked(t *testing.T) {
	u, _ := newTestUnlocker(t)
	ls := kitLessons(t)
	ctx := context.Background()

	ok, st := u.IsUnlocked(ctx, ls, "mcu-breadboard-blinky", nil, schema.InitialProgress())
	assert.False(t, ok)
	assert.Equal(t, "mcu-breadboard-blinky", st.Lesson.ID)

	ok, _ = u.IsUnlocked(ctx, ls, "mcu-breadboard-blinky", []string{"electronics-introduction"}, schema.InitialProgress())
	assert.True(t, ok)

	ok, _ = u.IsUnlocked(ctx, ls, "not-in-kit", nil, schema.InitialProgress())
	assert.True(t, ok)
}

// --- Dashboard ---

func TestBuildDashboard(t *testing.T) {
	u, _ := newTestUnlocker(t)
	ls := kitLessons(t)
	kit := schema.Kit{ID: "pixie-m1-beginners", Name: "Pixie"}

	d := u.BuildDashboard(context.Background(), DashboardInput{
		LearnerID:  "l-1",
		Progress:   schema.UserProgress{Level: 1, XP: 175, NextLevelXP: 500},
		Kit:        &kit,
		KitLessons: ls,
		Completed:  []string{"electronics-introduction", "mcu-breadboard-blinky"},
	})

	assert.Equal(t, 1, d.Level)
	assert.InDelta(t, 35, d.XPPercentage, 1e-9)
	assert.Equal(t, KitProgressSummary{Completed: 2, Total: 4, Percent: 50}, d.KitProgress)
	require.NotNil(t, d.NextLesson)
	assert.Equal(t, "mcu-breadboard-button", d.NextLesson.ID)
	assert.Equal(t, "/api/learners/l-1/sessions?lesson=mcu-breadboard-button", d.StartLesson)
	assert.Len(t, d.Lessons, 4)
}

func TestBuildDashboard_AllDone(t *testing.T) {
	u, _ := newTestUnlocker(t)
	ls := kitLessons(t)
	var ids []string
	for _, l := range ls {
		ids = append(ids, l.ID)
	}
	d := u.BuildDashboard(context.Background(), DashboardInput{
		LearnerID:  "l-1",
		Progress:   schema.InitialProgress(),
		KitLessons: ls,
		Completed:  ids,
	})
	assert.Nil(t, d.NextLesson)
	assert.Empty(t, d.StartLesson)
	assert.Equal(t, 100.0, d.KitProgress.Percent)
}
