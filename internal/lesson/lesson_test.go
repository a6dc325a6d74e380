package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/pkg/schema"
)

func shippedCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("")
	require.NoError(t, err)
	return c
}

func shippedLesson(t *testing.T, id string) *schema.Lesson {
	t.Helper()
	l, ok := shippedCatalog(t).Lesson(id)
	require.True(t, ok, "lesson %s", id)
	return l
}

func challengeLesson() *schema.Lesson {
	return &schema.Lesson{
		ID: "tiny",
		Steps: []schema.Step{
			schema.NewStep("intro", "Intro", &schema.InfoStep{Content: "hi"}),
			schema.NewStep("c1", "Challenge", &schema.ChallengeStep{
				Instruction: "do it",
				Hints:       []string{"first", "second", "third"},
			}),
			schema.NewStep("done", "Done", &schema.CompletionStep{Content: "bye"}),
		},
	}
}

// --- Traversal ---

func TestCurrentStep_Bounds(t *testing.T) {
	l := shippedLesson(t, "mcu-breadboard-blinky")

	first, err := CurrentStep(l, 0)
	require.NoError(t, err)
	assert.Equal(t, "welcome", first.ID)

	last, err := CurrentStep(l, len(l.Steps)-1)
	require.NoError(t, err)
	assert.Equal(t, "complete", last.ID)

	for _, i := range []int{-1, len(l.Steps), 100} {
		_, err := CurrentStep(l, i)
		assert.True(t, schema.IsCode(err, schema.ErrCodeOutOfRange), "index %d", i)
	}

	_, err = CurrentStep(nil, 0)
	assert.Error(t, err)
}

func TestCanAdvanceAndGoBack(t *testing.T) {
	l := challengeLesson()
	assert.True(t, CanAdvance(l, 0))
	assert.True(t, CanAdvance(l, 1))
	assert.False(t, CanAdvance(l, 2))
	assert.False(t, CanAdvance(nil, 0))

	assert.False(t, CanGoBack(0))
	assert.True(t, CanGoBack(1))

	assert.True(t, IsLast(l, 2))
	assert.False(t, IsLast(l, 1))
}

func TestProgress(t *testing.T) {
	l := challengeLesson()
	assert.InDelta(t, 33.33, Progress(l, 0), 0.01)
	assert.Equal(t, 100.0, Progress(l, 2))
	assert.Equal(t, 100.0, Progress(l, 7))
	assert.Equal(t, 0.0, Progress(l, -5))
	assert.Equal(t, 0.0, Progress(&schema.Lesson{}, 0))
}

// --- Cursor ---

func TestCursor_Navigation(t *testing.T) {
	c, err := NewCursor(challengeLesson())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Index())

	err = c.Back()
	assert.True(t, schema.IsCode(err, schema.ErrCodeOutOfRange))

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	assert.Equal(t, "done", c.Step().ID)
	assert.True(t, schema.IsCode(c.Next(), schema.ErrCodeOutOfRange))

	require.NoError(t, c.Back())
	assert.Equal(t, 1, c.Index())

	require.NoError(t, c.Jump(0))
	assert.Error(t, c.Jump(3))
	assert.Equal(t, 0, c.Index())
}

func TestCursor_EmptyLesson(t *testing.T) {
	c, err := NewCursor(&schema.Lesson{ID: "empty"})
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeOutOfRange))
	assert.Nil(t, c)

	_, err = NewCursor(nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestCursor_RevealHintIsMonotonicAndCapped(t *testing.T) {
	c, err := NewCursor(challengeLesson())
	require.NoError(t, err)
	require.NoError(t, c.Jump(1))
	assert.Empty(t, c.VisibleHints())

	prev := 0
	for i := 0; i < 5; i++ {
		n, err := c.RevealHint()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}
	assert.Equal(t, 3, prev)
	assert.Equal(t, []string{"first", "second", "third"}, c.VisibleHints())

	// Navigating away and back keeps the hints.
	require.NoError(t, c.Back())
	require.NoError(t, c.Next())
	assert.Len(t, c.VisibleHints(), 3)

	c.ResetHints()
	assert.Empty(t, c.VisibleHints())
	assert.Equal(t, 0, c.HintsRevealed("c1"))
}

func TestCursor_RevealHintOnNonChallenge(t *testing.T) {
	c, err := NewCursor(challengeLesson())
	require.NoError(t, err)
	_, err = c.RevealHint()
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Nil(t, c.VisibleHints())
}

func TestCursor_RevealedIsCopy(t *testing.T) {
	c, err := NewCursor(challengeLesson())
	require.NoError(t, err)
	require.NoError(t, c.Jump(1))
	_, _ = c.RevealHint()

	r := c.Revealed()
	r["c1"] = 99
	assert.Equal(t, 1, c.HintsRevealed("c1"))
}

func TestRestoreCursor(t *testing.T) {
	l := challengeLesson()
	c, err := RestoreCursor(l, 1, map[string]int{"c1": 10, "intro": 2, "ghost": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index())
	assert.Equal(t, map[string]int{"c1": 3}, c.Revealed())

	_, err = RestoreCursor(l, 9, nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeOutOfRange))
}
