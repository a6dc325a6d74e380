package lesson

import (
	"github.com/axiometa/academy/pkg/schema"
)

// Cursor is the position of one learner in one lesson, plus the hints they
// have revealed per challenge step. Not safe for concurrent use.
type Cursor struct {
	lesson   *schema.Lesson
	index    int
	revealed map[string]int
}

// NewCursor starts at the first step with no hints revealed. A lesson
// without steps has no position and is refused.
func NewCursor(l *schema.Lesson) (*Cursor, error) {
	if _, err := CurrentStep(l, 0); err != nil {
		return nil, err
	}
	return newCursor(l), nil
}

func newCursor(l *schema.Lesson) *Cursor {
	return &Cursor{lesson: l, revealed: make(map[string]int)}
}

// RestoreCursor rebuilds a cursor from persisted state. Hint counts are capped
// to the hints each challenge actually has; entries for unknown steps are dropped.
func RestoreCursor(l *schema.Lesson, index int, revealed map[string]int) (*Cursor, error) {
	if _, err := CurrentStep(l, index); err != nil {
		return nil, err
	}
	c := newCursor(l)
	c.index = index
	for stepID, n := range revealed {
		i := l.StepIndex(stepID)
		if i < 0 || n <= 0 {
			continue
		}
		ch, ok := l.Steps[i].Body.(*schema.ChallengeStep)
		if !ok {
			continue
		}
		c.revealed[stepID] = min(n, len(ch.Hints))
	}
	return c, nil
}

// Lesson returns the lesson the cursor walks.
func (c *Cursor) Lesson() *schema.Lesson { return c.lesson }

// Index returns the current step index.
func (c *Cursor) Index() int { return c.index }

// Step returns the current step.
func (c *Cursor) Step() schema.Step { return c.lesson.Steps[c.index] }

// Next moves forward one step.
func (c *Cursor) Next() error {
	if !CanAdvance(c.lesson, c.index) {
		return schema.NewErrorf(schema.ErrCodeOutOfRange,
			"already at the last step of lesson %q", c.lesson.ID).WithStep(c.Step().ID)
	}
	c.index++
	return nil
}

// Back moves back one step.
func (c *Cursor) Back() error {
	if !CanGoBack(c.index) {
		return schema.NewErrorf(schema.ErrCodeOutOfRange,
			"already at the first step of lesson %q", c.lesson.ID).WithStep(c.Step().ID)
	}
	c.index--
	return nil
}

// Jump moves to index i.
func (c *Cursor) Jump(i int) error {
	if _, err := CurrentStep(c.lesson, i); err != nil {
		return err
	}
	c.index = i
	return nil
}

// RevealHint shows the next hint of the current challenge step and returns how
// many are now visible. Once every hint is shown further calls change nothing.
func (c *Cursor) RevealHint() (int, error) {
	step := c.Step()
	ch, ok := step.Body.(*schema.ChallengeStep)
	if !ok {
		return 0, schema.NewErrorf(schema.ErrCodeValidation,
			"step %q is a %s step and has no hints", step.ID, step.Type).WithStep(step.ID)
	}
	n := c.revealed[step.ID]
	if n < len(ch.Hints) {
		n++
		c.revealed[step.ID] = n
	}
	return n, nil
}

// VisibleHints returns the revealed hints of the current step in authored order.
func (c *Cursor) VisibleHints() []string {
	step := c.Step()
	ch, ok := step.Body.(*schema.ChallengeStep)
	if !ok {
		return nil
	}
	n := min(c.revealed[step.ID], len(ch.Hints))
	return append([]string{}, ch.Hints[:n]...)
}

// HintsRevealed returns how many hints of stepID are visible.
func (c *Cursor) HintsRevealed(stepID string) int {
	return c.revealed[stepID]
}

// ResetHints hides the current step's hints. It is the only way hints disappear.
func (c *Cursor) ResetHints() {
	delete(c.revealed, c.Step().ID)
}

// Revealed returns a copy of the per-step hint counts.
func (c *Cursor) Revealed() map[string]int {
	out := make(map[string]int, len(c.revealed))
	for k, v := range c.revealed {
		out[k] = v
	}
	return out
}
