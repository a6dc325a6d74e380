package catalog

import "github.com/axiometa/academy/pkg/schema"

// Lessons returns every lesson in catalog order.
func (c *Catalog) Lessons() []*schema.Lesson {
	return copyOf(c.lessons)
}

// Lesson returns the lesson with the given id.
func (c *Catalog) Lesson(id string) (*schema.Lesson, bool) {
	i, ok := c.lessonByID[id]
	if !ok {
		return nil, false
	}
	return c.lessons[i], true
}

// LessonsByBoard returns the lessons written for board, in catalog order.
func (c *Catalog) LessonsByBoard(board string) []*schema.Lesson {
	idx := c.lessonsBoard[board]
	out := make([]*schema.Lesson, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.lessons[i])
	}
	return out
}

// LessonsByType returns the lessons of a given category, in catalog order.
func (c *Catalog) LessonsByType(t schema.LessonType) []*schema.Lesson {
	var out []*schema.Lesson
	for _, l := range c.lessons {
		if l.Type == t {
			out = append(out, l)
		}
	}
	return out
}

// Ordinal returns the 1-based position of a lesson among its board's lessons, or 0.
func (c *Catalog) Ordinal(l *schema.Lesson) int {
	for n, i := range c.lessonsBoard[l.Board] {
		if c.lessons[i].ID == l.ID {
			return n + 1
		}
	}
	return 0
}

// ResolveNext resolves a completion step's next-lesson reference. An id
// matches any lesson; an ordinal n is the n-th lesson on from's board. A nil
// or dangling reference resolves to false, which disables forward navigation.
func (c *Catalog) ResolveNext(from *schema.Lesson, ref *schema.LessonRef) (*schema.Lesson, bool) {
	if ref == nil {
		return nil, false
	}
	if ref.ID != "" {
		return c.Lesson(ref.ID)
	}
	if from == nil {
		return nil, false
	}
	idx := c.lessonsBoard[from.Board]
	if ref.Ordinal < 1 || ref.Ordinal > len(idx) {
		return nil, false
	}
	next := c.lessons[idx[ref.Ordinal-1]]
	if next.ID == from.ID {
		return nil, false
	}
	return next, true
}

// NextLesson resolves the reference on the lesson's terminal completion step.
func (c *Catalog) NextLesson(l *schema.Lesson) (*schema.Lesson, bool) {
	if len(l.Steps) == 0 {
		return nil, false
	}
	done, ok := l.Steps[len(l.Steps)-1].Body.(*schema.CompletionStep)
	if !ok {
		return nil, false
	}
	return c.ResolveNext(l, done.NextLesson)
}
