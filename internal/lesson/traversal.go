// Package lesson walks learners through the steps of a lesson: cursor movement,
// hint reveal, per-step view models and the session lifecycle.
package lesson

import (
	"github.com/axiometa/academy/pkg/schema"
)

// CurrentStep returns the step at index, or an OUT_OF_RANGE error.
func CurrentStep(l *schema.Lesson, index int) (schema.Step, error) {
	if l == nil {
		return schema.Step{}, schema.NewError(schema.ErrCodeNotFound, "lesson is nil")
	}
	if index < 0 || index >= len(l.Steps) {
		return schema.Step{}, schema.NewErrorf(schema.ErrCodeOutOfRange,
			"step index %d out of range [0, %d) in lesson %q", index, len(l.Steps), l.ID).
			WithDetails(map[string]any{"lesson_id": l.ID, "index": index, "steps": len(l.Steps)})
	}
	return l.Steps[index], nil
}

// CanAdvance reports whether a step follows index.
func CanAdvance(l *schema.Lesson, index int) bool {
	return l != nil && index >= 0 && index+1 < len(l.Steps)
}

// CanGoBack reports whether a step precedes index.
func CanGoBack(index int) bool {
	return index > 0
}

// IsLast reports whether index is the final step.
func IsLast(l *schema.Lesson, index int) bool {
	return l != nil && len(l.Steps) > 0 && index == len(l.Steps)-1
}

// Progress is the share of the lesson reached at index, as a percentage in [0, 100].
func Progress(l *schema.Lesson, index int) float64 {
	if l == nil || len(l.Steps) == 0 {
		return 0
	}
	p := float64(index+1) / float64(len(l.Steps)) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
