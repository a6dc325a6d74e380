package validation

import (
	"fmt"

	"github.com/axiometa/academy/pkg/schema"
)

// WiringSequence is a run of wiring steps numbered 1..TotalSteps.
type WiringSequence struct {
	// Indexes are step positions within the lesson.
	Indexes    []int
	TotalSteps int
}

// WiringSequences splits a lesson's wiring steps into sequences. A step
// numbered 1 opens a new sequence; other steps join the open one even when
// non-wiring steps sit between them.
func WiringSequences(l *schema.Lesson) []WiringSequence {
	var out []WiringSequence
	for i, s := range l.Steps {
		w, ok := s.Body.(*schema.WiringStep)
		if !ok {
			continue
		}
		if w.StepNumber == 1 || len(out) == 0 {
			out = append(out, WiringSequence{TotalSteps: w.TotalSteps})
		}
		cur := &out[len(out)-1]
		cur.Indexes = append(cur.Indexes, i)
	}
	return out
}

// validateWiring requires each sequence to start at 1, count up by one, keep
// a constant total and end on it.
func validateWiring(l *schema.Lesson, path string, result *schema.ValidationResult) {
	for _, seq := range WiringSequences(l) {
		prev := 0
		for _, idx := range seq.Indexes {
			w := l.Steps[idx].Body.(*schema.WiringStep)
			sp := fmt.Sprintf("%s.steps[%d]", path, idx)

			if w.StepNumber != prev+1 {
				result.AddError(sp+".step_number", schema.IssueWiringSequence,
					fmt.Sprintf("wiring step numbered %d follows %d", w.StepNumber, prev))
			}
			if w.TotalSteps != seq.TotalSteps {
				result.AddError(sp+".total_steps", schema.IssueWiringSequence,
					fmt.Sprintf("total_steps %d differs from %d earlier in the sequence", w.TotalSteps, seq.TotalSteps))
			}
			if w.StepNumber > w.TotalSteps {
				result.AddError(sp+".step_number", schema.IssueWiringSequence,
					fmt.Sprintf("wiring step %d exceeds total_steps %d", w.StepNumber, w.TotalSteps))
			}
			prev = w.StepNumber
		}

		last := seq.Indexes[len(seq.Indexes)-1]
		if prev != seq.TotalSteps {
			result.AddError(fmt.Sprintf("%s.steps[%d]", path, last), schema.IssueWiringSequence,
				fmt.Sprintf("wiring sequence ends at step %d of %d", prev, seq.TotalSteps))
		}
	}
}
