package diagram

import (
	"fmt"

	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/validation"
	"github.com/axiometa/academy/pkg/schema"
)

// BuildLessonMap lays out a lesson's steps in order between virtual start and
// end nodes. Wiring sequences are grouped. When current is a valid step index,
// steps before it are done, it is current and the rest are upcoming.
func BuildLessonMap(l *schema.Lesson, current int) *DiagramModel {
	overlay := current >= 0 && current < len(l.Steps)
	m := &DiagramModel{Title: l.Title}

	m.Nodes = append(m.Nodes, &Node{ID: startID, Label: "Start", Kind: NodeKindStart})
	m.Levels = append(m.Levels, []string{startID})
	prev := startID
	for i, s := range l.Steps {
		n := &Node{ID: stepNodeID(s, i), Label: stepLabel(s, i), Kind: stepKind(s.Type)}
		if overlay {
			n.Status = &StatusOverlay{Status: stepStatus(i, current)}
		}
		m.Nodes = append(m.Nodes, n)
		m.Levels = append(m.Levels, []string{n.ID})
		m.Edges = append(m.Edges, Edge{From: prev, To: n.ID})
		prev = n.ID
	}
	m.Nodes = append(m.Nodes, &Node{ID: endID, Label: "End", Kind: NodeKindEnd})
	m.Levels = append(m.Levels, []string{endID})
	m.Edges = append(m.Edges, Edge{From: prev, To: endID})

	for gi, seq := range validation.WiringSequences(l) {
		g := &Group{
			ID:    fmt.Sprintf("wiring_%d", gi+1),
			Label: fmt.Sprintf("Wiring (%d steps)", seq.TotalSteps),
		}
		for _, idx := range seq.Indexes {
			g.NodeIDs = append(g.NodeIDs, stepNodeID(l.Steps[idx], idx))
		}
		m.Groups = append(m.Groups, g)
	}
	return m
}

// BuildKitRoadmap lays out a kit's lessons with their unlock state. Edges
// into a locked lesson carry the prerequisite that opens it.
func BuildKitRoadmap(kit schema.Kit, lessons []progress.LessonStatus) *DiagramModel {
	m := &DiagramModel{Title: kit.Name}
	if m.Title == "" {
		m.Title = kit.ID
	}

	m.Nodes = append(m.Nodes, &Node{ID: startID, Label: "Start", Kind: NodeKindStart})
	m.Levels = append(m.Levels, []string{startID})
	prev := startID
	for _, st := range lessons {
		n := &Node{
			ID:     st.Lesson.ID,
			Label:  fmt.Sprintf("%d. %s\n+%d XP", st.Ordinal, st.Lesson.Title, st.Lesson.XPReward),
			Kind:   NodeKindLesson,
			Status: &StatusOverlay{Status: string(st.State), Detail: st.Prerequisite},
		}
		e := Edge{From: prev, To: n.ID}
		if st.State == progress.StateLocked && st.Prerequisite != "" {
			e.Label = "after " + st.Prerequisite
		}
		m.Nodes = append(m.Nodes, n)
		m.Levels = append(m.Levels, []string{n.ID})
		m.Edges = append(m.Edges, e)
		prev = n.ID
	}
	m.Nodes = append(m.Nodes, &Node{ID: endID, Label: "End", Kind: NodeKindEnd})
	m.Levels = append(m.Levels, []string{endID})
	m.Edges = append(m.Edges, Edge{From: prev, To: endID})
	return m
}

// stepNodeID falls back to the position for steps without an id.
func stepNodeID(s schema.Step, i int) string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("step_%d", i+1)
}

func stepLabel(s schema.Step, i int) string {
	title := s.Title
	if title == "" {
		title = stepNodeID(s, i)
	}
	return fmt.Sprintf("%d. %s\n(%s)", i+1, title, s.Type)
}

func stepKind(t schema.StepType) NodeKind {
	switch t {
	case schema.StepHardware:
		return NodeKindHardware
	case schema.StepWiring:
		return NodeKindWiring
	case schema.StepInteractiveConcept:
		return NodeKindConcept
	case schema.StepCodeExplanation, schema.StepUpload:
		return NodeKindCode
	case schema.StepChallenge:
		return NodeKindChallenge
	case schema.StepConnectionCheck, schema.StepVerification:
		return NodeKindCheck
	case schema.StepCompletion:
		return NodeKindCompletion
	default:
		return NodeKindInfo
	}
}

func stepStatus(i, current int) string {
	switch {
	case i < current:
		return StatusDone
	case i == current:
		return StatusCurrent
	default:
		return StatusUpcoming
	}
}
