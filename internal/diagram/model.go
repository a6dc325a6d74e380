// Package diagram draws lesson maps and kit roadmaps as Mermaid, ASCII and PNG.
package diagram

// NodeKind classifies a diagram node by the kind of step or lesson it stands for.
type NodeKind string

const (
	NodeKindInfo       NodeKind = "info"
	NodeKindHardware   NodeKind = "hardware"
	NodeKindWiring     NodeKind = "wiring"
	NodeKindConcept    NodeKind = "concept"
	NodeKindCode       NodeKind = "code"
	NodeKindChallenge  NodeKind = "challenge"
	NodeKindCheck      NodeKind = "check"
	NodeKindCompletion NodeKind = "completion"
	NodeKindLesson     NodeKind = "lesson"
	NodeKindStart      NodeKind = "start"
	NodeKindEnd        NodeKind = "end"
)

// Overlay statuses. Steps are done, current or upcoming relative to a
// learner's position; lessons take their unlock state.
const (
	StatusDone      = "done"
	StatusCurrent   = "current"
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusUnlocked  = "unlocked"
	StatusLocked    = "locked"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
	Groups []*Group
}

// Node is a single step or lesson.
type Node struct {
	ID     string
	Label  string
	Kind   NodeKind
	Status *StatusOverlay
}

// Group clusters nodes that belong together, such as one wiring sequence.
type Group struct {
	ID      string
	Label   string
	NodeIDs []string
}

// StatusOverlay carries learner state for a node.
type StatusOverlay struct {
	Status string
	Detail string
}

// Edge connects two nodes in reading order.
type Edge struct {
	From  string
	To    string
	Label string
}

const (
	startID = "__start__"
	endID   = "__end__"
)

func (m *DiagramModel) node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// groupOf returns the group holding node id, or nil.
func (m *DiagramModel) groupOf(id string) *Group {
	for _, g := range m.Groups {
		for _, nid := range g.NodeIDs {
			if nid == id {
				return g
			}
		}
	}
	return nil
}
