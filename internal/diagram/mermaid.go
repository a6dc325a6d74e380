package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	// Grouped nodes are declared inside their subgraph.
	for _, node := range model.Nodes {
		if model.groupOf(node.ID) == nil {
			fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(node))
		}
	}
	for _, g := range model.Groups {
		fmt.Fprintf(&b, "    subgraph %s[%q]\n", mermaidSafeID(g.ID), g.Label)
		for _, id := range g.NodeIDs {
			if node := model.node(id); node != nil {
				fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(node))
			}
		}
		b.WriteString("    end\n")
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%q|", edge.Label)
		}
		fmt.Fprintf(&b, "    %s -->%s %s\n", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef done fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef current fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef upcoming fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")
	b.WriteString("    classDef completed fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef unlocked fill:#e1f14f,stroke:#00d4aa,color:#000\n")
	b.WriteString("    classDef locked fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")

	for _, node := range model.Nodes {
		if node.Status == nil {
			continue
		}
		if cls := mermaidStatusClass(node.Status.Status); cls != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(node.ID), cls)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(node.Label)

	switch node.Kind {
	case NodeKindChallenge:
		return fmt.Sprintf("%s{%q}", id, label)
	case NodeKindCheck:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case NodeKindConcept:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindCode:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeKindWiring, NodeKindHardware:
		return fmt.Sprintf("%s[/%q/]", id, label)
	case NodeKindCompletion:
		return fmt.Sprintf("%s[(%q)]", id, label)
	case NodeKindStart, NodeKindEnd:
		return fmt.Sprintf("%s((%q))", id, label)
	default:
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel turns newlines into <br/> and quotes into entities.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer("\n", "<br/>", `"`, "#quot;")
	return r.Replace(s)
}

func mermaidStatusClass(status string) string {
	switch status {
	case StatusDone, StatusCurrent, StatusUpcoming, StatusCompleted, StatusUnlocked, StatusLocked:
		return status
	default:
		return ""
	}
}
