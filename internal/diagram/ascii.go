package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// statusTag returns a short ASCII indicator for a status string.
func statusTag(status string) string {
	switch status {
	case StatusDone:
		return "[x]"
	case StatusCurrent:
		return "[>]"
	case StatusUpcoming:
		return "[ ]"
	case StatusCompleted:
		return "[OK]"
	case StatusUnlocked:
		return "[OPEN]"
	case StatusLocked:
		return "[LOCK]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a text-based ASCII diagram.
// It uses a level-based layout with box-drawing characters.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	var open *Group
	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			if g := model.groupOf(nodeID); g != open {
				if g != nil {
					fmt.Fprintf(&b, "  .-- %s\n", g.Label)
				} else {
					b.WriteString("  '--\n")
				}
				open = g
			}
			if node := model.node(nodeID); node != nil {
				boxes = append(boxes, makeBox(node))
			}
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			label := ""
			if len(level) == 1 {
				label = edgeLabel(model, level[0])
			}
			renderConnector(&b, len(boxes), label)
		}
	}

	return b.String()
}

// edgeLabel returns the label of the first labelled edge leaving from.
func edgeLabel(model *DiagramModel, from string) string {
	for _, e := range model.Edges {
		if e.From == from && e.Label != "" {
			return e.Label
		}
	}
	return ""
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node. Every line of the label is kept.
func makeBox(node *Node) asciiBox {
	contentLines := strings.Split(node.Label, "\n")
	if node.Status != nil {
		if tag := statusTag(node.Status.Status); tag != "" {
			contentLines[0] = tag + " " + contentLines[0]
		}
	}

	maxLen := 0
	for _, line := range contentLines {
		maxLen = max(maxLen, utf8.RuneCountInString(line))
	}
	width := maxLen + 4 // 2 border + 2 padding

	lines := make([]string, 0, len(contentLines)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width-2)+"┐")
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-utf8.RuneCountInString(content))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")

	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		maxHeight = max(maxHeight, len(box.lines))
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int, label string) {
	if boxCount == 0 {
		return
	}
	if label != "" {
		fmt.Fprintf(b, "       │ %s\n", label)
	} else {
		b.WriteString("       │\n")
	}
	b.WriteString("       ▼\n")
}
