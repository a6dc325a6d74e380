package diagram

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var cliBreakers = NewRendererBreakers(DefaultBreakerConfig())

// RenderASCIIAuto tries to render using the mermaid-ascii CLI binary if available,
// falling back to RenderASCII.
func RenderASCIIAuto(ctx context.Context, model *DiagramModel, binDir string) string {
	return renderASCIIWith(ctx, model, binDir, cliBreakers)
}

func renderASCIIWith(ctx context.Context, model *DiagramModel, binDir string, breakers *RendererBreakers) string {
	if binDir == "" {
		return RenderASCII(model)
	}
	binPath := filepath.Join(binDir, "mermaid-ascii")
	if _, err := os.Stat(binPath); err != nil {
		return RenderASCII(model)
	}
	if breakers.Allow(binPath) != nil {
		return RenderASCII(model)
	}
	result, err := RenderASCIIViaCLI(ctx, model, binPath)
	if err != nil {
		breakers.Failure(binPath)
		return RenderASCII(model)
	}
	breakers.Success(binPath)
	return result
}

// RenderASCIIViaCLI pipes simplified Mermaid syntax through the mermaid-ascii binary.
func RenderASCIIViaCLI(ctx context.Context, model *DiagramModel, binPath string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath)
	cmd.Stdin = strings.NewReader(RenderMermaidForCLI(model))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("mermaid-ascii: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// RenderMermaidForCLI generates Mermaid that mermaid-ascii can parse: edges
// only, no node declarations, classes or subgraphs. Status tags are folded
// into the node ids.
func RenderMermaidForCLI(model *DiagramModel) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	displayID := make(map[string]string, len(model.Nodes))
	for _, node := range model.Nodes {
		displayID[node.ID] = cliNodeID(node)
	}
	resolve := func(id string) string {
		if d, ok := displayID[id]; ok {
			return d
		}
		return mermaidSafeID(id)
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", edge.Label)
		}
		fmt.Fprintf(&b, "    %s -->%s %s\n", resolve(edge.From), label, resolve(edge.To))
	}
	return b.String()
}

// cliNodeID builds a display ID from the first label line plus a status tag.
func cliNodeID(node *Node) string {
	id := firstLine(node.Label)
	if id == "" {
		id = node.ID
	}
	if node.Status != nil {
		if tag := cliStatusTag(node.Status.Status); tag != "" {
			id += "-" + tag
		}
	}
	r := strings.NewReplacer(" ", "-", ".", "", ":", "", "\"", "", "'", "")
	return r.Replace(id)
}

func cliStatusTag(status string) string {
	switch status {
	case StatusDone:
		return "DONE"
	case StatusCurrent:
		return "HERE"
	case StatusCompleted:
		return "OK"
	case StatusLocked:
		return "LOCK"
	default:
		return ""
	}
}
