package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	// Wiring sequences become dashed clusters; their nodes are created inside.
	parent := make(map[string]*cgraph.Graph)
	for _, g := range model.Groups {
		sub, subErr := graph.CreateSubGraphByName("cluster_" + g.ID)
		if subErr != nil {
			return nil, fmt.Errorf("diagram: create cluster %s: %w", g.ID, subErr)
		}
		sub.SetLabel(g.Label)
		sub.SetStyle(cgraph.DashedGraphStyle)
		for _, id := range g.NodeIDs {
			parent[id] = sub
		}
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		owner := graph
		if sub, ok := parent[node.ID]; ok {
			owner = sub
		}
		gvNode, nErr := owner.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(node.Label)
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	switch node.Kind {
	case NodeKindChallenge:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindCheck:
		gvNode.SetShape(cgraph.HexagonShape)
	case NodeKindConcept:
		gvNode.SetShape(cgraph.EllipseShape)
	case NodeKindWiring, NodeKindHardware:
		gvNode.SetShape(cgraph.ParallelogramShape)
	case NodeKindCompletion:
		gvNode.SetShape(cgraph.CylinderShape)
	case NodeKindStart, NodeKindEnd:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	if node.Status != nil {
		applyStatusColor(gvNode, node.Status.Status)
	}
}

// applyStatusColor sets fill color and style based on status.
func applyStatusColor(gvNode *cgraph.Node, status string) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch status {
	case StatusDone, StatusCompleted:
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case StatusCurrent:
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case StatusUnlocked:
		gvNode.SetFillColor("#e1f14f")
		gvNode.SetFontColor("black")
	case StatusUpcoming:
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	case StatusLocked:
		gvNode.SetFillColor("#e8e8e8")
		gvNode.SetFontColor("#888888")
		gvNode.SetStyle(cgraph.DashedNodeStyle)
	}
}
