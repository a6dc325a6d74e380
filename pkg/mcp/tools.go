package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/axiometa/academy/internal/diagram"
	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/session"
	"github.com/axiometa/academy/pkg/schema"
)

// kitListing is a kit with the summaries of its lessons.
type kitListing struct {
	schema.Kit
	LessonSummaries []schema.LessonSummary `json:"lesson_summaries"`
}

// handleKits lists kits, or returns one kit when kit_id is given.
func (s *AcademyServer) handleKits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("kit_id", ""); id != "" {
		k, ok := s.catalog.KitByID(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("kit %q not found", id)), nil
		}
		return marshalResult(s.listing(k))
	}

	kits := s.catalog.Kits()
	switch filter := req.GetString("filter", "all"); filter {
	case "all":
	case "available":
		kits = s.catalog.AvailableKits()
	case "featured":
		kits = s.catalog.FeaturedKits()
	default:
		return mcp.NewToolResultError("filter must be all, available or featured"), nil
	}

	out := make([]kitListing, len(kits))
	for i, k := range kits {
		out[i] = s.listing(k)
	}
	return marshalResult(out)
}

func (s *AcademyServer) listing(k schema.Kit) kitListing {
	lessons, _ := s.catalog.KitLessons(k.ID)
	sums := make([]schema.LessonSummary, len(lessons))
	for i, l := range lessons {
		sums[i] = l.Summary()
	}
	return kitListing{Kit: k, LessonSummaries: sums}
}

// handleLesson returns a lesson with its steps.
func (s *AcademyServer) handleLesson(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lessonID, err := req.RequireString("lesson_id")
	if err != nil {
		return mcp.NewToolResultError("lesson_id is required"), nil
	}
	l, ok := s.catalog.Lesson(lessonID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("lesson %q not found", lessonID)), nil
	}
	return marshalResult(l)
}

// handleStep renders one lesson step with no hints revealed.
func (s *AcademyServer) handleStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lessonID, err := req.RequireString("lesson_id")
	if err != nil {
		return mcp.NewToolResultError("lesson_id is required"), nil
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError("index is required"), nil
	}
	l, ok := s.catalog.Lesson(lessonID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("lesson %q not found", lessonID)), nil
	}
	view, err := s.renderer.Render(l, index, nil)
	if err != nil {
		return toolError(err), nil
	}
	return marshalResult(view)
}

// handleProgress returns the learner's dashboard.
func (s *AcademyServer) handleProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	learnerID, err := req.RequireString("learner_id")
	if err != nil {
		return mcp.NewToolResultError("learner_id is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("learner progress is not available on this server"), nil
	}
	s.captureSession(ctx, learnerID)

	d, err := s.sessions.Dashboard(logging.WithLearnerID(ctx, learnerID), learnerID, req.GetString("kit_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return marshalResult(d)
}

// handleQuery runs a jq expression over the catalog.
func (s *AcademyServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("jq")
	if err != nil {
		return mcp.NewToolResultError("jq is required"), nil
	}
	results, err := s.querier.Query(ctx, expr)
	if err != nil {
		return toolError(err), nil
	}
	return marshalResult(map[string]any{"results": results})
}

// handleSession dispatches a session action to the session service.
func (s *AcademyServer) handleSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("sessions are not available on this server"), nil
	}

	if action == "start" {
		learnerID := req.GetString("learner_id", "")
		lessonID := req.GetString("lesson_id", "")
		if learnerID == "" || lessonID == "" {
			return mcp.NewToolResultError("learner_id and lesson_id are required to start a session"), nil
		}
		s.captureSession(ctx, learnerID)
		st, err := s.sessions.Start(logging.WithIDs(ctx, learnerID, lessonID, ""), learnerID, lessonID)
		if err != nil {
			return toolError(err), nil
		}
		return marshalResult(st)
	}

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var fn func(context.Context, string) (*session.State, error)
	switch action {
	case "get":
		fn = s.sessions.Get
	case "next":
		fn = s.sessions.Next
	case "back":
		fn = s.sessions.Back
	case "hint":
		fn = s.sessions.RevealHint
	case "reset_hints":
		fn = s.sessions.ResetHints
	case "abandon":
		fn = s.sessions.Abandon
	case "rate":
		stars, err := req.RequireInt("stars")
		if err != nil {
			return mcp.NewToolResultError("stars is required"), nil
		}
		if err := s.sessions.RateChallenge(ctx, sessionID, req.GetString("step_id", ""), stars); err != nil {
			return toolError(err), nil
		}
		return marshalResult(map[string]any{"session_id": sessionID, "stars": stars})
	case "complete":
		c, err := s.sessions.Complete(ctx, sessionID)
		if err != nil {
			return toolError(err), nil
		}
		s.captureSession(ctx, c.Session.LearnerID)
		return marshalResult(c)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}

	st, err := fn(ctx, sessionID)
	if err != nil {
		return toolError(err), nil
	}
	s.captureSession(ctx, st.Session.LearnerID)
	return marshalResult(st)
}

// handleDiagram draws a lesson map or a kit roadmap.
func (s *AcademyServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	lessonID := req.GetString("lesson_id", "")
	kitID := req.GetString("kit_id", "")
	learnerID := req.GetString("learner_id", "")

	var model *diagram.DiagramModel
	switch {
	case lessonID != "":
		l, ok := s.catalog.Lesson(lessonID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("lesson %q not found", lessonID)), nil
		}
		model = diagram.BuildLessonMap(l, req.GetInt("current", -1))
	case kitID != "":
		k, ok := s.catalog.KitByID(kitID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("kit %q not found", kitID)), nil
		}
		lessons, _ := s.catalog.KitLessons(k.ID)
		p := schema.InitialProgress()
		var completed []string
		if learnerID != "" && s.sessions != nil && s.store != nil {
			lp, err := s.sessions.Progress(ctx, learnerID)
			if err != nil {
				return toolError(err), nil
			}
			p = lp.UserProgress
			done, err := s.store.ListCompletedLessons(ctx, learnerID)
			if err != nil {
				return toolError(err), nil
			}
			for _, c := range done {
				completed = append(completed, c.LessonID)
			}
		}
		model = diagram.BuildKitRoadmap(k, s.unlocker.Statuses(ctx, lessons, completed, p))
	default:
		return mcp.NewToolResultError("one of lesson_id or kit_id is required"), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCIIAuto(ctx, model, s.toolsDir)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("academy.diagram",
		mcp.WithDescription("Draw a lesson map or a kit roadmap. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"),
		mcp.WithString("lesson_id", mcp.Description("Lesson to map step by step")),
		mcp.WithNumber("current", mcp.Description("Current step index to highlight in a lesson map")),
		mcp.WithString("kit_id", mcp.Description("Kit whose lesson roadmap to draw")),
		mcp.WithString("learner_id", mcp.Description("Overlay this learner's lesson states on a kit roadmap")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
	)
}

// captureSession maps the learner to the current MCP session for notifications.
func (s *AcademyServer) captureSession(ctx context.Context, learnerID string) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil && learnerID != "" {
		s.learners.Register(learnerID, cs.SessionID())
	}
}

// toolError renders an error as a tool error result. AcademyError text
// already carries its code.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
