// Package mcp exposes the academy to assistants as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/content"
	"github.com/axiometa/academy/internal/lesson"
	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/session"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/internal/streaming"
)

// AcademyServerDeps holds the dependencies for creating an AcademyServer.
// Sessions, Store and Hub are only needed by the learner tools.
type AcademyServerDeps struct {
	Catalog  *catalog.Catalog
	Sessions session.Service
	Store    store.Store
	Unlocker *progress.Unlocker
	Hub      streaming.EventHub
	// ToolsDir is searched for a mermaid-ascii binary for ASCII diagrams.
	ToolsDir string
	Logger   *slog.Logger
}

// AcademyServer wraps an MCP server with the academy tool handlers.
type AcademyServer struct {
	catalog   *catalog.Catalog
	sessions  session.Service
	store     store.Store
	unlocker  *progress.Unlocker
	hub       streaming.EventHub
	toolsDir  string
	logger    *slog.Logger
	renderer  *lesson.Renderer
	querier   *catalog.Querier
	learners  *SessionRegistry
	notifier  LearnerNotifier
	mcpServer *server.MCPServer
}

// NewAcademyServer creates an AcademyServer with every tool registered.
func NewAcademyServer(deps AcademyServerDeps) *AcademyServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(logging.NewCorrelationHandler(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.New(&content.Bundle{})
	}
	unlocker := deps.Unlocker
	if unlocker == nil {
		unlocker, _ = progress.NewUnlocker(logger)
	}

	s := &AcademyServer{
		catalog:  cat,
		sessions: deps.Sessions,
		store:    deps.Store,
		unlocker: unlocker,
		hub:      deps.Hub,
		toolsDir: deps.ToolsDir,
		logger:   logger,
		renderer: lesson.NewRenderer(cat, logger),
		querier:  catalog.NewQuerier(cat),
		learners: NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"academy",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("The academy teaches electronics through hardware kits and step-by-step lessons. Use academy.kits to browse kits, academy.lesson and academy.step to read lesson content, academy.progress for a learner's level and unlocked lessons, academy.session to walk a learner through a lesson, academy.diagram for lesson maps and kit roadmaps, and academy.query to run jq over the catalog."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.learners)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *AcademyServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *AcademyServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *AcademyServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: kitsTool(), Handler: s.handleKits},
		{Tool: lessonTool(), Handler: s.handleLesson},
		{Tool: stepTool(), Handler: s.handleStep},
		{Tool: progressTool(), Handler: s.handleProgress},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: sessionTool(), Handler: s.handleSession},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func kitsTool() mcp.Tool {
	return mcp.NewTool("academy.kits",
		mcp.WithDescription("List hardware kits with their lessons"),
		mcp.WithString("kit_id", mcp.Description("Return a single kit with its lesson summaries")),
		mcp.WithString("filter",
			mcp.Enum("all", "available", "featured"),
			mcp.Description("Which kits to list (default: all)"),
		),
	)
}

func lessonTool() mcp.Tool {
	return mcp.NewTool("academy.lesson",
		mcp.WithDescription("Get a lesson with its ordered steps"),
		mcp.WithString("lesson_id", mcp.Required(), mcp.Description("ID of the lesson")),
	)
}

func stepTool() mcp.Tool {
	return mcp.NewTool("academy.step",
		mcp.WithDescription("Render one step of a lesson as the lesson player shows it"),
		mcp.WithString("lesson_id", mcp.Required(), mcp.Description("ID of the lesson")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based step index")),
	)
}

func progressTool() mcp.Tool {
	return mcp.NewTool("academy.progress",
		mcp.WithDescription("Get a learner's level, XP and lesson states for a kit"),
		mcp.WithString("learner_id", mcp.Required(), mcp.Description("ID of the learner")),
		mcp.WithString("kit_id", mcp.Description("Kit to report on (default: the learner's selected kit)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("academy.query",
		mcp.WithDescription("Run a jq expression over the catalog document {kits, boards, modules, lessons}"),
		mcp.WithString("jq", mcp.Required(), mcp.Description("jq expression, e.g. [.lessons[].id]")),
	)
}

func sessionTool() mcp.Tool {
	return mcp.NewTool("academy.session",
		mcp.WithDescription("Drive a learner's lesson session"),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("start", "get", "next", "back", "hint", "reset_hints", "rate", "complete", "abandon"),
			mcp.Description("Session action to perform"),
		),
		mcp.WithString("learner_id", mcp.Description("Learner ID (required for start)")),
		mcp.WithString("lesson_id", mcp.Description("Lesson ID (required for start)")),
		mcp.WithString("session_id", mcp.Description("Session ID (required for every action except start)")),
		mcp.WithNumber("stars", mcp.Description("Self-rating 1..3 (required for rate)")),
		mcp.WithString("step_id", mcp.Description("Challenge step to rate (default: current step)")),
	)
}
