// Package api serves the academy's JSON API, learner event streams and the
// HTML learner dashboard.
package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/axiometa/academy/internal/catalog"
	"github.com/axiometa/academy/internal/lesson"
	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/scheduler"
	"github.com/axiometa/academy/internal/session"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/internal/streaming"
)

//go:embed templates static
var content embed.FS

// SessionLog reads a session's recorded events. Satisfied by *store.EventLog.
type SessionLog interface {
	SessionEvents(ctx context.Context, sessionID string) ([]*store.Event, error)
	ReplaySession(ctx context.Context, sessionID string) (*store.SessionState, error)
}

// Deps holds the dependencies for the API server. Scheduler and Events are optional.
type Deps struct {
	Store     store.Store
	Events    SessionLog
	Sessions  session.Service
	Catalog   *catalog.Catalog
	Unlocker  *progress.Unlocker
	Hub       streaming.EventHub
	Scheduler *scheduler.Scheduler
	// ToolsDir is searched for a mermaid-ascii binary for ASCII diagrams.
	ToolsDir string
	Logger   *slog.Logger
}

// Server serves the academy API and dashboard.
type Server struct {
	deps     Deps
	renderer *lesson.Renderer
	querier  *catalog.Querier
	pages    map[string]*template.Template
}

// NewServer creates a Server with parsed templates.
func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Sessions == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("api: store, sessions and catalog are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(logging.NewCorrelationHandler(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}
	if deps.Unlocker == nil {
		u, err := progress.NewUnlocker(deps.Logger)
		if err != nil {
			return nil, err
		}
		deps.Unlocker = u
	}

	funcMap := template.FuncMap{
		"timeAgo":     timeAgo,
		"statusBadge": statusBadge,
		"percent":     percent,
		"add":         add,
	}

	base := template.Must(template.New("").Funcs(funcMap).ParseFS(content, "templates/base.html"))
	pageFiles := []string{"index.html", "dashboard.html"}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone := template.Must(base.Clone())
		pages[pf] = template.Must(clone.ParseFS(content, "templates/"+pf))
	}

	return &Server{
		deps:     deps,
		renderer: lesson.NewRenderer(deps.Catalog, deps.Logger),
		querier:  catalog.NewQuerier(deps.Catalog),
		pages:    pages,
	}, nil
}

// Handler returns the HTTP handler for every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /dashboard/{learnerID}", s.handleDashboardPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// SSE.
	mux.HandleFunc("GET /sse/learners/{id}", s.handleSSELearner)

	// Catalog.
	mux.HandleFunc("GET /api/kits", s.handleKits)
	mux.HandleFunc("GET /api/kits/{id}", s.handleKit)
	mux.HandleFunc("GET /api/kits/{id}/lessons", s.handleKitLessons)
	mux.HandleFunc("GET /api/kits/{id}/roadmap", s.handleKitRoadmap)
	mux.HandleFunc("GET /api/boards", s.handleBoards)
	mux.HandleFunc("GET /api/modules", s.handleModules)
	mux.HandleFunc("GET /api/modules/{key}", s.handleModule)
	mux.HandleFunc("GET /api/lessons", s.handleLessons)
	mux.HandleFunc("GET /api/lessons/{id}", s.handleLesson)
	mux.HandleFunc("GET /api/lessons/{id}/steps/{index}", s.handleLessonStep)
	mux.HandleFunc("GET /api/lessons/{id}/map", s.handleLessonMap)
	mux.HandleFunc("GET /api/query", s.handleQuery)

	// Learners.
	mux.HandleFunc("GET /api/learners", s.handleLearners)
	mux.HandleFunc("POST /api/learners", s.handleRegisterLearner)
	mux.HandleFunc("GET /api/learners/{id}", s.handleLearner)
	mux.HandleFunc("GET /api/learners/{id}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/learners/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("PUT /api/learners/{id}/kit", s.handleSelectKit)
	mux.HandleFunc("GET /api/learners/{id}/completions", s.handleCompletions)
	mux.HandleFunc("GET /api/learners/{id}/ratings", s.handleRatings)
	mux.HandleFunc("GET /api/learners/{id}/events", s.handleLearnerEvents)
	mux.HandleFunc("GET /api/learners/{id}/sessions", s.handleLearnerSessions)
	mux.HandleFunc("POST /api/learners/{id}/sessions", s.handleStartSession)

	// Sessions.
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/next", s.handleNext)
	mux.HandleFunc("POST /api/sessions/{id}/back", s.handleBack)
	mux.HandleFunc("POST /api/sessions/{id}/hints", s.handleRevealHint)
	mux.HandleFunc("DELETE /api/sessions/{id}/hints", s.handleResetHints)
	mux.HandleFunc("POST /api/sessions/{id}/rating", s.handleRate)
	mux.HandleFunc("POST /api/sessions/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/sessions/{id}/abandon", s.handleAbandon)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("GET /api/sessions/{id}/replay", s.handleReplay)
	mux.HandleFunc("GET /api/sessions/{id}/map", s.handleSessionMap)

	// Maintenance.
	mux.HandleFunc("GET /api/jobs", s.handleJobs)

	return s.logRequests(mux)
}

// logRequests tags the request context with the learner id from the path or
// query so handler logs carry it.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("learner"); id != "" {
			r = r.WithContext(logging.WithLearnerID(r.Context(), id))
		}
		s.deps.Logger.DebugContext(r.Context(), "http request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// renderPage executes a page template by name.
func (s *Server) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
