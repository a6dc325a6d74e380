package api

import (
	"net/http"

	"github.com/axiometa/academy/internal/diagram"
	"github.com/axiometa/academy/internal/progress"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/pkg/schema"
)

// --- Page data types ---

type pageData struct {
	Title  string
	Active string
}

type indexData struct {
	pageData
	Kits     []schema.Kit
	Learners []*store.Learner
}

type dashboardPageData struct {
	pageData
	Learner   *store.Learner
	Dashboard *progress.Dashboard
	Sessions  []*store.LessonSession
	Roadmap   string
}

// --- Page handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	learners, err := s.deps.Store.ListLearners(r.Context())
	if err != nil {
		s.deps.Logger.ErrorContext(r.Context(), "list learners", "error", err)
	}
	s.renderPage(w, "index.html", indexData{
		pageData: pageData{Title: "Academy", Active: "index"},
		Kits:     s.deps.Catalog.Kits(),
		Learners: learners,
	})
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learnerID := r.PathValue("learnerID")

	learner, err := s.deps.Store.GetLearner(ctx, learnerID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	d, err := s.deps.Sessions.Dashboard(ctx, learnerID, r.URL.Query().Get("kit"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	sessions, err := s.deps.Store.ListSessions(ctx, store.SessionFilter{LearnerID: learnerID, Limit: 10})
	if err != nil {
		s.deps.Logger.ErrorContext(ctx, "list sessions", "error", err)
	}

	data := dashboardPageData{
		pageData:  pageData{Title: learner.Name + " - Dashboard", Active: "dashboard"},
		Learner:   learner,
		Dashboard: d,
		Sessions:  sessions,
	}
	if d.Kit != nil {
		data.Roadmap = diagram.RenderMermaid(diagram.BuildKitRoadmap(*d.Kit, d.Lessons))
	}
	s.renderPage(w, "dashboard.html", data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"lessons": len(s.deps.Catalog.Lessons()),
	})
}
