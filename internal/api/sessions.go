package api

import (
	"context"
	"net/http"

	"github.com/axiometa/academy/internal/diagram"
	"github.com/axiometa/academy/internal/session"
	"github.com/axiometa/academy/internal/store"
)

type rateRequest struct {
	StepID string `json:"step_id"`
	Stars  int    `json:"stars"`
}

type stateFunc func(ctx context.Context, sessionID string) (*session.State, error)

// sessionAction adapts a session.Service call returning a State to a handler.
func (s *Server) sessionAction(fn stateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := fn(r.Context(), r.PathValue("id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.Get)(w, r)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.Next)(w, r)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.Back)(w, r)
}

func (s *Server) handleRevealHint(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.RevealHint)(w, r)
}

func (s *Server) handleResetHints(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.ResetHints)(w, r)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(s.deps.Sessions.Abandon)(w, r)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Sessions.RateChallenge(r.Context(), r.PathValue("id"), req.StepID, req.Stars); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Sessions.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeError(w, http.StatusNotImplemented, "event log not configured")
		return
	}
	events, err := s.deps.Events.SessionEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleReplay rebuilds a session's state from its events alone.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		writeError(w, http.StatusNotImplemented, "event log not configured")
		return
	}
	state, err := s.deps.Events.ReplaySession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSessionMap draws the session's lesson with its current step marked.
func (s *Server) handleSessionMap(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	l, err := s.lesson(st.Session.LessonID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.writeDiagram(w, r, diagram.BuildLessonMap(l, st.Session.StepIndex))
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Scheduler.Jobs())
}
