package api

import (
	"encoding/json"
	"net/http"

	"github.com/axiometa/academy/internal/identity"
	"github.com/axiometa/academy/internal/logging"
	"github.com/axiometa/academy/internal/store"
	"github.com/axiometa/academy/pkg/schema"
)

type registerRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Role     string          `json:"role"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type selectKitRequest struct {
	KitID string `json:"kit_id"`
}

func (s *Server) handleLearners(w http.ResponseWriter, r *http.Request) {
	learners, err := s.deps.Store.ListLearners(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if learners == nil {
		learners = []*store.Learner{}
	}
	writeJSON(w, http.StatusOK, learners)
}

// handleRegisterLearner registers a learner, or returns the existing one
// when the id is already known. An empty id is generated.
func (s *Server) handleRegisterLearner(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = identity.NewLearnerID()
	}
	ctx := logging.WithLearnerID(r.Context(), req.ID)
	learner, err := identity.EnsureRegistered(ctx, s.deps.Store, req.ID, req.Name, req.Role, req.Metadata)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Logger.InfoContext(ctx, "learner registered", "role", learner.Role)
	writeJSON(w, http.StatusCreated, learner)
}

func (s *Server) handleLearner(w http.ResponseWriter, r *http.Request) {
	learner, err := s.deps.Store.GetLearner(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, learner)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Sessions.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Sessions.Dashboard(r.Context(), r.PathValue("id"), r.URL.Query().Get("kit"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSelectKit(w http.ResponseWriter, r *http.Request) {
	var req selectKitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.KitID == "" {
		writeError(w, http.StatusBadRequest, "kit_id is required")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Sessions.SelectKit(r.Context(), id, req.KitID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"learner_id": id, "selected_kit": req.KitID})
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	done, err := s.deps.Store.ListCompletedLessons(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if done == nil {
		done = []*store.CompletedLesson{}
	}
	writeJSON(w, http.StatusOK, done)
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	ratings, err := s.deps.Store.ListChallengeRatings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if ratings == nil {
		ratings = []*store.ChallengeRating{}
	}
	writeJSON(w, http.StatusOK, ratings)
}

// handleLearnerEvents returns the learner's event log after ?since= (a sequence number).
func (s *Server) handleLearnerEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Store.GetEvents(r.Context(), r.PathValue("id"), int64(queryInt(r, "since", 0)))
	if err != nil {
		writeErr(w, err)
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleLearnerSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SessionFilter{
		LearnerID: r.PathValue("id"),
		LessonID:  q.Get("lesson"),
		Limit:     queryInt(r, "limit", 50),
	}
	if st := q.Get("status"); st != "" {
		status := schema.SessionStatus(st)
		filter.Status = &status
	}
	sessions, err := s.deps.Store.ListSessions(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if sessions == nil {
		sessions = []*store.LessonSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleStartSession starts or resumes ?lesson= for the learner.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	lessonID := r.URL.Query().Get("lesson")
	if lessonID == "" {
		writeError(w, http.StatusBadRequest, "lesson parameter is required")
		return
	}
	learnerID := r.PathValue("id")
	ctx := logging.WithIDs(r.Context(), learnerID, lessonID, "")
	st, err := s.deps.Sessions.Start(ctx, learnerID, lessonID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
