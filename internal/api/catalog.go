package api

import (
	"net/http"
	"strconv"

	"github.com/axiometa/academy/internal/diagram"
	"github.com/axiometa/academy/pkg/schema"
)

func (s *Server) handleKits(w http.ResponseWriter, r *http.Request) {
	kits := s.deps.Catalog.Kits()
	switch {
	case r.URL.Query().Get("featured") == "true":
		kits = s.deps.Catalog.FeaturedKits()
	case r.URL.Query().Get("available") == "true":
		kits = s.deps.Catalog.AvailableKits()
	}
	writeJSON(w, http.StatusOK, kits)
}

func (s *Server) handleKit(w http.ResponseWriter, r *http.Request) {
	kit, err := s.kit(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kit)
}

func (s *Server) handleKitLessons(w http.ResponseWriter, r *http.Request) {
	kit, err := s.kit(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	lessons, _ := s.deps.Catalog.KitLessons(kit.ID)
	out := make([]schema.LessonSummary, len(lessons))
	for i, l := range lessons {
		out[i] = l.Summary()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleKitRoadmap draws the kit's lessons. With ?learner= the nodes carry
// that learner's lesson states; otherwise a fresh learner is assumed.
func (s *Server) handleKitRoadmap(w http.ResponseWriter, r *http.Request) {
	kit, err := s.kit(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	lessons, _ := s.deps.Catalog.KitLessons(kit.ID)

	p := schema.InitialProgress()
	var completed []string
	if learnerID := r.URL.Query().Get("learner"); learnerID != "" {
		lp, err := s.deps.Sessions.Progress(r.Context(), learnerID)
		if err != nil {
			writeErr(w, err)
			return
		}
		p = lp.UserProgress
		if completed, err = s.completedIDs(r, learnerID); err != nil {
			writeErr(w, err)
			return
		}
	}

	statuses := s.deps.Unlocker.Statuses(r.Context(), lessons, completed, p)
	s.writeDiagram(w, r, diagram.BuildKitRoadmap(kit, statuses))
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("available") == "true" {
		writeJSON(w, http.StatusOK, s.deps.Catalog.AvailableBoards())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.Boards())
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	if cat := r.URL.Query().Get("category"); cat != "" {
		writeJSON(w, http.StatusOK, s.deps.Catalog.ModulesByCategory(cat))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Catalog.Modules())
}

// handleModule looks a module up by id or SKU.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	m, ok := s.deps.Catalog.LookupModule(key)
	if !ok {
		writeErr(w, schema.NewErrorf(schema.ErrCodeNotFound, "module %q not found", key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"module": m,
		"usage":  s.deps.Catalog.ModuleUsage(m.ID),
	})
}

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	lessons := s.deps.Catalog.Lessons()
	q := r.URL.Query()
	if board := q.Get("board"); board != "" {
		lessons = s.deps.Catalog.LessonsByBoard(board)
	}
	out := make([]schema.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		if t := q.Get("type"); t != "" && string(l.Type) != t {
			continue
		}
		out = append(out, l.Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.lesson(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleLessonStep renders one step outside any session: no hints shown.
func (s *Server) handleLessonStep(w http.ResponseWriter, r *http.Request) {
	l, err := s.lesson(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "step index must be an integer")
		return
	}
	view, err := s.renderer.Render(l, idx, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLessonMap(w http.ResponseWriter, r *http.Request) {
	l, err := s.lesson(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	s.writeDiagram(w, r, diagram.BuildLessonMap(l, queryInt(r, "current", -1)))
}

// handleQuery runs a jq expression over the catalog document.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("jq")
	if expr == "" {
		writeError(w, http.StatusBadRequest, "jq parameter is required")
		return
	}
	results, err := s.querier.Query(r.Context(), expr)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// writeDiagram renders model in the ?format= requested: mermaid (default),
// ascii or png.
func (s *Server) writeDiagram(w http.ResponseWriter, r *http.Request, model *diagram.DiagramModel) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(diagram.RenderMermaid(model)))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(diagram.RenderASCIIAuto(r.Context(), model, s.deps.ToolsDir)))
	case "png":
		img, err := diagram.RenderImage(r.Context(), model)
		if err != nil {
			s.deps.Logger.ErrorContext(r.Context(), "render diagram image", "error", err)
			writeError(w, http.StatusInternalServerError, "diagram rendering failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	default:
		writeError(w, http.StatusBadRequest, "format must be mermaid, ascii or png")
	}
}

func (s *Server) kit(id string) (schema.Kit, error) {
	k, ok := s.deps.Catalog.KitByID(id)
	if !ok {
		return schema.Kit{}, schema.NewErrorf(schema.ErrCodeNotFound, "kit %q not found", id)
	}
	return k, nil
}

func (s *Server) lesson(id string) (*schema.Lesson, error) {
	l, ok := s.deps.Catalog.Lesson(id)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "lesson %q not found", id)
	}
	return l, nil
}

func (s *Server) completedIDs(r *http.Request, learnerID string) ([]string, error) {
	done, err := s.deps.Store.ListCompletedLessons(r.Context(), learnerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(done))
	for i, c := range done {
		ids[i] = c.LessonID
	}
	return ids, nil
}

