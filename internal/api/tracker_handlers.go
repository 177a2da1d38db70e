package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kelvinho/progressd/internal/progress"
	"github.com/kelvinho/progressd/internal/registry"
	"github.com/kelvinho/progressd/internal/render"
)

// createTracker handles POST /v1/trackers. The optional body carries the
// initial absolute progress; it defaults to 0.
func (s *Server) createTracker(w http.ResponseWriter, r *http.Request) {
	var req createTrackerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	entry, err := s.registry.Create(req.Initial)
	if err != nil {
		s.logger.Error("create tracker failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create tracker")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tracker": s.toDTO(entry)})
}

// listTrackers handles GET /v1/trackers, oldest first.
func (s *Server) listTrackers(w http.ResponseWriter, _ *http.Request) {
	entries := s.registry.List()
	out := make([]trackerDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, s.toDTO(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trackers": out})
}

// getTracker handles GET /v1/trackers/{tracker_id}.
func (s *Server) getTracker(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracker": s.toDTO(entry)})
}

// deleteTracker handles DELETE /v1/trackers/{tracker_id}.
func (s *Server) deleteTracker(w http.ResponseWriter, r *http.Request) {
	id, err := parseTrackerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.registry.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "tracker not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setTracker handles POST /v1/trackers/{tracker_id}/set. The value is local
// to the tracker's active frame and is deliberately not clamped.
func (s *Server) setTracker(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "missing value")
		return
	}
	entry.Tracker.Set(*req.Value)
	writeJSON(w, http.StatusOK, map[string]any{"tracker": s.toDTO(entry)})
}

// pushRange handles POST /v1/trackers/{tracker_id}/push.
func (s *Server) pushRange(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lower == nil || req.Upper == nil {
		writeError(w, http.StatusBadRequest, "missing lower/upper bounds")
		return
	}
	if err := entry.Tracker.PushRange(*req.Lower, *req.Upper); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracker": s.toDTO(entry)})
}

// popRange handles POST /v1/trackers/{tracker_id}/pop. Popping the base frame
// maps to 409: the request is well-formed but conflicts with the stack state.
func (s *Server) popRange(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := entry.Tracker.PopRange(); err != nil {
		if errors.Is(err, progress.ErrUnderflow) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracker": s.toDTO(entry)})
}

// forceDone handles POST /v1/trackers/{tracker_id}/done — the documented
// unsafe escape hatch that bypasses range translation.
func (s *Server) forceDone(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	entry.Tracker.SetDoneUnsafe()
	writeJSON(w, http.StatusOK, map[string]any{"tracker": s.toDTO(entry)})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (registry.Entry, bool) {
	id, err := parseTrackerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return registry.Entry{}, false
	}
	entry, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "tracker not found")
		return registry.Entry{}, false
	}
	return entry, true
}

func parseTrackerID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "tracker_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("tracker_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid tracker_id")
	}
	return id, nil
}

func (s *Server) toDTO(entry registry.Entry) trackerDTO {
	snap := entry.Tracker.Snap()
	// Width comes from validated config, so the bar cannot fail here.
	bar, _ := render.Bar(snap.True, s.cfg.Display.Width)
	return trackerDTO{
		ID:        entry.ID.String(),
		CreatedAt: entry.CreatedAt,
		True:      snap.True,
		Local:     snap.Local,
		Lower:     snap.Lower,
		Upper:     snap.Upper,
		Percent:   snap.Percent,
		Depth:     snap.Depth,
		Done:      snap.Done,
		Bar:       bar,
	}
}

type createTrackerRequest struct {
	Initial float64 `json:"initial"`
}

type setRequest struct {
	Value *float64 `json:"value"`
}

type pushRequest struct {
	Lower *float64 `json:"lower"`
	Upper *float64 `json:"upper"`
}

type trackerDTO struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	True      float64   `json:"true"`
	Local     float64   `json:"local"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
	Percent   int       `json:"percent"`
	Depth     int       `json:"depth"`
	Done      bool      `json:"done"`
	Bar       string    `json:"bar"`
}
