// internal/handlers/match.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
)

type createMatchResponse struct {
	ID     uuid.UUID          `json:"id"`
	Config models.MatchConfig `json:"config"`
}

// CreateMatchHandler opens a match in Waiting. The body is optional; unknown keys are ignored.
//
//	{"max_players": 4, "host": "{uuid}", "is_ranked": false, "strict_mode": false}
//
// The caller becomes host when none is given. Creating does not join the caller.
func (s *Server) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	raw := map[string]interface{}{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad match request payload", http.StatusBadRequest)
		return
	}
	cfg := models.DefaultMatchConfig()
	if err := cfg.Update(raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.Store.Create(r.Context(), cfg, userID)
	if err != nil {
		s.Logger.WithError(err).Error("failed to create match")
		http.Error(w, "failed to create match", http.StatusInternalServerError)
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusCreated, createMatchResponse{ID: snap.ID, Config: snap.Config})
}

// ListMatchesHandler returns match summaries, newest first. ?status= filters by lifecycle stage.
func (s *Server) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	status := game.Status(r.URL.Query().Get("status"))
	switch status {
	case "", game.StatusWaiting, game.StatusInProgress, game.StatusFinished:
	default:
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	list, err := s.Store.List(r.Context(), status)
	if err != nil {
		s.Logger.WithError(err).Error("failed to list matches")
		http.Error(w, "failed to list matches", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.MatchSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ViewMatchHandler returns the caller's own view of a match they joined.
func (s *Server) ViewMatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	view, ok := sess.View(userID)
	if !ok {
		http.Error(w, "not a player in this match", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DebugMatchHandler returns every hand and the deck order. It is only served once the match has
// finished so it cannot be used to peek at a live game.
func (s *Server) DebugMatchHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	view := sess.Debug()
	if view.Status != game.StatusFinished {
		http.Error(w, "match still running", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
