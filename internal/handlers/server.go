// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/auth"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/match"
	"github.com/jason-s-yu/linot/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Server holds everything the HTTP and websocket handlers share.
type Server struct {
	Store  *match.Store
	Repo   database.Repository
	Auth   *auth.Authenticator
	Logger *logrus.Logger
}

// Routes registers every endpoint behind the request logger.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/create", s.CreateUserHandler)
	mux.HandleFunc("POST /user/login", s.LoginHandler)

	mux.HandleFunc("POST /match/create", s.CreateMatchHandler)
	mux.HandleFunc("GET /match/list", s.ListMatchesHandler)
	mux.HandleFunc("GET /match/view/{id}", s.ViewMatchHandler)
	mux.HandleFunc("GET /match/debug/{id}", s.DebugMatchHandler)
	mux.HandleFunc("GET /match/ws/{id}", s.MatchWSHandler)

	return middleware.LogMiddleware(s.Logger)(mux)
}

// authenticate resolves the caller or writes a 401.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := s.Auth.FromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}

// session resolves the {id} path value to a live session or writes the error.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*match.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return nil, false
	}
	sess, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, match.ErrMatchNotFound) {
		http.Error(w, "match not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.Logger.WithError(err).WithField("match_id", id).Error("failed to load match")
		http.Error(w, "failed to load match", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMessage is sent to websocket clients for rejected or malformed operations.
type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newErrorMessage maps engine errors to their code. Anything else is reported as internal.
func newErrorMessage(err error) errorMessage {
	var ge *game.Error
	switch {
	case errors.As(err, &ge):
		return errorMessage{Type: "error", Code: string(ge.Code), Message: ge.Error()}
	case errors.Is(err, match.ErrSessionClosed):
		return errorMessage{Type: "error", Code: "match_closed", Message: err.Error()}
	default:
		return errorMessage{Type: "error", Code: "internal", Message: "internal error"}
	}
}
