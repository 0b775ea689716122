// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jason-s-yu/linot/internal/auth"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/models"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// CreateUserHandler registers a user. The stored password is an argon2id hash and is never
// echoed back.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.Logger.WithError(err).Error("failed to hash password")
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user := models.User{
		Email:    req.Email,
		Password: hash,
		Username: req.Username,
		Rating:   database.DefaultRating,
	}
	if err := s.Repo.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		s.Logger.WithError(err).Error("failed to create user")
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler checks credentials and returns a session token, also set as the auth_token
// cookie.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password"
//	}
//
// Response payload:
//
//	{
//	  "token": "{jwt}"
//	}
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := s.Repo.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || !auth.VerifyPassword(req.Password, user.Password) {
		s.Logger.WithField("email", req.Email).Info("login failed")
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	token, err := s.Auth.Issue(user.ID)
	if err != nil {
		s.Logger.WithError(err).Error("failed to issue token")
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   int(s.Auth.TTL().Seconds()),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
