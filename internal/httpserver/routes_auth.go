package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/auth"
)

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuth registers /auth/signup, /auth/login, /auth/logout and /auth/me.
func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.d.Auth.ClearCookie(w)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.With(s.d.Auth.Require()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.d.Auth.Signup(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username taken")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.issueSession(w, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.d.Auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	s.issueSession(w, u, http.StatusOK)
}

type sessionRes struct {
	*auth.User
	Token string `json:"token"`
}

// issueSession signs a token, sets the cookie and returns both.
func (s *Server) issueSession(w http.ResponseWriter, u *auth.User, status int) {
	tok, exp, err := s.d.Auth.SignToken(u)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.d.Auth.SetCookie(w, tok, exp)
	writeJSON(w, status, sessionRes{User: u, Token: tok})
}
