package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/JonMunkholm/inputsheet/internal/logging"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin checks credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondError(w, r, &core.ValidationError{Message: "username and password are required"})
		return
	}

	user, err := s.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("login failed", "username", req.Username)
		respondError(w, r, err)
		return
	}

	sess, err := s.sessions.Create(user)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessions.TTL().Seconds()),
		Expires:  sess.ExpiresAt,
	})

	logging.FromContext(r.Context()).Info("login", "username", user.Username, "role", user.Role)
	writeJSON(w, r, map[string]any{
		"status":   "success",
		"username": user.Username,
		"role":     user.Role,
	})
}

// handleLogout ends the session, if any, and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := auth.FromContext(r.Context()); ok {
		s.sessions.Delete(sess.Token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, r, map[string]string{"status": "success"})
}

// handleCheck reports whether the caller has a live session.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, r, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, r, map[string]any{
		"authenticated": true,
		"username":      sess.Username,
		"role":          sess.Role,
	})
}
