package web

import (
	"net/http"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.CreateUser(r.Context(), req.Username, req.Password, req.Role); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]string{"status": "success"})
}

// handleDeleteUser removes the account and ends its sessions.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := s.service.DeleteUser(r.Context(), username); err != nil {
		respondError(w, r, err)
		return
	}
	s.sessions.DeleteUser(username)
	writeJSON(w, r, map[string]string{"status": "success"})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req changePasswordRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.ChangePassword(r.Context(), username, req.Password); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]string{"status": "success"})
}
