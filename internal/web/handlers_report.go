package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGenerateItem(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.service.GenerateItemReport(r.Context(), chi.URLParam(r, "itemAID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.serveArtifact(w, r, artifact)
}

func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.service.GenerateAllReport(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.serveArtifact(w, r, artifact)
}

// serveArtifact streams a generated PDF as a download. The bytes come from
// the request's own render, not a re-read of the shared output file.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, artifact *core.Artifact) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(artifact.Name)))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, artifact.Name, artifact.CreatedAt, bytes.NewReader(artifact.Data))
}

// handleHealth reports liveness, the storage driver and job slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"storage": s.driver,
		"jobs":    s.service.LimiterStatus(),
	})
}
