package web

import (
	"net/http"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/go-chi/chi/v5"
)

type saveInputRequest struct {
	ItemAID string       `json:"item_a_id"`
	Inputs  []core.Input `json:"inputs"`
}

type saveInputResponse struct {
	Status  string `json:"status"`
	InputID string `json:"input_id"`
}

// handleSaveInput validates and appends one record.
func (s *Server) handleSaveInput(w http.ResponseWriter, r *http.Request) {
	var req saveInputRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err)
		return
	}

	rec, err := s.service.SaveInput(r.Context(), req.ItemAID, req.Inputs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, saveInputResponse{Status: "success", InputID: rec.ID})
}

func (s *Server) handleListInputs(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListInputs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, records)
}

func (s *Server) handleInputsByItem(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListInputsByItem(r.Context(), chi.URLParam(r, "itemAID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, records)
}
