package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/vaani/internal/telephony"
)

func (s *Server) handlePlaceCall(w http.ResponseWriter, r *http.Request) {
	var in telephony.PlaceInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if in.AgentID != "" {
		if _, err := s.deps.Agents.Get(r.Context(), in.AgentID); err != nil {
			respondDomainError(w, err)
			return
		}
	}
	call, err := s.deps.Calls.Place(r.Context(), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, call)
}

func (s *Server) handleCallProviders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"providers": s.deps.Calls.Providers()})
}

func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	call, err := s.deps.Calls.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, call)
}

func (s *Server) handleHangUp(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Calls.HangUp(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"call_id": chi.URLParam(r, "id"), "status": "completed"})
}

func (s *Server) handleRecordCall(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Calls.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, rec)
}
