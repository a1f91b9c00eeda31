package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/vaani/internal/voice"
	"github.com/ent0n29/vaani/internal/voicelib"
)

type cloneVoiceRequest struct {
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Provider string   `json:"provider"`
	Samples  []string `json:"samples"`
}

func (s *Server) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	var req cloneVoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	samples := make([][]byte, 0, len(req.Samples))
	for i, raw := range req.Samples {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_audio", fmt.Sprintf("sample %d: %v", i, err))
			return
		}
		samples = append(samples, data)
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = "anonymous"
	}

	v, err := s.deps.Voices.Clone(r.Context(), voicelib.CloneInput{
		UserID:   userID,
		Name:     req.Name,
		Language: req.Language,
		Provider: req.Provider,
		Samples:  samples,
	})
	if err != nil {
		if v.ID != "" {
			// The failed record is stored; report it alongside the error.
			respondJSON(w, http.StatusBadGateway, map[string]any{
				"error": err.Error(),
				"code":  "clone_failed",
				"voice": v,
			})
			return
		}
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "query parameter user_id is required")
		return
	}
	list, err := s.deps.Voices.ListByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": list, "count": len(list)})
}

func (s *Server) handleGetVoice(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Voices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVoice(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Voices.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type synthesizeVoiceRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) handleSynthesizeVoice(w http.ResponseWriter, r *http.Request) {
	var req synthesizeVoiceRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, used, err := s.deps.Voices.Synthesize(r.Context(), chi.URLParam(r, "id"), voice.SpeakableText(req.Text), req.Language)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSynthesizeResponse(res, used))
}
