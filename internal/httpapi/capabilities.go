package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
	"github.com/ent0n29/vaani/internal/voice"
)

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"languages": s.deps.Catalog.Languages()})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	capability, err := provider.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_capability", err.Error())
		return
	}
	creds := s.deps.Catalog.ValidateCredentials(s.deps.Config.Credential)[capability]
	type providerView struct {
		provider.Descriptor
		Configured bool `json:"configured"`
	}
	descs := s.deps.Catalog.Providers(capability)
	out := make([]providerView, 0, len(descs))
	for _, d := range descs {
		out = append(out, providerView{Descriptor: d, Configured: creds[d.Key]})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"capability":    capability,
		"providers":     out,
		"default_chain": s.deps.Catalog.DefaultChain(capability),
	})
}

func (s *Server) handleFreeTier(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Catalog.FreeTier())
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "language")
	rec, ok := s.deps.Catalog.Recommendation(tag)
	if !ok {
		respondError(w, http.StatusNotFound, "unsupported_language", "no recommendation for language "+tag)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"language": tag, "recommendation": rec})
}

type generateRequest struct {
	Prompt            string  `json:"prompt"`
	SystemInstruction string  `json:"system_instruction"`
	Language          string  `json:"language"`
	Provider          string  `json:"provider"`
	Temperature       float64 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 500
	}
	chain := s.deps.Catalog.Chain(provider.CapabilityLLM, req.Provider)
	res, used, err := s.deps.Invoker.Generate(r.Context(), chain.Keys, provider.LLMRequest{
		Prompt:            req.Prompt,
		SystemInstruction: req.SystemInstruction,
		Language:          req.Language,
		Temperature:       req.Temperature,
		MaxTokens:         req.MaxTokens,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": res.Text, "provider": used})
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
	Provider string `json:"provider"`
}

type synthesizeResponse struct {
	Provider string `json:"provider"`
	Format   string `json:"format,omitempty"`
	Audio    string `json:"audio,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

func newSynthesizeResponse(res provider.TTSResult, used string) synthesizeResponse {
	out := synthesizeResponse{Provider: used, Format: res.Format, AudioURL: res.URL}
	if len(res.Audio) > 0 {
		out.Audio = base64.StdEncoding.EncodeToString(res.Audio)
		if out.Format == "" {
			out.Format = audio.Sniff(res.Audio)
		}
	}
	return out
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	text := voice.SpeakableText(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	chain := s.deps.Catalog.Chain(provider.CapabilityTTS, req.Provider)
	res, used, err := s.deps.Invoker.Synthesize(r.Context(), chain.Keys, provider.TTSRequest{
		Text:     text,
		Language: voice.NormalizeLanguage(req.Language),
		Voice:    req.Voice,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSynthesizeResponse(res, used))
}

type transcribeRequest struct {
	Audio    string `json:"audio"`
	Format   string `json:"format"`
	Language string `json:"language"`
	Provider string `json:"provider"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.Audio))
	if err != nil || len(data) == 0 {
		if err == nil {
			err = errors.New("audio is required")
		}
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
		return
	}
	format := req.Format
	if format == "" {
		format = audio.Sniff(data)
	}
	chain := s.deps.Catalog.Chain(provider.CapabilitySTT, req.Provider)
	res, used, err := s.deps.Invoker.Transcribe(r.Context(), chain.Keys, provider.STTRequest{
		Audio:    data,
		Format:   format,
		Language: req.Language,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": res.Text, "provider": used})
}
