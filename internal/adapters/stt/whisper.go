package stt

import (
	"context"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
)

type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Whisper speaks the OpenAI audio transcription API. Groq serves the same
// contract, so groq_whisper and openai_whisper differ only in config.
type Whisper struct {
	api *apiclient.Client
	cfg WhisperConfig
}

func NewWhisper(api *apiclient.Client, cfg WhisperConfig) *Whisper {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return &Whisper{api: api, cfg: cfg}
}

func NewOpenAIWhisper(api *apiclient.Client, apiKey string) *Whisper {
	return NewWhisper(api, WhisperConfig{APIKey: apiKey, BaseURL: OpenAIBaseURL, Model: "whisper-1"})
}

func NewGroqWhisper(api *apiclient.Client, apiKey string) *Whisper {
	return NewWhisper(api, WhisperConfig{APIKey: apiKey, BaseURL: GroqBaseURL, Model: "whisper-large-v3"})
}

func (w *Whisper) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := w.api.RequireKeys(w.cfg.APIKey); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(w.api.Name())
	}
	f := format(req)
	fields := map[string]string{
		"model":           w.cfg.Model,
		"response_format": "json",
	}
	if lang := provider.BaseLanguage(req.Language); lang != "" {
		fields["language"] = lang
	}
	var out struct {
		Text string `json:"text"`
	}
	err := w.api.Multipart(ctx, w.cfg.BaseURL+"/audio/transcriptions",
		apiclient.Header("Authorization", "Bearer "+w.cfg.APIKey),
		fields,
		[]apiclient.FilePart{{
			Field:       "file",
			Filename:    "audio." + audio.FileExtension(f),
			ContentType: audio.ContentType(f),
			Data:        req.Audio,
		}},
		&out)
	if err != nil {
		return provider.STTResult{}, err
	}
	return provider.STTResult{Text: out.Text}, nil
}
