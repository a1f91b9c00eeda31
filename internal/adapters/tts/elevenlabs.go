package tts

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const (
	ElevenLabsBaseURL      = "https://api.elevenlabs.io/v1"
	ElevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

type ElevenLabs struct {
	api    *apiclient.Client
	apiKey string
	base   string
	model  string
}

func NewElevenLabs(api *apiclient.Client, apiKey, baseURL string) *ElevenLabs {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = ElevenLabsBaseURL
	}
	return &ElevenLabs{api: api, apiKey: apiKey, base: baseURL, model: "eleven_multilingual_v2"}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if err := e.api.RequireKeys(e.apiKey); err != nil {
		return provider.TTSResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(e.api.Name(), "empty text")
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" || strings.Contains(voice, "://") {
		voice = ElevenLabsDefaultVoice
	}
	body := map[string]any{
		"text":     req.Text,
		"model_id": e.model,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	if lang := provider.BaseLanguage(req.Language); lang != "" {
		body["language_code"] = lang
	}
	raw, err := e.postJSONForAudio(ctx, e.base+"/text-to-speech/"+url.PathEscape(voice), body)
	if err != nil {
		return provider.TTSResult{}, err
	}
	return provider.TTSResult{Audio: raw, Format: "mp3"}, nil
}

func (e *ElevenLabs) postJSONForAudio(ctx context.Context, endpoint string, body map[string]any) ([]byte, error) {
	payload, err := marshal(e.api.Name(), body)
	if err != nil {
		return nil, err
	}
	raw, err := e.api.Raw(ctx, http.MethodPost, endpoint,
		apiclient.Header("xi-api-key", e.apiKey, "Accept", "audio/mpeg"),
		"application/json", payload)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, provider.Rejected(e.api.Name(), "empty audio body")
	}
	return raw, nil
}
