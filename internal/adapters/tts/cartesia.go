package tts

import (
	"context"
	"net/http"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const (
	CartesiaBaseURL      = "https://api.cartesia.ai"
	CartesiaVersion      = "2024-06-10"
	CartesiaDefaultVoice = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

type Cartesia struct {
	api    *apiclient.Client
	apiKey string
	base   string
}

func NewCartesia(api *apiclient.Client, apiKey, baseURL string) *Cartesia {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = CartesiaBaseURL
	}
	return &Cartesia{api: api, apiKey: apiKey, base: baseURL}
}

func (c *Cartesia) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if err := c.api.RequireKeys(c.apiKey); err != nil {
		return provider.TTSResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(c.api.Name(), "empty text")
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" || strings.Contains(voice, "://") {
		voice = CartesiaDefaultVoice
	}
	body := map[string]any{
		"model_id":   "sonic-multilingual",
		"transcript": req.Text,
		"language":   provider.BaseLanguage(req.Language),
		"voice":      map[string]string{"mode": "id", "id": voice},
		"output_format": map[string]any{
			"container":   "wav",
			"encoding":    "pcm_s16le",
			"sample_rate": 22050,
		},
	}
	payload, err := marshal(c.api.Name(), body)
	if err != nil {
		return provider.TTSResult{}, err
	}
	raw, err := c.api.Raw(ctx, http.MethodPost, c.base+"/tts/bytes",
		apiclient.Header("X-API-Key", c.apiKey, "Cartesia-Version", CartesiaVersion),
		"application/json", payload)
	if err != nil {
		return provider.TTSResult{}, err
	}
	if len(raw) == 0 {
		return provider.TTSResult{}, provider.Rejected(c.api.Name(), "empty audio body")
	}
	return provider.TTSResult{Audio: raw, Format: "wav"}, nil
}
