package stt

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

const DeepgramBaseURL = "https://api.deepgram.com/v1"

type Deepgram struct {
	api    *apiclient.Client
	apiKey string
	base   string
	model  string
}

func NewDeepgram(api *apiclient.Client, apiKey, baseURL string) *Deepgram {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DeepgramBaseURL
	}
	return &Deepgram{api: api, apiKey: apiKey, base: baseURL, model: "nova-2"}
}

func (d *Deepgram) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := d.api.RequireKeys(d.apiKey); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(d.api.Name())
	}
	q := url.Values{}
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	if req.Language != "" {
		q.Set("language", deepgramLanguage(req.Language))
	}
	raw, err := d.api.Raw(ctx, http.MethodPost, d.base+"/listen?"+q.Encode(),
		apiclient.Header("Authorization", "Token "+d.apiKey),
		audio.ContentType(format(req)), req.Audio)
	if err != nil {
		return provider.STTResult{}, err
	}

	var out struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := d.api.Decode(raw, &out); err != nil {
		return provider.STTResult{}, err
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return provider.STTResult{}, nil
	}
	alt := out.Results.Channels[0].Alternatives[0]
	return provider.STTResult{Text: alt.Transcript, Confidence: alt.Confidence}, nil
}

// Deepgram keeps en-IN as a distinct model language; other Indic languages use the bare code.
func deepgramLanguage(tag string) string {
	if strings.EqualFold(tag, "en-IN") {
		return "en-IN"
	}
	return provider.BaseLanguage(tag)
}
