package stt

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

const GoogleSpeechBaseURL = "https://speech.googleapis.com/v1"

// Google calls the synchronous speech:recognize REST endpoint with an API key.
type Google struct {
	api    *apiclient.Client
	apiKey string
	base   string
}

func NewGoogle(api *apiclient.Client, apiKey, baseURL string) *Google {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = GoogleSpeechBaseURL
	}
	return &Google{api: api, apiKey: apiKey, base: baseURL}
}

func (g *Google) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := g.api.RequireKeys(g.apiKey); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(g.api.Name())
	}

	config := map[string]any{
		"languageCode":               provider.RegionalLocale(req.Language),
		"enableAutomaticPunctuation": true,
	}
	info := audio.Inspect(req.Audio)
	switch info.Format {
	case audio.FormatWAV:
		config["encoding"] = "LINEAR16"
		if info.SampleRate > 0 {
			config["sampleRateHertz"] = info.SampleRate
		}
	case audio.FormatOGG:
		config["encoding"] = "OGG_OPUS"
	case audio.FormatWebM:
		config["encoding"] = "WEBM_OPUS"
	case audio.FormatFLAC:
		config["encoding"] = "FLAC"
	case audio.FormatMP3:
		config["encoding"] = "MP3"
	}
	body := map[string]any{
		"config": config,
		"audio":  map[string]string{"content": base64.StdEncoding.EncodeToString(req.Audio)},
	}

	var out struct {
		Results []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"results"`
	}
	endpoint := g.base + "/speech:recognize?key=" + url.QueryEscape(g.apiKey)
	if err := g.api.JSON(ctx, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return provider.STTResult{}, err
	}

	var (
		parts []string
		conf  float64
	)
	for _, r := range out.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		if conf == 0 {
			conf = r.Alternatives[0].Confidence
		}
	}
	return provider.STTResult{Text: strings.Join(parts, " "), Confidence: conf}, nil
}
