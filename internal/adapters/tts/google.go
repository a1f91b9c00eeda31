package tts

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const GoogleTTSBaseURL = "https://texttospeech.googleapis.com/v1"

type Google struct {
	api    *apiclient.Client
	apiKey string
	base   string
}

func NewGoogle(api *apiclient.Client, apiKey, baseURL string) *Google {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = GoogleTTSBaseURL
	}
	return &Google{api: api, apiKey: apiKey, base: baseURL}
}

func (g *Google) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if err := g.api.RequireKeys(g.apiKey); err != nil {
		return provider.TTSResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(g.api.Name(), "empty text")
	}
	voice := map[string]string{
		"languageCode": provider.RegionalLocale(req.Language),
		"ssmlGender":   "FEMALE",
	}
	// Google voice names look like "hi-IN-Wavenet-A".
	if v := strings.TrimSpace(req.Voice); v != "" && !strings.Contains(v, "://") && strings.Count(v, "-") >= 2 {
		voice["name"] = v
	}
	body := map[string]any{
		"input":       map[string]string{"text": req.Text},
		"voice":       voice,
		"audioConfig": map[string]string{"audioEncoding": "MP3"},
	}
	var out struct {
		AudioContent string `json:"audioContent"`
	}
	endpoint := g.base + "/text:synthesize?key=" + url.QueryEscape(g.apiKey)
	if err := g.api.JSON(ctx, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return provider.TTSResult{}, err
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil || len(audio) == 0 {
		return provider.TTSResult{}, provider.Rejected(g.api.Name(), "missing or invalid audioContent")
	}
	return provider.TTSResult{Audio: audio, Format: "mp3"}, nil
}
