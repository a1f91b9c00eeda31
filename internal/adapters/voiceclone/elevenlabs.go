package voiceclone

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

const ElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabs registers an instant voice; the returned voice_id is the reference.
type ElevenLabs struct {
	api    *apiclient.Client
	apiKey string
	base   string
}

func NewElevenLabs(api *apiclient.Client, apiKey, baseURL string) *ElevenLabs {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = ElevenLabsBaseURL
	}
	return &ElevenLabs{api: api, apiKey: apiKey, base: baseURL}
}

func (e *ElevenLabs) Clone(ctx context.Context, req provider.CloneRequest) (provider.CloneResult, error) {
	if err := e.api.RequireKeys(e.apiKey); err != nil {
		return provider.CloneResult{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return provider.CloneResult{}, provider.Rejected(e.api.Name(), "voice name is required")
	}
	var files []apiclient.FilePart
	for i, s := range req.Samples {
		if len(s) == 0 {
			continue
		}
		format := audio.Sniff(s)
		files = append(files, apiclient.FilePart{
			Field:       "files",
			Filename:    fmt.Sprintf("sample_%d.%s", i+1, audio.FileExtension(format)),
			ContentType: audio.ContentType(format),
			Data:        s,
		})
	}
	if len(files) == 0 {
		return provider.CloneResult{}, provider.Rejected(e.api.Name(), "at least one non-empty sample is required")
	}

	fields := map[string]string{"name": req.Name}
	if req.Language != "" {
		fields["labels"] = fmt.Sprintf(`{"language":%q}`, provider.BaseLanguage(req.Language))
	}
	var out struct {
		VoiceID string `json:"voice_id"`
	}
	if err := e.api.Multipart(ctx, e.base+"/voices/add", apiclient.Header("xi-api-key", e.apiKey), fields, files, &out); err != nil {
		return provider.CloneResult{}, err
	}
	if out.VoiceID == "" {
		return provider.CloneResult{}, provider.Rejected(e.api.Name(), "voice created without id")
	}
	return provider.CloneResult{Reference: out.VoiceID}, nil
}
