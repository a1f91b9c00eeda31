package stt

import (
	"context"
	"net/http"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const AssemblyAIBaseURL = "https://api.assemblyai.com/v2"

// AssemblyAI uploads the clip, submits a transcript job and polls it.
type AssemblyAI struct {
	api    *apiclient.Client
	apiKey string
	base   string
	poll   provider.PollConfig
}

func NewAssemblyAI(api *apiclient.Client, apiKey, baseURL string, poll provider.PollConfig) *AssemblyAI {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = AssemblyAIBaseURL
	}
	return &AssemblyAI{api: api, apiKey: apiKey, base: baseURL, poll: poll}
}

type assemblyTranscript struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

func (a *AssemblyAI) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := a.api.RequireKeys(a.apiKey); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(a.api.Name())
	}
	auth := apiclient.Header("Authorization", a.apiKey)

	raw, err := a.api.Raw(ctx, http.MethodPost, a.base+"/upload", auth, "application/octet-stream", req.Audio)
	if err != nil {
		return provider.STTResult{}, err
	}
	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.api.Decode(raw, &uploaded); err != nil {
		return provider.STTResult{}, err
	}
	if uploaded.UploadURL == "" {
		return provider.STTResult{}, provider.Rejected(a.api.Name(), "upload returned no url")
	}

	job := map[string]any{"audio_url": uploaded.UploadURL}
	if req.Language != "" {
		job["language_code"] = provider.BaseLanguage(req.Language)
	}
	var created assemblyTranscript
	if err := a.api.JSON(ctx, http.MethodPost, a.base+"/transcript", auth, job, &created); err != nil {
		return provider.STTResult{}, err
	}
	if created.ID == "" {
		return provider.STTResult{}, provider.Rejected(a.api.Name(), "transcript job has no id")
	}

	done, err := provider.Poll(ctx, a.api.Name(), a.poll, func(ctx context.Context) (assemblyTranscript, provider.PollStatus, string, error) {
		var t assemblyTranscript
		if err := a.api.JSON(ctx, http.MethodGet, a.base+"/transcript/"+created.ID, auth, nil, &t); err != nil {
			return t, provider.PollPending, "", err
		}
		switch t.Status {
		case "completed":
			return t, provider.PollSucceeded, "", nil
		case "error":
			return t, provider.PollFailed, t.Error, nil
		default:
			return t, provider.PollPending, "", nil
		}
	})
	if err != nil {
		return provider.STTResult{}, err
	}
	return provider.STTResult{Text: done.Text, Confidence: done.Confidence}, nil
}
