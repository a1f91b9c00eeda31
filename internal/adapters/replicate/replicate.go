// Package replicate runs predictions on Replicate and waits for them with
// bounded polling. Whisper STT, XTTS TTS and XTTS voice cloning share it.
package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const DefaultBaseURL = "https://api.replicate.com/v1"

// Model versions used by the adapters. Replicate accepts "owner/name:version"
// or a bare version hash.
const (
	WhisperVersion = "openai/whisper:8099696689d249cf8b122d833c36ac3f75505c666a395ca40ef26f68e7d3d16e"
	XTTSVersion    = "lucataco/xtts-v2:684bc3855b37866c0c65add2ff39c78f3dea3f4ff103a436465326e0f438d55e"
)

type Config struct {
	Token   string
	BaseURL string
	Poll    provider.PollConfig
}

type Client struct {
	api   *apiclient.Client
	token string
	base  string
	poll  provider.PollConfig
}

func New(api *apiclient.Client, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	poll := cfg.Poll
	if poll.Interval <= 0 || poll.MaxAttempts <= 0 {
		poll = provider.DefaultPoll
	}
	return &Client{api: api, token: strings.TrimSpace(cfg.Token), base: base, poll: poll}
}

func (c *Client) Name() string { return c.api.Name() }

// Prediction mirrors the fields of Replicate's prediction object we read.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func (c *Client) header() http.Header {
	return apiclient.Header("Authorization", "Token "+c.token)
}

// Run creates a prediction and polls it until it settles, returning the raw output.
func (c *Client) Run(ctx context.Context, version string, input map[string]any) (json.RawMessage, error) {
	return c.RunWithPoll(ctx, version, input, c.poll)
}

func (c *Client) RunWithPoll(ctx context.Context, version string, input map[string]any, poll provider.PollConfig) (json.RawMessage, error) {
	if err := c.api.RequireKeys(c.token); err != nil {
		return nil, err
	}
	body := map[string]any{"input": input}
	if _, hash, ok := strings.Cut(version, ":"); ok {
		body["version"] = hash
	} else {
		body["version"] = version
	}

	var created Prediction
	if err := c.api.JSON(ctx, http.MethodPost, c.base+"/predictions", c.header(), body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, provider.Rejected(c.Name(), "prediction created without id")
	}
	if created.Status == "succeeded" {
		return created.Output, nil
	}

	return provider.Poll(ctx, c.Name(), poll, func(ctx context.Context) (json.RawMessage, provider.PollStatus, string, error) {
		var p Prediction
		if err := c.api.JSON(ctx, http.MethodGet, c.base+"/predictions/"+created.ID, c.header(), nil, &p); err != nil {
			return nil, provider.PollPending, "", err
		}
		switch p.Status {
		case "succeeded":
			return p.Output, provider.PollSucceeded, "", nil
		case "failed", "canceled":
			return nil, provider.PollFailed, fmt.Sprintf("prediction %s %s: %v", created.ID, p.Status, p.Error), nil
		default:
			return nil, provider.PollPending, "", nil
		}
	})
}

// UploadFile stores bytes with the Files API and returns a URL usable as model input.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := c.api.RequireKeys(c.token); err != nil {
		return "", err
	}
	var out struct {
		URLs struct {
			Get string `json:"get"`
		} `json:"urls"`
	}
	err := c.api.Multipart(ctx, c.base+"/files", c.header(), nil, []apiclient.FilePart{{
		Field:       "content",
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}}, &out)
	if err != nil {
		return "", err
	}
	if out.URLs.Get == "" {
		return "", provider.Rejected(c.Name(), "file upload returned no url")
	}
	return out.URLs.Get, nil
}

// OutputURL extracts an audio URL from the shapes XTTS-style models return:
// a bare string, a list of strings, or an object with audio/audio_url.
func OutputURL(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s, true
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 && list[0] != "" {
		return list[0], true
	}
	var obj struct {
		Audio    string `json:"audio"`
		AudioURL string `json:"audio_url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Audio != "" {
			return obj.Audio, true
		}
		if obj.AudioURL != "" {
			return obj.AudioURL, true
		}
	}
	return "", false
}

// OutputTranscript extracts the transcript from a Whisper prediction output.
func OutputTranscript(raw json.RawMessage) (string, bool) {
	var obj struct {
		Transcription string `json:"transcription"`
		Text          string `json:"text"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Transcription != "" {
			return obj.Transcription, true
		}
		if obj.Text != "" {
			return obj.Text, true
		}
		// A silent clip yields an empty transcription, which is still a result.
		if len(raw) > 0 && raw[0] == '{' {
			return "", true
		}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}
	return "", false
}
