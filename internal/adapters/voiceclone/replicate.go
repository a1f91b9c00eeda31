// Package voiceclone turns a handful of speech samples into a reference a
// TTS adapter accepts as its voice selector.
package voiceclone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

// ClonePoll bounds the preview prediction: 2s x 60.
var ClonePoll = provider.PollConfig{Interval: 2 * time.Second, MaxAttempts: 60}

const previewText = "Hello, this is a preview of my cloned voice."

// ReplicateXTTS uploads the first sample and checks that XTTS can speak with
// it. The uploaded file URL becomes the reference for replicate_xtts.
type ReplicateXTTS struct {
	client *replicate.Client
	poll   provider.PollConfig
}

func NewReplicateXTTS(client *replicate.Client, poll provider.PollConfig) *ReplicateXTTS {
	if poll.Interval <= 0 || poll.MaxAttempts <= 0 {
		poll = ClonePoll
	}
	return &ReplicateXTTS{client: client, poll: poll}
}

func (r *ReplicateXTTS) Clone(ctx context.Context, req provider.CloneRequest) (provider.CloneResult, error) {
	sample, err := firstSample(r.client.Name(), req)
	if err != nil {
		return provider.CloneResult{}, err
	}
	format := audio.Sniff(sample)
	ref, err := r.client.UploadFile(ctx, sampleName(req.Name, format), audio.ContentType(format), sample)
	if err != nil {
		return provider.CloneResult{}, err
	}

	out, err := r.client.RunWithPoll(ctx, replicate.XTTSVersion, map[string]any{
		"text":     previewText,
		"language": orEnglish(provider.BaseLanguage(req.Language)),
		"speaker":  ref,
	}, r.poll)
	if err != nil {
		return provider.CloneResult{}, err
	}
	if _, ok := replicate.OutputURL(out); !ok {
		return provider.CloneResult{}, provider.Rejected(r.client.Name(), "preview produced no audio")
	}
	return provider.CloneResult{Reference: ref}, nil
}

func firstSample(name string, req provider.CloneRequest) ([]byte, error) {
	for _, s := range req.Samples {
		if len(s) > 0 {
			return s, nil
		}
	}
	return nil, provider.Rejected(name, "at least one non-empty sample is required")
}

func sampleName(voiceName, format string) string {
	base := strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, strings.TrimSpace(voiceName))
	if base == "" {
		base = "sample"
	}
	return fmt.Sprintf("%s.%s", base, audio.FileExtension(format))
}

func orEnglish(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}
