// Package tts holds the text-to-speech adapters. Adapters return either
// inline audio or a URL the pipeline fetches; never both.
package tts

import (
	"context"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/provider"
)

// ReplicateXTTS runs XTTS-v2 and returns the hosted output URL. The voice
// selector, when set, is a speaker reference URL produced by voice cloning.
type ReplicateXTTS struct {
	client         *replicate.Client
	version        string
	defaultSpeaker string
}

func NewReplicateXTTS(client *replicate.Client, defaultSpeaker string) *ReplicateXTTS {
	return &ReplicateXTTS{client: client, version: replicate.XTTSVersion, defaultSpeaker: defaultSpeaker}
}

func (x *ReplicateXTTS) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(x.client.Name(), "empty text")
	}
	input := map[string]any{
		"text":     req.Text,
		"language": provider.BaseLanguage(req.Language),
	}
	if speaker := x.speaker(req.Voice); speaker != "" {
		input["speaker"] = speaker
	}
	out, err := x.client.Run(ctx, x.version, input)
	if err != nil {
		return provider.TTSResult{}, err
	}
	u, ok := replicate.OutputURL(out)
	if !ok {
		return provider.TTSResult{}, provider.Rejected(x.client.Name(), "prediction output has no audio url")
	}
	return provider.TTSResult{URL: u, Format: "wav"}, nil
}

func (x *ReplicateXTTS) speaker(voice string) string {
	if strings.HasPrefix(voice, "http://") || strings.HasPrefix(voice, "https://") || strings.HasPrefix(voice, "data:") {
		return voice
	}
	return x.defaultSpeaker
}
