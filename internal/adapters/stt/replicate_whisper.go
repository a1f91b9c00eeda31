package stt

import (
	"context"

	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/provider"
)

// ReplicateWhisper runs openai/whisper on Replicate and polls for the result.
type ReplicateWhisper struct {
	client  *replicate.Client
	version string
}

func NewReplicateWhisper(client *replicate.Client) *ReplicateWhisper {
	return &ReplicateWhisper{client: client, version: replicate.WhisperVersion}
}

func (w *ReplicateWhisper) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(w.client.Name())
	}
	input := map[string]any{
		"audio": dataURL(req),
		"model": "large-v3",
	}
	if lang := provider.BaseLanguage(req.Language); lang != "" {
		input["language"] = lang
	}
	out, err := w.client.Run(ctx, w.version, input)
	if err != nil {
		return provider.STTResult{}, err
	}
	text, ok := replicate.OutputTranscript(out)
	if !ok {
		return provider.STTResult{}, provider.Rejected(w.client.Name(), "unexpected whisper output")
	}
	return provider.STTResult{Text: text}, nil
}
