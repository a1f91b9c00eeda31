package stt

import (
	"context"

	"github.com/ent0n29/vaani/internal/provider"
)

// Mock returns a fixed transcript for local development without keys.
type Mock struct {
	Text string
}

func (m Mock) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, nil
	}
	text := m.Text
	if text == "" {
		text = "नमस्ते"
	}
	return provider.STTResult{Text: text, Confidence: 1}, nil
}
