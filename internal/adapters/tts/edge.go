package tts

import (
	"context"
	"errors"
	"strings"

	"github.com/difyz9/edge-tts-go/pkg/communicate"

	"github.com/ent0n29/vaani/internal/provider"
)

// Edge synthesizes through the Microsoft Edge read-aloud websocket. It needs
// no key, which makes it the free-tier terminal of the TTS chain.
type Edge struct {
	name           string
	connectTimeout int
	receiveTimeout int
}

func NewEdge(name string) *Edge {
	if name == "" {
		name = "edge_tts"
	}
	return &Edge{name: name, connectTimeout: 10, receiveTimeout: 60}
}

func (e *Edge) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(e.name, "empty text")
	}
	voice := strings.TrimSpace(req.Voice)
	if !strings.HasSuffix(voice, "Neural") {
		voice = azureVoices[provider.BaseLanguage(req.Language)]
	}
	if voice == "" {
		voice = azureVoices["en"]
	}

	comm, err := communicate.NewCommunicate(req.Text, voice, "+0%", "+0%", "+0Hz", "", e.connectTimeout, e.receiveTimeout)
	if err != nil {
		return provider.TTSResult{}, provider.Rejected(e.name, err.Error())
	}
	chunks, errs := comm.Stream(ctx)

	var audio []byte
	for chunk := range chunks {
		if chunk.Type == "audio" {
			audio = append(audio, chunk.Data...)
		}
	}
	if err := <-errs; err != nil {
		if ctx.Err() != nil {
			return provider.TTSResult{}, provider.Normalize(e.name, ctx.Err())
		}
		return provider.TTSResult{}, provider.Unavailable(e.name, err)
	}
	if ctx.Err() != nil {
		return provider.TTSResult{}, provider.Normalize(e.name, ctx.Err())
	}
	if len(audio) == 0 {
		return provider.TTSResult{}, provider.Unavailable(e.name, errors.New("stream produced no audio"))
	}
	return provider.TTSResult{Audio: audio, Format: "mp3"}, nil
}
