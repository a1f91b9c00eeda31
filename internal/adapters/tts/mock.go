package tts

import (
	"context"
	"math"
	"strings"

	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

const mockSampleRate = 16000

// Mock renders a short sine tone whose length tracks the text, so clients
// get playable audio without any provider key.
type Mock struct{}

func (Mock) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.TTSResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected("mock_tts", "empty text")
	}
	words := len(strings.Fields(req.Text))
	samples := mockSampleRate / 4 * min(words, 40)
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*440*float64(i)/mockSampleRate))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(uint16(v) >> 8)
	}
	wav, err := audio.EncodeWAVPCM16LE(pcm, mockSampleRate)
	if err != nil {
		return provider.TTSResult{}, provider.Rejected("mock_tts", err.Error())
	}
	return provider.TTSResult{Audio: wav, Format: audio.FormatWAV}, nil
}
