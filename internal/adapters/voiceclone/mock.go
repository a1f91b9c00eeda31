package voiceclone

import (
	"context"

	"github.com/google/uuid"

	"github.com/ent0n29/vaani/internal/provider"
)

type Mock struct{}

func (Mock) Clone(ctx context.Context, req provider.CloneRequest) (provider.CloneResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.CloneResult{}, err
	}
	if _, err := firstSample("mock_voice_clone", req); err != nil {
		return provider.CloneResult{}, err
	}
	return provider.CloneResult{Reference: "mock-voice-" + uuid.NewString()}, nil
}
