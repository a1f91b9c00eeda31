package llm

import (
	"context"
	"strings"

	"github.com/ent0n29/vaani/internal/provider"
)

// Mock echoes the prompt so local runs exercise the whole turn.
type Mock struct{}

func (Mock) Generate(ctx context.Context, req provider.LLMRequest) (provider.LLMResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.LLMResult{}, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return provider.LLMResult{}, provider.Rejected("mock", "empty prompt")
	}
	return provider.LLMResult{Text: "You said: " + prompt}, nil
}
