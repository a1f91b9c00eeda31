// Package llm adapts chat-completion providers to provider.LLMAdapter.
// OpenAI-compatible hosts and Ollama go through eino chat models; Anthropic
// uses its Messages API directly.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

// Preset is the endpoint and default model of an OpenAI-compatible host.
type Preset struct {
	BaseURL string
	Model   string
}

var Presets = map[string]Preset{
	"groq":     {BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
	"openai":   {BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
	"together": {BaseURL: "https://api.together.xyz/v1", Model: "meta-llama/Llama-3.3-70B-Instruct-Turbo"},
	"mistral":  {BaseURL: "https://api.mistral.ai/v1", Model: "mistral-large-latest"},
	"deepseek": {BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	"grok":     {BaseURL: "https://api.x.ai/v1", Model: "grok-4"},
	"sarvam":   {BaseURL: "https://api.sarvam.ai/v1", Model: "sarvam-m"},
	"gemini":   {BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", Model: "gemini-1.5-flash"},
}

// Chat drives an eino chat model. The apiclient supplies the provider name
// and request pacing; transport belongs to the eino component.
type Chat struct {
	api   *apiclient.Client
	model model.BaseChatModel
}

func NewChat(api *apiclient.Client, chatModel model.BaseChatModel) *Chat {
	return &Chat{api: api, model: chatModel}
}

type OpenAICompatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAICompatible builds an adapter for one of the hosts in Presets.
// A missing key yields an adapter that reports ErrMissingCredentials.
func NewOpenAICompatible(ctx context.Context, api *apiclient.Client, cfg OpenAICompatConfig) (*Chat, error) {
	if preset, ok := Presets[api.Name()]; ok {
		if cfg.BaseURL == "" {
			cfg.BaseURL = preset.BaseURL
		}
		if cfg.Model == "" {
			cfg.Model = preset.Model
		}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &Chat{api: api}, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s chat model: %w", api.Name(), err)
	}
	return NewChat(api, cm), nil
}

// NewOllama builds the local "llama" adapter served by an Ollama daemon.
func NewOllama(ctx context.Context, api *apiclient.Client, baseURL, modelName string) (*Chat, error) {
	if baseURL == "" || modelName == "" {
		return &Chat{api: api}, nil
	}
	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama chat model: %w", err)
	}
	return NewChat(api, cm), nil
}

func (c *Chat) Generate(ctx context.Context, req provider.LLMRequest) (provider.LLMResult, error) {
	if c.model == nil {
		return provider.LLMResult{}, fmt.Errorf("%s: %w", c.api.Name(), provider.ErrMissingCredentials)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return provider.LLMResult{}, provider.Rejected(c.api.Name(), "empty prompt")
	}
	if err := c.api.Wait(ctx); err != nil {
		return provider.LLMResult{}, err
	}

	msgs := make([]*schema.Message, 0, 2)
	if s := strings.TrimSpace(req.SystemInstruction); s != "" {
		msgs = append(msgs, schema.SystemMessage(s))
	}
	msgs = append(msgs, schema.UserMessage(req.Prompt))

	opts := []model.Option{model.WithTemperature(float32(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	out, err := c.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return provider.LLMResult{}, c.normalize(ctx, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return provider.LLMResult{}, provider.Rejected(c.api.Name(), "empty completion")
	}
	return provider.LLMResult{Text: strings.TrimSpace(out.Content)}, nil
}

var statusPattern = regexp.MustCompile(`status code:? ?(\d{3})`)

// normalize maps SDK errors, which carry the HTTP status only in their text.
func (c *Chat) normalize(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return provider.Timeout(c.api.Name(), err)
		}
		return ctx.Err()
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return c.api.StatusError(code, []byte(err.Error()))
		}
	}
	return provider.Normalize(c.api.Name(), err)
}
