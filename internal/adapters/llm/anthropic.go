package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const (
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

type Anthropic struct {
	api    *apiclient.Client
	apiKey string
	base   string
	model  string
}

func NewAnthropic(api *apiclient.Client, apiKey, baseURL, modelName string) *Anthropic {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	if modelName == "" {
		modelName = "claude-3-5-haiku-latest"
	}
	return &Anthropic{api: api, apiKey: apiKey, base: baseURL, model: modelName}
}

func (a *Anthropic) Generate(ctx context.Context, req provider.LLMRequest) (provider.LLMResult, error) {
	if err := a.api.RequireKeys(a.apiKey); err != nil {
		return provider.LLMResult{}, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	body := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"messages":    []map[string]string{{"role": "user", "content": req.Prompt}},
	}
	if req.SystemInstruction != "" {
		body["system"] = req.SystemInstruction
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	header := apiclient.Header("x-api-key", a.apiKey, "anthropic-version", anthropicVersion)
	if err := a.api.JSON(ctx, http.MethodPost, a.base+"/messages", header, body, &out); err != nil {
		return provider.LLMResult{}, err
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return provider.LLMResult{}, provider.Rejected(a.api.Name(), "empty completion")
	}
	return provider.LLMResult{Text: text}, nil
}
