// Package telephony holds the outbound-call adapters.
package telephony

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const VapiBaseURL = "https://api.vapi.ai"

type VapiConfig struct {
	APIKey        string
	AssistantID   string
	PhoneNumberID string
	BaseURL       string
}

type Vapi struct {
	api *apiclient.Client
	cfg VapiConfig
}

func NewVapi(api *apiclient.Client, cfg VapiConfig) *Vapi {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = VapiBaseURL
	}
	return &Vapi{api: api, cfg: cfg}
}

type vapiCall struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (v *Vapi) header() http.Header {
	return apiclient.Header("Authorization", "Bearer "+v.cfg.APIKey)
}

func (v *Vapi) PlaceCall(ctx context.Context, req provider.CallRequest) (provider.CallResult, error) {
	if err := v.api.RequireKeys(v.cfg.APIKey, v.cfg.PhoneNumberID); err != nil {
		return provider.CallResult{}, err
	}
	if strings.TrimSpace(req.To) == "" {
		return provider.CallResult{}, provider.Rejected(v.api.Name(), "missing destination number")
	}
	body := map[string]any{
		"phoneNumberId": v.cfg.PhoneNumberID,
		"customer":      map[string]string{"number": req.To},
	}
	if v.cfg.AssistantID != "" {
		body["assistantId"] = v.cfg.AssistantID
	}
	if req.Greeting != "" {
		body["assistantOverrides"] = map[string]any{"firstMessage": req.Greeting}
	}
	if req.AgentID != "" {
		body["metadata"] = map[string]string{"agent_id": req.AgentID}
	}

	var out vapiCall
	if err := v.api.JSON(ctx, http.MethodPost, v.cfg.BaseURL+"/call/phone", v.header(), body, &out); err != nil {
		return provider.CallResult{}, err
	}
	if out.ID == "" {
		return provider.CallResult{}, provider.Rejected(v.api.Name(), "call created without id")
	}
	return provider.CallResult{CallID: out.ID, Status: orDefault(out.Status, "queued")}, nil
}

func (v *Vapi) CallStatus(ctx context.Context, callID string) (provider.CallResult, error) {
	if err := v.api.RequireKeys(v.cfg.APIKey); err != nil {
		return provider.CallResult{}, err
	}
	var out vapiCall
	if err := v.api.JSON(ctx, http.MethodGet, v.cfg.BaseURL+"/call/"+url.PathEscape(callID), v.header(), nil, &out); err != nil {
		return provider.CallResult{}, err
	}
	return provider.CallResult{CallID: callID, Status: out.Status}, nil
}

func (v *Vapi) HangUp(ctx context.Context, callID string) error {
	if err := v.api.RequireKeys(v.cfg.APIKey); err != nil {
		return err
	}
	_, err := v.api.Raw(ctx, http.MethodDelete, v.cfg.BaseURL+"/call/"+url.PathEscape(callID), v.header(), "", nil)
	return err
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
