package telephony

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

const ExotelBaseURL = "https://api.exotel.com/v1"

type ExotelConfig struct {
	APIKey   string
	APIToken string
	SID      string
	CallerID string
	BaseURL  string
}

// Exotel covers Indian numbers. Its connect API bridges From to CallerID.
type Exotel struct {
	api *apiclient.Client
	cfg ExotelConfig
}

func NewExotel(api *apiclient.Client, cfg ExotelConfig) *Exotel {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = ExotelBaseURL
	}
	return &Exotel{api: api, cfg: cfg}
}

type exotelCall struct {
	Call struct {
		SID    string `json:"Sid"`
		Status string `json:"Status"`
	} `json:"Call"`
}

func (e *Exotel) header() http.Header {
	creds := base64.StdEncoding.EncodeToString([]byte(e.cfg.APIKey + ":" + e.cfg.APIToken))
	return apiclient.Header("Authorization", "Basic "+creds, "Accept", "application/json")
}

func (e *Exotel) calls() string {
	return fmt.Sprintf("%s/Accounts/%s/Calls", e.cfg.BaseURL, url.PathEscape(e.cfg.SID))
}

func (e *Exotel) requireKeys() error {
	return e.api.RequireKeys(e.cfg.APIKey, e.cfg.APIToken, e.cfg.SID)
}

func (e *Exotel) PlaceCall(ctx context.Context, req provider.CallRequest) (provider.CallResult, error) {
	if err := e.requireKeys(); err != nil {
		return provider.CallResult{}, err
	}
	callerID := orDefault(req.From, e.cfg.CallerID)
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(callerID) == "" {
		return provider.CallResult{}, provider.Rejected(e.api.Name(), "missing to or caller id")
	}
	form := url.Values{"From": {req.To}, "To": {callerID}, "CallerId": {callerID}}
	var out exotelCall
	if err := e.api.Form(ctx, e.calls()+"/connect.json", e.header(), form, &out); err != nil {
		return provider.CallResult{}, err
	}
	if out.Call.SID == "" {
		return provider.CallResult{}, provider.Rejected(e.api.Name(), "call created without sid")
	}
	return provider.CallResult{CallID: out.Call.SID, Status: orDefault(strings.ToLower(out.Call.Status), "queued")}, nil
}

func (e *Exotel) CallStatus(ctx context.Context, callID string) (provider.CallResult, error) {
	if err := e.requireKeys(); err != nil {
		return provider.CallResult{}, err
	}
	var out exotelCall
	if err := e.api.JSON(ctx, http.MethodGet, e.calls()+"/"+url.PathEscape(callID)+".json", e.header(), nil, &out); err != nil {
		return provider.CallResult{}, err
	}
	return provider.CallResult{CallID: callID, Status: strings.ToLower(out.Call.Status)}, nil
}

// HangUp is not offered by the connect API; the call ends when either leg drops.
func (e *Exotel) HangUp(ctx context.Context, callID string) error {
	return provider.Rejected(e.api.Name(), "hang-up is not supported")
}
