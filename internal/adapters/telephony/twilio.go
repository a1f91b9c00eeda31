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

const TwilioBaseURL = "https://api.twilio.com/2010-04-01"

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	TwiMLURL   string
	BaseURL    string
}

// Twilio places calls through the REST API and can record live calls.
type Twilio struct {
	api *apiclient.Client
	cfg TwilioConfig
}

func NewTwilio(api *apiclient.Client, cfg TwilioConfig) *Twilio {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = TwilioBaseURL
	}
	return &Twilio{api: api, cfg: cfg}
}

type twilioCall struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func (t *Twilio) header() http.Header {
	creds := base64.StdEncoding.EncodeToString([]byte(t.cfg.AccountSID + ":" + t.cfg.AuthToken))
	return apiclient.Header("Authorization", "Basic "+creds, "Accept", "application/json")
}

func (t *Twilio) account() string {
	return t.cfg.BaseURL + "/Accounts/" + url.PathEscape(t.cfg.AccountSID)
}

func (t *Twilio) callURL(callID string) string {
	return fmt.Sprintf("%s/Calls/%s.json", t.account(), url.PathEscape(callID))
}

func (t *Twilio) PlaceCall(ctx context.Context, req provider.CallRequest) (provider.CallResult, error) {
	if err := t.api.RequireKeys(t.cfg.AccountSID, t.cfg.AuthToken); err != nil {
		return provider.CallResult{}, err
	}
	from := orDefault(req.From, t.cfg.FromNumber)
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(from) == "" {
		return provider.CallResult{}, provider.Rejected(t.api.Name(), "missing to or from number")
	}
	form := url.Values{"To": {req.To}, "From": {from}}
	switch {
	case t.cfg.TwiMLURL != "":
		form.Set("Url", t.cfg.TwiMLURL)
	default:
		form.Set("Twiml", twiml(req.Greeting))
	}

	var out twilioCall
	if err := t.api.Form(ctx, t.account()+"/Calls.json", t.header(), form, &out); err != nil {
		return provider.CallResult{}, err
	}
	if out.SID == "" {
		return provider.CallResult{}, provider.Rejected(t.api.Name(), "call created without sid")
	}
	return provider.CallResult{CallID: out.SID, Status: orDefault(out.Status, "queued")}, nil
}

func (t *Twilio) CallStatus(ctx context.Context, callID string) (provider.CallResult, error) {
	if err := t.api.RequireKeys(t.cfg.AccountSID, t.cfg.AuthToken); err != nil {
		return provider.CallResult{}, err
	}
	var out twilioCall
	if err := t.api.JSON(ctx, http.MethodGet, t.callURL(callID), t.header(), nil, &out); err != nil {
		return provider.CallResult{}, err
	}
	return provider.CallResult{CallID: callID, Status: out.Status}, nil
}

func (t *Twilio) HangUp(ctx context.Context, callID string) error {
	if err := t.api.RequireKeys(t.cfg.AccountSID, t.cfg.AuthToken); err != nil {
		return err
	}
	return t.api.Form(ctx, t.callURL(callID), t.header(), url.Values{"Status": {"completed"}}, nil)
}

func (t *Twilio) RecordCall(ctx context.Context, callID string) (provider.Recording, error) {
	if err := t.api.RequireKeys(t.cfg.AccountSID, t.cfg.AuthToken); err != nil {
		return provider.Recording{}, err
	}
	var out struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	endpoint := fmt.Sprintf("%s/Calls/%s/Recordings.json", t.account(), url.PathEscape(callID))
	if err := t.api.Form(ctx, endpoint, t.header(), url.Values{}, &out); err != nil {
		return provider.Recording{}, err
	}
	return provider.Recording{ID: out.SID, Status: out.Status}, nil
}

func twiml(greeting string) string {
	if strings.TrimSpace(greeting) == "" {
		greeting = "Hello"
	}
	var b strings.Builder
	b.WriteString("<Response><Say>")
	for _, r := range greeting {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("</Say></Response>")
	return b.String()
}
