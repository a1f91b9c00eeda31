package stt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

// Azure uses the short-audio REST endpoint, which takes WAV or OGG bodies.
type Azure struct {
	api     *apiclient.Client
	key     string
	region  string
	baseURL string
}

func NewAzure(api *apiclient.Client, key, region, baseURL string) *Azure {
	return &Azure{api: api, key: key, region: region, baseURL: strings.TrimRight(baseURL, "/")}
}

func (a *Azure) endpoint() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return fmt.Sprintf("https://%s.stt.speech.microsoft.com", a.region)
}

func (a *Azure) Transcribe(ctx context.Context, req provider.STTRequest) (provider.STTResult, error) {
	if err := a.api.RequireKeys(a.key, a.region); err != nil {
		return provider.STTResult{}, err
	}
	if len(req.Audio) == 0 {
		return provider.STTResult{}, emptyAudio(a.api.Name())
	}
	contentType := "audio/wav; codecs=audio/pcm; samplerate=16000"
	if format(req) == audio.FormatOGG {
		contentType = "audio/ogg; codecs=opus"
	}
	q := url.Values{}
	q.Set("language", provider.RegionalLocale(req.Language))
	q.Set("format", "detailed")

	raw, err := a.api.Raw(ctx, http.MethodPost,
		a.endpoint()+"/speech/recognition/conversation/cognitiveservices/v1?"+q.Encode(),
		apiclient.Header("Ocp-Apim-Subscription-Key", a.key, "Accept", "application/json"),
		contentType, req.Audio)
	if err != nil {
		return provider.STTResult{}, err
	}

	var out struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
		NBest             []struct {
			Confidence float64 `json:"Confidence"`
			Display    string  `json:"Display"`
		} `json:"NBest"`
	}
	if err := a.api.Decode(raw, &out); err != nil {
		return provider.STTResult{}, err
	}
	switch out.RecognitionStatus {
	case "Success":
		res := provider.STTResult{Text: out.DisplayText}
		if len(out.NBest) > 0 {
			res.Confidence = out.NBest[0].Confidence
			if res.Text == "" {
				res.Text = out.NBest[0].Display
			}
		}
		return res, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return provider.STTResult{}, nil
	default:
		return provider.STTResult{}, provider.Rejected(a.api.Name(), "recognition status "+out.RecognitionStatus)
	}
}
