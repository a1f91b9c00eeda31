package tts

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/provider"
)

// Neural voices per base language; the request voice overrides these.
var azureVoices = map[string]string{
	"hi": "hi-IN-SwaraNeural",
	"ta": "ta-IN-PallaviNeural",
	"te": "te-IN-ShrutiNeural",
	"kn": "kn-IN-SapnaNeural",
	"ml": "ml-IN-SobhanaNeural",
	"bn": "bn-IN-TanishaaNeural",
	"gu": "gu-IN-DhwaniNeural",
	"mr": "mr-IN-AarohiNeural",
	"en": "en-IN-NeerjaNeural",
}

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
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com", a.region)
}

func (a *Azure) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResult, error) {
	if err := a.api.RequireKeys(a.key, a.region); err != nil {
		return provider.TTSResult{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return provider.TTSResult{}, provider.Rejected(a.api.Name(), "empty text")
	}
	locale := provider.RegionalLocale(req.Language)
	voice := strings.TrimSpace(req.Voice)
	if voice == "" || !strings.HasSuffix(voice, "Neural") {
		voice = azureVoices[provider.BaseLanguage(locale)]
	}
	if voice == "" {
		voice = azureVoices["en"]
	}

	raw, err := a.api.Raw(ctx, http.MethodPost, a.endpoint()+"/cognitiveservices/v1",
		apiclient.Header(
			"Ocp-Apim-Subscription-Key", a.key,
			"X-Microsoft-OutputFormat", "audio-16khz-128kbitrate-mono-mp3",
			"User-Agent", "vaani",
		),
		"application/ssml+xml", []byte(ssml(locale, voice, req.Text)))
	if err != nil {
		return provider.TTSResult{}, err
	}
	if len(raw) == 0 {
		return provider.TTSResult{}, provider.Rejected(a.api.Name(), "empty audio body")
	}
	return provider.TTSResult{Audio: raw, Format: "mp3"}, nil
}

func ssml(locale, voice, text string) string {
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))
	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		locale, voice, escaped.String())
}
