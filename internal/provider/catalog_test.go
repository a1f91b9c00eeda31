package provider

import (
	"errors"
	"testing"
)

func TestCatalogDefaultChainsMatchDescriptors(t *testing.T) {
	c := MustCatalog()
	for _, capability := range Capabilities {
		chain := c.DefaultChain(capability)
		if len(chain) == 0 {
			t.Fatalf("DefaultChain(%s) is empty", capability)
		}
		for _, key := range chain {
			if _, err := c.Descriptor(capability, key); err != nil {
				t.Fatalf("Descriptor(%s, %s) error = %v", capability, key, err)
			}
		}
	}
}

func TestCatalogDescriptorUnknown(t *testing.T) {
	c := MustCatalog()
	_, err := c.Descriptor(CapabilityLLM, "nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestCatalogLanguageFallsBackToBase(t *testing.T) {
	c := MustCatalog()
	l, ok := c.Language("hi-IN")
	if !ok || l.Name != "Hindi" {
		t.Fatalf("Language(hi-IN) = %+v, %v; want Hindi", l, ok)
	}
	l, ok = c.Language("en-IN")
	if !ok || l.Name != "English (Indian)" {
		t.Fatalf("Language(en-IN) = %+v, %v; want English (Indian)", l, ok)
	}
	if c.SupportsLanguage("fr") {
		t.Fatalf("SupportsLanguage(fr) = true, want false")
	}
}

func TestCatalogValidateCredentials(t *testing.T) {
	c := MustCatalog()
	env := map[string]string{
		"GROQ_API_KEY":       "k",
		"AZURE_SPEECH_KEY":   "k",
		"TWILIO_ACCOUNT_SID": "sid",
	}
	got := c.ValidateCredentials(func(k string) string { return env[k] })

	if !got[CapabilityLLM]["groq"] {
		t.Fatalf("groq should be configured")
	}
	if got[CapabilityLLM]["openai"] {
		t.Fatalf("openai should not be configured")
	}
	if !got[CapabilityLLM]["llama"] {
		t.Fatalf("llama needs no credentials and should be configured")
	}
	if got[CapabilitySTT]["azure_stt"] {
		t.Fatalf("azure_stt needs a region as well as a key")
	}
	if got[CapabilityTelephony]["twilio"] {
		t.Fatalf("twilio needs token and number as well as sid")
	}
}

func TestCatalogFreeTier(t *testing.T) {
	free := MustCatalog().FreeTier()
	found := false
	for _, k := range free[CapabilityTTS] {
		if k == "elevenlabs" {
			t.Fatalf("elevenlabs should not be listed as free tier")
		}
		if k == "edge_tts" {
			found = true
		}
	}
	if !found {
		t.Fatalf("edge_tts missing from free tier: %v", free[CapabilityTTS])
	}
}

func TestBaseLanguage(t *testing.T) {
	cases := map[string]string{
		"hi-IN": "hi",
		"en-IN": "en",
		"ta":    "ta",
		"pt_BR": "pt",
		" HI ":  "hi",
	}
	for in, want := range cases {
		if got := BaseLanguage(in); got != want {
			t.Fatalf("BaseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegionalLocale(t *testing.T) {
	cases := map[string]string{
		"hi":    "hi-IN",
		"en-IN": "en-IN",
		"ta_in": "ta-IN",
		"en-us": "en-US",
		"":      "en-IN",
	}
	for in, want := range cases {
		if got := RegionalLocale(in); got != want {
			t.Fatalf("RegionalLocale(%q) = %q, want %q", in, got, want)
		}
	}
}
