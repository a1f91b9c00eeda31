package provider

import (
	"fmt"
	"sort"
	"strings"
)

type Tier string

const (
	TierFree       Tier = "free"
	TierOpenSource Tier = "open-source"
	TierPremium    Tier = "premium"
	TierPaid       Tier = "paid"
)

// Descriptor is static metadata for one provider key.
type Descriptor struct {
	Capability           Capability `json:"capability"`
	Key                  string     `json:"key"`
	Name                 string     `json:"name"`
	Tier                 Tier       `json:"tier"`
	EnvKeys              []string   `json:"env_keys,omitempty"`
	FreeTier             bool       `json:"free_tier"`
	NoCreditCard         bool       `json:"no_credit_card"`
	SupportsVoiceCloning bool       `json:"supports_voice_cloning"`
}

// RequiresCredentials reports whether the provider needs at least one secret.
func (d Descriptor) RequiresCredentials() bool {
	return len(d.EnvKeys) > 0
}

type Language struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
	// Directive is appended to agent prompts to steer grammar and register.
	Directive string `json:"directive"`
}

// Recommendation is the suggested provider trio for a language.
type Recommendation struct {
	LLM string `json:"llm"`
	TTS string `json:"tts"`
	STT string `json:"stt"`
}

var languages = []Language{
	{Tag: "hi", Name: "Hindi", Directive: "You are speaking in Hindi. Use appropriate Hindi grammar and phrases."},
	{Tag: "ta", Name: "Tamil", Directive: "You are speaking in Tamil. Use appropriate Tamil grammar and phrases."},
	{Tag: "te", Name: "Telugu", Directive: "You are speaking in Telugu. Use appropriate Telugu grammar and phrases."},
	{Tag: "kn", Name: "Kannada", Directive: "You are speaking in Kannada. Use appropriate Kannada grammar and phrases."},
	{Tag: "ml", Name: "Malayalam", Directive: "You are speaking in Malayalam. Use appropriate Malayalam grammar and phrases."},
	{Tag: "bn", Name: "Bengali", Directive: "You are speaking in Bengali. Use appropriate Bengali grammar and phrases."},
	{Tag: "gu", Name: "Gujarati", Directive: "You are speaking in Gujarati. Use appropriate Gujarati grammar and phrases."},
	{Tag: "mr", Name: "Marathi", Directive: "You are speaking in Marathi. Use appropriate Marathi grammar and phrases."},
	{Tag: "en-IN", Name: "English (Indian)", Directive: "You are speaking in Indian English. Use Indian English vocabulary and expressions."},
}

var descriptors = []Descriptor{
	{Capability: CapabilityLLM, Key: "groq", Name: "Groq", Tier: TierFree, EnvKeys: []string{"GROQ_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "openai", Name: "OpenAI", Tier: TierPremium, EnvKeys: []string{"OPENAI_API_KEY"}},
	{Capability: CapabilityLLM, Key: "anthropic", Name: "Anthropic", Tier: TierPremium, EnvKeys: []string{"ANTHROPIC_API_KEY"}},
	{Capability: CapabilityLLM, Key: "gemini", Name: "Google Gemini", Tier: TierPaid, EnvKeys: []string{"GEMINI_API_KEY"}},
	{Capability: CapabilityLLM, Key: "mistral", Name: "Mistral AI", Tier: TierOpenSource, EnvKeys: []string{"MISTRAL_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "llama", Name: "Llama (Ollama)", Tier: TierOpenSource, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "deepseek", Name: "DeepSeek", Tier: TierOpenSource, EnvKeys: []string{"DEEPSEEK_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "sarvam", Name: "Sarvam AI", Tier: TierFree, EnvKeys: []string{"SARVAM_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "together", Name: "Together AI", Tier: TierFree, EnvKeys: []string{"TOGETHER_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityLLM, Key: "grok", Name: "Grok (xAI)", Tier: TierPremium, EnvKeys: []string{"XAI_API_KEY"}},

	{Capability: CapabilityTTS, Key: "replicate_xtts", Name: "Replicate XTTS-v2", Tier: TierFree, EnvKeys: []string{"REPLICATE_API_TOKEN"}, FreeTier: true, NoCreditCard: true, SupportsVoiceCloning: true},
	{Capability: CapabilityTTS, Key: "elevenlabs", Name: "ElevenLabs", Tier: TierPremium, EnvKeys: []string{"ELEVENLABS_API_KEY"}, SupportsVoiceCloning: true},
	{Capability: CapabilityTTS, Key: "google_tts", Name: "Google Cloud TTS", Tier: TierFree, EnvKeys: []string{"GOOGLE_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilityTTS, Key: "azure_tts", Name: "Microsoft Azure TTS", Tier: TierPremium, EnvKeys: []string{"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION"}},
	{Capability: CapabilityTTS, Key: "cartesia", Name: "Cartesia", Tier: TierPremium, EnvKeys: []string{"CARTESIA_API_KEY"}, SupportsVoiceCloning: true},
	{Capability: CapabilityTTS, Key: "edge_tts", Name: "Microsoft Edge TTS", Tier: TierFree, FreeTier: true, NoCreditCard: true},

	{Capability: CapabilitySTT, Key: "google_stt", Name: "Google Cloud Speech-to-Text", Tier: TierFree, EnvKeys: []string{"GOOGLE_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilitySTT, Key: "openai_whisper", Name: "OpenAI Whisper", Tier: TierPremium, EnvKeys: []string{"OPENAI_API_KEY"}},
	{Capability: CapabilitySTT, Key: "azure_stt", Name: "Microsoft Azure Speech", Tier: TierPremium, EnvKeys: []string{"AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION"}},
	{Capability: CapabilitySTT, Key: "groq_whisper", Name: "Groq Whisper", Tier: TierFree, EnvKeys: []string{"GROQ_API_KEY"}, FreeTier: true, NoCreditCard: true},
	{Capability: CapabilitySTT, Key: "assemblyai", Name: "AssemblyAI", Tier: TierPremium, EnvKeys: []string{"ASSEMBLYAI_API_KEY"}},
	{Capability: CapabilitySTT, Key: "deepgram", Name: "Deepgram Nova-2", Tier: TierPremium, EnvKeys: []string{"DEEPGRAM_API_KEY"}},
	{Capability: CapabilitySTT, Key: "replicate_whisper", Name: "Replicate Whisper", Tier: TierFree, EnvKeys: []string{"REPLICATE_API_TOKEN"}, FreeTier: true, NoCreditCard: true},

	{Capability: CapabilityTelephony, Key: "vapi", Name: "Vapi", Tier: TierFree, EnvKeys: []string{"VAPI_API_KEY", "VAPI_ASSISTANT_ID"}, FreeTier: true},
	{Capability: CapabilityTelephony, Key: "twilio", Name: "Twilio", Tier: TierPaid, EnvKeys: []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_PHONE_NUMBER"}},
	{Capability: CapabilityTelephony, Key: "exotel", Name: "Exotel", Tier: TierPaid, EnvKeys: []string{"EXOTEL_SID", "EXOTEL_API_KEY", "EXOTEL_API_TOKEN", "EXOTEL_CALLER_ID"}},

	{Capability: CapabilityVoiceClone, Key: "replicate_xtts", Name: "Replicate XTTS-v2", Tier: TierFree, EnvKeys: []string{"REPLICATE_API_TOKEN"}, FreeTier: true, NoCreditCard: true, SupportsVoiceCloning: true},
	{Capability: CapabilityVoiceClone, Key: "elevenlabs", Name: "ElevenLabs Voice Lab", Tier: TierPremium, EnvKeys: []string{"ELEVENLABS_API_KEY"}, SupportsVoiceCloning: true},
}

var defaultChains = map[Capability][]string{
	CapabilityLLM:        {"groq", "together", "mistral", "llama", "deepseek"},
	CapabilityTTS:        {"replicate_xtts", "google_tts", "elevenlabs", "cartesia", "azure_tts", "edge_tts"},
	CapabilitySTT:        {"google_stt", "groq_whisper", "openai_whisper", "deepgram", "assemblyai", "azure_stt"},
	CapabilityTelephony:  {"vapi", "twilio", "exotel"},
	CapabilityVoiceClone: {"replicate_xtts", "elevenlabs"},
}

var recommendations = map[string]Recommendation{
	"hi":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"ta":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"te":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"kn":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"ml":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"bn":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"gu":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"mr":    {LLM: "groq", TTS: "google_tts", STT: "google_stt"},
	"en-IN": {LLM: "groq", TTS: "replicate_xtts", STT: "openai_whisper"},
}

// Catalog is the read-only provider and language metadata. It is built once at
// startup and safe for concurrent use.
type Catalog struct {
	byKey     map[Capability]map[string]Descriptor
	ordered   map[Capability][]Descriptor
	chains    map[Capability][]string
	languages map[string]Language
}

// NewCatalog builds the built-in catalog. Chain overrides replace the default
// ordering for a capability and are validated like the defaults.
func NewCatalog(chainOverrides map[Capability][]string) (*Catalog, error) {
	c := &Catalog{
		byKey:     make(map[Capability]map[string]Descriptor),
		ordered:   make(map[Capability][]Descriptor),
		chains:    make(map[Capability][]string),
		languages: make(map[string]Language, len(languages)),
	}
	for _, d := range descriptors {
		if c.byKey[d.Capability] == nil {
			c.byKey[d.Capability] = make(map[string]Descriptor)
		}
		c.byKey[d.Capability][d.Key] = d
		c.ordered[d.Capability] = append(c.ordered[d.Capability], d)
	}
	for _, l := range languages {
		c.languages[l.Tag] = l
	}
	for capability, keys := range defaultChains {
		c.chains[capability] = append([]string(nil), keys...)
	}
	for capability, keys := range chainOverrides {
		if len(keys) == 0 {
			continue
		}
		c.chains[capability] = append([]string(nil), keys...)
	}
	if err := c.validateChains(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog returns the built-in catalog and panics if it is inconsistent.
func MustCatalog() *Catalog {
	c, err := NewCatalog(nil)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Descriptor(capability Capability, key string) (Descriptor, error) {
	d, ok := c.byKey[capability][key]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s/%s", ErrUnknownProvider, capability, key)
	}
	return d, nil
}

func (c *Catalog) Providers(capability Capability) []Descriptor {
	return append([]Descriptor(nil), c.ordered[capability]...)
}

// DefaultChain returns a copy of the configured fallback ordering.
func (c *Catalog) DefaultChain(capability Capability) []string {
	return append([]string(nil), c.chains[capability]...)
}

// Chain builds the fallback chain for a capability with the given preferences first.
func (c *Catalog) Chain(capability Capability, preferred ...string) Chain {
	return BuildChain(capability, c.chains[capability], preferred...)
}

func (c *Catalog) Languages() []Language {
	return append([]Language(nil), languages...)
}

func (c *Catalog) Language(tag string) (Language, bool) {
	l, ok := c.languages[tag]
	if ok {
		return l, true
	}
	l, ok = c.languages[BaseLanguage(tag)]
	return l, ok
}

func (c *Catalog) SupportsLanguage(tag string) bool {
	_, ok := c.languages[tag]
	return ok
}

func (c *Catalog) Recommendation(tag string) (Recommendation, bool) {
	r, ok := recommendations[tag]
	return r, ok
}

// FreeTier lists providers usable without a paid plan, keyed by capability.
func (c *Catalog) FreeTier() map[Capability][]string {
	out := make(map[Capability][]string)
	for _, capability := range Capabilities {
		for _, d := range c.ordered[capability] {
			if d.FreeTier {
				out[capability] = append(out[capability], d.Key)
			}
		}
	}
	return out
}

// ValidateCredentials reports, per capability and provider, whether every
// credential the provider needs is present according to lookup.
func (c *Catalog) ValidateCredentials(lookup func(string) string) map[Capability]map[string]bool {
	out := make(map[Capability]map[string]bool, len(c.ordered))
	for _, capability := range Capabilities {
		m := make(map[string]bool, len(c.ordered[capability]))
		for _, d := range c.ordered[capability] {
			ok := true
			for _, k := range d.EnvKeys {
				if strings.TrimSpace(lookup(k)) == "" {
					ok = false
					break
				}
			}
			m[d.Key] = ok
		}
		out[capability] = m
	}
	return out
}

func (c *Catalog) validateChains() error {
	caps := make([]string, 0, len(c.chains))
	for capability := range c.chains {
		caps = append(caps, string(capability))
	}
	sort.Strings(caps)
	for _, raw := range caps {
		capability := Capability(raw)
		if err := ValidateChain(capability, c.chains[capability], func(key string) bool {
			_, ok := c.byKey[capability][key]
			return ok
		}); err != nil {
			return err
		}
	}
	for _, capability := range Capabilities {
		if len(c.chains[capability]) == 0 {
			return fmt.Errorf("%s chain: no providers configured", capability)
		}
	}
	return nil
}

// BaseLanguage strips region and script subtags: "hi-IN" -> "hi".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}

// RegionalLocale expands a bare language to its Indian locale for APIs that
// require a region: "hi" -> "hi-IN". Tags that already carry a region are kept.
func RegionalLocale(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "en-IN"
	}
	if strings.ContainsAny(tag, "-_") {
		base := BaseLanguage(tag)
		region := strings.ToUpper(tag[len(base)+1:])
		return base + "-" + region
	}
	return strings.ToLower(tag) + "-IN"
}
