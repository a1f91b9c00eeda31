package app

import (
	"context"
	"fmt"

	"github.com/ent0n29/vaani/internal/adapters/apiclient"
	"github.com/ent0n29/vaani/internal/adapters/llm"
	"github.com/ent0n29/vaani/internal/adapters/replicate"
	"github.com/ent0n29/vaani/internal/adapters/stt"
	"github.com/ent0n29/vaani/internal/adapters/telephony"
	"github.com/ent0n29/vaani/internal/adapters/tts"
	"github.com/ent0n29/vaani/internal/adapters/voiceclone"
	"github.com/ent0n29/vaani/internal/config"
	"github.com/ent0n29/vaani/internal/provider"
)

// registerProviders binds every catalog key to a live adapter. Adapters
// without credentials are still registered and fail as unavailable, so the
// fallback chain skips them.
func registerProviders(ctx context.Context, cfg config.Config, reg *provider.Registry) error {
	cred := cfg.Credential
	client := func(name string) *apiclient.Client {
		return apiclient.New(name, apiclient.WithRateLimit(cfg.ProviderRateLimitRPS, 0))
	}
	poll := provider.PollConfig{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts}
	replicateClient := func(name string, p provider.PollConfig) *replicate.Client {
		return replicate.New(client(name), replicate.Config{Token: cred("REPLICATE_API_TOKEN"), Poll: p})
	}

	// LLM
	compat := map[string]string{
		"groq":     "GROQ_API_KEY",
		"openai":   "OPENAI_API_KEY",
		"together": "TOGETHER_API_KEY",
		"mistral":  "MISTRAL_API_KEY",
		"deepseek": "DEEPSEEK_API_KEY",
		"grok":     "XAI_API_KEY",
		"sarvam":   "SARVAM_API_KEY",
		"gemini":   "GEMINI_API_KEY",
	}
	for key, env := range compat {
		a, err := llm.NewOpenAICompatible(ctx, client(key), llm.OpenAICompatConfig{APIKey: cred(env)})
		if err != nil {
			return fmt.Errorf("register llm %s: %w", key, err)
		}
		reg.RegisterLLM(key, a)
	}
	ollama, err := llm.NewOllama(ctx, client("llama"), cfg.OllamaBaseURL, cfg.OllamaModel)
	if err != nil {
		return fmt.Errorf("register llm llama: %w", err)
	}
	reg.RegisterLLM("llama", ollama)
	reg.RegisterLLM("anthropic", llm.NewAnthropic(client("anthropic"), cred("ANTHROPIC_API_KEY"), "", ""))

	// STT
	reg.RegisterSTT("google_stt", stt.NewGoogle(client("google_stt"), cred("GOOGLE_API_KEY"), ""))
	reg.RegisterSTT("groq_whisper", stt.NewGroqWhisper(client("groq_whisper"), cred("GROQ_API_KEY")))
	reg.RegisterSTT("openai_whisper", stt.NewOpenAIWhisper(client("openai_whisper"), cred("OPENAI_API_KEY")))
	reg.RegisterSTT("deepgram", stt.NewDeepgram(client("deepgram"), cred("DEEPGRAM_API_KEY"), ""))
	reg.RegisterSTT("assemblyai", stt.NewAssemblyAI(client("assemblyai"), cred("ASSEMBLYAI_API_KEY"), "", poll))
	reg.RegisterSTT("azure_stt", stt.NewAzure(client("azure_stt"), cred("AZURE_SPEECH_KEY"), cred("AZURE_SPEECH_REGION"), ""))
	reg.RegisterSTT("replicate_whisper", stt.NewReplicateWhisper(replicateClient("replicate_whisper", poll)))

	// TTS
	reg.RegisterTTS("replicate_xtts", tts.NewReplicateXTTS(replicateClient("replicate_xtts", poll), ""))
	reg.RegisterTTS("google_tts", tts.NewGoogle(client("google_tts"), cred("GOOGLE_API_KEY"), ""))
	reg.RegisterTTS("elevenlabs", tts.NewElevenLabs(client("elevenlabs"), cred("ELEVENLABS_API_KEY"), ""))
	reg.RegisterTTS("cartesia", tts.NewCartesia(client("cartesia"), cred("CARTESIA_API_KEY"), ""))
	reg.RegisterTTS("azure_tts", tts.NewAzure(client("azure_tts"), cred("AZURE_SPEECH_KEY"), cred("AZURE_SPEECH_REGION"), ""))
	reg.RegisterTTS("edge_tts", tts.NewEdge("edge_tts"))

	// Telephony
	reg.RegisterTelephony("vapi", telephony.NewVapi(client("vapi"), telephony.VapiConfig{
		APIKey:        cred("VAPI_API_KEY"),
		AssistantID:   cred("VAPI_ASSISTANT_ID"),
		PhoneNumberID: cred("VAPI_PHONE_NUMBER_ID"),
	}))
	reg.RegisterTelephony("twilio", telephony.NewTwilio(client("twilio"), telephony.TwilioConfig{
		AccountSID: cred("TWILIO_ACCOUNT_SID"),
		AuthToken:  cred("TWILIO_AUTH_TOKEN"),
		FromNumber: cred("TWILIO_PHONE_NUMBER"),
		TwiMLURL:   cred("TWILIO_TWIML_URL"),
	}))
	reg.RegisterTelephony("exotel", telephony.NewExotel(client("exotel"), telephony.ExotelConfig{
		APIKey:   cred("EXOTEL_API_KEY"),
		APIToken: cred("EXOTEL_API_TOKEN"),
		SID:      cred("EXOTEL_SID"),
		CallerID: cred("EXOTEL_CALLER_ID"),
	}))

	// Voice clone
	reg.RegisterVoiceClone("replicate_xtts", voiceclone.NewReplicateXTTS(replicateClient("replicate_xtts", voiceclone.ClonePoll), voiceclone.ClonePoll))
	reg.RegisterVoiceClone("elevenlabs", voiceclone.NewElevenLabs(client("elevenlabs"), cred("ELEVENLABS_API_KEY"), ""))
	return nil
}

// registerMocks binds every catalog key to an offline adapter.
func registerMocks(catalog *provider.Catalog, reg *provider.Registry) {
	for _, d := range catalog.Providers(provider.CapabilitySTT) {
		reg.RegisterSTT(d.Key, stt.Mock{})
	}
	for _, d := range catalog.Providers(provider.CapabilityLLM) {
		reg.RegisterLLM(d.Key, llm.Mock{})
	}
	for _, d := range catalog.Providers(provider.CapabilityTTS) {
		reg.RegisterTTS(d.Key, tts.Mock{})
	}
	for _, d := range catalog.Providers(provider.CapabilityTelephony) {
		reg.RegisterTelephony(d.Key, telephony.NewMock())
	}
	for _, d := range catalog.Providers(provider.CapabilityVoiceClone) {
		reg.RegisterVoiceClone(d.Key, voiceclone.Mock{})
	}
}
