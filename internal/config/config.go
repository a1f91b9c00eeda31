package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all runtime settings for the voice agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	SessionRetention time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	CORSOrigins    []string

	LogLevel    string
	LogFormat   string
	LogFile     string
	LogMaxFiles int

	StoreBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	STTAttemptTimeout        time.Duration
	LLMAttemptTimeout        time.Duration
	TTSAttemptTimeout        time.Duration
	TelephonyAttemptTimeout  time.Duration
	VoiceCloneAttemptTimeout time.Duration

	PollInterval      time.Duration
	PollMaxAttempts   int
	AudioFetchTimeout time.Duration

	ReplyMaxWords        int
	ReplyMaxTokens       int
	ProviderRateLimitRPS float64

	// FallbackChains overrides the built-in default ordering, keyed by capability.
	FallbackChains map[string][]string

	MockProviders bool
	OllamaBaseURL string
	OllamaModel   string

	OTelEndpoint    string
	OTelServiceName string
	OTelInsecure    bool

	credentials map[string]string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// CredentialKeys lists the environment keys read as provider secrets.
var CredentialKeys = []string{
	"GROQ_API_KEY",
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GEMINI_API_KEY",
	"MISTRAL_API_KEY",
	"DEEPSEEK_API_KEY",
	"SARVAM_API_KEY",
	"TOGETHER_API_KEY",
	"XAI_API_KEY",
	"REPLICATE_API_TOKEN",
	"ELEVENLABS_API_KEY",
	"GOOGLE_API_KEY",
	"AZURE_SPEECH_KEY",
	"AZURE_SPEECH_REGION",
	"CARTESIA_API_KEY",
	"DEEPGRAM_API_KEY",
	"ASSEMBLYAI_API_KEY",
	"VAPI_API_KEY",
	"VAPI_ASSISTANT_ID",
	"VAPI_PHONE_NUMBER_ID",
	"TWILIO_ACCOUNT_SID",
	"TWILIO_AUTH_TOKEN",
	"TWILIO_PHONE_NUMBER",
	"TWILIO_TWIML_URL",
	"EXOTEL_SID",
	"EXOTEL_API_KEY",
	"EXOTEL_API_TOKEN",
	"EXOTEL_CALLER_ID",
}

var chainKeys = map[string]string{
	"llm":         "LLM_FALLBACK_CHAIN",
	"tts":         "TTS_FALLBACK_CHAIN",
	"stt":         "STT_FALLBACK_CHAIN",
	"telephony":   "TELEPHONY_FALLBACK_CHAIN",
	"voice_clone": "VOICE_CLONE_FALLBACK_CHAIN",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_BIND_ADDR", ":8080")
	v.SetDefault("APP_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("APP_SESSION_RETENTION", "5m")
	v.SetDefault("APP_METRICS_NAMESPACE", "vaani")
	v.SetDefault("APP_ALLOW_ANY_ORIGIN", "false")
	v.SetDefault("APP_CORS_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_FILES", "7")
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", "0")
	v.SetDefault("STT_ATTEMPT_TIMEOUT", "30s")
	v.SetDefault("LLM_ATTEMPT_TIMEOUT", "30s")
	v.SetDefault("TTS_ATTEMPT_TIMEOUT", "125s")
	v.SetDefault("TELEPHONY_ATTEMPT_TIMEOUT", "15s")
	v.SetDefault("CLONE_ATTEMPT_TIMEOUT", "130s")
	v.SetDefault("POLL_INTERVAL", "1s")
	v.SetDefault("POLL_MAX_ATTEMPTS", "120")
	v.SetDefault("AUDIO_FETCH_TIMEOUT", "60s")
	v.SetDefault("REPLY_MAX_WORDS", "50")
	v.SetDefault("REPLY_MAX_TOKENS", "100")
	v.SetDefault("PROVIDER_RATE_LIMIT_RPS", "10")
	v.SetDefault("MOCK_PROVIDERS", "false")
	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.1")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "vaani")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", "true")
	for _, key := range chainKeys {
		v.SetDefault(key, "")
	}
	for _, key := range CredentialKeys {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()
	return v
}

// Load reads the optional APP_CONFIG_FILE and environment variables and
// applies safe defaults. Environment variables win over the file.
func Load() (Config, error) {
	v := newViper()
	if path := strings.TrimSpace(v.GetString("APP_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			v.SetConfigType("json")
		default:
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	r := reader{v: v}

	cfg := Config{
		BindAddr:         r.str("APP_BIND_ADDR"),
		MetricsNamespace: r.str("APP_METRICS_NAMESPACE"),
		CORSOrigins:      r.list("APP_CORS_ORIGINS"),
		LogLevel:         strings.ToLower(r.str("LOG_LEVEL")),
		LogFormat:        strings.ToLower(r.str("LOG_FORMAT")),
		LogFile:          r.str("LOG_FILE"),
		StoreBackend:     strings.ToLower(r.str("STORE_BACKEND")),
		DatabaseURL:      r.str("DATABASE_URL"),
		RedisAddr:        r.str("REDIS_ADDR"),
		RedisPassword:    r.str("REDIS_PASSWORD"),
		OllamaBaseURL:    r.str("OLLAMA_BASE_URL"),
		OllamaModel:      r.str("OLLAMA_MODEL"),
		OTelEndpoint:     r.str("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName:  r.str("OTEL_SERVICE_NAME"),
		FallbackChains:   make(map[string][]string),
		credentials:      make(map[string]string, len(CredentialKeys)),
	}

	cfg.ShutdownTimeout = r.duration("APP_SHUTDOWN_TIMEOUT")
	cfg.SessionRetention = r.duration("APP_SESSION_RETENTION")
	cfg.AllowAnyOrigin = r.boolean("APP_ALLOW_ANY_ORIGIN")
	cfg.LogMaxFiles = r.integer("LOG_MAX_FILES")
	cfg.RedisDB = r.integer("REDIS_DB")
	cfg.STTAttemptTimeout = r.duration("STT_ATTEMPT_TIMEOUT")
	cfg.LLMAttemptTimeout = r.duration("LLM_ATTEMPT_TIMEOUT")
	cfg.TTSAttemptTimeout = r.duration("TTS_ATTEMPT_TIMEOUT")
	cfg.TelephonyAttemptTimeout = r.duration("TELEPHONY_ATTEMPT_TIMEOUT")
	cfg.VoiceCloneAttemptTimeout = r.duration("CLONE_ATTEMPT_TIMEOUT")
	cfg.PollInterval = r.duration("POLL_INTERVAL")
	cfg.PollMaxAttempts = r.integer("POLL_MAX_ATTEMPTS")
	cfg.AudioFetchTimeout = r.duration("AUDIO_FETCH_TIMEOUT")
	cfg.ReplyMaxWords = r.integer("REPLY_MAX_WORDS")
	cfg.ReplyMaxTokens = r.integer("REPLY_MAX_TOKENS")
	cfg.ProviderRateLimitRPS = r.float("PROVIDER_RATE_LIMIT_RPS")
	cfg.MockProviders = r.boolean("MOCK_PROVIDERS")
	cfg.OTelInsecure = r.boolean("OTEL_EXPORTER_OTLP_INSECURE")
	if r.err != nil {
		return Config{}, r.err
	}

	for capability, key := range chainKeys {
		if keys := r.list(key); len(keys) > 0 {
			cfg.FallbackChains[capability] = keys
		}
	}
	for _, key := range CredentialKeys {
		if val := r.str(key); val != "" {
			cfg.credentials[key] = val
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionRetention < time.Second {
		return fmt.Errorf("APP_SESSION_RETENTION must be at least 1s")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	for key, d := range map[string]time.Duration{
		"STT_ATTEMPT_TIMEOUT":       c.STTAttemptTimeout,
		"LLM_ATTEMPT_TIMEOUT":       c.LLMAttemptTimeout,
		"TTS_ATTEMPT_TIMEOUT":       c.TTSAttemptTimeout,
		"TELEPHONY_ATTEMPT_TIMEOUT": c.TelephonyAttemptTimeout,
		"CLONE_ATTEMPT_TIMEOUT":     c.VoiceCloneAttemptTimeout,
		"POLL_INTERVAL":             c.PollInterval,
		"AUDIO_FETCH_TIMEOUT":       c.AudioFetchTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if c.ReplyMaxWords <= 0 {
		return fmt.Errorf("REPLY_MAX_WORDS must be positive")
	}
	if c.ReplyMaxTokens <= 0 {
		return fmt.Errorf("REPLY_MAX_TOKENS must be positive")
	}
	if c.ProviderRateLimitRPS < 0 {
		return fmt.Errorf("PROVIDER_RATE_LIMIT_RPS must be >= 0")
	}
	if c.LogMaxFiles <= 0 {
		return fmt.Errorf("LOG_MAX_FILES must be positive")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of console|json")
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory|postgres|redis")
	}
	return nil
}

// Credential returns the configured secret for a provider env key, or "".
func (c Config) Credential(key string) string {
	return c.credentials[key]
}

// reader collects the first parse error so Load can report it once.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

func (r *reader) list(key string) []string {
	raw := r.str(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) duration(key string) time.Duration {
	if r.err != nil {
		return 0
	}
	d, err := time.ParseDuration(r.str(key))
	if err != nil {
		r.err = fmt.Errorf("%s parse error: %w", key, err)
	}
	return d
}

func (r *reader) integer(key string) int {
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(r.str(key))
	if err != nil {
		r.err = fmt.Errorf("%s parse error: %w", key, err)
	}
	return n
}

func (r *reader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(r.str(key), 64)
	if err != nil {
		r.err = fmt.Errorf("%s parse error: %w", key, err)
	}
	return f
}

func (r *reader) boolean(key string) bool {
	if r.err != nil {
		return false
	}
	switch strings.ToLower(r.str(key)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		r.err = fmt.Errorf("%s parse error: expected bool", key)
		return false
	}
}
