// Package voice runs one conversational turn: speech in, transcript and
// reply text out, then synthesized speech back to the caller.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ent0n29/vaani/internal/observability"
	"github.com/ent0n29/vaani/internal/policy"
	"github.com/ent0n29/vaani/internal/protocol"
	"github.com/ent0n29/vaani/internal/provider"
)

type State string

const (
	StateAwaitingAudio State = "awaiting_audio"
	StateTranscribing  State = "transcribing"
	StateGenerating    State = "generating"
	StateSynthesizing  State = "synthesizing"
	StateDelivering    State = "delivering"
	StateDone          State = "done"
)

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeTotalFailure   Outcome = "total_failure"
	OutcomeNoop           Outcome = "noop"
	// OutcomeCanceled means the session went away mid-turn; nothing was emitted after it.
	OutcomeCanceled Outcome = "canceled"
)

// Client-facing failure messages.
const (
	MsgRecognitionFailed = "Speech recognition failed"
	MsgGenerationFailed  = "Response generation failed"
	MsgSynthesisFailed   = "Speech synthesis failed"
	MsgAudioFailed       = "Audio generation failed"
)

// Profile is the per-session view of an agent the pipeline needs. It is
// captured once when the session opens.
type Profile struct {
	AgentID           string
	SystemInstruction string
	Language          string
	LLMProvider       string
	STTProvider       string
	TTSProvider       string
	// Voice is the TTS voice selector; for a cloned voice it is the clone reference.
	Voice string
	// VoiceProvider is tried before TTSProvider when a cloned voice is bound.
	VoiceProvider string
	Temperature   float64
	MaxTokens     int
}

type TurnInput struct {
	SessionID string
	Turn      int
	Audio     []byte
	Format    string
	Profile   Profile
}

type TurnResult struct {
	Turn        int                      `json:"turn"`
	InputBytes  int                      `json:"input_bytes"`
	InputFormat string                   `json:"input_format,omitempty"`
	Transcript  string                   `json:"transcript,omitempty"`
	Reply       string                   `json:"reply,omitempty"`
	Audio       []byte                   `json:"-"`
	AudioURL    string                   `json:"audio_url,omitempty"`
	Providers   map[string]string        `json:"providers"`
	Latency     map[string]time.Duration `json:"latency"`
	State       State                    `json:"state"`
	Outcome     Outcome                  `json:"outcome"`
	FailedStage string                   `json:"failed_stage,omitempty"`
	Err         error                    `json:"-"`
}

// Emitter delivers one outbound event in order. An error means the session
// can no longer receive events and the turn stops.
type Emitter interface {
	Emit(ctx context.Context, event any) error
}

type EmitterFunc func(ctx context.Context, event any) error

func (f EmitterFunc) Emit(ctx context.Context, event any) error { return f(ctx, event) }

// Invoker is the fallback-aware provider surface the pipeline calls.
type Invoker interface {
	Transcribe(ctx context.Context, candidates []string, req provider.STTRequest) (provider.STTResult, string, error)
	Generate(ctx context.Context, candidates []string, req provider.LLMRequest) (provider.LLMResult, string, error)
	Synthesize(ctx context.Context, candidates []string, req provider.TTSRequest) (provider.TTSResult, string, error)
}

type Config struct {
	ReplyMaxWords  int
	ReplyMaxTokens int
}

type Pipeline struct {
	invoker Invoker
	catalog *provider.Catalog
	fetcher AudioFetcher
	metrics *observability.Metrics
	tracer  trace.Tracer
	logger  zerolog.Logger
	cfg     Config
}

type Option func(*Pipeline)

func WithFetcher(f AudioFetcher) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.fetcher = f
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

func NewPipeline(invoker Invoker, catalog *provider.Catalog, cfg Config, opts ...Option) *Pipeline {
	if cfg.ReplyMaxWords <= 0 {
		cfg.ReplyMaxWords = DefaultReplyMaxWords
	}
	if cfg.ReplyMaxTokens <= 0 {
		cfg.ReplyMaxTokens = DefaultReplyMaxTokens
	}
	p := &Pipeline{
		invoker: invoker,
		catalog: catalog,
		fetcher: NewHTTPAudioFetcher(DefaultFetchTimeout),
		tracer:  observability.Tracer(),
		logger:  log.Logger,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "voice_pipeline").Logger()
	return p
}

// RunTurn drives one utterance through STT, LLM and TTS. Events are emitted
// as [transcription, ai_response, audio]; a failure emits the prefix that
// succeeded followed by a single error event. A silent utterance emits nothing.
func (p *Pipeline) RunTurn(ctx context.Context, in TurnInput, out Emitter) TurnResult {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "voice.turn", trace.WithAttributes(
		attribute.String("session.id", in.SessionID),
		attribute.String("agent.id", in.Profile.AgentID),
		attribute.Int("turn", in.Turn),
		attribute.Int("audio.bytes", len(in.Audio)),
	))
	defer span.End()

	t := &turn{
		p:    p,
		in:   in,
		out:  out,
		span: span,
		res: TurnResult{
			Turn:        in.Turn,
			InputBytes:  len(in.Audio),
			InputFormat: in.Format,
			Providers:   make(map[string]string, 3),
			Latency:     make(map[string]time.Duration, 4),
			State:       StateAwaitingAudio,
		},
		logger: p.logger.With().Str("session_id", in.SessionID).Int("turn", in.Turn).Logger(),
	}
	t.run(ctx)

	res := t.res
	res.State = StateDone
	if res.Outcome != OutcomeNoop && res.Outcome != OutcomeCanceled {
		p.metrics.ObserveStage(observability.StageTurnTotal, time.Since(started))
	}
	p.metrics.ObserveTurnOutcome(string(res.Outcome))
	span.SetAttributes(attribute.String("turn.outcome", string(res.Outcome)))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(res.Outcome))
	}

	ev := t.logger.Info()
	if res.Err != nil {
		ev = t.logger.Warn().Err(res.Err).Str("failed_stage", res.FailedStage)
	}
	ev.Str("outcome", string(res.Outcome)).
		Interface("providers", res.Providers).
		Dur("elapsed", time.Since(started)).
		Msg("turn finished")
	if dbg := t.logger.Debug(); dbg.Enabled() {
		transcript, _ := policy.RedactPII(res.Transcript)
		reply, _ := policy.RedactPII(res.Reply)
		dbg.Str("transcript", transcript).Str("reply", reply).Msg("turn text")
	}
	return res
}

type turn struct {
	p      *Pipeline
	in     TurnInput
	out    Emitter
	span   trace.Span
	res    TurnResult
	logger zerolog.Logger
}

func (t *turn) run(ctx context.Context) {
	prof := t.in.Profile

	t.res.State = StateTranscribing
	var heard provider.STTResult
	err := t.stage(ctx, observability.StageSTT, func(ctx context.Context) (string, error) {
		res, used, err := t.p.invoker.Transcribe(ctx, t.chain(provider.CapabilitySTT, prof.STTProvider), provider.STTRequest{
			Audio:    t.in.Audio,
			Format:   t.in.Format,
			Language: prof.Language,
		})
		heard = res
		return used, err
	})
	if err != nil {
		t.fail(ctx, observability.StageSTT, OutcomeTotalFailure, failureMessage(MsgRecognitionFailed, "STT", err), err)
		return
	}
	transcript := strings.TrimSpace(heard.Text)
	if transcript == "" {
		t.res.Outcome = OutcomeNoop
		return
	}
	t.res.Transcript = transcript
	if !t.emit(ctx, observability.StageSTT, protocol.NewTranscription(transcript)) {
		return
	}

	t.res.State = StateGenerating
	var reply provider.LLMResult
	err = t.stage(ctx, observability.StageLLM, func(ctx context.Context) (string, error) {
		res, used, err := t.p.invoker.Generate(ctx, t.chain(provider.CapabilityLLM, prof.LLMProvider), provider.LLMRequest{
			Prompt:            transcript,
			SystemInstruction: BuildSystemInstruction(prof.SystemInstruction, t.p.languageName(prof.Language), t.p.cfg.ReplyMaxWords),
			Language:          prof.Language,
			Temperature:       prof.Temperature,
			MaxTokens:         t.p.maxTokens(prof.MaxTokens),
		})
		reply = res
		return used, err
	})
	if err != nil {
		t.fail(ctx, observability.StageLLM, OutcomePartialFailure, failureMessage(MsgGenerationFailed, "LLM", err), err)
		return
	}
	t.res.Reply = strings.TrimSpace(reply.Text)
	if !t.emit(ctx, observability.StageLLM, protocol.NewAIResponse(t.res.Reply)) {
		return
	}

	t.res.State = StateSynthesizing
	spoken := SpeakableText(t.res.Reply)
	if spoken == "" {
		spoken = t.res.Reply
	}
	var speech provider.TTSResult
	err = t.stage(ctx, observability.StageTTS, func(ctx context.Context) (string, error) {
		res, used, err := t.p.invoker.Synthesize(ctx, t.chain(provider.CapabilityTTS, prof.VoiceProvider, prof.TTSProvider), provider.TTSRequest{
			Text:     spoken,
			Language: NormalizeLanguage(prof.Language),
			Voice:    prof.Voice,
		})
		speech = res
		return used, err
	})
	if err == nil && len(speech.Audio) == 0 && speech.URL == "" {
		err = errors.New("provider returned no audio")
	}
	if err != nil {
		t.fail(ctx, observability.StageTTS, OutcomePartialFailure, failureMessage(MsgSynthesisFailed, "TTS", err), err)
		return
	}

	audio := speech.Audio
	if len(audio) == 0 {
		t.res.AudioURL = speech.URL
		err = t.stage(ctx, observability.StageFetch, func(ctx context.Context) (string, error) {
			b, err := t.p.fetcher.Fetch(ctx, speech.URL)
			audio = b
			return "", err
		})
		if err != nil {
			t.fail(ctx, observability.StageFetch, OutcomePartialFailure, MsgAudioFailed, err)
			return
		}
	}
	t.res.Audio = audio

	t.res.State = StateDelivering
	if !t.emit(ctx, observability.StageTTS, protocol.NewAudio(audio)) {
		return
	}
	t.res.Outcome = OutcomeSuccess
}

// stage times fn under a child span and records which provider served it.
func (t *turn) stage(ctx context.Context, name string, fn func(context.Context) (string, error)) error {
	ctx, span := t.p.tracer.Start(ctx, "voice."+name)
	defer span.End()

	start := time.Now()
	used, err := fn(ctx)
	elapsed := time.Since(start)

	t.res.Latency[name] = elapsed
	t.p.metrics.ObserveStage(name, elapsed)
	if used != "" {
		t.res.Providers[name] = used
		span.SetAttributes(attribute.String("provider", used))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
	}
	return err
}

func (t *turn) emit(ctx context.Context, stage string, event any) bool {
	if err := t.out.Emit(ctx, event); err != nil {
		t.res.Outcome = OutcomeCanceled
		t.res.FailedStage = stage
		t.res.Err = err
		return false
	}
	return true
}

// fail emits the single error event for a turn. A cancelled turn emits nothing.
func (t *turn) fail(ctx context.Context, stage string, outcome Outcome, message string, err error) {
	t.res.FailedStage = stage
	t.res.Err = err
	if ctx.Err() != nil {
		t.res.Outcome = OutcomeCanceled
		return
	}
	if !t.emit(ctx, stage, protocol.NewError(message)) {
		return
	}
	t.res.Outcome = outcome
}

func (t *turn) chain(capability provider.Capability, preferred ...string) []string {
	keys := t.p.catalog.Chain(capability, preferred...).Keys
	t.span.SetAttributes(attribute.StringSlice("chain."+string(capability), keys))
	return keys
}

func (p *Pipeline) languageName(tag string) string {
	if p.catalog != nil {
		if l, ok := p.catalog.Language(tag); ok {
			return l.Name
		}
	}
	return tag
}

// maxTokens caps the agent's budget for spoken replies.
func (p *Pipeline) maxTokens(agentMax int) int {
	if agentMax <= 0 || agentMax > p.cfg.ReplyMaxTokens {
		return p.cfg.ReplyMaxTokens
	}
	return agentMax
}

func failureMessage(prefix, capability string, err error) string {
	if errors.Is(err, provider.ErrAllProvidersExhausted) {
		return fmt.Sprintf("%s: all %s providers exhausted", prefix, capability)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
