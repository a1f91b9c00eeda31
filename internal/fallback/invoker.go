package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ent0n29/vaani/internal/provider"
)

// Timeouts bounds a single adapter attempt per capability.
type Timeouts struct {
	STT        time.Duration
	LLM        time.Duration
	TTS        time.Duration
	Telephony  time.Duration
	VoiceClone time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		STT:        30 * time.Second,
		LLM:        30 * time.Second,
		TTS:        provider.DefaultPoll.Ceiling() + 5*time.Second,
		Telephony:  15 * time.Second,
		VoiceClone: 130 * time.Second,
	}
}

func (t Timeouts) For(capability provider.Capability) time.Duration {
	var d time.Duration
	switch capability {
	case provider.CapabilitySTT:
		d = t.STT
	case provider.CapabilityLLM:
		d = t.LLM
	case provider.CapabilityTTS:
		d = t.TTS
	case provider.CapabilityTelephony:
		d = t.Telephony
	case provider.CapabilityVoiceClone:
		d = t.VoiceClone
	}
	if d <= 0 {
		return DefaultTimeouts().For(capability)
	}
	return d
}

// AttemptRecorder receives one observation per adapter attempt.
type AttemptRecorder interface {
	ObserveProviderAttempt(capability, provider, outcome string, d time.Duration)
}

// Failure is one failed attempt kept for diagnostics.
type Failure struct {
	Provider string `json:"provider"`
	Class    string `json:"class"`
	Err      error  `json:"-"`
}

// ExhaustedError is returned once every candidate has failed. It matches
// provider.ErrAllProvidersExhausted under errors.Is.
type ExhaustedError struct {
	Capability provider.Capability
	Attempts   int
	Failures   []Failure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v after %d attempts", e.Capability, provider.ErrAllProvidersExhausted, e.Attempts)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Provider+"="+f.Class)
	}
	return fmt.Sprintf("%s: %v after %d attempts (%s)", e.Capability, provider.ErrAllProvidersExhausted, e.Attempts, strings.Join(parts, ", "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == provider.ErrAllProvidersExhausted
}

// Invoker tries candidate providers in order until one succeeds.
type Invoker struct {
	registry *provider.Registry
	timeouts Timeouts
	logger   zerolog.Logger
	recorder AttemptRecorder
}

type Option func(*Invoker)

func WithTimeouts(t Timeouts) Option {
	return func(i *Invoker) { i.timeouts = t }
}

func WithLogger(l zerolog.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

func WithRecorder(r AttemptRecorder) Option {
	return func(i *Invoker) { i.recorder = r }
}

func New(registry *provider.Registry, opts ...Option) *Invoker {
	inv := &Invoker{
		registry: registry,
		timeouts: DefaultTimeouts(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.logger = inv.logger.With().Str("component", "fallback").Logger()
	return inv
}

func (i *Invoker) Timeouts() Timeouts { return i.timeouts }

func (i *Invoker) Transcribe(ctx context.Context, candidates []string, req provider.STTRequest) (provider.STTResult, string, error) {
	return invoke(ctx, i, provider.CapabilitySTT, candidates, func(key string) (func(context.Context) (provider.STTResult, error), bool) {
		a, ok := i.registry.STT(key)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) (provider.STTResult, error) { return a.Transcribe(ctx, req) }, true
	})
}

func (i *Invoker) Generate(ctx context.Context, candidates []string, req provider.LLMRequest) (provider.LLMResult, string, error) {
	return invoke(ctx, i, provider.CapabilityLLM, candidates, func(key string) (func(context.Context) (provider.LLMResult, error), bool) {
		a, ok := i.registry.LLM(key)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) (provider.LLMResult, error) { return a.Generate(ctx, req) }, true
	})
}

func (i *Invoker) Synthesize(ctx context.Context, candidates []string, req provider.TTSRequest) (provider.TTSResult, string, error) {
	return invoke(ctx, i, provider.CapabilityTTS, candidates, func(key string) (func(context.Context) (provider.TTSResult, error), bool) {
		a, ok := i.registry.TTS(key)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) (provider.TTSResult, error) { return a.Synthesize(ctx, req) }, true
	})
}

func (i *Invoker) PlaceCall(ctx context.Context, candidates []string, req provider.CallRequest) (provider.CallResult, string, error) {
	return invoke(ctx, i, provider.CapabilityTelephony, candidates, func(key string) (func(context.Context) (provider.CallResult, error), bool) {
		a, ok := i.registry.Telephony(key)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) (provider.CallResult, error) { return a.PlaceCall(ctx, req) }, true
	})
}

func (i *Invoker) Clone(ctx context.Context, candidates []string, req provider.CloneRequest) (provider.CloneResult, string, error) {
	return invoke(ctx, i, provider.CapabilityVoiceClone, candidates, func(key string) (func(context.Context) (provider.CloneResult, error), bool) {
		a, ok := i.registry.VoiceClone(key)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context) (provider.CloneResult, error) { return a.Clone(ctx, req) }, true
	})
}

func invoke[T any](
	ctx context.Context,
	inv *Invoker,
	capability provider.Capability,
	candidates []string,
	resolve func(key string) (func(context.Context) (T, error), bool),
) (T, string, error) {
	var zero T
	timeout := inv.timeouts.For(capability)
	span := trace.SpanFromContext(ctx)
	exhausted := &ExhaustedError{Capability: capability}

	for idx, key := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		exhausted.Attempts++

		start := time.Now()
		call, ok := resolve(key)
		var (
			res T
			err error
		)
		if !ok {
			err = fmt.Errorf("%w: %s not registered", provider.ErrUnavailable, key)
		} else {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			res, err = call(attemptCtx)
			cancel()
		}
		elapsed := time.Since(start)

		if err == nil {
			inv.observe(capability, key, "ok", elapsed)
			span.AddEvent("provider_attempt", trace.WithAttributes(
				attribute.String("capability", string(capability)),
				attribute.String("provider", key),
				attribute.String("outcome", "ok"),
			))
			return res, key, nil
		}

		// The owning session is gone; later candidates would only be discarded.
		if ctx.Err() != nil {
			inv.observe(capability, key, "canceled", elapsed)
			return zero, "", ctx.Err()
		}

		class := provider.Classify(provider.Normalize(key, err))
		inv.observe(capability, key, class, elapsed)
		span.AddEvent("provider_attempt", trace.WithAttributes(
			attribute.String("capability", string(capability)),
			attribute.String("provider", key),
			attribute.String("outcome", class),
		))
		inv.logger.Warn().
			Err(err).
			Str("capability", string(capability)).
			Str("provider", key).
			Str("class", class).
			Int("attempt", idx+1).
			Int("candidates", len(candidates)).
			Dur("elapsed", elapsed).
			Msg("provider attempt failed")
		exhausted.Failures = append(exhausted.Failures, Failure{Provider: key, Class: class, Err: err})
	}

	inv.logger.Error().
		Str("capability", string(capability)).
		Int("attempts", exhausted.Attempts).
		Msg("all providers exhausted")
	return zero, "", exhausted
}

func (i *Invoker) observe(capability provider.Capability, key, outcome string, d time.Duration) {
	if i.recorder == nil {
		return
	}
	i.recorder.ObserveProviderAttempt(string(capability), key, outcome, d)
}
