package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"

	"github.com/ent0n29/vaani/internal/provider"
)

func TestInvokerReturnsProviderThatSucceeded(t *testing.T) {
	reg := provider.NewRegistry()
	groq := &stubLLM{err: provider.Unavailable("groq", errors.New("503"))}
	together := &stubLLM{text: "नमस्ते"}
	mistral := &stubLLM{text: "unused"}
	reg.RegisterLLM("groq", groq)
	reg.RegisterLLM("together", together)
	reg.RegisterLLM("mistral", mistral)

	inv := New(reg, WithLogger(zerolog.Nop()))
	res, used, err := inv.Generate(context.Background(), []string{"groq", "together", "mistral"}, provider.LLMRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if used != "together" {
		t.Fatalf("provider used = %q, want %q", used, "together")
	}
	if res.Text != "नमस्ते" {
		t.Fatalf("text = %q", res.Text)
	}
	if groq.calls != 1 || together.calls != 1 {
		t.Fatalf("calls groq=%d together=%d, want 1 and 1", groq.calls, together.calls)
	}
	if mistral.calls != 0 {
		t.Fatalf("mistral calls = %d, want 0 after earlier success", mistral.calls)
	}
}

func TestInvokerExhaustedCarriesAttempts(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterSTT("google_stt", &stubSTT{err: provider.Rejected("google_stt", "400")})
	reg.RegisterSTT("deepgram", &stubSTT{err: provider.Timeout("deepgram", context.DeadlineExceeded)})

	rec := &attemptLog{}
	inv := New(reg, WithLogger(zerolog.Nop()), WithRecorder(rec))
	_, used, err := inv.Transcribe(context.Background(), []string{"google_stt", "unregistered", "deepgram"}, provider.STTRequest{})
	if !errors.Is(err, provider.ErrAllProvidersExhausted) {
		t.Fatalf("error = %v, want ErrAllProvidersExhausted", err)
	}
	if used != "" {
		t.Fatalf("provider used = %q, want empty", used)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("error type = %T, want *ExhaustedError", err)
	}
	if ex.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", ex.Attempts)
	}
	wantClasses := []string{"rejected", "unavailable", "timeout"}
	for i, f := range ex.Failures {
		if f.Class != wantClasses[i] {
			t.Fatalf("Failures[%d].Class = %q, want %q", i, f.Class, wantClasses[i])
		}
	}
	if got := rec.outcomes(); fmt.Sprint(got) != "[rejected unavailable timeout]" {
		t.Fatalf("recorded outcomes = %v", got)
	}
}

func TestInvokerAppliesPerAttemptTimeout(t *testing.T) {
	reg := provider.NewRegistry()
	reg.RegisterTTS("slow", &stubTTS{block: true})
	reg.RegisterTTS("fast", &stubTTS{url: "https://cdn.example/a.wav"})

	inv := New(reg, WithLogger(zerolog.Nop()), WithTimeouts(Timeouts{TTS: 20 * time.Millisecond}))
	start := time.Now()
	res, used, err := inv.Synthesize(context.Background(), []string{"slow", "fast"}, provider.TTSRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if used != "fast" || res.URL == "" {
		t.Fatalf("used=%q res=%+v, want fast with URL", used, res)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("slow attempt was not bounded by its timeout")
	}
}

func TestInvokerStopsWhenParentCanceled(t *testing.T) {
	reg := provider.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	first := &stubTTS{onCall: cancel, err: errors.New("boom")}
	second := &stubTTS{url: "https://cdn.example/a.wav"}
	reg.RegisterTTS("a", first)
	reg.RegisterTTS("b", second)

	inv := New(reg, WithLogger(zerolog.Nop()))
	_, _, err := inv.Synthesize(ctx, []string{"a", "b"}, provider.TTSRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if second.calls != 0 {
		t.Fatalf("second provider called after session was gone")
	}
}

func TestInvokerEmptyCandidates(t *testing.T) {
	inv := New(provider.NewRegistry(), WithLogger(zerolog.Nop()))
	_, _, err := inv.PlaceCall(context.Background(), nil, provider.CallRequest{})
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 0 {
		t.Fatalf("error = %v, want ExhaustedError with 0 attempts", err)
	}
}

func TestInvokerExhaustionProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "candidates")
		reg := provider.NewRegistry()
		stubs := make([]*stubLLM, n)
		keys := make([]string, n)
		for i := range stubs {
			keys[i] = fmt.Sprintf("p%d", i)
			stubs[i] = &stubLLM{err: provider.Unavailable(keys[i], errors.New("down"))}
			reg.RegisterLLM(keys[i], stubs[i])
		}

		_, _, err := New(reg, WithLogger(zerolog.Nop())).Generate(context.Background(), keys, provider.LLMRequest{})
		var ex *ExhaustedError
		if !errors.As(err, &ex) {
			rt.Fatalf("error = %v, want ExhaustedError", err)
		}
		if ex.Attempts != n {
			rt.Fatalf("Attempts = %d, want %d", ex.Attempts, n)
		}
		for i, s := range stubs {
			if s.calls != 1 {
				rt.Fatalf("candidate %d called %d times, want 1", i, s.calls)
			}
		}
	})
}

func TestInvokerFirstSuccessProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "candidates")
		winner := rapid.IntRange(0, n-1).Draw(rt, "winner")
		reg := provider.NewRegistry()
		stubs := make([]*stubLLM, n)
		keys := make([]string, n)
		for i := range stubs {
			keys[i] = fmt.Sprintf("p%d", i)
			switch {
			case i < winner:
				stubs[i] = &stubLLM{err: provider.Rejected(keys[i], "bad request")}
			default:
				stubs[i] = &stubLLM{text: keys[i]}
			}
			reg.RegisterLLM(keys[i], stubs[i])
		}

		res, used, err := New(reg, WithLogger(zerolog.Nop())).Generate(context.Background(), keys, provider.LLMRequest{})
		if err != nil {
			rt.Fatalf("Generate() error = %v", err)
		}
		if used != keys[winner] || res.Text != keys[winner] {
			rt.Fatalf("used = %q, want %q", used, keys[winner])
		}
		for i := winner + 1; i < n; i++ {
			if stubs[i].calls != 0 {
				rt.Fatalf("candidate %d after winner %d was invoked", i, winner)
			}
		}
	})
}

type stubLLM struct {
	calls int
	text  string
	err   error
}

func (s *stubLLM) Generate(context.Context, provider.LLMRequest) (provider.LLMResult, error) {
	s.calls++
	if s.err != nil {
		return provider.LLMResult{}, s.err
	}
	return provider.LLMResult{Text: s.text}, nil
}

type stubSTT struct {
	calls int
	err   error
}

func (s *stubSTT) Transcribe(context.Context, provider.STTRequest) (provider.STTResult, error) {
	s.calls++
	return provider.STTResult{}, s.err
}

type stubTTS struct {
	calls  int
	block  bool
	url    string
	err    error
	onCall func()
}

func (s *stubTTS) Synthesize(ctx context.Context, _ provider.TTSRequest) (provider.TTSResult, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	if s.block {
		<-ctx.Done()
		return provider.TTSResult{}, ctx.Err()
	}
	if s.err != nil {
		return provider.TTSResult{}, s.err
	}
	return provider.TTSResult{URL: s.url}, nil
}

type attemptLog struct {
	mu   sync.Mutex
	seen []string
}

func (a *attemptLog) ObserveProviderAttempt(_, _ string, outcome string, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, outcome)
}

func (a *attemptLog) outcomes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.seen...)
}
