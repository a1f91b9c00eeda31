package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/vaani/internal/agents"
	"github.com/ent0n29/vaani/internal/protocol"
	"github.com/ent0n29/vaani/internal/voice"
)

type recordingRunner struct {
	mu     sync.Mutex
	inputs []voice.TurnInput
}

func (r *recordingRunner) RunTurn(ctx context.Context, in voice.TurnInput, out voice.Emitter) voice.TurnResult {
	r.mu.Lock()
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()
	text := fmt.Sprintf("%s#%d:%s", in.SessionID, in.Turn, in.Audio)
	if err := out.Emit(ctx, protocol.NewTranscription(text)); err != nil {
		return voice.TurnResult{Turn: in.Turn, Outcome: voice.OutcomeCanceled}
	}
	if err := out.Emit(ctx, protocol.NewAIResponse("ok")); err != nil {
		return voice.TurnResult{Turn: in.Turn, Outcome: voice.OutcomeCanceled}
	}
	return voice.TurnResult{Turn: in.Turn, Outcome: voice.OutcomeSuccess}
}

func (r *recordingRunner) snapshot() []voice.TurnInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]voice.TurnInput(nil), r.inputs...)
}

type stubResolver struct {
	ref, key string
	err      error
}

func (s stubResolver) Resolve(context.Context, string) (string, string, error) {
	return s.ref, s.key, s.err
}

func seedAgent(t *testing.T, store agents.Store, a agents.Agent) {
	t.Helper()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = agents.StatusActive
	}
	if err := store.Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func drain(out chan any) []any {
	var events []any
	for {
		select {
		case ev := <-out:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestRunRejectsUnknownAndInactiveAgents(t *testing.T) {
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "sleepy", Name: "s", Language: "hi", Status: agents.StatusInactive})

	for _, id := range []string{"missing", "sleepy"} {
		t.Run(id, func(t *testing.T) {
			mgr := NewManager(time.Minute, nil)
			runner := &recordingRunner{}
			conv := NewConversation(Deps{Agents: store, Runner: runner, Manager: mgr}, id)
			out := make(chan any, 4)
			in := make(chan protocol.InboundAudio)

			err := conv.Run(context.Background(), in, out)
			if !errors.Is(err, ErrAgentNotFound) {
				t.Fatalf("Run() error = %v, want ErrAgentNotFound", err)
			}
			events := drain(out)
			if len(events) != 1 {
				t.Fatalf("events = %#v, want a single error", events)
			}
			e, ok := events[0].(protocol.Error)
			if !ok || e.Message != MsgAgentNotFound {
				t.Fatalf("event = %#v, want error %q", events[0], MsgAgentNotFound)
			}
			snap, err := mgr.Get(conv.ID())
			if err != nil || snap.State != StateClosed {
				t.Fatalf("snapshot = %+v, %v; want closed", snap, err)
			}
			if len(runner.snapshot()) != 0 {
				t.Fatalf("runner should not be called")
			}
		})
	}
}

func TestRunSerializesTurnsAfterReady(t *testing.T) {
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "a1", Name: "Asha", Language: "hi", SystemInstruction: "help"})
	mgr := NewManager(time.Minute, nil)
	runner := &recordingRunner{}
	conv := NewConversation(Deps{Agents: store, Runner: runner, Manager: mgr}, "a1")

	in := make(chan protocol.InboundAudio, 2)
	in <- protocol.InboundAudio{Audio: []byte("one")}
	in <- protocol.InboundAudio{Audio: []byte("two"), Format: "wav"}
	close(in)
	out := make(chan any, 16)

	if err := conv.Run(context.Background(), in, out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	events := drain(out)
	want := []string{"ready", "transcription", "ai_response", "transcription", "ai_response"}
	if len(events) != len(want) {
		t.Fatalf("events = %#v, want %d", events, len(want))
	}
	for i, ev := range events {
		if got := protocol.MessageTypeOf(ev); got != want[i] {
			t.Fatalf("event[%d] type = %q, want %q", i, got, want[i])
		}
	}
	if r := events[0].(protocol.Ready); r.SessionID != conv.ID() || r.AgentID != "a1" {
		t.Fatalf("ready = %+v", r)
	}
	if got := events[3].(protocol.Transcription).Text; got != conv.ID()+"#2:two" {
		t.Fatalf("second transcript = %q", got)
	}

	inputs := runner.snapshot()
	if len(inputs) != 2 || inputs[0].Turn != 1 || inputs[1].Turn != 2 || inputs[1].Format != "wav" {
		t.Fatalf("inputs = %+v", inputs)
	}
	snap, _ := mgr.Get(conv.ID())
	if snap.State != StateClosed || snap.Turns != 2 || snap.LastOutcome != voice.OutcomeSuccess {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestAgentUpdatesDoNotReachOpenSession(t *testing.T) {
	ctx := context.Background()
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "a1", Name: "Asha", Language: "hi", SystemInstruction: "before", LLMProvider: "groq"})
	runner := &recordingRunner{}
	conv := NewConversation(Deps{Agents: store, Runner: runner}, "a1")

	in := make(chan protocol.InboundAudio)
	out := make(chan any, 16)
	done := make(chan error, 1)
	go func() { done <- conv.Run(ctx, in, out) }()

	if ev := <-out; protocol.MessageTypeOf(ev) != "ready" {
		t.Fatalf("first event = %#v, want ready", ev)
	}
	updated, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	updated.SystemInstruction = "after"
	updated.LLMProvider = "together"
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	in <- protocol.InboundAudio{Audio: []byte("x")}
	close(in)
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	p := runner.snapshot()[0].Profile
	if p.SystemInstruction != "before" || p.LLMProvider != "groq" {
		t.Fatalf("profile = %+v, want the snapshot taken at open", p)
	}
}

func TestProfileResolvesClonedVoice(t *testing.T) {
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "a1", Name: "Asha", Language: "hi", TTSProvider: "google_tts", VoiceID: "v1"})

	cases := []struct {
		name      string
		resolver  stubResolver
		wantVoice string
		wantKey   string
	}{
		{"ready", stubResolver{ref: "https://files.example/v1.wav", key: "replicate_xtts"}, "https://files.example/v1.wav", "replicate_xtts"},
		{"unresolved", stubResolver{err: errors.New("voice is not ready")}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &recordingRunner{}
			conv := NewConversation(Deps{Agents: store, Voices: tc.resolver, Runner: runner}, "a1")
			in := make(chan protocol.InboundAudio, 1)
			in <- protocol.InboundAudio{Audio: []byte("x")}
			close(in)
			if err := conv.Run(context.Background(), in, make(chan any, 8)); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			p := runner.snapshot()[0].Profile
			if p.Voice != tc.wantVoice || p.VoiceProvider != tc.wantKey || p.TTSProvider != "google_tts" {
				t.Fatalf("profile = %+v", p)
			}
		})
	}
}

func TestConcurrentSessionsStayIsolated(t *testing.T) {
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "a1", Name: "Asha", Language: "hi"})
	mgr := NewManager(time.Minute, nil)
	runner := &recordingRunner{}

	const sessions = 8
	const turns = 5
	convs := make([]*Conversation, sessions)
	outs := make([]chan any, sessions)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < sessions; i++ {
		convs[i] = NewConversation(Deps{Agents: store, Runner: runner, Manager: mgr}, "a1")
		outs[i] = make(chan any, 1+2*turns)
		in := make(chan protocol.InboundAudio, turns)
		for j := 0; j < turns; j++ {
			in <- protocol.InboundAudio{Audio: []byte(fmt.Sprintf("u%d", j))}
		}
		close(in)
		conv, out := convs[i], outs[i]
		g.Go(func() error { return conv.Run(ctx, in, out) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	for i, conv := range convs {
		events := drain(outs[i])
		if len(events) != 1+2*turns {
			t.Fatalf("session %d got %d events", i, len(events))
		}
		turn := 0
		for _, ev := range events {
			tr, ok := ev.(protocol.Transcription)
			if !ok {
				continue
			}
			want := fmt.Sprintf("%s#%d:u%d", conv.ID(), turn+1, turn)
			if tr.Text != want {
				t.Fatalf("session %d transcript = %q, want %q", i, tr.Text, want)
			}
			turn++
		}
	}
	if got := mgr.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", got)
	}
	if got := len(mgr.List()); got != sessions {
		t.Fatalf("List() = %d snapshots, want %d", got, sessions)
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	store := agents.NewInMemoryStore()
	seedAgent(t, store, agents.Agent{ID: "a1", Name: "Asha", Language: "hi"})
	conv := NewConversation(Deps{Agents: store, Runner: &recordingRunner{}}, "a1")

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan any, 1)
	done := make(chan error, 1)
	go func() { done <- conv.Run(ctx, make(chan protocol.InboundAudio), out) }()
	<-out
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
}
