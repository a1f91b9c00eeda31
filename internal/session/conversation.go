// Package session runs one websocket conversation against an agent and
// keeps process-wide snapshots of open sessions.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/vaani/internal/agents"
	"github.com/ent0n29/vaani/internal/protocol"
	"github.com/ent0n29/vaani/internal/voice"
)

var ErrAgentNotFound = errors.New("agent not found")

const (
	MsgAgentNotFound    = "Agent not found"
	MsgAgentUnavailable = "Agent unavailable"
)

type AgentSource interface {
	Get(ctx context.Context, id string) (agents.Agent, error)
}

// VoiceResolver maps an agent's voice selector to a synthesis reference and
// the provider that owns it.
type VoiceResolver interface {
	Resolve(ctx context.Context, selector string) (reference, providerKey string, err error)
}

type TurnRunner interface {
	RunTurn(ctx context.Context, in voice.TurnInput, out voice.Emitter) voice.TurnResult
}

type Deps struct {
	Agents  AgentSource
	Voices  VoiceResolver
	Runner  TurnRunner
	Manager *Manager
	Logger  *zerolog.Logger
}

type Conversation struct {
	id      string
	agentID string
	deps    Deps
	logger  zerolog.Logger
}

func NewConversation(deps Deps, agentID string) *Conversation {
	id := uuid.NewString()
	base := log.Logger
	if deps.Logger != nil {
		base = *deps.Logger
	}
	return &Conversation{
		id:      id,
		agentID: agentID,
		deps:    deps,
		logger:  base.With().Str("component", "session").Str("session_id", id).Str("agent_id", agentID).Logger(),
	}
}

func (c *Conversation) ID() string { return c.id }

// Run loads the agent once, announces readiness and then runs one turn per
// inbound utterance until inbound closes or ctx ends. outbound is written
// only from this goroutine.
func (c *Conversation) Run(ctx context.Context, inbound <-chan protocol.InboundAudio, outbound chan<- any) error {
	if c.deps.Manager != nil {
		c.deps.Manager.open(c.id, c.agentID)
		defer c.deps.Manager.close(c.id)
	}

	agent, err := c.deps.Agents.Get(ctx, c.agentID)
	switch {
	case errors.Is(err, agents.ErrNotFound), err == nil && agent.Status != agents.StatusActive:
		c.logger.Info().Msg("session rejected: agent not found or inactive")
		_ = c.send(ctx, outbound, protocol.NewError(MsgAgentNotFound))
		return ErrAgentNotFound
	case err != nil:
		c.logger.Error().Err(err).Msg("load agent")
		_ = c.send(ctx, outbound, protocol.NewError(MsgAgentUnavailable))
		return fmt.Errorf("load agent %s: %w", c.agentID, err)
	}

	profile := c.profile(ctx, agent)
	c.setState(StateReady)
	if err := c.send(ctx, outbound, protocol.NewReady(c.id, agent.ID)); err != nil {
		return nil
	}

	emitter := voice.EmitterFunc(func(ctx context.Context, event any) error {
		return c.send(ctx, outbound, event)
	})
	turn := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			if turn == 0 {
				c.setState(StateActive)
			}
			turn++
			res := c.deps.Runner.RunTurn(ctx, voice.TurnInput{
				SessionID: c.id,
				Turn:      turn,
				Audio:     msg.Audio,
				Format:    msg.Format,
				Profile:   profile,
			}, emitter)
			if c.deps.Manager != nil {
				c.deps.Manager.recordTurn(c.id, res)
			}
			if res.Outcome == voice.OutcomeCanceled {
				return nil
			}
		}
	}
}

// profile snapshots the agent for the lifetime of the session. A cloned
// voice that cannot be resolved falls back to the provider default voice.
func (c *Conversation) profile(ctx context.Context, a agents.Agent) voice.Profile {
	p := voice.Profile{
		AgentID:           a.ID,
		SystemInstruction: a.SystemInstruction,
		Language:          a.Language,
		LLMProvider:       a.LLMProvider,
		STTProvider:       a.STTProvider,
		TTSProvider:       a.TTSProvider,
		Voice:             a.VoiceID,
		Temperature:       a.Temperature,
		MaxTokens:         a.MaxTokens,
	}
	if a.VoiceID == "" || c.deps.Voices == nil {
		return p
	}
	ref, key, err := c.deps.Voices.Resolve(ctx, a.VoiceID)
	if err != nil {
		c.logger.Warn().Err(err).Str("voice_id", a.VoiceID).Msg("voice unresolved, using default voice")
		p.Voice = ""
		return p
	}
	p.Voice = ref
	p.VoiceProvider = key
	return p
}

func (c *Conversation) setState(s State) {
	if c.deps.Manager != nil {
		c.deps.Manager.setState(c.id, s)
	}
}

func (c *Conversation) send(ctx context.Context, outbound chan<- any, event any) error {
	select {
	case outbound <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
