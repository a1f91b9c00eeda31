// Package telephony places outbound agent calls through the provider chain
// and routes follow-up operations to the provider that owns each call.
package telephony

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/vaani/internal/policy"
	"github.com/ent0n29/vaani/internal/provider"
)

var (
	ErrCallNotFound         = errors.New("call not found")
	ErrInvalid              = errors.New("invalid call request")
	ErrRecordingUnsupported = errors.New("provider cannot record calls")
)

var dialable = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type Invoker interface {
	PlaceCall(ctx context.Context, candidates []string, req provider.CallRequest) (provider.CallResult, string, error)
}

type Adapters interface {
	Telephony(key string) (provider.TelephonyAdapter, bool)
}

type PlaceInput struct {
	To       string `json:"to"`
	From     string `json:"from,omitempty"`
	AgentID  string `json:"agent_id"`
	Greeting string `json:"greeting,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type Call struct {
	ID       string    `json:"call_id"`
	Provider string    `json:"provider"`
	Status   string    `json:"status"`
	AgentID  string    `json:"agent_id,omitempty"`
	PlacedAt time.Time `json:"placed_at"`
}

type Service struct {
	invoker  Invoker
	adapters Adapters
	catalog  *provider.Catalog
	timeout  time.Duration
	calls    cmap.ConcurrentMap[string, Call]
	logger   zerolog.Logger
}

func NewService(invoker Invoker, adapters Adapters, catalog *provider.Catalog, attemptTimeout time.Duration) *Service {
	if attemptTimeout <= 0 {
		attemptTimeout = 15 * time.Second
	}
	return &Service{
		invoker:  invoker,
		adapters: adapters,
		catalog:  catalog,
		timeout:  attemptTimeout,
		calls:    cmap.New[Call](),
		logger:   log.With().Str("component", "telephony").Logger(),
	}
}

func normalizeNumber(raw string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
}

func (s *Service) Place(ctx context.Context, in PlaceInput) (Call, error) {
	to := normalizeNumber(in.To)
	if !dialable.MatchString(to) {
		return Call{}, fmt.Errorf("%w: destination number is not dialable", ErrInvalid)
	}
	if in.Provider != "" {
		if _, err := s.catalog.Descriptor(provider.CapabilityTelephony, in.Provider); err != nil {
			return Call{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	chain := s.catalog.Chain(provider.CapabilityTelephony, in.Provider)
	res, used, err := s.invoker.PlaceCall(ctx, chain.Keys, provider.CallRequest{
		To:       to,
		From:     normalizeNumber(in.From),
		AgentID:  in.AgentID,
		Greeting: in.Greeting,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("to", policy.MaskPhone(to)).Msg("place call failed")
		return Call{}, err
	}

	call := Call{
		ID:       res.CallID,
		Provider: used,
		Status:   res.Status,
		AgentID:  in.AgentID,
		PlacedAt: time.Now().UTC(),
	}
	s.calls.Set(call.ID, call)
	s.logger.Info().
		Str("call_id", call.ID).
		Str("provider", used).
		Str("to", policy.MaskPhone(to)).
		Str("agent_id", in.AgentID).
		Msg("call placed")
	return call, nil
}

func (s *Service) lookup(callID string) (Call, provider.TelephonyAdapter, error) {
	call, ok := s.calls.Get(strings.TrimSpace(callID))
	if !ok {
		return Call{}, nil, ErrCallNotFound
	}
	adapter, ok := s.adapters.Telephony(call.Provider)
	if !ok {
		return Call{}, nil, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, call.Provider)
	}
	return call, adapter, nil
}

// Status refreshes the call state from its provider.
func (s *Service) Status(ctx context.Context, callID string) (Call, error) {
	call, adapter, err := s.lookup(callID)
	if err != nil {
		return Call{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := adapter.CallStatus(ctx, call.ID)
	if err != nil {
		return Call{}, provider.Normalize(call.Provider, err)
	}
	call.Status = res.Status
	s.calls.Set(call.ID, call)
	return call, nil
}

func (s *Service) HangUp(ctx context.Context, callID string) error {
	call, adapter, err := s.lookup(callID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := adapter.HangUp(ctx, call.ID); err != nil {
		return provider.Normalize(call.Provider, err)
	}
	call.Status = "completed"
	s.calls.Set(call.ID, call)
	s.logger.Info().Str("call_id", call.ID).Str("provider", call.Provider).Msg("call hung up")
	return nil
}

func (s *Service) Record(ctx context.Context, callID string) (provider.Recording, error) {
	call, adapter, err := s.lookup(callID)
	if err != nil {
		return provider.Recording{}, err
	}
	recorder, ok := adapter.(provider.CallRecorder)
	if !ok {
		return provider.Recording{}, fmt.Errorf("%w: %s", ErrRecordingUnsupported, call.Provider)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := recorder.RecordCall(ctx, call.ID)
	if err != nil {
		return provider.Recording{}, provider.Normalize(call.Provider, err)
	}
	return rec, nil
}

func (s *Service) Providers() []provider.Descriptor {
	return s.catalog.Providers(provider.CapabilityTelephony)
}

func (s *Service) ActiveCalls() int { return s.calls.Count() }
