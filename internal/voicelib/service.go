package voicelib

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/vaani/internal/provider"
)

// Invoker is the subset of the fallback invoker the library needs.
type Invoker interface {
	Clone(ctx context.Context, candidates []string, req provider.CloneRequest) (provider.CloneResult, string, error)
	Synthesize(ctx context.Context, candidates []string, req provider.TTSRequest) (provider.TTSResult, string, error)
}

type CloneInput struct {
	UserID   string
	Name     string
	Language string
	Provider string
	Samples  [][]byte
}

type Service struct {
	store   Store
	invoker Invoker
	catalog *provider.Catalog
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(store Store, invoker Invoker, catalog *provider.Catalog) *Service {
	return &Service{
		store:   store,
		invoker: invoker,
		catalog: catalog,
		logger:  log.With().Str("component", "voicelib").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Clone stores a pending record, runs the clone chain and persists the
// outcome. A failed clone is stored as failed and returned with the error.
func (s *Service) Clone(ctx context.Context, in CloneInput) (Voice, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Voice{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	samples := make([][]byte, 0, len(in.Samples))
	for _, sample := range in.Samples {
		if len(sample) > 0 {
			samples = append(samples, sample)
		}
	}
	if len(samples) == 0 {
		return Voice{}, fmt.Errorf("%w: at least one audio sample is required", ErrInvalid)
	}
	if in.Provider != "" {
		if _, err := s.catalog.Descriptor(provider.CapabilityVoiceClone, in.Provider); err != nil {
			return Voice{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "en"
	}

	v := Voice{
		ID:           uuid.NewString(),
		UserID:       strings.TrimSpace(in.UserID),
		Name:         name,
		Language:     language,
		SamplesCount: len(samples),
		Status:       StatusPending,
		CreatedAt:    s.now(),
	}
	if err := s.store.Save(ctx, v); err != nil {
		return Voice{}, err
	}

	chain := s.catalog.Chain(provider.CapabilityVoiceClone, in.Provider)
	res, used, err := s.invoker.Clone(ctx, chain.Keys, provider.CloneRequest{
		Name:     name,
		Samples:  samples,
		Language: language,
	})
	if err != nil {
		v.Status = StatusFailed
		v.Error = err.Error()
		s.logger.Warn().Err(err).Str("voice_id", v.ID).Msg("voice clone failed")
		if saveErr := s.store.Save(context.WithoutCancel(ctx), v); saveErr != nil {
			return v, errors.Join(err, saveErr)
		}
		return v, err
	}

	v.Status = StatusReady
	v.Provider = used
	v.Reference = res.Reference
	// The voice exists upstream now; record it even if the caller has gone.
	if err := s.store.Save(context.WithoutCancel(ctx), v); err != nil {
		return Voice{}, err
	}
	s.logger.Info().Str("voice_id", v.ID).Str("provider", used).Int("samples", v.SamplesCount).Msg("voice cloned")
	return v, nil
}

func (s *Service) Get(ctx context.Context, id string) (Voice, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Voice, error) {
	return s.store.ListByUser(ctx, strings.TrimSpace(userID))
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, strings.TrimSpace(id))
}

// Resolve maps a voice selector to the reference and provider used for
// synthesis. Selectors that are not a ready cloned voice pass through
// unchanged with no provider preference.
func (s *Service) Resolve(ctx context.Context, selector string) (reference, providerKey string, err error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", "", nil
	}
	v, err := s.store.Get(ctx, selector)
	if errors.Is(err, ErrNotFound) {
		return selector, "", nil
	}
	if err != nil {
		return "", "", err
	}
	if v.Status != StatusReady {
		return "", "", fmt.Errorf("%w: %s is %s", ErrNotReady, v.ID, v.Status)
	}
	return v.Reference, v.Provider, nil
}

// Synthesize speaks text with a ready cloned voice, trying its provider first.
func (s *Service) Synthesize(ctx context.Context, id, text, language string) (provider.TTSResult, string, error) {
	v, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return provider.TTSResult{}, "", err
	}
	if v.Status != StatusReady {
		return provider.TTSResult{}, "", fmt.Errorf("%w: %s is %s", ErrNotReady, v.ID, v.Status)
	}
	if strings.TrimSpace(text) == "" {
		return provider.TTSResult{}, "", fmt.Errorf("%w: text is required", ErrInvalid)
	}
	if language == "" {
		language = v.Language
	}
	chain := s.catalog.Chain(provider.CapabilityTTS, v.Provider)
	return s.invoker.Synthesize(ctx, chain.Keys, provider.TTSRequest{
		Text:     text,
		Language: provider.BaseLanguage(language),
		Voice:    v.Reference,
	})
}
