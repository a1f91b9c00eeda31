package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/vaani/internal/provider"
)

// Defaults applied when a create request leaves a field empty.
const (
	DefaultLanguage    = "hi"
	DefaultLLM         = "groq"
	DefaultTTS         = "replicate_xtts"
	DefaultSTT         = "google_stt"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500

	culturalDirective = "Always be respectful, helpful, and culturally sensitive."
)

type CreateInput struct {
	Name              string   `json:"name"`
	JobRole           string   `json:"job_role"`
	SystemInstruction string   `json:"system_instruction"`
	Language          string   `json:"language"`
	LLMProvider       string   `json:"llm_provider"`
	TTSProvider       string   `json:"tts_provider"`
	STTProvider       string   `json:"stt_provider"`
	VoiceID           string   `json:"voice_id"`
	Temperature       *float64 `json:"temperature"`
	MaxTokens         *int     `json:"max_tokens"`
}

// UpdateInput carries the mutable fields; nil leaves a field unchanged.
type UpdateInput struct {
	Name              *string  `json:"name"`
	JobRole           *string  `json:"job_role"`
	SystemInstruction *string  `json:"system_instruction"`
	Language          *string  `json:"language"`
	LLMProvider       *string  `json:"llm_provider"`
	TTSProvider       *string  `json:"tts_provider"`
	STTProvider       *string  `json:"stt_provider"`
	VoiceID           *string  `json:"voice_id"`
	Temperature       *float64 `json:"temperature"`
	MaxTokens         *int     `json:"max_tokens"`
	Status            *Status  `json:"status"`
}

// Service validates agent mutations against the catalog and keeps
// updated_at strictly increasing.
type Service struct {
	store   Store
	catalog *provider.Catalog
	now     func() time.Time

	mu sync.Mutex
}

func NewService(store Store, catalog *provider.Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

func (s *Service) Store() Store { return s.store }

func (s *Service) Get(ctx context.Context, id string) (Agent, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Agent, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Agent, error) {
	now := s.now()
	a := Agent{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(in.Name),
		JobRole:           strings.TrimSpace(in.JobRole),
		SystemInstruction: strings.TrimSpace(in.SystemInstruction),
		Language:          orDefault(in.Language, DefaultLanguage),
		LLMProvider:       orDefault(in.LLMProvider, DefaultLLM),
		TTSProvider:       orDefault(in.TTSProvider, DefaultTTS),
		STTProvider:       orDefault(in.STTProvider, DefaultSTT),
		VoiceID:           strings.TrimSpace(in.VoiceID),
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
		Status:            StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Temperature != nil {
		a.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil {
		a.MaxTokens = *in.MaxTokens
	}
	if err := s.validate(a); err != nil {
		return Agent{}, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Agent{}, err
	}
	setString(&a.Name, in.Name)
	setString(&a.JobRole, in.JobRole)
	setString(&a.SystemInstruction, in.SystemInstruction)
	setString(&a.Language, in.Language)
	setString(&a.LLMProvider, in.LLMProvider)
	setString(&a.TTSProvider, in.TTSProvider)
	setString(&a.STTProvider, in.STTProvider)
	setString(&a.VoiceID, in.VoiceID)
	if in.Temperature != nil {
		a.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil {
		a.MaxTokens = *in.MaxTokens
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if err := s.validate(a); err != nil {
		return Agent{}, err
	}
	a.UpdatedAt = nextUpdatedAt(a.UpdatedAt, s.now())
	if err := s.store.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

// Clone copies an agent under a new id and name with fresh timestamps.
func (s *Service) Clone(ctx context.Context, id, name string) (Agent, error) {
	src, err := s.store.Get(ctx, id)
	if err != nil {
		return Agent{}, err
	}
	now := s.now()
	dup := src
	dup.ID = uuid.NewString()
	dup.Name = strings.TrimSpace(name)
	if dup.Name == "" {
		dup.Name = src.Name + " (copy)"
	}
	dup.CreatedAt = now
	dup.UpdatedAt = now
	if err := s.store.Create(ctx, dup); err != nil {
		return Agent{}, err
	}
	return dup, nil
}

// EnhancePrompt appends the language directive and the cultural directive
// to an instruction.
func (s *Service) EnhancePrompt(instruction, language string) string {
	parts := []string{strings.TrimSpace(instruction)}
	if l, ok := s.catalog.Language(language); ok && l.Directive != "" {
		parts = append(parts, l.Directive)
	}
	parts = append(parts, culturalDirective)
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func (s *Service) validate(a Agent) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !s.catalog.SupportsLanguage(a.Language) {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalid, a.Language)
	}
	checks := []struct {
		capability provider.Capability
		key        string
	}{
		{provider.CapabilityLLM, a.LLMProvider},
		{provider.CapabilityTTS, a.TTSProvider},
		{provider.CapabilitySTT, a.STTProvider},
	}
	for _, c := range checks {
		if _, err := s.catalog.Descriptor(c.capability, c.key); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalid)
	}
	if a.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be positive", ErrInvalid)
	}
	if a.Status != StatusActive && a.Status != StatusInactive {
		return fmt.Errorf("%w: status must be active or inactive", ErrInvalid)
	}
	return nil
}

// nextUpdatedAt never returns a value at or before prev, even when the clock
// has not moved between mutations. Results are at microsecond precision so
// they survive a timestamptz round trip unchanged.
func nextUpdatedAt(prev, now time.Time) time.Time {
	prev = prev.Truncate(time.Microsecond)
	now = now.Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
