package agents

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	ErrNotFound = errors.New("agent not found")
	ErrInvalid  = errors.New("invalid agent")
)

// Agent is a conversational persona plus its provider preferences.
type Agent struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	JobRole           string    `json:"job_role"`
	SystemInstruction string    `json:"system_instruction"`
	Language          string    `json:"language"`
	LLMProvider       string    `json:"llm_provider"`
	TTSProvider       string    `json:"tts_provider"`
	STTProvider       string    `json:"stt_provider"`
	VoiceID           string    `json:"voice_id,omitempty"`
	Temperature       float64   `json:"temperature"`
	MaxTokens         int       `json:"max_tokens"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Filter narrows List; empty fields match everything.
type Filter struct {
	Language string
	Status   Status
}

func (f Filter) Match(a Agent) bool {
	if f.Language != "" && a.Language != f.Language {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// Store persists agents. Get returns ErrNotFound for unknown ids; Update and
// Delete do the same. List orders by creation time, oldest first.
type Store interface {
	Get(ctx context.Context, id string) (Agent, error)
	Create(ctx context.Context, a Agent) error
	Update(ctx context.Context, a Agent) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]Agent, error)
	Close() error
}
