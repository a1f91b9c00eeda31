// Package voicelib stores cloned voices and runs clone jobs through the
// provider fallback chain.
package voicelib

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

var (
	ErrNotFound = errors.New("voice not found")
	ErrInvalid  = errors.New("invalid voice request")
	ErrNotReady = errors.New("voice is not ready")
)

type Voice struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider,omitempty"`
	Reference    string    `json:"reference,omitempty"`
	Language     string    `json:"language"`
	SamplesCount int       `json:"samples_count"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store interface {
	Get(ctx context.Context, id string) (Voice, error)
	Save(ctx context.Context, v Voice) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]Voice, error)
}
