package voicelib

import (
	"context"
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	voices map[string]Voice
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{voices: make(map[string]Voice)}
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Voice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voices[id]
	if !ok {
		return Voice{}, ErrNotFound
	}
	return v, nil
}

func (s *InMemoryStore) Save(_ context.Context, v Voice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices[v.ID] = v
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[id]; !ok {
		return ErrNotFound
	}
	delete(s.voices, id)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]Voice, error) {
	s.mu.RLock()
	out := make([]Voice, 0)
	for _, v := range s.voices {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
