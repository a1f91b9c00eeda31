package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore keeps agents in process memory for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{agents: make(map[string]Agent)}
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) Create(_ context.Context, a Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.ID]; exists {
		return fmt.Errorf("%w: id %s already exists", ErrInvalid, a.ID)
	}
	s.agents[a.ID] = a
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, a Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return ErrNotFound
	}
	s.agents[a.ID] = a
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return ErrNotFound
	}
	delete(s.agents, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Agent, error) {
	s.mu.RLock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

func sortByCreated(list []Agent) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
