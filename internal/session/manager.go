package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ent0n29/vaani/internal/observability"
	"github.com/ent0n29/vaani/internal/voice"
)

type State string

const (
	StateConnecting State = "connecting"
	StateReady      State = "ready"
	StateActive     State = "active"
	StateClosed     State = "closed"
)

var ErrNotFound = errors.New("session not found")

// Snapshot is the externally visible view of one conversation.
type Snapshot struct {
	ID           string        `json:"session_id"`
	AgentID      string        `json:"agent_id"`
	State        State         `json:"state"`
	Turns        int           `json:"turns"`
	LastOutcome  voice.Outcome `json:"last_outcome,omitempty"`
	FailedStage  string        `json:"failed_stage,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	LastActivity time.Time     `json:"last_activity_at"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
}

// Manager tracks live and recently closed conversations. Closed snapshots
// are purged by the janitor once they are older than the retention period.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Snapshot
	retention time.Duration
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewManager(retention time.Duration, metrics *observability.Metrics) *Manager {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &Manager{
		sessions:  make(map[string]*Snapshot),
		retention: retention,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) open(id, agentID string) {
	now := m.now()
	m.mu.Lock()
	m.sessions[id] = &Snapshot{
		ID:           id,
		AgentID:      agentID,
		State:        StateConnecting,
		StartedAt:    now,
		LastActivity: now,
	}
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
		m.metrics.SessionEvents.WithLabelValues("opened").Inc()
	}
}

func (m *Manager) setState(id string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.State == StateClosed {
		return
	}
	s.State = state
	s.LastActivity = m.now()
}

func (m *Manager) recordTurn(id string, res voice.TurnResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Turns = res.Turn
	s.LastOutcome = res.Outcome
	s.FailedStage = res.FailedStage
	s.LastActivity = m.now()
}

func (m *Manager) close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.State == StateClosed {
		m.mu.Unlock()
		return
	}
	now := m.now()
	s.State = StateClosed
	s.LastActivity = now
	s.ClosedAt = &now
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
		m.metrics.SessionEvents.WithLabelValues("closed").Inc()
	}
}

func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return *s, nil
}

// List returns snapshots ordered by start time, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.State != StateClosed {
			count++
		}
	}
	return count
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.purgeClosed()
			}
		}
	}()
}

func (m *Manager) purgeClosed() int {
	cutoff := m.now().Add(-m.retention)
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, s := range m.sessions {
		if s.ClosedAt != nil && s.ClosedAt.Before(cutoff) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged
}
