package telephony

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ent0n29/vaani/internal/provider"
)

// Mock tracks calls in memory for local development.
type Mock struct {
	mu    sync.Mutex
	calls map[string]string
}

func NewMock() *Mock {
	return &Mock{calls: make(map[string]string)}
}

func (m *Mock) PlaceCall(ctx context.Context, req provider.CallRequest) (provider.CallResult, error) {
	if req.To == "" {
		return provider.CallResult{}, provider.Rejected("mock_telephony", "missing destination number")
	}
	id := "mock-" + uuid.NewString()
	m.mu.Lock()
	m.calls[id] = "in-progress"
	m.mu.Unlock()
	return provider.CallResult{CallID: id, Status: "queued"}, nil
}

func (m *Mock) CallStatus(ctx context.Context, callID string) (provider.CallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.calls[callID]
	if !ok {
		return provider.CallResult{}, provider.Rejected("mock_telephony", "unknown call")
	}
	return provider.CallResult{CallID: callID, Status: status}, nil
}

func (m *Mock) HangUp(ctx context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.calls[callID]; !ok {
		return provider.Rejected("mock_telephony", "unknown call")
	}
	m.calls[callID] = "completed"
	return nil
}

func (m *Mock) RecordCall(ctx context.Context, callID string) (provider.Recording, error) {
	if _, err := m.CallStatus(ctx, callID); err != nil {
		return provider.Recording{}, err
	}
	return provider.Recording{ID: "rec-" + callID, Status: "in-progress"}, nil
}
