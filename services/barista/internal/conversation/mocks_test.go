package conversation

import (
	"context"
	"sync"

	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/order"
)

// MockPlacer records every placement request.
type MockPlacer struct {
	mu        sync.Mutex
	Requests  []assignment.PlaceRequest
	PlaceFunc func(ctx context.Context, req assignment.PlaceRequest) (*order.Order, error)
}

func (m *MockPlacer) Place(ctx context.Context, req assignment.PlaceRequest) (*order.Order, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	count := len(m.Requests)
	m.mu.Unlock()

	if m.PlaceFunc != nil {
		return m.PlaceFunc(ctx, req)
	}

	o := order.NewOrder()
	o.Number = order.FormatNumber(count)
	o.CustomerID = req.CustomerID
	o.Requirements = req.Requirements
	o.IsFriendOrder = req.IsFriendOrder
	o.FriendName = req.FriendName
	o.StationID = 1
	return o, nil
}

func (m *MockPlacer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

type MockPreferences struct {
	Saved map[string]order.Requirements
	Err   error
}

func (m *MockPreferences) GetPreference(ctx context.Context, customerID string) (*order.Requirements, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	req, ok := m.Saved[customerID]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// MockStateStore wraps a MemoryStore and lets tests inject failures.
type MockStateStore struct {
	*MemoryStore
	LoadFunc   func(ctx context.Context, customerID string) (*ConversationState, error)
	SaveFunc   func(ctx context.Context, state *ConversationState) error
	DeleteFunc func(ctx context.Context, customerID string) error
}

func (m *MockStateStore) Load(ctx context.Context, customerID string) (*ConversationState, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, customerID)
	}
	return m.MemoryStore.Load(ctx, customerID)
}

func (m *MockStateStore) Save(ctx context.Context, state *ConversationState) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, state)
	}
	return m.MemoryStore.Save(ctx, state)
}

func (m *MockStateStore) Delete(ctx context.Context, customerID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, customerID)
	}
	return m.MemoryStore.Delete(ctx, customerID)
}
