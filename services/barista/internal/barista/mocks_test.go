package barista

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
	"github.com/appetiteclub/barista/services/barista/internal/monitor"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

type MockConversations struct {
	HandleMessageFunc func(ctx context.Context, customerID, message string) (conversation.Reply, error)
}

func (m *MockConversations) HandleMessage(ctx context.Context, customerID, message string) (conversation.Reply, error) {
	if m.HandleMessageFunc != nil {
		return m.HandleMessageFunc(ctx, customerID, message)
	}
	return conversation.Reply{Text: "What would you like to drink?", State: conversation.StateAwaitingDrink}, nil
}

type MockStations struct {
	stations      map[int]station.Station
	SetStatusFunc func(ctx context.Context, id int, status string) error
}

func NewMockStations(stations ...station.Station) *MockStations {
	m := &MockStations{stations: make(map[int]station.Station)}
	for _, st := range stations {
		m.stations[st.ID] = st
	}
	return m
}

func (m *MockStations) List(ctx context.Context) ([]station.Station, error) {
	result := make([]station.Station, 0, len(m.stations))
	for _, st := range m.stations {
		result = append(result, st)
	}
	return result, nil
}

func (m *MockStations) Get(ctx context.Context, id int) (station.Station, error) {
	st, ok := m.stations[id]
	if !ok {
		return station.Station{}, station.ErrNotFound
	}
	return st, nil
}

func (m *MockStations) SetStatus(ctx context.Context, id int, status string) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	st, ok := m.stations[id]
	if !ok {
		return station.ErrNotFound
	}
	st.Status = status
	m.stations[id] = st
	return nil
}

type MockOrders struct {
	orders           map[uuid.UUID]*order.Order
	UpdateStatusFunc func(ctx context.Context, id uuid.UUID, status string) (*order.Order, error)
}

func NewMockOrders(orders ...*order.Order) *MockOrders {
	m := &MockOrders{orders: make(map[uuid.UUID]*order.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MockOrders) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*order.Order, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = status
	return o, nil
}

type MockSweeper struct {
	SweepFunc     func(ctx context.Context, threshold time.Duration) (monitor.Report, error)
	LastThreshold time.Duration
}

func (m *MockSweeper) Sweep(ctx context.Context, threshold time.Duration) (monitor.Report, error) {
	m.LastThreshold = threshold
	if m.SweepFunc != nil {
		return m.SweepFunc(ctx, threshold)
	}
	return monitor.Report{Threshold: threshold}, nil
}

// MockFeed hands out a single prepared channel.
type MockFeed struct {
	mu           sync.Mutex
	ch           chan event.SupportNotificationEvent
	recent       []event.SupportNotificationEvent
	unsubscribed bool
}

func NewMockFeed(recent ...event.SupportNotificationEvent) *MockFeed {
	return &MockFeed{
		ch:     make(chan event.SupportNotificationEvent, 8),
		recent: recent,
	}
}

func (m *MockFeed) Subscribe(id string) <-chan event.SupportNotificationEvent {
	return m.ch
}

func (m *MockFeed) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = true
}

func (m *MockFeed) Recent() []event.SupportNotificationEvent {
	return m.recent
}

func (m *MockFeed) Unsubscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed
}
