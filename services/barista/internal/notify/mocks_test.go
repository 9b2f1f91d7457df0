package notify

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/barista/services/barista/internal/assignment"
)

// MockPublisher implements events.Publisher for testing
type MockPublisher struct {
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Topic: topic, Data: data})
	return nil
}

// MockStreamConsumer is a test mock for events.StreamConsumer
type MockStreamConsumer struct {
	messages            []events.StreamMessage
	FetchFunc           func(ctx context.Context, maxMessages int) ([]events.StreamMessage, error)
	SubscribeStreamFunc func(ctx context.Context, handler events.HandlerFunc) error
}

func NewMockStreamConsumer() *MockStreamConsumer {
	return &MockStreamConsumer{
		messages: make([]events.StreamMessage, 0),
	}
}

func (m *MockStreamConsumer) Fetch(ctx context.Context, maxMessages int) ([]events.StreamMessage, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, maxMessages)
	}
	if len(m.messages) > maxMessages {
		return m.messages[len(m.messages)-maxMessages:], nil
	}
	return m.messages, nil
}

func (m *MockStreamConsumer) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	if m.SubscribeStreamFunc != nil {
		return m.SubscribeStreamFunc(ctx, handler)
	}
	return nil
}

func (m *MockStreamConsumer) AddMessage(data []byte) {
	m.messages = append(m.messages, events.StreamMessage{Data: data, Sequence: uint64(len(m.messages) + 1)})
}

// MockNotifier counts emitted notifications.
type MockNotifier struct {
	mu       sync.Mutex
	Received []assignment.Notification
	Err      error
}

func (m *MockNotifier) Emit(ctx context.Context, n assignment.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, n)
	return m.Err
}

// LogEntry is one call recorded by MockLogger.
type LogEntry struct {
	Level string
	Args  []any
}

// MockLogger records Info and Error calls.
type MockLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (m *MockLogger) record(level string, v []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Args: append([]any(nil), v...)})
}

func (m *MockLogger) Debug(v ...any)                 {}
func (m *MockLogger) Debugf(format string, a ...any) {}
func (m *MockLogger) Info(v ...any)                  { m.record("info", v) }
func (m *MockLogger) Infof(format string, a ...any)  {}
func (m *MockLogger) Error(v ...any)                 { m.record("error", v) }
func (m *MockLogger) Errorf(format string, a ...any) {}
func (m *MockLogger) SetLogLevel(level apt.LogLevel) {}
func (m *MockLogger) With(args ...any) apt.Logger    { return m }
