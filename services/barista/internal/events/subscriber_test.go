package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

// MockSubscriber implements events.Subscriber for testing
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// MockPublisher implements events.Publisher for testing
type MockPublisher struct {
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
	PublishedEvents []struct {
		Topic string
		Data  []byte
	}
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.PublishedEvents = append(m.PublishedEvents, struct {
		Topic string
		Data  []byte
	}{topic, data})
	return nil
}

// MockMessageHandler implements MessageHandler for testing
type MockMessageHandler struct {
	HandleMessageFunc func(ctx context.Context, customerID, message string) (conversation.Reply, error)
	Calls             []string
}

func (m *MockMessageHandler) HandleMessage(ctx context.Context, customerID, message string) (conversation.Reply, error) {
	m.Calls = append(m.Calls, customerID+": "+message)
	if m.HandleMessageFunc != nil {
		return m.HandleMessageFunc(ctx, customerID, message)
	}
	return conversation.Reply{Text: "What would you like to drink?", State: conversation.StateAwaitingDrink}, nil
}

func inbound(t *testing.T, customerID, message string) []byte {
	t.Helper()
	data, err := json.Marshal(event.InboundMessageEvent{CustomerID: customerID, Message: message})
	if err != nil {
		t.Fatalf("cannot marshal inbound message: %v", err)
	}
	return data
}

func TestMessageSubscriberStart(t *testing.T) {
	tests := []struct {
		name          string
		subscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
		wantErr       bool
	}{
		{
			name: "success",
			subscribeFunc: func(ctx context.Context, topic string, handler events.HandlerFunc) error {
				if topic != event.InboundMessagesTopic {
					t.Errorf("Subscribe topic = %v, want %v", topic, event.InboundMessagesTopic)
				}
				return nil
			},
			wantErr: false,
		},
		{
			name: "subscribeError",
			subscribeFunc: func(ctx context.Context, topic string, handler events.HandlerFunc) error {
				return errors.New("subscription failed")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subscriber := &MockSubscriber{SubscribeFunc: tt.subscribeFunc}
			s := NewMessageSubscriber(subscriber, &MockMessageHandler{}, NewMockPublisher(), apt.NewNoopLogger())

			err := s.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageSubscriberHandleEvent(t *testing.T) {
	placed := order.NewOrder()
	placed.Number = "ORD-00001"

	tests := []struct {
		name        string
		msg         func(t *testing.T) []byte
		handle      func(ctx context.Context, customerID, message string) (conversation.Reply, error)
		wantCalls   int
		wantPublish bool
		wantOrderID string
	}{
		{
			name:        "replyPublished",
			msg:         func(t *testing.T) []byte { return inbound(t, "+15550001", "latte") },
			wantCalls:   1,
			wantPublish: true,
		},
		{
			name: "placedOrderReferenced",
			msg:  func(t *testing.T) []byte { return inbound(t, "+15550001", "yes") },
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{Text: "Your order ORD-00001 is in", State: conversation.StateComplete, Order: placed}, nil
			},
			wantCalls:   1,
			wantPublish: true,
			wantOrderID: placed.ID.String(),
		},
		{
			name: "fatalErrorStillReplies",
			msg:  func(t *testing.T) []byte { return inbound(t, "+15550001", "yes") },
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{Text: "Sorry", State: conversation.StateAwaitingConfirmation},
					&assignment.FatalAssignmentError{OrderNumber: "ORD-00001", Err: station.ErrNoFallback}
			},
			wantCalls:   1,
			wantPublish: true,
		},
		{
			name: "noReplyNothingPublished",
			msg:  func(t *testing.T) []byte { return inbound(t, "+15550001", "latte") },
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{}, conversation.ErrMissingCustomer
			},
			wantCalls:   1,
			wantPublish: false,
		},
		{
			name:        "malformedPayloadDropped",
			msg:         func(t *testing.T) []byte { return []byte("{not json") },
			wantCalls:   0,
			wantPublish: false,
		},
		{
			name:        "missingCustomerDropped",
			msg:         func(t *testing.T) []byte { return inbound(t, "  ", "latte") },
			wantCalls:   0,
			wantPublish: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &MockMessageHandler{HandleMessageFunc: tt.handle}
			publisher := NewMockPublisher()
			s := NewMessageSubscriber(&MockSubscriber{}, handler, publisher, apt.NewNoopLogger())

			if err := s.handleEvent(context.Background(), tt.msg(t)); err != nil {
				t.Fatalf("handleEvent() error = %v", err)
			}

			if len(handler.Calls) != tt.wantCalls {
				t.Errorf("HandleMessage calls = %d, want %d", len(handler.Calls), tt.wantCalls)
			}
			if got := len(publisher.PublishedEvents) > 0; got != tt.wantPublish {
				t.Fatalf("published = %v, want %v", got, tt.wantPublish)
			}
			if !tt.wantPublish {
				return
			}

			published := publisher.PublishedEvents[0]
			if published.Topic != event.OutboundMessagesTopic {
				t.Errorf("topic = %q, want %q", published.Topic, event.OutboundMessagesTopic)
			}
			var out event.OutboundMessageEvent
			if err := json.Unmarshal(published.Data, &out); err != nil {
				t.Fatalf("cannot decode reply: %v", err)
			}
			if out.CustomerID != "+15550001" || out.Reply == "" {
				t.Errorf("unexpected reply %+v", out)
			}
			if out.OrderID != tt.wantOrderID {
				t.Errorf("OrderID = %q, want %q", out.OrderID, tt.wantOrderID)
			}
		})
	}
}

func TestMessageSubscriberPublishError(t *testing.T) {
	publisher := &MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, data []byte) error {
			return errors.New("nats: connection closed")
		},
	}
	s := NewMessageSubscriber(&MockSubscriber{}, &MockMessageHandler{}, publisher, apt.NewNoopLogger())

	if err := s.handleEvent(context.Background(), inbound(t, "+15550001", "latte")); err == nil {
		t.Error("handleEvent() error = nil, want publish error")
	}
}
