package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/barista/pkg"
	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
)

// MessageHandler is the conversation entry point.
type MessageHandler interface {
	HandleMessage(ctx context.Context, customerID, message string) (conversation.Reply, error)
}

// MessageSubscriber feeds customer messages from the messaging gateway into
// the conversation and publishes the replies.
type MessageSubscriber struct {
	subscriber events.Subscriber
	handler    MessageHandler
	publisher  events.Publisher
	logger     apt.Logger
	now        func() time.Time
}

func NewMessageSubscriber(
	subscriber events.Subscriber,
	handler MessageHandler,
	publisher events.Publisher,
	logger apt.Logger,
) *MessageSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &MessageSubscriber{
		subscriber: subscriber,
		handler:    handler,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *MessageSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting MessageSubscriber", "topic", event.InboundMessagesTopic)

	if err := s.subscriber.Subscribe(ctx, event.InboundMessagesTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.InboundMessagesTopic, err)
	}

	s.logger.Info("MessageSubscriber started successfully")
	return nil
}

func (s *MessageSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.InboundMessageEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal inbound message: %v", err)
		return nil
	}

	if strings.TrimSpace(evt.CustomerID) == "" {
		s.logger.Info("Dropping inbound message without customer id")
		return nil
	}

	reply, err := s.handler.HandleMessage(ctx, evt.CustomerID, evt.Message)
	if err != nil {
		if assignment.IsFatal(err) {
			s.logger.Error("fatal assignment error while handling message", "customer_id", evt.CustomerID, "error", err)
		} else {
			s.logger.Error("cannot handle inbound message", "customer_id", evt.CustomerID, "error", err)
		}
	}
	if reply.Text == "" {
		return nil
	}

	out := event.OutboundMessageEvent{
		CustomerID: evt.CustomerID,
		Reply:      reply.Text,
		State:      reply.State.String(),
		SentAt:     s.now().UTC(),
	}
	if reply.Order != nil {
		out.OrderID = reply.Order.ID.String()
	}

	if err := pkg.PublishJSON(ctx, s.publisher, event.OutboundMessagesTopic, out); err != nil {
		s.logger.Errorf("Failed to publish reply: %v", err)
		return err
	}
	return nil
}
