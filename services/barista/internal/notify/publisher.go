package notify

import (
	"context"

	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/barista/pkg"
	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
)

// PublisherNotifier publishes notifications on the support topic. Backed by
// the JetStream support stream they survive restarts and can be replayed.
type PublisherNotifier struct {
	publisher events.Publisher
	topic     string
}

func NewPublisherNotifier(publisher events.Publisher) *PublisherNotifier {
	return &PublisherNotifier{
		publisher: publisher,
		topic:     event.SupportNotificationsTopic,
	}
}

func (p *PublisherNotifier) Emit(ctx context.Context, n assignment.Notification) error {
	return pkg.PublishJSON(ctx, p.publisher, p.topic, ToEvent(n))
}
