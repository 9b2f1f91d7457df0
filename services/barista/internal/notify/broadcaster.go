package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
)

const (
	defaultRecentCapacity = 100
	subscriberBuffer      = 32
)

// Broadcaster fans notifications out to live feed subscribers and keeps the
// most recent ones so new subscribers start with context.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan event.SupportNotificationEvent
	recent      []event.SupportNotificationEvent
	capacity    int

	stream events.StreamConsumer
	logger apt.Logger
}

// NewBroadcaster creates a broadcaster. stream is optional and only used by
// Warm to replay retained notifications.
func NewBroadcaster(stream events.StreamConsumer, capacity int, logger apt.Logger) *Broadcaster {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &Broadcaster{
		subscribers: make(map[string]chan event.SupportNotificationEvent),
		capacity:    capacity,
		stream:      stream,
		logger:      logger,
	}
}

func (b *Broadcaster) Emit(ctx context.Context, n assignment.Notification) error {
	b.Broadcast(ToEvent(n))
	return nil
}

// Broadcast records evt and delivers it to every subscriber. Slow
// subscribers miss events instead of blocking the sender.
func (b *Broadcaster) Broadcast(evt event.SupportNotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rememberLocked(evt)

	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.logger.Info("subscriber channel full, dropping notification", "subscriber_id", id)
		}
	}
}

func (b *Broadcaster) Subscribe(id string) <-chan event.SupportNotificationEvent {
	ch := make(chan event.SupportNotificationEvent, subscriberBuffer)

	b.mu.Lock()
	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.logger.Debug("notification subscriber added", "subscriber_id", id)
	return ch
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Recent returns the retained notifications, oldest first.
func (b *Broadcaster) Recent() []event.SupportNotificationEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]event.SupportNotificationEvent, len(b.recent))
	copy(result, b.recent)
	return result
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Warm replays retained notifications from the stream. A missing or failing
// stream leaves the buffer empty.
func (b *Broadcaster) Warm(ctx context.Context) error {
	if b.stream == nil {
		return nil
	}

	messages, err := b.stream.Fetch(ctx, b.capacity)
	if err != nil {
		b.logger.Info("cannot replay support notifications", "error", err)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, msg := range messages {
		var evt event.SupportNotificationEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			b.logger.Debug("skipping malformed notification", "sequence", msg.Sequence, "error", err)
			continue
		}
		b.rememberLocked(evt)
	}

	b.logger.Info("notification feed warmed", "count", len(b.recent))
	return nil
}

func (b *Broadcaster) rememberLocked(evt event.SupportNotificationEvent) {
	b.recent = append(b.recent, evt)
	if over := len(b.recent) - b.capacity; over > 0 {
		b.recent = append(b.recent[:0:0], b.recent[over:]...)
	}
}
