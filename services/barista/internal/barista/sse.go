package barista

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg/event"
)

const (
	sseEventName      = "support-notification"
	keepaliveInterval = 30 * time.Second
)

// StreamNotifications serves support notifications as Server-Sent Events.
// Recent notifications are replayed first.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	if h.deps.Feed == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Notification feed not configured")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	h.logger.Info("new SSE connection", "subscriber_id", subscriberID)

	notifications := h.deps.Feed.Subscribe(subscriberID)
	defer h.deps.Feed.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	for _, evt := range h.deps.Feed.Recent() {
		h.sendNotification(w, evt)
	}

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case evt, ok := <-notifications:
			if !ok {
				h.logger.Info("notification channel closed", "subscriber_id", subscriberID)
				return
			}
			h.sendNotification(w, evt)
		}
	}
}

func (h *Handler) sendNotification(w http.ResponseWriter, evt event.SupportNotificationEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot encode notification", "order", evt.OrderNumber, "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", sseEventName)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
