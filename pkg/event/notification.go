package event

import "time"

const (
	SupportNotificationsTopic = "barista.support.notifications"
	EventSupportNotification  = "barista.support.notification"
)

// SupportNotificationEvent carries an assignment anomaly to operators.
type SupportNotificationEvent struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	OrderNumber string    `json:"order_number"`
	Message     string    `json:"message"`
	Severity    string    `json:"severity"`
	Reason      string    `json:"reason,omitempty"`
	StationID   int       `json:"station_id,omitempty"`
}
