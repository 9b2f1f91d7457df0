package event

import "time"

const (
	InboundMessagesTopic  = "barista.messages.inbound"
	OutboundMessagesTopic = "barista.messages.outbound"
)

// InboundMessageEvent is delivered by the messaging gateway for every customer message.
type InboundMessageEvent struct {
	CustomerID string    `json:"customer_id"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

type OutboundMessageEvent struct {
	CustomerID string    `json:"customer_id"`
	Reply      string    `json:"reply"`
	State      string    `json:"state"`
	OrderID    string    `json:"order_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}
