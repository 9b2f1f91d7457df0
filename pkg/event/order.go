package event

import "time"

const (
	OrdersTopic            = "barista.orders"
	EventOrderPlaced       = "barista.order.placed"
	EventOrderReassigned   = "barista.order.reassigned"
	EventOrderStatusChange = "barista.order.status_changed"
)

type OrderEventMetadata struct {
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  string    `json:"customer_id"`
	StationID   int       `json:"station_id"`
}

// OrderPlacedEvent is published once per confirmed conversation.
type OrderPlacedEvent struct {
	OrderEventMetadata
	Drink         string `json:"drink"`
	Milk          string `json:"milk"`
	Size          string `json:"size"`
	IsFriendOrder bool   `json:"is_friend_order"`
	FriendName    string `json:"friend_name,omitempty"`
	Fallback      bool   `json:"fallback"`
}

type OrderReassignedEvent struct {
	OrderEventMetadata
	PreviousStationID int    `json:"previous_station_id"`
	Reason            string `json:"reason"`
}

type OrderStatusChangedEvent struct {
	OrderEventMetadata
	NewStatus      string `json:"new_status"`
	PreviousStatus string `json:"previous_status"`
}
