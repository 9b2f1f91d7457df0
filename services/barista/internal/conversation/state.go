// Package conversation turns a customer's free-form messages into a
// confirmed order, one message at a time.
package conversation

import (
	"time"

	"github.com/appetiteclub/barista/services/barista/internal/order"
)

// State is a step of the order taking dialogue.
type State string

const (
	StateStart                State = "START"
	StateAwaitingDrink        State = "AWAITING_DRINK"
	StateAwaitingMilk         State = "AWAITING_MILK"
	StateAwaitingSize         State = "AWAITING_SIZE"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateAwaitingFriendName   State = "AWAITING_FRIEND_NAME"
	StateComplete             State = "COMPLETE"
)

var States = []State{
	StateStart,
	StateAwaitingDrink,
	StateAwaitingMilk,
	StateAwaitingSize,
	StateAwaitingConfirmation,
	StateAwaitingFriendName,
	StateComplete,
}

func (s State) String() string {
	return string(s)
}

func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Partial is the order under construction.
type Partial struct {
	Drink         string `bson:"drink,omitempty" json:"drink,omitempty"`
	Milk          string `bson:"milk,omitempty" json:"milk,omitempty"`
	Size          string `bson:"size,omitempty" json:"size,omitempty"`
	FriendName    string `bson:"friend_name,omitempty" json:"friend_name,omitempty"`
	IsFriendOrder bool   `bson:"is_friend_order" json:"is_friend_order"`
}

func (p Partial) Requirements() order.Requirements {
	return order.Requirements{Drink: p.Drink, Milk: p.Milk, Size: p.Size}
}

func (p Partial) Complete() bool {
	return p.Requirements().Complete()
}

// ConversationState is the live dialogue of one customer. There is at most
// one per customer.
type ConversationState struct {
	CustomerID      string    `bson:"_id" json:"customer_id"`
	State           State     `bson:"state" json:"state"`
	Partial         Partial   `bson:"partial" json:"partial"`
	LastInteraction time.Time `bson:"last_interaction" json:"last_interaction"`
	MessageCount    int       `bson:"message_count" json:"message_count"`
}

func newConversationState(customerID string, now time.Time) *ConversationState {
	return &ConversationState{
		CustomerID:      customerID,
		State:           StateStart,
		LastInteraction: now,
	}
}

// Expired reports whether the customer has been silent for longer than timeout.
func (c *ConversationState) Expired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(c.LastInteraction) > timeout
}
