package conversation

// Event is what a message means for the dialogue once it has been parsed
// and merged into the partial order.
type Event string

const (
	EventBegin          Event = "begin"
	EventDrinkGiven     Event = "drink_given"
	EventMilkGiven      Event = "milk_given"
	EventSizeGiven      Event = "size_given"
	EventIncomplete     Event = "incomplete"
	EventConfirmed      Event = "confirmed"
	EventRejected       Event = "rejected"
	EventRestart        Event = "restart"
	EventForSomeoneElse Event = "for_someone_else"
	EventFriendNamed    Event = "friend_named"
	EventPlaceFailed    Event = "place_failed"
)

var transitions = map[State]map[Event]State{
	StateStart: {
		EventBegin: StateAwaitingDrink,
	},
	StateAwaitingDrink: {
		EventDrinkGiven:     StateAwaitingMilk,
		EventRestart:        StateAwaitingDrink,
		EventForSomeoneElse: StateAwaitingFriendName,
	},
	StateAwaitingMilk: {
		EventMilkGiven:      StateAwaitingSize,
		EventRestart:        StateAwaitingDrink,
		EventForSomeoneElse: StateAwaitingFriendName,
	},
	StateAwaitingSize: {
		EventSizeGiven:      StateAwaitingConfirmation,
		EventRestart:        StateAwaitingDrink,
		EventForSomeoneElse: StateAwaitingFriendName,
	},
	StateAwaitingConfirmation: {
		EventConfirmed:      StateComplete,
		EventRejected:       StateAwaitingDrink,
		EventRestart:        StateAwaitingDrink,
		EventIncomplete:     StateAwaitingDrink,
		EventForSomeoneElse: StateAwaitingFriendName,
	},
	StateAwaitingFriendName: {
		EventFriendNamed:    StateAwaitingConfirmation,
		EventRestart:        StateAwaitingDrink,
		EventForSomeoneElse: StateAwaitingFriendName,
	},
	StateComplete: {
		EventPlaceFailed: StateAwaitingConfirmation,
	},
}

// Next returns the state reached from s on e. ok is false when the table
// has no such transition.
func Next(s State, e Event) (next State, ok bool) {
	next, ok = transitions[s][e]
	return next, ok
}
