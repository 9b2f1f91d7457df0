package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/order"
)

const DefaultInactivityTimeout = 30 * time.Minute

var ErrMissingCustomer = errors.New("customer id is required")

const (
	restartNotice     = "No problem, let's start over."
	noUsualNotice     = "I don't have a usual order for you yet."
	retryReply        = "Sorry, we couldn't place your order just now. Reply yes to try again."
	unavailableReply  = "Sorry, we're having trouble right now. Please try again in a moment."
	placedReplyFormat = "Your order %s is in: %s. We'll let you know when it's ready."
)

// Placer creates the order once a conversation is confirmed.
type Placer interface {
	Place(ctx context.Context, req assignment.PlaceRequest) (*order.Order, error)
}

// Preferences looks up the saved usual order of a customer. It returns nil
// when there is none.
type Preferences interface {
	GetPreference(ctx context.Context, customerID string) (*order.Requirements, error)
}

// Reply is the answer to one customer message.
type Reply struct {
	Text  string       `json:"reply"`
	State State        `json:"state"`
	Order *order.Order `json:"order,omitempty"`
}

type Config struct {
	InactivityTimeout time.Duration
}

// Controller advances each customer's dialogue one message at a time and
// places the order when the customer confirms it.
type Controller struct {
	store     StateStore
	extractor Extractor
	placer    Placer
	prefs     Preferences
	timeout   time.Duration
	locks     *keyedMutex
	logger    apt.Logger
	now       func() time.Time
}

func NewController(store StateStore, extractor Extractor, placer Placer, prefs Preferences, cfg Config, logger apt.Logger) *Controller {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if extractor == nil {
		extractor = NewKeywordExtractor(DefaultVocabulary())
	}
	timeout := cfg.InactivityTimeout
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	return &Controller{
		store:     store,
		extractor: extractor,
		placer:    placer,
		prefs:     prefs,
		timeout:   timeout,
		locks:     newKeyedMutex(),
		logger:    logger,
		now:       time.Now,
	}
}

// turn collects what happened while applying one message.
type turn struct {
	notices  []string
	reprompt bool
}

func (t *turn) notice(msg string) {
	t.notices = append(t.notices, msg)
}

// HandleMessage runs one step of the customer's dialogue and returns the
// text to send back. The only error that reaches the caller besides storage
// failures is a fatal assignment error; the customer still gets a reply.
func (c *Controller) HandleMessage(ctx context.Context, customerID, message string) (Reply, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Reply{}, ErrMissingCustomer
	}

	unlock := c.locks.Lock(customerID)
	defer unlock()

	now := c.now()

	cs, err := c.store.Load(ctx, customerID)
	if err != nil {
		c.logger.Error("cannot load conversation", "customer_id", customerID, "error", err)
		return Reply{Text: unavailableReply}, fmt.Errorf("load conversation: %w", err)
	}

	if cs != nil && cs.Expired(now, c.timeout) {
		c.logger.Info("conversation expired, starting over",
			"customer_id", customerID,
			"state", cs.State,
			"idle", now.Sub(cs.LastInteraction).String(),
		)
		cs = nil
	}
	if cs == nil || cs.State == StateComplete || !cs.State.Valid() {
		cs = newConversationState(customerID, now)
	}

	ext, err := c.extractor.Extract(ctx, message, cs.Partial)
	if err != nil {
		c.logger.Error("cannot extract message intent", "customer_id", customerID, "error", err)
		ext = Extraction{}
	}

	cs.MessageCount++
	cs.LastInteraction = now

	t := c.apply(ctx, cs, ext, message)

	if cs.State == StateComplete {
		return c.complete(ctx, cs, t)
	}

	if err := c.store.Save(ctx, cs); err != nil {
		c.logger.Error("cannot save conversation", "customer_id", customerID, "error", err)
		return Reply{Text: unavailableReply, State: cs.State}, fmt.Errorf("save conversation: %w", err)
	}

	return Reply{Text: c.compose(t, prompt(cs)), State: cs.State}, nil
}

// apply folds one parsed message into the dialogue.
func (c *Controller) apply(ctx context.Context, cs *ConversationState, ext Extraction, message string) *turn {
	t := &turn{}

	began := cs.State == StateStart
	if began {
		c.fire(cs, EventBegin)
	}
	entered := cs.State

	if ext.Restart {
		cs.Partial = Partial{}
		c.fire(cs, EventRestart)
		t.notice(restartNotice)
		entered = cs.State
	}

	if ext.ForSomeoneElse {
		cs.Partial.IsFriendOrder = true
		c.fire(cs, EventForSomeoneElse)
	}

	name := ext.FriendName
	if name == "" && entered == StateAwaitingFriendName && !ext.HasFields() &&
		ext.Answer == AnswerNone && !ext.Restart && !ext.Usual {
		name = NameFromText(message)
	}
	if name != "" && cs.State == StateAwaitingFriendName {
		cs.Partial.FriendName = name
		cs.Partial.IsFriendOrder = true
		c.fire(cs, EventFriendNamed)
	}

	changed := false
	if ext.Usual {
		changed = c.applyUsual(ctx, cs, t) || changed
	}
	changed = merge(&cs.Partial, ext) || changed

	if entered == StateAwaitingConfirmation && cs.State == StateAwaitingConfirmation {
		switch {
		case ext.Answer == AnswerYes && !changed && cs.Partial.Complete():
			c.fire(cs, EventConfirmed)
			return t
		case ext.Answer == AnswerNo && !ext.HasFields():
			cs.Partial = Partial{}
			c.fire(cs, EventRejected)
			t.notice(restartNotice)
		}
	}

	c.settle(cs)

	understood := changed || ext.HasFields() || name != "" || ext.Restart || ext.ForSomeoneElse || ext.Usual
	if !began && cs.State == entered && !understood {
		t.reprompt = true
	}
	return t
}

// settle walks past awaiting states whose field is already known, and back
// to the first missing field when confirmation was reached too early.
func (c *Controller) settle(cs *ConversationState) {
	for i := 0; i < len(States); i++ {
		var e Event
		switch cs.State {
		case StateAwaitingDrink:
			if cs.Partial.Drink == "" {
				return
			}
			e = EventDrinkGiven
		case StateAwaitingMilk:
			if cs.Partial.Milk == "" {
				return
			}
			e = EventMilkGiven
		case StateAwaitingSize:
			if cs.Partial.Size == "" {
				return
			}
			e = EventSizeGiven
		case StateAwaitingConfirmation:
			if cs.Partial.Complete() {
				return
			}
			e = EventIncomplete
		default:
			return
		}
		if !c.fire(cs, e) {
			return
		}
	}
}

func (c *Controller) fire(cs *ConversationState, e Event) bool {
	next, ok := Next(cs.State, e)
	if !ok {
		c.logger.Debug("ignored conversation event", "customer_id", cs.CustomerID, "state", cs.State, "event", e)
		return false
	}
	cs.State = next
	return true
}

func (c *Controller) applyUsual(ctx context.Context, cs *ConversationState, t *turn) bool {
	if c.prefs == nil {
		t.notice(noUsualNotice)
		return false
	}

	usual, err := c.prefs.GetPreference(ctx, cs.CustomerID)
	if err != nil {
		c.logger.Error("cannot load customer preference", "customer_id", cs.CustomerID, "error", err)
	}
	if err != nil || usual == nil {
		t.notice(noUsualNotice)
		return false
	}

	return merge(&cs.Partial, Extraction{Drink: usual.Drink, Milk: usual.Milk, Size: usual.Size})
}

// complete places the confirmed order. The conversation is only dropped
// once the order exists, so a failed attempt can be retried with "yes".
func (c *Controller) complete(ctx context.Context, cs *ConversationState, t *turn) (Reply, error) {
	req := assignment.PlaceRequest{
		CustomerID:    cs.CustomerID,
		Requirements:  cs.Partial.Requirements(),
		IsFriendOrder: cs.Partial.IsFriendOrder,
		FriendName:    cs.Partial.FriendName,
	}

	o, err := c.placer.Place(ctx, req)
	if err != nil {
		c.fire(cs, EventPlaceFailed)
		if saveErr := c.store.Save(ctx, cs); saveErr != nil {
			c.logger.Error("cannot save conversation", "customer_id", cs.CustomerID, "error", saveErr)
		}

		reply := Reply{Text: retryReply, State: cs.State}
		if assignment.IsFatal(err) {
			return reply, err
		}
		c.logger.Error("cannot place order", "customer_id", cs.CustomerID, "error", err)
		return reply, nil
	}

	if err := c.store.Delete(ctx, cs.CustomerID); err != nil {
		c.logger.Error("cannot clear conversation", "customer_id", cs.CustomerID, "error", err)
		// A COMPLETE record is reset on the next load, so a stale
		// confirmation can never place the order twice.
		if saveErr := c.store.Save(ctx, cs); saveErr != nil {
			c.logger.Error("cannot mark conversation complete", "customer_id", cs.CustomerID, "error", saveErr)
		}
	}

	c.logger.Info("conversation completed",
		"customer_id", cs.CustomerID,
		"order", o.Number,
		"messages", cs.MessageCount,
		"friend_order", o.IsFriendOrder,
	)

	text := fmt.Sprintf(placedReplyFormat, o.Number, summary(cs.Partial))
	return Reply{Text: c.compose(t, text), State: StateComplete, Order: o}, nil
}

func (c *Controller) compose(t *turn, text string) string {
	parts := append([]string{}, t.notices...)
	if t.reprompt {
		parts = append(parts, "Sorry, I didn't catch that.")
	}
	parts = append(parts, text)
	return strings.Join(parts, " ")
}

// merge copies the fields named in ext into p and reports whether anything
// changed.
func merge(p *Partial, ext Extraction) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&p.Drink, ext.Drink)
	set(&p.Milk, ext.Milk)
	set(&p.Size, ext.Size)
	return changed
}

func prompt(cs *ConversationState) string {
	p := cs.Partial
	switch cs.State {
	case StateAwaitingDrink:
		return "What would you like to drink?"
	case StateAwaitingMilk:
		return fmt.Sprintf("What milk would you like in your %s?", p.Drink)
	case StateAwaitingSize:
		return fmt.Sprintf("What size %s would you like: small, medium or large?", p.Drink)
	case StateAwaitingConfirmation:
		return fmt.Sprintf("That's %s. Shall I place the order?", summary(p))
	case StateAwaitingFriendName:
		return "Who is the order for?"
	default:
		return "What would you like to drink?"
	}
}

func summary(p Partial) string {
	milk := p.Milk + " milk"
	if p.Milk == "none" {
		milk = "no milk"
	}
	text := fmt.Sprintf("a %s %s with %s", p.Size, p.Drink, milk)
	if p.IsFriendOrder && p.FriendName != "" {
		text += " for " + p.FriendName
	}
	return text
}
