package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg"
	"github.com/appetiteclub/barista/pkg/enums/orderstatus"
	"github.com/appetiteclub/barista/pkg/enums/severity"
	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

// Reassignment reasons used by the stuck order sweep.
const (
	ReasonStationMissing     = "station does not exist"
	ReasonStationInactive    = "station inactive"
	ReasonStationIncapable   = "station lacks required capability"
	noSuitableStationMessage = "no suitable station found"
)

var allowedTransitions = map[string][]string{
	orderstatus.Statuses.Pending.Code(): {
		orderstatus.Statuses.InProgress.Code(),
		orderstatus.Statuses.Completed.Code(),
		orderstatus.Statuses.Cancelled.Code(),
	},
	orderstatus.Statuses.InProgress.Code(): {
		orderstatus.Statuses.Completed.Code(),
		orderstatus.Statuses.Cancelled.Code(),
	},
}

type Deps struct {
	Registry    *station.Registry
	Orders      order.Repo
	Store       Store
	Notifier    Notifier
	Publisher   events.Publisher
	Preferences PreferenceRecorder
}

// Engine routes orders to compatible, least-loaded stations and escalates to
// the fallback station when none fits.
type Engine struct {
	registry  *station.Registry
	orders    order.Repo
	store     Store
	notifier  Notifier
	publisher events.Publisher
	prefs     PreferenceRecorder
	logger    apt.Logger
	now       func() time.Time
}

func NewEngine(deps Deps, logger apt.Logger) *Engine {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Engine{
		registry:  deps.Registry,
		orders:    deps.Orders,
		store:     deps.Store,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		prefs:     deps.Preferences,
		logger:    logger,
		now:       time.Now,
	}
}

// Assign picks a station for o and takes one unit of its load.
func (e *Engine) Assign(ctx context.Context, o *order.Order) (int, error) {
	st, _, err := e.assign(ctx, o)
	if err != nil {
		return 0, err
	}
	return st.ID, nil
}

func (e *Engine) assign(ctx context.Context, o *order.Order) (station.Station, bool, error) {
	st, fallback, err := e.selectStation(ctx, o)
	if err != nil {
		return station.Station{}, false, err
	}

	if err := e.registry.IncrementLoad(ctx, st.ID); err != nil {
		return station.Station{}, false, err
	}

	if fallback {
		e.emit(ctx, Notification{
			OrderNumber: o.Number,
			Message: fmt.Sprintf("order %s: %s for %s",
				o.Number, noSuitableStationMessage, describe(o.Requirements)),
			Severity:  severity.Severities.Warning,
			Reason:    noSuitableStationMessage,
			StationID: st.ID,
		})
	}

	e.logger.Debug("order assigned", "order", o.Number, "station_id", st.ID, "fallback", fallback)
	return st, fallback, nil
}

// Reassign moves a pending order off an invalid station. An order whose
// current station is still valid is left untouched.
func (e *Engine) Reassign(ctx context.Context, o *order.Order, reason string) (int, error) {
	if !o.IsPending() {
		return o.StationID, nil
	}

	previousID := o.StationID
	previous, err := e.registry.Get(ctx, previousID)
	previousMissing := errors.Is(err, station.ErrNotFound)
	if err != nil && !previousMissing {
		return previousID, err
	}

	if !previousMissing && validAssignment(previous, o) {
		return previousID, nil
	}

	target, fallback, err := e.selectStation(ctx, o)
	if err != nil {
		return previousID, err
	}
	if target.ID == previousID {
		return previousID, nil
	}

	if err := e.store.MoveOrder(ctx, o.ID, previousID, target.ID); err != nil {
		return previousID, fmt.Errorf("move order %s: %w", o.Number, err)
	}
	o.StationID = target.ID
	o.BeforeUpdate()

	sev := severity.Severities.Info
	switch {
	case previousMissing:
		sev = severity.Severities.Error
	case fallback:
		sev = severity.Severities.Warning
	}

	e.emit(ctx, Notification{
		OrderNumber: o.Number,
		Message: fmt.Sprintf("order %s moved from station %d to %s (%d): %s",
			o.Number, previousID, target.Name, target.ID, reason),
		Severity:  sev,
		Reason:    reason,
		StationID: target.ID,
	})

	e.publish(ctx, event.OrderReassignedEvent{
		OrderEventMetadata: e.metadata(event.EventOrderReassigned, o),
		PreviousStationID:  previousID,
		Reason:             reason,
	})

	e.logger.Info("order reassigned", "order", o.Number, "from", previousID, "to", target.ID, "reason", reason)
	return target.ID, nil
}

type PlaceRequest struct {
	CustomerID    string
	Requirements  order.Requirements
	IsFriendOrder bool
	FriendName    string
}

// Place creates a pending order and assigns it. It is the only entry point
// that creates orders.
func (e *Engine) Place(ctx context.Context, req PlaceRequest) (*order.Order, error) {
	if !req.Requirements.Complete() {
		return nil, ErrIncompleteOrder
	}

	number, err := e.orders.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate order number: %w", err)
	}

	o := order.NewOrder()
	o.Number = number
	o.CustomerID = req.CustomerID
	o.Requirements = req.Requirements
	o.IsFriendOrder = req.IsFriendOrder
	o.FriendName = req.FriendName

	st, fallback, err := e.assign(ctx, o)
	if err != nil {
		return nil, err
	}
	stationID := st.ID
	o.StationID = stationID

	if err := e.orders.CreateOrder(ctx, o); err != nil {
		if relErr := e.registry.DecrementLoad(ctx, stationID); relErr != nil {
			e.logger.Error("cannot release load after failed order creation", "station_id", stationID, "error", relErr)
		}
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	if !o.IsFriendOrder && e.prefs != nil {
		if err := e.prefs.SavePreference(ctx, o.CustomerID, o.Requirements); err != nil {
			e.logger.Error("cannot save customer preference", "customer_id", o.CustomerID, "error", err)
		}
	}

	e.publish(ctx, event.OrderPlacedEvent{
		OrderEventMetadata: e.metadata(event.EventOrderPlaced, o),
		Drink:              o.Requirements.Drink,
		Milk:               o.Requirements.Milk,
		Size:               o.Requirements.Size,
		IsFriendOrder:      o.IsFriendOrder,
		FriendName:         o.FriendName,
		Fallback:           fallback,
	})

	e.logger.Info("order placed", "order", o.Number, "customer_id", o.CustomerID, "station_id", stationID)
	return o, nil
}

// UpdateStatus applies an external status change. Entering a terminal status
// releases the station load exactly once.
func (e *Engine) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*order.Order, error) {
	target := orderstatus.ByName(status)
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	o, err := e.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status == status {
		return o, nil
	}

	if !transitionAllowed(o.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
	}

	t := Transition{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   status,
		Release:    target.IsTerminal(),
	}
	stationID, err := e.store.TransitionOrder(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("cannot update order %s status: %w", o.Number, err)
	}
	o.StationID = stationID

	previous := o.Status
	o.Status = status
	o.BeforeUpdate()

	e.publish(ctx, event.OrderStatusChangedEvent{
		OrderEventMetadata: e.metadata(event.EventOrderStatusChange, o),
		NewStatus:          status,
		PreviousStatus:     previous,
	})
	return o, nil
}

// selectStation returns the least-loaded compatible regular station, or the
// fallback station with fallback set.
func (e *Engine) selectStation(ctx context.Context, o *order.Order) (station.Station, bool, error) {
	candidates, err := e.registry.ListActive(ctx, true)
	if err != nil {
		return station.Station{}, false, err
	}

	for _, st := range candidates {
		if e.registry.IsCompatible(o.Requirements, st) {
			return st, false, nil
		}
	}

	fb, err := e.registry.Fallback(ctx)
	if err != nil {
		if errors.Is(err, station.ErrNoFallback) {
			e.logger.Error("fallback station unavailable", "order", o.Number, "error", err)
			return station.Station{}, false, &FatalAssignmentError{OrderNumber: o.Number, Err: err}
		}
		return station.Station{}, false, err
	}
	return fb, true, nil
}

func validAssignment(st station.Station, o *order.Order) bool {
	if !st.IsActive() {
		return false
	}
	return st.Fallback || station.IsCompatible(o.Requirements, st)
}

func transitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (e *Engine) emit(ctx context.Context, n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = e.now()
	}
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Emit(ctx, n); err != nil {
		e.logger.Error("cannot emit support notification", "order", n.OrderNumber, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, payload interface{}) {
	if err := pkg.PublishJSON(ctx, e.publisher, event.OrdersTopic, payload); err != nil {
		e.logger.Errorf("Failed to publish order event: %v", err)
	}
}

func (e *Engine) metadata(eventType string, o *order.Order) event.OrderEventMetadata {
	return event.OrderEventMetadata{
		EventType:   eventType,
		OccurredAt:  e.now().UTC(),
		OrderID:     o.ID.String(),
		OrderNumber: o.Number,
		CustomerID:  o.CustomerID,
		StationID:   o.StationID,
	}
}

func describe(req order.Requirements) string {
	return fmt.Sprintf("%s %s with %s milk", req.Size, req.Drink, req.Milk)
}
