package assignment

import (
	"context"

	"github.com/google/uuid"

	"github.com/appetiteclub/barista/services/barista/internal/order"
)

// Transition is a conditional order status change. When Release is set the
// load of the station the order is on at write time is decremented in the
// same unit.
type Transition struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
	Release    bool
}

// Store groups the multi-record writes the engine needs to be atomic.
// Implementations return ErrAssignmentConflict when the order no longer
// matches the expected station or status.
type Store interface {
	// MoveOrder points a pending order at toStationID, decrements
	// fromStationID (clamped at zero, ignored when missing) and increments
	// toStationID as one unit.
	MoveOrder(ctx context.Context, orderID uuid.UUID, fromStationID, toStationID int) error
	// TransitionOrder returns the station the order was on when the
	// status changed.
	TransitionOrder(ctx context.Context, t Transition) (int, error)
}

// PreferenceRecorder receives the requirements of orders customers placed
// for themselves. Friend orders never reach it.
type PreferenceRecorder interface {
	SavePreference(ctx context.Context, customerID string, req order.Requirements) error
}
