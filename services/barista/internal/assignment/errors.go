package assignment

import (
	"errors"
	"fmt"
)

var (
	// ErrAssignmentConflict means the order changed between read and write;
	// the next sweep re-evaluates it.
	ErrAssignmentConflict = errors.New("order assignment changed concurrently")
	ErrIncompleteOrder    = errors.New("order requirements are incomplete")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("order status transition not allowed")
)

// FatalAssignmentError is raised only when not even the fallback station can
// take an order. It signals a configuration fault that needs paging.
type FatalAssignmentError struct {
	OrderNumber string
	Err         error
}

func (e *FatalAssignmentError) Error() string {
	return fmt.Sprintf("fatal assignment error for order %s: %v", e.OrderNumber, e.Err)
}

func (e *FatalAssignmentError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalAssignmentError.
func IsFatal(err error) bool {
	var fatal *FatalAssignmentError
	return errors.As(err, &fatal)
}
