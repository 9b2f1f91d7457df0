package assignment

import (
	"context"
	"time"

	"github.com/appetiteclub/barista/pkg/enums/severity"
)

// Notification is an assignment anomaly surfaced for operator attention.
type Notification struct {
	OrderNumber string
	Message     string
	Severity    severity.Severity
	Reason      string
	StationID   int
	Timestamp   time.Time
}

// Notifier is the support notification sink. Delivery is up to the
// implementation.
type Notifier interface {
	Emit(ctx context.Context, n Notification) error
}
