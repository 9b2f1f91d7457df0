// Package notify holds the support notification sinks: the service log, the
// message bus and the live operator feed.
package notify

import (
	"context"
	"errors"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/pkg/enums/severity"
	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
)

// Multi forwards every notification to all sinks. A failing sink does not
// stop the others.
type Multi []assignment.Notifier

func (m Multi) Emit(ctx context.Context, n assignment.Notification) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the service log. Errors go to the
// error level; warnings stay at info but carry level=warning so they can be
// filtered apart from plain info notices.
type LogNotifier struct {
	logger apt.Logger
}

func NewLogNotifier(logger apt.Logger) *LogNotifier {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Emit(ctx context.Context, n assignment.Notification) error {
	args := []interface{}{
		n.Message,
		"order", n.OrderNumber,
		"severity", n.Severity.Code(),
		"reason", n.Reason,
		"station_id", n.StationID,
	}
	switch n.Severity {
	case severity.Severities.Error:
		l.logger.Error(args...)
	case severity.Severities.Warning:
		l.logger.Info(append(args, "level", "warning")...)
	default:
		l.logger.Info(args...)
	}
	return nil
}

// ToEvent converts a notification into its wire payload.
func ToEvent(n assignment.Notification) event.SupportNotificationEvent {
	return event.SupportNotificationEvent{
		EventType:   event.EventSupportNotification,
		OccurredAt:  n.Timestamp.UTC(),
		OrderNumber: n.OrderNumber,
		Message:     n.Message,
		Severity:    n.Severity.Code(),
		Reason:      n.Reason,
		StationID:   n.StationID,
	}
}
