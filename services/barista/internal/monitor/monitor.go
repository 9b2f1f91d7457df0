// Package monitor finds pending orders whose station assignment went bad
// while they waited and hands them back to the assignment engine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/pkg/enums/severity"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

const agingMessage = "aging but correctly assigned"

// Reassigner is the part of the assignment engine the sweep drives.
type Reassigner interface {
	Reassign(ctx context.Context, o *order.Order, reason string) (int, error)
}

// Report summarises one sweep.
type Report struct {
	Checked   int           `json:"checked"`
	Healthy   int           `json:"healthy"`
	Repaired  int           `json:"repaired"`
	Failed    int           `json:"failed"`
	Threshold time.Duration `json:"threshold"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

type Options struct {
	// ReportAging emits an info notification for stale orders that are
	// still correctly assigned.
	ReportAging bool
}

type Monitor struct {
	orders   order.Repo
	registry *station.Registry
	engine   Reassigner
	notifier assignment.Notifier
	opts     Options
	logger   apt.Logger
	now      func() time.Time
}

func New(orders order.Repo, registry *station.Registry, engine Reassigner, notifier assignment.Notifier, opts Options, logger apt.Logger) *Monitor {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Monitor{
		orders:   orders,
		registry: registry,
		engine:   engine,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep checks every pending order older than threshold. Orders are
// evaluated one at a time; a recoverable failure is counted and the scan
// continues, a fatal one aborts it.
func (m *Monitor) Sweep(ctx context.Context, threshold time.Duration) (Report, error) {
	started := m.now()
	report := Report{Threshold: threshold, StartedAt: started}

	stale, err := m.orders.QueryPendingOlderThan(ctx, threshold, started)
	if err != nil {
		return report, fmt.Errorf("query stale orders: %w", err)
	}

	for _, o := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		reason, err := m.classify(ctx, o)
		if err != nil {
			report.Failed++
			m.logger.Error("cannot evaluate order", "order", o.Number, "error", err)
			continue
		}

		if reason == "" {
			report.Healthy++
			if m.opts.ReportAging {
				m.reportAging(ctx, o, started)
			}
			continue
		}

		previous := o.StationID
		stationID, err := m.engine.Reassign(ctx, o, reason)
		if err != nil {
			if assignment.IsFatal(err) {
				report.Duration = m.now().Sub(started)
				return report, err
			}
			report.Failed++
			m.logger.Info("reassignment deferred to next sweep", "order", o.Number, "reason", reason, "error", err)
			continue
		}
		if stationID != previous {
			report.Repaired++
		} else {
			report.Healthy++
		}
	}

	report.Duration = m.now().Sub(started)
	m.logger.Debug("sweep finished",
		"checked", report.Checked,
		"repaired", report.Repaired,
		"failed", report.Failed,
	)
	return report, nil
}

// classify returns why the order's assignment is invalid, or "" when it is
// still valid.
func (m *Monitor) classify(ctx context.Context, o *order.Order) (string, error) {
	st, err := m.registry.Get(ctx, o.StationID)
	if errors.Is(err, station.ErrNotFound) {
		return assignment.ReasonStationMissing, nil
	}
	if err != nil {
		return "", err
	}

	if !st.IsActive() {
		return assignment.ReasonStationInactive, nil
	}
	if !st.Fallback && !station.IsCompatible(o.Requirements, st) {
		return assignment.ReasonStationIncapable, nil
	}
	return "", nil
}

func (m *Monitor) reportAging(ctx context.Context, o *order.Order, now time.Time) {
	if m.notifier == nil {
		return
	}

	age := now.Sub(o.CreatedAt).Round(time.Second)
	n := assignment.Notification{
		OrderNumber: o.Number,
		Message:     fmt.Sprintf("order %s pending for %s: %s", o.Number, age, agingMessage),
		Severity:    severity.Severities.Info,
		Reason:      agingMessage,
		StationID:   o.StationID,
		Timestamp:   now,
	}
	if err := m.notifier.Emit(ctx, n); err != nil {
		m.logger.Error("cannot emit aging notification", "order", o.Number, "error", err)
	}
}
