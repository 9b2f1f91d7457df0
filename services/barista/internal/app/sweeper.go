package app

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/monitor"
)

type sweepFunc func(ctx context.Context, threshold time.Duration) (monitor.Report, error)

// SweepRunner runs the stuck order sweep on a fixed interval.
type SweepRunner struct {
	sweep     sweepFunc
	interval  time.Duration
	threshold time.Duration
	logger    apt.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweepRunner(m *monitor.Monitor, interval, threshold time.Duration, logger apt.Logger) *SweepRunner {
	return newSweepRunner(m.Sweep, interval, threshold, logger)
}

func newSweepRunner(sweep sweepFunc, interval, threshold time.Duration, logger apt.Logger) *SweepRunner {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SweepRunner{
		sweep:     sweep,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

func (r *SweepRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil
	}

	// The loop outlives the start context.
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(loopCtx, r.done)

	r.logger.Info("sweep runner started", "interval", r.interval.String(), "threshold", r.threshold.String())
	return nil
}

func (r *SweepRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.logger.Info("sweep runner stopped")
	return nil
}

func (r *SweepRunner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *SweepRunner) runOnce(ctx context.Context) {
	report, err := r.sweep(ctx, r.threshold)
	if err != nil {
		if assignment.IsFatal(err) {
			r.logger.Error("sweep aborted: fallback station unavailable", "error", err)
			return
		}
		r.logger.Error("sweep failed", "error", err)
		return
	}

	if report.Repaired > 0 || report.Failed > 0 {
		r.logger.Info("sweep completed",
			"checked", report.Checked,
			"repaired", report.Repaired,
			"failed", report.Failed,
		)
	}
}
