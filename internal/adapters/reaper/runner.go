// Package reaper periodically drops idle browser clients from the registry.
package reaper

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/target/kb-assistant-web/internal/observability/statsd"
)

// Sweeper removes idle entries and reports how many went.
type Sweeper interface {
	Sweep() int
	Len() int
}

// Runner sweeps on a fixed interval.
type Runner struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Sweeper  Sweeper
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		sweeper:  opts.Sweeper,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run sweeps until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting client reaper", "interval", r.interval)

	// Jitter keeps replicas that start together from sweeping in lockstep.
	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "client reaper stopped")
			return nil
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Runner) sweepOnce(ctx context.Context) {
	start := time.Now()
	removed := r.sweeper.Sweep()
	if r.metrics != nil {
		r.metrics.Count("registry.swept", int64(removed), nil)
		r.metrics.Timing("registry.sweep_duration", time.Since(start), nil)
	}
	if removed > 0 {
		r.logger.DebugContext(ctx, "idle clients removed", "removed", removed, "remaining", r.sweeper.Len())
	}
}

// waitWithJitter delays up to 10% of the interval.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
