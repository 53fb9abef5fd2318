package session

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
)

const defaultSweepInterval = time.Minute

// SweeperParams configure the idle session sweeper.
type SweeperParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.SessionMetrics
	IdleTTL  time.Duration
	Interval time.Duration
	Now      func() time.Time
}

// Sweeper evicts idle sessions on a fixed cadence.
type Sweeper struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.SessionMetrics
	idleTTL  time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.IdleTTL <= 0 {
		return nil, fmt.Errorf("idle ttl must be positive")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		logg:     params.Logger,
		registry: params.Registry,
		metrics:  params.Metrics,
		idleTTL:  params.IdleTTL,
		interval: interval,
		now:      now,
	}, nil
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single eviction pass and returns the number of sessions removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	start := time.Now()
	removed := s.registry.Sweep(s.now(), s.idleTTL)
	s.metrics.ObserveSweep(time.Since(start))
	if removed > 0 {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"expired":   removed,
			"remaining": s.registry.Len(),
		})
		s.logg.Info(ctx, "idle sessions expired")
	}
	return removed
}
