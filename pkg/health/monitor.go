package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrUnhealthy = errors.New("health: check threshold exceeded")

type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Monitor runs a set of checks on a fixed period and marks the process
// unhealthy after a configured number of consecutive failing cycles. Once
// unhealthy it stays unhealthy: recovery is the supervisor's job, not ours.
type Monitor struct {
	checks    []Check
	interval  time.Duration
	threshold int

	mu        sync.Mutex
	failures  int
	unhealthy bool
}

func NewMonitor(interval time.Duration, threshold int, checks ...Check) *Monitor {
	return &Monitor{
		checks:    checks,
		interval:  interval,
		threshold: threshold,
	}
}

// Start runs check cycles until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// Healthy reports whether the failure threshold has been crossed. It returns
// ErrUnhealthy rather than a bool so it can plug directly into an HTTP
// health handler.
func (m *Monitor) Healthy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unhealthy {
		return ErrUnhealthy
	}
	return nil
}

func (m *Monitor) runCycle(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	for _, check := range m.checks {
		check := check
		g.Go(func() error {
			if err := check.Run(gctx); err != nil {
				log.Warn().Str("check", check.Name).Err(err).Msg("health check failed")
				return err
			}
			return nil
		})
	}

	err := g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unhealthy {
		return
	}

	if err != nil {
		m.failures++
		if m.failures >= m.threshold {
			log.Error().Int("consecutive_failures", m.failures).Msg("marking process unhealthy")
			m.unhealthy = true
		}
		return
	}

	m.failures = 0
}
