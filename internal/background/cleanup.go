package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
)

// Sweepable is an in-memory map that evicts its own expired entries.
type Sweepable interface {
	Name() string
	Sweep(now time.Time) int
}

// CleanupManager periodically sweeps the in-memory limiter, lockout and
// session maps so they stay bounded.
type CleanupManager struct {
	targets  []Sweepable
	logger   *slog.Logger
	interval time.Duration
	clock    clock.Clock
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, interval time.Duration, clk clock.Clock, targets ...Sweepable) *CleanupManager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &CleanupManager{
		targets:  targets,
		logger:   logger,
		interval: interval,
		clock:    clk,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.RunOnce()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps every target and returns the total number of evictions.
func (cm *CleanupManager) RunOnce() int {
	now := cm.clock.Now()
	total := 0
	for _, t := range cm.targets {
		removed := t.Sweep(now)
		if removed > 0 {
			cm.logger.Info("expired entries swept",
				slog.String("target", t.Name()),
				slog.Int("removed", removed))
		}
		total += removed
	}
	return total
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
