package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	pkgsync "github.com/stacklok/department-sync/internal/sync"
)

// ErrAlreadyRunning is returned by Start while a previous Start is still running
var ErrAlreadyRunning = errors.New("coordinator is already running")

// jitterFraction is the maximum relative offset applied to each interval (±10%)
const jitterFraction = 0.1

// Coordinator runs department synchronization on a fixed interval
type Coordinator interface {
	// Start runs an initial sync, then one per interval, until ctx is cancelled
	// or Stop is called. It blocks.
	Start(ctx context.Context) error

	// Stop cancels the loop and waits for Start to return
	Stop() error
}

type defaultCoordinator struct {
	manager  pkgsync.Manager
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// New creates a coordinator calling manager every interval
func New(manager pkgsync.Manager, interval time.Duration) Coordinator {
	return &defaultCoordinator{
		manager:  manager,
		interval: interval,
	}
}

// nextInterval applies a random jitter so replicas do not sync in lockstep
func nextInterval(base time.Duration) time.Duration {
	jitter := time.Duration(float64(base) * jitterFraction)
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: non-cryptographic randomness is fine for jitter
	return base + time.Duration(rand.Int64N(int64(2*jitter))) - jitter
}

func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	if c.cancelFunc != nil {
		c.mu.Unlock()
		cancel()
		return ErrAlreadyRunning
	}
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()

	slog.Info("Starting department sync coordinator", "interval", c.interval)
	defer func() {
		c.mu.Lock()
		c.cancelFunc = nil
		c.mu.Unlock()
		cancel()
		close(done)
		slog.Info("Department sync coordinator shutting down")
	}()

	ticker := time.NewTicker(nextInterval(c.interval))
	defer ticker.Stop()

	c.runSync(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.runSync(coordCtx)
			ticker.Reset(nextInterval(c.interval))
		case <-coordCtx.Done():
			return nil
		}
	}
}

func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()
	if cancel != nil {
		slog.Info("Stopping department sync coordinator")
		cancel()
		<-done
	}
	return nil
}

func (c *defaultCoordinator) runSync(ctx context.Context) {
	result, err := c.manager.Synchronize(pkgsync.WithTrigger(ctx, pkgsync.TriggerScheduled), false)
	if err != nil {
		slog.Error("Scheduled department sync failed", "error", err)
		return
	}
	if !result.Success {
		slog.Info("Scheduled department sync skipped", "errors", result.Errors)
	}
}
