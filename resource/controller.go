// Package resource bounds the side work of basis generation: how many basis
// flushes may run at once and how much IO bandwidth they may consume.
//
// The SVD engines themselves are strictly single-threaded; the controller
// only governs the persistence path.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentFlushes is the maximum number of basis flushes in flight.
	// If 0, defaults to 1.
	MaxConcurrentFlushes int64

	// IOLimitBytesPerSec is the maximum IO throughput for flushes.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages flush concurrency and IO bandwidth.
// The zero value of *Controller (nil) disables all limits.
type Controller struct {
	flushSem  *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentFlushes <= 0 {
		cfg.MaxConcurrentFlushes = 1
	}

	c := &Controller{
		flushSem: semaphore.NewWeighted(cfg.MaxConcurrentFlushes),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireFlush reserves a flush slot, blocking until one is available or ctx
// is canceled.
func (c *Controller) AcquireFlush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.flushSem.Acquire(ctx, 1)
}

// TryAcquireFlush reserves a flush slot without blocking.
func (c *Controller) TryAcquireFlush() bool {
	if c == nil {
		return true
	}
	return c.flushSem.TryAcquire(1)
}

// ReleaseFlush releases a flush slot.
func (c *Controller) ReleaseFlush() {
	if c == nil {
		return
	}
	c.flushSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// rate.Limiter caps single waits at its burst; split large requests.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
