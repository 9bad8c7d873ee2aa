// internal/kernel/tickclock.go

package kernel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the hardware tick source.
type Clock interface {
	// Now returns the current tick count.
	Now() Tick
	// Await blocks until a tick has been signalled. It may return for a
	// tick that fired before the call.
	Await(ctx context.Context) error
}

// TickClock emits ticks on a real-time ticker and counts them atomically.
type TickClock struct {
	Ch    chan struct{}
	count atomic.Uint32
	stop  chan struct{}
	once  sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				// a full buffer means nobody is waiting; the count still advances
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Now returns the current tick count, wrapped to the timer width.
func (c *TickClock) Now() Tick {
	return Tick(c.count.Load())
}

// Await blocks until a tick signal arrives or until ctx is done. Signals are
// buffered, so one may belong to a tick that fired earlier; compare Now.
func (c *TickClock) Await(ctx context.Context) error {
	select {
	case <-c.Ch:
		return nil
	case <-c.stop:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// VirtualClock is a deterministic clock: every Await advances it by one tick.
type VirtualClock struct {
	count atomic.Uint32
}

// NewVirtualClock returns a clock starting at tick 0.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

func (c *VirtualClock) Now() Tick {
	return Tick(c.count.Load())
}

func (c *VirtualClock) Await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.count.Add(1)
	return nil
}

// Advance moves the clock forward by n ticks without an interrupt.
func (c *VirtualClock) Advance(n Tick) {
	c.count.Add(uint32(n))
}

// elapsed returns now-since on the wrapping timer.
func elapsed(now, since Tick) Tick {
	return now - since
}
