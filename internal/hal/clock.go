// internal/hal/clock.go

package hal

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tick is the scheduler's unit of time: one clock interrupt.
type Tick int64

// TickClock emits ticks and counts them atomically.
type TickClock struct {
	Ch       chan struct{}
	count    atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval. A tick that lands while
// the buffer is full coalesces with the pending ones rather than blocking
// the timer goroutine.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Advance bumps the tick count by hand and returns the new value. This is the
// interrupt-injection path: tests and tickless setups drive the clock with it
// instead of Start.
func (c *TickClock) Advance() Tick {
	return Tick(c.count.Add(1))
}

// Stop signals the clock to stop emitting ticks.
func (c *TickClock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Now returns the current tick count atomically.
func (c *TickClock) Now() Tick {
	return Tick(c.count.Load())
}
