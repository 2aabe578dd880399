// Package countdown is the local race clock.
//
// A Countdown is seeded once with a remaining duration, ticks on a fixed
// period while running, and fires exactly one terminal event when it reaches
// zero. Remaining time is derived from a deadline on every tick, so a dropped
// or late tick never stretches the race.
package countdown

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// SeedRemaining computes the starting value of the race clock. With a remote
// start time the elapsed remote time is subtracted from the fixed duration,
// floored at zero and capped at the fixed duration when the remote clock runs
// ahead of ours. Without one the race starts now.
func SeedRemaining(fixed time.Duration, remoteStart *time.Time, now time.Time) time.Duration {
	if remoteStart == nil || remoteStart.IsZero() {
		return fixed
	}
	remaining := fixed - now.Sub(*remoteStart)
	if remaining < 0 {
		return 0
	}
	if remaining > fixed {
		return fixed
	}
	return remaining
}

// Seconds rounds a remaining duration up to whole seconds for display.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// TickFunc receives the remaining time after each tick.
type TickFunc func(ctx context.Context, remaining time.Duration)

// ExpireFunc receives the single terminal event.
type ExpireFunc func(ctx context.Context)

// Countdown is a one-shot race clock. Callbacks run on the countdown's own
// goroutine and must not call Stop.
type Countdown struct {
	clock    clockwork.Clock
	tick     time.Duration
	deadline time.Time
	onTick   TickFunc
	onExpire ExpireFunc

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	fired   atomic.Bool
}

// New seeds a countdown that ends remaining from now.
func New(clock clockwork.Clock, tick, remaining time.Duration, onTick TickFunc, onExpire ExpireFunc) *Countdown {
	if onTick == nil {
		onTick = func(context.Context, time.Duration) {}
	}
	if onExpire == nil {
		onExpire = func(context.Context) {}
	}
	return &Countdown{
		clock:    clock,
		tick:     tick,
		deadline: clock.Now().Add(remaining),
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Deadline is the instant the countdown reaches zero.
func (c *Countdown) Deadline() time.Time {
	return c.deadline
}

// Remaining is the time left, never negative.
func (c *Countdown) Remaining() time.Duration {
	rem := c.deadline.Sub(c.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether the terminal event has fired.
func (c *Countdown) Expired() bool {
	return c.fired.Load()
}

// Start begins ticking. A countdown seeded at zero expires immediately.
// Starting twice is a no-op.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	ticker := c.clock.NewTicker(c.tick)

	go func() {
		defer close(c.done)
		defer ticker.Stop()

		if c.Remaining() <= 0 {
			c.expire(runCtx)
			return
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.Chan():
				rem := c.Remaining()
				if rem <= 0 {
					c.expire(runCtx)
					return
				}
				c.onTick(runCtx, rem)
			}
		}
	}()
}

// Stop halts ticking and waits for the goroutine to exit. After Stop returns
// no callback will run. Safe to call more than once or before Start.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.started = true
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Countdown) expire(ctx context.Context) {
	if !c.fired.CompareAndSwap(false, true) {
		return
	}
	c.onExpire(ctx)
}
