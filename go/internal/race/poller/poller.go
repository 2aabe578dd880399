// Package poller repeatedly reads remote state on a fixed interval.
//
// The authority offers no push channel, so every watcher of remote state is a
// Poller: fetch on each tick, hand the result to a handler, keep going on
// failure, and stop when the handler says the result is no longer useful.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Watcher is anything that observes remote state until stopped. Stop must be
// synchronous: once it returns no further fetch or handler call happens.
type Watcher interface {
	Start(ctx context.Context)
	Stop()
}

// FetchFunc reads one value from the remote authority.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// HandleFunc receives each successful fetch. Returning true stops the poller.
type HandleFunc[T any] func(ctx context.Context, v T) (stop bool)

// Config names a poller and sets its cadence.
type Config struct {
	Name     string
	Interval time.Duration
	// Immediate fetches once on Start instead of waiting a full interval.
	Immediate bool
}

// Poller fetches on every tick until stopped or told to stop by its handler.
type Poller[T any] struct {
	clock  clockwork.Clock
	cfg    Config
	fetch  FetchFunc[T]
	handle HandleFunc[T]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ Watcher = (*Poller[int])(nil)

// idle is handed out by Done when no polling goroutine was ever launched.
var idle = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// New creates a stopped poller.
func New[T any](clock clockwork.Clock, cfg Config, fetch FetchFunc[T], handle HandleFunc[T]) *Poller[T] {
	return &Poller[T]{
		clock:  clock,
		cfg:    cfg,
		fetch:  fetch,
		handle: handle,
	}
}

// Start launches the polling goroutine. Starting twice is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	ticker := p.clock.NewTicker(p.cfg.Interval)

	log.Debug().Str("poller", p.cfg.Name).Dur("interval", p.cfg.Interval).Msg("poller started")

	go func() {
		defer close(p.done)
		defer ticker.Stop()

		if p.cfg.Immediate && p.poll(runCtx) {
			return
		}
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.Chan():
				if p.poll(runCtx) {
					log.Debug().Str("poller", p.cfg.Name).Msg("poller stopped itself")
					return
				}
			}
		}
	}()
}

// Stop cancels polling and waits for the goroutine to exit. Safe to call more
// than once, before Start, or after the poller stopped itself.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.started = true
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once the polling goroutine has exited. Before Start, or
// after a Stop that preceded Start, it is already closed.
func (p *Poller[T]) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return idle
	}
	return p.done
}

// poll runs one fetch and reports whether polling should end.
func (p *Poller[T]) poll(ctx context.Context) bool {
	v, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		log.Warn().Err(err).Str("poller", p.cfg.Name).Msg("poll failed, retrying next tick")
		return false
	}
	return p.handle(ctx, v)
}
