// Package feed delivers ledger session snapshots pushed over NATS. A Feed
// satisfies the same watcher contract as a phase poller, so a room can use
// either without knowing which.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/poller"
)

const bufferSize = 64

// Subscriber delivers messages published on a subject into ch until the
// returned unsubscribe func is called.
type Subscriber interface {
	Subscribe(subject string, ch chan *nats.Msg) (unsubscribe func() error, err error)
}

// ConnSubscriber subscribes over a NATS connection.
type ConnSubscriber struct {
	Conn *nats.Conn
}

func (c ConnSubscriber) Subscribe(subject string, ch chan *nats.Msg) (func() error, error) {
	sub, err := c.Conn.ChanSubscribe(subject, ch)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// Feed subscribes to one session's snapshot subject. Pushed snapshots are
// delivered as they arrive, and fetch also runs on every resync interval so
// a lost publish or a failed subscribe only delays delivery by one interval.
type Feed struct {
	sub      Subscriber
	clock    clockwork.Clock
	interval time.Duration
	id       models.SessionID
	fetch    poller.FetchFunc[*models.Session]
	handle   poller.HandleFunc[*models.Session]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ poller.Watcher = (*Feed)(nil)

var idle = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// New creates a stopped feed. fetch, when not nil, runs once right after the
// subscription is in place and again every resync interval.
func New(sub Subscriber, clock clockwork.Clock, resync time.Duration, id models.SessionID, fetch poller.FetchFunc[*models.Session], handle poller.HandleFunc[*models.Session]) *Feed {
	return &Feed{sub: sub, clock: clock, interval: resync, id: id, fetch: fetch, handle: handle}
}

// Factory adapts New to the signature rooms use to build phase watchers.
func Factory(nc *nats.Conn, clock clockwork.Clock, resync time.Duration) func(models.SessionID, poller.FetchFunc[*models.Session], poller.HandleFunc[*models.Session]) poller.Watcher {
	return func(id models.SessionID, fetch poller.FetchFunc[*models.Session], handle poller.HandleFunc[*models.Session]) poller.Watcher {
		return New(ConnSubscriber{Conn: nc}, clock, resync, id, fetch, handle)
	}
}

// Start subscribes and begins delivering snapshots. Starting twice is a no-op.
// When the subscribe fails the feed keeps delivering through resync fetches.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	f.started = true

	subject := ledgerv1.SessionSubject(uint64(f.id))
	msgs := make(chan *nats.Msg, bufferSize)
	unsubscribe, err := f.sub.Subscribe(subject, msgs)
	if err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("feed subscribe failed, resyncing by fetch only")
		msgs = nil
	} else {
		log.Debug().Str("subject", subject).Msg("feed subscribed")
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	var resync <-chan time.Time
	var ticker clockwork.Ticker
	if f.fetch != nil && f.interval > 0 {
		ticker = f.clock.NewTicker(f.interval)
		resync = ticker.Chan()
	}

	go func() {
		defer close(f.done)
		defer func() {
			if ticker != nil {
				ticker.Stop()
			}
			if unsubscribe == nil {
				return
			}
			if err := unsubscribe(); err != nil {
				log.Debug().Err(err).Str("subject", subject).Msg("feed unsubscribe")
			}
		}()

		if f.fetch != nil && f.resync(runCtx, subject) {
			return
		}

		for {
			select {
			case <-runCtx.Done():
				return
			case <-resync:
				if f.resync(runCtx, subject) {
					log.Debug().Str("subject", subject).Msg("feed stopped itself")
					return
				}
			case msg := <-msgs:
				s, err := Decode(msg.Data)
				if err != nil {
					log.Warn().Err(err).Str("subject", subject).Msg("dropping malformed snapshot")
					continue
				}
				if f.handle(runCtx, s) {
					log.Debug().Str("subject", subject).Msg("feed stopped itself")
					return
				}
			}
		}
	}()
}

// resync fetches once and reports whether delivery should end.
func (f *Feed) resync(ctx context.Context, subject string) bool {
	s, err := f.fetch(ctx)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("feed resync failed")
		return false
	}
	return f.handle(ctx, s)
}

// Stop unsubscribes and waits for delivery to end.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.started = true
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed once delivery has ended. It is already closed when
// delivery never started.
func (f *Feed) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		return idle
	}
	return f.done
}

// Decode unwraps a published envelope into a session snapshot.
func Decode(data []byte) (*models.Session, error) {
	var env ledgerv1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var wire ledgerv1.Session
	if err := json.Unmarshal(env.Payload, &wire); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return wire.ToModel()
}

// Connect dials NATS for a client process.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("typeduel-race"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
