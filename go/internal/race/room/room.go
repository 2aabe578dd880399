// Package room runs the client side of one race: the local state machine, its
// clock and watchers, and the commits it sends to the authority.
package room

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/countdown"
	"github.com/mcdev12/typeduel/go/internal/race/poller"
)

// Authority is the slice of the remote ledger a room talks to.
type Authority interface {
	GetSession(ctx context.Context, id models.SessionID) (*models.Session, error)
	GetParticipantScore(ctx context.Context, id models.SessionID, p models.ParticipantID) (int, error)
	JoinSession(ctx context.Context, id models.SessionID, stake *big.Int) error
	SignalReady(ctx context.Context, id models.SessionID) error
	SubmitScore(ctx context.Context, id models.SessionID, words int) error
	CancelSession(ctx context.Context, id models.SessionID) error
}

// WatcherFactory builds the watcher that reports remote snapshots while a
// room waits for its race to start. The default polls; a push feed can be
// plugged in instead.
type WatcherFactory func(id models.SessionID, fetch poller.FetchFunc[*models.Session], handle poller.HandleFunc[*models.Session]) poller.Watcher

// Config sets the race duration and the cadence of every timer in a room.
type Config struct {
	Duration             time.Duration
	Tick                 time.Duration
	PhasePollInterval    time.Duration
	OpponentPollInterval time.Duration
	ResultsPollInterval  time.Duration
	CommitTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Duration:             60 * time.Second,
		Tick:                 time.Second,
		PhasePollInterval:    5 * time.Second,
		OpponentPollInterval: 2 * time.Second,
		ResultsPollInterval:  5 * time.Second,
		CommitTimeout:        15 * time.Second,
	}
}

// Room is a single-goroutine actor around a Reconciler. Every reconciler
// event runs on the room goroutine, so the state machine needs no locks.
type Room struct {
	id       models.SessionID
	self     models.ParticipantID
	instance string
	clock    clockwork.Clock
	auth     Authority
	cfg      Config
	watchers WatcherFactory

	rec   *Reconciler
	inbox chan func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	calls  sync.WaitGroup

	// owned by the room goroutine
	clockRun *countdown.Countdown
	phase    poller.Watcher
	opponent poller.Watcher
	results  poller.Watcher

	stateMu sync.RWMutex
	state   State
	subs    map[int]chan State
	nextSub int

	closeOnce sync.Once
}

// effects implements Effects for a room. Kept off Room so the state
// machine's hooks are not part of the public API.
type effects struct{ *Room }

var _ Effects = effects{}

// Open fetches the session and starts a room for it. An unknown session is
// reported as ErrInvalidSessionReference; any other read failure as a
// TransientFetchError.
func Open(ctx context.Context, auth Authority, id models.SessionID, self models.ParticipantID, clock clockwork.Clock, cfg Config, watchers WatcherFactory) (*Room, error) {
	s, err := auth.GetSession(ctx, id)
	if errors.Is(err, ledgerv1.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: session %s: %v", ErrInvalidSessionReference, id, err)
	}
	if err != nil {
		return nil, &TransientFetchError{Op: "session " + id.String(), Err: err}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &Room{
		id:       id,
		self:     self,
		instance: uuid.NewString(),
		clock:    clock,
		auth:     auth,
		cfg:      cfg,
		watchers: watchers,
		inbox:    make(chan func()),
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		subs:     make(map[int]chan State),
	}
	if r.watchers == nil {
		r.watchers = r.pollingWatcher
	}
	r.rec = NewReconciler(effects{r}, self, cfg.Duration)

	go r.run()
	r.call(func() { r.rec.Init(s) })

	log.Info().
		Str("session_id", id.String()).
		Str("instance", r.instance).
		Str("participant", self.Short()).
		Msg("room opened")
	return r, nil
}

func (r *Room) ID() models.SessionID { return r.id }

// Instance identifies this room instance in logs.
func (r *Room) Instance() string { return r.instance }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// State returns the latest published state.
func (r *Room) State() State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// Subscribe streams state updates. Only the newest unread state is kept per
// subscriber. The channel is closed when the room closes or on unsubscribe.
func (r *Room) Subscribe() (<-chan State, func()) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	ch := make(chan State, 1)
	if r.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	ch <- r.state

	return ch, func() {
		r.stateMu.Lock()
		defer r.stateMu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

func (r *Room) Input(value string) error {
	return r.request(func() error { return r.rec.Input(value) })
}

func (r *Room) Join() error {
	return r.request(r.rec.RequestJoin)
}

func (r *Room) Ready() error {
	return r.request(r.rec.RequestReady)
}

func (r *Room) Cancel() error {
	return r.request(r.rec.RequestCancel)
}

func (r *Room) RetrySubmit() error {
	return r.request(r.rec.RetrySubmit)
}

// Close stops every timer and watcher, waits for in-flight commits to give
// up, and closes all subscriptions. No callback runs after Close returns.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		if !r.call(r.rec.Close) {
			r.rec.Close()
		}
		r.cancel()
		<-r.done
		r.calls.Wait()

		r.stateMu.Lock()
		for id, ch := range r.subs {
			delete(r.subs, id)
			close(ch)
		}
		r.subs = nil
		r.stateMu.Unlock()

		log.Info().
			Str("session_id", r.id.String()).
			Str("instance", r.instance).
			Msg("room closed")
	})
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case fn := <-r.inbox:
			fn()
		}
	}
}

// call runs fn on the room goroutine and waits for it. It reports false if
// the room has already stopped.
func (r *Room) call(fn func()) bool {
	finished := make(chan struct{})
	select {
	case r.inbox <- func() { fn(); close(finished) }:
		<-finished
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) request(fn func() error) error {
	var err error
	if !r.call(func() { err = fn() }) {
		return ErrRoomClosed
	}
	return err
}

// post hands fn to the room goroutine from a timer, watcher or commit
// goroutine. It gives up when ctx ends so that a synchronous stop of the
// sender can never deadlock against the room goroutine.
func (r *Room) post(ctx context.Context, fn func()) {
	select {
	case r.inbox <- fn:
	case <-ctx.Done():
	case <-r.ctx.Done():
	}
}

// Effects, all called on the room goroutine.

func (r effects) Now() time.Time { return r.clock.Now() }

func (r effects) StartClock(remaining time.Duration) {
	if r.clockRun != nil {
		return
	}
	r.clockRun = countdown.New(r.clock, r.cfg.Tick, remaining,
		func(ctx context.Context, rem time.Duration) {
			r.post(ctx, func() { r.rec.Tick(rem) })
		},
		func(ctx context.Context) {
			r.post(ctx, r.rec.Expire)
		},
	)
	r.clockRun.Start(r.ctx)
}

func (r effects) StopClock() {
	if r.clockRun != nil {
		r.clockRun.Stop()
	}
}

func (r effects) StartPhaseWatch() {
	if r.phase != nil {
		return
	}
	r.phase = r.watchers(r.id, r.fetchSession, func(ctx context.Context, s *models.Session) bool {
		r.post(ctx, func() { r.rec.ApplySnapshot(s) })
		return s.Phase != models.RemotePhaseNotStarted
	})
	r.phase.Start(r.ctx)
}

func (r effects) StopPhaseWatch() {
	if r.phase != nil {
		r.phase.Stop()
	}
}

func (r effects) StartOpponentWatch(opponent models.ParticipantID) {
	if r.opponent != nil || opponent.IsEmpty() {
		return
	}
	r.opponent = poller.New[int](r.clock,
		poller.Config{Name: "opponent-" + r.id.String(), Interval: r.cfg.OpponentPollInterval},
		func(ctx context.Context) (int, error) {
			score, err := r.auth.GetParticipantScore(ctx, r.id, opponent)
			if err != nil {
				return 0, &TransientFetchError{Op: "opponent score", Err: err}
			}
			return score, nil
		},
		func(ctx context.Context, score int) bool {
			r.post(ctx, func() { r.rec.ApplyOpponentScore(score) })
			return false
		},
	)
	r.opponent.Start(r.ctx)
}

func (r effects) StopOpponentWatch() {
	if r.opponent != nil {
		r.opponent.Stop()
	}
}

type resultsRead struct {
	session        *models.Session
	scoreA, scoreB int
}

func (r effects) StartResultsWatch() {
	if r.results != nil {
		return
	}
	r.results = poller.New[resultsRead](r.clock,
		poller.Config{Name: "results-" + r.id.String(), Interval: r.cfg.ResultsPollInterval, Immediate: true},
		r.fetchResults,
		func(ctx context.Context, res resultsRead) bool {
			r.post(ctx, func() { r.rec.ApplyResults(res.session, res.scoreA, res.scoreB) })
			return res.session.Phase == models.RemotePhaseFinished
		},
	)
	r.results.Start(r.ctx)
}

func (r effects) StopResultsWatch() {
	if r.results != nil {
		r.results.Stop()
	}
}

func (r effects) Join(stake *big.Int) {
	r.commit(func(ctx context.Context) error {
		return r.auth.JoinSession(ctx, r.id, stake)
	}, r.rec.JoinDone)
}

func (r effects) SignalReady() {
	r.commit(func(ctx context.Context) error {
		return r.auth.SignalReady(ctx, r.id)
	}, r.rec.ReadyDone)
}

func (r effects) SubmitScore(words int) {
	r.commit(func(ctx context.Context) error {
		return r.auth.SubmitScore(ctx, r.id, words)
	}, func(err error) { r.rec.CommitDone(OpScore, err) })
}

func (r effects) Cancel() {
	r.commit(func(ctx context.Context) error {
		return r.auth.CancelSession(ctx, r.id)
	}, func(err error) { r.rec.CommitDone(OpCancel, err) })
}

// Changed publishes the reconciler state to subscribers.
func (r effects) Changed() {
	st := r.rec.State()

	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.state = st
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// commit runs a mutation off the room goroutine and reports the outcome back
// on it.
func (r *Room) commit(send func(ctx context.Context) error, done func(error)) {
	r.calls.Add(1)
	go func() {
		defer r.calls.Done()
		ctx, cancel := context.WithTimeout(r.ctx, r.cfg.CommitTimeout)
		defer cancel()
		err := send(ctx)
		r.post(r.ctx, func() { done(err) })
	}()
}

func (r *Room) fetchSession(ctx context.Context) (*models.Session, error) {
	s, err := r.auth.GetSession(ctx, r.id)
	if err != nil {
		return nil, &TransientFetchError{Op: "session " + r.id.String(), Err: err}
	}
	return s, nil
}

// fetchResults reads the session and, once it is finished, both scores.
func (r *Room) fetchResults(ctx context.Context) (resultsRead, error) {
	s, err := r.fetchSession(ctx)
	if err != nil {
		return resultsRead{}, err
	}
	res := resultsRead{session: s}
	if s.Phase != models.RemotePhaseFinished {
		return res, nil
	}
	if res.scoreA, err = r.auth.GetParticipantScore(ctx, r.id, s.ParticipantA); err != nil {
		return resultsRead{}, &TransientFetchError{Op: "score A", Err: err}
	}
	if !s.ParticipantB.IsEmpty() {
		if res.scoreB, err = r.auth.GetParticipantScore(ctx, r.id, s.ParticipantB); err != nil {
			return resultsRead{}, &TransientFetchError{Op: "score B", Err: err}
		}
	}
	return res, nil
}

func (r *Room) pollingWatcher(id models.SessionID, fetch poller.FetchFunc[*models.Session], handle poller.HandleFunc[*models.Session]) poller.Watcher {
	return poller.New[*models.Session](r.clock,
		poller.Config{Name: "phase-" + id.String(), Interval: r.cfg.PhasePollInterval},
		fetch, handle)
}
