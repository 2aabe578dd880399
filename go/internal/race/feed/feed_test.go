package feed

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
)

func TestDecodeEnvelope(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &models.Session{
		ID:            3,
		ParticipantA:  "0xaaa",
		ParticipantB:  "0xbbb",
		Stake:         big.NewInt(42),
		ReferenceText: "type fast now",
		StartTime:     &start,
		ReadyA:        true,
		ReadyB:        true,
		Phase:         models.RemotePhaseActive,
		Winner:        models.EmptyParticipant,
	}
	payload, err := json.Marshal(ledgerv1.SessionFromModel(s))
	require.NoError(t, err)
	data, err := json.Marshal(ledgerv1.Envelope{
		EventID:   "e-1",
		EventType: ledgerv1.EventSessionStarted,
		SessionID: 3,
		Timestamp: start,
		Payload:   payload,
	})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, models.SessionID(3), got.ID)
	assert.Equal(t, models.RemotePhaseActive, got.Phase)
	assert.Equal(t, 0, got.Stake.Cmp(big.NewInt(42)))
	require.NotNil(t, got.StartTime)
	assert.True(t, got.StartTime.Equal(start))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"eventType":"x","payload":{"id":1,"stake":"1","phase":"SIDEWAYS"}}`))
	assert.Error(t, err)
}

func TestStopBeforeStart(t *testing.T) {
	f := New(nil, clockwork.NewFakeClock(), time.Second, 1, nil, nil)
	f.Stop()
	f.Start(context.Background()) // no-op once stopped

	select {
	case <-f.Done():
	default:
		t.Fatal("Done should be closed for a feed that never ran")
	}
}

type fakeSubscriber struct {
	mu           sync.Mutex
	err          error
	ch           chan *nats.Msg
	unsubscribed bool
}

func (f *fakeSubscriber) Subscribe(_ string, ch chan *nats.Msg) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.ch = ch
	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
		return nil
	}, nil
}

func (f *fakeSubscriber) publish(t *testing.T, s *models.Session) {
	t.Helper()
	payload, err := json.Marshal(ledgerv1.SessionFromModel(s))
	require.NoError(t, err)
	data, err := json.Marshal(ledgerv1.Envelope{EventID: "e", EventType: ledgerv1.EventSessionStarted, SessionID: uint64(s.ID), Payload: payload})
	require.NoError(t, err)
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	ch <- &nats.Msg{Data: data}
}

// remoteSession serves fetches with whatever phase the test sets.
type remoteSession struct {
	phase   atomic.Value
	fetches atomic.Int32
}

func newRemoteSession() *remoteSession {
	r := &remoteSession{}
	r.phase.Store(models.RemotePhaseNotStarted)
	return r
}

func (r *remoteSession) session() *models.Session {
	return &models.Session{
		ID:            5,
		ParticipantA:  "0xaaa",
		ParticipantB:  "0xbbb",
		Stake:         big.NewInt(1),
		ReferenceText: "go",
		Phase:         r.phase.Load().(models.RemotePhase),
		Winner:        models.EmptyParticipant,
	}
}

func (r *remoteSession) fetch(context.Context) (*models.Session, error) {
	r.fetches.Add(1)
	return r.session(), nil
}

func untilStarted(seen *atomic.Int32) func(context.Context, *models.Session) bool {
	return func(_ context.Context, s *models.Session) bool {
		seen.Add(1)
		return s.Phase != models.RemotePhaseNotStarted
	}
}

func waitDone(t *testing.T, f *Feed) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("feed did not stop itself")
	}
}

func TestFeedResyncsWhenSubscribeFails(t *testing.T) {
	fc := clockwork.NewFakeClock()
	remote := newRemoteSession()
	var seen atomic.Int32

	f := New(&fakeSubscriber{err: errors.New("no responders")}, fc, 5*time.Second, 5, remote.fetch, untilStarted(&seen))
	f.Start(context.Background())
	defer f.Stop()

	require.Eventually(t, func() bool { return seen.Load() == 1 }, time.Second, time.Millisecond)

	remote.phase.Store(models.RemotePhaseActive)
	fc.Advance(5 * time.Second)
	waitDone(t, f)
	assert.Equal(t, int32(2), remote.fetches.Load())
}

func TestFeedCatchesUpAfterLostPublish(t *testing.T) {
	fc := clockwork.NewFakeClock()
	remote := newRemoteSession()
	sub := &fakeSubscriber{}
	var seen atomic.Int32

	f := New(sub, fc, 5*time.Second, 5, remote.fetch, untilStarted(&seen))
	f.Start(context.Background())

	require.Eventually(t, func() bool { return seen.Load() == 1 }, time.Second, time.Millisecond)
	sub.publish(t, remote.session())
	require.Eventually(t, func() bool { return seen.Load() == 2 }, time.Second, time.Millisecond)

	// The start event is never published; the next resync still sees it.
	remote.phase.Store(models.RemotePhaseActive)
	fc.Advance(5 * time.Second)
	waitDone(t, f)

	f.Stop()
	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.True(t, sub.unsubscribed)
}

func TestFeedPushedSnapshotStopsDelivery(t *testing.T) {
	fc := clockwork.NewFakeClock()
	remote := newRemoteSession()
	sub := &fakeSubscriber{}
	var seen atomic.Int32

	f := New(sub, fc, time.Minute, 5, remote.fetch, untilStarted(&seen))
	f.Start(context.Background())
	defer f.Stop()

	require.Eventually(t, func() bool { return seen.Load() == 1 }, time.Second, time.Millisecond)
	s := remote.session()
	s.Phase = models.RemotePhaseActive
	sub.publish(t, s)
	waitDone(t, f)
	assert.Equal(t, int32(1), remote.fetches.Load())
}
