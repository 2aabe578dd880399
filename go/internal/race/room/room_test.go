package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CommitTimeout = time.Second
	return cfg
}

func TestOpenUnknownSession(t *testing.T) {
	auth := newFakeAuthority(newSession(models.RemotePhaseNotStarted))
	_, err := Open(context.Background(), auth, 99, alice, clockwork.NewFakeClockAt(epoch), testConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidSessionReference)
}

func TestRoomSeedsClockMidRace(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	auth := newFakeAuthority(activeSession(epoch.Add(-30 * time.Second)))

	r, err := Open(context.Background(), auth, 7, alice, fc, testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	st := r.State()
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, 30, st.RemainingSeconds)
}

func TestRoomClockExpirySubmitsOnce(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	auth := newFakeAuthority(activeSession(epoch.Add(-58 * time.Second)))

	r, err := Open(context.Background(), auth, 7, alice, fc, testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Input("type "))
	fc.Advance(2 * time.Second)

	require.Eventually(t, func() bool { return r.State().Committed }, time.Second, time.Millisecond)
	assert.Equal(t, PhaseFinished, r.State().Phase)
	assert.ErrorIs(t, r.Input("fast now"), ErrActionUnavailable)

	auth.mu.Lock()
	assert.Equal(t, []int{1}, auth.submitted)
	auth.mu.Unlock()
}

func TestRoomWaitingToActiveByPolling(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	auth := newFakeAuthority(newSession(models.RemotePhaseNotStarted))
	cfg := testConfig()

	r, err := Open(context.Background(), auth, 7, bob, fc, cfg, nil)
	require.NoError(t, err)
	defer r.Close()
	updates, unsubscribe := r.Subscribe()
	defer unsubscribe()
	assert.Equal(t, PhaseWaiting, (<-updates).Phase)

	auth.set(func(s *models.Session) {
		s.ReadyA, s.ReadyB = true, true
		s.Phase = models.RemotePhaseActive
		start := epoch
		s.StartTime = &start
	})
	fc.Advance(cfg.PhasePollInterval)

	require.Eventually(t, func() bool { return r.State().Phase == PhaseActive }, time.Second, time.Millisecond)
	assert.Equal(t, 55, r.State().RemainingSeconds)
}

func TestRoomJoinRejectedSessionFull(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	auth := newFakeAuthority(newSession(models.RemotePhaseNotStarted))
	auth.joinErr = ledgerv1.ErrSessionFull

	r, err := Open(context.Background(), auth, 7, carol, fc, testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Join())
	require.Eventually(t, func() bool { return r.State().LastError != "" }, time.Second, time.Millisecond)

	st := r.State()
	assert.Contains(t, st.LastError, "session full")
	assert.Equal(t, PhaseWaiting, st.Phase)
}

func TestRoomCloseStopsEverything(t *testing.T) {
	fc := clockwork.NewFakeClockAt(epoch)
	auth := newFakeAuthority(activeSession(epoch))

	r, err := Open(context.Background(), auth, 7, alice, fc, testConfig(), nil)
	require.NoError(t, err)
	updates, _ := r.Subscribe()

	r.Close()
	gets, scores, submits := auth.calls()

	fc.Advance(2 * time.Minute)
	time.Sleep(20 * time.Millisecond)

	g2, s2, sub2 := auth.calls()
	assert.Equal(t, gets, g2)
	assert.Equal(t, scores, s2)
	assert.Equal(t, submits, sub2)
	assert.Zero(t, sub2, "teardown is not a race finish")

	for range updates {
	}
	assert.ErrorIs(t, r.Input("type "), ErrRoomClosed)
	<-r.Done()
}
