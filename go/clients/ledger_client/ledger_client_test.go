package ledger_client

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typeduel/go/internal/ledger"
	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1/ledgerv1connect"
	"github.com/mcdev12/typeduel/go/internal/models"
)

const (
	alice models.ParticipantID = "0xA11CE00000000000000000000000000000000001"
	bob   models.ParticipantID = "0xB0B0000000000000000000000000000000000002"
	carol models.ParticipantID = "0xCA20100000000000000000000000000000000003"
)

func newLedgerServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	app := ledger.NewApp(ledger.NewMemoryRepository(), clock, nil, ledger.DefaultConfig())

	mux := http.NewServeMux()
	mux.Handle(ledgerv1connect.NewLedgerServiceHandler(ledger.NewService(app)))
	mux.HandleFunc(HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLedgerClientRaceRoundTrip(t *testing.T) {
	srv := newLedgerServer(t)
	ctx := context.Background()
	a := NewLedgerClient(srv.URL, alice)
	b := NewLedgerClient(srv.URL, bob)

	require.NoError(t, a.Ping(ctx))

	id, err := a.CreateSession(ctx, "type fast now", big.NewInt(250))
	require.NoError(t, err)

	count, err := b.GetTotalSessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, b.JoinSession(ctx, id, big.NewInt(250)))
	require.NoError(t, a.SignalReady(ctx, id))
	require.NoError(t, b.SignalReady(ctx, id))

	s, err := a.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RemotePhaseActive, s.Phase)
	assert.Equal(t, bob, s.ParticipantB)
	assert.Equal(t, 0, s.Stake.Cmp(big.NewInt(250)))
	require.NotNil(t, s.StartTime)

	require.NoError(t, a.SubmitScore(ctx, id, 3))
	require.NoError(t, b.SubmitScore(ctx, id, 1))

	s, err = b.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RemotePhaseFinished, s.Phase)
	assert.True(t, s.Winner.Equal(alice))

	score, err := b.GetParticipantScore(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, score)
}

func TestLedgerClientMapsReasons(t *testing.T) {
	srv := newLedgerServer(t)
	ctx := context.Background()
	a := NewLedgerClient(srv.URL, alice)

	id, err := a.CreateSession(ctx, "one two", big.NewInt(1))
	require.NoError(t, err)
	require.NoError(t, NewLedgerClient(srv.URL, bob).JoinSession(ctx, id, big.NewInt(1)))

	err = NewLedgerClient(srv.URL, carol).JoinSession(ctx, id, big.NewInt(1))
	assert.True(t, errors.Is(err, ledgerv1.ErrSessionFull), "got %v", err)

	_, err = a.GetSession(ctx, 99)
	assert.ErrorIs(t, err, ledgerv1.ErrSessionNotFound)

	_, err = a.CreateSession(ctx, "", big.NewInt(1))
	assert.ErrorIs(t, err, ledgerv1.ErrEmptyText)

	err = a.CancelSession(ctx, id)
	assert.ErrorIs(t, err, ledgerv1.ErrCannotCancel)
}

func TestLedgerClientMissingCaller(t *testing.T) {
	srv := newLedgerServer(t)

	_, err := NewLedgerClient(srv.URL, "").CreateSession(context.Background(), "one", big.NewInt(1))
	assert.ErrorIs(t, err, ledgerv1.ErrMissingCaller)
}
