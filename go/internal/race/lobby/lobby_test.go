package lobby

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typeduel/go/internal/models"
)

const (
	me    models.ParticipantID = "0x1111111111111111111111111111111111111111"
	other models.ParticipantID = "0x2222222222222222222222222222222222222222"
)

type fakeSource struct {
	sessions map[models.SessionID]*models.Session
	total    uint64
	failing  map[models.SessionID]bool
	reads    []models.SessionID
}

func (f *fakeSource) GetTotalSessionCount(context.Context) (uint64, error) { return f.total, nil }

func (f *fakeSource) GetSession(_ context.Context, id models.SessionID) (*models.Session, error) {
	f.reads = append(f.reads, id)
	if f.failing[id] {
		return nil, errors.New("unavailable")
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return s.Clone(), nil
}

func session(id models.SessionID, creator, second models.ParticipantID, phase models.RemotePhase) *models.Session {
	return &models.Session{
		ID:            id,
		ParticipantA:  creator,
		ParticipantB:  second,
		Stake:         big.NewInt(10),
		ReferenceText: "go",
		Phase:         phase,
		Winner:        models.EmptyParticipant,
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	src := &fakeSource{
		total: 6,
		sessions: map[models.SessionID]*models.Session{
			0: session(0, other, models.EmptyParticipant, models.RemotePhaseNotStarted),
			1: session(1, other, me, models.RemotePhaseActive),
			2: session(2, me, models.EmptyParticipant, models.RemotePhaseNotStarted),
			4: session(4, other, models.EmptyParticipant, models.RemotePhaseNotStarted),
			5: session(5, other, models.EmptyParticipant, models.RemotePhaseNotStarted),
		},
		failing: map[models.SessionID]bool{5: true},
	}
	l := New(src, me, clockwork.NewFakeClock(), DefaultConfig())

	open, err := l.Scan(context.Background())
	require.NoError(t, err)

	var ids []models.SessionID
	for _, s := range open {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []models.SessionID{0, 4}, ids)
}

func TestScanLooksAtNewestOnly(t *testing.T) {
	src := &fakeSource{total: 30, sessions: map[models.SessionID]*models.Session{}}
	l := New(src, me, clockwork.NewFakeClock(), Config{ScanLimit: 3, RefreshInterval: time.Minute})

	_, err := l.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.SessionID{29, 28, 27}, src.reads)
}

func TestScanEmptyLedger(t *testing.T) {
	l := New(&fakeSource{}, me, clockwork.NewFakeClock(), DefaultConfig())
	open, err := l.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRefreshUpdatesCache(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := &fakeSource{
		total: 1,
		sessions: map[models.SessionID]*models.Session{
			0: session(0, other, models.EmptyParticipant, models.RemotePhaseNotStarted),
		},
	}
	l := New(src, me, fc, DefaultConfig())

	cached, at := l.Sessions()
	assert.Empty(t, cached)
	assert.True(t, at.IsZero())

	_, err := l.Refresh(context.Background())
	require.NoError(t, err)
	cached, at = l.Sessions()
	assert.Len(t, cached, 1)
	assert.Equal(t, fc.Now(), at)
}
