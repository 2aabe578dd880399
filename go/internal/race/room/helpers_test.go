package room

import (
	"context"
	"math/big"
	"sync"
	"time"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
)

const (
	alice models.ParticipantID = "0xA11CE00000000000000000000000000000000001"
	bob   models.ParticipantID = "0xB0B0000000000000000000000000000000000002"
	carol models.ParticipantID = "0xCA20100000000000000000000000000000000003"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(phase models.RemotePhase) *models.Session {
	return &models.Session{
		ID:            7,
		ParticipantA:  alice,
		ParticipantB:  bob,
		Stake:         big.NewInt(100),
		ReferenceText: "type fast now",
		Phase:         phase,
		Winner:        models.EmptyParticipant,
	}
}

func openSession() *models.Session {
	s := newSession(models.RemotePhaseNotStarted)
	s.ParticipantB = models.EmptyParticipant
	return s
}

func activeSession(start time.Time) *models.Session {
	s := newSession(models.RemotePhaseActive)
	s.ReadyA, s.ReadyB = true, true
	s.StartTime = &start
	return s
}

// recordedEffects captures every request the reconciler makes.
type recordedEffects struct {
	now          time.Time
	calls        []string
	clockStarts  []time.Duration
	submits      []int
	joins        int
	readies      int
	cancels      int
	changed      int
	opponent     models.ParticipantID
	phaseWatches int
}

func (f *recordedEffects) Now() time.Time { return f.now }
func (f *recordedEffects) StartClock(rem time.Duration) {
	f.calls = append(f.calls, "StartClock")
	f.clockStarts = append(f.clockStarts, rem)
}
func (f *recordedEffects) StopClock() { f.calls = append(f.calls, "StopClock") }
func (f *recordedEffects) StartPhaseWatch() {
	f.calls = append(f.calls, "StartPhaseWatch")
	f.phaseWatches++
}
func (f *recordedEffects) StopPhaseWatch() { f.calls = append(f.calls, "StopPhaseWatch") }
func (f *recordedEffects) StartOpponentWatch(p models.ParticipantID) {
	f.calls = append(f.calls, "StartOpponentWatch")
	f.opponent = p
}
func (f *recordedEffects) StopOpponentWatch() { f.calls = append(f.calls, "StopOpponentWatch") }
func (f *recordedEffects) StartResultsWatch() { f.calls = append(f.calls, "StartResultsWatch") }
func (f *recordedEffects) StopResultsWatch()  { f.calls = append(f.calls, "StopResultsWatch") }
func (f *recordedEffects) Join(*big.Int)      { f.joins++ }
func (f *recordedEffects) SignalReady()       { f.readies++ }
func (f *recordedEffects) SubmitScore(words int) {
	f.submits = append(f.submits, words)
}
func (f *recordedEffects) Cancel()  { f.cancels++ }
func (f *recordedEffects) Changed() { f.changed++ }

func (f *recordedEffects) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeAuthority is an in-process stand-in for the ledger.
type fakeAuthority struct {
	mu         sync.Mutex
	session    *models.Session
	scores     map[models.ParticipantID]int
	joinErr    error
	submitErr  error
	cancelErr  error
	getCalls   int
	scoreCalls int
	submitted  []int
	cancelled  int
	// getHold, when set, parks GetSession until it is closed.
	getHold chan struct{}
}

func newFakeAuthority(s *models.Session) *fakeAuthority {
	return &fakeAuthority{session: s, scores: make(map[models.ParticipantID]int)}
}

func (a *fakeAuthority) GetSession(ctx context.Context, id models.SessionID) (*models.Session, error) {
	a.mu.Lock()
	a.getCalls++
	hold := a.getHold
	a.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || a.session.ID != id {
		return nil, ledgerv1.ErrSessionNotFound
	}
	return a.session.Clone(), nil
}

func (a *fakeAuthority) GetParticipantScore(_ context.Context, _ models.SessionID, p models.ParticipantID) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scoreCalls++
	return a.scores[p], nil
}

func (a *fakeAuthority) JoinSession(context.Context, models.SessionID, *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.joinErr
}

func (a *fakeAuthority) SignalReady(context.Context, models.SessionID) error { return nil }

func (a *fakeAuthority) SubmitScore(_ context.Context, _ models.SessionID, words int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitted = append(a.submitted, words)
	return a.submitErr
}

func (a *fakeAuthority) CancelSession(context.Context, models.SessionID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled++
	return a.cancelErr
}

func (a *fakeAuthority) calls() (gets, scores, submits int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getCalls, a.scoreCalls, len(a.submitted)
}

func (a *fakeAuthority) set(fn func(s *models.Session)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.session)
}
