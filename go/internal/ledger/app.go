package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/textmetrics"
)

// Config holds the race rules the authority enforces.
type Config struct {
	// RaceDuration is how long a race runs once both participants are ready.
	RaceDuration time.Duration
	// SettleGrace is extra time after RaceDuration for late score submissions
	// before the race is settled without them.
	SettleGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		RaceDuration: 60 * time.Second,
		SettleGrace:  15 * time.Second,
	}
}

// App handles ledger business logic
type App struct {
	repo      Repository
	clock     clockwork.Clock
	publisher Publisher
	cfg       Config
}

// NewApp creates a new ledger App
func NewApp(repo Repository, clock clockwork.Clock, publisher Publisher, cfg Config) *App {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &App{
		repo:      repo,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
	}
}

// CreateSession opens a race with the caller in the first seat.
func (a *App) CreateSession(ctx context.Context, caller models.ParticipantID, text string, stake *big.Int) (models.SessionID, error) {
	if caller.IsEmpty() {
		return 0, ledgerv1.ErrMissingCaller
	}
	if strings.TrimSpace(text) == "" {
		return 0, ledgerv1.ErrEmptyText
	}
	if stake == nil || stake.Sign() <= 0 {
		return 0, ledgerv1.ErrInvalidStake
	}

	session := &models.Session{
		ParticipantA:  caller,
		ParticipantB:  models.EmptyParticipant,
		Stake:         new(big.Int).Set(stake),
		ReferenceText: text,
		Phase:         models.RemotePhaseNotStarted,
		Winner:        models.EmptyParticipant,
	}
	id, err := a.repo.Create(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	session.ID = id

	log.Info().
		Str("session_id", id.String()).
		Str("participant", string(caller)).
		Str("stake", stake.String()).
		Msg("session created")
	a.publish(ctx, ledgerv1.EventSessionCreated, session)
	return id, nil
}

// GetSession returns the current snapshot, settling an expired race first.
func (a *App) GetSession(ctx context.Context, id models.SessionID) (*models.Session, error) {
	rec, err := a.getSettled(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Session, nil
}

// GetTotalSessionCount returns how many sessions were ever created. Ids run
// from zero to count-1; cancelled ones no longer resolve.
func (a *App) GetTotalSessionCount(ctx context.Context) (uint64, error) {
	n, err := a.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// JoinSession takes the second seat. Checks run in a fixed order so callers
// see the most specific failure.
func (a *App) JoinSession(ctx context.Context, caller models.ParticipantID, id models.SessionID, stake *big.Int) error {
	if caller.IsEmpty() {
		return ledgerv1.ErrMissingCaller
	}
	rec, err := a.repo.Update(ctx, id, func(rec *Record) error {
		s := rec.Session
		switch {
		case s.ParticipantA.Equal(caller):
			return ledgerv1.ErrAlreadyParticipant
		case s.IsFull():
			return ledgerv1.ErrSessionFull
		case s.Phase != models.RemotePhaseNotStarted:
			return ledgerv1.ErrSessionNotWaiting
		case stake == nil || s.Stake.Cmp(stake) != 0:
			return ledgerv1.ErrStakeMismatch
		}
		s.ParticipantB = caller
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to join session %s: %w", id, err)
	}

	log.Info().
		Str("session_id", id.String()).
		Str("participant", string(caller)).
		Msg("participant joined")
	a.publish(ctx, ledgerv1.EventParticipantJoined, rec.Session)
	return nil
}

// SignalReady marks the caller ready. Repeating it is a no-op. The race
// starts when both seats are ready.
func (a *App) SignalReady(ctx context.Context, caller models.ParticipantID, id models.SessionID) error {
	if caller.IsEmpty() {
		return ledgerv1.ErrMissingCaller
	}
	changed := false
	rec, err := a.repo.Update(ctx, id, func(rec *Record) error {
		s := rec.Session
		switch {
		case !s.IsParticipant(caller):
			return ledgerv1.ErrNotParticipant
		case s.IsReady(caller):
			return nil
		case s.Phase != models.RemotePhaseNotStarted:
			return ledgerv1.ErrSessionNotWaiting
		case !s.IsFull():
			return ledgerv1.ErrAwaitingOpponent
		}
		if s.ParticipantA.Equal(caller) {
			s.ReadyA = true
		} else {
			s.ReadyB = true
		}
		if s.BothReady() {
			now := a.clock.Now().UTC()
			s.StartTime = &now
			s.Phase = models.RemotePhaseActive
		}
		changed = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to signal ready on session %s: %w", id, err)
	}
	if !changed {
		return nil
	}

	log.Info().
		Str("session_id", id.String()).
		Str("participant", string(caller)).
		Str("phase", string(rec.Session.Phase)).
		Msg("participant ready")
	a.publish(ctx, ledgerv1.EventParticipantReady, rec.Session)
	if rec.Session.Phase == models.RemotePhaseActive {
		a.publish(ctx, ledgerv1.EventSessionStarted, rec.Session)
	}
	return nil
}

// SubmitScore records the caller's completed word count. The race finishes
// once both seats have submitted or the settle deadline has passed.
func (a *App) SubmitScore(ctx context.Context, caller models.ParticipantID, id models.SessionID, words int) error {
	if caller.IsEmpty() {
		return ledgerv1.ErrMissingCaller
	}
	var settledLate bool
	rec, err := a.repo.Update(ctx, id, func(rec *Record) error {
		s := rec.Session
		if !s.IsParticipant(caller) {
			return ledgerv1.ErrNotParticipant
		}
		if a.expired(s) {
			a.settle(rec)
			settledLate = true
			return nil
		}
		switch {
		case s.Phase == models.RemotePhaseFinished:
			return ledgerv1.ErrSessionFinished
		case s.Phase != models.RemotePhaseActive:
			return ledgerv1.ErrSessionNotActive
		}
		if _, submitted := rec.Score(caller); submitted {
			return ledgerv1.ErrAlreadySubmitted
		}
		if words < 0 || words > len(textmetrics.Words(s.ReferenceText)) {
			return ledgerv1.ErrInvalidScore
		}

		if s.ParticipantA.Equal(caller) {
			rec.ScoreA, rec.SubmittedA = words, true
		} else {
			rec.ScoreB, rec.SubmittedB = words, true
		}
		if rec.SubmittedA && rec.SubmittedB {
			a.finish(rec)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to submit score on session %s: %w", id, err)
	}
	if settledLate {
		a.publish(ctx, ledgerv1.EventSessionFinished, rec.Session)
		return fmt.Errorf("failed to submit score on session %s: %w", id, ledgerv1.ErrSessionFinished)
	}

	log.Info().
		Str("session_id", id.String()).
		Str("participant", string(caller)).
		Int("words", words).
		Msg("score submitted")
	a.publish(ctx, ledgerv1.EventScoreSubmitted, rec.Session)
	if rec.Session.Phase == models.RemotePhaseFinished {
		a.publish(ctx, ledgerv1.EventSessionFinished, rec.Session)
	}
	return nil
}

// CancelSession removes a session nobody has joined. Only the creator may.
func (a *App) CancelSession(ctx context.Context, caller models.ParticipantID, id models.SessionID) error {
	if caller.IsEmpty() {
		return ledgerv1.ErrMissingCaller
	}
	rec, err := a.repo.Delete(ctx, id, func(rec *Record) error {
		s := rec.Session
		switch {
		case !s.ParticipantA.Equal(caller):
			return ledgerv1.ErrNotCreator
		case s.IsFull() || s.Phase != models.RemotePhaseNotStarted:
			return ledgerv1.ErrCannotCancel
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel session %s: %w", id, err)
	}

	log.Info().
		Str("session_id", id.String()).
		Str("participant", string(caller)).
		Msg("session cancelled")
	a.publish(ctx, ledgerv1.EventSessionCancelled, rec.Session)
	return nil
}

// GetParticipantScore returns the recorded score of p, zero until submitted.
func (a *App) GetParticipantScore(ctx context.Context, id models.SessionID, p models.ParticipantID) (int, error) {
	rec, err := a.getSettled(ctx, id)
	if err != nil {
		return 0, err
	}
	if !rec.Session.IsParticipant(p) {
		return 0, ledgerv1.ErrNotParticipant
	}
	score, _ := rec.Score(p)
	return score, nil
}

func (a *App) getSettled(ctx context.Context, id models.SessionID) (*Record, error) {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	if !a.expired(rec.Session) {
		return rec, nil
	}

	settled := false
	rec, err = a.repo.Update(ctx, id, func(rec *Record) error {
		if a.expired(rec.Session) {
			a.settle(rec)
			settled = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to settle session %s: %w", id, err)
	}
	if settled {
		a.publish(ctx, ledgerv1.EventSessionFinished, rec.Session)
	}
	return rec, nil
}

// expired reports whether an active race is past its settle deadline.
func (a *App) expired(s *models.Session) bool {
	if s.Phase != models.RemotePhaseActive || s.StartTime == nil {
		return false
	}
	deadline := s.StartTime.Add(a.cfg.RaceDuration + a.cfg.SettleGrace)
	return !a.clock.Now().Before(deadline)
}

func (a *App) settle(rec *Record) {
	log.Info().
		Str("session_id", rec.Session.ID.String()).
		Bool("submitted_a", rec.SubmittedA).
		Bool("submitted_b", rec.SubmittedB).
		Msg("settling expired race")
	a.finish(rec)
}

// finish closes the race. The higher score wins; a tie or a missing
// submission leaves the winner undetermined.
func (a *App) finish(rec *Record) {
	s := rec.Session
	now := a.clock.Now().UTC()
	s.EndTime = &now
	s.Phase = models.RemotePhaseFinished
	s.Winner = models.EmptyParticipant

	if !rec.SubmittedA || !rec.SubmittedB {
		return
	}
	switch {
	case rec.ScoreA > rec.ScoreB:
		s.Winner = s.ParticipantA
	case rec.ScoreB > rec.ScoreA:
		s.Winner = s.ParticipantB
	}
}

func (a *App) publish(ctx context.Context, eventType string, s *models.Session) {
	if err := a.publisher.Publish(ctx, eventType, s); err != nil {
		log.Warn().Err(err).
			Str("session_id", s.ID.String()).
			Str("event_type", eventType).
			Msg("failed to publish session event")
	}
}
