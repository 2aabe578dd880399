package room

import (
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/race/countdown"
	"github.com/mcdev12/typeduel/go/internal/race/textmetrics"
)

// Effects is everything the reconciler asks of the outside world. Start and
// stop calls must be idempotent. Commit calls are asynchronous: their outcome
// comes back through the matching *Done method.
type Effects interface {
	Now() time.Time

	StartClock(remaining time.Duration)
	StopClock()

	StartPhaseWatch()
	StopPhaseWatch()
	StartOpponentWatch(opponent models.ParticipantID)
	StopOpponentWatch()
	StartResultsWatch()
	StopResultsWatch()

	Join(stake *big.Int)
	SignalReady()
	SubmitScore(words int)
	Cancel()

	// Changed is called once per handled event that altered the state.
	Changed()
}

// Reconciler owns the local phase of one race and decides every transition
// and commit. It is not safe for concurrent use; a Room drives it from a
// single goroutine.
type Reconciler struct {
	fx       Effects
	self     models.ParticipantID
	duration time.Duration

	id       models.SessionID
	phase    Phase
	session  *models.Session
	progress textmetrics.Progress

	remaining     time.Duration
	origin        time.Time // elapsed-time origin for WPM, zero until known
	wpm           int
	opponentScore int

	gate      Gate
	submitted *int
	// scorePending is set when the race ended while a cancel held the gate.
	scorePending bool
	results   *models.Results

	joining  bool
	readying bool
	lastErr  error
	closed   bool
}

// NewReconciler creates a reconciler for self. Init must be called with the
// first snapshot before any other event.
func NewReconciler(fx Effects, self models.ParticipantID, duration time.Duration) *Reconciler {
	return &Reconciler{
		fx:        fx,
		self:      self,
		duration:  duration,
		phase:     PhaseWaiting,
		remaining: duration,
	}
}

// Init derives the starting phase from the first snapshot. A view may open
// mid-race or after the race, so Waiting is only one of the outcomes.
func (r *Reconciler) Init(s *models.Session) {
	r.id = s.ID
	r.session = s
	r.progress = textmetrics.NewProgress(s.ReferenceText)

	switch {
	case s.Phase == models.RemotePhaseFinished:
		r.enterFinished(false)
	case s.Phase == models.RemotePhaseActive, s.BothReady():
		r.enterActive(s.StartTime)
	default:
		r.fx.StartPhaseWatch()
	}
	r.logger().Info().Str("phase", string(r.phase)).Msg("room initialised")
	r.fx.Changed()
}

// ApplySnapshot reconciles a fresh read of the remote session. Snapshots
// behind the local phase are ignored; a repeated active snapshot never
// reseeds the clock.
func (r *Reconciler) ApplySnapshot(s *models.Session) {
	if r.closed || s == nil {
		return
	}
	if remotePhaseRank(s.Phase) < r.phase.rank() {
		r.logger().Debug().
			Str("phase", string(r.phase)).
			Str("remote_phase", string(s.Phase)).
			Msg("ignoring regressive snapshot")
		return
	}
	r.session = s

	switch r.phase {
	case PhaseWaiting:
		switch {
		case s.Phase == models.RemotePhaseFinished:
			r.enterFinished(false)
		case s.Phase == models.RemotePhaseActive, s.BothReady():
			r.enterActive(s.StartTime)
		}
	case PhaseActive:
		if s.Phase == models.RemotePhaseFinished {
			r.logger().Info().Msg("authority finished the race first")
			r.leaveActive()
			r.enterFinished(false)
		} else if r.origin.IsZero() && s.StartTime != nil {
			r.origin = *s.StartTime
		}
	}
	r.fx.Changed()
}

// ApplyOpponentScore records the opponent's latest score while racing.
func (r *Reconciler) ApplyOpponentScore(score int) {
	if r.closed || r.phase != PhaseActive || score == r.opponentScore {
		return
	}
	r.opponentScore = score
	r.fx.Changed()
}

// ApplyResults records the post-race summary. It is final once the
// authority reports the race finished.
func (r *Reconciler) ApplyResults(s *models.Session, scoreA, scoreB int) {
	if r.closed || r.phase != PhaseFinished || s == nil {
		return
	}
	if s.Phase == models.RemotePhaseFinished {
		r.session = s
	}
	r.results = &models.Results{
		Winner:       s.Winner,
		Prize:        s.Prize(),
		ParticipantA: s.ParticipantA,
		ParticipantB: s.ParticipantB,
		ScoreA:       scoreA,
		ScoreB:       scoreB,
		Final:        s.Phase == models.RemotePhaseFinished,
	}
	r.fx.Changed()
}

// Tick updates the countdown and the live metrics.
func (r *Reconciler) Tick(remaining time.Duration) {
	if r.closed || r.phase != PhaseActive {
		return
	}
	r.remaining = remaining
	r.refreshWPM()
	r.fx.Changed()
}

// Expire is the clock's terminal event.
func (r *Reconciler) Expire() {
	if r.closed || r.phase != PhaseActive {
		return
	}
	r.remaining = 0
	r.logger().Info().Msg("race clock expired")
	r.finishRace()
	r.fx.Changed()
}

// Input applies the current contents of the word field.
func (r *Reconciler) Input(value string) error {
	if r.closed {
		return ErrRoomClosed
	}
	if r.phase != PhaseActive || !r.isParticipant() {
		return ErrActionUnavailable
	}
	if r.origin.IsZero() {
		r.origin = r.fx.Now()
	}
	r.progress = r.progress.Type(value)
	r.refreshWPM()

	if r.progress.Complete() {
		r.logger().Info().Msg("reference text completed")
		r.finishRace()
	}
	r.fx.Changed()
	return nil
}

// RequestJoin asks the authority for the second seat at the session stake.
func (r *Reconciler) RequestJoin() error {
	if r.closed {
		return ErrRoomClosed
	}
	if r.phase != PhaseWaiting || r.isParticipant() {
		return ErrActionUnavailable
	}
	if r.joining {
		return nil
	}
	r.joining = true
	r.lastErr = nil
	r.fx.Join(r.session.Stake)
	r.fx.Changed()
	return nil
}

// JoinDone receives the join outcome. A rejection never moves the phase.
func (r *Reconciler) JoinDone(err error) {
	r.joining = false
	if r.closed {
		return
	}
	if err != nil {
		r.lastErr = &CommitError{Op: OpJoin, Err: err}
		r.logger().Warn().Err(err).Msg("join rejected")
	}
	r.fx.Changed()
}

// RequestReady signals readiness. It is skipped locally when the caller is
// not seated or is already ready.
func (r *Reconciler) RequestReady() error {
	if r.closed {
		return ErrRoomClosed
	}
	if r.phase != PhaseWaiting {
		return ErrActionUnavailable
	}
	if !r.isParticipant() || r.session.IsReady(r.self) || r.readying {
		r.logger().Debug().Msg("ready signal skipped")
		return nil
	}
	r.readying = true
	r.lastErr = nil
	r.fx.SignalReady()
	r.fx.Changed()
	return nil
}

// ReadyDone receives the ready-signal outcome. Success is only reflected once
// a snapshot confirms it.
func (r *Reconciler) ReadyDone(err error) {
	r.readying = false
	if r.closed {
		return
	}
	if err != nil {
		r.lastErr = &CommitError{Op: OpReady, Err: err}
		r.logger().Warn().Err(err).Msg("ready signal failed")
	}
	r.fx.Changed()
}

// RequestCancel cancels a session nobody has joined. Only the creator may.
func (r *Reconciler) RequestCancel() error {
	if r.closed {
		return ErrRoomClosed
	}
	if r.gate.InFlight() {
		r.logger().Debug().Msg("cancel suppressed by commit gate")
		return nil
	}
	if !r.canCancel() || !r.gate.Acquire(OpCancel) {
		return ErrActionUnavailable
	}
	r.lastErr = nil
	r.fx.Cancel()
	r.fx.Changed()
	return nil
}

// RetrySubmit resubmits the score after a failed submission.
func (r *Reconciler) RetrySubmit() error {
	if r.closed {
		return ErrRoomClosed
	}
	if !r.canRetry() {
		return ErrActionUnavailable
	}
	r.commitScore()
	r.fx.Changed()
	return nil
}

// CommitDone receives the outcome of a gated commit. A failed score
// submission leaves the phase Finished and the gate open for a retry; a
// failed cancel leaves the session Waiting.
func (r *Reconciler) CommitDone(op CommitOp, err error) {
	r.gate.Resolve(err)
	if r.closed {
		return
	}
	if err != nil {
		r.lastErr = &CommitError{Op: op, Err: err}
		r.logger().Warn().Err(err).Str("op", string(op)).Msg("commit failed")
		if op == OpCancel && r.scorePending && r.phase == PhaseFinished {
			r.scorePending = false
			r.commitScore()
		}
		r.fx.Changed()
		return
	}

	r.logger().Info().Str("op", string(op)).Msg("commit accepted")
	if op == OpCancel {
		r.scorePending = false
		r.teardown()
	}
	r.fx.Changed()
}

// Close tears the room down. Late results are ignored afterwards.
func (r *Reconciler) Close() {
	if r.closed {
		return
	}
	r.teardown()
}

// State renders the current view.
func (r *Reconciler) State() State {
	st := State{
		SessionID:       r.id,
		Participant:     r.self,
		Phase:           r.phase,
		IsParticipant:   r.isParticipant(),
		WordIndex:       r.progress.WordIndex,
		WordCount:       r.progress.WordCount(),
		CurrentWord:     r.progress.CurrentWord(),
		Input:           r.progress.Input,
		CorrectCount:    r.progress.Correct,
		TotalTypedCount: r.progress.Total,
		WPM:             r.wpm,
		Accuracy:        textmetrics.Accuracy(r.progress.Correct, r.progress.Total),
		OpponentScore:   r.opponentScore,
		Committed:       r.gate.Committed(),
		CommitInFlight:  r.gate.InFlight(),
		SubmittedScore:  r.submitted,
		Results:         r.results,
		Closed:          r.closed,
		CanCancel:       r.canCancel(),
		CanRetry:        r.canRetry(),
	}
	if r.session != nil {
		st.Session = r.session.Clone()
		st.RemotePhase = r.session.Phase
		st.IsCreator = r.session.ParticipantA.Equal(r.self)
		st.CanJoin = !r.closed && r.phase == PhaseWaiting && !st.IsParticipant && !r.session.IsFull() && !r.joining
		st.CanReady = !r.closed && r.phase == PhaseWaiting && st.IsParticipant && r.session.IsFull() &&
			!r.session.IsReady(r.self) && !r.readying
	}
	switch r.phase {
	case PhaseWaiting:
		st.RemainingSeconds = countdown.Seconds(r.duration)
	default:
		st.RemainingSeconds = countdown.Seconds(r.remaining)
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// Phase is the current local phase.
func (r *Reconciler) Phase() Phase { return r.phase }

// Committed reports whether the terminal commit succeeded.
func (r *Reconciler) Committed() bool { return r.gate.Committed() }

func (r *Reconciler) enterActive(start *time.Time) {
	if r.phase != PhaseWaiting {
		return
	}
	r.phase = PhaseActive
	r.fx.StopPhaseWatch()

	now := r.fx.Now()
	if start != nil {
		r.origin = *start
	}
	r.remaining = countdown.SeedRemaining(r.duration, start, now)
	r.logger().Info().
		Dur("remaining", r.remaining).
		Bool("remote_start", start != nil).
		Msg("race active")

	if r.isParticipant() {
		r.fx.StartOpponentWatch(r.session.Opponent(r.self))
	}
	r.fx.StartClock(r.remaining)
}

// finishRace ends an active race locally and commits the score once.
func (r *Reconciler) finishRace() {
	r.leaveActive()
	r.enterFinished(r.isParticipant())
}

func (r *Reconciler) leaveActive() {
	r.fx.StopClock()
	r.fx.StopOpponentWatch()
}

func (r *Reconciler) enterFinished(commit bool) {
	if r.phase == PhaseFinished {
		return
	}
	r.phase = PhaseFinished
	r.fx.StopPhaseWatch()
	if commit {
		r.commitScore()
	}
	r.fx.StartResultsWatch()
}

func (r *Reconciler) commitScore() {
	score := r.progress.Score()
	if !r.gate.Acquire(OpScore) {
		if r.gate.InFlight() && r.gate.Op() == OpCancel {
			r.scorePending = true
			r.logger().Info().Int("score", score).Msg("score held until cancel resolves")
			return
		}
		r.logger().Debug().Int("score", score).Msg("score commit suppressed by gate")
		return
	}
	r.submitted = &score
	r.lastErr = nil
	r.logger().Info().Int("score", score).Msg("submitting score")
	r.fx.SubmitScore(score)
}

func (r *Reconciler) teardown() {
	r.closed = true
	r.fx.StopClock()
	r.fx.StopPhaseWatch()
	r.fx.StopOpponentWatch()
	r.fx.StopResultsWatch()
}

func (r *Reconciler) refreshWPM() {
	if r.origin.IsZero() {
		r.wpm = 0
		return
	}
	r.wpm = textmetrics.WPM(r.progress.Correct, r.fx.Now().Sub(r.origin))
}

func (r *Reconciler) isParticipant() bool {
	return r.session != nil && r.session.IsParticipant(r.self)
}

func (r *Reconciler) canCancel() bool {
	return !r.closed && r.phase == PhaseWaiting && r.session != nil &&
		r.session.ParticipantA.Equal(r.self) && !r.session.IsFull() &&
		!r.gate.Committed() && !r.gate.InFlight()
}

func (r *Reconciler) canRetry() bool {
	return !r.closed && r.phase == PhaseFinished && r.isParticipant() && r.submitted != nil &&
		!r.gate.Committed() && !r.gate.InFlight()
}

func (r *Reconciler) logger() *zerolog.Logger {
	l := log.With().
		Str("session_id", r.id.String()).
		Str("participant", r.self.Short()).
		Logger()
	return &l
}

func remotePhaseRank(p models.RemotePhase) int {
	switch p {
	case models.RemotePhaseActive:
		return 1
	case models.RemotePhaseFinished:
		return 2
	}
	return 0
}
