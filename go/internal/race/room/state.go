package room

import (
	"github.com/mcdev12/typeduel/go/internal/models"
)

// Phase is the locally derived stage of a race. It only moves forward.
type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhaseActive   Phase = "ACTIVE"
	PhaseFinished Phase = "FINISHED"
)

func (p Phase) rank() int {
	switch p {
	case PhaseActive:
		return 1
	case PhaseFinished:
		return 2
	}
	return 0
}

// State is the view of one race as this client sees it. It is rebuilt after
// every event and handed to subscribers by value.
type State struct {
	SessionID   models.SessionID     `json:"session_id"`
	Participant models.ParticipantID `json:"participant"`
	Phase       Phase                `json:"phase"`
	RemotePhase models.RemotePhase   `json:"remote_phase"`
	Session     *models.Session      `json:"session"`

	IsCreator     bool `json:"is_creator"`
	IsParticipant bool `json:"is_participant"`
	CanJoin       bool `json:"can_join"`
	CanReady      bool `json:"can_ready"`
	CanCancel     bool `json:"can_cancel"`
	CanRetry      bool `json:"can_retry"`

	WordIndex        int     `json:"word_index"`
	WordCount        int     `json:"word_count"`
	CurrentWord      string  `json:"current_word"`
	Input            string  `json:"input"`
	CorrectCount     int     `json:"correct_count"`
	TotalTypedCount  int     `json:"total_typed_count"`
	WPM              int     `json:"wpm"`
	Accuracy         float64 `json:"accuracy"`
	RemainingSeconds int     `json:"remaining_seconds"`
	OpponentScore    int     `json:"opponent_score"`

	Committed      bool            `json:"committed"`
	CommitInFlight bool            `json:"commit_in_flight"`
	SubmittedScore *int            `json:"submitted_score,omitempty"`
	Results        *models.Results `json:"results,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	// Closed is set once the session was cancelled from this view.
	Closed bool `json:"closed"`
}
