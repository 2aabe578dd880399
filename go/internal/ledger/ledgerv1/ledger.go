// Package ledgerv1 is the wire contract of the race ledger service: procedure
// names, request and response messages, the codec, and error reasons.
package ledgerv1

import (
	"fmt"
	"math/big"
	"time"

	"github.com/mcdev12/typeduel/go/internal/models"
)

const (
	// LedgerServiceName is the fully-qualified name of the ledger service.
	LedgerServiceName = "typeduel.ledger.v1.LedgerService"

	CreateSessionProcedure        = "/" + LedgerServiceName + "/CreateSession"
	GetSessionProcedure           = "/" + LedgerServiceName + "/GetSession"
	GetTotalSessionCountProcedure = "/" + LedgerServiceName + "/GetTotalSessionCount"
	JoinSessionProcedure          = "/" + LedgerServiceName + "/JoinSession"
	SignalReadyProcedure          = "/" + LedgerServiceName + "/SignalReady"
	SubmitScoreProcedure          = "/" + LedgerServiceName + "/SubmitScore"
	CancelSessionProcedure        = "/" + LedgerServiceName + "/CancelSession"
	GetParticipantScoreProcedure  = "/" + LedgerServiceName + "/GetParticipantScore"
)

// ParticipantHeader carries the caller's identity handle on every request.
const ParticipantHeader = "X-Participant-Id"

// Session is the wire form of models.Session. Stake travels as a decimal
// string so large amounts survive JSON clients.
type Session struct {
	ID            uint64     `json:"id"`
	ParticipantA  string     `json:"participant_a"`
	ParticipantB  string     `json:"participant_b"`
	Stake         string     `json:"stake"`
	ReferenceText string     `json:"reference_text"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	ReadyA        bool       `json:"ready_a"`
	ReadyB        bool       `json:"ready_b"`
	Phase         string     `json:"phase"`
	Winner        string     `json:"winner"`
}

type CreateSessionRequest struct {
	Text  string `json:"text"`
	Stake string `json:"stake"`
}

type CreateSessionResponse struct {
	SessionID uint64 `json:"session_id"`
}

type GetSessionRequest struct {
	SessionID uint64 `json:"session_id"`
}

type GetSessionResponse struct {
	Session Session `json:"session"`
}

type JoinSessionRequest struct {
	SessionID uint64 `json:"session_id"`
	Stake     string `json:"stake"`
}

type JoinSessionResponse struct{}

type SignalReadyRequest struct {
	SessionID uint64 `json:"session_id"`
}

type SignalReadyResponse struct{}

type SubmitScoreRequest struct {
	SessionID      uint64 `json:"session_id"`
	WordsCompleted int    `json:"words_completed"`
}

type SubmitScoreResponse struct{}

type CancelSessionRequest struct {
	SessionID uint64 `json:"session_id"`
}

type CancelSessionResponse struct{}

type GetParticipantScoreRequest struct {
	SessionID   uint64 `json:"session_id"`
	Participant string `json:"participant"`
}

type GetParticipantScoreResponse struct {
	Score int `json:"score"`
}

// ParseAmount parses a non-negative decimal amount in base units.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// FormatAmount renders an amount for the wire. Nil is zero.
func FormatAmount(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

// SessionFromModel converts a domain session to its wire form.
func SessionFromModel(s *models.Session) Session {
	return Session{
		ID:            uint64(s.ID),
		ParticipantA:  string(s.ParticipantA),
		ParticipantB:  string(s.ParticipantB),
		Stake:         FormatAmount(s.Stake),
		ReferenceText: s.ReferenceText,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		ReadyA:        s.ReadyA,
		ReadyB:        s.ReadyB,
		Phase:         string(s.Phase),
		Winner:        string(s.Winner),
	}
}

// ToModel converts a wire session to the domain type.
func (s Session) ToModel() (*models.Session, error) {
	stake, err := ParseAmount(s.Stake)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", s.ID, err)
	}
	phase := models.RemotePhase(s.Phase)
	switch phase {
	case models.RemotePhaseNotStarted, models.RemotePhaseActive, models.RemotePhaseFinished:
	default:
		return nil, fmt.Errorf("session %d: unknown phase %q", s.ID, s.Phase)
	}
	return &models.Session{
		ID:            models.SessionID(s.ID),
		ParticipantA:  participantOrEmpty(s.ParticipantA),
		ParticipantB:  participantOrEmpty(s.ParticipantB),
		Stake:         stake,
		ReferenceText: s.ReferenceText,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		ReadyA:        s.ReadyA,
		ReadyB:        s.ReadyB,
		Phase:         phase,
		Winner:        participantOrEmpty(s.Winner),
	}, nil
}

func participantOrEmpty(s string) models.ParticipantID {
	if models.ParticipantID(s).IsEmpty() {
		return models.EmptyParticipant
	}
	return models.ParticipantID(s)
}
