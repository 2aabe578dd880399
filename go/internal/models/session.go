package models

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSessionID is returned when a session reference cannot be parsed.
var ErrInvalidSessionID = errors.New("invalid session id")

// SessionID is the authority-assigned identifier of a race. Ids are dense and
// start at zero, so the total session count doubles as the next id.
type SessionID uint64

// ParseSessionID parses a session reference as it appears in a view route.
func ParseSessionID(raw string) (SessionID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSessionID, raw)
	}
	return SessionID(n), nil
}

func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParticipantID is an identity handle bound to a session.
type ParticipantID string

// EmptyParticipant marks an unassigned seat and an undetermined winner.
const EmptyParticipant ParticipantID = "0x0000000000000000000000000000000000000000"

// IsEmpty reports whether p is unset or the empty sentinel.
func (p ParticipantID) IsEmpty() bool {
	return p == "" || strings.EqualFold(string(p), string(EmptyParticipant))
}

// Equal compares handles case-insensitively.
func (p ParticipantID) Equal(other ParticipantID) bool {
	if p.IsEmpty() || other.IsEmpty() {
		return p.IsEmpty() && other.IsEmpty()
	}
	return strings.EqualFold(string(p), string(other))
}

// Short returns an abbreviated handle for display.
func (p ParticipantID) Short() string {
	if len(p) <= 6 {
		return string(p)
	}
	return string(p[:6]) + "..."
}

// RemotePhase is the lifecycle stage reported by the authority.
type RemotePhase string

const (
	RemotePhaseNotStarted RemotePhase = "NOT_STARTED"
	RemotePhaseActive     RemotePhase = "ACTIVE"
	RemotePhaseFinished   RemotePhase = "FINISHED"
)

// Session is a point-in-time read of one race as held by the authority.
type Session struct {
	ID            SessionID     `json:"id"`
	ParticipantA  ParticipantID `json:"participant_a"`
	ParticipantB  ParticipantID `json:"participant_b"`
	Stake         *big.Int      `json:"stake"`
	ReferenceText string        `json:"reference_text"`
	StartTime     *time.Time    `json:"start_time,omitempty"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
	ReadyA        bool          `json:"ready_a"`
	ReadyB        bool          `json:"ready_b"`
	Phase         RemotePhase   `json:"phase"`
	Winner        ParticipantID `json:"winner"`
}

// IsParticipant reports whether p holds either seat.
func (s *Session) IsParticipant(p ParticipantID) bool {
	if p.IsEmpty() {
		return false
	}
	return s.ParticipantA.Equal(p) || s.ParticipantB.Equal(p)
}

// IsFull reports whether the second seat has been taken.
func (s *Session) IsFull() bool {
	return !s.ParticipantB.IsEmpty()
}

// BothReady reports whether both participants have signalled readiness.
func (s *Session) BothReady() bool {
	return s.ReadyA && s.ReadyB
}

// IsReady reports the readiness of p. Non-participants are never ready.
func (s *Session) IsReady(p ParticipantID) bool {
	switch {
	case p.IsEmpty():
		return false
	case s.ParticipantA.Equal(p):
		return s.ReadyA
	case s.ParticipantB.Equal(p):
		return s.ReadyB
	}
	return false
}

// Opponent returns the other seat relative to p, or EmptyParticipant.
func (s *Session) Opponent(p ParticipantID) ParticipantID {
	switch {
	case s.ParticipantA.Equal(p):
		return s.ParticipantB
	case s.ParticipantB.Equal(p):
		return s.ParticipantA
	}
	return EmptyParticipant
}

// Prize is the pot paid to the winner, twice the symmetric stake.
func (s *Session) Prize() *big.Int {
	if s.Stake == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(s.Stake, big.NewInt(2))
}

// Clone returns a deep copy so snapshots can be handed across goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Stake != nil {
		c.Stake = new(big.Int).Set(s.Stake)
	}
	if s.StartTime != nil {
		t := *s.StartTime
		c.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}
