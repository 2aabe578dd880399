package ledgerv1

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubjectPrefix roots every ledger subject on the message bus.
const SubjectPrefix = "ledger.sessions"

// Event types published after each ledger mutation.
const (
	EventSessionCreated    = "SessionCreated"
	EventParticipantJoined = "ParticipantJoined"
	EventParticipantReady  = "ParticipantReady"
	EventSessionStarted    = "SessionStarted"
	EventScoreSubmitted    = "ScoreSubmitted"
	EventSessionFinished   = "SessionFinished"
	EventSessionCancelled  = "SessionCancelled"
)

// Envelope wraps a published session snapshot.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID uint64          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SessionSubject is the subject carrying snapshots of one session.
func SessionSubject(id uint64) string {
	return fmt.Sprintf("%s.%d", SubjectPrefix, id)
}
