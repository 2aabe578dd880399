package ledger

import (
	"context"

	"github.com/mcdev12/typeduel/go/internal/models"
)

// Record is a stored session plus the per-seat score bookkeeping that the
// public snapshot does not expose.
type Record struct {
	Session    *models.Session
	ScoreA     int
	ScoreB     int
	SubmittedA bool
	SubmittedB bool
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Session = r.Session.Clone()
	return &c
}

// Score returns the recorded score of p and whether p has submitted.
func (r *Record) Score(p models.ParticipantID) (int, bool) {
	switch {
	case r.Session.ParticipantA.Equal(p):
		return r.ScoreA, r.SubmittedA
	case r.Session.ParticipantB.Equal(p):
		return r.ScoreB, r.SubmittedB
	}
	return 0, false
}

// Repository is what the app layer needs from storage. Update and Delete run
// fn against the current record atomically; an error from fn aborts the
// write and is returned unchanged. Unknown ids yield ledgerv1.ErrSessionNotFound.
type Repository interface {
	Create(ctx context.Context, s *models.Session) (models.SessionID, error)
	Get(ctx context.Context, id models.SessionID) (*Record, error)
	Update(ctx context.Context, id models.SessionID, fn func(*Record) error) (*Record, error)
	Delete(ctx context.Context, id models.SessionID, fn func(*Record) error) (*Record, error)
	Count(ctx context.Context) (uint64, error)
}
