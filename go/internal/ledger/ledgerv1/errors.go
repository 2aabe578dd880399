package ledgerv1

import (
	"errors"

	"connectrpc.com/connect"
)

// ReasonHeader carries the machine-readable failure reason on error responses.
const ReasonHeader = "X-Ledger-Reason"

// Error is a ledger rule violation with a stable reason code.
type Error struct {
	Reason string
	Code   connect.Code
	msg    string
}

func (e *Error) Error() string { return e.msg }

func newError(reason string, code connect.Code, msg string) *Error {
	e := &Error{Reason: reason, Code: code, msg: msg}
	byReason[reason] = e
	return e
}

var byReason = map[string]*Error{}

var (
	ErrSessionNotFound    = newError("session_not_found", connect.CodeNotFound, "session not found")
	ErrEmptyText          = newError("empty_text", connect.CodeInvalidArgument, "text to type is empty")
	ErrInvalidStake       = newError("invalid_stake", connect.CodeInvalidArgument, "stake must be greater than zero")
	ErrStakeMismatch      = newError("stake_mismatch", connect.CodeInvalidArgument, "stake does not match session stake")
	ErrSessionFull        = newError("session_full", connect.CodeFailedPrecondition, "session full")
	ErrSessionNotWaiting  = newError("session_not_waiting", connect.CodeFailedPrecondition, "session is not waiting for players")
	ErrAwaitingOpponent   = newError("awaiting_opponent", connect.CodeFailedPrecondition, "session has no second participant yet")
	ErrSessionNotActive   = newError("session_not_active", connect.CodeFailedPrecondition, "session is not active")
	ErrSessionFinished    = newError("session_finished", connect.CodeFailedPrecondition, "session already finished")
	ErrCannotCancel       = newError("cannot_cancel", connect.CodeFailedPrecondition, "session can no longer be cancelled")
	ErrAlreadyParticipant = newError("already_participant", connect.CodeAlreadyExists, "caller already holds a seat")
	ErrAlreadySubmitted   = newError("already_submitted", connect.CodeAlreadyExists, "score already submitted")
	ErrInvalidScore       = newError("invalid_score", connect.CodeInvalidArgument, "score exceeds the number of words in the text")
	ErrNotParticipant     = newError("not_participant", connect.CodePermissionDenied, "caller is not a participant")
	ErrNotCreator         = newError("not_creator", connect.CodePermissionDenied, "only the creator can cancel")
	ErrMissingCaller      = newError("missing_caller", connect.CodeUnauthenticated, "missing participant header")
)

// ToConnectError turns a ledger error into a connect error carrying its
// reason. Anything else becomes an internal error.
func ToConnectError(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if !errors.As(err, &le) {
		return connect.NewError(connect.CodeInternal, err)
	}
	ce := connect.NewError(le.Code, err)
	ce.Meta().Set(ReasonHeader, le.Reason)
	return ce
}

// FromConnectError recovers the ledger sentinel from a connect error so that
// errors.Is works on the client side. Unknown errors are returned unchanged.
func FromConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return err
	}
	if le, ok := byReason[ce.Meta().Get(ReasonHeader)]; ok {
		return le
	}
	return err
}
