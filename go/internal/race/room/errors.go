package room

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSessionReference means the session id is malformed or
	// unknown to the authority. It is fatal for the view.
	ErrInvalidSessionReference = errors.New("invalid session reference")

	// ErrActionUnavailable is returned for a request the current state does
	// not allow, such as cancelling a race that has started.
	ErrActionUnavailable = errors.New("action not available in the current state")

	// ErrRoomClosed is returned once the room has been torn down.
	ErrRoomClosed = errors.New("room closed")
)

// CommitOp names a mutation sent to the authority.
type CommitOp string

const (
	OpJoin   CommitOp = "join"
	OpReady  CommitOp = "ready"
	OpScore  CommitOp = "score"
	OpCancel CommitOp = "cancel"
)

// TransientFetchError is a failed read from the authority. Pollers log it and
// retry on the next tick; it never reaches the user.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// CommitError is a failed mutation. It is surfaced to the user, who may retry.
type CommitError struct {
	Op  CommitOp
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
